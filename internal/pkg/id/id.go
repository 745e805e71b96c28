package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// pipeline run ids and pass event ids ordered in logs and topics.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
