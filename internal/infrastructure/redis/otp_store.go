package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/virtual-id-api/internal/domain"
)

// OTPStore keeps one JSON-encoded record per identity under "otp:<identity>".
// Keys carry no ttl; a record lives until it is deleted or overwritten.
type OTPStore struct {
	client *goredis.Client
	prefix string
}

func NewOTPStore(client *goredis.Client) *OTPStore {
	return &OTPStore{client: client, prefix: "otp:"}
}

func (s *OTPStore) Get(ctx context.Context, identity string) (*domain.OTPRecord, error) {
	raw, err := s.client.Get(ctx, s.prefix+identity).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get otp: %w", err)
	}
	var rec domain.OTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &rec, nil
}

func (s *OTPStore) Set(ctx context.Context, rec *domain.OTPRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+rec.Identity, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Delete(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, s.prefix+identity).Err(); err != nil {
		return fmt.Errorf("redis del otp: %w", err)
	}
	return nil
}
