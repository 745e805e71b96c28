package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewNumericCode returns a uniformly random decimal code of exactly digits
// characters with no leading zero.
func NewNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", fmt.Errorf("generate code: unsupported length %d", digits)
	}
	low := pow10(digits - 1)
	n, err := rand.Int(rand.Reader, big.NewInt(pow10(digits)-low))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", low+n.Int64()), nil
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
