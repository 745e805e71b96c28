package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/clock"
	"github.com/virtual-id-api/internal/pkg/logging"
	"github.com/virtual-id-api/internal/pkg/metrics"
	"github.com/virtual-id-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 5 * time.Minute

	codeDigits = 6
)

// Store is a keyed record store. Records live until deleted or replaced, so an
// unconsumed code always reports as expired once its window has passed.
// Get returns domain.ErrNotFound when no record exists.
type Store interface {
	Get(ctx context.Context, identity string) (*domain.OTPRecord, error)
	Set(ctx context.Context, rec *domain.OTPRecord) error
	Delete(ctx context.Context, identity string) error
}

// Registry issues and verifies single-use numeric passcodes keyed by identity.
type Registry struct {
	store    Store
	clock    clock.Clock
	ttl      time.Duration
	hashCost int
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(r *Registry) { r.clock = c } }

// WithTTL sets the code validity window.
func WithTTL(d time.Duration) Option { return func(r *Registry) { r.ttl = d } }

// WithHashCost sets the bcrypt cost used for stored codes.
func WithHashCost(cost int) Option { return func(r *Registry) { r.hashCost = cost } }

func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		clock:    clock.System{},
		ttl:      DefaultTTL,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the validity window of issued codes.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Issue generates a new code for identity, replacing any code issued before.
func (r *Registry) Issue(ctx context.Context, identity string) (string, error) {
	key := normalize(identity)
	if key == "" {
		return "", fmt.Errorf("identity required: %w", domain.ErrBadRequest)
	}

	code, err := token.NewNumericCode(codeDigits)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), r.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	now := r.clock.Now().UTC()
	rec := &domain.OTPRecord{
		Identity:  key,
		CodeHash:  string(hash),
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.Set(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	metrics.IncOTPIssued()
	return code, nil
}

// Verify checks code against the live record for identity and consumes it on
// success. It returns domain.ErrOTPNotFound, domain.ErrOTPExpired or
// domain.ErrOTPMismatch for the corresponding failures.
func (r *Registry) Verify(ctx context.Context, identity, code string) error {
	key := normalize(identity)
	log := logging.FromContext(ctx)

	rec, err := r.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncOTPVerification("not_found")
		return domain.ErrOTPNotFound
	}
	if err != nil {
		metrics.IncOTPVerification("error")
		return fmt.Errorf("load otp: %w", err)
	}

	if rec.Expired(r.clock.Now()) {
		if err := r.store.Delete(ctx, key); err != nil {
			log.Warn("failed to purge expired otp", "identity", key, "err", err)
		}
		metrics.IncOTPVerification("expired")
		return domain.ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(strings.TrimSpace(code))); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Warn("otp hash comparison failed", "identity", key, "err", err)
		}
		metrics.IncOTPVerification("mismatch")
		return domain.ErrOTPMismatch
	}

	// Consumption must succeed, otherwise the code could be replayed.
	if err := r.store.Delete(ctx, key); err != nil {
		metrics.IncOTPVerification("error")
		return fmt.Errorf("consume otp: %w", err)
	}
	metrics.IncOTPVerification("success")
	return nil
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
