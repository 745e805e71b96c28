// Package memory provides process-local stores for single-instance deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/virtual-id-api/internal/domain"
)

// OTPStore keeps OTP records in a map, one per identity.
type OTPStore struct {
	mu      sync.RWMutex
	entries map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{entries: make(map[string]domain.OTPRecord)}
}

func (s *OTPStore) Get(_ context.Context, identity string) (*domain.OTPRecord, error) {
	s.mu.RLock()
	rec, ok := s.entries[identity]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *OTPStore) Set(_ context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	s.entries[rec.Identity] = *rec
	s.mu.Unlock()
	return nil
}

func (s *OTPStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	delete(s.entries, identity)
	s.mu.Unlock()
	return nil
}

// Len reports the number of records held.
func (s *OTPStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
