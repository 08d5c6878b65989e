// Package blacklist keeps the set of access tokens revoked before their
// natural expiry. JWT signature verification is stateless, so logout needs
// this side channel to make a token stop working immediately; bounding every
// entry by the token's own expiry keeps the set from growing without limit.
package blacklist

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

// Store records revoked tokens until their original expiry passes. Add is
// idempotent; Add and Contains are safe to call concurrently from request
// goroutines and never block each other indefinitely.
type Store interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Close() error
}

// MemoryStore implements Store using ttlcache. Entries carry the residual
// lifetime of their token, so the sweep never removes an entry early and
// eventually removes every expired one.
type MemoryStore struct {
	cache *ttlcache.Cache[string, time.Time]
	stop  chan struct{}
	done  chan struct{}
}

// NewMemoryStore creates a process-scoped in-memory store and starts its
// background sweep at the given interval. Callers own the lifecycle and must
// Close the store at shutdown.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, time.Time](sweepInterval),
			ttlcache.WithDisableTouchOnHit[string, time.Time](),
		),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go s.sweep(sweepInterval)

	return s
}

// sweep evicts entries past their expiry on a fixed cadence. A failed cycle
// only delays reclamation until the next tick; it never escapes the
// goroutine.
func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			before := s.cache.Len()
			s.cache.DeleteExpired()
			if removed := before - s.cache.Len(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("expired tokens swept from blacklist")
			}
		}
	}
}

// Add implements Store.Add. Re-adding the same token keeps exactly one entry.
func (s *MemoryStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past expiry: nothing to retain, natural expiry rejects it.
		return nil
	}
	s.cache.Set(token, expiresAt, ttl)
	return nil
}

// Contains implements Store.Contains. Expired entries read as absent even
// before the sweep reclaims them.
func (s *MemoryStore) Contains(_ context.Context, token string) (bool, error) {
	return s.cache.Get(token) != nil, nil
}

// Len reports the number of live entries, exposed for metrics.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close stops the sweep goroutine and waits for it to exit.
func (s *MemoryStore) Close() error {
	close(s.stop)
	<-s.done
	return nil
}
