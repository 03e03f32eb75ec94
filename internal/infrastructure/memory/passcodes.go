// Package memory holds process-local implementations of the passcode store
// and the issuance window limiter. State does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]*domain.PasscodeRecord
}

// PasscodeStore is a sharded in-memory identifier -> record map.
// Records are copied in and out so callers never share state with the store.
type PasscodeStore struct {
	shards    [shardCount]*shard
	retention time.Duration
	nowF      func() time.Time
}

// NewPasscodeStore returns an empty store. Expired records are kept for
// retention past ExpiresAt so callers can still tell "expired" from "absent";
// the sweeper removes them afterwards.
func NewPasscodeStore(retention time.Duration) *PasscodeStore {
	s := &PasscodeStore{retention: retention, nowF: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*domain.PasscodeRecord)}
	}
	return s
}

func (s *PasscodeStore) shardFor(identifier string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return s.shards[h.Sum32()%shardCount]
}

func (s *PasscodeStore) Put(_ context.Context, identifier string, rec *domain.PasscodeRecord) error {
	sh := s.shardFor(identifier)
	sh.mu.Lock()
	sh.records[identifier] = rec.Clone()
	sh.mu.Unlock()
	return nil
}

func (s *PasscodeStore) Get(_ context.Context, identifier string) (*domain.PasscodeRecord, error) {
	sh := s.shardFor(identifier)
	sh.mu.RLock()
	rec, ok := sh.records[identifier]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *PasscodeStore) Delete(_ context.Context, identifier string) error {
	sh := s.shardFor(identifier)
	sh.mu.Lock()
	delete(sh.records, identifier)
	sh.mu.Unlock()
	return nil
}

// AddAttempt increments the attempt counter under the shard lock.
func (s *PasscodeStore) AddAttempt(_ context.Context, identifier string) (*domain.PasscodeRecord, error) {
	sh := s.shardFor(identifier)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[identifier]
	if !ok {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	rec.Attempts++
	return rec.Clone(), nil
}

// Len returns the number of records currently held.
func (s *PasscodeStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes records whose ExpiresAt+retention has passed and returns how many were dropped.
func (s *PasscodeStore) Sweep() int {
	cutoff := s.nowF().Add(-s.retention)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, rec := range sh.records {
			if !rec.ExpiresAt.After(cutoff) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *PasscodeStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					slog.Debug("swept expired passcodes", "count", n)
				}
			}
		}
	}()
}
