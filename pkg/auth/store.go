// pkg/auth/store.go
package auth

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// Record is the pending one-time code for an address.
type Record struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	Used      bool
}

// Store persists one pending code per address. A new code replaces the old.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, email string) (Record, error)
	// Redeem checks code against the pending record and marks it used in one
	// step, so a code is accepted at most once.
	Redeem(ctx context.Context, email, code string, now time.Time) (Record, error)
	Delete(ctx context.Context, email string) error
	// Purge drops records that expired before now and returns how many.
	Purge(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Email] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, email string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[email]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Redeem fails with ErrNotFound, ErrAlreadyUsed, ErrExpired or ErrMismatch,
// checked in that order. An expired record is removed.
func (m *MemoryStore) Redeem(_ context.Context, email, code string, now time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[email]
	switch {
	case !ok:
		return Record{}, ErrNotFound
	case r.Used:
		return Record{}, ErrAlreadyUsed
	case now.After(r.ExpiresAt):
		delete(m.records, email)
		return Record{}, ErrExpired
	case subtle.ConstantTimeCompare([]byte(r.Code), []byte(code)) != 1:
		return Record{}, ErrMismatch
	}

	r.Used = true
	m.records[email] = r
	return r, nil
}

func (m *MemoryStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, email)
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for email, r := range m.records {
		if now.After(r.ExpiresAt) {
			delete(m.records, email)
			n++
		}
	}
	return n, nil
}
