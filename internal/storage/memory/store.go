// Package memory provides the reference in-memory TokenStore used in tests
// and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Store keeps device records per user in process memory. Writes to a single
// user's record set are atomic under the store mutex; there is no cross-user
// locking because records for different users are independent.
type Store struct {
	mu    sync.RWMutex
	users map[string]map[string]notify.TokenRecord
}

func New() *Store {
	return &Store{users: make(map[string]map[string]notify.TokenRecord)}
}

func (s *Store) Get(_ context.Context, userID string) ([]notify.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := s.users[userID]
	records := make([]notify.TokenRecord, 0, len(devices))
	for _, rec := range devices {
		records = append(records, rec)
	}
	// Map iteration order is random; resolution order must not be.
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].Token < records[j].Token
	})
	return records, nil
}

func (s *Store) Put(_ context.Context, userID string, record notify.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, ok := s.users[userID]
	if !ok {
		devices = make(map[string]notify.TokenRecord)
		s.users[userID] = devices
	}
	devices[record.Token] = record
	return nil
}

func (s *Store) Delete(_ context.Context, userID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if devices, ok := s.users[userID]; ok {
		delete(devices, token)
	}
	return nil
}
