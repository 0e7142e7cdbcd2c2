package memory

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 200

// TokenStore is a bounded, insertion-ordered, deduplicated implementation of storage.TokenStore.
// Upserting an existing address replaces the record and moves it to the head;
// overflow evicts the least recently inserted record.
type TokenStore struct {
	mu        sync.Mutex
	records   *simplelru.LRU[string, domain.TokenRecord]
	evictions atomic.Uint64
}

// NewTokenStore creates a store holding at most capacity records.
func NewTokenStore(capacity int) *TokenStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &TokenStore{}
	// Only errors on a non-positive size, which is ruled out above.
	records, _ := simplelru.NewLRU[string, domain.TokenRecord](capacity, func(string, domain.TokenRecord) {
		s.evictions.Add(1)
	})
	s.records = records
	return s
}

// Upsert inserts or replaces rec by address. Returns ErrInvalidInput for an empty address.
func (s *TokenStore) Upsert(rec domain.TokenRecord) error {
	if rec.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Add on an existing key updates in place and moves it to the front,
	// so insertion order and recency order coincide. Reads never touch order.
	s.records.Add(rec.Address, rec)
	return nil
}

// SnapshotAll returns a copy of all records, most recent first.
func (s *TokenStore) SnapshotAll() []domain.TokenRecord {
	s.mu.Lock()
	values := s.records.Values() // oldest to newest, freshly allocated
	s.mu.Unlock()

	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values
}

// Len returns the number of buffered records.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

// Evictions returns how many records were dropped for capacity.
func (s *TokenStore) Evictions() uint64 {
	return s.evictions.Load()
}

var _ storage.TokenStore = (*TokenStore)(nil)
