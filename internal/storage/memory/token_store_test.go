package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

func record(addr string, volume float64) domain.TokenRecord {
	return domain.TokenRecord{
		Address:    addr,
		Symbol:     "T" + addr,
		Volume:     volume,
		Provenance: domain.ProvenanceLive,
		ObservedAt: time.Unix(1700000000, 0),
	}
}

func addresses(recs []domain.TokenRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Address
	}
	return out
}

func TestTokenStore_UpsertSameAddressTwice(t *testing.T) {
	store := NewTokenStore(10)

	require.NoError(t, store.Upsert(record("X", 100)))
	require.NoError(t, store.Upsert(record("X", 250)))

	all := store.SnapshotAll()
	require.Len(t, all, 1)
	assert.Equal(t, "X", all[0].Address)
	assert.Equal(t, 250.0, all[0].Volume)
}

func TestTokenStore_MostRecentFirst(t *testing.T) {
	store := NewTokenStore(10)

	for _, a := range []string{"A", "B", "C"} {
		require.NoError(t, store.Upsert(record(a, 1)))
	}
	assert.Equal(t, []string{"C", "B", "A"}, addresses(store.SnapshotAll()))

	// Re-observing A moves it to the head.
	require.NoError(t, store.Upsert(record("A", 2)))
	assert.Equal(t, []string{"A", "C", "B"}, addresses(store.SnapshotAll()))
}

func TestTokenStore_EvictsLeastRecentlyInserted(t *testing.T) {
	store := NewTokenStore(3)

	for _, a := range []string{"A", "B", "C"} {
		require.NoError(t, store.Upsert(record(a, 1)))
	}
	// Refresh A so B becomes the oldest insertion.
	require.NoError(t, store.Upsert(record("A", 5)))
	require.NoError(t, store.Upsert(record("D", 1)))

	assert.Equal(t, []string{"D", "A", "C"}, addresses(store.SnapshotAll()))
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, uint64(1), store.Evictions())
}

func TestTokenStore_ReadsDoNotChangeOrder(t *testing.T) {
	store := NewTokenStore(2)

	require.NoError(t, store.Upsert(record("A", 1)))
	require.NoError(t, store.Upsert(record("B", 1)))
	_ = store.SnapshotAll()
	require.NoError(t, store.Upsert(record("C", 1)))

	assert.Equal(t, []string{"C", "B"}, addresses(store.SnapshotAll()))
}

func TestTokenStore_InvalidInput(t *testing.T) {
	store := NewTokenStore(2)

	err := store.Upsert(domain.TokenRecord{})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
	assert.Equal(t, 0, store.Len())
}

func TestTokenStore_DefaultCapacity(t *testing.T) {
	store := NewTokenStore(0)

	for i := 0; i < DefaultCapacity+5; i++ {
		require.NoError(t, store.Upsert(record(fmt.Sprintf("addr-%d", i), 1)))
	}
	assert.Equal(t, DefaultCapacity, store.Len())
}

func TestTokenStore_SnapshotIsCopy(t *testing.T) {
	store := NewTokenStore(5)
	require.NoError(t, store.Upsert(record("A", 1)))

	snap := store.SnapshotAll()
	snap[0].Volume = 999

	assert.Equal(t, 1.0, store.SnapshotAll()[0].Volume, "Store should return copy, not reference")
}

// Randomized sequences against a naive model: one record per address holding
// the latest value, size never above capacity, and eviction in insertion order.
func TestTokenStore_MatchesReferenceModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		capacity := 1 + rng.Intn(8)
		store := NewTokenStore(capacity)

		var order []string // oldest first
		latest := make(map[string]float64)

		for step := 0; step < 200; step++ {
			addr := fmt.Sprintf("a%d", rng.Intn(12))
			vol := float64(rng.Intn(1_000_000))
			require.NoError(t, store.Upsert(record(addr, vol)))

			for i, a := range order {
				if a == addr {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
			order = append(order, addr)
			latest[addr] = vol
			if len(order) > capacity {
				delete(latest, order[0])
				order = order[1:]
			}

			snap := store.SnapshotAll()
			require.LessOrEqual(t, len(snap), capacity)
			require.Len(t, snap, len(order))

			seen := make(map[string]bool)
			for i, r := range snap {
				require.False(t, seen[r.Address], "duplicate address %s", r.Address)
				seen[r.Address] = true
				require.Equal(t, order[len(order)-1-i], r.Address)
				require.Equal(t, latest[r.Address], r.Volume)
			}
		}
	}
}

func TestTokenStore_ConcurrentAccess(t *testing.T) {
	store := NewTokenStore(50)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = store.Upsert(record(fmt.Sprintf("w%d-%d", w, i%80), float64(i)))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := store.SnapshotAll()
				if len(snap) > 50 {
					t.Errorf("snapshot exceeds capacity: %d", len(snap))
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
