package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var lastEvictions monotonicMirror

// monotonicMirror feeds an externally maintained running total into a counter.
type monotonicMirror struct {
	mu   sync.Mutex
	last uint64
}

func (m *monotonicMirror) update(total uint64, c prometheus.Counter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if total > m.last {
		c.Add(float64(total - m.last))
	}
	m.last = total
}
