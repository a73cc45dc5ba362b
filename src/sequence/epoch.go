package sequence

import (
	"strconv"
	"sync"
	"time"
)

// EpochGenerator issues order identifiers rendered as decimal milliseconds since
// epoch. Each call returns max(now, last+1) so identifiers are strictly
// increasing within a process.
type EpochGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewEpochGenerator returns a generator seeded with a high-water mark, usually
// the largest orderId already persisted. now defaults to time.Now.
func NewEpochGenerator(highWater int64, now func() time.Time) *EpochGenerator {
	if now == nil {
		now = time.Now
	}
	return &EpochGenerator{now: now, last: highWater}
}

// NextID returns the next identifier.
func (g *EpochGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}

