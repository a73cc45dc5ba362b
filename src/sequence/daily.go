package sequence

import (
	"fmt"
	"sync"
	"time"
)

// DailyGenerator produces identifiers of the form ddmmyyyy_NNN whose sequence
// restarts every calendar day of the injected clock.
type DailyGenerator struct {
	mu       sync.Mutex
	now      func() time.Time
	loc      *time.Location
	date     string
	sequence int
}

// NewDailyGenerator builds a generator. A nil clock uses time.Now and a nil
// location uses time.Local.
func NewDailyGenerator(now func() time.Time, loc *time.Location) *DailyGenerator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &DailyGenerator{now: now, loc: loc}
}

// NextID returns the next identifier for the current day.
func (g *DailyGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().In(g.loc).Format("02012006")
	if today != g.date {
		g.date = today
		g.sequence = 0
	}
	g.sequence++
	return fmt.Sprintf("%s_%03d", today, g.sequence)
}

// Reset clears the date and sequence; the next call starts again at 001.
func (g *DailyGenerator) Reset() {
	g.mu.Lock()
	g.date = ""
	g.sequence = 0
	g.mu.Unlock()
}
