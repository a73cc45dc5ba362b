package dailyid

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"ordersapi/src/sequence"
	"ordersapi/src/utils"
)

// DailyID prints identifiers from a DailyGenerator in the display timezone.
type DailyID struct {
	Out       io.Writer
	Count     int
	Generator *sequence.DailyGenerator
	Log       *logrus.Entry
}

func New(out io.Writer, count int) *DailyID {
	return &DailyID{
		Out:       out,
		Count:     count,
		Generator: sequence.NewDailyGenerator(time.Now, utils.DisplayLocation()),
		Log:       logrus.WithField("cmd", "daily-id"),
	}
}

// Start writes Count identifiers, one per line.
func (d *DailyID) Start() error {
	if d.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", d.Count)
	}
	for i := 0; i < d.Count; i++ {
		if _, err := fmt.Fprintln(d.Out, d.Generator.NextID()); err != nil {
			return err
		}
	}
	d.Log.WithField("count", d.Count).Debug("daily ids issued")
	return nil
}

// Follow prints one identifier every interval until ctx ends, resetting the
// sequence at each midnight of the display timezone.
func (d *DailyID) Follow(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	go ResetAtMidnight(ctx, d.Generator, time.Now, utils.DisplayLocation())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprintln(d.Out, d.Generator.NextID()); err != nil {
				return err
			}
		}
	}
}

// ResetAtMidnight calls Reset on gen at every midnight of loc until ctx ends.
// The reset is driven from outside the generator.
func ResetAtMidnight(ctx context.Context, gen *sequence.DailyGenerator, now func() time.Time, loc *time.Location) {
	for {
		wait := untilMidnight(now(), loc)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			gen.Reset()
			logrus.WithField("cmd", "daily-id").Info("daily sequence reset")
		}
	}
}

func untilMidnight(t time.Time, loc *time.Location) time.Duration {
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.Sub(local)
}
