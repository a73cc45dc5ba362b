package utils

import (
	"time"
	_ "time/tzdata" // Asia/Jakarta must resolve on hosts without zoneinfo
)

const (
	// DisplayLayout is the layout used for every timestamp returned by the API.
	DisplayLayout = "2006-01-02 15:04:05"

	displayZone   = "Asia/Jakarta"
	displayOffset = 7 * time.Hour

	// epoch values above this are treated as milliseconds
	milliThreshold = 100_000_000_000
)

var displayLocation = loadDisplayLocation()

func loadDisplayLocation() *time.Location {
	loc, err := time.LoadLocation(displayZone)
	if err != nil {
		return time.FixedZone("WIB", int(displayOffset.Seconds()))
	}
	return loc
}

// DisplayLocation is the timezone every API timestamp is rendered in.
func DisplayLocation() *time.Location {
	return displayLocation
}

// ToReadableDate renders a stored timestamp in Asia/Jakarta as "YYYY-MM-DD HH:mm:ss".
// Returns nil when there is no timestamp.
func ToReadableDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.In(displayLocation).Format(DisplayLayout)
	return &s
}

// EpochToReadable converts an epoch value in seconds or milliseconds into the
// display layout by adding a fixed +7h offset, truncated to the second.
func EpochToReadable(epoch int64) string {
	var t time.Time
	if epoch > milliThreshold || epoch < -milliThreshold {
		t = time.UnixMilli(epoch)
	} else {
		t = time.Unix(epoch, 0)
	}
	return ResetTime(t.UTC().Add(displayOffset), "second").Format(DisplayLayout)
}

// ResetTime resets the time component based on the granularity specified.
// Pass "second" to drop sub-second precision.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "second":
		return t.Truncate(time.Second)
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	default:
		return t
	}
}
