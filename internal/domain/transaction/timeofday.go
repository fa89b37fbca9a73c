package transaction

import (
	"fmt"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time without a date, stored as seconds since
// midnight. The time zone is whatever the store records in.
type TimeOfDay int

var timeOfDayLayouts = []string{
	"15:04:05.999999999",
	"15:04",
	time.DateTime,
	time.RFC3339Nano,
}

// NewTimeOfDay builds a TimeOfDay from its components.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("time of day out of range: %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// ParseTimeOfDay accepts "HH:MM:SS", "HH:MM", fractional seconds, and full
// timestamps (only the clock part is kept).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return FromTime(t), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time of day %q", s)
}

// FromTime keeps the clock part of t.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Seconds returns the number of seconds since midnight.
func (t TimeOfDay) Seconds() int {
	return int(t)
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// MarshalText renders the time as HH:MM:SS.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// CircularDiff returns the smaller of the direct distance between a and b
// and the distance going around midnight, in seconds.
// 23:58:00 and 00:02:00 are 240 seconds apart.
func CircularDiff(a, b TimeOfDay) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	if wrapped := secondsPerDay - d; wrapped < d {
		return wrapped
	}
	return d
}
