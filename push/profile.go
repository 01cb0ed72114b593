package push

import (
	"slices"
	"time"
)

type Profile string

const (
	ProfileDaily      Profile = "daily"
	ProfileHalfHourly Profile = "half_hourly"
	ProfileUnknown    Profile = "unknown"
)

// ClassifyDayPush looks at the value count of the first row only.
func ClassifyDayPush(p *DayPush) Profile {
	if p == nil || len(p.Data) == 0 {
		return ProfileUnknown
	}
	switch len(p.Data[0].Values) {
	case 20:
		return ProfileDaily
	case 4:
		return ProfileHalfHourly
	}
	return ProfileUnknown
}

// ValidateDayPushIntervals checks that sorted row timestamps are exactly one
// period apart, a day for daily profiles and 30 minutes otherwise.
func ValidateDayPushIntervals(p *DayPush, profile Profile) bool {
	if p == nil || len(p.Data) < 2 {
		return true
	}
	step := 30 * time.Minute
	if profile == ProfileDaily {
		step = 24 * time.Hour
	}
	ts := make([]time.Time, 0, len(p.Data))
	for _, e := range p.Data {
		t, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			return false
		}
		ts = append(ts, t)
	}
	slices.SortFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(ts); i++ {
		if ts[i].Sub(ts[i-1]) != step {
			return false
		}
	}
	return true
}
