package sink

import (
	"cmp"
	"slices"
	"time"
)

const (
	autoconnectPeriod    = 12 * time.Hour
	autoconnectTolerance = 10 * time.Minute
)

type AutoconnectCheck struct {
	AutoconnectRecord
	Valid bool `json:"valid"`
}

type AutoconnectGroup struct {
	SerialNumber string             `json:"sn"`
	Entries      []AutoconnectCheck `json:"entries"`
}

// AnalyzeAutoconnects groups announcements by serial number, sorts each group
// by receive time (offsets taken into account) and checks that consecutive announcements are 12 hours apart,
// give or take 10 minutes. The first entry of a group and entries with an
// unreadable time are valid.
func AnalyzeAutoconnects(records []AutoconnectRecord) []AutoconnectGroup {
	idx := make(map[string]int)
	var groups []AutoconnectGroup
	for _, r := range records {
		i, ok := idx[r.SerialNumber]
		if !ok {
			i = len(groups)
			idx[r.SerialNumber] = i
			groups = append(groups, AutoconnectGroup{SerialNumber: r.SerialNumber})
		}
		groups[i].Entries = append(groups[i].Entries, AutoconnectCheck{AutoconnectRecord: r, Valid: true})
	}

	for _, g := range groups {
		at := make(map[string]time.Time, len(g.Entries))
		for _, e := range g.Entries {
			if t, err := time.Parse(time.RFC3339, e.ReceivedAt); err == nil {
				at[e.ReceivedAt] = t
			}
		}
		// readable times in time order, unreadable ones last
		slices.SortStableFunc(g.Entries, func(a, b AutoconnectCheck) int {
			ta, oka := at[a.ReceivedAt]
			tb, okb := at[b.ReceivedAt]
			switch {
			case oka && okb:
				return ta.Compare(tb)
			case oka:
				return -1
			case okb:
				return 1
			}
			return cmp.Compare(a.ReceivedAt, b.ReceivedAt)
		})
		var prev time.Time
		for i := range g.Entries {
			cur, ok := at[g.Entries[i].ReceivedAt]
			if !ok {
				prev = time.Time{}
				continue
			}
			if !prev.IsZero() {
				d := cur.Sub(prev)
				g.Entries[i].Valid = d >= autoconnectPeriod-autoconnectTolerance && d <= autoconnectPeriod+autoconnectTolerance
			}
			prev = cur
		}
	}
	return groups
}
