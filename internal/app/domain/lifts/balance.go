package lifts

import (
	"math"
	"sort"
)

// BuildReport computes the structural balance report from a user's attempts.
// Only the latest attempt per reference lift is used. The base lift is the
// recorded reference lift with the highest reference load; every other
// lift's expected 1RM is the base 1RM scaled by reference load ratio.
func BuildReport(refs []ReferenceLift, attempts []BalancedLift) BalanceReport {
	refByID := make(map[int64]ReferenceLift, len(refs))
	for _, r := range refs {
		refByID[r.ID] = r
	}

	latest := make(map[int64]BalancedLift)
	for _, a := range attempts {
		if _, ok := refByID[a.ReferenceLiftID]; !ok {
			continue
		}
		cur, ok := latest[a.ReferenceLiftID]
		if !ok || a.CreatedAt.After(cur.CreatedAt) || (a.CreatedAt.Equal(cur.CreatedAt) && a.ID > cur.ID) {
			latest[a.ReferenceLiftID] = a
		}
	}

	report := BalanceReport{Entries: []BalanceEntry{}}
	if len(latest) == 0 {
		return report
	}

	var base ReferenceLift
	for id := range latest {
		r := refByID[id]
		if r.ReferenceLoad > base.ReferenceLoad || (r.ReferenceLoad == base.ReferenceLoad && r.ID < base.ID) {
			base = r
		}
	}
	baseAttempt := latest[base.ID]
	base1RM := EstimatedOneRepMax(ToKG(baseAttempt.Load, baseAttempt.LoadUnit), baseAttempt.Reps)

	report.BaseLiftID = base.ID
	report.BaseLift = base.Name

	for id, a := range latest {
		r := refByID[id]
		est := EstimatedOneRepMax(ToKG(a.Load, a.LoadUnit), a.Reps)
		expected := base1RM * r.ReferenceLoad / base.ReferenceLoad
		deviation := 0.0
		if expected > 0 {
			deviation = (est - expected) / expected * 100
		}
		report.Entries = append(report.Entries, BalanceEntry{
			ReferenceLiftID: id,
			Name:            r.Name,
			ReferenceLoad:   r.ReferenceLoad,
			Estimated1RMKG:  round(est, 1),
			Expected1RMKG:   round(expected, 1),
			DeviationPct:    round(deviation, 1),
			RecordedAt:      a.CreatedAt,
			IsBase:          id == base.ID,
		})
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		if report.Entries[i].ReferenceLoad != report.Entries[j].ReferenceLoad {
			return report.Entries[i].ReferenceLoad > report.Entries[j].ReferenceLoad
		}
		return report.Entries[i].ReferenceLiftID < report.Entries[j].ReferenceLiftID
	})
	return report
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
