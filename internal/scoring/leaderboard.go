package scoring

import (
	"sort"

	"github.com/iliyamo/wod-leaderboard/internal/model"
)

// Standing is a result at its leaderboard position. Position is 1-based.
type Standing struct {
	Position int `json:"position"`
	model.Result
}

// Rank orders results for display. Results with a numeric key come first,
// ascending or descending per dir; results without one (DNF, DNS, text)
// always follow, whatever the direction. Equal keys fall back to
// submission time, then id, so the order is fully deterministic.
// The input slice is left untouched.
func Rank(results []model.Result, dir model.SortDirection) []Standing {
	sorted := make([]model.Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ranksBefore(&sorted[i], &sorted[j], dir)
	})

	out := make([]Standing, len(sorted))
	for i := range sorted {
		out[i] = Standing{Position: i + 1, Result: sorted[i]}
	}
	return out
}

func ranksBefore(a, b *model.Result, dir model.SortDirection) bool {
	switch {
	case a.ResultNumeric == nil && b.ResultNumeric != nil:
		return false
	case a.ResultNumeric != nil && b.ResultNumeric == nil:
		return true
	case a.ResultNumeric != nil && *a.ResultNumeric != *b.ResultNumeric:
		if dir == model.SortAsc {
			return *a.ResultNumeric < *b.ResultNumeric
		}
		return *a.ResultNumeric > *b.ResultNumeric
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Filter keeps the standings matching keep and renumbers them, so a
// filtered board (e.g. women only) starts again at position 1.
func Filter(standings []Standing, keep func(model.Result) bool) []Standing {
	out := make([]Standing, 0, len(standings))
	for _, s := range standings {
		if keep(s.Result) {
			s.Position = len(out) + 1
			out = append(out, s)
		}
	}
	return out
}

// ByGender is a Filter predicate for a single gender.
func ByGender(g model.Gender) func(model.Result) bool {
	return func(r model.Result) bool { return r.Gender == g }
}

// ByIDs is a Filter predicate keeping results whose id is in ids.
func ByIDs(ids map[string]bool) func(model.Result) bool {
	return func(r model.Result) bool { return ids[r.ID] }
}
