// Package scoring turns free-text workout results into sortable keys and
// orders them into a leaderboard. Everything here is pure: no I/O, no
// shared state, safe to call from any number of request goroutines.
package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// H:MM:SS or M:SS. The leftmost unit takes 1-2 digits, the rest exactly 2.
	timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	// A leading decimal number; anything after it ("kg", "reps") is ignored.
	numberPrefix = regexp.MustCompile(`^(\d+\.?\d*)`)
)

// ParseNumericKey converts a raw result string into its ranking key.
// Times become total seconds ("12:45" -> 765, "1:23:45" -> 5025), other
// values use their leading number ("150 reps" -> 150). The second return
// is false when the value has no numeric meaning ("DNF", "", "???");
// such results are unranked and sort last.
//
// Time components are not range checked, so "99:99:99" is accepted.
func ParseNumericKey(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)

	if m := timePattern.FindStringSubmatch(s); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			third, _ := strconv.Atoi(m[3])
			return float64(first*3600 + second*60 + third), true
		}
		return float64(first*60 + second), true
	}

	if m := numberPrefix.FindString(s); m != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	return 0, false
}

// NumericKey is ParseNumericKey in the nullable form used for storage.
func NumericKey(raw string) *float64 {
	v, ok := ParseNumericKey(raw)
	if !ok {
		return nil
	}
	return &v
}

// SumRounds adds up per-round values. It reports false for an empty
// list, when any round is negative, NaN or infinite, or when the sum
// itself overflows to infinity; the caller turns that into a validation
// error.
func SumRounds(rounds []float64) (float64, bool) {
	if len(rounds) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range rounds {
		if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			return 0, false
		}
		sum += r
	}
	if math.IsInf(sum, 0) {
		return 0, false
	}
	return sum, true
}

// FormatRoundSum renders a round sum as the persisted result value. The
// shortest decimal form is used, so whole sums print without a fraction
// and ParseNumericKey(FormatRoundSum(x)) == x.
func FormatRoundSum(sum float64) string {
	return strconv.FormatFloat(sum, 'f', -1, 64)
}

// RoundsValue validates rounds and returns the persisted value and key.
func RoundsValue(rounds []float64) (value string, key *float64, ok bool) {
	sum, ok := SumRounds(rounds)
	if !ok {
		return "", nil, false
	}
	value = FormatRoundSum(sum)
	return value, NumericKey(value), true
}
