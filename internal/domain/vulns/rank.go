package vulns

import "sort"

// rankOutside is the position of any value not in the closed set.
const rankOutside = 100

var ranks = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityUnknown:  4,
}

// Rank returns the sort position of s, lower is more severe.
func Rank(s Severity) int {
	if r, ok := ranks[s]; ok {
		return r
	}
	return rankOutside
}

// SortBySeverity returns a severity-ordered copy of in. Records of equal
// severity keep their input order.
func SortBySeverity(in []Record) []Record {
	out := make([]Record, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i].Severity) < Rank(out[j].Severity)
	})
	return out
}

// Top returns at most n records from the head of in.
func Top(in []Record, n int) []Record {
	if n < 0 {
		n = 0
	}
	if len(in) <= n {
		return in
	}
	return in[:n]
}
