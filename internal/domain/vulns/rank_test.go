package vulns

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrder(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		assert.Less(t, Rank(Severities[i-1]), Rank(Severities[i]))
	}
	assert.Equal(t, 4, Rank(SeverityUnknown))
	assert.Equal(t, 100, Rank(Severity("NEGLIGIBLE")))
	assert.Greater(t, Rank(Severity("")), Rank(SeverityUnknown))
}

func TestSortBySeverityIsStable(t *testing.T) {
	in := []Record{
		{Package: "low-1", Severity: SeverityLow},
		{Package: "other", Severity: Severity("WEIRD")},
		{Package: "crit-1", Severity: SeverityCritical},
		{Package: "unknown", Severity: SeverityUnknown},
		{Package: "low-2", Severity: SeverityLow},
		{Package: "crit-2", Severity: SeverityCritical},
		{Package: "high", Severity: SeverityHigh},
		{Package: "medium", Severity: SeverityMedium},
	}

	got := SortBySeverity(in)

	var names []string
	for _, r := range got {
		names = append(names, r.Package)
	}
	assert.Equal(t, []string{"crit-1", "crit-2", "high", "medium", "low-1", "low-2", "unknown", "other"}, names)
	assert.Equal(t, "low-1", in[0].Package, "input must not be reordered")
}

func TestSortBySeverityEmpty(t *testing.T) {
	assert.Empty(t, SortBySeverity(nil))
}

func TestTop(t *testing.T) {
	var in []Record
	for i := 0; i < 50; i++ {
		in = append(in, Record{Package: fmt.Sprintf("p%d", i)})
	}
	require.Len(t, Top(in, 5), 5)
	assert.Equal(t, "p0", Top(in, 5)[0].Package)
	assert.Len(t, Top(in[:3], 5), 3)
	assert.Empty(t, Top(in, -1))
}
