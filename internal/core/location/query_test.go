package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00+09:00", time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00.5Z", time.Date(2025, 1, 2, 10, 0, 0, 500000000, time.UTC)},
		{"2025-01-02T10:00:00.000Z", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00.25", time.Date(2025, 1, 2, 10, 0, 0, 250000000, time.UTC)},
		{"2025-01-02T10:00", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{" 2025-01-02T10:00:00Z ", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got, err := ParseTimestamp(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.True(t, tc.want.Equal(got), "%s: want %v got %v", tc.raw, tc.want, got)
		assert.Equal(t, time.UTC, got.Location(), tc.raw)
	}

	for _, raw := range []string{"", "02/01/2025", "yesterday", "2025-13-01"} {
		_, err := ParseTimestamp(raw)
		assert.Error(t, err, raw)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	locs := []*Location{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, Truncate(locs, 2), 2)
	assert.Len(t, Truncate(locs, 0), 3)
	assert.Len(t, Truncate(locs, -1), 3)
	assert.Len(t, Truncate(locs, 10), 3)
}

func TestCriteriaMatchesInclusiveBounds(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	c := Criteria{EmployeeID: "1", From: &from, To: &to}

	assert.True(t, c.Matches(&Location{EmployeeID: "1", Timestamp: from}))
	assert.True(t, c.Matches(&Location{EmployeeID: "1", Timestamp: to}))
	assert.False(t, c.Matches(&Location{EmployeeID: "1", Timestamp: to.Add(time.Nanosecond)}))
	assert.False(t, c.Matches(&Location{EmployeeID: "2", Timestamp: from}))
}

func TestFallbackAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "40.712800, -74.006000", FallbackAddress(40.7128, -74.006))
	assert.Equal(t, "0.000000, 0.000000", FallbackAddress(0, 0))
}
