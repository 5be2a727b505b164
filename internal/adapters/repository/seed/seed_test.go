package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/memory"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	employees := memory.NewEmployeeRepository()
	locations := memory.NewLocationRepository()

	require.NoError(t, Load(ctx, employees, locations, now))

	list, err := employees.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EMP001", list[0].EmployeeID)
	assert.Equal(t, "John Doe", list[0].FullName)
	assert.Equal(t, "75000", list[0].Salary.String())
	assert.Equal(t, "EMP002", list[1].EmployeeID)

	locs, err := locations.Find(ctx, location.Criteria{EmployeeID: "1"})
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.True(t, locs[1].Timestamp.Equal(now.Add(-time.Hour)))

	// 2 回目は何も追加しない。
	require.NoError(t, Load(ctx, employees, locations, now))
	all, err := locations.Find(ctx, location.Criteria{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
