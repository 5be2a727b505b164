//go:build integration

package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/geocoding"
	repo "github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/seed"
	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	pg "github.com/ogurasousui/employee-location-tracker/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("employee_location_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrateUp(dsn, migrationsDir))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func migrateUp(dsn, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func TestLedgerPostgresIntegration(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	employees := repo.NewEmployeeRepository(pool)
	locations := repo.NewLocationRepository(pool)
	tx := pg.NewTransactionManager(pool)

	require.NoError(t, seed.Load(ctx, employees, locations, now))
	require.NoError(t, seed.Load(ctx, employees, locations, now), "seeding twice must be a no-op")

	empSvc := employee.NewService(employees, stubClock{now: now}, tx)
	locSvc := location.NewService(locations, nil, tx)

	list, err := empSvc.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EMP001", list[0].EmployeeID)
	assert.True(t, decimal.NewFromInt(75000).Equal(list[0].Salary))

	created, err := empSvc.CreateEmployee(ctx, employee.CreateEmployeeInput{Profile: employee.Profile{
		EmployeeID: "EMP003",
		FullName:   "Alex Kim",
		Email:      "alex.kim@company.com",
		Phone:      "+1-555-0199",
		Department: "engineering",
		Position:   "Engineer",
		Salary:     decimal.RequireFromString("72000.50"),
		JoinDate:   "2024-03-01",
	}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, employee.StatusActive, created.Status)

	_, err = empSvc.CreateEmployee(ctx, employee.CreateEmployeeInput{Profile: employee.Profile{
		EmployeeID: "EMP004",
		FullName:   "Someone Else",
		Email:      "ALEX.KIM@company.com",
		Phone:      "+1-555-0100",
		Department: "sales",
		Position:   "Rep",
		JoinDate:   "2024-03-01",
	}})
	assert.ErrorIs(t, err, employee.ErrEmailAlreadyExists)

	found, err := employees.FindByEmail(ctx, "Alex.Kim@Company.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, decimal.RequireFromString("72000.50").Equal(found.Salary))

	lat, lng, acc := 51.5074, -0.1278, 20.0
	loc, err := locSvc.CreateLocation(ctx, location.CreateLocationInput{
		EmployeeID: created.ID,
		Latitude:   &lat,
		Longitude:  &lng,
		Timestamp:  "2025-06-01T13:00:00Z",
		Accuracy:   &acc,
	})
	require.NoError(t, err)
	assert.Equal(t, "51.507400, -0.127800", loc.Address)
	assert.Equal(t, location.SourceGPS, loc.Source)

	history, err := locSvc.EmployeeLocations(ctx, location.EmployeeLocationsInput{EmployeeID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, history.TotalRecords)
	assert.Equal(t, "1", history.CurrentLocation.ID)

	ranged, err := locSvc.EmployeeLocations(ctx, location.EmployeeLocationsInput{
		EmployeeID: "1",
		StartDate:  now.Add(-30 * time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ranged.TotalRecords)

	current, err := locSvc.CurrentLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, current, 3)

	_, err = empSvc.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: created.ID})
	require.NoError(t, err)
	orphaned, err := locSvc.EmployeeLocations(ctx, location.EmployeeLocationsInput{EmployeeID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, orphaned.TotalRecords)

	_, err = locSvc.DeleteLocation(ctx, location.DeleteLocationInput{EmployeeID: "2", LocationID: "1"})
	assert.ErrorIs(t, err, location.ErrLocationNotFound)

	count, err := locSvc.DeleteEmployeeLocations(ctx, location.DeleteEmployeeLocationsInput{EmployeeID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = locSvc.DeleteEmployeeLocations(ctx, location.DeleteEmployeeLocationsInput{EmployeeID: "1"})
	assert.ErrorIs(t, err, location.ErrNoLocationsForEmployee)
}

type countingGeocoder struct {
	calls int
}

func (g *countingGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	g.calls++
	return "London, England, United Kingdom", nil
}

func TestRedisGeocodeCacheIntegration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	cache := geocoding.NewRedisCache(client)
	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	upstream := &countingGeocoder{}
	g := geocoding.NewCachedGeocoder(upstream, cache, time.Minute, nil, nil)
	for range 2 {
		address, err := g.ReverseGeocode(ctx, 51.5074, -0.1278)
		require.NoError(t, err)
		assert.Equal(t, "London, England, United Kingdom", address)
	}
	assert.Equal(t, 1, upstream.calls)

	ttl, err := client.TTL(ctx, "geocode:"+geocoding.Key(51.5074, -0.1278)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
