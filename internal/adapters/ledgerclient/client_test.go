package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/memory"
	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/core/tracking"
	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
)

var _ tracking.Recorder = (*Client)(nil)

func ptr(v float64) *float64 { return &v }

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second, WithHTTPClient(srv.Client()))
}

func TestCreateLocation_AgainstLedgerAPI(t *testing.T) {
	locations := memory.NewLocationRepository()
	router := handler.NewRouter(handler.Dependencies{
		Employees: employee.NewService(memory.NewEmployeeRepository(), nil, nil),
		Locations: location.NewService(locations, nil, nil),
	})
	client := newClient(t, router)

	created, err := client.CreateLocation(context.Background(), location.CreateLocationInput{
		EmployeeID: "1",
		Latitude:   ptr(40.7128),
		Longitude:  ptr(-74.006),
		Timestamp:  "2025-06-01T12:00:00Z",
		Accuracy:   ptr(10),
		Source:     location.SourceGPS,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "40.712800, -74.006000", created.Address)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), created.Timestamp)

	stored, err := locations.Find(context.Background(), location.Criteria{EmployeeID: "1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID, stored[0].ID)
}

func TestCreateLocation_ValidationError(t *testing.T) {
	router := handler.NewRouter(handler.Dependencies{
		Employees: employee.NewService(memory.NewEmployeeRepository(), nil, nil),
		Locations: location.NewService(memory.NewLocationRepository(), nil, nil),
	})
	client := newClient(t, router)

	_, err := client.CreateLocation(context.Background(), location.CreateLocationInput{
		EmployeeID: "1",
		Latitude:   ptr(120),
		Longitude:  ptr(0),
		Timestamp:  "2025-06-01T12:00:00Z",
		Accuracy:   ptr(10),
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "latitude", verr.Fields[0].Field)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestCreateLocation_ServerError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to record location"})
	}))

	_, err := client.CreateLocation(context.Background(), location.CreateLocationInput{EmployeeID: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.Status)
	assert.Equal(t, "Failed to record location", serr.Message)
}

func TestCreateLocation_NonJSONErrorBody(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := client.CreateLocation(context.Background(), location.CreateLocationInput{EmployeeID: "1"})
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), serr.Message)
}

func TestCreateLocation_EmptyData(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))

	_, err := client.CreateLocation(context.Background(), location.CreateLocationInput{EmployeeID: "1"})
	require.Error(t, err)
}
