package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/memory"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/seed"
	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
)

type stubGeocoder struct {
	address string
	err     error
}

func (g stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return g.address, g.err
}

type response struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

type testAPI struct {
	handler http.Handler
	now     time.Time
}

func newTestAPI(t *testing.T, geocoder location.Geocoder) *testAPI {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	employees := memory.NewEmployeeRepository()
	locations := memory.NewLocationRepository()
	require.NoError(t, seed.Load(context.Background(), employees, locations, now))

	reg := prometheus.NewRegistry()
	h := NewRouter(Dependencies{
		Employees: employee.NewService(employees, nil, nil),
		Locations: location.NewService(locations, geocoder, nil),
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
	})
	return &testAPI{handler: h, now: now}
}

func (a *testAPI) do(t *testing.T, method, target string, body any) (int, response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func decodeData[T any](t *testing.T, resp response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func newEmployeeBody() map[string]any {
	return map[string]any{
		"employeeId": "EMP003",
		"fullName":   "Alex Kim",
		"email":      "alex.kim@company.com",
		"phone":      "+1-555-0199",
		"department": "engineering",
		"position":   "Engineer",
		"salary":     72000,
		"joinDate":   "2024-03-01",
	}
}

func TestEmployees_ListSeeded(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodGet, "/employees", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Employees retrieved successfully", resp.Message)

	list := decodeData[[]employeeResponse](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "EMP001", list[0].EmployeeID)
	assert.Equal(t, 75000.0, list[0].Salary)
	assert.Equal(t, "2024-01-15", list[0].JoinDate)
}

func TestEmployees_CreateAndConflicts(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodPost, "/employees", newEmployeeBody())
	require.Equal(t, http.StatusCreated, code)
	created := decodeData[employeeResponse](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "active", created.Status)
	assert.Equal(t, 72000.0, created.Salary)

	dupID := newEmployeeBody()
	dupID["email"] = "other@company.com"
	code, resp = api.do(t, http.MethodPost, "/employees", dupID)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Employee ID already exists", resp.Error)
	assert.Empty(t, resp.Data)

	dupEmail := newEmployeeBody()
	dupEmail["employeeId"] = "EMP004"
	dupEmail["email"] = "JOHN.DOE@company.com"
	code, resp = api.do(t, http.MethodPost, "/employees", dupEmail)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already exists", resp.Error)

	_, resp = api.do(t, http.MethodGet, "/employees", nil)
	assert.Len(t, decodeData[[]employeeResponse](t, resp), 3)
}

func TestEmployees_CreateValidationDetails(t *testing.T) {
	api := newTestAPI(t, nil)

	body := newEmployeeBody()
	body["fullName"] = "A"
	body["email"] = "not-an-email"
	code, resp := api.do(t, http.MethodPost, "/employees", body)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", resp.Error)

	fields := map[string]string{}
	for _, d := range resp.Details {
		fields[d.Field] = d.Message
	}
	assert.Contains(t, fields, "fullName")
	assert.Contains(t, fields, "email")
}

func TestEmployees_InvalidJSON(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployees_GetUpdateDelete(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodGet, "/employees/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "John Doe", decodeData[employeeResponse](t, resp).FullName)

	code, resp = api.do(t, http.MethodGet, "/employees/404", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Employee not found", resp.Error)

	update := newEmployeeBody()
	update["employeeId"] = "EMP001"
	update["email"] = "john.doe@company.com"
	update["status"] = "on-leave"
	code, resp = api.do(t, http.MethodPut, "/employees/1", update)
	require.Equal(t, http.StatusOK, code)
	updated := decodeData[employeeResponse](t, resp)
	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, "on-leave", updated.Status)
	assert.Equal(t, "Alex Kim", updated.FullName)

	code, _ = api.do(t, http.MethodPut, "/employees/404", update)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = api.do(t, http.MethodDelete, "/employees/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EMP002", decodeData[employeeResponse](t, resp).EmployeeID)

	code, _ = api.do(t, http.MethodDelete, "/employees/2", nil)
	assert.Equal(t, http.StatusNotFound, code)

	// 社員を削除しても測位履歴は残る。
	code, resp = api.do(t, http.MethodGet, "/locations/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decodeData[historyResponse](t, resp).TotalRecords)
}

func TestEmployees_SearchAndFilter(t *testing.T) {
	api := newTestAPI(t, nil)

	_, resp := api.do(t, http.MethodGet, "/employees?q=MARKET", nil)
	list := decodeData[[]employeeResponse](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "EMP002", list[0].EmployeeID)

	_, resp = api.do(t, http.MethodGet, "/employees?department=engineering", nil)
	assert.Len(t, decodeData[[]employeeResponse](t, resp), 1)

	_, resp = api.do(t, http.MethodGet, "/employees?status=inactive", nil)
	assert.Empty(t, decodeData[[]employeeResponse](t, resp))

	code, _ := api.do(t, http.MethodGet, "/employees?status=retired", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEmployees_WithLocation(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodGet, "/employees/1/location?limit=1", nil)
	require.Equal(t, http.StatusOK, code)

	got := decodeData[employeeWithLocationResponse](t, resp)
	assert.Equal(t, "EMP001", got.EmployeeID)
	require.NotNil(t, got.CurrentLocation)
	assert.Equal(t, "New York, NY, USA", got.CurrentLocation.Address)
	assert.Len(t, got.LocationHistory, 1)
}

func TestLocations_ListSortedAndLimited(t *testing.T) {
	api := newTestAPI(t, nil)

	_, resp := api.do(t, http.MethodGet, "/locations?employeeId=1", nil)
	list := decodeData[[]locationResponse](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "3", list[1].ID)

	for _, raw := range []string{"abc", "0", "-3"} {
		_, resp = api.do(t, http.MethodGet, "/locations?limit="+raw, nil)
		assert.Len(t, decodeData[[]locationResponse](t, resp), 3, "limit=%s", raw)
	}

	_, resp = api.do(t, http.MethodGet, "/locations?limit=1", nil)
	assert.Len(t, decodeData[[]locationResponse](t, resp), 1)
}

func TestLocations_Current(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodGet, "/locations?current=true", nil)
	require.Equal(t, http.StatusOK, code)

	list := decodeData[[]locationResponse](t, resp)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}

func TestLocations_CreateWithGeocodeFallback(t *testing.T) {
	api := newTestAPI(t, stubGeocoder{err: errors.New("upstream down")})

	code, resp := api.do(t, http.MethodPost, "/locations", map[string]any{
		"employeeId": "2",
		"latitude":   34.0522,
		"longitude":  -118.2437,
		"timestamp":  "2025-06-01T13:00:00Z",
		"accuracy":   15,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Location recorded successfully", resp.Message)

	created := decodeData[locationResponse](t, resp)
	assert.Equal(t, "34.052200, -118.243700", created.Address)
	assert.Equal(t, "gps", created.Source)
	assert.Equal(t, "2025-06-01T13:00:00Z", created.Timestamp)
}

func TestLocations_CreateNormalizesTimestampToUTC(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodPost, "/locations", map[string]any{
		"employeeId": "2",
		"latitude":   35.6812,
		"longitude":  139.7671,
		"address":    "Tokyo Station",
		"timestamp":  "2025-06-01T13:00:00.000+09:00",
		"accuracy":   8,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "2025-06-01T04:00:00Z", decodeData[locationResponse](t, resp).Timestamp)
}

func TestLocations_CreateValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodPost, "/locations", map[string]any{
		"employeeId": "1",
		"latitude":   91,
		"longitude":  0,
		"timestamp":  "yesterday",
		"accuracy":   5,
	})
	require.Equal(t, http.StatusBadRequest, code)

	fields := map[string]bool{}
	for _, d := range resp.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["latitude"])
	assert.True(t, fields["timestamp"])
}

func TestLocations_EmployeeHistoryWithRange(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodGet, "/locations/1?limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	hist := decodeData[historyResponse](t, resp)
	assert.Equal(t, 2, hist.TotalRecords)
	assert.Len(t, hist.LocationHistory, 1)
	assert.Equal(t, 1, hist.Remaining)
	require.NotNil(t, hist.CurrentLocation)
	assert.Equal(t, "1", hist.CurrentLocation.ID)

	start := api.now.Add(-30 * time.Minute).Format(time.RFC3339)
	_, resp = api.do(t, http.MethodGet, "/locations/1?startDate="+start, nil)
	hist = decodeData[historyResponse](t, resp)
	assert.Equal(t, 1, hist.TotalRecords)

	_, resp = api.do(t, http.MethodGet, "/locations/unknown", nil)
	hist = decodeData[historyResponse](t, resp)
	assert.Nil(t, hist.CurrentLocation)
	assert.NotNil(t, hist.LocationHistory)
	assert.Zero(t, hist.TotalRecords)

	code, resp = api.do(t, http.MethodGet, "/locations/1?startDate=2025-02-01&endDate=2025-01-01", nil)
	require.Equal(t, http.StatusOK, code)
	hist = decodeData[historyResponse](t, resp)
	assert.Nil(t, hist.CurrentLocation)
	assert.Empty(t, hist.LocationHistory)
	assert.Zero(t, hist.TotalRecords)
	assert.Zero(t, hist.Remaining)

	code, _ = api.do(t, http.MethodGet, "/locations/1?startDate=soon", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLocations_Delete(t *testing.T) {
	api := newTestAPI(t, nil)

	code, resp := api.do(t, http.MethodDelete, "/locations/2?locationId=1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Location record not found", resp.Error)

	code, resp = api.do(t, http.MethodDelete, "/locations/1?locationId=3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Location record deleted successfully", resp.Message)
	assert.Equal(t, "3", decodeData[locationResponse](t, resp).ID)

	code, resp = api.do(t, http.MethodDelete, "/locations/1", nil)
	require.Equal(t, http.StatusOK, code)
	deleted := decodeData[deletedCountResponse](t, resp)
	assert.Equal(t, 1, deleted.DeletedCount)
	assert.Equal(t, "1", deleted.EmployeeID)

	code, resp = api.do(t, http.MethodDelete, "/locations/1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No location records found for this employee", resp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)

	code, _ := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)

	_, _ = api.do(t, http.MethodPost, "/employees", newEmployeeBody())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "elt_employees_created_total 1")
	assert.Contains(t, rec.Body.String(), `route="/employees`)
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}
