package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
)

// LocationHandler は位置情報台帳の HTTP ハンドラです。
type LocationHandler struct {
	locations location.UseCase
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewLocationHandler は LocationHandler を生成します。
func NewLocationHandler(locations location.UseCase, logger *zap.Logger, m *metrics.Metrics) *LocationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationHandler{locations: locations, logger: logger, metrics: m}
}

// Routes は /locations 配下のルートを登録します。
func (h *LocationHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{employeeId}", h.EmployeeLocations)
	r.Delete("/{employeeId}", h.Delete)
}

// List は記録を新しい順に返します。current=true の場合は社員ごとの最新の記録のみです。
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		locs []*location.Location
		err  error
	)
	if strings.EqualFold(q.Get("current"), "true") {
		locs, err = h.locations.CurrentLocations(r.Context())
	} else {
		locs, err = h.locations.ListLocations(r.Context(), location.ListLocationsInput{
			EmployeeID: q.Get("employeeId"),
			Limit:      parseLimit(q.Get("limit")),
		})
	}
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve locations")
		return
	}

	writeData(w, http.StatusOK, toLocationResponses(locs), "Locations retrieved successfully")
}

// Create は測位記録を追加します。
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	created, err := h.locations.CreateLocation(r.Context(), req.input())
	if err != nil {
		fail(w, r, h.logger, err, "Failed to record location")
		return
	}

	h.metrics.IncrementLocationsRecorded(string(created.Source))
	writeData(w, http.StatusCreated, toLocationResponse(created), "Location recorded successfully")
}

// EmployeeLocations は社員の測位履歴を期間と件数で絞り込んで返します。
func (h *LocationHandler) EmployeeLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	history, err := h.locations.EmployeeLocations(r.Context(), location.EmployeeLocationsInput{
		EmployeeID: chi.URLParam(r, "employeeId"),
		Limit:      parseLimit(q.Get("limit")),
		StartDate:  q.Get("startDate"),
		EndDate:    q.Get("endDate"),
	})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve employee locations")
		return
	}

	writeData(w, http.StatusOK, toHistoryResponse(history), "Employee locations retrieved successfully")
}

// Delete は locationId が指定されればその 1 件を、無ければ社員の全記録を削除します。
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")

	if locationID := r.URL.Query().Get("locationId"); locationID != "" {
		deleted, err := h.locations.DeleteLocation(r.Context(), location.DeleteLocationInput{
			EmployeeID: employeeID,
			LocationID: locationID,
		})
		if err != nil {
			fail(w, r, h.logger, err, "Failed to delete location records")
			return
		}
		writeData(w, http.StatusOK, toLocationResponse(deleted), "Location record deleted successfully")
		return
	}

	count, err := h.locations.DeleteEmployeeLocations(r.Context(), location.DeleteEmployeeLocationsInput{EmployeeID: employeeID})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to delete location records")
		return
	}
	writeData(w, http.StatusOK, deletedCountResponse{DeletedCount: count, EmployeeID: employeeID}, "All location records deleted successfully")
}
