package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
)

// EmployeeHandler は社員ディレクトリの HTTP ハンドラです。
type EmployeeHandler struct {
	employees employee.UseCase
	locations location.UseCase
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(employees employee.UseCase, locations location.UseCase, logger *zap.Logger, m *metrics.Metrics) *EmployeeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeHandler{employees: employees, locations: locations, logger: logger, metrics: m}
}

// Routes は /employees 配下のルートを登録します。
func (h *EmployeeHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/location", h.GetWithLocation)
}

// List は社員一覧を返します。q, status, department の順に 1 つだけ適用します。
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		list []*employee.Employee
		err  error
	)
	switch {
	case strings.TrimSpace(q.Get("q")) != "":
		list, err = h.employees.SearchEmployees(r.Context(), q.Get("q"))
	case q.Get("status") != "":
		list, err = h.employees.FilterByStatus(r.Context(), employee.Status(q.Get("status")))
	case q.Get("department") != "":
		list, err = h.employees.FilterByDepartment(r.Context(), q.Get("department"))
	default:
		list, err = h.employees.ListEmployees(r.Context())
	}
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve employees")
		return
	}

	writeData(w, http.StatusOK, toEmployeeResponses(list), "Employees retrieved successfully")
}

// Create は社員を作成します。
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	created, err := h.employees.CreateEmployee(r.Context(), employee.CreateEmployeeInput{Profile: req.profile()})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to create employee")
		return
	}

	h.metrics.IncrementEmployeesCreated()
	h.logger.Info("employee created", zap.String("id", created.ID), zap.String("employee_id", created.EmployeeID))
	writeData(w, http.StatusCreated, toEmployeeResponse(created), "Employee created successfully")
}

// Get は社員を 1 件返します。
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.employees.GetEmployee(r.Context(), employee.GetEmployeeInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve employee")
		return
	}
	writeData(w, http.StatusOK, toEmployeeResponse(found), "Employee retrieved successfully")
}

// Update は社員の全項目を置き換えます。
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	updated, err := h.employees.UpdateEmployee(r.Context(), employee.UpdateEmployeeInput{
		ID:      chi.URLParam(r, "id"),
		Profile: req.profile(),
	})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to update employee")
		return
	}
	writeData(w, http.StatusOK, toEmployeeResponse(updated), "Employee updated successfully")
}

// Delete は社員を削除します。測位記録は残ります。
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.employees.DeleteEmployee(r.Context(), employee.DeleteEmployeeInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to delete employee")
		return
	}
	writeData(w, http.StatusOK, toEmployeeResponse(deleted), "Employee deleted successfully")
}

// GetWithLocation は社員と現在位置、測位履歴をまとめて返します。
func (h *EmployeeHandler) GetWithLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.employees.GetEmployee(r.Context(), employee.GetEmployeeInput{ID: id})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve employee")
		return
	}

	history, err := h.locations.EmployeeLocations(r.Context(), location.EmployeeLocationsInput{
		EmployeeID: found.ID,
		Limit:      parseLimit(r.URL.Query().Get("limit")),
	})
	if err != nil {
		fail(w, r, h.logger, err, "Failed to retrieve employee locations")
		return
	}

	writeData(w, http.StatusOK, employeeWithLocationResponse{
		employeeResponse: toEmployeeResponse(found),
		CurrentLocation:  toLocationPtr(history.CurrentLocation),
		LocationHistory:  toLocationResponses(history.LocationHistory),
	}, "Employee retrieved successfully")
}
