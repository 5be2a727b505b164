package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
)

type employeeRequest struct {
	EmployeeID string          `json:"employeeId"`
	FullName   string          `json:"fullName"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Department string          `json:"department"`
	Position   string          `json:"position"`
	Salary     decimal.Decimal `json:"salary"`
	JoinDate   string          `json:"joinDate"`
	Status     string          `json:"status"`
}

func (r employeeRequest) profile() employee.Profile {
	return employee.Profile{
		EmployeeID: r.EmployeeID,
		FullName:   r.FullName,
		Email:      r.Email,
		Phone:      r.Phone,
		Department: r.Department,
		Position:   r.Position,
		Salary:     r.Salary,
		JoinDate:   r.JoinDate,
		Status:     employee.Status(r.Status),
	}
}

type employeeResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	Salary     float64   `json:"salary"`
	JoinDate   string    `json:"joinDate"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		Phone:      e.Phone,
		Department: e.Department,
		Position:   e.Position,
		Salary:     e.Salary.InexactFloat64(),
		JoinDate:   e.JoinDate.Format(employee.JoinDateLayout),
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt.UTC(),
		UpdatedAt:  e.UpdatedAt.UTC(),
	}
}

func toEmployeeResponses(list []*employee.Employee) []employeeResponse {
	out := make([]employeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResponse(e))
	}
	return out
}

type employeeWithLocationResponse struct {
	employeeResponse
	CurrentLocation *locationResponse  `json:"currentLocation"`
	LocationHistory []locationResponse `json:"locationHistory"`
}

type locationRequest struct {
	EmployeeID string   `json:"employeeId"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Address    string   `json:"address"`
	Timestamp  string   `json:"timestamp"`
	Accuracy   *float64 `json:"accuracy"`
	Source     string   `json:"source"`
}

func (r locationRequest) input() location.CreateLocationInput {
	return location.CreateLocationInput{
		EmployeeID: r.EmployeeID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Address:    r.Address,
		Timestamp:  r.Timestamp,
		Accuracy:   r.Accuracy,
		Source:     location.Source(r.Source),
	}
}

type locationResponse struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employeeId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address"`
	Timestamp  string  `json:"timestamp"`
	Accuracy   float64 `json:"accuracy"`
	Source     string  `json:"source"`
}

// 時刻は受信時の表記ではなく UTC の RFC 3339 で返します。
func toLocationResponse(l *location.Location) locationResponse {
	return locationResponse{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		Address:    l.Address,
		Timestamp:  l.Timestamp.UTC().Format(time.RFC3339Nano),
		Accuracy:   l.Accuracy,
		Source:     string(l.Source),
	}
}

func toLocationResponses(list []*location.Location) []locationResponse {
	out := make([]locationResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toLocationResponse(l))
	}
	return out
}

func toLocationPtr(l *location.Location) *locationResponse {
	if l == nil {
		return nil
	}
	resp := toLocationResponse(l)
	return &resp
}

type historyResponse struct {
	EmployeeID      string             `json:"employeeId"`
	CurrentLocation *locationResponse  `json:"currentLocation"`
	LocationHistory []locationResponse `json:"locationHistory"`
	TotalRecords    int                `json:"totalRecords"`
	Remaining       int                `json:"remaining"` // 件数制限で省いた件数
}

func toHistoryResponse(h *location.EmployeeHistory) historyResponse {
	return historyResponse{
		EmployeeID:      h.EmployeeID,
		CurrentLocation: toLocationPtr(h.CurrentLocation),
		LocationHistory: toLocationResponses(h.LocationHistory),
		TotalRecords:    h.TotalRecords,
		Remaining:       h.Remaining(),
	}
}

type deletedCountResponse struct {
	DeletedCount int    `json:"deletedCount"`
	EmployeeID   string `json:"employeeId"`
}
