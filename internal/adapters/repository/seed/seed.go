// Package seed はデモ用の初期データを投入します。
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
)

// Employees はデモ用の社員を返します。
func Employees(now time.Time) []*employee.Employee {
	return []*employee.Employee{
		{
			ID:         "1",
			EmployeeID: "EMP001",
			FullName:   "John Doe",
			Email:      "john.doe@company.com",
			Phone:      "+1234567890",
			Department: "engineering",
			Position:   "Software Engineer",
			Salary:     decimal.NewFromInt(75000),
			JoinDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Status:     employee.StatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		{
			ID:         "2",
			EmployeeID: "EMP002",
			FullName:   "Jane Smith",
			Email:      "jane.smith@company.com",
			Phone:      "+1234567891",
			Department: "marketing",
			Position:   "Marketing Manager",
			Salary:     decimal.NewFromInt(65000),
			JoinDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Status:     employee.StatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// Locations はデモ用の測位記録を返します。3 件目は now の 1 時間前です。
func Locations(now time.Time) []*location.Location {
	return []*location.Location{
		{
			ID:         "1",
			EmployeeID: "1",
			Latitude:   40.7128,
			Longitude:  -74.0060,
			Address:    "New York, NY, USA",
			Timestamp:  now.UTC(),
			Accuracy:   10,
			Source:     location.SourceGPS,
		},
		{
			ID:         "2",
			EmployeeID: "2",
			Latitude:   34.0522,
			Longitude:  -118.2437,
			Address:    "Los Angeles, CA, USA",
			Timestamp:  now.UTC(),
			Accuracy:   15,
			Source:     location.SourceGPS,
		},
		{
			ID:         "3",
			EmployeeID: "1",
			Latitude:   40.7589,
			Longitude:  -73.9851,
			Address:    "Times Square, New York, NY, USA",
			Timestamp:  now.Add(-time.Hour).UTC(),
			Accuracy:   8,
			Source:     location.SourceGPS,
		},
	}
}

// Load はデモデータを投入します。デモ社員が既に存在する場合は何もしません。
func Load(ctx context.Context, employees employee.Repository, locations location.Repository, now time.Time) error {
	demo := Employees(now)
	if _, err := employees.FindByEmployeeID(ctx, demo[0].EmployeeID); err == nil {
		return nil
	} else if !errors.Is(err, employee.ErrEmployeeNotFound) {
		return fmt.Errorf("seed: lookup %s: %w", demo[0].EmployeeID, err)
	}

	for _, e := range demo {
		if _, err := employees.Create(ctx, e); err != nil {
			return fmt.Errorf("seed: employee %s: %w", e.EmployeeID, err)
		}
	}
	for _, loc := range Locations(now) {
		if _, err := locations.Create(ctx, loc); err != nil {
			return fmt.Errorf("seed: location %s: %w", loc.ID, err)
		}
	}
	return nil
}
