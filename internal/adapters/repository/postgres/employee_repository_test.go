package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
)

var employeeColumnNames = []string{"id", "employee_id", "full_name", "email", "phone", "department", "position", "salary", "join_date", "status", "created_at", "updated_at"}

type stubRow struct {
	scanFn func(dest ...interface{}) error
}

func (s stubRow) Scan(dest ...interface{}) error {
	return s.scanFn(dest...)
}

func TestScanEmployee_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	_, err := scanEmployee(row)
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestTranslateEmployeePgError(t *testing.T) {
	t.Parallel()

	codeErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: employeeIDUniqueConstraint}
	if !errors.Is(translateEmployeePgError(codeErr), employee.ErrEmployeeIDAlreadyExists) {
		t.Fatalf("expected employee id unique violation to map to ErrEmployeeIDAlreadyExists")
	}

	emailErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: employeeEmailConstraint}
	if !errors.Is(translateEmployeePgError(emailErr), employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected email unique violation to map to ErrEmailAlreadyExists")
	}

	checkErr := &pgconn.PgError{Code: checkViolationCode}
	if !errors.Is(translateEmployeePgError(checkErr), employee.ErrInvalidStatus) {
		t.Fatalf("expected check violation to map to ErrInvalidStatus")
	}

	other := errors.New("other")
	if translateEmployeePgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestEmployeeRepository_Create(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	joined := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO employees`)).
		WithArgs("", "EMP003", "Alex Kim", "alex.kim@company.com", "+1-555-0199", "engineering", "Engineer", pgxmock.AnyArg(), joined, "active", now, now).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).
			AddRow("generated-id", "EMP003", "Alex Kim", "alex.kim@company.com", "+1-555-0199", "engineering", "Engineer", decimal.NewFromInt(72000), joined, "active", now, now))

	created, err := repo.Create(context.Background(), &employee.Employee{
		EmployeeID: "EMP003",
		FullName:   "Alex Kim",
		Email:      "alex.kim@company.com",
		Phone:      "+1-555-0199",
		Department: "engineering",
		Position:   "Engineer",
		Salary:     decimal.NewFromInt(72000),
		JoinDate:   joined,
		Status:     employee.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if created.ID != "generated-id" {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if !created.Salary.Equal(decimal.NewFromInt(72000)) {
		t.Fatalf("unexpected salary %s", created.Salary)
	}
	if !created.JoinDate.Equal(joined) {
		t.Fatalf("unexpected join date %v", created.JoinDate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_CreateDuplicateEmail(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO employees`)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: employeeEmailConstraint})

	_, err = repo.Create(context.Background(), &employee.Employee{EmployeeID: "EMP009", Email: "dup@company.com"})
	if !errors.Is(err, employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestEmployeeRepository_ListOrdersBySequence(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()
	joined := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY seq`).
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).
			AddRow("1", "EMP001", "John Doe", "john.doe@company.com", "+1-555-0123", "engineering", "Software Engineer", decimal.NewFromInt(75000), joined, "active", now, now).
			AddRow("2", "EMP002", "Jane Smith", "jane.smith@company.com", "+1-555-0124", "marketing", "Marketing Manager", decimal.NewFromInt(65000), joined, "on-leave", now, now))

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(list))
	}
	if list[0].EmployeeID != "EMP001" || list[1].Status != employee.StatusOnLeave {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_FindByEmailNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE lower(email) = lower($1)`)).
		WithArgs("nobody@company.com").
		WillReturnRows(pgxmock.NewRows(employeeColumnNames))

	_, err = repo.FindByEmail(context.Background(), "nobody@company.com")
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestEmployeeRepository_DeleteReturnsRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM employees WHERE id = $1`)).
		WithArgs("1").
		WillReturnRows(pgxmock.NewRows(employeeColumnNames).
			AddRow("1", "EMP001", "John Doe", "john.doe@company.com", "+1-555-0123", "engineering", "Software Engineer", decimal.NewFromInt(75000), now, "active", now, now))

	deleted, err := repo.Delete(context.Background(), "1")
	if err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if deleted.FullName != "John Doe" {
		t.Fatalf("unexpected deleted record %+v", deleted)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM employees WHERE id = $1`)).
		WithArgs("404").
		WillReturnRows(pgxmock.NewRows(employeeColumnNames))
	if _, err := repo.Delete(context.Background(), "404"); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}
