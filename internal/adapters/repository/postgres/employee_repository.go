package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-location-tracker/internal/platform/db/postgres"
)

const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"

	employeeIDUniqueConstraint = "employees_employee_id_key"
	employeeEmailConstraint    = "employees_email_key"
)

const employeeColumns = `id, employee_id, full_name, email, phone, department, position, salary, join_date, status, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。ID が空の場合はデータベースで採番します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (id, employee_id, full_name, email, phone, department, position, salary, join_date, status, created_at, updated_at)
        VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+employeeColumns,
		e.ID,
		e.EmployeeID,
		e.FullName,
		e.Email,
		e.Phone,
		e.Department,
		e.Position,
		e.Salary,
		dateOnly(e.JoinDate),
		string(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員の可変項目を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET employee_id = $1,
               full_name = $2,
               email = $3,
               phone = $4,
               department = $5,
               position = $6,
               salary = $7,
               join_date = $8,
               status = $9,
               updated_at = $10
         WHERE id = $11
        RETURNING `+employeeColumns,
		e.EmployeeID,
		e.FullName,
		e.Email,
		e.Phone,
		e.Department,
		e.Position,
		e.Salary,
		dateOnly(e.JoinDate),
		string(e.Status),
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除し、削除したレコードを返します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `DELETE FROM employees WHERE id = $1 RETURNING `+employeeColumns, id)

	deleted, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return deleted, nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByEmployeeID は社員番号で検索します。
func (r *EmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*employee.Employee, error) {
	return r.findOne(ctx, `WHERE employee_id = $1`, employeeID)
}

// FindByEmail はメールアドレスで検索します。大文字小文字は区別しません。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return r.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

// List は全社員を挿入順で取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         ORDER BY seq
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func (r *EmployeeRepository) findOne(ctx context.Context, where string, arg any) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         `+where+`
         LIMIT 1
    `, arg)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e        employee.Employee
		salary   decimal.Decimal
		joinDate time.Time
		status   string
	)

	if err := row.Scan(
		&e.ID,
		&e.EmployeeID,
		&e.FullName,
		&e.Email,
		&e.Phone,
		&e.Department,
		&e.Position,
		&salary,
		&joinDate,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.Salary = salary
	e.JoinDate = dateOnly(joinDate)
	e.Status = employee.Status(status)
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			switch pgErr.ConstraintName {
			case employeeEmailConstraint:
				return employee.ErrEmailAlreadyExists
			default:
				return employee.ErrEmployeeIDAlreadyExists
			}
		case checkViolationCode:
			return employee.ErrInvalidStatus
		}
	}

	return err
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
