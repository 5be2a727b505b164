package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	pgdb "github.com/ogurasousui/employee-location-tracker/internal/platform/db/postgres"
)

const locationColumns = `id, employee_id, latitude, longitude, address, recorded_at, accuracy, source`

// LocationRepository は PostgreSQL を利用した測位記録の永続化実装です。
type LocationRepository struct {
	pool pgdb.Queryer
}

// NewLocationRepository は LocationRepository を生成します。
func NewLocationRepository(pool pgdb.Queryer) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// Create は測位記録を追加します。
func (r *LocationRepository) Create(ctx context.Context, loc *location.Location) (*location.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO locations (id, employee_id, latitude, longitude, address, recorded_at, accuracy, source)
        VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+locationColumns,
		loc.ID,
		loc.EmployeeID,
		loc.Latitude,
		loc.Longitude,
		loc.Address,
		loc.Timestamp,
		loc.Accuracy,
		string(loc.Source),
	)

	created, err := scanLocation(row)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Find は条件に合致する記録を挿入順で取得します。
func (r *LocationRepository) Find(ctx context.Context, criteria location.Criteria) ([]*location.Location, error) {
	args := make([]any, 0, 3)
	conditions := make([]string, 0, 3)

	if criteria.EmployeeID != "" {
		args = append(args, criteria.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if criteria.From != nil {
		args = append(args, *criteria.From)
		conditions = append(conditions, "recorded_at >= $"+strconv.Itoa(len(args)))
	}
	if criteria.To != nil {
		args = append(args, *criteria.To)
		conditions = append(conditions, "recorded_at <= $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `
        SELECT ` + locationColumns + `
          FROM locations` + whereClause + `
         ORDER BY seq
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]*location.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locations, nil
}

// DeleteOne は社員 ID と記録 ID が一致する記録を削除し、削除したレコードを返します。
func (r *LocationRepository) DeleteOne(ctx context.Context, employeeID, locationID string) (*location.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        DELETE FROM locations
         WHERE id = $1 AND employee_id = $2
        RETURNING `+locationColumns, locationID, employeeID)

	return scanLocation(row)
}

// DeleteByEmployee は社員の記録をすべて削除し件数を返します。
func (r *LocationRepository) DeleteByEmployee(ctx context.Context, employeeID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM locations WHERE employee_id = $1`, employeeID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanLocation(row pgx.Row) (*location.Location, error) {
	var (
		loc    location.Location
		source string
	)

	if err := row.Scan(
		&loc.ID,
		&loc.EmployeeID,
		&loc.Latitude,
		&loc.Longitude,
		&loc.Address,
		&loc.Timestamp,
		&loc.Accuracy,
		&source,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, location.ErrLocationNotFound
		}
		return nil, err
	}

	loc.Timestamp = loc.Timestamp.UTC()
	loc.Source = location.Source(source)
	return &loc, nil
}
