package location

import (
	"context"
	"time"
)

// Criteria は測位記録の抽出条件です。ゼロ値の項目は条件に含めません。
type Criteria struct {
	EmployeeID string
	// From と To は両端を含む時刻範囲です。
	From *time.Time
	To   *time.Time
}

// Matches は loc が条件を満たすかを判定します。
func (c Criteria) Matches(loc *Location) bool {
	if c.EmployeeID != "" && loc.EmployeeID != c.EmployeeID {
		return false
	}
	if c.From != nil && loc.Timestamp.Before(*c.From) {
		return false
	}
	if c.To != nil && loc.Timestamp.After(*c.To) {
		return false
	}
	return true
}

// Repository は測位記録の永続化の抽象です。
// Find は条件に合致する記録を挿入順で返却します。
type Repository interface {
	Create(ctx context.Context, loc *Location) (*Location, error)
	Find(ctx context.Context, criteria Criteria) ([]*Location, error)
	DeleteOne(ctx context.Context, employeeID, locationID string) (*Location, error)
	// DeleteByEmployee は削除件数を返します。0 件でもエラーにはなりません。
	DeleteByEmployee(ctx context.Context, employeeID string) (int, error)
}

// Geocoder は座標から住所文字列を求める外部サービスの抽象です。
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}
