package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// GeocodeFailureFunc は逆ジオコーディングに失敗し座標表記へ切り替えたときに呼ばれます。
type GeocodeFailureFunc func(ctx context.Context, latitude, longitude float64, err error)

// Option は Service の任意設定です。
type Option func(*Service)

// WithGeocodeFailureHandler は逆ジオコーディング失敗時の通知先を設定します。
func WithGeocodeFailureHandler(fn GeocodeFailureFunc) Option {
	return func(s *Service) {
		s.onGeocodeFailure = fn
	}
}

// Service は位置情報台帳のユースケースをまとめます。
type Service struct {
	repo             Repository
	geocoder         Geocoder
	tx               TransactionManager
	onGeocodeFailure GeocodeFailureFunc
}

// UseCase は位置情報台帳の公開インターフェースです。
type UseCase interface {
	ListLocations(ctx context.Context, in ListLocationsInput) ([]*Location, error)
	CreateLocation(ctx context.Context, in CreateLocationInput) (*Location, error)
	EmployeeLocations(ctx context.Context, in EmployeeLocationsInput) (*EmployeeHistory, error)
	CurrentLocations(ctx context.Context) ([]*Location, error)
	DeleteLocation(ctx context.Context, in DeleteLocationInput) (*Location, error)
	DeleteEmployeeLocations(ctx context.Context, in DeleteEmployeeLocationsInput) (int, error)
}

// NewService は Service を生成します。geocoder が nil の場合は常に座標表記を住所とします。
func NewService(repo Repository, geocoder Geocoder, tx TransactionManager, opts ...Option) *Service {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, geocoder: geocoder, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListLocationsInput は一覧取得時の入力です。Limit が 0 以下の場合は件数制限しません。
type ListLocationsInput struct {
	EmployeeID string
	Limit      int
}

// CreateLocationInput は測位記録作成時の入力です。
type CreateLocationInput struct {
	EmployeeID string   `label:"employeeId" validate:"required"`
	Latitude   *float64 `label:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64 `label:"longitude" validate:"required,gte=-180,lte=180"`
	Address    string   `label:"address" validate:"-"`
	// Timestamp は呼び出し側が指定する ISO-8601 の測位時刻です。
	Timestamp string   `label:"timestamp" validate:"required"`
	Accuracy  *float64 `label:"accuracy" validate:"required,gte=0"`
	// Source が空の場合は gps として扱います。
	Source Source `label:"source" validate:"omitempty,oneof=gps manual wifi"`
}

// EmployeeLocationsInput は社員ごとの履歴取得時の入力です。
type EmployeeLocationsInput struct {
	EmployeeID string
	Limit      int
	StartDate  string
	EndDate    string
}

// DeleteLocationInput は測位記録 1 件の削除入力です。
type DeleteLocationInput struct {
	EmployeeID string
	LocationID string
}

// DeleteEmployeeLocationsInput は社員の測位記録全件の削除入力です。
type DeleteEmployeeLocationsInput struct {
	EmployeeID string
}

// ListLocations は記録を新しい順に返します。
func (s *Service) ListLocations(ctx context.Context, in ListLocationsInput) ([]*Location, error) {
	var locs []*Location
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.Find(txCtx, Criteria{EmployeeID: strings.TrimSpace(in.EmployeeID)})
		if err != nil {
			return err
		}
		locs = found
		return nil
	}); err != nil {
		return nil, err
	}

	SortNewestFirst(locs)
	return Truncate(locs, in.Limit), nil
}

// CreateLocation は測位記録を追加します。
// 住所が無い場合は逆ジオコーディングを行い、失敗時は座標表記にフォールバックします。
func (s *Service) CreateLocation(ctx context.Context, in CreateLocationInput) (*Location, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.Address = strings.TrimSpace(in.Address)
	in.Timestamp = strings.TrimSpace(in.Timestamp)

	errs := []error{validation.Struct(in)}
	ts, tsErr := ParseTimestamp(in.Timestamp)
	if in.Timestamp != "" && tsErr != nil {
		errs = append(errs, validation.NewError("timestamp", "must be an ISO-8601 timestamp"))
	}
	if err := validation.Merge(errs...); err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = SourceGPS
	}

	loc := &Location{
		EmployeeID: in.EmployeeID,
		Latitude:   *in.Latitude,
		Longitude:  *in.Longitude,
		Address:    in.Address,
		Timestamp:  ts,
		Accuracy:   *in.Accuracy,
		Source:     source,
	}
	if loc.Address == "" {
		loc.Address = s.resolveAddress(ctx, loc.Latitude, loc.Longitude)
	}

	var created *Location
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, loc)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// EmployeeLocations は社員の記録を 期間絞り込み → 降順ソート → 件数制限 の順に適用して返します。
func (s *Service) EmployeeLocations(ctx context.Context, in EmployeeLocationsInput) (*EmployeeHistory, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}

	criteria, err := rangeCriteria(employeeID, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var locs []*Location
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.Find(txCtx, criteria)
		if err != nil {
			return err
		}
		locs = found
		return nil
	}); err != nil {
		return nil, err
	}

	SortNewestFirst(locs)
	total := len(locs)
	history := Truncate(locs, in.Limit)

	result := &EmployeeHistory{
		EmployeeID:      employeeID,
		LocationHistory: history,
		TotalRecords:    total,
	}
	if len(history) > 0 {
		result.CurrentLocation = history[0]
	}
	return result, nil
}

// CurrentLocations は社員ごとの最新の記録を返します。
func (s *Service) CurrentLocations(ctx context.Context) ([]*Location, error) {
	var locs []*Location
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.Find(txCtx, Criteria{})
		if err != nil {
			return err
		}
		locs = found
		return nil
	}); err != nil {
		return nil, err
	}
	return LatestPerEmployee(locs), nil
}

// DeleteLocation は社員 ID と記録 ID の両方が一致する記録を削除します。
func (s *Service) DeleteLocation(ctx context.Context, in DeleteLocationInput) (*Location, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return nil, ErrInvalidEmployeeID
	}
	if strings.TrimSpace(in.LocationID) == "" {
		return nil, ErrInvalidLocationID
	}

	var deleted *Location
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		removed, err := s.repo.DeleteOne(txCtx, in.EmployeeID, in.LocationID)
		if err != nil {
			return err
		}
		deleted = removed
		return nil
	}); err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteEmployeeLocations は社員の記録をすべて削除し件数を返します。
func (s *Service) DeleteEmployeeLocations(ctx context.Context, in DeleteEmployeeLocationsInput) (int, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return 0, ErrInvalidEmployeeID
	}

	var count int
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.DeleteByEmployee(txCtx, in.EmployeeID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoLocationsForEmployee
		}
		count = n
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) resolveAddress(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return FallbackAddress(lat, lng)
	}

	address, err := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if err == nil && strings.TrimSpace(address) == "" {
		err = fmt.Errorf("location: empty address from geocoder")
	}
	if err != nil {
		if s.onGeocodeFailure != nil {
			s.onGeocodeFailure(ctx, lat, lng, err)
		}
		return FallbackAddress(lat, lng)
	}
	return strings.TrimSpace(address)
}

func rangeCriteria(employeeID, startRaw, endRaw string) (Criteria, error) {
	criteria := Criteria{EmployeeID: employeeID}
	verr := &validation.Error{}

	if strings.TrimSpace(startRaw) != "" {
		start, err := ParseTimestamp(startRaw)
		if err != nil {
			verr.Add("startDate", "must be an ISO-8601 date or timestamp")
		} else {
			criteria.From = &start
		}
	}

	if strings.TrimSpace(endRaw) != "" {
		end, err := ParseTimestamp(endRaw)
		if err != nil {
			verr.Add("endDate", "must be an ISO-8601 date or timestamp")
		} else {
			criteria.To = &end
		}
	}

	if err := verr.OrNil(); err != nil {
		return Criteria{}, err
	}
	return criteria, nil
}
