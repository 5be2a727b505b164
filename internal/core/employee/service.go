package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

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

// Service は社員ディレクトリのユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	ListEmployees(ctx context.Context) ([]*Employee, error)
	SearchEmployees(ctx context.Context, query string) ([]*Employee, error)
	FilterByStatus(ctx context.Context, status Status) ([]*Employee, error)
	FilterByDepartment(ctx context.Context, department string) ([]*Employee, error)
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) (*Employee, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// Profile は社員の可変項目一式です。作成と全項目更新で共通に使います。
type Profile struct {
	EmployeeID string          `label:"employeeId" validate:"required"`
	FullName   string          `label:"fullName" validate:"required,min=2"`
	Email      string          `label:"email" validate:"required,email"`
	Phone      string          `label:"phone" validate:"required,min=10"`
	Department string          `label:"department" validate:"required"`
	Position   string          `label:"position" validate:"required"`
	Salary     decimal.Decimal `label:"salary" validate:"-"`
	JoinDate   string          `label:"joinDate" validate:"required"`
	// Status が空の場合は active として扱います。
	Status Status `label:"status" validate:"omitempty,oneof=active inactive on-leave"`
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Profile
}

// UpdateEmployeeInput は社員更新時の入力です。全項目を置き換えます。
type UpdateEmployeeInput struct {
	ID string
	Profile
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// normalizedProfile は検証済みの Profile です。
type normalizedProfile struct {
	employeeID string
	fullName   string
	email      string
	phone      string
	department string
	position   string
	salary     decimal.Decimal
	joinDate   time.Time
	status     Status
}

// ListEmployees は全社員を挿入順で返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		employees = found
		return nil
	}); err != nil {
		return nil, err
	}
	return employees, nil
}

// SearchEmployees は氏名・メール・社員番号・部署・役職を大文字小文字を区別せず部分一致検索します。
// 空白のみのクエリは一覧と同じ結果になります。
func (s *Service) SearchEmployees(ctx context.Context, query string) ([]*Employee, error) {
	all, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return all, nil
	}

	matched := make([]*Employee, 0, len(all))
	for _, emp := range all {
		if matchesQuery(emp, needle) {
			matched = append(matched, emp)
		}
	}
	return matched, nil
}

// FilterByStatus はステータスが完全一致する社員を返します。
func (s *Service) FilterByStatus(ctx context.Context, status Status) ([]*Employee, error) {
	if !isValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	all, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(e *Employee) bool { return e.Status == status }), nil
}

// FilterByDepartment は部署が完全一致する社員を返します。
func (s *Service) FilterByDepartment(ctx context.Context, department string) ([]*Employee, error) {
	all, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(e *Employee) bool { return e.Department == department }), nil
}

// CreateEmployee は新しい社員を作成します。
// 社員番号の重複をメールアドレスの重複より先に検査します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	p, err := normalizeProfile(in.Profile)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, "", p.employeeID, p.email); err != nil {
			return err
		}

		now := s.clock.Now()
		emp := &Employee{CreatedAt: now, UpdatedAt: now}
		p.applyTo(emp)

		result, err := s.repo.Create(txCtx, emp)
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

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateEmployee は社員の可変項目をすべて置き換えます。ID と CreatedAt は保持されます。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	p, err := normalizeProfile(in.Profile)
	if err != nil {
		return nil, err
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if err := s.ensureUnique(txCtx, existing.ID, p.employeeID, p.email); err != nil {
			return err
		}

		p.applyTo(existing)
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除し、削除したレコードを返します。
// 位置情報の履歴は削除しません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) (*Employee, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var deleted *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		removed, err := s.repo.Delete(txCtx, in.ID)
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

// ensureUnique は selfID 以外の社員と社員番号・メールアドレスが重複しないことを確認します。
func (s *Service) ensureUnique(ctx context.Context, selfID, employeeID, email string) error {
	byCode, err := s.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if byCode != nil && byCode.ID != selfID {
		return ErrEmployeeIDAlreadyExists
	}

	byEmail, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if byEmail != nil && byEmail.ID != selfID {
		return ErrEmailAlreadyExists
	}
	return nil
}

func normalizeProfile(in Profile) (*normalizedProfile, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
	in.JoinDate = strings.TrimSpace(in.JoinDate)

	errs := []error{validation.Struct(in)}

	if in.Salary.IsNegative() {
		errs = append(errs, validation.NewError("salary", "must be greater than or equal to 0"))
	}

	var joinDate time.Time
	if in.JoinDate != "" {
		parsed, err := ParseJoinDate(in.JoinDate)
		if err != nil {
			errs = append(errs, validation.NewError("joinDate", "must be a date in YYYY-MM-DD format"))
		}
		joinDate = parsed
	}

	if err := validation.Merge(errs...); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}

	return &normalizedProfile{
		employeeID: in.EmployeeID,
		fullName:   in.FullName,
		email:      in.Email,
		phone:      in.Phone,
		department: in.Department,
		position:   in.Position,
		salary:     in.Salary,
		joinDate:   joinDate,
		status:     status,
	}, nil
}

func (p *normalizedProfile) applyTo(e *Employee) {
	e.EmployeeID = p.employeeID
	e.FullName = p.fullName
	e.Email = p.email
	e.Phone = p.phone
	e.Department = p.department
	e.Position = p.position
	e.Salary = p.salary
	e.JoinDate = p.joinDate
	e.Status = p.status
}

// ParseJoinDate は YYYY-MM-DD もしくは RFC 3339 の文字列を UTC の日付に変換します。
func ParseJoinDate(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(JoinDateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func matchesQuery(e *Employee, needle string) bool {
	for _, field := range []string{e.FullName, e.Email, e.EmployeeID, e.Department, e.Position} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func filter(in []*Employee, keep func(*Employee) bool) []*Employee {
	out := make([]*Employee, 0, len(in))
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive, StatusOnLeave:
		return true
	default:
		return false
	}
}
