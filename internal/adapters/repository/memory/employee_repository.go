package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
)

// EmployeeRepository はプロセス内メモリに社員を保持する実装です。
// 社員番号とメールアドレスの一意性は書き込み時にも検査します。
type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]*employee.Employee
	order     []string
}

// NewEmployeeRepository は空の EmployeeRepository を生成します。
func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{employees: make(map[string]*employee.Employee)}
}

// Create は社員を追加します。ID が空の場合は採番します。
func (r *EmployeeRepository) Create(_ context.Context, e *employee.Employee) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := e.Clone()
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if _, exists := r.employees[clone.ID]; exists {
		return nil, employee.ErrEmployeeIDAlreadyExists
	}
	if err := r.checkUniqueLocked(clone); err != nil {
		return nil, err
	}

	r.employees[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return clone.Clone(), nil
}

// Update は社員を置き換えます。
func (r *EmployeeRepository) Update(_ context.Context, e *employee.Employee) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[e.ID]; !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	clone := e.Clone()
	if err := r.checkUniqueLocked(clone); err != nil {
		return nil, err
	}
	r.employees[clone.ID] = clone
	return clone.Clone(), nil
}

// Delete は社員を削除し、削除前のレコードを返します。
func (r *EmployeeRepository) Delete(_ context.Context, id string) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.employees[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	delete(r.employees, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return found, nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(_ context.Context, id string) (*employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.employees[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	return found.Clone(), nil
}

// FindByEmployeeID は社員番号で検索します。
func (r *EmployeeRepository) FindByEmployeeID(_ context.Context, employeeID string) (*employee.Employee, error) {
	return r.findBy(func(e *employee.Employee) bool { return e.EmployeeID == employeeID })
}

// FindByEmail はメールアドレスで検索します。大文字小文字は区別しません。
func (r *EmployeeRepository) FindByEmail(_ context.Context, email string) (*employee.Employee, error) {
	return r.findBy(func(e *employee.Employee) bool { return strings.EqualFold(e.Email, email) })
}

// List は全社員を挿入順で返します。
func (r *EmployeeRepository) List(_ context.Context) ([]*employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*employee.Employee, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.employees[id].Clone())
	}
	return out, nil
}

func (r *EmployeeRepository) findBy(match func(*employee.Employee) bool) (*employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if e := r.employees[id]; match(e) {
			return e.Clone(), nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

func (r *EmployeeRepository) checkUniqueLocked(e *employee.Employee) error {
	for id, other := range r.employees {
		if id == e.ID {
			continue
		}
		if other.EmployeeID == e.EmployeeID {
			return employee.ErrEmployeeIDAlreadyExists
		}
	}
	for id, other := range r.employees {
		if id == e.ID {
			continue
		}
		if strings.EqualFold(other.Email, e.Email) {
			return employee.ErrEmailAlreadyExists
		}
	}
	return nil
}
