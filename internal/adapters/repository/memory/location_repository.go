package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
)

// LocationRepository はプロセス内メモリに測位記録を保持する実装です。
// 記録は追記順のスライスで持ち、Find はその順序を保ちます。
type LocationRepository struct {
	mu        sync.RWMutex
	locations []*location.Location
}

// NewLocationRepository は空の LocationRepository を生成します。
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{}
}

// Create は測位記録を追記します。ID が空の場合は採番します。
func (r *LocationRepository) Create(_ context.Context, loc *location.Location) (*location.Location, error) {
	clone := loc.Clone()
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, clone)
	return clone.Clone(), nil
}

// Find は条件に合致する記録を挿入順で返します。
func (r *LocationRepository) Find(_ context.Context, criteria location.Criteria) ([]*location.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*location.Location, 0)
	for _, loc := range r.locations {
		if criteria.Matches(loc) {
			out = append(out, loc.Clone())
		}
	}
	return out, nil
}

// DeleteOne は社員 ID と記録 ID が一致する記録を削除します。
func (r *LocationRepository) DeleteOne(_ context.Context, employeeID, locationID string) (*location.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, loc := range r.locations {
		if loc.ID == locationID && loc.EmployeeID == employeeID {
			r.locations = append(r.locations[:i], r.locations[i+1:]...)
			return loc, nil
		}
	}
	return nil, location.ErrLocationNotFound
}

// DeleteByEmployee は社員の記録をすべて削除し件数を返します。
func (r *LocationRepository) DeleteByEmployee(_ context.Context, employeeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.locations[:0]
	removed := 0
	for _, loc := range r.locations {
		if loc.EmployeeID == employeeID {
			removed++
			continue
		}
		kept = append(kept, loc)
	}
	for i := len(kept); i < len(r.locations); i++ {
		r.locations[i] = nil
	}
	r.locations = kept
	return removed, nil
}
