package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は社員の在籍状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusOnLeave  Status = "on-leave"
)

// JoinDateLayout は入社日の文字列表現です。
const JoinDateLayout = "2006-01-02"

// Employee は社員エンティティです。
type Employee struct {
	ID         string
	EmployeeID string
	FullName   string
	Email      string
	Phone      string
	Department string
	Position   string
	Salary     decimal.Decimal
	JoinDate   time.Time
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone は社員のコピーを返します。
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
