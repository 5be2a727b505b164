package employee

import "errors"

var (
	// ErrInvalidID は ID が空の場合に返却されます。
	ErrInvalidID = errors.New("employee: invalid id")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("employee: invalid status")
	// ErrEmployeeNotFound は社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("employee: not found")
	// ErrEmployeeIDAlreadyExists は社員番号が重複した場合に返却されます。
	ErrEmployeeIDAlreadyExists = errors.New("employee: employee id already exists")
	// ErrEmailAlreadyExists はメールアドレスが重複した場合に返却されます。
	ErrEmailAlreadyExists = errors.New("employee: email already exists")
)
