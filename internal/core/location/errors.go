package location

import "errors"

var (
	// ErrInvalidEmployeeID は社員 ID が空の場合に返却されます。
	ErrInvalidEmployeeID = errors.New("location: invalid employee id")
	// ErrInvalidLocationID は位置情報 ID が空の場合に返却されます。
	ErrInvalidLocationID = errors.New("location: invalid location id")
	// ErrLocationNotFound は該当する測位記録が存在しない場合に返却されます。
	ErrLocationNotFound = errors.New("location: record not found")
	// ErrNoLocationsForEmployee は社員の測位記録が 1 件も無い場合に返却されます。
	ErrNoLocationsForEmployee = errors.New("location: no records found for employee")
)
