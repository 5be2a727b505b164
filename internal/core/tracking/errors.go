package tracking

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode は端末の位置情報 API が返すエラーコードです。
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

// PlatformError は Platform 実装が返す生のエラーです。
type PlatformError struct {
	Code    ErrorCode
	Message string
}

func (e *PlatformError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("geolocation error %d", e.Code)
}

var (
	// ErrLocation は分類できない測位失敗です。
	ErrLocation = errors.New("tracking: failed to get location")
	// ErrPermissionDenied は利用者が位置情報の利用を拒否した場合です。
	ErrPermissionDenied = errors.New("tracking: location access denied by user")
	// ErrPositionUnavailable は位置情報が得られない場合です。
	ErrPositionUnavailable = errors.New("tracking: location information unavailable")
	// ErrTimeout は測位要求が時間切れになった場合です。
	ErrTimeout = errors.New("tracking: location request timed out")
)

// LocationError は分類済みの測位エラーです。errors.Is で Kind と原因の両方に一致します。
type LocationError struct {
	Kind error
	Err  error
}

func (e *LocationError) Error() string {
	return e.Kind.Error()
}

func (e *LocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify は Platform のエラーを LocationError に分類します。
func classify(err error) *LocationError {
	if err == nil {
		return nil
	}

	var le *LocationError
	if errors.As(err, &le) {
		return le
	}

	var pe *PlatformError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodePermissionDenied:
			return &LocationError{Kind: ErrPermissionDenied, Err: err}
		case CodePositionUnavailable:
			return &LocationError{Kind: ErrPositionUnavailable, Err: err}
		case CodeTimeout:
			return &LocationError{Kind: ErrTimeout, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &LocationError{Kind: ErrTimeout, Err: err}
	}
	return &LocationError{Kind: ErrLocation, Err: err}
}
