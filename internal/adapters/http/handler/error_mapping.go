package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
)

const validationFailedMessage = "Validation failed"

// httpError はドメインエラーを変換した結果です。
type httpError struct {
	status  int
	message string
	details []validation.FieldError
}

// toHTTPError はドメインエラーを HTTP ステータスと利用者向けメッセージへ変換します。
// 想定外のエラーは fallback を利用者向けメッセージとします。
func toHTTPError(err error, fallback string) httpError {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return httpError{status: http.StatusBadRequest, message: validationFailedMessage, details: verr.Fields}
	case errors.Is(err, validation.ErrInvalidInput):
		return httpError{status: http.StatusBadRequest, message: validationFailedMessage}
	case errors.Is(err, employee.ErrEmployeeIDAlreadyExists):
		return httpError{status: http.StatusBadRequest, message: "Employee ID already exists"}
	case errors.Is(err, employee.ErrEmailAlreadyExists):
		return httpError{status: http.StatusBadRequest, message: "Email already exists"}
	case errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidStatus),
		errors.Is(err, location.ErrInvalidEmployeeID),
		errors.Is(err, location.ErrInvalidLocationID):
		return httpError{status: http.StatusBadRequest, message: err.Error()}
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return httpError{status: http.StatusNotFound, message: "Employee not found"}
	case errors.Is(err, location.ErrLocationNotFound):
		return httpError{status: http.StatusNotFound, message: "Location record not found"}
	case errors.Is(err, location.ErrNoLocationsForEmployee):
		return httpError{status: http.StatusNotFound, message: "No location records found for this employee"}
	default:
		return httpError{status: http.StatusInternalServerError, message: fallback}
	}
}

func fail(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, fallback string) {
	he := toHTTPError(err, fallback)
	if he.status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, he.status, he.message, he.details)
}
