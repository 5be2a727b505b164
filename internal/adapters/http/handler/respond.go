package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
)

// envelope は全レスポンス共通の形です。data と error のどちらか一方のみを持ちます。
type envelope struct {
	Data    any                     `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Message string                  `json:"message,omitempty"`
	Details []validation.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string, details []validation.FieldError) {
	writeJSON(w, status, envelope{Error: message, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}

// parseLimit は数値でない値や 0 以下の値を「制限なし」として 0 を返します。
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
