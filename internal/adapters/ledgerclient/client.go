// Package ledgerclient は位置情報台帳の HTTP API へ測位記録を送るクライアントです。
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/core/validation"
)

// ErrUnexpectedStatus は台帳が 2xx 以外を返した場合です。
var ErrUnexpectedStatus = errors.New("ledgerclient: unexpected status")

// StatusError は台帳が返したエラー応答です。
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledgerclient: %d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

type createRequest struct {
	EmployeeID string   `json:"employeeId"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Address    string   `json:"address,omitempty"`
	Timestamp  string   `json:"timestamp"`
	Accuracy   *float64 `json:"accuracy"`
	Source     string   `json:"source,omitempty"`
}

type locationPayload struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employeeId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address"`
	Timestamp  string  `json:"timestamp"`
	Accuracy   float64 `json:"accuracy"`
	Source     string  `json:"source"`
}

type envelope struct {
	Data    *locationPayload        `json:"data"`
	Error   string                  `json:"error"`
	Details []validation.FieldError `json:"details"`
}

// Client は POST /locations を呼び出します。tracking.Recorder を満たします。
type Client struct {
	baseURL string
	http    *http.Client
}

// Option は Client の任意設定です。
type Option func(*Client)

// WithHTTPClient は HTTP クライアントを差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New は baseURL の台帳へ送信する Client を生成します。
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateLocation は測位記録を台帳へ送り、保存された記録を返します。
// 台帳が検証エラーを返した場合は *validation.Error を返します。
func (c *Client) CreateLocation(ctx context.Context, in location.CreateLocationInput) (*location.Location, error) {
	body, err := json.Marshal(createRequest{
		EmployeeID: in.EmployeeID,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Address:    in.Address,
		Timestamp:  in.Timestamp,
		Accuracy:   in.Accuracy,
		Source:     string(in.Source),
	})
	if err != nil {
		return nil, fmt.Errorf("ledgerclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/locations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ledgerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledgerclient: request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(env.Details) > 0 {
			return nil, &validation.Error{Fields: env.Details}
		}
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("ledgerclient: decode response: %w", decodeErr)
	}
	if env.Data == nil {
		return nil, errors.New("ledgerclient: empty response data")
	}

	return env.Data.toLocation()
}

func (p *locationPayload) toLocation() (*location.Location, error) {
	ts, err := location.ParseTimestamp(p.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("ledgerclient: parse timestamp %q: %w", p.Timestamp, err)
	}
	return &location.Location{
		ID:         p.ID,
		EmployeeID: p.EmployeeID,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Address:    p.Address,
		Timestamp:  ts,
		Accuracy:   p.Accuracy,
		Source:     location.Source(p.Source),
	}, nil
}
