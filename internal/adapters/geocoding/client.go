// Package geocoding は座標から住所文字列を求める外部 API のクライアントです。
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ogurasousui/employee-location-tracker/internal/platform/config"
)

var (
	// ErrNoAddress は応答に住所が含まれていない場合です。
	ErrNoAddress = errors.New("geocoding: no address in response")
	// ErrUnexpectedStatus は API が 2xx 以外を返した場合です。
	ErrUnexpectedStatus = errors.New("geocoding: unexpected status")
)

// reverseResponse は reverse-geocode-client API の応答のうち利用する項目です。
type reverseResponse struct {
	DisplayName          string `json:"display_name"`
	Locality             string `json:"locality"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}

const defaultFetchTimeout = 10 * time.Second

// Client は BigDataCloud 互換の逆ジオコーディング API クライアントです。
type Client struct {
	baseURL  string
	language string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	group    singleflight.Group
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

// NewClient は Client を生成します。RatePerSec が正の場合は API 呼び出しを平準化します。
func NewClient(cfg config.GeocodingConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		timeout:  cfg.Timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
	}
	if c.timeout <= 0 {
		c.timeout = defaultFetchTimeout
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReverseGeocode は座標の住所を返します。同一座標への同時呼び出しは 1 回の API 呼び出しにまとめます。
// 共有する呼び出しは個々の呼び出し元のキャンセルに影響されず、各呼び出し元は自身の ctx が終わると待機をやめます。
func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	ch := c.group.DoChan(Key(latitude, longitude), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fetchCtx, latitude, longitude)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("geocoding: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("geocoding: rate limit: %w", err)
		}
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("localityLanguage", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geocoding: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geocoding: decode response: %w", err)
	}

	if name := strings.TrimSpace(body.DisplayName); name != "" {
		return name, nil
	}
	if strings.TrimSpace(body.Locality) == "" {
		return "", ErrNoAddress
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{body.Locality, body.PrincipalSubdivision, body.CountryName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", "), nil
}

// Key は座標を小数点以下 6 桁に丸めたキャッシュキーです。
func Key(latitude, longitude float64) string {
	return fmt.Sprintf("%.6f,%.6f", latitude, longitude)
}
