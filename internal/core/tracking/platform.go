package tracking

import (
	"context"
	"time"
)

// PermissionState は端末の位置情報利用許可の状態です。
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionPrompt  PermissionState = "prompt"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// Position は端末から得た 1 回分の測位結果です。
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// PositionOptions は測位要求のヒントです。
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge は許容するキャッシュ済み測位結果の古さです。
	MaximumAge time.Duration
}

var (
	// CurrentPositionOptions は単発測位で使う設定です。
	CurrentPositionOptions = PositionOptions{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 60 * time.Second}
	// WatchPositionOptions は継続監視で使う設定です。
	WatchPositionOptions = PositionOptions{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 30 * time.Second}
	// PermissionProbeOptions は許可ダイアログを出すためだけの測位要求で使う設定です。
	PermissionProbeOptions = PositionOptions{Timeout: 5 * time.Second}
)

// Subscription は購読の解除ハンドルです。Cancel は何度呼んでも安全でなければなりません。
type Subscription interface {
	Cancel()
}

// Platform は端末の位置情報 API の抽象です。
type Platform interface {
	// Permission は現在の許可状態を返します。
	Permission(ctx context.Context) (PermissionState, error)
	// OnPermissionChange は許可状態の変化を購読します。
	OnPermissionChange(fn func(PermissionState)) (Subscription, error)
	// CurrentPosition は 1 回だけ測位します。
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
	// WatchPosition は Cancel されるまで測位結果を通知し続けます。
	WatchPosition(opts PositionOptions, onPosition func(Position), onError func(error)) (Subscription, error)
}
