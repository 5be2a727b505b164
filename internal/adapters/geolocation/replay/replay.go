// Package replay は YAML に記録した測位列を再生する tracking.Platform 実装です。
// 端末を持たない環境での追跡クライアントの動作確認に使います。
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ogurasousui/employee-location-tracker/internal/core/tracking"
)

// Point は再生する 1 件分の測位結果です。Error を指定すると測位失敗として再生します。
type Point struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Accuracy  float64 `yaml:"accuracy"`
	// Error は denied, unavailable, timeout のいずれかです。
	Error string `yaml:"error"`
}

// Track は再生内容です。
type Track struct {
	// Permission は初期の許可状態です。空の場合は prompt です。
	Permission tracking.PermissionState `yaml:"permission"`
	// OnRequest は prompt 中に測位を要求されたときに遷移する状態です。空の場合は granted です。
	OnRequest tracking.PermissionState `yaml:"on_request"`
	// Step は WatchPosition が次の点を通知するまでの間隔です。
	Step    time.Duration `yaml:"-"`
	StepRaw string        `yaml:"step"`
	Points  []Point       `yaml:"points"`
}

// LoadTrack は YAML ファイルから Track を読み込みます。
func LoadTrack(path string) (*Track, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read file %s: %w", path, err)
	}

	var track Track
	if err := yaml.Unmarshal(b, &track); err != nil {
		return nil, fmt.Errorf("replay: parse yaml: %w", err)
	}
	if err := track.normalize(); err != nil {
		return nil, err
	}
	return &track, nil
}

func (t *Track) normalize() error {
	if len(t.Points) == 0 {
		return errors.New("replay: track must contain at least one point")
	}
	for i, p := range t.Points {
		if _, err := p.platformError(); err != nil {
			return fmt.Errorf("replay: points[%d]: %w", i, err)
		}
	}
	if t.Permission == "" {
		t.Permission = tracking.PermissionPrompt
	}
	if t.OnRequest == "" {
		t.OnRequest = tracking.PermissionGranted
	}
	if t.StepRaw != "" {
		step, err := time.ParseDuration(t.StepRaw)
		if err != nil {
			return fmt.Errorf("replay: step: %w", err)
		}
		t.Step = step
	}
	if t.Step <= 0 {
		t.Step = time.Second
	}
	return nil
}

func (p Point) platformError() (*tracking.PlatformError, error) {
	switch p.Error {
	case "":
		return nil, nil
	case "denied":
		return &tracking.PlatformError{Code: tracking.CodePermissionDenied, Message: "replayed denial"}, nil
	case "unavailable":
		return &tracking.PlatformError{Code: tracking.CodePositionUnavailable, Message: "replayed outage"}, nil
	case "timeout":
		return &tracking.PlatformError{Code: tracking.CodeTimeout, Message: "replayed timeout"}, nil
	default:
		return nil, fmt.Errorf("unknown error kind %q", p.Error)
	}
}

// Platform は Track を順に再生します。最後の点に達した後は最後の点を返し続けます。
type Platform struct {
	track Track
	now   func() time.Time

	mu         sync.Mutex
	permission tracking.PermissionState
	cursor     int
	listeners  map[int]func(tracking.PermissionState)
	nextID     int
}

// New は track を再生する Platform を生成します。
func New(track Track) *Platform {
	if track.Step <= 0 {
		track.Step = time.Second
	}
	if track.Permission == "" {
		track.Permission = tracking.PermissionPrompt
	}
	if track.OnRequest == "" {
		track.OnRequest = tracking.PermissionGranted
	}
	return &Platform{
		track:      track,
		now:        time.Now,
		permission: track.Permission,
		listeners:  make(map[int]func(tracking.PermissionState)),
	}
}

// Permission は現在の許可状態を返します。
func (p *Platform) Permission(context.Context) (tracking.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission, nil
}

// OnPermissionChange は許可状態の変化を購読します。
func (p *Platform) OnPermissionChange(fn func(tracking.PermissionState)) (tracking.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return cancelFunc(sync.OnceFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	})), nil
}

// SetPermission は許可状態を変更し購読者へ通知します。
func (p *Platform) SetPermission(state tracking.PermissionState) {
	p.mu.Lock()
	if p.permission == state {
		p.mu.Unlock()
		return
	}
	p.permission = state
	fns := make([]func(tracking.PermissionState), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// CurrentPosition は次の点を返します。
func (p *Platform) CurrentPosition(ctx context.Context, _ tracking.PositionOptions) (tracking.Position, error) {
	if err := ctx.Err(); err != nil {
		return tracking.Position{}, err
	}
	return p.next()
}

// WatchPosition は Step ごとに次の点を通知します。
func (p *Platform) WatchPosition(_ tracking.PositionOptions, onPosition func(tracking.Position), onError func(error)) (tracking.Subscription, error) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.track.Step)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				pos, err := p.next()
				select {
				case <-done:
					return
				default:
				}
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				if onPosition != nil {
					onPosition(pos)
				}
			}
		}
	}()

	// コールバック内から Cancel されることがあるため、ゴルーチンの終了は待ちません。
	return cancelFunc(sync.OnceFunc(func() { close(done) })), nil
}

func (p *Platform) next() (tracking.Position, error) {
	p.mu.Lock()
	if p.permission == tracking.PermissionPrompt {
		p.mu.Unlock()
		p.SetPermission(p.track.OnRequest)
		p.mu.Lock()
	}
	if p.permission == tracking.PermissionDenied {
		p.mu.Unlock()
		return tracking.Position{}, &tracking.PlatformError{Code: tracking.CodePermissionDenied, Message: "permission denied"}
	}

	point := p.track.Points[p.cursor]
	if p.cursor < len(p.track.Points)-1 {
		p.cursor++
	}
	p.mu.Unlock()

	perr, err := point.platformError()
	if err != nil {
		return tracking.Position{}, err
	}
	if perr != nil {
		return tracking.Position{}, perr
	}
	return tracking.Position{
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Accuracy:  point.Accuracy,
		Timestamp: p.now(),
	}, nil
}

type cancelFunc func()

func (f cancelFunc) Cancel() { f() }
