package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
)

// DefaultInterval は定期記録の既定間隔です。
const DefaultInterval = 5 * time.Minute

// Activity は追跡処理の稼働状態です。
type Activity string

const (
	ActivityIdle     Activity = "idle"
	ActivityTracking Activity = "tracking"
	ActivityStopped  Activity = "stopped"
)

// Recorder は測位結果を台帳へ書き込む先です。location.Service と ledgerclient.Client が満たします。
type Recorder interface {
	CreateLocation(ctx context.Context, in location.CreateLocationInput) (*location.Location, error)
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// State は Tracker の観測可能な状態のスナップショットです。
type State struct {
	Permission PermissionState
	Activity   Activity
	Position   *Position
	// LastUpdate は最後に位置が更新された時刻です。未更新の場合はゼロ値です。
	LastUpdate time.Time
	Err        error
}

// Option は Tracker の任意設定です。
type Option func(*Tracker)

// WithClock は時刻の取得元を差し替えます。
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithStateListener は状態が変わるたびに呼ばれる関数を設定します。
func WithStateListener(fn func(State)) Option {
	return func(t *Tracker) {
		t.listener = fn
	}
}

// Tracker は 1 人の社員の端末で位置を取得し台帳へ記録するクライアントです。
type Tracker struct {
	employeeID string
	platform   Platform
	recorder   Recorder
	clock      Clock
	logger     *zap.Logger
	listener   func(State)

	mu          sync.Mutex
	state       State
	session     uint64
	watch       Subscription
	stopTicker  context.CancelFunc
	permissions Subscription
	wg          sync.WaitGroup
}

// New は Tracker を生成します。
func New(employeeID string, platform Platform, recorder Recorder, opts ...Option) *Tracker {
	t := &Tracker{
		employeeID: employeeID,
		platform:   platform,
		recorder:   recorder,
		clock:      realClock{},
		logger:     zap.NewNop(),
		state: State{
			Permission: PermissionUnknown,
			Activity:   ActivityIdle,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State は現在の状態を返します。
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// CheckPermission は許可状態を問い合わせ、以後の変化も購読します。
func (t *Tracker) CheckPermission(ctx context.Context) (PermissionState, error) {
	perm, err := t.platform.Permission(ctx)
	if err != nil {
		t.logger.Warn("permission query failed", zap.Error(err))
		return t.State().Permission, err
	}
	t.update(func(s *State) { s.Permission = perm })

	t.mu.Lock()
	subscribed := t.permissions != nil
	t.mu.Unlock()
	if subscribed {
		return perm, nil
	}

	sub, err := t.platform.OnPermissionChange(func(next PermissionState) {
		t.update(func(s *State) { s.Permission = next })
	})
	if err != nil {
		t.logger.Warn("permission subscription failed", zap.Error(err))
		return perm, nil
	}

	t.mu.Lock()
	if t.permissions != nil {
		t.mu.Unlock()
		sub.Cancel()
		return perm, nil
	}
	t.permissions = sub
	t.mu.Unlock()
	return perm, nil
}

// RequestPermission は測位を 1 回試みて許可ダイアログを表示させます。
// 成功すれば granted、拒否されれば denied に遷移し、それ以外の失敗では状態を変えません。
func (t *Tracker) RequestPermission(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, PermissionProbeOptions.Timeout)
	defer cancel()

	_, err := t.platform.CurrentPosition(probeCtx, PermissionProbeOptions)
	if err == nil {
		t.update(func(s *State) { s.Permission = PermissionGranted })
		return true
	}

	if errors.Is(classify(err), ErrPermissionDenied) {
		t.update(func(s *State) { s.Permission = PermissionDenied })
	} else {
		t.logger.Warn("permission request failed", zap.Error(err))
	}
	return false
}

// CurrentLocation は現在位置を 1 回取得します。失敗時は分類済みの *LocationError を返し状態にも記録します。
func (t *Tracker) CurrentLocation(ctx context.Context) (Position, error) {
	t.update(func(s *State) { s.Err = nil })

	reqCtx, cancel := context.WithTimeout(ctx, CurrentPositionOptions.Timeout)
	defer cancel()

	pos, err := t.platform.CurrentPosition(reqCtx, CurrentPositionOptions)
	if err != nil {
		le := classify(err)
		t.update(func(s *State) { s.Err = le })
		return Position{}, le
	}

	now := t.clock.Now()
	t.update(func(s *State) {
		p := pos
		s.Position = &p
		s.LastUpdate = now
	})
	return pos, nil
}

// RecordCurrentLocation は現在位置を取得し source=gps として台帳へ記録します。
func (t *Tracker) RecordCurrentLocation(ctx context.Context) (*location.Location, error) {
	pos, err := t.CurrentLocation(ctx)
	if err != nil {
		return nil, err
	}

	lat, lng, acc := pos.Latitude, pos.Longitude, pos.Accuracy
	loc, err := t.recorder.CreateLocation(ctx, location.CreateLocationInput{
		EmployeeID: t.employeeID,
		Latitude:   &lat,
		Longitude:  &lng,
		Timestamp:  t.clock.Now().UTC().Format(time.RFC3339Nano),
		Accuracy:   &acc,
		Source:     location.SourceGPS,
	})
	if err != nil {
		t.logger.Warn("record location failed", zap.String("employee_id", t.employeeID), zap.Error(err))
		t.update(func(s *State) { s.Err = err })
		return nil, err
	}

	now := t.clock.Now()
	t.update(func(s *State) { s.LastUpdate = now })
	return loc, nil
}

// StartTracking は即時に 1 回記録した後、位置の監視と interval ごとの記録を開始します。
// interval が 0 以下の場合は DefaultInterval を使います。追跡中に呼んだ場合は何もしません。
// 戻り値の関数はこの追跡を停止します。
func (t *Tracker) StartTracking(ctx context.Context, interval time.Duration) (func(), error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	t.mu.Lock()
	if t.state.Activity == ActivityTracking {
		t.mu.Unlock()
		return func() {}, nil
	}
	t.session++
	session := t.session
	t.state.Activity = ActivityTracking
	t.state.Err = nil
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)

	// 記録の失敗は状態に残し、追跡自体は継続する。
	_, _ = t.RecordCurrentLocation(ctx)

	if !t.isCurrent(session) {
		return func() {}, nil
	}

	sub, err := t.platform.WatchPosition(WatchPositionOptions,
		func(pos Position) { t.onWatchPosition(session, pos) },
		func(err error) { t.onWatchError(session, err) },
	)
	if err != nil {
		le := classify(err)
		t.mu.Lock()
		if t.session == session {
			t.state.Activity = ActivityStopped
			t.state.Err = le
		}
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.notify(snap)
		return nil, le
	}

	base := context.WithoutCancel(ctx)
	tickCtx, cancelTicker := context.WithCancel(base)

	t.mu.Lock()
	if t.session != session {
		t.mu.Unlock()
		cancelTicker()
		sub.Cancel()
		return func() {}, nil
	}
	t.watch = sub
	t.stopTicker = cancelTicker
	t.wg.Add(1)
	t.mu.Unlock()

	go t.runTicker(tickCtx, base, interval)

	t.logger.Info("tracking started", zap.String("employee_id", t.employeeID), zap.Duration("interval", interval))
	return sync.OnceFunc(func() { t.stop(session) }), nil
}

// StopTracking は追跡を停止します。何度呼んでも安全です。
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	t.stopLocked()
}

// Close は追跡と許可状態の購読を解除し、実行中の定期記録の完了を待ちます。
func (t *Tracker) Close() {
	t.StopTracking()

	t.mu.Lock()
	perms := t.permissions
	t.permissions = nil
	t.mu.Unlock()
	if perms != nil {
		perms.Cancel()
	}

	t.wg.Wait()
}

func (t *Tracker) stop(session uint64) {
	t.mu.Lock()
	if t.session != session {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
}

// stopLocked は t.mu を保持した状態で呼び、戻る前に解放します。
func (t *Tracker) stopLocked() {
	watch, stopTicker := t.watch, t.stopTicker
	t.watch, t.stopTicker = nil, nil
	t.session++
	wasTracking := t.state.Activity == ActivityTracking
	t.state.Activity = ActivityStopped
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if stopTicker != nil {
		stopTicker()
	}
	if watch != nil {
		watch.Cancel()
	}
	if wasTracking {
		t.logger.Info("tracking stopped", zap.String("employee_id", t.employeeID))
	}
	t.notify(snap)
}

func (t *Tracker) runTicker(tickCtx, recordCtx context.Context, interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tickCtx.Done():
			return
		case <-ticker.C:
			if tickCtx.Err() != nil {
				return
			}
			// 実行中の記録は停止しても中断しない。
			_, _ = t.RecordCurrentLocation(recordCtx)
		}
	}
}

func (t *Tracker) onWatchPosition(session uint64, pos Position) {
	now := t.clock.Now()
	t.mu.Lock()
	if t.session != session {
		t.mu.Unlock()
		return
	}
	t.state.Position = &pos
	t.state.LastUpdate = now
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

func (t *Tracker) onWatchError(session uint64, err error) {
	le := classify(err)
	t.logger.Warn("position watch failed", zap.String("employee_id", t.employeeID), zap.Error(err))

	t.mu.Lock()
	if t.session != session {
		t.mu.Unlock()
		return
	}
	t.state.Err = le
	t.stopLocked()
}

func (t *Tracker) isCurrent(session uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session == session && t.state.Activity == ActivityTracking
}

func (t *Tracker) update(fn func(*State)) {
	t.mu.Lock()
	fn(&t.state)
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

func (t *Tracker) snapshotLocked() State {
	snap := t.state
	if snap.Position != nil {
		p := *snap.Position
		snap.Position = &p
	}
	return snap
}

func (t *Tracker) notify(s State) {
	if t.listener != nil {
		t.listener(s)
	}
}
