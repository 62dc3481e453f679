// Package daemon implements the background poll loop that keeps the portal session alive.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/domain"
	"github.com/eliteGoblin/netmon/internal/usecase"
)

// Status messages emitted by the loop.
const (
	MsgInitializing = "正在初始化浏览器..."
	MsgInitFailed   = "浏览器初始化失败"
	MsgInitDone     = "初始化完成，开始后台监控网络连接..."
	MsgLoopError    = "主循环错误，30秒后重试..."

	// Logged, not emitted
	MsgLoginFailed = "登录流程失败，稍后重试。"
)

// TimestampLayout renders dd/mm/YYYY HH:MM:SS.
const TimestampLayout = "02/01/2006 15:04:05"

// ErrAlreadyStarted is returned when Start is called twice on one keeper.
var ErrAlreadyStarted = errors.New("keeper already started")

// Config holds poll loop timing.
type Config struct {
	Interval       time.Duration // Between cycles, from daemon.frequencies
	OperatorSettle time.Duration // After selecting the operator
	FieldPause     time.Duration // After clicking an input, before typing
	PostLogin      time.Duration // After submitting, before probing again
	Tick           time.Duration // Granularity of cancellable waits
	ErrorBackoff   time.Duration // After a failed cycle
	Now            func() time.Time
}

// DefaultConfig returns default loop configuration.
func DefaultConfig() Config {
	return Config{
		Interval:       config.DefaultFrequencies * time.Second,
		OperatorSettle: usecase.DefaultOperatorSettle,
		FieldPause:     usecase.DefaultFieldPause,
		PostLogin:      3 * time.Second,
		Tick:           time.Second,
		ErrorBackoff:   30 * time.Second,
		Now:            time.Now,
	}
}

// ConfigFrom returns the default timing with the interval taken from cfg.
// A malformed interval falls back to the default; out-of-range values are clamped.
func ConfigFrom(cfg config.Config) Config {
	c := DefaultConfig()
	c.Interval = time.Duration(cfg.Daemon.Frequencies.Clamped()) * time.Second
	return c
}

// Keeper is one run of the poll loop. It owns its browser session and
// cannot be restarted once stopped; build a new one instead.
type Keeper struct {
	cfg      Config
	settings config.Config
	launcher domain.BrowserLauncher
	prober   *usecase.Prober
	actor    *usecase.LoginActor
	sink     domain.StatusSink
	logger   *zap.Logger

	mu      sync.Mutex
	state   domain.KeeperState
	cancel  context.CancelFunc
	browser domain.Browser
	done    chan struct{}
}

// NewKeeper creates a keeper for a snapshot of settings.
func NewKeeper(
	cfg Config,
	settings config.Config,
	portal domain.Portal,
	launcher domain.BrowserLauncher,
	sink domain.StatusSink,
	logger *zap.Logger,
) *Keeper {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &Keeper{
		cfg:      cfg,
		settings: settings,
		launcher: launcher,
		prober:   usecase.NewProber(portal, logger),
		actor:    usecase.NewLoginActor(portal, logger, usecase.WithPauses(cfg.OperatorSettle, cfg.FieldPause)),
		sink:     sink,
		logger:   logger,
		state:    domain.StateIdle,
	}
}

// Start launches the background worker and returns immediately.
func (k *Keeper) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.done != nil {
		return ErrAlreadyStarted
	}
	ctx, k.cancel = context.WithCancel(ctx)
	k.done = make(chan struct{})
	k.state = domain.StateInitializing

	go k.run(ctx)
	return nil
}

// Stop requests cancellation and closes the browser session. Safe to call
// more than once and before Start.
func (k *Keeper) Stop() {
	k.mu.Lock()
	if k.done == nil {
		k.state = domain.StateStopped
		k.mu.Unlock()
		return
	}
	if k.state == domain.StateInitializing || k.state == domain.StateRunning {
		k.state = domain.StateStopping
	}
	k.cancel()
	b := k.browser
	k.browser = nil
	k.mu.Unlock()

	k.logger.Info("正在停止网络守护进程...")
	k.closeBrowser(b)
}

// Wait blocks until the worker exits or timeout elapses. Returns true if it exited.
func (k *Keeper) Wait(timeout time.Duration) bool {
	k.mu.Lock()
	done := k.done
	k.mu.Unlock()
	if done == nil {
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// State returns the current lifecycle state.
func (k *Keeper) State() domain.KeeperState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Alive reports whether the worker goroutine is still running.
func (k *Keeper) Alive() bool {
	k.mu.Lock()
	done := k.done
	k.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (k *Keeper) run(ctx context.Context) {
	defer close(k.done)

	k.emit(MsgInitializing)
	b, err := k.launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			k.finish(domain.StateStopped)
			return
		}
		k.logger.Error("browser initialization failed",
			zap.String("engine", string(k.launcher.Engine())),
			zap.Error(err))
		k.emit(MsgInitFailed)
		k.finish(domain.StateFailed)
		return
	}

	// Stop may have been called while the browser was starting
	k.mu.Lock()
	if ctx.Err() != nil {
		k.mu.Unlock()
		k.closeBrowser(b)
		k.finish(domain.StateStopped)
		return
	}
	k.browser = b
	k.state = domain.StateRunning
	k.mu.Unlock()

	k.emit(MsgInitDone)
	k.logger.Info("keeper running",
		zap.String("host", k.settings.Daemon.Host),
		zap.Duration("interval", k.cfg.Interval))

	for ctx.Err() == nil {
		wait := k.cfg.Interval
		if err := k.safeCycle(ctx, b); err != nil {
			if ctx.Err() != nil {
				break
			}
			k.logger.Error("主循环发生严重错误", zap.Error(err))
			k.emit(MsgLoopError)
			wait = k.cfg.ErrorBackoff
		}
		k.sleep(ctx, wait)
	}

	k.mu.Lock()
	b, k.browser = k.browser, nil
	k.mu.Unlock()
	k.closeBrowser(b)
	k.finish(domain.StateStopped)
}

// safeCycle runs one cycle, turning a panic into an error.
func (k *Keeper) safeCycle(ctx context.Context, b domain.Browser) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
		}
	}()
	return k.cycle(ctx, b)
}

func (k *Keeper) cycle(ctx context.Context, b domain.Browser) error {
	host := k.settings.Daemon.Host

	result, err := k.prober.Probe(ctx, b, host)
	if err != nil {
		return err
	}

	if !result.LoggedIn {
		k.emit(fmt.Sprintf("[%s] 状态：%s 尝试登录...", k.timestamp(), result.Message))

		ok, reason := k.actor.AttemptLoginDetailed(ctx, b, k.settings.Login)
		if !ok {
			k.logger.Error(MsgLoginFailed, zap.String("step", string(reason)))
		}
		if !k.sleep(ctx, k.cfg.PostLogin) {
			return ctx.Err()
		}

		if result, err = k.prober.Probe(ctx, b, host); err != nil {
			return err
		}
	}

	if result.LoggedIn {
		k.emit(fmt.Sprintf("已成功登录。[%s]", k.timestamp()))
	} else {
		k.emit(fmt.Sprintf("尝试登录后仍未登录。[%s]", k.timestamp()))
	}
	return nil
}

// sleep waits d in Tick steps. Returns false if ctx was cancelled first.
func (k *Keeper) sleep(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		step := k.cfg.Tick
		if d < step {
			step = d
		}
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		d -= step
	}
	return ctx.Err() == nil
}

func (k *Keeper) finish(state domain.KeeperState) {
	k.mu.Lock()
	k.state = state
	k.mu.Unlock()
}

func (k *Keeper) closeBrowser(b domain.Browser) {
	if b == nil {
		return
	}
	if err := b.Close(); err != nil {
		k.logger.Warn("关闭浏览器时出错", zap.Error(err))
	}
}

func (k *Keeper) emit(msg string) {
	if k.sink != nil {
		k.sink(msg)
	}
}

func (k *Keeper) timestamp() string {
	return k.cfg.Now().Format(TimestampLayout)
}

// Ensure Keeper implements domain.Keeper.
var _ domain.Keeper = (*Keeper)(nil)
