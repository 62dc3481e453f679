// Package ui implements the desktop settings window and tray icon.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
)

// Status label texts.
const (
	StatusIdle        = "未启动"
	StatusSaved       = "配置已保存"
	StatusSaveFailed  = "保存失败"
	StatusRunning     = "已在运行"
	StatusConfigError = "配置错误"
	StatusStarting    = "启动中..."
	StatusStartFailed = "启动失败"
	StatusNotRunning  = "未运行"
	StatusStopping    = "正在停止..."
	StatusStopped     = "已停止"
)

// Log panel notices written by auto-start.
const (
	NoticeAlreadyRunning = "守护进程已在运行"
	NoticeNoAccount      = "提示：请先配置账号信息后再启动"
	NoticeAutoConnecting = "正在自动连接网络..."
)

// Join timeouts.
const (
	StopJoinTimeout = 2 * time.Second
	ExitJoinTimeout = 3 * time.Second
)

// Form is the raw text of every settings field.
type Form struct {
	Host          string
	Account       string
	Password      string
	Operator      string
	Interval      string
	OperatorXPath string
	AccountXPath  string
	PasswordXPath string
	SubmitXPath   string
}

// FormFrom renders a configuration into field text.
func FormFrom(cfg config.Config) Form {
	return Form{
		Host:          cfg.Daemon.Host,
		Account:       cfg.Login.Account,
		Password:      cfg.Login.Password,
		Operator:      cfg.Login.Operator,
		Interval:      cfg.Daemon.Frequencies.String(),
		OperatorXPath: cfg.Login.OperatorXPath,
		AccountXPath:  cfg.Login.AccountXPath,
		PasswordXPath: cfg.Login.PasswordXPath,
		SubmitXPath:   cfg.Login.SubmitXPath,
	}
}

// View is what the controller drives. All methods run on the UI goroutine.
type View interface {
	Form() Form
	SetForm(f Form)
	SetStatus(text string)
	AppendLog(line string)
	SetAutostart(on bool)
	ShowInfo(title, msg string)
	ShowWarning(title, msg string)
	ShowError(title, msg string)
	Hide()
}

// Controller implements the window's actions. It is not safe for concurrent
// use: every method is called from the UI goroutine.
type Controller struct {
	view       View
	configPath string
	cfg        config.Config
	factory    daemon.Factory
	sink       domain.StatusSink
	autostart  domain.AutostartManager
	execPath   string
	logger     *zap.Logger

	keeper domain.Keeper
}

// ControllerDeps groups the controller's collaborators.
type ControllerDeps struct {
	ConfigPath string
	Factory    daemon.Factory
	Sink       domain.StatusSink       // receives keeper status; must not block
	Autostart  domain.AutostartManager // nil hides autostart handling
	ExecPath   string
	Logger     *zap.Logger
}

// NewController creates a controller bound to view.
func NewController(view View, deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		view:       view,
		configPath: deps.ConfigPath,
		cfg:        config.Default(),
		factory:    deps.Factory,
		sink:       deps.Sink,
		autostart:  deps.Autostart,
		execPath:   deps.ExecPath,
		logger:     logger,
	}
}

// Load reads the configuration into the form and syncs the autostart toggle.
func (c *Controller) Load() {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.logger.Warn("failed to load config, using defaults",
			zap.String("path", c.configPath),
			zap.Error(err))
		cfg = config.Default()
	}
	c.cfg = cfg
	c.view.SetForm(FormFrom(cfg))
	c.view.SetStatus(StatusIdle)

	if c.autostart == nil {
		return
	}
	enabled, err := c.autostart.IsEnabled()
	if err != nil {
		c.logger.Warn("failed to query autostart", zap.Error(err))
	}
	c.view.SetAutostart(enabled)
}

// Config returns the configuration last loaded or saved.
func (c *Controller) Config() config.Config {
	return c.cfg
}

// BuildConfig turns field text into a configuration. Strings are trimmed;
// the interval is clamped to the allowed range and falls back to the
// default when it is not a number. Settings without a field keep their
// loaded values.
func (c *Controller) BuildConfig(f Form) config.Config {
	cfg := c.cfg
	cfg.Login = config.Login{
		Account:       strings.TrimSpace(f.Account),
		Password:      strings.TrimSpace(f.Password),
		Operator:      strings.TrimSpace(f.Operator),
		OperatorXPath: strings.TrimSpace(f.OperatorXPath),
		AccountXPath:  strings.TrimSpace(f.AccountXPath),
		PasswordXPath: strings.TrimSpace(f.PasswordXPath),
		SubmitXPath:   strings.TrimSpace(f.SubmitXPath),
	}
	cfg.Daemon.Host = strings.TrimSpace(f.Host)
	cfg.Daemon.Frequencies = config.Seconds(clampInterval(f.Interval))
	return cfg
}

func clampInterval(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return config.DefaultFrequencies
	}
	return config.Seconds(n).Clamped()
}

// Save validates (advisory only) and writes the form to disk.
func (c *Controller) Save() {
	cfg := c.BuildConfig(c.view.Form())

	if ok, msg := config.Validate(cfg); !ok {
		c.view.ShowWarning("配置警告", fmt.Sprintf("配置可能有问题：\n%s\n\n仍将保存配置。", msg))
	}

	if err := config.Save(cfg, c.configPath); err != nil {
		c.logger.Error("failed to save config", zap.String("path", c.configPath), zap.Error(err))
		c.view.ShowError("错误", fmt.Sprintf("保存配置失败: %v", err))
		c.view.SetStatus(StatusSaveFailed)
		return
	}

	c.cfg = cfg
	c.view.SetStatus(StatusSaved)
	c.view.ShowInfo("成功", fmt.Sprintf("配置已成功保存到 %s", filepath.Base(c.configPath)))
}

// Start validates the form and launches a new keeper. Validation failures block.
func (c *Controller) Start() {
	if c.Running() {
		c.view.SetStatus(StatusRunning)
		c.view.ShowInfo("提示", "守护进程已经在运行中")
		return
	}

	cfg := c.BuildConfig(c.view.Form())
	if ok, msg := config.Validate(cfg); !ok {
		c.view.ShowError("配置错误", fmt.Sprintf("配置验证失败：\n%s", msg))
		c.view.SetStatus(StatusConfigError)
		return
	}

	if err := config.Save(cfg, c.configPath); err != nil {
		c.logger.Warn("failed to persist config on start", zap.Error(err))
	}
	c.cfg = cfg

	keeper, err := c.factory(cfg, c.sink)
	if err == nil {
		err = keeper.Start(context.Background())
	}
	if err != nil {
		c.logger.Error("failed to start keeper", zap.Error(err))
		c.view.ShowError("启动失败", fmt.Sprintf("无法启动守护进程：%v", err))
		c.view.SetStatus(StatusStartFailed)
		c.keeper = nil
		return
	}

	c.keeper = keeper
	c.view.SetStatus(StatusStarting)
}

// Stop stops the keeper and waits briefly for it to exit.
func (c *Controller) Stop() {
	if c.keeper == nil {
		c.view.SetStatus(StatusNotRunning)
		c.view.ShowInfo("提示", "守护进程未运行")
		return
	}

	if c.keeper.Alive() {
		c.view.SetStatus(StatusStopping)
		c.keeper.Stop()
		if !c.keeper.Wait(StopJoinTimeout) {
			c.logger.Warn("keeper did not exit in time", zap.Duration("timeout", StopJoinTimeout))
		}
	}
	c.keeper = nil
	c.view.SetStatus(StatusStopped)
}

// Running reports whether a keeper worker is alive.
func (c *Controller) Running() bool {
	return c.keeper != nil && c.keeper.Alive()
}

// AutoStart starts the keeper when an account is configured. It returns
// true when a keeper is running afterwards and the window may be hidden.
func (c *Controller) AutoStart() bool {
	if c.Running() {
		c.view.AppendLog(NoticeAlreadyRunning)
		return false
	}
	if strings.TrimSpace(c.view.Form().Account) == "" {
		c.view.AppendLog(NoticeNoAccount)
		return false
	}

	c.view.AppendLog(NoticeAutoConnecting)
	c.Start()
	return c.Running()
}

// HandleStatus shows a keeper message in the status label and the log.
func (c *Controller) HandleStatus(msg string) {
	c.view.SetStatus(msg)
	c.view.AppendLog(msg)
}

// SetAutostart enables or disables the autostart entry. On failure the
// toggle is reverted.
func (c *Controller) SetAutostart(on bool) {
	if c.autostart == nil {
		return
	}

	var err error
	if on {
		err = c.autostart.Enable(c.execPath)
	} else {
		err = c.autostart.Disable()
	}
	if err == nil {
		c.logger.Info("autostart updated",
			zap.Bool("enabled", on),
			zap.String("entry", c.autostart.EntryPath()))
		return
	}

	c.logger.Error("failed to update autostart", zap.Bool("enabled", on), zap.Error(err))
	c.view.SetAutostart(!on)
	msg := fmt.Sprintf("设置开机自启动失败：%v", err)
	if errors.Is(err, domain.ErrElevationRequired) {
		msg = "设置开机自启动需要管理员权限，请使用命令行 netmon autostart enable --system。"
	}
	c.view.ShowError("开机自启动", msg)
}

// Shutdown stops the keeper with the exit join timeout. Used when quitting.
func (c *Controller) Shutdown() {
	if c.keeper == nil {
		return
	}
	if c.keeper.Alive() {
		c.keeper.Stop()
		if !c.keeper.Wait(ExitJoinTimeout) {
			c.logger.Warn("keeper still running at exit", zap.Duration("timeout", ExitJoinTimeout))
		}
	}
	c.keeper = nil
}
