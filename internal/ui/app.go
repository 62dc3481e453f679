package ui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
)

const (
	// AppID identifies the application to fyne preferences and the tray.
	AppID = "io.github.elitegoblin.netmon"

	// AppName is the window title.
	AppName = "苏州大学网关自动登录工具"

	// History lines loaded into the log panel at startup.
	historySeed = 50
)

// Delays of the auto-start sequence after the window opens.
var (
	AutoStartDelay = 2 * time.Second
	AutoHideDelay  = time.Second
)

const aboutText = `本工具用于苏州大学网关自动登录与掉线重连。

关闭窗口后程序会最小化到系统托盘，继续在后台保持网络连接。
右键托盘图标可以重新打开窗口或退出程序。`

// Options configures the desktop shell.
type Options struct {
	ConfigPath string
	Factory    daemon.Factory
	Autostart  domain.AutostartManager
	ExecPath   string
	History    domain.HistoryStore // optional
	Version    string
	Logger     *zap.Logger
}

// App is the desktop shell: settings window plus tray icon.
type App struct {
	fyne     fyne.App
	window   fyne.Window
	ctrl     *Controller
	queue    *daemon.StatusQueue
	recorder *daemon.Recorder
	logger   *zap.Logger
	version  string

	log *daemon.LogBuffer

	host, account, password, interval *widget.Entry
	operator                          *widget.Select
	operatorXPath, accountXPath       *widget.Entry
	passwordXPath, submitXPath        *widget.Entry
	status                            *widget.Label
	logView                           *widget.Label
	logScroll                         *container.Scroll
	autostart                         *widget.Check

	// suppresses the check's OnChanged while the controller syncs it
	syncingAutostart bool
}

// New builds the window and tray. Call Run to show it.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		fyne:     app.NewWithID(AppID),
		queue:    daemon.NewStatusQueue(daemon.DefaultQueueSize),
		recorder: daemon.NewRecorder(opts.History, daemon.DefaultHistoryKeep, logger),
		logger:   logger,
		version:  opts.Version,
		log:      daemon.NewLogBuffer(daemon.DefaultLogLimit),
	}
	a.window = a.fyne.NewWindow(AppName)
	a.window.Resize(fyne.NewSize(480, 300))
	a.window.SetCloseIntercept(a.Hide)

	a.ctrl = NewController(a, ControllerDeps{
		ConfigPath: opts.ConfigPath,
		Factory:    opts.Factory,
		Sink:       a.queue.Sink(),
		Autostart:  opts.Autostart,
		ExecPath:   opts.ExecPath,
		Logger:     logger,
	})

	a.window.SetContent(a.build(opts.Autostart != nil))
	a.setupTray()
	return a
}

// Run loads the configuration, shows the window and blocks until the app quits.
func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.ctrl.Load()
	for _, ev := range a.recorder.Recent(historySeed) {
		a.AppendLog(ev.At.Format(daemon.TimestampLayout) + " " + ev.Message)
	}

	go a.pump(ctx)

	a.fyne.Lifecycle().SetOnStarted(func() {
		time.AfterFunc(AutoStartDelay, func() {
			fyne.Do(a.autoStart)
		})
	})
	a.fyne.Lifecycle().SetOnStopped(a.ctrl.Shutdown)

	a.window.ShowAndRun()
}

func (a *App) autoStart() {
	if !a.ctrl.AutoStart() {
		return
	}
	time.AfterFunc(AutoHideDelay, func() {
		fyne.Do(a.Hide)
	})
}

// pump drains keeper status into history and onto the UI goroutine.
func (a *App) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.queue.C():
			a.recorder.Record(ev)
			fyne.Do(func() {
				a.ctrl.HandleStatus(ev.Message)
			})
		}
	}
}

func (a *App) build(withAutostart bool) fyne.CanvasObject {
	a.host = widget.NewEntry()
	a.account = widget.NewEntry()
	a.password = widget.NewPasswordEntry()
	a.operator = widget.NewSelect(config.Operators, nil)
	a.interval = widget.NewEntry()
	a.operatorXPath = widget.NewEntry()
	a.accountXPath = widget.NewEntry()
	a.passwordXPath = widget.NewEntry()
	a.submitXPath = widget.NewEntry()
	a.status = widget.NewLabel(StatusIdle)

	buttons := container.NewHBox(
		widget.NewButton("保存配置", a.ctrl.Save),
		widget.NewButton("启动", a.ctrl.Start),
		widget.NewButton("停止", a.ctrl.Stop),
		widget.NewButton("最小化", a.Hide),
	)
	basic := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("网关地址", a.host),
			widget.NewFormItem("账号", a.account),
			widget.NewFormItem("密码", a.password),
			widget.NewFormItem("运营商", a.operator),
			widget.NewFormItem("检测间隔(秒)", a.interval),
		),
		buttons,
		widget.NewForm(widget.NewFormItem("状态", a.status)),
	)

	advancedItems := []*widget.FormItem{
		widget.NewFormItem("运营商 XPath(可选)", a.operatorXPath),
		widget.NewFormItem("账号 XPath(可选)", a.accountXPath),
		widget.NewFormItem("密码 XPath(可选)", a.passwordXPath),
		widget.NewFormItem("登录按钮 XPath(可选)", a.submitXPath),
	}
	if withAutostart {
		a.autostart = widget.NewCheck("登录系统时自动启动", func(on bool) {
			if !a.syncingAutostart {
				a.ctrl.SetAutostart(on)
			}
		})
		advancedItems = append(advancedItems, widget.NewFormItem("开机自启动", a.autostart))
	}
	advanced := widget.NewForm(advancedItems...)

	a.logView = widget.NewLabel("")
	a.logView.Wrapping = fyne.TextWrapWord
	a.logScroll = container.NewVScroll(a.logView)
	logs := container.NewBorder(
		widget.NewLabel("日志"),
		container.NewHBox(widget.NewButton("清空日志", a.clearLog)),
		nil, nil,
		a.logScroll,
	)

	about := container.NewVBox(
		widget.NewLabelWithStyle("关于", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel(aboutText),
		widget.NewLabel("版本："+a.version),
	)

	return container.NewAppTabs(
		container.NewTabItem("基础设置", basic),
		container.NewTabItem("高级设置", advanced),
		container.NewTabItem("日志", logs),
		container.NewTabItem("关于", about),
	)
}

func (a *App) clearLog() {
	a.log.Clear()
	a.logView.SetText("")
}

// Show brings the window back from the tray.
func (a *App) Show() {
	a.window.Show()
	a.window.RequestFocus()
}

// Quit stops the keeper and exits the application.
func (a *App) Quit() {
	a.ctrl.Shutdown()
	a.fyne.Quit()
}

// View implementation.

func (a *App) Form() Form {
	return Form{
		Host:          a.host.Text,
		Account:       a.account.Text,
		Password:      a.password.Text,
		Operator:      a.operator.Selected,
		Interval:      a.interval.Text,
		OperatorXPath: a.operatorXPath.Text,
		AccountXPath:  a.accountXPath.Text,
		PasswordXPath: a.passwordXPath.Text,
		SubmitXPath:   a.submitXPath.Text,
	}
}

func (a *App) SetForm(f Form) {
	a.host.SetText(f.Host)
	a.account.SetText(f.Account)
	a.password.SetText(f.Password)
	if f.Operator == "" {
		a.operator.ClearSelected()
	} else {
		a.operator.SetSelected(f.Operator)
	}
	a.interval.SetText(f.Interval)
	a.operatorXPath.SetText(f.OperatorXPath)
	a.accountXPath.SetText(f.AccountXPath)
	a.passwordXPath.SetText(f.PasswordXPath)
	a.submitXPath.SetText(f.SubmitXPath)
}

func (a *App) SetStatus(text string) {
	a.status.SetText(text)
}

func (a *App) AppendLog(line string) {
	a.log.Append(line)
	a.logView.SetText(a.log.String())
	a.logScroll.ScrollToBottom()
}

func (a *App) SetAutostart(on bool) {
	if a.autostart == nil {
		return
	}
	a.syncingAutostart = true
	a.autostart.SetChecked(on)
	a.syncingAutostart = false
}

func (a *App) ShowInfo(title, msg string) {
	dialog.ShowInformation(title, msg, a.window)
}

func (a *App) ShowWarning(title, msg string) {
	warningDialog(title, msg, a.window).Show()
}

func (a *App) ShowError(title, msg string) {
	errorDialog(title, msg, a.window).Show()
}

func warningDialog(title, msg string, w fyne.Window) dialog.Dialog {
	content := container.NewBorder(nil, nil, widget.NewIcon(theme.WarningIcon()), nil, widget.NewLabel(msg))
	return dialog.NewCustom(title, "确定", content, w)
}

func errorDialog(title, msg string, w fyne.Window) dialog.Dialog {
	return dialog.NewError(fmt.Errorf("%s：%s", title, msg), w)
}

// Hide sends the window to the tray.
func (a *App) Hide() {
	a.window.Hide()
}

// Ensure App implements View.
var _ View = (*App)(nil)
