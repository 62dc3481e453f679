// Package console provides a terminal front end for the keeper, for
// machines without a desktop session.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
)

const (
	// AutoStartDelay matches the desktop shell.
	AutoStartDelay = 2 * time.Second

	stopJoinTimeout = 2 * time.Second
	exitJoinTimeout = 3 * time.Second

	historySeed = 50

	// header (title + status) and footer (help) rows around the viewport
	chromeRows = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#1E88E5")).
			Bold(true).
			Padding(0, 1)
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	runningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	logStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
)

// Options configures the terminal shell.
type Options struct {
	Settings  config.Config
	Factory   daemon.Factory
	History   domain.HistoryStore // optional
	AutoStart bool                // start the keeper shortly after launch when an account is set
	Logger    *zap.Logger
}

// statusMsg carries one keeper status event into Update.
type statusMsg domain.StatusEvent

type autoStartMsg struct{}

// Model implements the Bubble Tea terminal shell.
type Model struct {
	settings  config.Config
	factory   daemon.Factory
	queue     *daemon.StatusQueue
	recorder  *daemon.Recorder
	logger    *zap.Logger
	autoStart bool

	keeper domain.Keeper
	status string
	errMsg string
	log    *daemon.LogBuffer

	viewport viewport.Model
	width    int
	height   int
}

// NewModel constructs the terminal shell model.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		settings:  opts.Settings,
		factory:   opts.Factory,
		queue:     daemon.NewStatusQueue(daemon.DefaultQueueSize),
		recorder:  daemon.NewRecorder(opts.History, daemon.DefaultHistoryKeep, logger),
		logger:    logger,
		autoStart: opts.AutoStart,
		status:    "未启动",
		log:       daemon.NewLogBuffer(daemon.DefaultLogLimit),
		viewport:  viewport.New(80, 20),
	}
	for _, ev := range m.recorder.Recent(historySeed) {
		m.log.Append(ev.At.Format(daemon.TimestampLayout) + " " + ev.Message)
	}
	m.refreshLog()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForStatus(m.queue)}
	if m.autoStart {
		cmds = append(cmds, tea.Tick(AutoStartDelay, func(time.Time) tea.Msg {
			return autoStartMsg{}
		}))
	}
	return tea.Batch(cmds...)
}

// waitForStatus blocks on the queue and delivers the next event.
func waitForStatus(q *daemon.StatusQueue) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-q.C())
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-2, 10)
		m.viewport.Height = max(msg.Height-chromeRows-2, 3)
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.shutdown()
			return m, tea.Quit
		case "s":
			m.start()
			return m, nil
		case "x":
			m.stop()
			return m, nil
		case "c":
			m.log.Clear()
			m.refreshLog()
			return m, nil
		}

	case statusMsg:
		ev := domain.StatusEvent(msg)
		m.recorder.Record(ev)
		m.status = ev.Message
		m.appendLog(ev.Message)
		return m, waitForStatus(m.queue)

	case autoStartMsg:
		m.autoConnect()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("netmon · 校园网自动登录"))
	b.WriteString("\n")

	state := "stopped"
	if m.running() {
		state = runningStyle.Render(string(m.keeper.State()))
	}
	fmt.Fprintf(&b, "%s %s  %s\n",
		statusLabelStyle.Render("状态"),
		statusStyle.Render(m.status),
		state)
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(logStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s 启动 · x 停止 · c 清空日志 · ↑/↓ 滚动 · q 退出"))
	return b.String()
}

func (m *Model) running() bool {
	return m.keeper != nil && m.keeper.Alive()
}

func (m *Model) start() {
	m.errMsg = ""
	if m.running() {
		m.status = "已在运行"
		return
	}

	if ok, msg := config.Validate(m.settings); !ok {
		m.status = "配置错误"
		m.errMsg = "配置验证失败：" + msg
		return
	}

	keeper, err := m.factory(m.settings, m.queue.Sink())
	if err == nil {
		err = keeper.Start(context.Background())
	}
	if err != nil {
		m.logger.Error("failed to start keeper", zap.Error(err))
		m.status = "启动失败"
		m.errMsg = fmt.Sprintf("无法启动守护进程：%v", err)
		return
	}
	m.keeper = keeper
	m.status = "启动中..."
}

func (m *Model) stop() {
	m.errMsg = ""
	if m.keeper == nil {
		m.status = "未运行"
		return
	}
	m.keeper.Stop()
	if !m.keeper.Wait(stopJoinTimeout) {
		m.logger.Warn("keeper did not exit in time", zap.Duration("timeout", stopJoinTimeout))
	}
	m.keeper = nil
	m.status = "已停止"
}

func (m *Model) shutdown() {
	if m.keeper == nil {
		return
	}
	m.keeper.Stop()
	if !m.keeper.Wait(exitJoinTimeout) {
		m.logger.Warn("keeper still running at exit", zap.Duration("timeout", exitJoinTimeout))
	}
	m.keeper = nil
}

func (m *Model) autoConnect() {
	switch {
	case m.running():
		m.appendLog("守护进程已在运行")
	case !m.settings.Usable():
		m.appendLog("提示：请先配置账号信息后再启动")
	default:
		m.appendLog("正在自动连接网络...")
		m.start()
	}
}

func (m *Model) appendLog(line string) {
	m.log.Append(line)
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.viewport.SetContent(m.log.String())
	m.viewport.GotoBottom()
}

// Run starts the terminal shell and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
