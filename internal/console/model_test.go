package console

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/domain"
)

type stubKeeper struct {
	started bool
	stopped bool
	waited  time.Duration
	sink    domain.StatusSink
}

func (k *stubKeeper) Start(ctx context.Context) error { k.started = true; return nil }
func (k *stubKeeper) Stop()                           { k.stopped = true }
func (k *stubKeeper) Wait(timeout time.Duration) bool { k.waited = timeout; return true }
func (k *stubKeeper) Alive() bool                     { return k.started && !k.stopped }

func (k *stubKeeper) State() domain.KeeperState {
	if k.Alive() {
		return domain.StateRunning
	}
	return domain.StateStopped
}

type stubHistory struct {
	events []domain.StatusEvent
}

func (h *stubHistory) Append(ev domain.StatusEvent) error {
	h.events = append(h.events, ev)
	return nil
}

func (h *stubHistory) Recent(limit int) ([]domain.StatusEvent, error) {
	return h.events, nil
}

func (h *stubHistory) Prune(keep int) error { return nil }
func (h *stubHistory) Close() error         { return nil }

func settings(account string) config.Config {
	cfg := config.Default()
	cfg.Login.Account = account
	return cfg
}

func newModel(t *testing.T, cfg config.Config) (*Model, *[]*stubKeeper) {
	t.Helper()
	var keepers []*stubKeeper
	m := NewModel(Options{
		Settings: cfg,
		Factory: func(s config.Config, sink domain.StatusSink) (domain.Keeper, error) {
			k := &stubKeeper{sink: sink}
			keepers = append(keepers, k)
			return k, nil
		},
	})
	return m, &keepers
}

func key(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_StartAndStop(t *testing.T) {
	m, keepers := newModel(t, settings("20234227001"))

	m.Update(key("s"))
	require.Len(t, *keepers, 1)
	k := (*keepers)[0]
	assert.True(t, k.started)
	assert.Equal(t, "启动中...", m.status)
	assert.Contains(t, m.View(), "running")

	m.Update(key("s"))
	assert.Len(t, *keepers, 1)
	assert.Equal(t, "已在运行", m.status)

	m.Update(key("x"))
	assert.True(t, k.stopped)
	assert.Equal(t, stopJoinTimeout, k.waited)
	assert.Equal(t, "已停止", m.status)

	m.Update(key("x"))
	assert.Equal(t, "未运行", m.status)
}

func TestModel_StartBlockedByValidation(t *testing.T) {
	m, keepers := newModel(t, settings(""))

	m.Update(key("s"))

	assert.Empty(t, *keepers)
	assert.Equal(t, "配置错误", m.status)
	assert.Contains(t, m.View(), "账号不能为空")
}

func TestModel_FactoryError(t *testing.T) {
	m := NewModel(Options{
		Settings: settings("a"),
		Factory: func(config.Config, domain.StatusSink) (domain.Keeper, error) {
			return nil, errors.New("unknown browser engine")
		},
	})

	m.Update(key("s"))

	assert.Equal(t, "启动失败", m.status)
	assert.Contains(t, m.errMsg, "unknown browser engine")
}

func TestModel_StatusFlowsThroughQueue(t *testing.T) {
	m, keepers := newModel(t, settings("20234227001"))
	m.Update(key("s"))

	// The keeper's sink feeds the queue the model waits on.
	(*keepers)[0].sink("初始化完成，开始后台监控网络连接...")
	msg := waitForStatus(m.queue)()

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, "初始化完成，开始后台监控网络连接...", m.status)
	assert.Contains(t, m.log.String(), "初始化完成")
}

func TestModel_RecordsHistory(t *testing.T) {
	history := &stubHistory{events: []domain.StatusEvent{
		{At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local), Message: "已成功登录。"},
	}}
	m := NewModel(Options{Settings: settings("a"), History: history})

	assert.Equal(t, "02/01/2026 03:04:05 已成功登录。", m.log.String())

	m.Update(statusMsg{At: time.Now(), Message: "尝试登录后仍未登录。"})
	require.Len(t, history.events, 2)
	assert.Equal(t, "尝试登录后仍未登录。", history.events[1].Message)
}

func TestModel_ClearLog(t *testing.T) {
	m, _ := newModel(t, settings("a"))
	m.appendLog("one")
	m.appendLog("two")

	m.Update(key("c"))

	assert.Zero(t, m.log.Len())
}

func TestModel_AutoStart(t *testing.T) {
	t.Run("with account", func(t *testing.T) {
		m, keepers := newModel(t, settings("20234227001"))
		m.Update(autoStartMsg{})
		assert.Len(t, *keepers, 1)
		assert.Contains(t, m.log.String(), "正在自动连接网络...")
	})

	t.Run("without account", func(t *testing.T) {
		m, keepers := newModel(t, settings(" "))
		m.Update(autoStartMsg{})
		assert.Empty(t, *keepers)
		assert.Equal(t, "提示：请先配置账号信息后再启动", m.log.String())
	})
}

func TestModel_QuitStopsKeeper(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m, keepers := newModel(t, settings("a"))
			m.Update(key("s"))

			_, cmd := m.Update(key(k))

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.True(t, (*keepers)[0].stopped)
			assert.Equal(t, exitJoinTimeout, (*keepers)[0].waited)
		})
	}
}

func TestModel_WindowResize(t *testing.T) {
	m, _ := newModel(t, settings("a"))
	for i := 0; i < 100; i++ {
		m.appendLog(fmt.Sprintf("line %d", i))
	}

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 98, m.viewport.Width)
	assert.Equal(t, 24, m.viewport.Height)
	view := m.View()
	assert.Contains(t, view, "line 99")
	assert.NotContains(t, view, "line 50")
}
