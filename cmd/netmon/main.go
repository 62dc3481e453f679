// Package main is the CLI entry point for netmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/console"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
	"github.com/eliteGoblin/netmon/internal/infra"
	"github.com/eliteGoblin/netmon/internal/policy"
	"github.com/eliteGoblin/netmon/internal/ui"
)

var (
	// Version info (set via ldflags)
	Version   = "1.0.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netmon",
	Short: "Campus network keeper - stays logged in to the gateway",
	Long: `netmon keeps a campus network connection alive. It periodically opens
the captive-portal gateway page in a headless browser and, when the
session has dropped, fills in and submits the login form.

Without a subcommand it opens the settings window with a tray icon.
On a machine without a display it runs the keeper in the foreground.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runRoot,
}

var (
	configPath   string
	autostarted  bool
	systemMode   bool
	jsonOutput   bool
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName,
		"Path to config.json (relative paths resolve next to the executable)")
	rootCmd.Flags().BoolVar(&autostarted, "autostart", false, "Launched by the autostart entry")
	_ = rootCmd.Flags().MarkHidden("autostart")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	logger := infra.SetupLogger(config.AppDir())
	defer func() { _ = logger.Sync() }()

	if autostarted {
		logger.Info("launched by autostart entry")
	}

	if !hasDisplay() {
		logger.Info("no display available, running headless")
		return runHeadless(logger)
	}

	release, err := acquireInstance(logger)
	if err != nil {
		return err
	}
	defer release()

	history := openHistory(logger)
	if history != nil {
		defer history.Close()
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	app := ui.New(ui.Options{
		ConfigPath: configPath,
		Factory:    newFactory(logger),
		Autostart:  infra.NewAutostartManager(infra.ModeConfig(infra.ExecModeUser)),
		ExecPath:   exe,
		History:    history,
		Version:    Version,
		Logger:     logger,
	})
	app.Run()
	return nil
}

// hasDisplay reports whether a desktop session is available. Only linux
// can lack one; a systemd unit starts without DISPLAY.
func hasDisplay() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// acquireInstance takes the single-instance lock. The returned func releases it.
func acquireInstance(logger *zap.Logger) (func(), error) {
	lock := infra.NewInstanceLock(config.AppDir(), infra.NewProcessManager())
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "netmon 已经在运行中！请检查系统托盘图标。")
		}
		logger.Error("failed to acquire instance lock", zap.String("path", lock.Path()), zap.Error(err))
		return nil, err
	}
	return func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release instance lock", zap.Error(err))
		}
	}, nil
}

// openHistory opens the encrypted status history. Failures are logged and
// yield nil: the keeper runs without history.
func openHistory(logger *zap.Logger) domain.HistoryStore {
	h, err := infra.OpenHistory(config.AppDir())
	if err != nil {
		logger.Warn("status history unavailable", zap.Error(err))
		return nil
	}
	return h
}

// newFactory wires keepers to the default portal and the configured engine.
func newFactory(logger *zap.Logger) daemon.Factory {
	portal, err := policy.NewPortalStore().GetByID(policy.DefaultPortalID)
	if err != nil {
		// The default portal is always registered.
		panic(err)
	}
	launchers := func(engine domain.Engine) (domain.BrowserLauncher, error) {
		return infra.NewBrowserLauncher(engine, infra.LauncherOptions{
			Logger: logger.Named("browser"),
		})
	}
	return daemon.NewFactory(*portal, launchers, logger)
}

// runHeadless runs one keeper in the foreground until SIGINT or SIGTERM.
func runHeadless(logger *zap.Logger) error {
	release, err := acquireInstance(logger)
	if err != nil {
		return err
	}
	defer release()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if ok, msg := config.Validate(cfg); !ok {
		return fmt.Errorf("配置验证失败：%s", msg)
	}

	history := openHistory(logger)
	if history != nil {
		defer history.Close()
	}
	recorder := daemon.NewRecorder(history, daemon.DefaultHistoryKeep, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := daemon.NewStatusQueue(daemon.DefaultQueueSize)
	flush := forwardStatus(queue, recorder, os.Stdout)
	defer flush()

	keeper, err := newFactory(logger)(cfg, queue.Sink())
	if err != nil {
		return err
	}
	if err := keeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start keeper: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		for !keeper.Wait(time.Second) {
		}
		close(exited)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		keeper.Stop()
		if !keeper.Wait(ui.ExitJoinTimeout) {
			logger.Warn("keeper still running at exit")
		}
	case <-exited:
	}

	flush()

	if keeper.State() == domain.StateFailed {
		return errors.New(daemon.MsgInitFailed)
	}
	return nil
}

// forwardStatus records and prints queued events in order until the returned
// func is called. That func stops the forwarder, waits for it, then flushes
// what is left. Calling it again is a no-op.
func forwardStatus(queue *daemon.StatusQueue, recorder *daemon.Recorder, out io.Writer) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	emit := func(ev domain.StatusEvent) {
		recorder.Record(ev)
		fmt.Fprintln(out, ev.Message)
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-queue.C():
				emit(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			for _, ev := range queue.Drain() {
				emit(ev)
			}
		})
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	logger := infra.SetupLogger(config.AppDir(), infra.WithoutStderr())
	defer func() { _ = logger.Sync() }()

	release, err := acquireInstance(logger)
	if err != nil {
		return err
	}
	defer release()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	history := openHistory(logger)
	if history != nil {
		defer history.Close()
	}

	return console.Run(console.Options{
		Settings:  cfg,
		Factory:   newFactory(logger),
		History:   history,
		AutoStart: true,
		Logger:    logger,
	})
}
