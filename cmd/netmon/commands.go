package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
	"github.com/eliteGoblin/netmon/internal/infra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keeper in the foreground",
	Long: `Runs the keeper without a window, printing status messages to stdout.
Stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := infra.SetupLogger(config.AppDir())
		defer func() { _ = logger.Sync() }()
		return runHeadless(logger)
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the terminal interface",
	Long:  `Opens a full-screen terminal interface with start/stop controls and the status log.`,
	RunE:  runConsole,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (password masked)",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file",
	RunE:  runConfigValidate,
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage automatic startup",
	Long: `Registers netmon to start automatically.

User mode (default) starts the window at login. System mode (--system)
starts the keeper at boot after a 30 second delay and needs administrator
privileges; you will be prompted for them when needed.`,
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Register the autostart entry",
	RunE:  runAutostartEnable,
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the autostart entry",
	RunE:  runAutostartDisable,
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the autostart entry is installed",
	RunE:  runAutostartStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent status messages",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

func init() {
	configCmd.AddCommand(configShowCmd, configValidateCmd)

	autostartCmd.PersistentFlags().BoolVar(&systemMode, "system", false, "Use the system-level entry (requires administrator)")
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to print")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Login.Password != "" {
		cfg.Login.Password = "******"
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Printf("# %s\n%s\n", config.ResolvePath(configPath), out)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if ok, msg := config.Validate(cfg); !ok {
		return errors.New(msg)
	}
	fmt.Println("配置有效")
	return nil
}

func autostartManager() *infra.AutostartManagerImpl {
	return infra.NewAutostartManager(autostartMode(systemMode))
}

// autostartMode honours --system, otherwise follows the effective user:
// root manages the boot entry.
func autostartMode(system bool) *infra.ExecModeConfig {
	if system {
		return infra.ModeConfig(infra.ExecModeSystem)
	}
	return infra.DetectExecMode()
}

func runAutostartEnable(cmd *cobra.Command, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	mgr := autostartManager()
	err = mgr.Enable(exe)
	if errors.Is(err, domain.ErrElevationRequired) {
		return elevate(exe, "autostart", "enable", "--system")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Autostart enabled (%s): %s\n", mgr.Mode(), mgr.EntryPath())
	return nil
}

func runAutostartDisable(cmd *cobra.Command, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	mgr := autostartManager()
	err = mgr.Disable()
	if errors.Is(err, domain.ErrElevationRequired) {
		return elevate(exe, "autostart", "disable", "--system")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Autostart disabled (%s)\n", mgr.Mode())
	return nil
}

// elevate re-runs the command with administrator privileges. A dismissed
// prompt is not an error.
func elevate(exe string, args ...string) error {
	fmt.Println("需要管理员权限，正在请求授权...")
	err := infra.NewElevator().Elevate(exe, args...)
	if errors.Is(err, domain.ErrElevationDeclined) {
		fmt.Println("已取消")
		return nil
	}
	return err
}

func runAutostartStatus(cmd *cobra.Command, args []string) error {
	mgr := autostartManager()

	enabled, err := mgr.IsEnabled()
	if err != nil {
		return err
	}

	fmt.Println("\n=== netmon Autostart ===")
	fmt.Printf("Mode: %s\n", mgr.Mode())
	fmt.Printf("Entry: %s\n", mgr.EntryPath())
	if !enabled {
		fmt.Println("Status: disabled")
		fmt.Println("========================")
		return nil
	}

	fmt.Println("Status: enabled")
	if exe, err := os.Executable(); err == nil && mgr.NeedsUpdate(exe) {
		fmt.Println("        Entry points to another executable; run 'netmon autostart enable' to update it.")
	}
	fmt.Println("========================")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, err := infra.OpenHistory(config.AppDir())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	events, err := history.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No status history yet.")
		return nil
	}

	for _, ev := range events {
		fmt.Printf("%s  %s\n", ev.At.Format(daemon.TimestampLayout), ev.Message)
	}
	return nil
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(versionInfo{Version: Version, Commit: Commit, BuildTime: BuildTime})
		fmt.Println(string(out))
	} else {
		fmt.Printf("netmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
