// Package main is the CLI entry point for shieldmon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/shield_mon/internal/bridge"
	"github.com/eliteGoblin/focusd/shield_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
	"github.com/eliteGoblin/focusd/shield_mon/internal/infra"
	"github.com/eliteGoblin/focusd/shield_mon/internal/policy"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

const requestTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shieldmon",
	Short: "Focus shield - covers blocked apps while focus mode is on",
	Long: `shieldmon runs a background shield that watches which application comes
to the foreground. While the shield is on, any application on the block
list is covered and closed the moment it appears.

Commands talk to the running daemon over its local socket. When no daemon
is running, changes are written to the encrypted store and picked up on
the next start.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the shield daemon",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show shield status",
	Long:  `Shows whether the shield is on, the enforcement health and the current intercept.`,
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the block list",
	RunE:  runList,
}

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Manage the block list",
}

var blockSetCmd = &cobra.Command{
	Use:   "set [identifier...]",
	Short: "Replace the block list",
	Long: `Replaces the whole block list. Identifiers are matched exactly.
Use category:<id> or --category to add a preset (see 'shieldmon categories').
An empty list unblocks everything.`,
	RunE: runBlockSet,
}

var shieldCmd = &cobra.Command{
	Use:   "shield",
	Short: "Turn the shield on or off",
}

var shieldOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the shield on",
	Long:  `Turns the shield on. With --targets the block list is replaced first.`,
	RunE:  runShieldOn,
}

var shieldOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the shield off and remove any cover",
	RunE:  runShieldOff,
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Open the host's target picker and print the selection",
	RunE:  runSelect,
}

var reportCmd = &cobra.Command{
	Use:   "report <identifier>",
	Short: "Report a foreground transition (relay monitor source)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories [id]",
	Short: "List category presets",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCategories,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the shield daemon automatically at login",
	Long: `Registers a launchd job that runs the shield daemon at login (user mode)
or at boot (system mode, requires sudo). Re-running install after moving the
binary updates the job.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the launchd job",
	RunE:  runUninstall,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	jsonOutput    bool
	userInstall   bool
	categoryFlags []string
	targetFlags   []string
	configPath    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to settings.yaml (default depends on execution mode)")
	blockSetCmd.Flags().StringSliceVar(&categoryFlags, "category", nil, "Category preset to include (repeatable)")
	shieldOnCmd.Flags().StringSliceVar(&targetFlags, "targets", nil, "Replace the block list before turning on")
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	installCmd.Flags().BoolVar(&userInstall, "user", false, "Install the per-user LaunchAgent regardless of euid")
	uninstallCmd.Flags().BoolVar(&userInstall, "user", false, "Remove the per-user LaunchAgent regardless of euid")

	blockCmd.AddCommand(blockSetCmd)
	shieldCmd.AddCommand(shieldOnCmd)
	shieldCmd.AddCommand(shieldOffCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(shieldCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// loadConfig resolves execution mode and settings.
func loadConfig() (*infra.ExecModeConfig, infra.Config, error) {
	execMode := infra.DetectExecMode()
	path := configPath
	if path == "" {
		path = execMode.ConfigPath
	}
	cfg, err := infra.LoadConfig(path, execMode)
	return execMode, cfg, err
}

func runStart(cmd *cobra.Command, args []string) error {
	execMode, _, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Execution mode: %s\n", execMode.Mode)

	registry := infra.NewFileInstanceRegistry(execMode.DataDir, infra.NewProcessManager())
	if alive, _ := registry.IsAlive(); alive {
		fmt.Println("Shield daemon is already running.")
		return nil
	}

	var daemonArgs []string
	if configPath != "" {
		daemonArgs = append(daemonArgs, "--config", configPath)
	}
	if err := daemon.StartDaemon(daemonArgs...); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	inst, err := daemon.WaitForInstance(ctx, registry, 100*time.Millisecond)
	if err != nil {
		return err
	}

	color.Green("Shield daemon started (pid %d)", inst.PID)
	fmt.Printf("Socket: %s\n", inst.SocketPath)
	return nil
}

// autostartMode picks the launchd domain for install/uninstall.
func autostartMode() (*infra.ExecModeConfig, error) {
	if !userInstall {
		return infra.DetectExecMode(), nil
	}
	execMode := infra.GetUserModeConfig()
	if execMode.IsRoot {
		// launchctl under sudo would load the agent into root's domain
		return nil, errors.New("--user must be run without sudo")
	}
	return execMode, nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	execMode, err := autostartMode()
	if err != nil {
		return err
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	autostart := infra.NewLaunchdAutostart(execMode, infra.ExecRunner{})
	if autostart.IsInstalled() && !autostart.NeedsUpdate(execPath) {
		fmt.Printf("Already installed: %s\n", autostart.Path())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := autostart.Install(ctx, execPath); err != nil {
		return err
	}
	color.Green("Installed %s (%s mode)", autostart.Path(), execMode.Mode)
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	execMode, err := autostartMode()
	if err != nil {
		return err
	}
	autostart := infra.NewLaunchdAutostart(execMode, infra.ExecRunner{})

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := autostart.Uninstall(ctx); err != nil {
		return err
	}
	fmt.Println("Autostart removed.")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	execMode, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	store, err := infra.OpenStore(execMode.DataDir)
	if err != nil {
		logger.Error("failed to open encrypted store", zap.Error(err))
		return err
	}
	defer store.Close()

	pm := infra.NewProcessManager()
	registry := infra.NewFileInstanceRegistry(execMode.DataDir, pm)

	config := daemon.DefaultShieldConfig()
	config.AppVersion = Version
	shield, err := daemon.Assemble(config, cfg, daemon.DesktopHost(cfg, logger), store, registry, logger)
	if err != nil {
		logger.Error("failed to assemble shield", zap.Error(err))
		return err
	}

	// Set up graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return shield.Run(ctx)
}

// controller sends requests to the daemon, falling back to the encrypted
// store when no daemon is listening.
type controller struct {
	execMode *infra.ExecModeConfig
	cfg      infra.Config
	client   *bridge.Client
	logger   *zap.Logger
}

func newController() (*controller, error) {
	execMode, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := bridge.Dial(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	logger, _ := zap.NewDevelopment()
	return &controller{execMode: execMode, cfg: cfg, client: client, logger: logger}, nil
}

func (c *controller) Close() error {
	_ = c.logger.Sync()
	return c.client.Close()
}

// offline opens the persisted snapshot for direct access.
func (c *controller) offline() (*infra.KVSnapshotStore, func(), error) {
	c.logger.Debug("daemon unreachable, using encrypted store",
		zap.String("socket", c.cfg.SocketPath),
		zap.String("data_dir", c.execMode.DataDir))

	store, err := infra.OpenStore(c.execMode.DataDir)
	if err != nil {
		c.logger.Error("failed to open encrypted store", zap.Error(err))
		return nil, nil, err
	}
	return infra.NewKVSnapshotStore(store), func() { store.Close() }, nil
}

func (c *controller) setBlockList(ctx context.Context, ids []string) error {
	warning, err := c.client.SetBlockList(ctx, ids)
	if bridge.IsUnreachable(err) {
		snapshots, closeFn, oerr := c.offline()
		if oerr != nil {
			return oerr
		}
		defer closeFn()
		if err := snapshots.SaveTargets(domain.Identifiers(ids)); err != nil {
			return err
		}
		color.Yellow("Daemon not running; block list saved for next start.")
		return nil
	}
	if err != nil {
		return err
	}
	printWarning(warning)
	return nil
}

func (c *controller) setShieldActive(ctx context.Context, active bool) (bool, error) {
	got, err := c.client.SetShieldActive(ctx, active)
	if bridge.IsUnreachable(err) {
		snapshots, closeFn, oerr := c.offline()
		if oerr != nil {
			return false, oerr
		}
		defer closeFn()
		if err := snapshots.SaveShieldActive(active); err != nil {
			return false, err
		}
		color.Yellow("Daemon not running; shield flag saved for next start.")
		return active, nil
	}
	return got, err
}

func expandTargets(tokens, categories []string) ([]string, error) {
	for _, c := range categories {
		tokens = append(tokens, policy.CategoryPrefix+c)
	}
	return policy.NewRegistry().Expand(tokens)
}

func runBlockSet(cmd *cobra.Command, args []string) error {
	ids, err := expandTargets(args, categoryFlags)
	if err != nil {
		return err
	}

	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := c.setBlockList(ctx, ids); err != nil {
		return err
	}
	fmt.Printf("Block list set (%d identifiers).\n", len(ids))
	return nil
}

func runShieldOn(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if cmd.Flags().Changed("targets") {
		ids, err := expandTargets(targetFlags, nil)
		if err != nil {
			return err
		}
		if err := c.setBlockList(ctx, ids); err != nil {
			return err
		}
	}

	active, err := c.setShieldActive(ctx, true)
	if err != nil {
		return err
	}
	printShieldState(active)
	return nil
}

func runShieldOff(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	active, err := c.setShieldActive(ctx, false)
	if err != nil {
		return err
	}
	printShieldState(active)
	return nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	// The picker waits on the user; no request timeout.
	blob, err := c.client.RequestSelectionUI(context.Background())
	switch {
	case errors.Is(err, domain.ErrSelectionCancelled):
		fmt.Println("Selection cancelled.")
		return nil
	case err != nil:
		return err
	}
	fmt.Println(blob)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return c.client.ReportForeground(ctx, args[0], time.Now())
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, err := c.client.QueryStatus(ctx)
	if bridge.IsUnreachable(err) {
		return printOfflineStatus(c)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Println("\n=== shieldmon Status ===")
	fmt.Println("Daemon: RUNNING")
	printShieldState(status.ShieldActive)
	printHealth(status.Health)
	fmt.Printf("Targets: %d\n", len(status.Targets))
	if status.Intercept.BlockedIdentifier != "" {
		fmt.Printf("Intercept: %s (since %s)\n",
			status.Intercept.BlockedIdentifier,
			status.Intercept.RaisedAt.Format(time.Kitchen))
	}
	fmt.Printf("Events: %d, blocks: %d\n", status.Events, status.Blocks)
	for _, w := range status.Warnings {
		color.Yellow("  ! %s", w)
	}
	fmt.Println("========================")
	return nil
}

func printOfflineStatus(c *controller) error {
	fmt.Println("\n=== shieldmon Status ===")
	color.Red("Daemon: NOT RUNNING")

	store, err := infra.OpenStore(c.execMode.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := infra.NewKVSnapshotStore(store).LoadSnapshot()
	if err != nil {
		return err
	}
	if snap != nil {
		fmt.Printf("Saved shield flag: %v\n", snap.ShieldActive)
		fmt.Printf("Saved targets: %d\n", len(snap.Targets))
		if at, err := store.UpdatedAt(infra.KeyShieldActive); err == nil && !at.IsZero() {
			fmt.Printf("Last changed: %s\n", at.Format(time.RFC1123))
		}
	}
	fmt.Println("\nRun 'shieldmon start' to enable the shield.")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var targets []domain.Identifier
	status, err := c.client.QueryStatus(ctx)
	switch {
	case bridge.IsUnreachable(err):
		snapshots, closeFn, oerr := c.offline()
		if oerr != nil {
			return oerr
		}
		defer closeFn()
		snap, lerr := snapshots.LoadSnapshot()
		if lerr != nil {
			return lerr
		}
		if snap != nil {
			targets = snap.Targets
		}
	case err != nil:
		return err
	default:
		targets = status.Targets
	}

	categories := policy.NewRegistry()
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Identifier", "Category"})
	for _, id := range targets {
		tw.AppendRow(table.Row{id, categoryOf(categories, string(id))})
	}
	tw.SetStyle(table.StyleLight)
	fmt.Println(tw.Render())
	return nil
}

func categoryOf(r *policy.Registry, id string) string {
	var hits []string
	for _, c := range r.GetAll() {
		for _, member := range c.Identifiers() {
			if member == id {
				hits = append(hits, c.ID())
				break
			}
		}
	}
	return strings.Join(hits, ",")
}

func runCategories(cmd *cobra.Command, args []string) error {
	registry := policy.NewRegistry()
	categories := registry.GetAll()
	if len(args) == 1 {
		c, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown category %q (available: %s)", args[0], strings.Join(registry.List(), ", "))
		}
		categories = []policy.Category{c}
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Name", "Identifiers"})
	for _, c := range categories {
		tw.AppendRow(table.Row{c.ID(), c.Name(), strings.Join(c.Identifiers(), ", ")})
	}
	tw.SetStyle(table.StyleLight)
	fmt.Println(tw.Render())
	return nil
}

func printShieldState(active bool) {
	if active {
		color.Green("Shield: ON")
		return
	}
	fmt.Println("Shield: OFF")
}

func printHealth(h domain.Health) {
	switch h {
	case domain.HealthOK:
		color.Green("Health: %s", h)
	case domain.HealthDegraded:
		color.Yellow("Health: %s (cover unavailable, closing apps only)", h)
	default:
		color.Red("Health: %s (cannot observe foreground apps)", h)
	}
}

func printWarning(err error) {
	if err != nil {
		color.Yellow("Warning: %v", err)
	}
}

func createLogger(logPath string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{logPath}
	config.ErrorOutputPaths = []string{logPath}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("shieldmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
