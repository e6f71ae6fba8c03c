// Package main is the CLI entry point for sitemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eliteGoblin/focusd/site_mon/internal/alarm"
	"github.com/eliteGoblin/focusd/site_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/infra"
	"github.com/eliteGoblin/focusd/site_mon/internal/match"
	"github.com/eliteGoblin/focusd/site_mon/internal/schedule"
	"github.com/eliteGoblin/focusd/site_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sitemon",
	Short: "Site monitor - blocks distracting websites during work hours",
	Long: `sitemon watches page navigation and covers distracting websites
with a guilt-inducing overlay during the configured work hours.

The block is advisory: it can be paused, ignored, or dismissed.
It exists to make distraction a deliberate act instead of a reflex.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Starts the background daemon that answers blocking decisions,
keeps the schedule alarms in sync, and records ignored blocks.`,
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status and current configuration",
	RunE:  runStatus,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Temporarily disable blocking",
	Long: `Sets the temporary-disable flag. All blocking decisions return
"allow" until 'sitemon resume' clears it. Survives daemon restarts.`,
	RunE: runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Re-enable blocking after a pause",
	RunE:  runResume,
}

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Ask whether a URL would be blocked right now",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage the blocked-sites list",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked sites",
	RunE:  runSitesList,
}

var sitesAddCmd = &cobra.Command{
	Use:   "add <site>",
	Short: "Add a site (hostname fragment, matched by containment)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSitesAdd,
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <site>",
	Short: "Remove a site",
	Args:  cobra.ExactArgs(1),
	RunE:  runSitesRemove,
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Manage the despair messages shown on the overlay",
}

var messagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List despair messages",
	RunE:  runMessagesList,
}

var messagesAddCmd = &cobra.Command{
	Use:   "add <message>",
	Short: "Add a despair message",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessagesAdd,
}

var messagesRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove a despair message by its list index",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessagesRemove,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the blocking schedule",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the blocking schedule",
	RunE:  runScheduleShow,
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the blocking schedule",
	Long: `Changes the daily blocking window. Times are zero-padded "HH:MM"
and the window must not cross midnight. Days are 0=Sunday..6=Saturday.`,
	RunE: runScheduleSet,
}

var ttsCmd = &cobra.Command{
	Use:   "tts <on|off|test>",
	Short: "Enable, disable or test spoken despair messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runTTS,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recently ignored blocks",
	Long:  `Lists the most recent times an overlay was dismissed with "ignore".`,
	RunE:  runEvents,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	daemonName   string
	jsonOutput   bool
	eventsLimit  int
	schedEnabled bool
	schedStart   string
	schedEnd     string
	schedDays    string
)

func init() {
	daemonCmd.Flags().StringVar(&daemonName, "name", "", "Obfuscated process name")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Maximum events to show")

	scheduleSetCmd.Flags().BoolVar(&schedEnabled, "enabled", true, "Enable the schedule (disabled = always block)")
	scheduleSetCmd.Flags().StringVar(&schedStart, "start", "09:00", "Window start, HH:MM")
	scheduleSetCmd.Flags().StringVar(&schedEnd, "end", "17:00", "Window end, HH:MM")
	scheduleSetCmd.Flags().StringVar(&schedDays, "days", "1,2,3,4,5", "Comma-separated weekdays, 0=Sunday")

	sitesCmd.AddCommand(sitesListCmd, sitesAddCmd, sitesRemoveCmd)
	messagesCmd.AddCommand(messagesListCmd, messagesAddCmd, messagesRemoveCmd)
	scheduleCmd.AddCommand(scheduleShowCmd, scheduleSetCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(ttsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// dataDir is where settings, the encryption key and the event log live.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/var/tmp", "sitemon")
	}
	return filepath.Join(home, ".config", "sitemon")
}

func openSettings() (*infra.FileSettingsStore, error) {
	return infra.NewFileSettingsStore(dataDir())
}

func runStart(cmd *cobra.Command, args []string) error {
	pm := infra.NewProcessManager()
	runState := infra.NewFileRunState()

	if state, _ := runState.Get(); state != nil && pm.IsRunning(state.DaemonPID) {
		fmt.Println("sitemon is already running")
		return nil
	}

	name := daemon.GenerateDaemonName()
	if err := daemon.StartDaemon(name); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Give the daemon a moment to register.
	time.Sleep(500 * time.Millisecond)

	fmt.Println("sitemon daemon started")
	if state, _ := runState.Get(); state != nil {
		fmt.Printf("PID: %d\n", state.DaemonPID)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	pm := infra.NewProcessManager()
	runState := infra.NewFileRunState()

	fmt.Println("\n=== sitemon Status ===")

	state, err := runState.Get()
	if err != nil || state == nil {
		fmt.Println("Daemon: NOT RUNNING")
	} else if pm.IsRunning(state.DaemonPID) {
		fmt.Printf("Daemon: RUNNING (pid %d)\n", state.DaemonPID)
		if state.LastHeartbeat > 0 {
			lastBeat := time.Unix(state.LastHeartbeat, 0)
			fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
		}
	} else {
		fmt.Println("Daemon: DEAD (stale run state)")
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	if disabled, err := settings.GetTemporaryDisabled(); err == nil && disabled {
		fmt.Println("Blocking: PAUSED (run 'sitemon resume')")
	} else {
		fmt.Println("Blocking: active")
	}

	cfg, err := settings.GetSettings()
	if err != nil || cfg == nil {
		fmt.Println("Configuration: none")
		fmt.Println("======================")
		return nil
	}

	fmt.Printf("Schedule: %s\n", describeSchedule(cfg.Schedule))
	fmt.Printf("Blocked sites: %d\n", len(cfg.BlockedSites))
	fmt.Printf("Text-to-speech: %v\n", cfg.EnableTTS)
	fmt.Println("======================")
	return nil
}

func describeSchedule(s domain.Schedule) string {
	if !s.Enabled {
		return "disabled (blocking always active)"
	}
	dayNames := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	var days []string
	for _, d := range s.WorkDays {
		if d >= 0 && d <= 6 {
			days = append(days, dayNames[d])
		}
	}
	return fmt.Sprintf("%s-%s on %s", s.StartTime, s.EndTime, strings.Join(days, ","))
}

func runPause(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	if err := settings.SetTemporaryDisabled(true); err != nil {
		return err
	}
	fmt.Println("Blocking paused. Run 'sitemon resume' when the guilt sets in.")
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	if err := settings.SetTemporaryDisabled(false); err != nil {
		return err
	}
	fmt.Println("Blocking resumed.")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	logger := zap.NewNop()
	decider := usecase.NewDecider(settings, nil, logger)

	if decider.ShouldBlock(args[0]) {
		fmt.Printf("%s -> BLOCKED\n", args[0])
	} else {
		fmt.Printf("%s -> allowed\n", args[0])
	}
	return nil
}

func runSitesList(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil || len(cfg.BlockedSites) == 0 {
		fmt.Println("No blocked sites.")
		return nil
	}
	for _, site := range cfg.BlockedSites {
		fmt.Printf("  - %s\n", site)
	}
	return nil
}

func runSitesAdd(cmd *cobra.Command, args []string) error {
	site := match.Normalize(args[0])
	if site == "" {
		return fmt.Errorf("site must not be empty")
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = domain.DefaultSettings()
	}

	for _, existing := range cfg.BlockedSites {
		if existing == site {
			fmt.Printf("%s is already blocked\n", site)
			return nil
		}
	}

	cfg.BlockedSites = append(cfg.BlockedSites, site)
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Printf("Blocked %s\n", site)
	return nil
}

func runSitesRemove(cmd *cobra.Command, args []string) error {
	site := match.Normalize(args[0])

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no configuration")
	}

	kept := cfg.BlockedSites[:0]
	found := false
	for _, existing := range cfg.BlockedSites {
		if existing == site {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return fmt.Errorf("%s is not in the blocked list", site)
	}

	cfg.BlockedSites = kept
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Printf("Unblocked %s\n", site)
	return nil
}

func runMessagesList(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no configuration")
	}
	for i, msg := range cfg.DespairMessages {
		fmt.Printf("  [%d] %s\n", i, msg)
	}
	return nil
}

func runMessagesAdd(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(args[0])
	if message == "" {
		return fmt.Errorf("message must not be empty")
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = domain.DefaultSettings()
	}

	cfg.DespairMessages = append(cfg.DespairMessages, message)
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Println("Message added.")
	return nil
}

func runMessagesRemove(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %w", err)
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no configuration")
	}
	if index < 0 || index >= len(cfg.DespairMessages) {
		return fmt.Errorf("index %d out of range", index)
	}
	// The overlay always needs something to say.
	if len(cfg.DespairMessages) == 1 {
		return fmt.Errorf("cannot remove the last despair message")
	}

	cfg.DespairMessages = append(cfg.DespairMessages[:index], cfg.DespairMessages[index+1:]...)
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Println("Message removed.")
	return nil
}

func runScheduleShow(cmd *cobra.Command, args []string) error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no configuration")
	}
	fmt.Println(describeSchedule(cfg.Schedule))
	return nil
}

func runScheduleSet(cmd *cobra.Command, args []string) error {
	days, err := parseDays(schedDays)
	if err != nil {
		return err
	}

	sched := domain.Schedule{
		Enabled:   schedEnabled,
		StartTime: schedStart,
		EndTime:   schedEnd,
		WorkDays:  days,
	}
	if err := schedule.Validate(sched); err != nil {
		return err
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = domain.DefaultSettings()
	}

	cfg.Schedule = sched
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Printf("Schedule updated: %s\n", describeSchedule(sched))
	return nil
}

func parseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid day %q: %w", part, err)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("at least one work day is required")
	}
	return days, nil
}

func runTTS(cmd *cobra.Command, args []string) error {
	var enable bool
	switch args[0] {
	case "on":
		enable = true
	case "off":
		enable = false
	case "test":
		return runTTSTest()
	default:
		return fmt.Errorf("expected 'on', 'off' or 'test', got %q", args[0])
	}

	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = domain.DefaultSettings()
	}

	cfg.EnableTTS = enable
	if err := settings.SetSettings(cfg); err != nil {
		return err
	}
	fmt.Printf("Text-to-speech %s\n", args[0])
	return nil
}

// runTTSTest speaks the first configured despair message out loud.
func runTTSTest() error {
	settings, err := openSettings()
	if err != nil {
		return err
	}
	defer settings.Close()

	cfg, err := settings.GetSettings()
	if err != nil {
		return err
	}
	if cfg == nil || len(cfg.DespairMessages) == 0 {
		return fmt.Errorf("no despair messages configured")
	}

	message := cfg.DespairMessages[0]
	fmt.Printf("Speaking: %q\n", message)
	return infra.NewSystemSpeaker().Speak(context.Background(), message)
}

func runEvents(cmd *cobra.Command, args []string) error {
	key, err := infra.NewFileKeyProvider(dataDir()).GetOrCreateKey()
	if err != nil {
		return fmt.Errorf("opening event log key: %w", err)
	}

	log, err := infra.NewEncryptedEventLog(dataDir(), key)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer log.Close()

	events, err := log.Recent(eventsLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No ignored blocks. Impressive.")
		return nil
	}

	fmt.Println("\n=== Ignored Blocks ===")
	for _, ev := range events {
		fmt.Printf("%s  %s\n", ev.OccurredAt.Format("2006-01-02 15:04"), ev.URL)
		if ev.Message != "" {
			fmt.Printf("    %q\n", ev.Message)
		}
	}
	fmt.Println("======================")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if daemonName == "" {
		return fmt.Errorf("--name is required")
	}

	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	settings, err := openSettings()
	if err != nil {
		logger.Error("failed to open settings", zap.Error(err))
		return err
	}
	defer settings.Close()

	key, err := infra.NewFileKeyProvider(dataDir()).GetOrCreateKey()
	if err != nil {
		logger.Error("failed to load event log key", zap.Error(err))
		return err
	}
	events, err := infra.NewEncryptedEventLog(dataDir(), key)
	if err != nil {
		logger.Error("failed to open event log", zap.Error(err))
		return err
	}
	defer events.Close()

	pm := infra.NewProcessManager()
	runState := infra.NewFileRunState()
	bus := infra.NewBus(logger)
	alarms := infra.NewTimerAlarmService()
	defer func() { _ = alarms.ClearAll() }()
	scheduler := alarm.NewScheduler(alarms, nil, logger)
	decider := usecase.NewDecider(settings, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	d := daemon.NewDaemon(
		daemon.DefaultConfig(),
		settings,
		runState,
		decider,
		scheduler,
		bus,
		events,
		pm,
		daemonName,
		logger,
	)
	return d.Run(ctx)
}

// createLogger writes structured logs to a size-capped rolling file.
func createLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   "/var/tmp/sitemon.log",
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	})

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writer,
		zap.InfoLevel,
	)
	return zap.New(core)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("sitemon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
