package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDaemon   bool
	watchSchedule string
	watchStop     bool
	watchQuiet    bool
	watchOnce     bool
	watchDesktop  bool
	watchMinLevel string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the scheduled coaching cycle",
	Long: `Run the coaching cycle on a cron schedule: refresh daily behavior scores
for the trailing window, regenerate and save coaching signals, and alert when
a signal is raised, escalated or cleared, or the total score moves sharply.

The schedule is a cron spec with a seconds field (default from config,
"0 0 7 * * *" is every day at 07:00).

Examples:
  fieldcoach watch                          # run in foreground (ctrl-c to stop)
  fieldcoach watch --once                   # run a single cycle and exit
  fieldcoach watch --schedule "0 */30 * * * *"
  fieldcoach watch --daemon                 # write PID file, log to file
  fieldcoach watch --stop                   # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron spec with seconds field (default: watch.schedule from config)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Run one cycle, print its alerts, and exit")
	watchCmd.Flags().BoolVar(&watchDesktop, "desktop", true, "Send desktop notifications")
	watchCmd.Flags().StringVar(&watchMinLevel, "min-level", "warning", "Lowest alert level sent as a notification: info, warning, critical")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon(cmd.OutOrStdout())
	}

	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	schedule := watchSchedule
	if schedule == "" {
		schedule = e.cfg.Watch.Schedule
	}

	opts := watcher.Options{
		UserID:     e.userID,
		WindowDays: e.cfg.Analytics.WindowDays,
		Schedule:   schedule,
		Refresher:  e.refresher,
		Coach:      e.coach,
		Scorer:     e.calc,
		Logger:     e.logger.Named("watcher"),
	}

	if watchOnce {
		return runOnce(cmd.Context(), cmd.OutOrStdout(), opts)
	}
	if watchDaemon {
		return runDaemon(cmd.Context(), opts)
	}
	return runForeground(cmd.Context(), cmd.OutOrStdout(), opts)
}

// runOnce runs a single cycle against a fresh baseline and prints what
// changed.
func runOnce(ctx context.Context, out io.Writer, opts watcher.Options) error {
	w := watcher.New(opts, nil)
	if err := w.Prime(ctx); err != nil {
		return err
	}
	alerts := w.Check(ctx)
	if flagJSON {
		if alerts == nil {
			alerts = []watcher.Alert{}
		}
		return writeJSON(out, alerts)
	}
	if len(alerts) == 0 {
		fmt.Fprintf(out, "[%s] %s No changes\n", time.Now().Format("15:04:05"), checkMark())
	}
	for _, a := range alerts {
		printAlert(out, a)
	}
	return nil
}

// withShutdown returns a context cancelled on SIGINT/SIGTERM.
func withShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// runForeground runs the watcher in the foreground with live terminal output.
func runForeground(parent context.Context, out io.Writer, opts watcher.Options) error {
	ctx, cancel := withShutdown(parent)
	defer cancel()

	if !watchQuiet {
		fmt.Fprintf(out, "fieldcoach watching... (schedule %q)\n", opts.Schedule)
	}

	notifier := watcher.NewNotifier(watchDesktop, watchMinLevel)
	alertFn := func(a watcher.Alert) {
		_ = notifier.Notify(a)
		if !watchQuiet {
			printAlert(out, a)
		}
	}

	w := watcher.New(opts, alertFn)
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	if !watchQuiet {
		fmt.Fprintf(out, "[%s] %s Baseline: total %d/100, %d open signals\n",
			time.Now().Format("15:04:05"), checkMark(), initial.Metrics.Total, len(initial.Unresolved))
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(parent context.Context, opts watcher.Options) error {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file.
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	ctx, cancel := withShutdown(parent)
	defer cancel()

	writeLog(logFile, "fieldcoach daemon started (PID %d, schedule %q)", pid, opts.Schedule)

	notifier := watcher.NewNotifier(watchDesktop, watchMinLevel)
	notifier.Out = logFile
	alertFn := func(a watcher.Alert) {
		_ = notifier.Notify(a)
		writeLog(logFile, "[%s] %s: %s", a.Level, a.Title, a.Message)
	}

	err = watcher.New(opts, alertFn).Run(ctx)
	if errors.Is(err, context.Canceled) {
		writeLog(logFile, "daemon stopped")
		return nil
	}
	return err
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// writeLog writes a timestamped line to the log file.
func writeLog(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(w, "[%s] %s\n", timestamp, msg)
}

// printAlert formats and prints an alert to the terminal.
func printAlert(w io.Writer, a watcher.Alert) {
	timestamp := a.Time.Format("15:04:05")
	fmt.Fprintf(w, "[%s] %s %s\n", timestamp, alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Fprintf(w, "         %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case "critical":
		return "\xf0\x9f\x94\xb4" // red circle
	case "warning":
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning sign
	case "info":
		return "\xe2\x9c\x93" // check mark
	default:
		return " "
	}
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return "\xe2\x9c\x93"
}
