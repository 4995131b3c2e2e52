package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/analytics"
	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/executor"
	"github.com/studiowebux/ballast/internal/history"
	"github.com/studiowebux/ballast/internal/metrics"
	"github.com/studiowebux/ballast/internal/report"
	"github.com/studiowebux/ballast/internal/stresstest"
)

// ErrEndpointsFailed is returned in strict mode when any endpoint fails
var ErrEndpointsFailed = errors.New("endpoints failed")

// RunOptions contains options for a load-test invocation
type RunOptions struct {
	ConfigPath     string
	SnapshotPath   string
	Store          string // json, sqlite
	NoSnapshot     bool   // dry run: compare but do not append
	Description    string
	OutputFormat   string // text, json, yaml
	MetricsFile    string
	Strict         bool
	RequestTimeout time.Duration

	Logger *zap.Logger
	Stdout io.Writer // reports
	Stderr io.Writer // progress and status lines
}

func (o *RunOptions) defaults() {
	if o.ConfigPath == "" {
		o.ConfigPath = config.DefaultConfigPath
	}
	if o.SnapshotPath == "" {
		o.SnapshotPath = config.DefaultSnapshotPath
	}
	if o.Store == "" {
		o.Store = config.StoreJSON
	}
	if o.OutputFormat == "" {
		o.OutputFormat = report.FormatText
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Run loads every configured endpoint, evaluates the results against the
// latest snapshot, reports them and appends a new snapshot.
func Run(ctx context.Context, opts RunOptions) error {
	opts.defaults()
	log := opts.Logger

	if !report.ValidFormat(opts.OutputFormat) {
		return fmt.Errorf("unknown output format %q", opts.OutputFormat)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	status := report.NewPrinter(opts.Stderr)
	status.Status("Loaded config with %d tests from %s", len(cfg.Endpoints), opts.ConfigPath)

	store, err := history.Open(opts.Store, opts.SnapshotPath, history.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()

	// Read history before any traffic so a corrupt store fails fast
	latest, err := store.Latest()
	if err != nil {
		return err
	}
	if latest != nil {
		log.Debug("comparing against snapshot", zap.Uint64("timestamp", latest.Timestamp), zap.String("id", latest.ID))
	}

	execOpts := []executor.Option{
		executor.WithLogger(log),
		executor.WithPoolSize(maxConcurrency(cfg)),
	}
	if opts.RequestTimeout > 0 {
		execOpts = append(execOpts, executor.WithTimeout(opts.RequestTimeout))
	}
	runner := stresstest.NewRunner(executor.New(execOpts...),
		stresstest.WithObserver(status),
		stresstest.WithLogger(log),
	)

	runs, err := runner.Run(ctx, cfg.Endpoints)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled: %w", err)
	}

	results, err := analytics.Process(runs, cfg, latest)
	if err != nil {
		return err
	}

	reports, err := report.Compare(results, cfg, latest)
	if err != nil {
		return err
	}
	if err := report.Render(opts.Stdout, reports, opts.OutputFormat); err != nil {
		return err
	}

	if !opts.NoSnapshot {
		snap, err := store.Append(results, opts.Description)
		if err != nil {
			return err
		}
		status.Status("Saved snapshot with %d tests to %s", len(snap.Outputs), opts.SnapshotPath)
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile, results); err != nil {
			return err
		}
		log.Debug("metrics written", zap.String("path", opts.MetricsFile))
	}

	if _, failed := report.Counts(reports); opts.Strict && failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrEndpointsFailed, failed, len(reports))
	}
	return nil
}

func maxConcurrency(cfg *config.Config) int {
	n := 0
	for _, ep := range cfg.Endpoints {
		if ep.ConcurrentRequests > n {
			n = ep.ConcurrentRequests
		}
	}
	return n
}

// HistoryOptions selects the snapshot store to list
type HistoryOptions struct {
	SnapshotPath string
	Store        string
	OutputFormat string // text, json, yaml
	Logger       *zap.Logger
	Stdout       io.Writer
}

// History prints every stored snapshot, oldest first
func History(opts HistoryOptions) error {
	if opts.SnapshotPath == "" {
		opts.SnapshotPath = config.DefaultSnapshotPath
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	store, err := history.Open(opts.Store, opts.SnapshotPath, history.WithLogger(opts.Logger))
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.List()
	if err != nil {
		return err
	}

	switch opts.OutputFormat {
	case report.FormatText, "":
		report.NewPrinter(opts.Stdout).Snapshots(snapshots)
		return nil
	case report.FormatJSON, report.FormatYAML:
		return writeStructured(opts.Stdout, snapshots, opts.OutputFormat)
	default:
		return fmt.Errorf("unknown output format %q", opts.OutputFormat)
	}
}

// Validate loads the endpoint file and checks every method without sending traffic
func Validate(configPath string, w io.Writer) error {
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	if w == nil {
		w = os.Stdout
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	exec := executor.New()
	for i := range cfg.Endpoints {
		if _, err := exec.Prepare(&cfg.Endpoints[i]); err != nil {
			return err
		}
	}

	report.NewPrinter(w).Status("%s: %d endpoints OK", configPath, len(cfg.Endpoints))
	return nil
}
