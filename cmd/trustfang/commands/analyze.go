// Package commands implements CLI command handlers for trustfang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/trustfang/internal/config"
	"github.com/Sumatoshi-tech/trustfang/internal/observability"
	"github.com/Sumatoshi-tech/trustfang/pkg/checkpoint"
	"github.com/Sumatoshi-tech/trustfang/pkg/events"
	"github.com/Sumatoshi-tech/trustfang/pkg/gitsource"
	"github.com/Sumatoshi-tech/trustfang/pkg/grimoire"
	"github.com/Sumatoshi-tech/trustfang/pkg/health"
	"github.com/Sumatoshi-tech/trustfang/pkg/version"
)

// sinceLayout is the accepted date format for the --since flag.
const sinceLayout = "2006-01-02"

// Sentinel errors for analyze argument validation.
var (
	// ErrNoSource is returned when no event source was selected.
	ErrNoSource = errors.New(
		"no event source selected. Use exactly one of --url, --repo, or --input",
	)
	// ErrMultipleSources is returned when more than one source was selected.
	ErrMultipleSources = errors.New("only one of --url, --repo, or --input may be set")
)

// AnalyzeCommand holds configuration and dependencies for the analyze command.
type AnalyzeCommand struct {
	configPath string

	serverURL string
	username  string
	password  string
	category  string

	repoPath  string
	inputPath string

	format  string
	outPath string
	noColor bool

	days      int
	limit     int
	since     string
	batchSize int
	strict    bool

	snapshot bool
	resume   bool

	metricsAddr string
}

// NewAnalyzeCommand creates the analyze cobra command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ingest commit events and report project-health metrics",
		Long: `Analyze ingests commit events from a GrimoireLab event server,
a local git repository, or a JSON file, and reports project-health
metrics over everything seen so far.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ac.Run(cmd.Context(), cmd, os.Stdout)
		},
	}

	flags := cmd.Flags()

	flags.StringVarP(&ac.configPath, "config", "c", "", "config file path (default .trustfang.yaml)")

	flags.StringVar(&ac.serverURL, "url", "", "GrimoireLab event server URL")
	flags.StringVar(&ac.username, "username", "", "event server username")
	flags.StringVar(&ac.password, "password", "", "event server password")
	flags.StringVar(&ac.category, "category", "", "event category to fetch")

	flags.StringVar(&ac.repoPath, "repo", "", "local git repository path")
	flags.StringVarP(&ac.inputPath, "input", "i", "", "JSON file with commit events")

	flags.StringVarP(&ac.format, "format", "f", "", "report format: text, json, yaml, html")
	flags.StringVarP(&ac.outPath, "out", "o", "", "write the report to a file instead of stdout")
	flags.BoolVar(&ac.noColor, "no-color", false, "disable colored output")

	flags.IntVar(&ac.days, "days", 0, "cadence window in days")
	flags.IntVar(&ac.limit, "limit", 0, "maximum commits to read from --repo (0 = all)")
	flags.StringVar(&ac.since, "since", "", "only read commits after this date (YYYY-MM-DD, --repo only)")
	flags.IntVar(&ac.batchSize, "batch-size", 0, "events per ingestion batch")
	flags.BoolVar(&ac.strict, "strict", false, "reject --input files with schema-invalid envelopes")

	flags.BoolVar(&ac.snapshot, "snapshot", false, "persist a checkpoint after the run")
	flags.BoolVar(&ac.resume, "resume", false, "restore state from the last checkpoint before ingesting")

	flags.StringVar(&ac.metricsAddr, "metrics-addr", "", "serve /healthz, /readyz, /metrics on this address while running")

	return cmd
}

// Run executes the analyze command end to end.
func (ac *AnalyzeCommand) Run(ctx context.Context, cmd *cobra.Command, stdout io.Writer) error {
	cfg, err := config.LoadConfig(ac.configPath)
	if err != nil {
		return err
	}

	ac.applyConfig(cmd, cfg)

	providers, err := observability.Init(observability.Config{
		ServiceName:        "trustfang",
		ServiceVersion:     version.Version,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		EnablePrometheus:   ac.metricsAddr != "",
		LogLevel:           observability.ParseLogLevel(cfg.Telemetry.LogLevel),
		LogJSON:            cfg.Telemetry.LogJSON,
		ShutdownTimeoutSec: 5,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown", slog.Any("error", shutdownErr))
		}
	}()

	if ac.metricsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(ac.metricsAddr, providers.MetricsHandler)
		if diagErr != nil {
			return diagErr
		}

		defer diag.Close()

		providers.Logger.Info("diagnostics server listening", slog.String("addr", diag.Addr()))
	}

	analyzer := health.NewAnalyzer(health.WithLogger(providers.Logger))

	source, sourceID, err := ac.selectSource(cfg, providers.Logger, analyzer)
	if err != nil {
		return err
	}

	var manager *checkpoint.Manager
	if ac.snapshot || ac.resume {
		manager = checkpoint.NewManager(cfg.Checkpoint.Dir, sourceID)
	}

	if ac.resume {
		snap, loadErr := manager.Load()
		if loadErr != nil && !errors.Is(loadErr, checkpoint.ErrNoCheckpoint) {
			return loadErr
		}

		if loadErr == nil {
			analyzer.Restore(snap)
			providers.Logger.Info("resumed from checkpoint",
				slog.Int("commits", analyzer.CommitCount()))
		}
	}

	ingest, err := observability.NewIngestMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create ingest metrics: %w", err)
	}

	err = source.events(ctx, ingestHandler(ctx, analyzer, ingest, providers.Tracer, source.kind))
	if err != nil {
		return err
	}

	if ac.snapshot {
		saveErr := manager.Save(analyzer.Snapshot())
		if saveErr != nil {
			return saveErr
		}

		providers.Logger.Info("checkpoint saved", slog.String("dir", manager.CheckpointDir()))
	}

	report, err := health.BuildReport(analyzer, ac.days)
	if err != nil {
		return err
	}

	if ac.outPath != "" {
		f, createErr := os.Create(ac.outPath)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}

		return renderToFile(report, ac.format, ac.noColor, f)
	}

	return renderReport(report, ac.format, ac.noColor, stdout)
}

// renderToFile renders the report through w and closes it explicitly, so a
// failed flush on close is surfaced instead of dropped.
func renderToFile(report *health.Report, format string, noColor bool, w io.WriteCloser) error {
	renderErr := renderReport(report, format, noColor, w)

	closeErr := w.Close()
	if renderErr != nil {
		return renderErr
	}

	if closeErr != nil {
		return fmt.Errorf("close output file: %w", closeErr)
	}

	return nil
}

// applyConfig fills unset flags from the loaded configuration. Explicit
// flags always win over config file values.
func (ac *AnalyzeCommand) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if !flags.Changed("url") && ac.serverURL == "" {
		ac.serverURL = cfg.Server.URL
	}

	if !flags.Changed("username") {
		ac.username = cfg.Server.Username
	}

	if !flags.Changed("password") {
		ac.password = cfg.Server.Password
	}

	if !flags.Changed("category") {
		ac.category = cfg.Server.Category
	}

	if !flags.Changed("format") {
		ac.format = cfg.Output.Format
	}

	if !flags.Changed("no-color") {
		ac.noColor = cfg.Output.NoColor
	}

	if !flags.Changed("days") {
		ac.days = cfg.Analysis.DaysInterval
	}

	if !flags.Changed("limit") {
		ac.limit = cfg.Analysis.Limit
	}

	if !flags.Changed("batch-size") {
		ac.batchSize = cfg.Analysis.BatchSize
	}

	if !flags.Changed("strict") {
		ac.strict = cfg.Analysis.Strict
	}

	if !flags.Changed("snapshot") {
		ac.snapshot = cfg.Checkpoint.Enabled
	}

	if !flags.Changed("resume") {
		ac.resume = cfg.Checkpoint.Resume
	}

	if !flags.Changed("metrics-addr") {
		ac.metricsAddr = cfg.Telemetry.MetricsAddr
	}

	if !flags.Changed("out") && ac.outPath == "" {
		ac.outPath = cfg.Output.Path
	}
}

// eventSource abstracts where commit event batches come from.
type eventSource struct {
	kind   string
	events func(ctx context.Context, handler func([]events.Envelope) error) error
}

// selectSource picks exactly one event source from the flags and config.
func (ac *AnalyzeCommand) selectSource(
	cfg *config.Config, logger *slog.Logger, analyzer *health.Analyzer,
) (*eventSource, string, error) {
	selected := 0

	for _, set := range []bool{ac.serverURL != "", ac.repoPath != "", ac.inputPath != ""} {
		if set {
			selected++
		}
	}

	if selected == 0 {
		return nil, "", ErrNoSource
	}

	if selected > 1 {
		return nil, "", ErrMultipleSources
	}

	switch {
	case ac.serverURL != "":
		src, err := ac.serverSource(cfg, logger)

		return src, ac.serverURL, err
	case ac.repoPath != "":
		src, err := ac.repoSource(logger)

		return src, ac.repoPath, err
	default:
		return ac.fileSource(analyzer, logger), ac.inputPath, nil
	}
}

func (ac *AnalyzeCommand) serverSource(cfg *config.Config, logger *slog.Logger) (*eventSource, error) {
	client, err := grimoire.NewClient(ac.serverURL, ac.username, ac.password,
		grimoire.WithLogger(logger),
		grimoire.WithPageSize(ac.batchSize),
		grimoire.WithMaxRetries(uint64(cfg.Server.MaxRetries)),
		grimoire.WithHTTPClient(httpClient(cfg)),
	)
	if err != nil {
		return nil, err
	}

	return &eventSource{
		kind: "server",
		events: func(ctx context.Context, handler func([]events.Envelope) error) error {
			connectErr := client.Connect(ctx)
			if connectErr != nil {
				return connectErr
			}

			return client.FetchEvents(ctx, ac.category, handler)
		},
	}, nil
}

func (ac *AnalyzeCommand) repoSource(logger *slog.Logger) (*eventSource, error) {
	opts := []gitsource.Option{
		gitsource.WithLogger(logger),
		gitsource.WithBatchSize(ac.batchSize),
		gitsource.WithLimit(ac.limit),
	}

	if ac.since != "" {
		since, err := time.Parse(sinceLayout, ac.since)
		if err != nil {
			return nil, fmt.Errorf("parse --since: %w", err)
		}

		opts = append(opts, gitsource.WithSince(since))
	}

	src := gitsource.New(ac.repoPath, opts...)

	return &eventSource{kind: "repo", events: src.Events}, nil
}

func (ac *AnalyzeCommand) fileSource(analyzer *health.Analyzer, logger *slog.Logger) *eventSource {
	return &eventSource{
		kind: "file",
		events: func(_ context.Context, handler func([]events.Envelope) error) error {
			batch, skipped, err := loadEventsFile(ac.inputPath, ac.strict, logger)
			if err != nil {
				return err
			}

			analyzer.AddSkippedEvents(skipped)

			return handler(batch)
		},
	}
}

// ingestHandler feeds batches into the engine, wrapping each batch in a
// span and recording ingest telemetry against it.
func ingestHandler(
	ctx context.Context,
	analyzer *health.Analyzer,
	ingest *observability.IngestMetrics,
	tracer trace.Tracer,
	kind string,
) func([]events.Envelope) error {
	return func(batch []events.Envelope) error {
		spanCtx, span := tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
			attribute.String("source", kind),
			attribute.Int("events", len(batch)),
		))
		defer span.End()

		start := time.Now()
		commitsBefore := analyzer.CommitCount()
		skippedBefore := analyzer.SkippedEvents()

		analyzer.ProcessEvents(batch)

		ingest.RecordBatch(spanCtx, kind,
			analyzer.CommitCount()-commitsBefore,
			analyzer.SkippedEvents()-skippedBefore,
			time.Since(start))

		return ctx.Err()
	}
}

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second}
}
