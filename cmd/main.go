package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	"github.com/okian/kartscore/internal/adapters/repository"
	app "github.com/okian/kartscore/internal/app"
	"github.com/okian/kartscore/internal/config"
	"github.com/okian/kartscore/internal/domain/scoring"
	"github.com/okian/kartscore/pkg/logger"
	"github.com/okian/kartscore/pkg/metrics"
)

// Exit codes.
const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(exitRun)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole command. Configuration is layered defaults, then the
// optional file named by KART_CONFIG, then KART_ env vars, then flags.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "kartscore: %v\n", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("kartscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in      = fs.String("in", cfg.InputPath, "telemetry log to score")
		out     = fs.String("out", cfg.OutputPath, "score table to write")
		sortBy  = fs.String("sort", cfg.SortBy, "row order: appearance, session, track, difficulty or score")
		report  = fs.String("report", cfg.ReportPath, "write a YAML run summary to this path")
		prom    = fs.String("metrics", cfg.MetricsPath, "write a Prometheus textfile to this path after each run")
		workers = fs.Int("workers", cfg.WorkerCount, "number of scoring workers")
		policy  = fs.String("malformed", cfg.MalformedPolicy, "malformed row policy: reject or skip")
		watch   = fs.Bool("watch", false, "re-run whenever the input file changes")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: kartscore -in telemetry.csv -out scores.csv [flags]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg.InputPath, cfg.OutputPath = *in, *out
	cfg.SortBy, cfg.ReportPath, cfg.MetricsPath = *sortBy, *report, *prom
	cfg.WorkerCount, cfg.MalformedPolicy = *workers, *policy
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "kartscore: %v\n", err)
		return exitUsage
	}
	if cfg.InputPath == "" || cfg.OutputPath == "" {
		fmt.Fprintln(stderr, "kartscore: -in and -out are required")
		fs.Usage()
		return exitUsage
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "kartscore: %v\n", err)
		return exitUsage
	}

	if cfg.MetricsPath != "" {
		metrics.Configure(metrics.WithConstLabels(cfg.MetricsLabels))
		if err := metrics.RegisterRuntimeCollectors(); err != nil {
			log.Warn(ctx, "runtime collectors unavailable", logger.Error(err))
		}
	}
	dumpMetrics := func() {
		if cfg.MetricsPath == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.MetricsPath); err != nil {
			log.Error(ctx, "writing metrics failed", logger.Error(err))
		}
	}

	if *watch {
		err := svc.Watch(ctx, cfg.InputPath, cfg.OutputPath, func(*app.Report, error) { dumpMetrics() })
		if err != nil {
			fmt.Fprintf(stderr, "kartscore: %v\n", err)
			return exitRun
		}
		return exitOK
	}

	_, err = svc.Run(ctx, cfg.InputPath, cfg.OutputPath)
	dumpMetrics()
	if err != nil {
		fmt.Fprintf(stderr, "kartscore: %v\n", err)
		return exitRun
	}
	return exitOK
}

// newService maps a validated config onto service options.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	order, err := repository.ParseOrder(cfg.SortBy)
	if err != nil {
		return nil, err
	}
	policy, err := csvlog.ParsePolicy(cfg.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	return app.New(
		app.WithLogger(log.Named("pipeline")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithOrder(order),
		app.WithMalformedPolicy(policy),
		app.WithReportPath(cfg.ReportPath),
		app.WithSpeedDropThreshold(cfg.SpeedDropThreshold),
		app.WithWeights(scoring.Weights{
			OffGround:   cfg.Weights.OffGround,
			SpeedDrop:   cfg.Weights.SpeedDrop,
			SteerChange: cfg.Weights.SteerChange,
		}),
	), nil
}
