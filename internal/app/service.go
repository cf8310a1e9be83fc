// Package service runs the frustration scoring pipeline: read a closed
// telemetry log, group it into sessions, score each session on a worker pool
// and write the score table.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	eventqueue "github.com/okian/kartscore/internal/adapters/mq/queue"
	workerpool "github.com/okian/kartscore/internal/adapters/mq/worker"
	"github.com/okian/kartscore/internal/adapters/repository"
	"github.com/okian/kartscore/internal/domain/grouping"
	"github.com/okian/kartscore/internal/domain/model"
	"github.com/okian/kartscore/internal/domain/scoring"
	"github.com/okian/kartscore/pkg/logger"
	"github.com/okian/kartscore/pkg/metrics"
)

// Service wires the pipeline stages together. A Service holds no state
// between runs and may run several batches one after another.
type Service struct {
	workerCount int
	order       repository.Order
	policy      csvlog.Policy
	reportPath  string
	scorerOpts  []scoring.Option
	scorer      workerpool.Scorer

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithOrder sets the row order of the score table.
func WithOrder(o repository.Order) Option {
	return func(s *Service) {
		if o != "" {
			s.order = o
		}
	}
}

// WithMalformedPolicy sets what happens to malformed input rows.
func WithMalformedPolicy(p csvlog.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithWeights sets the score weights.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) {
		s.scorerOpts = append(s.scorerOpts, scoring.WithWeights(w))
	}
}

// WithSpeedDropThreshold sets the speed delta below which a drop is counted.
func WithSpeedDropThreshold(threshold float64) Option {
	return func(s *Service) {
		s.scorerOpts = append(s.scorerOpts, scoring.WithSpeedDropThreshold(threshold))
	}
}

// WithReportPath makes every run write its summary report to path.
func WithReportPath(path string) Option {
	return func(s *Service) {
		s.reportPath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		order:       repository.ByAppearance,
		policy:      csvlog.Reject,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}

	return s
}

// Run scores the telemetry log at in and writes the score table to out.
// The returned report is filled as far as the run got, also on error.
func (s *Service) Run(ctx context.Context, in, out string) (*Report, error) {
	if in == "" || out == "" {
		return nil, ErrMissingPath
	}

	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Input:     in,
		Output:    out,
		StartedAt: start.UTC(),
	}
	log := s.logger
	log.Info(ctx, "run started",
		logger.String("run_id", report.RunID),
		logger.String("input", in),
		logger.String("output", out),
	)

	err := s.run(ctx, report)
	report.Elapsed = time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
		report.Error = err.Error()
	}
	metrics.RecordRun(status, report.Elapsed.Seconds(), time.Now().Unix())

	if s.reportPath != "" {
		if werr := WriteReport(s.reportPath, report); werr != nil {
			log.Error(ctx, "writing run report failed", logger.String("path", s.reportPath), logger.Error(werr))
			if err == nil {
				err = werr
			}
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn(ctx, "run interrupted", logger.String("run_id", report.RunID), logger.Error(err))
		} else {
			log.Error(ctx, "run failed", logger.String("run_id", report.RunID), logger.Error(err))
		}
		return report, err
	}

	log.Info(ctx, "run completed",
		logger.String("run_id", report.RunID),
		logger.Int("records_read", report.RecordsRead),
		logger.Int("malformed_skipped", report.MalformedSkipped),
		logger.Int("sessions", report.Sessions),
		logger.Int("sessions_scored", report.SessionsScored),
		logger.Int("warnings", len(report.Warnings)),
		logger.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (s *Service) run(ctx context.Context, report *Report) error {
	reader := csvlog.NewReader(csvlog.WithPolicy(s.policy), csvlog.WithLogger(s.logger.Named("reader")))
	read, err := reader.ReadFile(ctx, report.Input)
	if err != nil {
		return fmt.Errorf("read %s: %w", report.Input, err)
	}
	report.RecordsRead = len(read.Records)
	report.MalformedSkipped = len(read.Skipped)
	for _, bad := range read.Skipped {
		report.addMalformed(bad)
	}

	scores, err := s.Score(ctx, read.Records, report)
	if err != nil {
		return err
	}

	if err := csvlog.NewEmitter().WriteFile(report.Output, scores); err != nil {
		return fmt.Errorf("write %s: %w", report.Output, err)
	}
	return nil
}

// Score groups records into sessions and scores them on the worker pool.
// Rows are returned in the service's order. Anomalies are logged and, when
// report is not nil, appended to it.
func (s *Service) Score(ctx context.Context, records []model.TelemetryRecord, report *Report) ([]model.SessionScore, error) {
	if report == nil {
		report = &Report{}
	}

	groupStart := time.Now()
	grouped := grouping.Group(records)
	metrics.RecordStageDuration("group", float64(time.Since(groupStart).Microseconds())/1000)
	metrics.UpdateSessionsGrouped(len(grouped.Sessions))
	report.Sessions = len(grouped.Sessions)

	for _, w := range grouped.Warnings {
		s.warn(ctx, report, w)
	}

	empty := make(map[int64]bool)
	for _, w := range grouping.CheckEmpty(grouped.Sessions) {
		s.warn(ctx, report, w)
		empty[w.SessionID()] = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scoreStart := time.Now()
	store, err := s.scoreSessions(ctx, grouped.Sessions, empty)
	metrics.RecordStageDuration("score", float64(time.Since(scoreStart).Microseconds())/1000)
	if err != nil {
		return nil, err
	}
	report.SessionsScored = store.Count(ctx)

	return store.Ordered(ctx, s.order)
}

// scoreSessions fans sessions out to the worker pool. Each session's slot is
// its first-appearance index, so the store keeps input order regardless of
// which worker finishes first.
func (s *Service) scoreSessions(ctx context.Context, sessions []model.Session, skip map[int64]bool) (*repository.MemoryStore, error) {
	store := repository.NewMemoryStore(len(sessions))
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(len(sessions)))

	for i := range sessions {
		if skip[sessions[i].ID] {
			continue
		}
		if err := q.Enqueue(ctx, eventqueue.Job{Slot: i, Session: &sessions[i]}); err != nil {
			_ = q.Close()
			return nil, fmt.Errorf("enqueue session %d: %w", sessions[i].ID, err)
		}
	}
	if err := q.Close(); err != nil {
		return nil, fmt.Errorf("close queue: %w", err)
	}

	workers := s.workerCount
	if workers > len(sessions) {
		workers = len(sessions)
	}
	if workers < 1 {
		workers = 1
	}

	scorer := s.scorer
	if scorer == nil {
		scorer = scoring.NewSessionScorer(s.scorerOpts...)
	}
	pool := workerpool.NewPool(workers, q, scorer, store)
	pool.Start(ctx)
	err := pool.Wait(ctx)

	// Wait returns as soon as ctx ends; jobs already inside Score or Put
	// must finish before the store is dropped.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if shutdownErr := pool.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(shutdownErr))
		}
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	return store, nil
}

func (s *Service) warn(ctx context.Context, report *Report, w grouping.Warning) {
	metrics.RecordWarning(w.Kind())
	s.logger.Warn(ctx, w.String(), logger.String("kind", w.Kind()), logger.Int64("session", w.SessionID()))
	report.addWarning(w)
}
