package telemetrygen

import (
	"context"
	"fmt"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	"github.com/okian/kartscore/pkg/logger"
)

const flushEvery = 1024

// Run generates a log for config and appends it to config.Output.
func Run(ctx context.Context, config *Config) (Stats, error) {
	if err := config.Validate(); err != nil {
		return Stats{}, err
	}
	if config.Output == "" {
		return Stats{}, fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}

	log := logger.Named("telemetrygen")
	log.Info(ctx, "generating telemetry",
		logger.Int("sessions", config.Sessions),
		logger.Int("frames", config.Frames),
		logger.Int64("seed", config.Seed),
		logger.String("output", config.Output),
	)

	records, stats := NewGenerator(*config).Generate()

	sink, err := csvlog.OpenSink(config.Output)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			log.Error(context.Background(), "failed to close sink", logger.Error(cerr))
		}
	}()

	for i := range records {
		if i%flushEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("generation interrupted after %d records: %w", i, err)
			}
			if err := sink.Flush(); err != nil {
				return stats, err
			}
		}
		if err := sink.Append(&records[i]); err != nil {
			return stats, err
		}
	}
	if err := sink.Flush(); err != nil {
		return stats, err
	}

	profiles := make([]logger.Field, 0, len(stats.ByProfile))
	for p := Profile(0); p < profileCount; p++ {
		profiles = append(profiles, logger.Int(p.String(), stats.ByProfile[p]))
	}
	log.Info(ctx, "telemetry written",
		append([]logger.Field{logger.Int("records", stats.Records), logger.Duration("duration", stats.Duration)}, profiles...)...,
	)
	return stats, nil
}
