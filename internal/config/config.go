// Package config defines the pipeline configuration and its loading hooks.
//
// Conventions:
//   - New() returns a Config holding the documented defaults.
//   - Load layers defaults, an optional YAML file and KART_* environment vars.
//   - Validation failures wrap ErrInvalidConfig, loading failures ErrLoadConfig.
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	promlabels "github.com/prometheus/common/model"

	"github.com/okian/kartscore/internal/adapters/csvlog"
	"github.com/okian/kartscore/internal/adapters/repository"
)

// Weights are the coefficients of the frustration score.
type Weights struct {
	OffGround   float64 `koanf:"off_ground"`
	SpeedDrop   float64 `koanf:"speed_drop"`
	SteerChange float64 `koanf:"steer_change"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// InputPath is the telemetry table to read. Usually given on the command line.
	InputPath string `koanf:"input_path"`

	// OutputPath is where the per-session score table is written.
	OutputPath string `koanf:"output_path"`

	// ReportPath, when set, receives a YAML run summary.
	ReportPath string `koanf:"report_path"`

	// MetricsPath, when set, receives a Prometheus textfile dump after each run.
	MetricsPath string `koanf:"metrics_path"`

	// MetricsLabels are constant labels put on every metric, e.g. the
	// dataset or host a run belongs to.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// SpeedDropThreshold is the frame-to-frame speed delta below which a drop
	// is counted. Strictly less than; negative.
	SpeedDropThreshold float64 `koanf:"speed_drop_threshold"`

	// Weights of the frustration score. Exposed for experimentation only.
	Weights Weights `koanf:"weights"`

	// WorkerCount sets the number of scoring workers. 1 scores sequentially.
	WorkerCount int `koanf:"worker_count"`

	// SortBy selects the output row order; see repository.ParseOrder.
	SortBy string `koanf:"sort_by"`

	// MalformedPolicy is either "reject" (abort on first bad row) or "skip".
	MalformedPolicy string `koanf:"malformed_policy"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		SpeedDropThreshold: -5.0,
		Weights: Weights{
			OffGround:   0.4,
			SpeedDrop:   0.4,
			SteerChange: 0.2,
		},
		WorkerCount:     runtime.NumCPU(),
		SortBy:          string(repository.ByAppearance),
		MalformedPolicy: csvlog.Reject.String(),
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if !finite(c.SpeedDropThreshold) {
		return fmt.Errorf("%w: speed_drop_threshold must be finite", ErrInvalidConfig)
	}
	if !finite(c.Weights.OffGround) || !finite(c.Weights.SpeedDrop) || !finite(c.Weights.SteerChange) {
		return fmt.Errorf("%w: weights must be finite", ErrInvalidConfig)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be at least 1, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	for name := range c.MetricsLabels {
		if !promlabels.LabelName(name).IsValidLegacy() || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: invalid metrics label name %q", ErrInvalidConfig, name)
		}
	}
	if _, err := repository.ParseOrder(c.SortBy); err != nil {
		return fmt.Errorf("%w: sort_by: %w", ErrInvalidConfig, err)
	}
	if _, err := csvlog.ParsePolicy(c.MalformedPolicy); err != nil {
		return fmt.Errorf("%w: malformed_policy: %w", ErrInvalidConfig, err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
