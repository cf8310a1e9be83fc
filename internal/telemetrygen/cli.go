package telemetrygen

import "os"

// ShowHelp prints usage information for the generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Kart Telemetry Generator
========================

Writes a deterministic synthetic telemetry log, one row per frame, in the
format kartscore reads.

Usage:
  go run ./cmd/gen-telemetry [options]

Options:
  -out string
        Telemetry log to append to (default "telemetry.csv")
  -sessions int
        Number of race attempts (default 20)
  -frames int
        Frames per session (default 600)
  -interval duration
        Time between frames (default 16ms)
  -seed int
        Random seed; the same seed produces the same log (default 1)
  -interleave
        Interleave sessions by time, as concurrent races would (default true)
  -drift float
        Probability a frame carries a wrong difficulty (default 0)
  -help
        Show this help message

Examples:
  # Demo log for the scorer
  go run ./cmd/gen-telemetry -out telemetry.csv
  go run ./cmd -in telemetry.csv -out scores.csv

  # Larger log with metadata anomalies
  go run ./cmd/gen-telemetry -sessions 500 -drift 0.001 -seed 42
`)
}
