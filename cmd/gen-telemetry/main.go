package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/kartscore/internal/telemetrygen"
	"github.com/okian/kartscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultSessions = 20
	defaultFrames   = 600
	defaultSeed     = 1
)

func main() {
	var (
		output     = flag.String("out", "telemetry.csv", "Telemetry log to append to")
		sessions   = flag.Int("sessions", defaultSessions, "Number of race attempts")
		frames     = flag.Int("frames", defaultFrames, "Frames per session")
		interval   = flag.Duration("interval", telemetrygen.DefaultFrameInterval, "Time between frames")
		seed       = flag.Int64("seed", defaultSeed, "Random seed")
		interleave = flag.Bool("interleave", true, "Interleave sessions by time")
		drift      = flag.Float64("drift", 0, "Probability a frame carries a wrong difficulty")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		telemetrygen.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &telemetrygen.Config{
		Sessions:        *sessions,
		Frames:          *frames,
		FrameInterval:   *interval,
		Seed:            *seed,
		Interleave:      *interleave,
		Output:          *output,
		DifficultyDrift: *drift,
	}

	start := time.Now()
	if _, err := telemetrygen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Generation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	logger.Get().Info(ctx, "done", logger.Duration("elapsed", time.Since(start)))
}
