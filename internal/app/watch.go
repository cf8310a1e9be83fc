package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/kartscore/pkg/logger"
)

// defaultSettle is how long the input must stay quiet before a re-run.
const defaultSettle = 250 * time.Millisecond

// Watch runs the batch once, then again every time the input file is
// written or replaced, until ctx is cancelled. A failing run is logged and
// the watch goes on. onRun, when not nil, receives every run's outcome.
//
// The parent directory is watched rather than the file, so producers that
// replace the log by rename are seen too.
func (s *Service) Watch(ctx context.Context, in, out string, onRun func(*Report, error)) error {
	if in == "" || out == "" {
		return ErrMissingPath
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(in)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	runOnce := func() {
		r, err := s.Run(ctx, in, out)
		if onRun != nil {
			onRun(r, err)
		}
	}

	s.logger.Info(ctx, "watching input for changes", logger.String("input", in))
	runOnce()

	settle := time.NewTimer(defaultSettle)
	settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Producers write in bursts; wait until the file settles.
			settle.Reset(defaultSettle)

		case <-settle.C:
			s.logger.Info(ctx, "input changed, re-running", logger.String("input", in))
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error(ctx, "watcher error", logger.Error(err))
		}
	}
}
