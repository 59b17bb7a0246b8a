// Package inbox watches a directory for newly dropped workbook files and
// hands each one to an ingest callback. It exists for the watch command:
// operators export workbooks into an inbox directory and the pipeline
// picks them up without further interaction.
package inbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/confpilot/confpilot/pkg/telemetry"
)

const defaultSettleDelay = 500 * time.Millisecond

// Handler ingests one dropped file. Errors are logged and do not stop
// the watcher.
type Handler func(ctx context.Context, path string) error

// Watcher tails a directory and invokes the handler once per dropped
// tabular file, after writes have settled.
type Watcher struct {
	dir     string
	handler Handler
	logger  *telemetry.Logger

	// SettleDelay is how long a file must stay quiet before it is
	// considered fully written.
	SettleDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, handler Handler, logger *telemetry.Logger) *Watcher {
	return &Watcher{
		dir:         dir,
		handler:     handler,
		logger:      logger.NewComponentLogger("inbox"),
		SettleDelay: defaultSettleDelay,
		timers:      make(map[string]*time.Timer),
	}
}

// Run blocks processing events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.WithField("dir", w.dir).Info("watching inbox")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !supportedFile(event.Name) {
				continue
			}
			w.scheduleIngest(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watch error")
		}
	}
}

// scheduleIngest (re)arms the per-file settle timer. Editors and exports
// write in bursts; only the last event within the settle window triggers
// ingestion.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.SettleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.handler(ctx, path); err != nil {
			w.logger.WithField("file", path).WithError(err).Warn("ingest failed")
			return
		}
		w.logger.WithField("file", path).Info("file ingested")
	})
}

func supportedFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".xlsx") ||
		strings.HasSuffix(lower, ".xlsm") ||
		strings.HasSuffix(lower, ".csv")
}
