package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/convertweb/convertclient/internal/registry"
)

// WatchdogConfig tunes the pending-upload watchdog.
type WatchdogConfig struct {
	PollInterval   time.Duration
	PendingTimeout time.Duration
}

// PendingWatchdog flags files whose upload identity never arrived. The
// server gives no explicit rejection signal when it drops a file from an
// upload batch, so without this the file would sit in "uploading" forever
// with no feedback. The watchdog only flags; it never removes the file or
// retries the upload.
type PendingWatchdog struct {
	cfg      WatchdogConfig
	reg      *registry.FileRegistry
	listener Listener
	logger   *zap.Logger
	done     chan struct{}

	firstSeen map[string]time.Time
	flagged   map[string]bool
}

func NewPendingWatchdog(cfg WatchdogConfig, reg *registry.FileRegistry, listener Listener, logger *zap.Logger) *PendingWatchdog {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PendingTimeout == 0 {
		cfg.PendingTimeout = 60 * time.Second
	}
	return &PendingWatchdog{
		cfg:       cfg,
		reg:       reg,
		listener:  listener,
		logger:    logger,
		done:      make(chan struct{}),
		firstSeen: make(map[string]time.Time),
		flagged:   make(map[string]bool),
	}
}

func (w *PendingWatchdog) Start(ctx context.Context) {
	go w.run(ctx)
	w.logger.Info("pending-upload watchdog started", zap.Duration("timeout", w.cfg.PendingTimeout))
}

func (w *PendingWatchdog) Stop() {
	close(w.done)
}

func (w *PendingWatchdog) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(time.Now())
		}
	}
}

func (w *PendingWatchdog) check(now time.Time) {
	pending := w.reg.Pending()

	current := make(map[string]bool, len(pending))
	for _, f := range pending {
		current[f.Name] = true
		first, ok := w.firstSeen[f.Name]
		if !ok {
			w.firstSeen[f.Name] = now
			continue
		}
		if now.Sub(first) >= w.cfg.PendingTimeout && !w.flagged[f.Name] {
			w.flagged[f.Name] = true
			w.logger.Warn("file stuck pending, upload likely rejected", zap.String("file", f.Name))
			w.listener.PendingTimeout(f.Name)
		}
	}

	// Files that resolved or were removed leave the books, so a
	// re-selection starts a fresh window.
	for name := range w.firstSeen {
		if !current[name] {
			delete(w.firstSeen, name)
			delete(w.flagged, name)
		}
	}
}
