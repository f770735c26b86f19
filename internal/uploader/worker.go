package uploader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type ReconcileWorker struct {
	service  Service
	interval time.Duration
	opts     ReconcileOptions
	done     chan struct{}
	ticker   *time.Ticker
	mu       sync.Mutex // one pass at a time
	stopOnce sync.Once
}

func NewReconcileWorker(service Service, interval time.Duration, opts ReconcileOptions) *ReconcileWorker {
	return &ReconcileWorker{
		service:  service,
		interval: interval,
		opts:     opts,
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop or ctx
// is cancelled. A non-positive interval runs only the initial pass.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Info().Msg("performing initial reconciliation")
	w.RunOnce(ctx)

	if w.interval <= 0 {
		log.Info().Msg("periodic reconciliation disabled")
		return
	}

	w.ticker = time.NewTicker(w.interval)
	go w.run(ctx)

	log.Info().
		Dur("interval", w.interval).
		Dur("grace_period", w.opts.GracePeriod).
		Bool("delete_orphans", w.opts.DeleteOrphans).
		Msg("started reconcile worker")
}

func (w *ReconcileWorker) Stop() {
	w.stopOnce.Do(func() {
		if w.ticker != nil {
			w.ticker.Stop()
		}
		close(w.done)
		log.Info().Msg("reconcile worker stopped")
	})
}

// RunOnce performs a single pass, waiting for any pass already running
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.service.Reconcile(ctx, w.opts); err != nil {
		log.Error().
			Err(err).
			Msg("error during reconciliation")
	}
}

func (w *ReconcileWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("context cancelled, reconcile worker shutting down")
			return
		case <-w.done:
			return
		case <-w.ticker.C:
			w.RunOnce(ctx)
		}
	}
}
