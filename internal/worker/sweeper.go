package worker

import (
	"context"
	"time"

	"credit-checkout/internal/ledger"

	"github.com/sirupsen/logrus"
)

// PendingSweeper marks checkouts that never came back from the gateway as
// abandoned. It never contacts the gateway and never credits anyone.
type PendingSweeper struct {
	store    ledger.Store
	ttl      time.Duration
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

func NewPendingSweeper(store ledger.Store, ttl, interval time.Duration, log *logrus.Logger) *PendingSweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PendingSweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		log:      log.WithField("module", "sweeper"),
		now:      time.Now,
	}
}

func (w *PendingSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithFields(logrus.Fields{
		"interval": w.interval.String(),
		"ttl":      w.ttl.String(),
	}).Info("pending sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("pending sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				w.log.WithError(err).Error("sweep failed")
			}
		}
	}
}

func (w *PendingSweeper) process(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.ttl)
	n, err := w.store.AbandonStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.log.WithFields(logrus.Fields{
			"operation": "sweep",
			"abandoned": n,
			"cutoff":    cutoff.Format(time.RFC3339),
		}).Info("stale pending purchases abandoned")
	}
	return n, nil
}
