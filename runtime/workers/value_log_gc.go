package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// ValueLogGC reclaims badger value log space left over by rewritten room documents and cursors.
type ValueLogGC struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewValueLogGC(log *slog.Logger, db *badger.DB, interval time.Duration) *ValueLogGC {
	return &ValueLogGC{log: log, db: db, interval: interval}
}

func (w *ValueLogGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping value log GC")
			return nil
		case <-ticker.C:
			if err := w.collect(ctx); err != nil {
				return err
			}
		}
	}
}

// collect rewrites value log files until badger has nothing left to reclaim.
func (w *ValueLogGC) collect(ctx context.Context) error {
	rewrites := 0
	for ctx.Err() == nil {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			rewrites++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			if rewrites > 0 {
				w.log.Debug("Value log GC done", "rewrites", rewrites)
			}
			return nil
		default:
			return err
		}
	}
	return nil
}
