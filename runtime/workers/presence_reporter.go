package workers

import (
	"context"
	"listing-chat/contract"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// PresenceReporter periodically logs how many users and connections are live,
// together with the memory held by the server process.
type PresenceReporter struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewPresenceReporter(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *PresenceReporter {
	return &PresenceReporter{log: log, registry: registry, interval: interval}
}

func (w *PresenceReporter) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence reporter")
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *PresenceReporter) report(p *process.Process) {
	users, connections := w.registry.Stats()
	attrs := []any{"users", users, "connections", connections}

	if memInfo, err := p.MemoryInfo(); err != nil {
		w.log.Debug("Failed to collect process memory", "error", err)
	} else {
		attrs = append(attrs, "rss_mb", memInfo.RSS/1024/1024)
	}
	w.log.Info("Presence", attrs...)
}
