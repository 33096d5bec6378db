package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/iips-core/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"decoded", snap.Decoded,
					"sent", snap.Sent,
					"framing_errs", snap.FramingErrs,
					"heartbeats", snap.Heartbeats,
					"waypoints", snap.Waypoints,
					"plans", snap.Plans,
					"acks", snap.Acks,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
