package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kstaniek/iips-core/internal/observer"
)

// logNotices subscribes to reg and logs every event at an appropriate
// level, so operators running without the Redis event bus still see
// connection transitions and rejected uploads on stderr.
func logNotices(ctx context.Context, reg *observer.Registry, l *slog.Logger, wg *sync.WaitGroup) {
	sub := observer.NewSubscriber(32)
	reg.Subscribe(sub)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reg.Unsubscribe(sub)
		for {
			select {
			case ev := <-sub.Out:
				switch e := ev.(type) {
				case observer.ConnectionChanged:
					l.Info("connection_changed", "connected", e.Connected)
				case observer.PlanReady:
					l.Info("plan_ready", "path", e.Path)
				case observer.Notice:
					l.Warn("notice", "text", e.Text)
				}
			case <-sub.Closed:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}
