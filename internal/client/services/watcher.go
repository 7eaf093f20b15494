package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
)

const pingTimeout = 3 * time.Second

// OnlineWatcher probes the server periodically and tracks reachability.
// The offline-to-online transition fires the callback once, which the app
// uses to trigger an immediate sync cycle.
type OnlineWatcher struct {
	remote   client.Client
	interval time.Duration
	logger   logging.Logger
	onOnline func()

	online atomic.Bool
}

// NewOnlineWatcher builds a watcher. onOnline may be nil.
func NewOnlineWatcher(remote client.Client, interval time.Duration, onOnline func(), logger logging.Logger) *OnlineWatcher {
	return &OnlineWatcher{remote: remote, interval: interval, onOnline: onOnline, logger: logger}
}

// IsOnline reports the last observed reachability.
func (w *OnlineWatcher) IsOnline() bool {
	return w.online.Load()
}

// Run probes immediately and then on the interval until ctx is canceled.
func (w *OnlineWatcher) Run(ctx context.Context) {
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *OnlineWatcher) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	reachable := w.remote.Ping(pingCtx) == nil
	was := w.online.Swap(reachable)

	if reachable == was {
		return
	}
	if reachable {
		w.logger.Info(ctx, "server reachable, switching to online mode")
		if w.onOnline != nil {
			w.onOnline()
		}
	} else {
		w.logger.Info(ctx, "server unreachable, switching to offline mode")
	}
}
