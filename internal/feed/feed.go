// Package feed delivers board snapshots to the console. A Source pushes
// the latest board over a channel until its context ends; the console
// renders whatever arrives and marks missing sections unavailable rather
// than holding stale data.
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/client"
	"github.com/ppiankov/chainboard/internal/model"
)

// DefaultInterval is the HTTP source's fetch period.
const DefaultInterval = 2 * time.Second

// Source delivers board snapshots. The channel closes when ctx ends.
type Source interface {
	Snapshots(ctx context.Context) <-chan model.BoardSnapshot
}

// HTTPSource polls the OC API on a ticker.
type HTTPSource struct {
	client   *client.Client
	interval time.Duration
	logger   *zap.Logger
}

// NewHTTPSource wraps an API client. A nil logger discards.
func NewHTTPSource(c *client.Client, interval time.Duration, logger *zap.Logger) *HTTPSource {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{client: c, interval: interval, logger: logger}
}

// Snapshots fetches once immediately, then on every tick. Degraded boards
// are delivered too: their section flags say what failed.
func (s *HTTPSource) Snapshots(ctx context.Context) <-chan model.BoardSnapshot {
	out := make(chan model.BoardSnapshot, 1)
	go func() {
		defer close(out)

		fetch := func() {
			snap, err := s.client.FetchBoard(ctx)
			if err != nil {
				s.logger.Warn("board fetch degraded", zap.Error(err))
			}
			select {
			case out <- snap:
			case <-ctx.Done():
			}
		}

		fetch()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fetch()
			}
		}
	}()
	return out
}
