// Package notify formats fill events into human-readable alerts and fans
// them out to push subscribers and broadcast channels (Telegram, Discord).
// Delivery endpoints fail independently: one bad endpoint never blocks the
// rest, and only permanently-gone push endpoints are reported back.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// PushTransport delivers one message to one push subscription endpoint. A
// permanently invalid endpoint is reported with domain.ErrEndpointGone.
type PushTransport interface {
	Send(ctx context.Context, sub domain.PushSubscription, title, body string) error
}

// Broadcaster delivers a message to a shared channel such as a Telegram chat
// or Discord webhook.
type Broadcaster interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Dispatcher fans a formatted alert out to every delivery endpoint
// concurrently.
type Dispatcher struct {
	push         PushTransport
	broadcasters []Broadcaster
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher. push may be nil when Web Push is not
// configured; broadcasters may be empty.
func NewDispatcher(push PushTransport, broadcasters []Broadcaster, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		push:         push,
		broadcasters: broadcasters,
		logger:       logger.With(slog.String("component", "notify")),
	}
}

// Dispatch attempts delivery to every push subscription and broadcaster in
// parallel and returns the endpoints that reported themselves gone, for the
// caller to prune from the subscriber store. Every other delivery failure is
// logged and swallowed; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, title, body string, subs []domain.PushSubscription) []string {
	var (
		mu      sync.Mutex
		expired []string
	)

	var g errgroup.Group

	if d.push != nil {
		for _, sub := range subs {
			g.Go(func() error {
				err := d.push.Send(ctx, sub, title, body)
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrEndpointGone):
					mu.Lock()
					expired = append(expired, sub.Endpoint)
					mu.Unlock()
				default:
					d.logger.WarnContext(ctx, "push delivery failed",
						slog.String("endpoint", sub.Endpoint),
						slog.String("error", err.Error()),
					)
				}
				return nil
			})
		}
	}

	for _, b := range d.broadcasters {
		g.Go(func() error {
			if err := b.Send(ctx, title, body); err != nil {
				d.logger.WarnContext(ctx, "broadcast delivery failed",
					slog.String("channel", b.Name()),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
	return expired
}
