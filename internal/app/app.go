// Package app provides the top-level application lifecycle for the wallet
// tracker. It wires together the store, the upstream clients, the notifier,
// and the HTTP server, subscribes the tracked wallets to the live stream,
// and turns incoming fills into notifications.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hlwatch/hlwatch/internal/config"
	"github.com/hlwatch/hlwatch/internal/domain"
	"github.com/hlwatch/hlwatch/internal/notify"
	"github.com/hlwatch/hlwatch/internal/platform/hyperliquid"
	"github.com/hlwatch/hlwatch/internal/server"
	"github.com/hlwatch/hlwatch/internal/server/handler"
)

// superviseInterval is how often the app nudges a dead stream connection
// back to life after the stream's own reconnect budget is spent.
const superviseInterval = 30 * time.Second

// dispatchTimeout bounds the notification fan-out for one fill.
const dispatchTimeout = 15 * time.Second

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, connects the live stream, subscribes every
// tracked wallet, and serves the HTTP API until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		cleanup()
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Subscribe every persisted wallet before connecting so the registry is
	// replayed as soon as the stream comes up.
	wallets, err := deps.Store.Wallets(ctx)
	if err != nil {
		return fmt.Errorf("app: load wallets: %w", err)
	}
	for _, w := range wallets {
		deps.Stream.Subscribe(w.Address, a.fillHandler(deps))
	}
	a.logger.InfoContext(ctx, "tracking wallets", slog.Int("count", len(wallets)))

	if err := deps.Stream.Connect(ctx); err != nil {
		// The supervisor below keeps retrying; the API stays up meanwhile.
		a.logger.WarnContext(ctx, "initial stream connect failed",
			slog.String("error", err.Error()),
		)
	}
	go a.superviseStream(ctx, deps.Stream)

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(streamStatus{deps.Stream}, walletCounter{deps.Store}, time.Now()),
		Wallets:       handler.NewWalletHandler(deps.Store, a.walletHooks(deps), a.logger),
		Positions:     handler.NewPositionHandler(deps.Client, a.logger),
		Trades:        handler.NewTradeHandler(deps.Syncer, a.logger),
		Subscriptions: handler.NewSubscriptionHandler(deps.Store, a.cfg.Push.VAPIDPublicKey, a.logger),
	}, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// walletHooks keeps the live stream registry in step with the wallet store.
func (a *App) walletHooks(deps *Dependencies) handler.WalletHooks {
	return handler.WalletHooks{
		OnAdded: func(address string) {
			deps.Stream.Subscribe(address, a.fillHandler(deps))
		},
		OnRemoved: func(address string) {
			deps.Stream.Unsubscribe(address)
			deps.Syncer.Forget(address)
		},
	}
}

// fillHandler returns the live-fill callback: format the fill, fan it out,
// and prune push endpoints the push service reported gone.
func (a *App) fillHandler(deps *Dependencies) hyperliquid.FillHandler {
	return func(wallet string, fill domain.Fill) {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		a.logger.InfoContext(ctx, "live fill",
			slog.String("wallet", wallet),
			slog.String("coin", fill.Coin),
			slog.String("side", fill.Side),
			slog.Float64("size", fill.Size),
			slog.Float64("price", fill.Price),
		)

		title, body := notify.FormatFill(fill, a.walletLabel(ctx, deps, wallet))

		subs, err := deps.Store.PushSubscriptions(ctx)
		if err != nil {
			a.logger.ErrorContext(ctx, "load push subscriptions failed",
				slog.String("error", err.Error()),
			)
			subs = nil
		}

		expired := deps.Dispatcher.Dispatch(ctx, title, body, subs)
		for _, endpoint := range expired {
			if err := deps.Store.RemovePushSubscription(ctx, endpoint); err != nil {
				a.logger.WarnContext(ctx, "prune expired subscription failed",
					slog.String("endpoint", endpoint),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// walletLabel resolves a display name for the wallet, falling back to the
// shortened address.
func (a *App) walletLabel(ctx context.Context, deps *Dependencies, address string) string {
	wallets, err := deps.Store.Wallets(ctx)
	if err != nil {
		return ""
	}
	for _, w := range wallets {
		if w.Address == address && w.Name != "" {
			return w.Name
		}
	}
	return ""
}

// superviseStream periodically re-dials the stream when it is down. Connect
// is idempotent and the stream's own backoff timer checks state before
// dialing, so the supervisor never races a pending reconnect into a second
// connection.
func (a *App) superviseStream(ctx context.Context, stream *hyperliquid.WSClient) {
	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := stream.State()
			if state != hyperliquid.StateDisconnected && state != hyperliquid.StateFailed {
				continue
			}
			if err := stream.Connect(ctx); err != nil {
				a.logger.WarnContext(ctx, "stream reconnect failed",
					slog.String("state", string(state)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
