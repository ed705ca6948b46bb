package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hlwatch/hlwatch/internal/config"
	"github.com/hlwatch/hlwatch/internal/history"
	"github.com/hlwatch/hlwatch/internal/notify"
	"github.com/hlwatch/hlwatch/internal/platform/hyperliquid"
	redisstore "github.com/hlwatch/hlwatch/internal/store/redis"
)

// Dependencies bundles everything the application needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store      *redisstore.Store
	Client     *hyperliquid.Client
	Stream     *hyperliquid.WSClient
	Syncer     *history.Syncer
	Dispatcher *notify.Dispatcher
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	redisClient, err := redisstore.New(ctx, redisstore.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: connect redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	client := hyperliquid.NewClient(cfg.Hyperliquid.APIURL, cfg.Hyperliquid.Dexes, logger)

	stream := hyperliquid.NewWSClient(cfg.Hyperliquid.WSURL, logger)
	closers = append(closers, func() { _ = stream.Close() })

	var push notify.PushTransport
	if cfg.PushEnabled() {
		push = notify.NewWebPushTransport(
			cfg.Push.VAPIDPublicKey,
			cfg.Push.VAPIDPrivateKey,
			cfg.Push.Subscriber,
		)
	} else {
		logger.Warn("VAPID keys not configured, push notifications disabled")
	}

	var broadcasters []notify.Broadcaster
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		broadcasters = append(broadcasters, notify.NewTelegramBroadcaster(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		broadcasters = append(broadcasters, notify.NewDiscordBroadcaster(cfg.Notify.DiscordWebhookURL))
	}

	return &Dependencies{
		Store:      redisstore.NewStore(redisClient),
		Client:     client,
		Stream:     stream,
		Syncer:     history.NewSyncer(client, logger),
		Dispatcher: notify.NewDispatcher(push, broadcasters, logger),
	}, cleanup, nil
}

// streamStatus adapts the stream client's typed state to the health
// handler's string interface.
type streamStatus struct {
	stream *hyperliquid.WSClient
}

func (s streamStatus) State() string {
	return string(s.stream.State())
}

// walletCounter adapts the wallet store to the health handler's count
// interface.
type walletCounter struct {
	store *redisstore.Store
}

func (c walletCounter) WalletCount(ctx context.Context) (int, error) {
	wallets, err := c.store.Wallets(ctx)
	if err != nil {
		return 0, err
	}
	return len(wallets), nil
}
