package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/hlwatch/hlwatch/internal/domain"
)

const (
	walletsKey  = "hlwatch:wallets"
	pushSubsKey = "hlwatch:push_subs"

	// maxWallets bounds the tracked wallet list; every wallet costs a live
	// stream subscription and per-request upstream queries.
	maxWallets = 10
)

// Store implements domain.WalletStore and domain.SubscriptionStore on top of
// Redis. Each collection lives under a single key as a JSON array, matching
// the small, read-mostly data set.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store backed by the given Client.
func NewStore(c *Client) *Store {
	return &Store{rdb: c.rdb}
}

// Wallets returns the tracked wallet list. A missing key yields an empty
// list, not an error.
func (s *Store) Wallets(ctx context.Context) ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	if err := s.getJSON(ctx, walletsKey, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// AddWallet normalizes the address to lowercase and appends it to the list.
// Adding an already-tracked address is a no-op returning the stored record.
// The list is capped at maxWallets; domain.ErrWalletLimit reports overflow.
func (s *Store) AddWallet(ctx context.Context, address, name string) (domain.Wallet, error) {
	addr := strings.ToLower(address)

	wallets, err := s.Wallets(ctx)
	if err != nil {
		return domain.Wallet{}, err
	}

	for _, w := range wallets {
		if w.Address == addr {
			return w, nil
		}
	}

	if len(wallets) >= maxWallets {
		return domain.Wallet{}, domain.ErrWalletLimit
	}

	wallet := domain.Wallet{Address: addr, Name: name}
	wallets = append(wallets, wallet)
	if err := s.setJSON(ctx, walletsKey, wallets); err != nil {
		return domain.Wallet{}, err
	}
	return wallet, nil
}

// RemoveWallet drops the address from the list. Removing an untracked
// address is a no-op.
func (s *Store) RemoveWallet(ctx context.Context, address string) error {
	addr := strings.ToLower(address)

	wallets, err := s.Wallets(ctx)
	if err != nil {
		return err
	}

	kept := wallets[:0]
	for _, w := range wallets {
		if w.Address != addr {
			kept = append(kept, w)
		}
	}
	return s.setJSON(ctx, walletsKey, kept)
}

// RenameWallet updates the display name of a tracked wallet. It returns
// domain.ErrNotFound when the address is not tracked.
func (s *Store) RenameWallet(ctx context.Context, address, name string) error {
	addr := strings.ToLower(address)

	wallets, err := s.Wallets(ctx)
	if err != nil {
		return err
	}

	for i := range wallets {
		if wallets[i].Address == addr {
			wallets[i].Name = name
			return s.setJSON(ctx, walletsKey, wallets)
		}
	}
	return domain.ErrNotFound
}

// PushSubscriptions returns every registered push subscriber record.
func (s *Store) PushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	if err := s.getJSON(ctx, pushSubsKey, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// AddPushSubscription registers a push endpoint. Re-registering an existing
// endpoint is a no-op.
func (s *Store) AddPushSubscription(ctx context.Context, sub domain.PushSubscription) error {
	subs, err := s.PushSubscriptions(ctx)
	if err != nil {
		return err
	}

	for _, existing := range subs {
		if existing.Endpoint == sub.Endpoint {
			return nil
		}
	}

	subs = append(subs, sub)
	return s.setJSON(ctx, pushSubsKey, subs)
}

// RemovePushSubscription drops the record for the given endpoint, e.g. after
// the push service reported it gone.
func (s *Store) RemovePushSubscription(ctx context.Context, endpoint string) error {
	subs, err := s.PushSubscriptions(ctx)
	if err != nil {
		return err
	}

	kept := subs[:0]
	for _, sub := range subs {
		if sub.Endpoint != endpoint {
			kept = append(kept, sub)
		}
	}
	return s.setJSON(ctx, pushSubsKey, kept)
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}
