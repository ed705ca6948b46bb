package domain

import "context"

// WalletStore persists the tracked wallet list. Addresses are normalized to
// lowercase before storage and lookup.
type WalletStore interface {
	Wallets(ctx context.Context) ([]Wallet, error)
	AddWallet(ctx context.Context, address, name string) (Wallet, error)
	RemoveWallet(ctx context.Context, address string) error
	RenameWallet(ctx context.Context, address, name string) error
}

// SubscriptionStore persists push subscriber records keyed by endpoint.
type SubscriptionStore interface {
	PushSubscriptions(ctx context.Context) ([]PushSubscription, error)
	AddPushSubscription(ctx context.Context, sub PushSubscription) error
	RemovePushSubscription(ctx context.Context, endpoint string) error
}
