// Package domain holds the core types and errors shared across the wallet
// tracker: fills, positions, account summaries, tracked wallets, and push
// subscriber records.
package domain

// Fill is one executed trade event for a tracked wallet. Fills are immutable
// once received; TradeID is the server-assigned deduplication key, and no two
// fills in a merged history ever share one.
type Fill struct {
	Wallet    string   `json:"wallet"`
	Coin      string   `json:"coin"`
	Side      string   `json:"side"`      // "buy" or "sell"
	Direction string   `json:"direction"` // "Open Long", "Close Short", ... or ""
	Size      float64  `json:"size"`
	Price     float64  `json:"price"`
	ClosedPnl *float64 `json:"closedPnl"`
	Fee       float64  `json:"fee"`
	Timestamp int64    `json:"timestamp"` // epoch millis
	TradeID   int64    `json:"tradeId"`
}

// Position is one open perpetual position, derived entirely from an upstream
// snapshot. It is never persisted and is recomputed on every fetch.
type Position struct {
	Coin                 string   `json:"coin"`
	Size                 float64  `json:"size"` // absolute, non-negative
	EntryPrice           float64  `json:"entryPrice"`
	CurrentPrice         float64  `json:"currentPrice"`
	UnrealizedPnl        float64  `json:"unrealizedPnl"`
	UnrealizedPnlPercent float64  `json:"unrealizedPnlPercent"`
	Side                 string   `json:"side"` // "long" or "short"
	Leverage             int      `json:"leverage"`
	LiquidationPrice     *float64 `json:"liquidationPrice"`
	MarginUsed           float64  `json:"marginUsed"`
}

// AccountSummary aggregates margin figures additively across every sub-ledger
// a wallet holds positions in.
type AccountSummary struct {
	AccountValue     float64 `json:"accountValue"`
	TotalMarginUsed  float64 `json:"totalMarginUsed"`
	AvailableBalance float64 `json:"availableBalance"`
}

// Wallet is a tracked wallet address with an optional display name. Address
// is always stored lowercase.
type Wallet struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// PushKeys are the client encryption keys of a Web Push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is one registered push delivery endpoint. Endpoint doubles
// as the record's identity.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}
