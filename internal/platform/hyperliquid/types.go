package hyperliquid

import (
	"strconv"
	"strings"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// ---------------------------------------------------------------------------
// Info API request bodies. Every query goes to the same POST endpoint; the
// "type" field selects the query, so each variant gets its own struct rather
// than one conditionally-populated bag of fields.
// ---------------------------------------------------------------------------

type clearinghouseStateRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
	Dex  string `json:"dex,omitempty"`
}

type allMidsRequest struct {
	Type string `json:"type"`
	Dex  string `json:"dex,omitempty"`
}

// recentFillsRequest asks for the server's most recent fills window. The
// window size is server-defined, not caller-controlled.
type recentFillsRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// rangeFillsRequest asks for fills with startTime <= time <= endTime. The
// response order is server-defined and must not be relied on.
type rangeFillsRequest struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// ---------------------------------------------------------------------------
// Info API response bodies. All numeric fields arrive as decimal strings.
// ---------------------------------------------------------------------------

type apiFill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"` // "B" (bid/buy) or "A" (ask/sell)
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           int64  `json:"tid"`
}

type apiLeverage struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type apiPosition struct {
	Coin           string      `json:"coin"`
	EntryPx        *string     `json:"entryPx"`
	Leverage       apiLeverage `json:"leverage"`
	LiquidationPx  *string     `json:"liquidationPx"`
	MarginUsed     string      `json:"marginUsed"`
	PositionValue  string      `json:"positionValue"`
	ReturnOnEquity string      `json:"returnOnEquity"`
	Szi            string      `json:"szi"`
	UnrealizedPnl  string      `json:"unrealizedPnl"`
}

type assetPosition struct {
	Position apiPosition `json:"position"`
	Type     string      `json:"type"`
}

type marginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
}

type clearinghouseState struct {
	AssetPositions []assetPosition `json:"assetPositions"`
	MarginSummary  marginSummary   `json:"marginSummary"`
}

// ---------------------------------------------------------------------------
// Transforms
// ---------------------------------------------------------------------------

// num parses an upstream decimal string. Empty or unparseable input yields 0;
// an explicit "NaN" propagates as NaN and is only neutralized by callers that
// derive guarded percentage fields.
func num(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func toDomainFill(f apiFill, wallet string) domain.Fill {
	side := "sell"
	if f.Side == "B" {
		side = "buy"
	}

	var closedPnl *float64
	if f.ClosedPnl != "" {
		v := num(f.ClosedPnl)
		closedPnl = &v
	}

	return domain.Fill{
		Wallet:    strings.ToLower(wallet),
		Coin:      f.Coin,
		Side:      side,
		Direction: f.Dir,
		Size:      num(f.Sz),
		Price:     num(f.Px),
		ClosedPnl: closedPnl,
		Fee:       num(f.Fee),
		Timestamp: f.Time,
		TradeID:   f.Tid,
	}
}

// toDomainPosition converts an upstream position snapshot, valuing it at the
// given mid price. With no mid available the entry price stands in.
func toDomainPosition(p apiPosition, midPx string) domain.Position {
	size := num(p.Szi)

	entryPrice := 0.0
	if p.EntryPx != nil {
		entryPrice = num(*p.EntryPx)
	}

	currentPrice := entryPrice
	if midPx != "" {
		currentPrice = num(midPx)
	}

	var liquidationPrice *float64
	if p.LiquidationPx != nil {
		v := num(*p.LiquidationPx)
		liquidationPrice = &v
	}

	unrealizedPnl := num(p.UnrealizedPnl)
	marginUsed := num(p.MarginUsed)

	pnlPercent := 0.0
	if marginUsed > 0 {
		pnlPercent = unrealizedPnl / marginUsed * 100
	}

	side := "long"
	if size < 0 {
		side = "short"
	}

	abs := size
	if abs < 0 {
		abs = -abs
	}

	return domain.Position{
		Coin:                 p.Coin,
		Size:                 abs,
		EntryPrice:           entryPrice,
		CurrentPrice:         currentPrice,
		UnrealizedPnl:        unrealizedPnl,
		UnrealizedPnlPercent: pnlPercent,
		Side:                 side,
		Leverage:             p.Leverage.Value,
		LiquidationPrice:     liquidationPrice,
		MarginUsed:           marginUsed,
	}
}
