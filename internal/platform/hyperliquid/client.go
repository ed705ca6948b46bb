// Package hyperliquid provides the REST client and the real-time stream
// client for the Hyperliquid info API.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// Client is the stateless REST client for the Hyperliquid info API. All
// queries go through a single POST endpoint with a type-tagged JSON body.
type Client struct {
	baseURL    string
	extraDexes []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Hyperliquid info API client.
//
// baseURL is the API root, e.g. "https://api.hyperliquid.xyz". extraDexes
// lists additional sub-ledger namespaces to query besides the default perp
// dex; queries against them are optional and degrade to empty on failure.
func NewClient(baseURL string, extraDexes []string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		extraDexes: extraDexes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "hyperliquid")),
	}
}

// dexes returns every sub-ledger namespace to query, the required default
// dex first.
func (c *Client) dexes() []string {
	return append([]string{""}, c.extraDexes...)
}

// Positions fetches the open positions and account summary for a wallet. It
// issues the clearinghouse-state and mid-price queries for every sub-ledger
// in parallel; the default sub-ledger is required, the rest degrade to empty
// contributions on failure. Mid prices merge across sub-ledgers with later
// dexes overriding earlier ones on collision.
func (c *Client) Positions(ctx context.Context, address string) ([]domain.Position, domain.AccountSummary, error) {
	dexes := c.dexes()
	states := make([]*clearinghouseState, len(dexes))
	mids := make([]map[string]string, len(dexes))

	g, gctx := errgroup.WithContext(ctx)
	for i, dex := range dexes {
		required := dex == ""
		g.Go(func() error {
			state, err := c.fetchClearinghouseState(gctx, address, dex)
			if err != nil {
				if required {
					return err
				}
				c.logger.DebugContext(gctx, "optional sub-ledger query failed",
					slog.String("dex", dex),
					slog.String("error", err.Error()),
				)
				return nil
			}
			states[i] = state
			return nil
		})
		g.Go(func() error {
			m, err := c.fetchAllMids(gctx, dex)
			if err != nil {
				if required {
					return err
				}
				return nil
			}
			mids[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.AccountSummary{}, err
	}

	merged := make(map[string]string)
	for _, m := range mids {
		for coin, px := range m {
			merged[coin] = px
		}
	}

	var positions []domain.Position
	var account domain.AccountSummary
	for _, state := range states {
		if state == nil {
			continue
		}
		for _, ap := range state.AssetPositions {
			if num(ap.Position.Szi) == 0 {
				continue
			}
			positions = append(positions, toDomainPosition(ap.Position, merged[ap.Position.Coin]))
		}
		account.AccountValue += num(state.MarginSummary.AccountValue)
		account.TotalMarginUsed += num(state.MarginSummary.TotalMarginUsed)
	}
	account.AvailableBalance = account.AccountValue - account.TotalMarginUsed

	return positions, account, nil
}

// RecentFills returns the wallet's most recent fills in server-defined
// descending-time order. The window size is bounded by the server.
func (c *Client) RecentFills(ctx context.Context, address string) ([]domain.Fill, error) {
	body, err := c.post(ctx, recentFillsRequest{Type: "userFills", User: address})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: recent fills: %w", err)
	}

	var fills []apiFill
	if err := json.Unmarshal(body, &fills); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode fills: %w", err)
	}

	return c.toFills(fills, address), nil
}

// FillsInRange returns fills with startTime <= time <= endTime, capped at the
// server page size. The result order is unspecified; callers must sort.
func (c *Client) FillsInRange(ctx context.Context, address string, startTime, endTime int64) ([]domain.Fill, error) {
	body, err := c.post(ctx, rangeFillsRequest{
		Type:      "userFillsByTime",
		User:      address,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: fills by time: %w", err)
	}

	var fills []apiFill
	if err := json.Unmarshal(body, &fills); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode fills: %w", err)
	}

	return c.toFills(fills, address), nil
}

func (c *Client) toFills(fills []apiFill, address string) []domain.Fill {
	out := make([]domain.Fill, 0, len(fills))
	for _, f := range fills {
		out = append(out, toDomainFill(f, address))
	}
	return out
}

// fetchClearinghouseState returns the position snapshot for one sub-ledger.
func (c *Client) fetchClearinghouseState(ctx context.Context, address, dex string) (*clearinghouseState, error) {
	body, err := c.post(ctx, clearinghouseStateRequest{
		Type: "clearinghouseState",
		User: address,
		Dex:  dex,
	})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: clearinghouse state: %w", err)
	}

	var state clearinghouseState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode clearinghouse state: %w", err)
	}
	return &state, nil
}

// fetchAllMids returns the coin-to-mid-price map for one sub-ledger.
func (c *Client) fetchAllMids(ctx context.Context, dex string) (map[string]string, error) {
	body, err := c.post(ctx, allMidsRequest{Type: "allMids", Dex: dex})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: all mids: %w", err)
	}

	var mids map[string]string
	if err := json.Unmarshal(body, &mids); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode mids: %w", err)
	}
	return mids, nil
}

// post sends one info API query and reads the response body. Non-2xx
// responses become a domain.UpstreamError carrying the HTTP status.
func (c *Client) post(ctx context.Context, reqBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Status: resp.StatusCode}
	}

	return respBody, nil
}
