package hyperliquid_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hlwatch/hlwatch/internal/domain"
	"github.com/hlwatch/hlwatch/internal/platform/hyperliquid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// infoServer fakes the info API endpoint, dispatching on the type-tagged
// request body. Handlers are keyed "type" or "type/dex".
func infoServer(t *testing.T, handlers map[string]func(w http.ResponseWriter, req map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		typ, _ := req["type"].(string)
		dex, _ := req["dex"].(string)
		if h, ok := handlers[typ+"/"+dex]; ok {
			h(w, req)
			return
		}
		if h, ok := handlers[typ]; ok {
			h(w, req)
			return
		}
		t.Errorf("unhandled info query type %q (dex %q)", typ, dex)
		http.NotFound(w, r)
	}))
}

func respond(body string) func(w http.ResponseWriter, req map[string]any) {
	return func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestPositionsConvertsAndFilters(t *testing.T) {
	srv := infoServer(t, map[string]func(w http.ResponseWriter, req map[string]any){
		"clearinghouseState": respond(`{
			"assetPositions": [
				{"type": "oneWay", "position": {
					"coin": "ETH", "szi": "-0.5", "entryPx": "3000",
					"marginUsed": "150", "unrealizedPnl": "30",
					"leverage": {"type": "cross", "value": 10},
					"liquidationPx": "4100"
				}},
				{"type": "oneWay", "position": {
					"coin": "BTC", "szi": "0", "entryPx": "60000",
					"marginUsed": "0", "unrealizedPnl": "0",
					"leverage": {"type": "cross", "value": 5}
				}}
			],
			"marginSummary": {"accountValue": "1000", "totalMarginUsed": "150"}
		}`),
		"allMids": respond(`{"ETH": "3100"}`),
	})
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, nil, testLogger())
	positions, account, err := c.Positions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}

	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1 (zero-size filtered)", len(positions))
	}
	p := positions[0]
	if p.Side != "short" {
		t.Errorf("Side = %q, want short for negative szi", p.Side)
	}
	if p.Size != 0.5 {
		t.Errorf("Size = %v, want absolute 0.5", p.Size)
	}
	if p.CurrentPrice != 3100 {
		t.Errorf("CurrentPrice = %v, want mid 3100", p.CurrentPrice)
	}
	if p.UnrealizedPnlPercent != 20 {
		t.Errorf("UnrealizedPnlPercent = %v, want 20", p.UnrealizedPnlPercent)
	}
	if p.LiquidationPrice == nil || *p.LiquidationPrice != 4100 {
		t.Errorf("LiquidationPrice = %v, want 4100", p.LiquidationPrice)
	}

	if account.AccountValue != 1000 || account.TotalMarginUsed != 150 {
		t.Errorf("account = %+v", account)
	}
	if account.AvailableBalance != 850 {
		t.Errorf("AvailableBalance = %v, want 850", account.AvailableBalance)
	}
}

func TestPositionsMergesSubLedgers(t *testing.T) {
	srv := infoServer(t, map[string]func(w http.ResponseWriter, req map[string]any){
		"clearinghouseState/": respond(`{
			"assetPositions": [{"type": "oneWay", "position": {
				"coin": "ETH", "szi": "1", "entryPx": "3000",
				"marginUsed": "100", "unrealizedPnl": "0",
				"leverage": {"type": "cross", "value": 1}
			}}],
			"marginSummary": {"accountValue": "500", "totalMarginUsed": "100"}
		}`),
		"clearinghouseState/xyz": respond(`{
			"assetPositions": [{"type": "oneWay", "position": {
				"coin": "FOO", "szi": "2", "entryPx": "10",
				"marginUsed": "5", "unrealizedPnl": "1",
				"leverage": {"type": "cross", "value": 1}
			}}],
			"marginSummary": {"accountValue": "50", "totalMarginUsed": "5"}
		}`),
		"allMids/":    respond(`{"ETH": "3000"}`),
		"allMids/xyz": respond(`{"ETH": "3333", "FOO": "11"}`),
	})
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, []string{"xyz"}, testLogger())
	positions, account, err := c.Positions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}
	prices := map[string]float64{}
	for _, p := range positions {
		prices[p.Coin] = p.CurrentPrice
	}
	// Later sub-ledgers override earlier ones on mid collisions.
	if prices["ETH"] != 3333 {
		t.Errorf("ETH mid = %v, want 3333 from the later sub-ledger", prices["ETH"])
	}
	if prices["FOO"] != 11 {
		t.Errorf("FOO mid = %v, want 11", prices["FOO"])
	}
	if account.AccountValue != 550 {
		t.Errorf("AccountValue = %v, want summed 550", account.AccountValue)
	}
}

func TestPositionsOptionalSubLedgerFailureDegrades(t *testing.T) {
	srv := infoServer(t, map[string]func(w http.ResponseWriter, req map[string]any){
		"clearinghouseState/": respond(`{
			"assetPositions": [],
			"marginSummary": {"accountValue": "500", "totalMarginUsed": "0"}
		}`),
		"clearinghouseState/xyz": func(w http.ResponseWriter, _ map[string]any) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"allMids/": respond(`{}`),
		"allMids/xyz": func(w http.ResponseWriter, _ map[string]any) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, []string{"xyz"}, testLogger())
	_, account, err := c.Positions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("optional sub-ledger failure surfaced as error: %v", err)
	}
	if account.AccountValue != 500 {
		t.Errorf("AccountValue = %v, want 500 from the required sub-ledger", account.AccountValue)
	}
}

func TestPositionsRequiredFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, nil, testLogger())
	_, _, err := c.Positions(context.Background(), "0xabc")
	if err == nil {
		t.Fatal("required sub-ledger failure returned nil error")
	}
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error %v is not an UpstreamError", err)
	}
	if upstream.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", upstream.Status, http.StatusServiceUnavailable)
	}
}

func TestRecentFillsConverts(t *testing.T) {
	srv := infoServer(t, map[string]func(w http.ResponseWriter, req map[string]any){
		"userFills": func(w http.ResponseWriter, req map[string]any) {
			if req["user"] != "0xAbC" {
				t.Errorf("user = %v, want 0xAbC passed through", req["user"])
			}
			respond(`[
				{"coin": "BTC", "px": "60000.5", "sz": "0.1", "side": "B",
				 "time": 1700000000000, "dir": "Open Long",
				 "closedPnl": "0.0", "fee": "1.2", "tid": 42},
				{"coin": "ETH", "px": "3000", "sz": "2", "side": "A",
				 "time": 1699999999000, "dir": "Close Long",
				 "closedPnl": "15.5", "fee": "0.9", "tid": 41}
			]`)(w, req)
		},
	})
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, nil, testLogger())
	fills, err := c.RecentFills(context.Background(), "0xAbC")
	if err != nil {
		t.Fatalf("RecentFills: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(fills))
	}

	buy := fills[0]
	if buy.Side != "buy" || buy.Coin != "BTC" || buy.TradeID != 42 {
		t.Errorf("unexpected first fill: %+v", buy)
	}
	if buy.Wallet != "0xabc" {
		t.Errorf("Wallet = %q, want lowercased 0xabc", buy.Wallet)
	}
	if buy.ClosedPnl == nil || *buy.ClosedPnl != 0 {
		t.Errorf("ClosedPnl = %v, want explicit 0", buy.ClosedPnl)
	}

	sell := fills[1]
	if sell.Side != "sell" {
		t.Errorf("Side = %q, want sell for A", sell.Side)
	}
	if sell.ClosedPnl == nil || *sell.ClosedPnl != 15.5 {
		t.Errorf("ClosedPnl = %v, want 15.5", sell.ClosedPnl)
	}
}

func TestFillsInRangeSendsWindow(t *testing.T) {
	srv := infoServer(t, map[string]func(w http.ResponseWriter, req map[string]any){
		"userFillsByTime": func(w http.ResponseWriter, req map[string]any) {
			if req["startTime"] != float64(100) || req["endTime"] != float64(200) {
				t.Errorf("window = [%v, %v], want [100, 200]", req["startTime"], req["endTime"])
			}
			respond(`[]`)(w, req)
		},
	})
	defer srv.Close()

	c := hyperliquid.NewClient(srv.URL, nil, testLogger())
	fills, err := c.FillsInRange(context.Background(), "0xabc", 100, 200)
	if err != nil {
		t.Fatalf("FillsInRange: %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("got %d fills, want 0", len(fills))
	}
}
