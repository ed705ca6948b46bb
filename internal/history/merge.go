// Package history reconciles fill batches from the exchange's inconsistent
// upstream endpoints into one deduplicated, chronologically ordered trade
// history per wallet, and tracks how far back that history has been loaded.
package history

import (
	"sort"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// Merge combines any number of fill batches into a single duplicate-free
// sequence sorted descending by timestamp, ties broken by descending trade
// ID. Batches are keyed by trade ID and the first occurrence across batches
// wins, so callers pass the most authoritative batch first: live data ahead
// of historical backfill. Merge is pure and deterministic.
func Merge(batches ...[]domain.Fill) []domain.Fill {
	seen := make(map[int64]domain.Fill)
	for _, batch := range batches {
		for _, f := range batch {
			if _, ok := seen[f.TradeID]; !ok {
				seen[f.TradeID] = f
			}
		}
	}

	out := make([]domain.Fill, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].TradeID > out[j].TradeID
	})

	return out
}
