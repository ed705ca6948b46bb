package history_test

import (
	"testing"

	"github.com/hlwatch/hlwatch/internal/domain"
	"github.com/hlwatch/hlwatch/internal/history"
)

func fill(tid, ts int64) domain.Fill {
	return domain.Fill{TradeID: tid, Timestamp: ts}
}

func TestMergeDeduplicatesAcrossBatches(t *testing.T) {
	a := []domain.Fill{fill(1, 100), fill(2, 200)}
	b := []domain.Fill{fill(2, 200), fill(3, 50)}

	got := history.Merge(a, b)

	want := []int64{2, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("merged length = %d, want %d", len(got), len(want))
	}
	for i, tid := range want {
		if got[i].TradeID != tid {
			t.Errorf("merged[%d].TradeID = %d, want %d", i, got[i].TradeID, tid)
		}
	}
}

func TestMergeFirstBatchWins(t *testing.T) {
	live := []domain.Fill{{TradeID: 7, Timestamp: 100, Coin: "ETH"}}
	backfill := []domain.Fill{{TradeID: 7, Timestamp: 100, Coin: "BTC"}}

	got := history.Merge(live, backfill)
	if len(got) != 1 {
		t.Fatalf("merged length = %d, want 1", len(got))
	}
	if got[0].Coin != "ETH" {
		t.Errorf("merged[0].Coin = %q, want the first batch's %q", got[0].Coin, "ETH")
	}
}

func TestMergeOrdersByTimestampThenTradeID(t *testing.T) {
	got := history.Merge([]domain.Fill{
		fill(10, 500),
		fill(12, 500),
		fill(11, 900),
		fill(9, 100),
	})

	want := []int64{11, 12, 10, 9}
	for i, tid := range want {
		if got[i].TradeID != tid {
			t.Errorf("merged[%d].TradeID = %d, want %d", i, got[i].TradeID, tid)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	batch := []domain.Fill{fill(1, 100), fill(2, 200), fill(3, 300)}

	once := history.Merge(batch)
	twice := history.Merge(once, batch)

	if len(twice) != len(once) {
		t.Fatalf("re-merge length = %d, want %d", len(twice), len(once))
	}
	for i := range once {
		if twice[i].TradeID != once[i].TradeID {
			t.Errorf("re-merge[%d].TradeID = %d, want %d", i, twice[i].TradeID, once[i].TradeID)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := history.Merge(nil, []domain.Fill{}); len(got) != 0 {
		t.Fatalf("merge of empty batches returned %d fills", len(got))
	}
}
