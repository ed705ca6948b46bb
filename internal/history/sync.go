package history

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hlwatch/hlwatch/internal/domain"
)

const (
	// recentPageSize is the server's cap on the userFills recent window. A
	// sync that returns a full page signals that older history may exist.
	recentPageSize = 2000

	// rangePageSize is the server's cap on a userFillsByTime page. A full
	// page means the requested window was truncated and needs another walk.
	rangePageSize = 2000

	// lookback is how far back each LoadMore window reaches. Policy: history
	// is exhausted once a whole lookback window comes back empty.
	lookback = 30 * 24 * time.Hour

	// maxWindowPages caps the backward page walk inside one LoadMore window
	// so pathological upstream data can never loop forever.
	maxWindowPages = 10
)

// Source is the slice of the upstream client the syncer needs.
type Source interface {
	RecentFills(ctx context.Context, address string) ([]domain.Fill, error)
	FillsInRange(ctx context.Context, address string, startTime, endTime int64) ([]domain.Fill, error)
}

// cursor tracks per-wallet sync progress for the life of the process.
type cursor struct {
	oldestLoaded      int64
	hasMore           bool
	lastNewestTradeID int64
	synced            bool
}

// Syncer builds and extends per-wallet trade histories by reconciling the
// recent-fills window with backward time-range queries. Histories and cursors
// only mutate after a fetch succeeds, so a failed sync never corrupts
// previously loaded state. Sync and LoadMore may run concurrently, even for
// the same wallet: every write-back merges against the history as it stands,
// so neither call can drop the other's fills.
type Syncer struct {
	source Source
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cursors map[string]*cursor
	history map[string][]domain.Fill
}

// NewSyncer creates a Syncer reading from the given upstream source.
func NewSyncer(source Source, logger *slog.Logger) *Syncer {
	return &Syncer{
		source:  source,
		logger:  logger.With(slog.String("component", "history")),
		now:     time.Now,
		cursors: make(map[string]*cursor),
		history: make(map[string][]domain.Fill),
	}
}

// Sync fetches the wallet's recent-fills window and merges it into the
// wallet's history, with the fresh window taking precedence over anything
// already loaded. fresh reports new activity: the newest trade ID changed
// since the previous sync (never signalled on a wallet's first sync).
func (s *Syncer) Sync(ctx context.Context, address string) (fills []domain.Fill, fresh bool, err error) {
	addr := strings.ToLower(address)

	window, err := s.source.RecentFills(ctx, addr)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cursors[addr]
	if cur == nil {
		cur = &cursor{}
		s.cursors[addr] = cur
	}

	merged := Merge(window, s.history[addr])

	if len(merged) > 0 {
		newest := merged[0].TradeID
		if cur.synced && newest != cur.lastNewestTradeID {
			fresh = true
		}
		cur.lastNewestTradeID = newest
		cur.oldestLoaded = merged[len(merged)-1].Timestamp
	} else {
		cur.oldestLoaded = s.now().UnixMilli()
	}
	cur.hasMore = cur.hasMore || len(window) >= recentPageSize
	cur.synced = true
	s.history[addr] = merged

	s.logger.DebugContext(ctx, "synced wallet history",
		slog.String("wallet", addr),
		slog.Int("fills", len(merged)),
		slog.Bool("fresh", fresh),
	)

	return merged, fresh, nil
}

// LoadMore extends the wallet's history backward by one lookback window
// ending just before the oldest loaded fill. It is a no-op, not an error,
// when the wallet has never synced or its history is exhausted. Existing
// history takes precedence over the backfill on trade ID collisions.
func (s *Syncer) LoadMore(ctx context.Context, address string) ([]domain.Fill, error) {
	addr := strings.ToLower(address)

	s.mu.Lock()
	cur := s.cursors[addr]
	if cur == nil || !cur.synced || !cur.hasMore {
		existing := s.history[addr]
		s.mu.Unlock()
		return existing, nil
	}
	oldest := cur.oldestLoaded
	s.mu.Unlock()

	// End just before the oldest loaded fill so nothing is re-fetched.
	end := oldest - 1
	start := end - lookback.Milliseconds()

	var window []domain.Fill
	pageEnd := end
	for i := 0; i < maxWindowPages; i++ {
		batch, err := s.source.FillsInRange(ctx, addr, start, pageEnd)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		window = append(window, batch...)
		if len(batch) < rangePageSize {
			break
		}
		// Full page: the window was truncated, keep walking backward.
		min := minTimestamp(batch)
		if min <= start {
			break
		}
		pageEnd = min - 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Merge against the history as it is now, not as it was before the
	// fetch: a Sync that completed while the range fetch was in flight has
	// already added fills that must survive this write.
	merged := Merge(s.history[addr], window)

	cur = s.cursors[addr]
	if cur == nil {
		// Wallet was forgotten mid-fetch; drop the result.
		return merged, nil
	}
	if len(merged) > 0 {
		cur.oldestLoaded = merged[len(merged)-1].Timestamp
	}
	cur.hasMore = len(window) > 0
	s.history[addr] = merged

	s.logger.DebugContext(ctx, "loaded older history",
		slog.String("wallet", addr),
		slog.Int("window_fills", len(window)),
		slog.Bool("has_more", cur.hasMore),
	)

	return merged, nil
}

// History returns a copy of the wallet's currently loaded history.
func (s *Syncer) History(address string) []domain.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	fills := s.history[strings.ToLower(address)]
	if fills == nil {
		return nil
	}
	out := make([]domain.Fill, len(fills))
	copy(out, fills)
	return out
}

// HasMore reports whether older fills may still exist upstream for the
// wallet. It is false for wallets that never synced.
func (s *Syncer) HasMore(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cursors[strings.ToLower(address)]
	return cur != nil && cur.hasMore
}

// Forget drops the wallet's cursor and history, e.g. when the wallet is
// removed from tracking.
func (s *Syncer) Forget(address string) {
	addr := strings.ToLower(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, addr)
	delete(s.history, addr)
}

func minTimestamp(fills []domain.Fill) int64 {
	min := fills[0].Timestamp
	for _, f := range fills[1:] {
		if f.Timestamp < min {
			min = f.Timestamp
		}
	}
	return min
}
