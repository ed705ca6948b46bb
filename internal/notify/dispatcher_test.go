package notify_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/hlwatch/hlwatch/internal/domain"
	"github.com/hlwatch/hlwatch/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakePush records every attempted endpoint and fails the ones scripted to
// fail.
type fakePush struct {
	mu        sync.Mutex
	attempted []string
	gone      map[string]bool
	broken    map[string]bool
}

func (f *fakePush) Send(ctx context.Context, sub domain.PushSubscription, title, body string) error {
	f.mu.Lock()
	f.attempted = append(f.attempted, sub.Endpoint)
	f.mu.Unlock()
	if f.gone[sub.Endpoint] {
		return fmt.Errorf("push: %s: %w", sub.Endpoint, domain.ErrEndpointGone)
	}
	if f.broken[sub.Endpoint] {
		return errors.New("push service unavailable")
	}
	return nil
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeBroadcaster) Send(ctx context.Context, title, message string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

func (f *fakeBroadcaster) Name() string { return "fake" }

func subsFor(endpoints ...string) []domain.PushSubscription {
	out := make([]domain.PushSubscription, len(endpoints))
	for i, e := range endpoints {
		out[i] = domain.PushSubscription{Endpoint: e}
	}
	return out
}

func TestDispatchCollectsOnlyGoneEndpoints(t *testing.T) {
	push := &fakePush{
		gone:   map[string]bool{"https://push/b": true},
		broken: map[string]bool{"https://push/c": true},
	}
	d := notify.NewDispatcher(push, nil, testLogger())

	expired := d.Dispatch(context.Background(), "t", "b",
		subsFor("https://push/a", "https://push/b", "https://push/c"))

	if len(expired) != 1 || expired[0] != "https://push/b" {
		t.Fatalf("expired = %v, want only the gone endpoint", expired)
	}

	// Every endpoint was attempted despite the failures.
	sort.Strings(push.attempted)
	if len(push.attempted) != 3 {
		t.Errorf("attempted %d endpoints, want 3", len(push.attempted))
	}
}

func TestDispatchRunsBroadcastersDespitePushFailures(t *testing.T) {
	push := &fakePush{gone: map[string]bool{"https://push/a": true}}
	tg := &fakeBroadcaster{}
	dc := &fakeBroadcaster{err: errors.New("webhook rejected")}
	d := notify.NewDispatcher(push, []notify.Broadcaster{tg, dc}, testLogger())

	expired := d.Dispatch(context.Background(), "t", "b", subsFor("https://push/a"))

	if len(expired) != 1 {
		t.Errorf("expired = %v", expired)
	}
	if tg.calls != 1 {
		t.Errorf("first broadcaster called %d times, want 1", tg.calls)
	}
	if dc.calls != 1 {
		t.Errorf("failing broadcaster called %d times, want 1", dc.calls)
	}
}

func TestDispatchNilPushSkipsSubscriptions(t *testing.T) {
	b := &fakeBroadcaster{}
	d := notify.NewDispatcher(nil, []notify.Broadcaster{b}, testLogger())

	expired := d.Dispatch(context.Background(), "t", "b", subsFor("https://push/a"))
	if len(expired) != 0 {
		t.Errorf("expired = %v, want none with push disabled", expired)
	}
	if b.calls != 1 {
		t.Errorf("broadcaster called %d times, want 1", b.calls)
	}
}

func TestDispatchNoTargets(t *testing.T) {
	d := notify.NewDispatcher(nil, nil, testLogger())
	if expired := d.Dispatch(context.Background(), "t", "b", nil); len(expired) != 0 {
		t.Errorf("expired = %v", expired)
	}
}
