package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hlwatch/hlwatch/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// keepAlivePeriod sends pings to the peer at this interval. Must be less
	// than pongWait.
	keepAlivePeriod = 30 * time.Second

	// connectTimeout bounds how long a single Connect call may take.
	connectTimeout = 10 * time.Second

	// baseReconnectDelay is the delay before the first reconnect attempt;
	// subsequent attempts back off exponentially up to maxReconnectDelay.
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 30 * time.Second

	// maxReconnectAttempts is the number of consecutive failed reconnects
	// before the client gives up and latches into StateFailed.
	maxReconnectAttempts = 10
)

// ConnState describes the stream connection lifecycle.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"

	// StateFailed means the reconnect budget is exhausted; no further
	// automatic attempts happen until an explicit Connect call.
	StateFailed ConnState = "failed"
)

// FillHandler receives one live fill for the wallet it was registered under.
// Handlers run sequentially on the stream's read loop.
type FillHandler func(wallet string, fill domain.Fill)

// WSClient maintains the single persistent connection to the Hyperliquid
// real-time stream. It owns the per-wallet subscription registry, replays
// subscriptions after every reconnect, keeps the connection alive with
// periodic pings, and backs off exponentially on disconnects.
type WSClient struct {
	wsURL  string
	logger *slog.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	state          ConnState
	closed         bool
	attempts       int
	reconnectTimer *time.Timer
	connStop       chan struct{} // closed when the current connection is torn down
	subs           map[string]FillHandler
}

// NewWSClient creates a stream client for the given WebSocket URL, e.g.
// "wss://api.hyperliquid.xyz/ws".
func NewWSClient(wsURL string, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		state:  StateDisconnected,
		subs:   make(map[string]FillHandler),
		logger: logger.With(slog.String("component", "hyperliquid/ws")),
	}
}

// State returns the current connection state.
func (w *WSClient) State() ConnState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Connect dials the stream. It is idempotent: a call while already connecting
// or connected returns immediately. The dial is bounded by connectTimeout; a
// timeout is reported as domain.ErrConnectTimeout, distinct from transport
// failures. On success the subscription registry is replayed and the
// keep-alive loop starts.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("hyperliquid/ws: %w", domain.ErrStreamClosed)
	}
	if w.state == StateConnected || w.state == StateConnecting {
		w.mu.Unlock()
		return nil
	}
	w.state = StateConnecting
	w.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dctx, w.wsURL, nil)
	if err != nil {
		w.mu.Lock()
		w.state = StateDisconnected
		w.mu.Unlock()
		if isTimeout(err) {
			return fmt.Errorf("hyperliquid/ws: connect: %w", domain.ErrConnectTimeout)
		}
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return fmt.Errorf("hyperliquid/ws: %w", domain.ErrStreamClosed)
	}
	w.conn = conn
	w.state = StateConnected
	w.attempts = 0
	stop := make(chan struct{})
	w.connStop = stop

	// Replay every registered subscription on the fresh connection.
	for addr := range w.subs {
		w.sendLocked(subscribeMessage("subscribe", addr))
	}
	w.mu.Unlock()

	w.logger.Info("stream connected", slog.String("url", w.wsURL))

	go w.readLoop(conn)
	go w.keepAlive(conn, stop)

	return nil
}

// Subscribe registers the callback for a wallet, replacing any prior one.
// Addresses are matched case-insensitively. If connected, the subscribe
// message goes out immediately; otherwise the registry entry is replayed on
// the next successful connect.
func (w *WSClient) Subscribe(address string, handler FillHandler) {
	addr := strings.ToLower(address)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.subs[addr] = handler
	if w.state == StateConnected {
		w.sendLocked(subscribeMessage("subscribe", addr))
	}
}

// Unsubscribe removes a wallet from the registry and, when connected, tells
// the server to stop streaming its fills.
func (w *WSClient) Unsubscribe(address string) {
	addr := strings.ToLower(address)

	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.subs, addr)
	if w.state == StateConnected {
		w.sendLocked(subscribeMessage("unsubscribe", addr))
	}
}

// Close tears the client down: it cancels any pending reconnect, stops the
// keep-alive loop, closes the transport, and clears the subscription
// registry. Close is terminal; the client cannot be reused.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.state = StateDisconnected

	if w.reconnectTimer != nil {
		w.reconnectTimer.Stop()
		w.reconnectTimer = nil
	}
	if w.connStop != nil {
		close(w.connStop)
		w.connStop = nil
	}
	w.subs = make(map[string]FillHandler)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

type wsCommand struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Type string `json:"type"`
	User string `json:"user"`
}

func subscribeMessage(method, address string) wsCommand {
	return wsCommand{
		Method:       method,
		Subscription: wsSubscription{Type: "userFills", User: address},
	}
}

// sendLocked writes a JSON command on the current connection. Caller must
// hold w.mu. Send failures are logged, not surfaced: the read loop notices
// the broken connection and drives the reconnect.
func (w *WSClient) sendLocked(cmd wsCommand) {
	if w.conn == nil {
		return
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(cmd); err != nil {
		w.logger.Warn("stream send failed",
			slog.String("method", cmd.Method),
			slog.String("user", cmd.Subscription.User),
			slog.String("error", err.Error()),
		)
	}
}

// readLoop reads messages off one connection until it breaks, then hands off
// to the reconnect scheduler.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			w.handleDisconnect(conn)
			return
		}
		w.handleMessage(raw)
	}
}

// keepAlive pings the peer every keepAlivePeriod so idle timeouts never fire.
func (w *WSClient) keepAlive(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.conn != conn {
				w.mu.Unlock()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound frame. Only userFills events carrying a
// non-empty fill list are dispatched; anything unknown or malformed is
// dropped without disturbing the connection.
func (w *WSClient) handleMessage(raw []byte) {
	var msg struct {
		Channel string `json:"channel"`
		Data    struct {
			User  string    `json:"user"`
			Fills []apiFill `json:"fills"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Channel != "userFills" || len(msg.Data.Fills) == 0 {
		return
	}

	wallet := strings.ToLower(msg.Data.User)

	w.mu.Lock()
	handler := w.subs[wallet]
	w.mu.Unlock()

	if handler == nil {
		return
	}
	for _, f := range msg.Data.Fills {
		handler(wallet, toDomainFill(f, wallet))
	}
}

// handleDisconnect tears down a broken connection and schedules the next
// reconnect attempt unless the client was intentionally closed.
func (w *WSClient) handleDisconnect(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != conn {
		return // stale connection, already superseded
	}
	conn.Close()
	w.conn = nil
	w.state = StateDisconnected
	if w.connStop != nil {
		close(w.connStop)
		w.connStop = nil
	}

	if w.closed {
		return
	}
	w.logger.Warn("stream disconnected")
	w.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next reconnect
// attempt, or latches StateFailed once the attempt budget is spent. Caller
// must hold w.mu.
func (w *WSClient) scheduleReconnectLocked() {
	if w.attempts >= maxReconnectAttempts {
		w.state = StateFailed
		w.logger.Error("stream reconnect attempts exhausted",
			slog.Int("attempts", w.attempts),
		)
		return
	}

	delay := baseReconnectDelay << w.attempts
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	w.attempts++

	w.logger.Info("stream reconnect scheduled",
		slog.Duration("delay", delay),
		slog.Int("attempt", w.attempts),
	)

	w.reconnectTimer = time.AfterFunc(delay, func() {
		w.mu.Lock()
		if w.closed || w.state != StateDisconnected {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := w.Connect(ctx)
		cancel()
		if err != nil {
			w.mu.Lock()
			if !w.closed {
				w.scheduleReconnectLocked()
			}
			w.mu.Unlock()
		}
	})
}

// isTimeout reports whether a dial error is a timeout rather than a plain
// transport failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
