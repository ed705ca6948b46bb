package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// pushTTL is how long the push service may queue an undelivered message.
const pushTTL = 60

// WebPushTransport delivers notifications to browser push endpoints using
// the Web Push protocol with VAPID authentication.
type WebPushTransport struct {
	publicKey  string
	privateKey string
	subscriber string // contact mailto for the push service
}

// NewWebPushTransport creates a WebPushTransport with the given VAPID key
// pair and subscriber contact address.
func NewWebPushTransport(vapidPublicKey, vapidPrivateKey, subscriber string) *WebPushTransport {
	return &WebPushTransport{
		publicKey:  vapidPublicKey,
		privateKey: vapidPrivateKey,
		subscriber: subscriber,
	}
}

// pushPayload is the JSON body the service worker renders.
type pushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon"`
	Badge     string `json:"badge"`
	Timestamp int64  `json:"timestamp"`
}

// Send pushes one notification to the subscription endpoint. A 404 or 410
// from the push service means the subscription expired and is reported as
// domain.ErrEndpointGone so the caller can prune it.
func (t *WebPushTransport) Send(ctx context.Context, sub domain.PushSubscription, title, body string) error {
	payload, err := json.Marshal(pushPayload{
		Title:     title,
		Body:      body,
		Icon:      "/icons/icon-192.png",
		Badge:     "/icons/icon-192.png",
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("webpush: marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		return fmt.Errorf("webpush: send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("webpush: %s: %w", sub.Endpoint, domain.ErrEndpointGone)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("webpush: unexpected status %d", resp.StatusCode)
	}

	return nil
}
