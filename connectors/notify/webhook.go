// Package notify delivers NotArrived notifications to an HTTP webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	dc "rebar-stats/domain/config"
	"rebar-stats/domain/shipment"
)

const userAgent = "rebar-stats/notify"

// Webhook posts each notification as JSON to a fixed URL.
type Webhook struct {
	c   *http.Client
	url string
}

type message struct {
	ID    string                `json:"id"`
	Event string                `json:"event"`
	Order shipment.Notification `json:"order"`
}

// New builds a Webhook around c. A nil c gets a client with a 10s timeout.
func New(c *http.Client, url string) *Webhook {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{c: c, url: url}
}

// FromConfig returns the notifier described by cfg, or nil when no URL is set.
// Authentication rides on an oauth2 transport so tokens are attached and
// refreshed outside the request code.
func FromConfig(ctx context.Context, cfg dc.Notify) shipment.Notifier {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	c := base
	switch {
	case cfg.TokenURL != "" && cfg.ClientID != "":
		cc := clientcredentials.Config{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret, TokenURL: cfg.TokenURL}
		c = cc.Client(ctx)
		c.Timeout = timeout
	case cfg.Token != "":
		c = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}))
		c.Timeout = timeout
	}
	return New(c, cfg.URL)
}

func (w *Webhook) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (w *Webhook) Notify(ctx context.Context, n shipment.Notification) error {
	msg := message{ID: uuid.NewString(), Event: "shipment.not_arrived", Order: n}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := w.newRequest(ctx, body)
	if err != nil {
		return err
	}
	req.Header.Set("Idempotency-Key", msg.ID)

	resp, err := w.c.Do(req)
	if err != nil {
		return fmt.Errorf("notify %s: %w", w.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify %s returned %d: %s", w.url, resp.StatusCode, string(b))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	slog.Info("notify.sent", "id", msg.ID, "fingerprint", n.Fingerprint)
	return nil
}
