package shipment

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OverlayStore persists the whole overlay. Implementations read and write it
// as one unit.
type OverlayStore interface {
	Load(ctx context.Context) (Overlay, error)
	Save(ctx context.Context, ov Overlay) error
}

// Notification is the outbound message sent when an order becomes NotArrived.
type Notification struct {
	Fingerprint   string    `json:"fingerprint"`
	Department    string    `json:"project_department"`
	Segment       string    `json:"segment_name"`
	Material      string    `json:"material_name"`
	Specification string    `json:"specification"`
	Supplier      string    `json:"supplier"`
	Status        Status    `json:"status"`
	ChangedAt     time.Time `json:"changed_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// StatusResult describes the outcome of one status change.
type StatusResult struct {
	Fingerprint string `json:"fingerprint"`
	Previous    Status `json:"previous"`
	Current     Status `json:"current"`
	Notified    bool   `json:"notified"`
	NotifyError string `json:"notify_error,omitempty"`
}

// StatusService applies status changes to the overlay store.
//
// Writes within one process are serialized. Separate processes sharing a
// store are last-writer-wins: each one reads the full overlay, mutates it and
// writes it back, so a concurrent change made in between is overwritten.
type StatusService struct {
	mu       sync.Mutex
	store    OverlayStore
	notifier Notifier
	now      func() time.Time
}

// NewStatusService builds a service. A nil notifier disables notifications.
func NewStatusService(store OverlayStore, notifier Notifier) *StatusService {
	return &StatusService{store: store, notifier: notifier, now: time.Now}
}

func (s *StatusService) Overlay(ctx context.Context) (Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// SetStatus records status for order. A persistence failure is returned as an
// *OverlayWriteError. A notification failure is logged and reported in the
// result only; the stored status stands.
func (s *StatusService) SetStatus(ctx context.Context, order Order, status Status) (StatusResult, error) {
	fp := Fingerprint(order)
	res := StatusResult{Fingerprint: fp, Current: status}

	s.mu.Lock()
	ov, err := s.store.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return res, &OverlayWriteError{Fingerprint: fp, Err: err}
	}
	res.Previous = ov.Get(fp).Status
	at := s.now()
	next, notArrived := ov.Set(fp, status, at)
	if err := s.store.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return res, &OverlayWriteError{Fingerprint: fp, Err: err}
	}
	s.mu.Unlock()

	slog.Info("status.set", "fingerprint", fp, "previous", res.Previous.String(), "current", status.String())
	if !notArrived || s.notifier == nil {
		return res, nil
	}
	n := Notification{
		Fingerprint:   fp,
		Department:    order.Department,
		Segment:       order.Segment,
		Material:      order.Material,
		Specification: order.Specification,
		Supplier:      order.Supplier,
		Status:        status,
		ChangedAt:     at,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		slog.Warn("status.notify.error", "fingerprint", fp, "error", err)
		res.NotifyError = err.Error()
		return res, nil
	}
	res.Notified = true
	return res, nil
}
