package shipment

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// fingerprintNamespace scopes UUIDv5 fingerprints to shipment orders.
var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:rebar-stats:shipment-order"))

// Fingerprint identifies an order across reloads by its natural key:
// supplier, material, specification, delivery date and department.
// Row position and unrelated columns never contribute.
func Fingerprint(o Order) string {
	delivery := ""
	if o.PlannedArrival != nil {
		delivery = o.PlannedArrival.Format(time.DateOnly)
	}
	key := strings.Join([]string{o.Supplier, o.Material, o.Specification, delivery, o.Department}, "\x1f")
	return uuid.NewSHA1(fingerprintNamespace, []byte(key)).String()
}

// Entry is one overlay value.
type Entry struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlay is a sparse fingerprint-keyed status store layered over orders.
// Only Arrived and NotArrived are ever stored.
type Overlay map[string]Entry

// Get returns the status for fp, Unset when absent.
func (ov Overlay) Get(fp string) Entry {
	if e, ok := ov[fp]; ok {
		return e
	}
	return Entry{Status: StatusUnset}
}

// Set returns a copy of ov with fp moved to status. Setting Unset removes the
// entry. notArrived is true only when the status changes into NotArrived.
func (ov Overlay) Set(fp string, status Status, at time.Time) (next Overlay, notArrived bool) {
	prev := ov.Get(fp).Status
	next = maps.Clone(ov)
	if next == nil {
		next = Overlay{}
	}
	if status == StatusUnset {
		delete(next, fp)
	} else {
		next[fp] = Entry{Status: status, UpdatedAt: at}
	}
	return next, status == StatusNotArrived && prev != StatusNotArrived
}

// Merge overlays other on top of ov, last write wins per fingerprint.
func (ov Overlay) Merge(other Overlay) Overlay {
	out := maps.Clone(ov)
	if out == nil {
		out = Overlay{}
	}
	for fp, e := range other {
		if cur, ok := out[fp]; ok && cur.UpdatedAt.After(e.UpdatedAt) {
			continue
		}
		out[fp] = e
	}
	return out
}

// ApplyOverlay left-joins orders with ov. Orders without an entry are Unset.
func ApplyOverlay(orders []Order, ov Overlay) []TrackedOrder {
	return lo.Map(orders, func(o Order, _ int) TrackedOrder {
		fp := Fingerprint(o)
		t := TrackedOrder{Order: o, Fingerprint: fp, IsOverdue: o.Overdue()}
		if e, ok := ov[fp]; ok {
			t.Status = e.Status
			at := e.UpdatedAt
			t.StatusUpdatedAt = &at
		}
		return t
	})
}

// FindByFingerprint returns the first order whose fingerprint is fp.
func FindByFingerprint(orders []Order, fp string) (Order, bool) {
	return lo.Find(orders, func(o Order) bool { return Fingerprint(o) == fp })
}
