package shipment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("end date is earlier than start date")
	ErrUnknownStatus = errors.New("unknown status")
	ErrOrderNotFound = errors.New("order not found")
)

// SchemaError reports canonical fields that no header or alias could supply.
// It is fatal to the whole load.
type SchemaError struct {
	Missing []string
	Headers []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns %s (headers: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Headers, ", "))
}

// SourceUnavailableError reports that no input table could be obtained.
type SourceUnavailableError struct {
	Source     string
	Candidates []string
	Err        error
}

func (e *SourceUnavailableError) Error() string {
	var b strings.Builder
	b.WriteString("order data unavailable")
	if e.Source != "" {
		fmt.Fprintf(&b, " at %s", e.Source)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (tried: %s)", strings.Join(e.Candidates, ", "))
	}
	return b.String()
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// OverlayWriteError reports that a status change could not be persisted.
// Notification failures are never reported through this type.
type OverlayWriteError struct {
	Fingerprint string
	Err         error
}

func (e *OverlayWriteError) Error() string {
	return fmt.Sprintf("persist status for %s: %v", e.Fingerprint, e.Err)
}

func (e *OverlayWriteError) Unwrap() error { return e.Err }
