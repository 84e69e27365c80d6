package shipment

import (
	"fmt"
	"strings"
)

// Status is the operational arrival status kept in the overlay.
type Status int

const (
	StatusUnset Status = iota
	StatusArrived
	StatusNotArrived
)

func (s Status) String() string {
	switch s {
	case StatusArrived:
		return "arrived"
	case StatusNotArrived:
		return "not_arrived"
	default:
		return "unset"
	}
}

// ParseStatus accepts the canonical names and the labels used on the
// logistics sheet.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unset", "":
		return StatusUnset, nil
	case "arrived", "已到货":
		return StatusArrived, nil
	case "not_arrived", "notarrived", "未到货":
		return StatusNotArrived, nil
	}
	return StatusUnset, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
