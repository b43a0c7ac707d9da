package session

import (
	"fmt"

	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
)

type EventKind string

const (
	EventSet          EventKind = "set"
	EventAdd          EventKind = "add"
	EventRemove       EventKind = "remove"
	EventClear        EventKind = "clear"
	EventSelectAll    EventKind = "select_all"
	EventReset        EventKind = "reset"
	EventAudienceMode EventKind = "audience_mode"
	EventPurchaseType EventKind = "purchase_type"
	EventRfmMode      EventKind = "rfm_mode"
	EventScalars      EventKind = "scalars"
)

// Event is one edit made in the authoring form.
type Event struct {
	Kind         EventKind              `json:"kind"`
	Dimension    string                 `json:"dimension,omitempty"`
	Values       []string               `json:"values,omitempty"`
	AudienceMode string                 `json:"audience_mode,omitempty"`
	PurchaseType string                 `json:"purchase_type,omitempty"`
	RfmMode      string                 `json:"rfm_mode,omitempty"`
	Scalars      *selection.ScalarPatch `json:"scalars,omitempty"`
}

type InvalidEventError struct {
	Kind   EventKind
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid %q event: %s", e.Kind, e.Reason)
}

func (e Event) dimension() (types.Dimension, error) {
	d, err := types.ParseDimension(e.Dimension)
	if err != nil {
		return "", &InvalidEventError{Kind: e.Kind, Reason: err.Error()}
	}
	return d, nil
}

func (e Event) targetsDimension() bool {
	switch e.Kind {
	case EventSet, EventAdd, EventRemove, EventClear, EventSelectAll:
		return true
	}
	return false
}
