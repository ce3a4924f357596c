package search

import (
	"encoding/json"
	"strings"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

// PickupKind tags how a pickup location was stored.
type PickupKind int

const (
	PickupNone PickupKind = iota
	PickupFlat
	// PickupStructured is a serialized {"address","latitude","longitude"}
	// object, written by older exports.
	PickupStructured
)

// ClassifyPickup inspects a stored pickup value.
func ClassifyPickup(raw string) PickupKind {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return PickupNone
	case strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, `"{`):
		return PickupStructured
	default:
		return PickupFlat
	}
}

// Address is the comparable pickup address of a listing.
type Address struct {
	Text      string
	Latitude  *float64
	Longitude *float64
	Kind      PickupKind
	// Malformed is set when a structured pickup could not be parsed; Text
	// and coordinates are then empty.
	Malformed bool
}

type structuredPickup struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ResolveAddress extracts the address and coordinates of p. It never fails:
// an unparsable structured pickup resolves to an empty, malformed Address.
func ResolveAddress(p dal.CarPrice) Address {
	var raw string
	if p.PickupLocation != nil {
		raw = *p.PickupLocation
	}
	kind := ClassifyPickup(raw)
	switch kind {
	case PickupNone:
		return Address{Kind: PickupNone, Latitude: p.Latitude, Longitude: p.Longitude}
	case PickupFlat:
		return Address{Text: strings.TrimSpace(raw), Latitude: p.Latitude, Longitude: p.Longitude, Kind: PickupFlat}
	}

	sp, ok := parseStructured(strings.TrimSpace(raw))
	if !ok {
		return Address{Kind: PickupStructured, Malformed: true}
	}
	return Address{
		Text:      strings.TrimSpace(sp.Address),
		Latitude:  sp.Latitude,
		Longitude: sp.Longitude,
		Kind:      PickupStructured,
	}
}

// parseStructured accepts an object or a JSON string holding one.
func parseStructured(raw string) (structuredPickup, bool) {
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return structuredPickup{}, false
		}
		raw = strings.TrimSpace(inner)
	}
	var sp structuredPickup
	if err := json.Unmarshal([]byte(raw), &sp); err != nil {
		return structuredPickup{}, false
	}
	return sp, true
}
