package search

import (
	"fmt"
	"strings"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

// Bound values clients send to mean "no bound".
const (
	MinPriceSentinel = 0
	MaxPriceSentinel = 999999
)

// FilterRequest is one listing query. Nil bounds, empty sets and nil
// booleans impose no constraint.
type FilterRequest struct {
	MinPrice         *float64
	MaxPrice         *float64
	CarTypes         []string
	Categories       []string
	Fuels            []string
	Agencies         []string
	FreeCancellation *bool
	UnlimitedMileage *bool
	PickupLocation   string
	// DropoffLocation is accepted for compatibility and not used for
	// filtering.
	DropoffLocation string
	Sort            dal.SortKey
}

// Normalize returns a copy with sentinel bounds removed and blank or
// repeated set members dropped.
func (r FilterRequest) Normalize() FilterRequest {
	if r.MinPrice != nil && *r.MinPrice == MinPriceSentinel {
		r.MinPrice = nil
	}
	if r.MaxPrice != nil && *r.MaxPrice == MaxPriceSentinel {
		r.MaxPrice = nil
	}
	r.CarTypes = cleanSet(r.CarTypes)
	r.Categories = cleanSet(r.Categories)
	r.Fuels = cleanSet(r.Fuels)
	r.Agencies = cleanSet(r.Agencies)
	r.PickupLocation = strings.TrimSpace(r.PickupLocation)
	r.Sort = dal.ParseSortKey(string(r.Sort))
	return r
}

func cleanSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Criteria translates the non-location predicates for the repository.
func (r FilterRequest) Criteria() dal.Criteria {
	return dal.Criteria{
		MinPrice:         r.MinPrice,
		MaxPrice:         r.MaxPrice,
		CarTypes:         r.CarTypes,
		Categories:       r.Categories,
		Fuels:            r.Fuels,
		Agencies:         r.Agencies,
		FreeCancellation: r.FreeCancellation,
		UnlimitedMileage: r.UnlimitedMileage,
	}
}

// Match evaluates the non-location predicates against l with the same
// semantics the repository applies in SQL.
func (r FilterRequest) Match(l dal.Listing) bool {
	price := l.Price.Price
	if r.MinPrice != nil && price < *r.MinPrice {
		return false
	}
	if r.MaxPrice != nil && price > *r.MaxPrice {
		return false
	}
	if !inSet(r.CarTypes, l.Car.Type) ||
		!inSet(r.Categories, l.Car.Category) ||
		!inSet(r.Fuels, l.Car.Fuel) ||
		!inSet(r.Agencies, l.Agency.Name) {
		return false
	}
	if r.FreeCancellation != nil && l.Price.FreeCancellation != *r.FreeCancellation {
		return false
	}
	if r.UnlimitedMileage != nil && l.Price.UnlimitedMileage != *r.UnlimitedMileage {
		return false
	}
	return true
}

func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Mode is the evaluation strategy of a search.
type Mode string

const (
	ModeAuto Mode = "auto"
	// ModePushdown lets the repository filter, count, order and slice.
	ModePushdown Mode = "pushdown"
	// ModeMemory loads the whole join and filters it here. Needed whenever
	// a location constraint is present because pickups may be serialized.
	ModeMemory Mode = "memory"
)

// ParseMode accepts "", "auto", "pushdown" and "memory".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModePushdown, ModeMemory:
		return m, nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

// Engine picks a mode for a request and runs the in-memory filter.
type Engine struct {
	normalizer *Normalizer
	force      Mode
}

// NewEngine returns an Engine. force other than ModeAuto overrides mode
// selection where possible.
func NewEngine(n *Normalizer, force Mode) *Engine {
	if force == "" {
		force = ModeAuto
	}
	return &Engine{normalizer: n, force: force}
}

// Plan returns the mode for r and its location keywords. A location
// constraint can only be evaluated in memory, so forcing ModePushdown has
// no effect when keywords are present.
func (e *Engine) Plan(r FilterRequest) (Mode, Keywords) {
	kw := e.normalizer.Normalize(r.PickupLocation)
	switch {
	case !kw.Empty():
		return ModeMemory, kw
	case e.force == ModeMemory:
		return ModeMemory, kw
	default:
		return ModePushdown, kw
	}
}

// Filtered is the outcome of an in-memory filter pass.
type Filtered struct {
	Listings []dal.Listing
	// Malformed counts candidates whose pickup could not be parsed.
	Malformed int
}

// Filter keeps the candidates matching r, preserving their order. A listing
// whose pickup is malformed resolves to an empty address: it is excluded by
// any non-empty keyword set and kept otherwise.
func (e *Engine) Filter(candidates []dal.Listing, r FilterRequest) Filtered {
	kw := e.normalizer.Normalize(r.PickupLocation)
	var out Filtered
	for _, l := range candidates {
		addr := ResolveAddress(l.Price)
		if addr.Malformed {
			out.Malformed++
		}
		if !kw.MatchAny(addr.Text) {
			continue
		}
		if !r.Match(l) {
			continue
		}
		out.Listings = append(out.Listings, l)
	}
	return out
}
