package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

// Page is a 1-indexed page request.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of results before the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Limits bounds the page size.
type Limits struct {
	Default int
	Min     int
	Max     int
}

// DefaultLimits are used when none are configured.
var DefaultLimits = Limits{Default: 12, Min: 1, Max: 50}

// Check rejects page numbers below 1, limits outside [Min, Max] and pages
// whose offset does not fit in an int.
func (l Limits) Check(p Page) error {
	if p.Number < 1 {
		return fmt.Errorf("%w: page must be at least 1", ErrInvalidParameter)
	}
	if p.Limit < l.Min || p.Limit > l.Max {
		return fmt.Errorf("%w: limit must be between %d and %d", ErrInvalidParameter, l.Min, l.Max)
	}
	if p.Number > math.MaxInt/p.Limit {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidParameter, p.Number)
	}
	return nil
}

// SortListings orders ls in place by key. Equal keys keep their input order.
func SortListings(ls []dal.Listing, key dal.SortKey) {
	var less func(a, b dal.Listing) bool
	switch key {
	case dal.SortPriceDesc:
		less = func(a, b dal.Listing) bool { return a.Price.Price > b.Price.Price }
	case dal.SortRating:
		less = func(a, b dal.Listing) bool { return a.Agency.RatingOrZero() > b.Agency.RatingOrZero() }
	case dal.SortName:
		less = func(a, b dal.Listing) bool { return a.Car.Name < b.Car.Name }
	default:
		less = func(a, b dal.Listing) bool { return a.Price.Price < b.Price.Price }
	}
	sort.SliceStable(ls, func(i, j int) bool { return less(ls[i], ls[j]) })
}

// Paginate returns the window of ls selected by p. Pages past the end are
// empty.
func Paginate(ls []dal.Listing, p Page) []dal.Listing {
	start := p.Offset()
	if start < 0 || start >= len(ls) {
		return nil
	}
	end := start + p.Limit
	if end > len(ls) {
		end = len(ls)
	}
	return ls[start:end]
}

// TotalPages is ceil(count/limit), and 0 for an empty result.
func TotalPages(count, limit int) int {
	if count <= 0 || limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}

// SortAndPage sorts subset in place and returns page p of it with the total
// count and page total.
func SortAndPage(subset []dal.Listing, key dal.SortKey, p Page) ([]dal.Listing, int, int) {
	SortListings(subset, key)
	return Paginate(subset, p), len(subset), TotalPages(len(subset), p.Limit)
}
