// Package catalog describes the values clients can filter on.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

// Price range reported when no prices are stored.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 10000
)

// AgencyOption is one agency in the filter list; a missing rating is 0.
type AgencyOption struct {
	Name   string  `json:"name"`
	Code   string  `json:"code"`
	Logo   string  `json:"logo"`
	Rating float64 `json:"rating"`
}

// PriceRange bounds the listed prices.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters lists the available filter values.
type Filters struct {
	CarTypes   []string       `json:"car_types"`
	FuelTypes  []string       `json:"fuel_types"`
	Categories []string       `json:"categories"`
	Agencies   []AgencyOption `json:"agencies"`
	PriceRange PriceRange     `json:"price_range"`
}

// Location is a pickup city a client can search for.
type Location struct {
	Name        string   `json:"name"`
	FullAddress string   `json:"full_address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// Service builds the filter and location catalogs.
type Service struct {
	sessions dal.Sessions
}

// NewService returns a Service reading through sessions.
func NewService(sessions dal.Sessions) *Service {
	return &Service{sessions: sessions}
}

// Filters collects the distinct filter values, agencies and price range.
func (s *Service) Filters(ctx context.Context) (*Filters, error) {
	out := &Filters{}
	err := s.sessions.WithSession(ctx, func(repo dal.Repository) error {
		var err error
		if out.CarTypes, err = repo.Distinct(dal.ColumnType); err != nil {
			return err
		}
		if out.FuelTypes, err = repo.Distinct(dal.ColumnFuel); err != nil {
			return err
		}
		if out.Categories, err = repo.Distinct(dal.ColumnCategory); err != nil {
			return err
		}
		agencies, err := repo.Agencies()
		if err != nil {
			return err
		}
		out.Agencies = agencyOptions(agencies)

		lo, hi, err := repo.PriceRange()
		if err != nil {
			return err
		}
		out.PriceRange = priceRange(lo, hi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrRepository, err)
	}
	out.CarTypes = nonNil(out.CarTypes)
	out.FuelTypes = nonNil(out.FuelTypes)
	out.Categories = nonNil(out.Categories)
	return out, nil
}

// agencyOptions keeps one entry per code with the highest rating seen,
// sorted by name.
func agencyOptions(agencies []dal.Agency) []AgencyOption {
	out := make([]AgencyOption, 0, len(agencies))
	byCode := make(map[string]int, len(agencies))
	for _, a := range agencies {
		if i, ok := byCode[a.Code]; ok {
			if r := a.RatingOrZero(); r > out[i].Rating {
				out[i].Rating = r
			}
			continue
		}
		byCode[a.Code] = len(out)
		out = append(out, AgencyOption{Name: a.Name, Code: a.Code, Logo: a.Logo, Rating: a.RatingOrZero()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func priceRange(lo, hi *float64) PriceRange {
	r := PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice}
	if lo != nil {
		r.Min = *lo
	}
	if hi != nil && *hi != 0 {
		r.Max = *hi
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Locations lists pickup cities sorted by name, one entry per name.
func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	var pickups []dal.CarPrice
	err := s.sessions.WithSession(ctx, func(repo dal.Repository) error {
		var err error
		pickups, err = repo.Pickups()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrRepository, err)
	}

	out := []Location{}
	seen := make(map[string]struct{})
	for _, p := range pickups {
		addr := search.ResolveAddress(p)
		if addr.Malformed || addr.Text == "" {
			continue
		}
		name := LocationName(addr.Text)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Location{
			Name:        name,
			FullAddress: addr.Text,
			Latitude:    addr.Latitude,
			Longitude:   addr.Longitude,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LocationName derives "<city>, <region>" from an address shaped like
// "7135 Gilespie St, Las Vegas, Clark County, Nevada, 89119, United States".
// Addresses with fewer than two parts yield "".
func LocationName(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	city := strings.TrimSpace(parts[1])
	var region string
	if len(parts) >= 4 {
		region = strings.TrimSpace(parts[3])
	}
	return strings.Trim(city+", "+region, ", ")
}
