package search_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal/daltest"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

const (
	vegasAddress     = "7135 Gilespie St, Las Vegas, Clark County, Nevada, 89119, United States"
	hendersonAddress = "1450 W Horizon Ridge Pkwy, Henderson, Clark County, Nevada, 89012, United States"
)

// fleet seeds three listings priced [50, 20, 80] with agency ratings
// [4.5, none, 3.0].
func fleet() dal.Dataset {
	return dal.Dataset{Results: []dal.DatasetItem{
		daltest.Item(daltest.ItemSpec{
			Car: "Toyota Corolla", Sipp: "CCAR", Type: "Sedan", Category: "Compact", Fuel: "Petrol",
			Agency: "Hertz", AgencyCode: "ZE", Rating: daltest.Float(4.5),
			Address: vegasAddress, Lat: daltest.Float(36.06), Lon: daltest.Float(-115.16),
			Offers: []daltest.Offer{{Provider: "Expedia", Price: 50, FreeCancellation: true}},
		}),
		daltest.Item(daltest.ItemSpec{
			Car: "Kia Rio", Sipp: "ECAR", Type: "Hatchback", Category: "Economy", Fuel: "Petrol",
			Agency: "Budget", AgencyCode: "ZD",
			Address: hendersonAddress,
			Offers:  []daltest.Offer{{Provider: "Kayak", Price: 20, UnlimitedMileage: true}},
		}),
		daltest.Item(daltest.ItemSpec{
			Car: "Tesla Model 3", Sipp: "PCAE", Type: "Sedan", Category: "Premium", Fuel: "Electric",
			Agency: "Sixt", AgencyCode: "SX", Rating: daltest.Float(3.0),
			Address: vegasAddress, Lat: daltest.Float(36.06), Lon: daltest.Float(-115.16),
			Offers: []daltest.Offer{{Provider: "Expedia", Price: 80, FreeCancellation: true, UnlimitedMileage: true}},
		}),
	}}
}

func newService(t *testing.T, sessions dal.Sessions, force search.Mode, stopWords ...string) *search.Service {
	t.Helper()
	n, err := search.NewNormalizer(search.LocationOptions{StopWords: stopWords})
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return search.NewService(sessions, search.NewEngine(n, force), search.DefaultLimits)
}

func prices(res *search.Result) []float64 {
	out := make([]float64, len(res.Items))
	for i, it := range res.Items {
		out[i] = it.Price.Price
	}
	return out
}

func mustSearch(t *testing.T, svc *search.Service, r search.FilterRequest, p search.Page) *search.Result {
	t.Helper()
	res, err := svc.Search(context.Background(), r, p)
	if err != nil {
		t.Fatalf("Search(%+v): %v", r, err)
	}
	return res
}

var firstPage = search.Page{Number: 1, Limit: 12}

func TestSearch(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	svc := newService(t, store, search.ModeAuto)

	yes := true
	tests := []struct {
		name string
		req  search.FilterRequest
		mode search.Mode
		want []float64
	}{
		{"Default", search.FilterRequest{}, search.ModePushdown, []float64{20, 50, 80}},
		{"PriceDesc", search.FilterRequest{Sort: dal.SortPriceDesc}, search.ModePushdown, []float64{80, 50, 20}},
		{"RatingMissingLast", search.FilterRequest{Sort: dal.SortRating}, search.ModePushdown, []float64{50, 80, 20}},
		{"Sentinels", search.FilterRequest{MinPrice: daltest.Float(0), MaxPrice: daltest.Float(999999)}, search.ModePushdown, []float64{20, 50, 80}},
		{"Bounds", search.FilterRequest{MinPrice: daltest.Float(20), MaxPrice: daltest.Float(50)}, search.ModePushdown, []float64{20, 50}},
		{"BlankType", search.FilterRequest{CarTypes: []string{""}}, search.ModePushdown, []float64{20, 50, 80}},
		{"Vegas", search.FilterRequest{PickupLocation: "Las Vegas"}, search.ModeMemory, []float64{50, 80}},
		{"Henderson", search.FilterRequest{PickupLocation: "henderson, NV"}, search.ModeMemory, []float64{20}},
		{"LocationAndFlags", search.FilterRequest{PickupLocation: "clark", UnlimitedMileage: &yes, Sort: dal.SortPriceDesc}, search.ModeMemory, []float64{80, 20}},
		{"DropoffIgnored", search.FilterRequest{DropoffLocation: "Boston"}, search.ModePushdown, []float64{20, 50, 80}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := mustSearch(t, svc, tc.req, firstPage)
			if res.Mode != tc.mode {
				t.Errorf("mode: got %s, want %s", res.Mode, tc.mode)
			}
			if got := prices(res); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("prices: got %v, want %v", got, tc.want)
			}
			if res.Count != len(tc.want) || res.TotalPages != 1 {
				t.Errorf("count/pages: got %d/%d", res.Count, res.TotalPages)
			}
		})
	}
}

func TestSearchNoMatches(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	svc := newService(t, store, search.ModeAuto)

	for _, r := range []search.FilterRequest{
		{PickupLocation: "Boston"},
		{Fuels: []string{"Hydrogen"}},
	} {
		res := mustSearch(t, svc, r, firstPage)
		if res.Count != 0 || res.TotalPages != 0 || len(res.Items) != 0 {
			t.Errorf("%+v: got count=%d pages=%d items=%d", r, res.Count, res.TotalPages, len(res.Items))
		}
	}
}

func TestSearchModesAgree(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	extra := dal.Dataset{}
	for i := 0; i < 7; i++ {
		extra.Results = append(extra.Results, daltest.Item(daltest.ItemSpec{
			Car: fmt.Sprintf("Fleet Car %d", i), Sipp: "IDAR", Type: "SUV", Category: "Intermediate", Fuel: "Diesel",
			Agency: "Hertz", AgencyCode: "ZE", Rating: daltest.Float(4.5), Address: vegasAddress,
			Offers: []daltest.Offer{{Provider: "Expedia", Price: float64(50 + i%3*10)}},
		}))
	}
	daltest.Seed(t, store, extra)

	auto := newService(t, store, search.ModeAuto)
	memory := newService(t, store, search.ModeMemory)

	yes := true
	requests := []search.FilterRequest{
		{},
		{Sort: dal.SortPriceDesc},
		{Sort: dal.SortRating},
		{Sort: dal.SortName},
		{MinPrice: daltest.Float(40), MaxPrice: daltest.Float(70)},
		{CarTypes: []string{"SUV", "Sedan"}, Sort: dal.SortRating},
		{Agencies: []string{"Hertz"}, FreeCancellation: &yes},
	}
	for _, r := range requests {
		for page := 1; page <= 4; page++ {
			p := search.Page{Number: page, Limit: 3}
			a := mustSearch(t, auto, r, p)
			m := mustSearch(t, memory, r, p)
			if a.Mode != search.ModePushdown || m.Mode != search.ModeMemory {
				t.Fatalf("modes: got %s and %s", a.Mode, m.Mode)
			}
			if a.Count != m.Count || a.TotalPages != m.TotalPages {
				t.Errorf("%+v page %d: count %d/%d pages %d/%d", r, page, a.Count, m.Count, a.TotalPages, m.TotalPages)
			}
			var ai, mi []uint
			for _, it := range a.Items {
				ai = append(ai, it.Price.ID)
			}
			for _, it := range m.Items {
				mi = append(mi, it.Price.ID)
			}
			if !reflect.DeepEqual(ai, mi) {
				t.Errorf("%+v page %d: pushdown %v, memory %v", r, page, ai, mi)
			}
		}
	}
}

func TestSearchPagination(t *testing.T) {
	store := daltest.Open(t)
	var data dal.Dataset
	for i := 0; i < 14; i++ {
		data.Results = append(data.Results, daltest.Item(daltest.ItemSpec{
			Car: fmt.Sprintf("Car %02d", i), Sipp: "CCAR", Type: "Sedan", Fuel: "Petrol",
			Agency: "Hertz", AgencyCode: "ZE", Address: vegasAddress,
			Offers: []daltest.Offer{{Provider: "Expedia", Price: float64(10 + i)}},
		}))
	}
	daltest.Seed(t, store, data)
	svc := newService(t, store, search.ModeAuto)

	for _, loc := range []string{"", "vegas"} {
		res := mustSearch(t, svc, search.FilterRequest{PickupLocation: loc}, search.Page{Number: 2, Limit: 12})
		if res.Count != 14 || res.TotalPages != 2 || len(res.Items) != 2 {
			t.Errorf("location %q: count=%d pages=%d items=%d", loc, res.Count, res.TotalPages, len(res.Items))
		}
		if got := prices(res); !reflect.DeepEqual(got, []float64{22, 23}) {
			t.Errorf("location %q: got %v", loc, got)
		}
		beyond := mustSearch(t, svc, search.FilterRequest{PickupLocation: loc}, search.Page{Number: 5, Limit: 12})
		if beyond.Count != 14 || len(beyond.Items) != 0 {
			t.Errorf("location %q beyond last page: count=%d items=%d", loc, beyond.Count, len(beyond.Items))
		}
	}
}

func TestSearchLastRepresentablePage(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())

	p := search.Page{Number: math.MaxInt / 4, Limit: 4}
	for _, force := range []search.Mode{search.ModeAuto, search.ModeMemory} {
		res := mustSearch(t, newService(t, store, force), search.FilterRequest{}, p)
		if res.Count != 3 || res.TotalPages != 1 || len(res.Items) != 0 {
			t.Errorf("%s: count=%d pages=%d items=%v", force, res.Count, res.TotalPages, prices(res))
		}
	}
}

func TestSearchStopWordsOnlyIsUnconstrained(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	svc := newService(t, store, search.ModeAuto, "las", "vegas", "airport")

	with := mustSearch(t, svc, search.FilterRequest{PickupLocation: "Las Vegas Airport"}, firstPage)
	without := mustSearch(t, svc, search.FilterRequest{}, firstPage)
	if with.Mode != search.ModePushdown || !with.Keywords.Empty() {
		t.Errorf("mode %s keywords %q", with.Mode, with.Keywords)
	}
	if !reflect.DeepEqual(prices(with), prices(without)) || with.Count != without.Count {
		t.Errorf("got %v, want %v", prices(with), prices(without))
	}
}

func TestSearchMalformedPickup(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	daltest.SetPickup(t, store, "Kia Rio", `{"address": "1450 W Horizon`)
	svc := newService(t, store, search.ModeAuto)

	for _, force := range []search.Mode{search.ModeAuto, search.ModeMemory} {
		res := mustSearch(t, newService(t, store, force), search.FilterRequest{}, firstPage)
		if res.Count != 3 || res.Malformed != 1 {
			t.Fatalf("%s: count=%d malformed=%d", force, res.Count, res.Malformed)
		}
		kia := res.Items[0]
		if kia.Car.Name != "Kia Rio" {
			t.Fatalf("%s: first item %q", force, kia.Car.Name)
		}
		if kia.Address.Text != "" || kia.Address.Latitude != nil || kia.Address.Longitude != nil || !kia.Address.Malformed {
			t.Errorf("%s: malformed pickup resolved to %+v", force, kia.Address)
		}
	}

	// Only pickups on the returned page are counted.
	for _, force := range []search.Mode{search.ModeAuto, search.ModeMemory} {
		res := mustSearch(t, newService(t, store, force), search.FilterRequest{}, search.Page{Number: 2, Limit: 1})
		if res.Count != 3 || res.Malformed != 0 {
			t.Errorf("%s page 2: count=%d malformed=%d", force, res.Count, res.Malformed)
		}
	}

	res := mustSearch(t, svc, search.FilterRequest{PickupLocation: "Henderson"}, firstPage)
	if res.Count != 0 {
		t.Errorf("malformed pickup matched a location query: %v", prices(res))
	}
}

// Names sort by byte value in both modes, so upper case comes first. On
// PostgreSQL the query uses the "C" collation to get the same order.
func TestSearchNameOrderIsByteOrder(t *testing.T) {
	store := daltest.Open(t)
	var data dal.Dataset
	for i, name := range []string{"audi A4", "BMW X5", "Audi A4", "bmw 3"} {
		data.Results = append(data.Results, daltest.Item(daltest.ItemSpec{
			Car: name, Sipp: "CCAR", Type: "Sedan", Fuel: "Petrol",
			Agency: "Hertz", AgencyCode: "ZE", Address: vegasAddress,
			Offers: []daltest.Offer{{Provider: "Expedia", Price: float64(10 + i)}},
		}))
	}
	daltest.Seed(t, store, data)

	want := []string{"Audi A4", "BMW X5", "audi A4", "bmw 3"}
	for _, force := range []search.Mode{search.ModeAuto, search.ModeMemory} {
		res := mustSearch(t, newService(t, store, force), search.FilterRequest{Sort: dal.SortName}, firstPage)
		var got []string
		for _, it := range res.Items {
			got = append(got, it.Car.Name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", force, got, want)
		}
	}
}

func TestSearchStructuredPickup(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	daltest.SetPickup(t, store, "Kia Rio", `{"address":"1450 W Horizon Ridge Pkwy, Henderson, NV","latitude":36.01,"longitude":-115.06}`)
	svc := newService(t, store, search.ModeAuto)

	res := mustSearch(t, svc, search.FilterRequest{PickupLocation: "henderson"}, firstPage)
	if res.Count != 1 {
		t.Fatalf("count: got %d, want 1", res.Count)
	}
	addr := res.Items[0].Address
	if addr.Text != "1450 W Horizon Ridge Pkwy, Henderson, NV" || addr.Latitude == nil || *addr.Latitude != 36.01 {
		t.Errorf("address: got %+v", addr)
	}
}

func TestSearchRejectsBadPage(t *testing.T) {
	svc := newService(t, failingSessions{}, search.ModeAuto)
	for _, p := range []search.Page{{Number: 0, Limit: 12}, {Number: 1, Limit: 0}, {Number: 1, Limit: 51}, {Number: 1<<62 + 1, Limit: 4}} {
		if _, err := svc.Search(context.Background(), search.FilterRequest{}, p); !errors.Is(err, search.ErrInvalidParameter) {
			t.Errorf("%+v: got %v, want ErrInvalidParameter", p, err)
		}
	}
}

type failingSessions struct{}

func (failingSessions) WithSession(context.Context, func(dal.Repository) error) error {
	return errors.New("connection refused")
}

func TestSearchRepositoryFailure(t *testing.T) {
	svc := newService(t, failingSessions{}, search.ModeAuto)
	if _, err := svc.Search(context.Background(), search.FilterRequest{}, firstPage); !errors.Is(err, search.ErrRepository) {
		t.Errorf("Search: got %v, want ErrRepository", err)
	}
	if _, err := svc.Listing(context.Background(), 1); !errors.Is(err, search.ErrRepository) {
		t.Errorf("Listing: got %v, want ErrRepository", err)
	}
}

func TestListing(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	svc := newService(t, store, search.ModeAuto)

	item, err := svc.Listing(context.Background(), 2)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if item.Car.Name != "Kia Rio" || item.Address.Text != hendersonAddress {
		t.Errorf("got %+v", item)
	}
	if _, err := svc.Listing(context.Background(), 42); !errors.Is(err, search.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSessionsAreReleased(t *testing.T) {
	store := daltest.Open(t)
	daltest.Seed(t, store, fleet())
	svc := newService(t, store, search.ModeAuto)

	for i := 0; i < 5; i++ {
		mustSearch(t, svc, search.FilterRequest{}, firstPage)
		mustSearch(t, svc, search.FilterRequest{PickupLocation: "vegas"}, firstPage)
		_, _ = svc.Listing(context.Background(), 999)
	}
	sqlDB, err := store.DB().DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if inUse := sqlDB.Stats().InUse; inUse != 0 {
		t.Errorf("connections still in use: %d", inUse)
	}
}
