// Package daltest opens throwaway SQLite stores for tests.
package daltest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

var seq int64

// Open returns a migrated in-memory store that is closed with the test.
func Open(t testing.TB) *dal.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	url := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&seq, 1))

	store, err := dal.Open(context.Background(), dal.Options{URL: url})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// Seed loads data into store and fails the test on error.
func Seed(t testing.TB, store *dal.Store, data dal.Dataset) dal.ImportStats {
	t.Helper()
	stats, err := dal.NewImporter(store, nil).Load(context.Background(), data)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return stats
}

// Offer describes one priced result for Item.
type Offer struct {
	Provider         string
	Price            float64
	FreeCancellation bool
	UnlimitedMileage bool
}

// ItemSpec is a compact description of one dataset result.
type ItemSpec struct {
	Car        string
	Sipp       string
	Type       string
	Category   string
	Fuel       string
	Agency     string
	AgencyCode string
	Rating     *float64
	Address    string
	Lat, Lon   *float64
	Offers     []Offer
}

// Item builds a dataset result from spec.
func Item(spec ItemSpec) dal.DatasetItem {
	var raw strings.Builder
	fmt.Fprintf(&raw, `{"agency":{"name":%q,"code":%q`, spec.Agency, spec.AgencyCode)
	if spec.Rating != nil {
		fmt.Fprintf(&raw, `,"rating":%v`, *spec.Rating)
	}
	fmt.Fprintf(&raw, `},"car":{"name":%q,"sipp":%q,"type":%q,"category":%q,"fuel":%q,"transmission":"Automatic","passengers":5,"bags":2},`,
		spec.Car, spec.Sipp, spec.Type, spec.Category, spec.Fuel)
	fmt.Fprintf(&raw, `"pickup":{"address":%q`, spec.Address)
	if spec.Lat != nil && spec.Lon != nil {
		fmt.Fprintf(&raw, `,"latitude":%v,"longitude":%v`, *spec.Lat, *spec.Lon)
	}
	raw.WriteString(`},"providers":[`)
	for i, o := range spec.Offers {
		if i > 0 {
			raw.WriteString(",")
		}
		fmt.Fprintf(&raw, `{"name":%q,"price":%v,"free_cancellation":%t,"unlimited_mileage":%t}`,
			o.Provider, o.Price, o.FreeCancellation, o.UnlimitedMileage)
	}
	raw.WriteString("]}")

	item, err := dal.DecodeItem([]byte(raw.String()))
	if err != nil {
		panic(fmt.Sprintf("daltest: bad item %s: %v", raw.String(), err))
	}
	return item
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// SetPickup overwrites the stored pickup of every price row for the car named
// carName. It simulates rows written by older exports.
func SetPickup(t testing.TB, store *dal.Store, carName, pickup string) {
	t.Helper()
	err := store.DB().Exec(
		"UPDATE car_prices SET pickup_location = ?, latitude = NULL, longitude = NULL WHERE car_id IN (SELECT id FROM cars WHERE name = ?)",
		pickup, carName).Error
	if err != nil {
		t.Fatalf("set pickup: %v", err)
	}
}
