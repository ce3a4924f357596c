package dal

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no listing.
var ErrNotFound = errors.New("dal: not found")

// SortKey names a supported listing order.
type SortKey string

const (
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortRating    SortKey = "rating"
	SortName      SortKey = "name"
)

// ParseSortKey maps a request value to a SortKey; unknown values sort by
// ascending price.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortPriceAsc, SortPriceDesc, SortRating, SortName:
		return k
	default:
		return SortPriceAsc
	}
}

// Criteria is the declarative filter evaluated by the database. Nil pointers
// and empty slices mean "no constraint".
type Criteria struct {
	MinPrice         *float64
	MaxPrice         *float64
	CarTypes         []string
	Categories       []string
	Fuels            []string
	Agencies         []string
	FreeCancellation *bool
	UnlimitedMileage *bool
}

// CarColumn is a car attribute that can be listed distinctly.
type CarColumn string

const (
	ColumnType     CarColumn = "type"
	ColumnFuel     CarColumn = "fuel"
	ColumnCategory CarColumn = "category"
)

// Repository is the read surface over the listing join. Implementations are
// bound to one session and are not safe for concurrent use.
type Repository interface {
	Count(c Criteria) (int64, error)
	Page(c Criteria, sort SortKey, offset, limit int) ([]Listing, error)
	// All returns the unfiltered join ordered by price id.
	All() ([]Listing, error)
	FirstByCarID(carID uint) (Listing, error)
	Distinct(col CarColumn) ([]string, error)
	Agencies() ([]Agency, error)
	PriceRange() (min, max *float64, err error)
	// Pickups returns one CarPrice per distinct pickup/coordinate triple,
	// ordered by first appearance. Only ID, PickupLocation, Latitude and
	// Longitude are populated.
	Pickups() ([]CarPrice, error)
}

type repository struct {
	db *gorm.DB
}

const listingColumns = `car_prices.id AS price_id, car_prices.car_id, car_prices.agency_id, car_prices.provider_id,
	car_prices.price, car_prices.free_cancellation, car_prices.unlimited_mileage, car_prices.fuel_policy,
	car_prices.pickup_location, car_prices.latitude, car_prices.longitude,
	cars.name AS car_name, cars.category AS car_category, cars.type AS car_type, cars.fuel AS car_fuel,
	cars.transmission AS car_transmission, cars.passengers AS car_passengers, cars.bags AS car_bags,
	cars.sipp AS car_sipp, cars.image AS car_image,
	agencies.name AS agency_name, agencies.code AS agency_code, agencies.logo AS agency_logo,
	agencies.rating AS agency_rating,
	providers.name AS provider_name, providers.logo AS provider_logo`

type listingRow struct {
	PriceID          uint
	CarID            uint
	AgencyID         uint
	ProviderID       uint
	Price            float64
	FreeCancellation bool
	UnlimitedMileage bool
	FuelPolicy       *string
	PickupLocation   *string
	Latitude         *float64
	Longitude        *float64
	CarName          string
	CarCategory      string
	CarType          string
	CarFuel          string
	CarTransmission  string
	CarPassengers    int
	CarBags          int
	CarSipp          string
	CarImage         string
	AgencyName       string
	AgencyCode       string
	AgencyLogo       string
	AgencyRating     *float64
	ProviderName     string
	ProviderLogo     string
}

func (r listingRow) listing() Listing {
	return Listing{
		Car: Car{
			ID:           r.CarID,
			Name:         r.CarName,
			Category:     r.CarCategory,
			Type:         r.CarType,
			Fuel:         r.CarFuel,
			Transmission: r.CarTransmission,
			Passengers:   r.CarPassengers,
			Bags:         r.CarBags,
			Sipp:         r.CarSipp,
			Image:        r.CarImage,
		},
		Price: CarPrice{
			ID:               r.PriceID,
			CarID:            r.CarID,
			AgencyID:         r.AgencyID,
			ProviderID:       r.ProviderID,
			Price:            r.Price,
			FreeCancellation: r.FreeCancellation,
			UnlimitedMileage: r.UnlimitedMileage,
			FuelPolicy:       r.FuelPolicy,
			PickupLocation:   r.PickupLocation,
			Latitude:         r.Latitude,
			Longitude:        r.Longitude,
		},
		Agency: Agency{
			ID:     r.AgencyID,
			Name:   r.AgencyName,
			Code:   r.AgencyCode,
			Logo:   r.AgencyLogo,
			Rating: r.AgencyRating,
		},
		Provider: Provider{
			ID:   r.ProviderID,
			Name: r.ProviderName,
			Logo: r.ProviderLogo,
		},
	}
}

func (r *repository) join() *gorm.DB {
	return r.db.Table("car_prices").
		Joins("JOIN cars ON cars.id = car_prices.car_id").
		Joins("JOIN agencies ON agencies.id = car_prices.agency_id").
		Joins("JOIN providers ON providers.id = car_prices.provider_id")
}

func applyCriteria(q *gorm.DB, c Criteria) *gorm.DB {
	if c.MinPrice != nil {
		q = q.Where("car_prices.price >= ?", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		q = q.Where("car_prices.price <= ?", *c.MaxPrice)
	}
	if len(c.CarTypes) > 0 {
		q = q.Where("cars.type IN ?", c.CarTypes)
	}
	if len(c.Categories) > 0 {
		q = q.Where("cars.category IN ?", c.Categories)
	}
	if len(c.Fuels) > 0 {
		q = q.Where("cars.fuel IN ?", c.Fuels)
	}
	if len(c.Agencies) > 0 {
		q = q.Where("agencies.name IN ?", c.Agencies)
	}
	if c.FreeCancellation != nil {
		q = q.Where("car_prices.free_cancellation = ?", *c.FreeCancellation)
	}
	if c.UnlimitedMileage != nil {
		q = q.Where("car_prices.unlimited_mileage = ?", *c.UnlimitedMileage)
	}
	return q
}

// orderBy appends the price id tie-breaker so equal keys keep the same
// relative order as All.
func orderBy(q *gorm.DB, sort SortKey) *gorm.DB {
	switch sort {
	case SortPriceDesc:
		q = q.Order("car_prices.price DESC")
	case SortRating:
		q = q.Order("COALESCE(agencies.rating, 0) DESC")
	case SortName:
		q = q.Order(nameOrder(q.Dialector.Name()))
	default:
		q = q.Order("car_prices.price ASC")
	}
	return q.Order("car_prices.id ASC")
}

// nameOrder sorts names by byte value, the order Go string comparison uses.
// PostgreSQL needs the "C" collation for that; SQLite's BINARY default
// already is.
func nameOrder(dialect string) string {
	if dialect == "postgres" {
		return `cars.name COLLATE "C" ASC`
	}
	return "cars.name ASC"
}

func (r *repository) scan(q *gorm.DB) ([]Listing, error) {
	var rows []listingRow
	if err := q.Select(listingColumns).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Listing, len(rows))
	for i, row := range rows {
		out[i] = row.listing()
	}
	return out, nil
}

func (r *repository) Count(c Criteria) (int64, error) {
	var n int64
	if err := applyCriteria(r.join(), c).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("dal: count listings: %w", err)
	}
	return n, nil
}

func (r *repository) Page(c Criteria, sort SortKey, offset, limit int) ([]Listing, error) {
	q := orderBy(applyCriteria(r.join(), c), sort).Offset(offset).Limit(limit)
	out, err := r.scan(q)
	if err != nil {
		return nil, fmt.Errorf("dal: page listings: %w", err)
	}
	return out, nil
}

func (r *repository) All() ([]Listing, error) {
	out, err := r.scan(r.join().Order("car_prices.id ASC"))
	if err != nil {
		return nil, fmt.Errorf("dal: fetch listings: %w", err)
	}
	return out, nil
}

func (r *repository) FirstByCarID(carID uint) (Listing, error) {
	out, err := r.scan(r.join().Where("cars.id = ?", carID).Order("car_prices.id ASC").Limit(1))
	if err != nil {
		return Listing{}, fmt.Errorf("dal: listing for car %d: %w", carID, err)
	}
	if len(out) == 0 {
		return Listing{}, fmt.Errorf("car %d: %w", carID, ErrNotFound)
	}
	return out[0], nil
}

func (r *repository) Distinct(col CarColumn) ([]string, error) {
	switch col {
	case ColumnType, ColumnFuel, ColumnCategory:
	default:
		return nil, fmt.Errorf("dal: column %q cannot be listed", col)
	}
	var out []string
	name := string(col)
	err := r.db.Model(&Car{}).
		Where(name+" IS NOT NULL AND "+name+" <> ''").
		Distinct().
		Order(name).
		Pluck(name, &out).Error
	if err != nil {
		return nil, fmt.Errorf("dal: distinct %s: %w", col, err)
	}
	return out, nil
}

func (r *repository) Agencies() ([]Agency, error) {
	var out []Agency
	if err := r.db.Order("name ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("dal: agencies: %w", err)
	}
	return out, nil
}

type priceRangeRow struct {
	MinPrice *float64
	MaxPrice *float64
}

func (r *repository) PriceRange() (*float64, *float64, error) {
	var row priceRangeRow
	err := r.db.Model(&CarPrice{}).
		Select("MIN(price) AS min_price, MAX(price) AS max_price").
		Scan(&row).Error
	if err != nil {
		return nil, nil, fmt.Errorf("dal: price range: %w", err)
	}
	return row.MinPrice, row.MaxPrice, nil
}

func (r *repository) Pickups() ([]CarPrice, error) {
	var out []CarPrice
	err := r.db.Model(&CarPrice{}).
		Select("MIN(id) AS id, pickup_location, latitude, longitude").
		Where("pickup_location IS NOT NULL AND pickup_location <> ''").
		Group("pickup_location, latitude, longitude").
		Order("MIN(id)").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("dal: pickups: %w", err)
	}
	return out, nil
}
