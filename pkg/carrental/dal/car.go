package dal

// Car is immutable reference data keyed by (name, sipp).
type Car struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null;default:'';uniqueIndex:idx_cars_natural" json:"name"`
	Category     string `gorm:"not null;default:''" json:"category"`
	Type         string `gorm:"not null;default:''" json:"type"`
	Fuel         string `gorm:"not null;default:''" json:"fuel"`
	Transmission string `gorm:"not null;default:''" json:"transmission"`
	Passengers   int    `gorm:"not null;default:0" json:"passengers"`
	Bags         int    `gorm:"not null;default:0" json:"bags"`
	Sipp         string `gorm:"not null;default:'';uniqueIndex:idx_cars_natural" json:"sipp"`
	Image        string `gorm:"not null;default:''" json:"image"`
}

// Agency is a rental agency keyed by Code.
type Agency struct {
	ID     uint     `gorm:"primaryKey" json:"-"`
	Name   string   `gorm:"not null;default:''" json:"name"`
	Code   string   `gorm:"not null;uniqueIndex" json:"code"`
	Logo   string   `gorm:"not null;default:''" json:"logo"`
	Rating *float64 `json:"rating"`
}

// RatingOrZero treats a missing rating as zero.
func (a Agency) RatingOrZero() float64 {
	if a.Rating == nil {
		return 0
	}
	return *a.Rating
}

// Provider is a booking provider keyed by Name.
type Provider struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
	Logo string `gorm:"not null;default:''" json:"logo"`
}

// CarPrice is one priced offer for a car. PickupLocation holds either a flat
// address or a serialized {"address","latitude","longitude"} object.
type CarPrice struct {
	ID               uint    `gorm:"primaryKey"`
	CarID            uint    `gorm:"not null;index;uniqueIndex:idx_car_prices_natural"`
	AgencyID         uint    `gorm:"not null;index;uniqueIndex:idx_car_prices_natural"`
	ProviderID       uint    `gorm:"not null;index;uniqueIndex:idx_car_prices_natural"`
	Price            float64 `gorm:"not null;default:0;index"`
	FreeCancellation bool    `gorm:"not null;default:false"`
	UnlimitedMileage bool    `gorm:"not null;default:false"`
	FuelPolicy       *string
	PickupLocation   *string `gorm:"uniqueIndex:idx_car_prices_natural"`
	Latitude         *float64
	Longitude        *float64

	Car      Car      `gorm:"constraint:OnDelete:CASCADE"`
	Agency   Agency   `gorm:"constraint:OnDelete:CASCADE"`
	Provider Provider `gorm:"constraint:OnDelete:CASCADE"`
}

// Listing is one row of the Car x CarPrice x Agency x Provider join.
type Listing struct {
	Car      Car
	Price    CarPrice
	Agency   Agency
	Provider Provider
}

// Models lists every table for migrations, parents first.
func Models() []interface{} {
	return []interface{}{&Car{}, &Agency{}, &Provider{}, &CarPrice{}}
}
