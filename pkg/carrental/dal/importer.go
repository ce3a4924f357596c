package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/logger"
)

// Dataset is the search-results export consumed by Import.
type Dataset struct {
	Results []DatasetItem `json:"results"`
}

type DatasetItem struct {
	Agency    datasetAgency     `json:"agency"`
	Car       datasetCar        `json:"car"`
	Providers []datasetProvider `json:"providers"`
	Pickup    *datasetPickup    `json:"pickup"`
}

type datasetAgency struct {
	Name   string   `json:"name"`
	Code   string   `json:"code"`
	Logo   string   `json:"logo"`
	Rating *float64 `json:"rating"`
}

type datasetCar struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	Fuel         string `json:"fuel"`
	Transmission string `json:"transmission"`
	Passengers   int    `json:"passengers"`
	Bags         int    `json:"bags"`
	Sipp         string `json:"sipp"`
	Image        string `json:"image"`
}

type datasetProvider struct {
	Name             string   `json:"name"`
	Logo             string   `json:"logo"`
	Price            *float64 `json:"price"`
	FreeCancellation bool     `json:"free_cancellation"`
	UnlimitedMileage bool     `json:"unlimited_mileage"`
	FuelPolicy       *string  `json:"fuel_policy"`
}

// datasetPickup accepts every pickup shape seen in exports.
type datasetPickup struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// canonical returns the flat address and coordinates stored for a pickup.
func (p *datasetPickup) canonical() (string, *float64, *float64) {
	if p == nil {
		return "", nil, nil
	}
	address := firstNonBlank(p.Address, p.Name, p.Location)
	lat := p.Latitude
	if lat == nil {
		lat = p.Lat
	}
	lon := p.Longitude
	if lon == nil {
		lon = p.Lon
	}
	return address, lat, lon
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ImportStats summarises one import run.
type ImportStats struct {
	Items         int
	SkippedItems  int
	SkippedPrices int
	Agencies      int
	Cars          int
	Providers     int
	Prices        int
}

// Importer bulk-loads a Dataset. Runs are idempotent: agencies, cars,
// providers and prices are upserted by their natural keys.
type Importer struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewImporter returns an Importer writing through s.
func NewImporter(s *Store, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{db: s.db, log: log.With("component", "import")}
}

// Import decodes r and loads it in a single transaction; on any database
// error nothing is committed.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var data Dataset
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return ImportStats{}, fmt.Errorf("import: decode dataset: %w", err)
	}
	return im.Load(ctx, data)
}

// Load writes an already decoded Dataset.
func (im *Importer) Load(ctx context.Context, data Dataset) (ImportStats, error) {
	stats := ImportStats{Items: len(data.Results)}
	im.log.Info("found %d results in dataset", len(data.Results))

	agencies := map[string]uint{}
	cars := map[string]uint{}
	providers := map[string]uint{}

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, item := range data.Results {
			code := strings.TrimSpace(item.Agency.Code)
			carName := strings.TrimSpace(item.Car.Name)
			if code == "" || carName == "" {
				im.log.Warn("skipping result %d: missing agency code or car name", idx)
				stats.SkippedItems++
				continue
			}

			agencyID, ok := agencies[code]
			if !ok {
				a := Agency{
					Name:   item.Agency.Name,
					Code:   code,
					Logo:   item.Agency.Logo,
					Rating: item.Agency.Rating,
				}
				if err := upsert(tx, &a, map[string]interface{}{"code": code},
					map[string]interface{}{"name": a.Name, "logo": a.Logo, "rating": a.Rating}); err != nil {
					return fmt.Errorf("agency %q: %w", code, err)
				}
				agencyID = a.ID
				agencies[code] = agencyID
				stats.Agencies++
			}

			carKey := carName + "\x00" + item.Car.Sipp
			carID, ok := cars[carKey]
			if !ok {
				c := Car{
					Name:         carName,
					Category:     item.Car.Category,
					Type:         item.Car.Type,
					Fuel:         item.Car.Fuel,
					Transmission: item.Car.Transmission,
					Passengers:   item.Car.Passengers,
					Bags:         item.Car.Bags,
					Sipp:         item.Car.Sipp,
					Image:        item.Car.Image,
				}
				if err := upsert(tx, &c, map[string]interface{}{"name": c.Name, "sipp": c.Sipp},
					map[string]interface{}{
						"category": c.Category, "type": c.Type, "fuel": c.Fuel,
						"transmission": c.Transmission, "passengers": c.Passengers,
						"bags": c.Bags, "image": c.Image,
					}); err != nil {
					return fmt.Errorf("car %q: %w", carName, err)
				}
				carID = c.ID
				cars[carKey] = carID
				stats.Cars++
			}

			address, lat, lon := item.Pickup.canonical()

			for _, pr := range item.Providers {
				name := strings.TrimSpace(pr.Name)
				price := 0.0
				if pr.Price != nil {
					price = *pr.Price
				}
				if name == "" || price < 0 {
					stats.SkippedPrices++
					continue
				}

				providerID, ok := providers[name]
				if !ok {
					p := Provider{Name: name, Logo: pr.Logo}
					if err := upsert(tx, &p, map[string]interface{}{"name": name},
						map[string]interface{}{"logo": p.Logo}); err != nil {
						return fmt.Errorf("provider %q: %w", name, err)
					}
					providerID = p.ID
					providers[name] = providerID
					stats.Providers++
				}

				pickup := address
				cp := CarPrice{
					CarID:            carID,
					AgencyID:         agencyID,
					ProviderID:       providerID,
					Price:            price,
					FreeCancellation: pr.FreeCancellation,
					UnlimitedMileage: pr.UnlimitedMileage,
					FuelPolicy:       pr.FuelPolicy,
					PickupLocation:   &pickup,
					Latitude:         lat,
					Longitude:        lon,
				}
				if err := upsert(tx, &cp,
					map[string]interface{}{
						"car_id": carID, "agency_id": agencyID,
						"provider_id": providerID, "pickup_location": pickup,
					},
					map[string]interface{}{
						"price": cp.Price, "free_cancellation": cp.FreeCancellation,
						"unlimited_mileage": cp.UnlimitedMileage, "fuel_policy": cp.FuelPolicy,
						"latitude": cp.Latitude, "longitude": cp.Longitude,
					}); err != nil {
					return fmt.Errorf("price for car %q via %q: %w", carName, name, err)
				}
				stats.Prices++
			}

			if (idx+1)%50 == 0 {
				im.log.Debug("processed %d results", idx+1)
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("import: %w", err)
	}

	im.log.Info("import committed: agencies=%d cars=%d providers=%d prices=%d skipped_items=%d skipped_prices=%d",
		stats.Agencies, stats.Cars, stats.Providers, stats.Prices, stats.SkippedItems, stats.SkippedPrices)
	return stats, nil
}

// upsert loads the row matching key into dst, updating attrs when it exists
// and inserting dst otherwise.
func upsert(tx *gorm.DB, dst interface{}, key, attrs map[string]interface{}) error {
	return tx.Omit(clause.Associations).
		Where(key).
		Assign(attrs).
		FirstOrCreate(dst).Error
}

// DecodeItem parses a single dataset result.
func DecodeItem(raw []byte) (DatasetItem, error) {
	var item DatasetItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return DatasetItem{}, err
	}
	return item, nil
}
