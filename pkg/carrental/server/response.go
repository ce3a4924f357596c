package server

import (
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

// Version is reported by GET /.
var Version = "1.0.0"

type carResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	Fuel         string `json:"fuel"`
	Transmission string `json:"transmission"`
	Image        string `json:"image"`
	Passengers   int    `json:"passengers"`
	Bags         int    `json:"bags"`
	Sipp         string `json:"sipp"`
}

type agencyResponse struct {
	Name   string  `json:"name"`
	Code   string  `json:"code"`
	Logo   string  `json:"logo"`
	Rating float64 `json:"rating"`
}

type providerResponse struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type listingResponse struct {
	Car              carResponse      `json:"car"`
	Agency           agencyResponse   `json:"agency"`
	Provider         providerResponse `json:"provider"`
	Price            float64          `json:"price"`
	PickupLocation   string           `json:"pickup_location"`
	Latitude         *float64         `json:"latitude"`
	Longitude        *float64         `json:"longitude"`
	FuelPolicy       *string          `json:"fuel_policy"`
	FreeCancellation bool             `json:"free_cancellation"`
	UnlimitedMileage bool             `json:"unlimited_mileage"`
}

type carsResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Count      int               `json:"count"`
	TotalPages int               `json:"total_pages"`
	Results    []listingResponse `json:"results"`
}

func newListingResponse(it search.Item) listingResponse {
	return listingResponse{
		Car: carResponse{
			ID:           it.Car.ID,
			Name:         it.Car.Name,
			Type:         it.Car.Type,
			Category:     it.Car.Category,
			Fuel:         it.Car.Fuel,
			Transmission: it.Car.Transmission,
			Image:        it.Car.Image,
			Passengers:   it.Car.Passengers,
			Bags:         it.Car.Bags,
			Sipp:         it.Car.Sipp,
		},
		Agency: agencyResponse{
			Name:   it.Agency.Name,
			Code:   it.Agency.Code,
			Logo:   it.Agency.Logo,
			Rating: it.Agency.RatingOrZero(),
		},
		Provider: providerResponse{
			Name: it.Provider.Name,
			Logo: it.Provider.Logo,
		},
		Price:            it.Price.Price,
		PickupLocation:   it.Address.Text,
		Latitude:         coordinate(it.Address.Latitude),
		Longitude:        coordinate(it.Address.Longitude),
		FuelPolicy:       it.Price.FuelPolicy,
		FreeCancellation: it.Price.FreeCancellation,
		UnlimitedMileage: it.Price.UnlimitedMileage,
	}
}

// coordinate reports zero as unknown; exports use 0 for missing positions.
func coordinate(c *float64) *float64 {
	if c == nil || *c == 0 {
		return nil
	}
	return c
}

func newCarsResponse(res *search.Result) carsResponse {
	out := carsResponse{
		Page:       res.Page,
		Limit:      res.Limit,
		Count:      res.Count,
		TotalPages: res.TotalPages,
		Results:    make([]listingResponse, 0, len(res.Items)),
	}
	for _, it := range res.Items {
		out.Results = append(out.Results, newListingResponse(it))
	}
	return out
}
