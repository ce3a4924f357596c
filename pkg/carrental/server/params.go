package server

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

var validate = validator.New()

// CarsQuery is the parsed query string of GET /cars.
type CarsQuery struct {
	Page             int      `validate:"min=1"`
	Limit            int      `validate:"min=1"`
	MinPrice         *float64 `validate:"omitempty,min=0"`
	MaxPrice         *float64 `validate:"omitempty,min=0"`
	CarTypes         []string `validate:"dive,max=100"`
	Categories       []string `validate:"dive,max=100"`
	Fuels            []string `validate:"dive,max=100"`
	Agencies         []string `validate:"dive,max=100"`
	PickupLocation   string   `validate:"max=200"`
	DropoffLocation  string   `validate:"max=200"`
	FreeCancellation *bool
	UnlimitedMileage *bool
	SortBy           string
}

// Request converts q for the search service.
func (q CarsQuery) Request() (search.FilterRequest, search.Page) {
	return search.FilterRequest{
		MinPrice:         q.MinPrice,
		MaxPrice:         q.MaxPrice,
		CarTypes:         q.CarTypes,
		Categories:       q.Categories,
		Fuels:            q.Fuels,
		Agencies:         q.Agencies,
		FreeCancellation: q.FreeCancellation,
		UnlimitedMileage: q.UnlimitedMileage,
		PickupLocation:   q.PickupLocation,
		DropoffLocation:  q.DropoffLocation,
		Sort:             dal.ParseSortKey(q.SortBy),
	}, search.Page{Number: q.Page, Limit: q.Limit}
}

// parseCarsQuery reads vars, applying limits for the page size. Errors wrap
// search.ErrInvalidParameter.
func parseCarsQuery(vars url.Values, limits search.Limits) (CarsQuery, error) {
	q := CarsQuery{
		CarTypes:        validateList(vars, "car_type"),
		Categories:      validateList(vars, "category"),
		Fuels:           validateList(vars, "fuel"),
		Agencies:        validateList(vars, "agency"),
		PickupLocation:  vars.Get("pickup_location"),
		DropoffLocation: vars.Get("dropoff_location"),
		SortBy:          vars.Get("sort_by"),
	}
	var err error
	if q.Page, err = validateInt(vars, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = validateInt(vars, "limit", limits.Default); err != nil {
		return q, err
	}
	if q.MinPrice, err = validateFloat(vars, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = validateFloat(vars, "max_price"); err != nil {
		return q, err
	}
	if q.FreeCancellation, err = validateBool(vars, "free_cancellation"); err != nil {
		return q, err
	}
	if q.UnlimitedMileage, err = validateBool(vars, "unlimited_mileage"); err != nil {
		return q, err
	}

	if err := validate.Struct(q); err != nil {
		return q, invalid("%s", describe(err))
	}
	if err := limits.Check(search.Page{Number: q.Page, Limit: q.Limit}); err != nil {
		return q, err
	}
	return q, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", search.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// describe turns validator errors into "param failed rule" text.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %s", paramName(fe.Field()), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

var paramNames = map[string]string{
	"Page":            "page",
	"Limit":           "limit",
	"MinPrice":        "min_price",
	"MaxPrice":        "max_price",
	"CarTypes":        "car_type",
	"Categories":      "category",
	"Fuels":           "fuel",
	"Agencies":        "agency",
	"PickupLocation":  "pickup_location",
	"DropoffLocation": "dropoff_location",
}

func paramName(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if name, ok := paramNames[field]; ok {
		return name
	}
	return field
}

func validateInt(vars url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(vars.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer: %q", name, raw)
	}
	return n, nil
}

func validateFloat(vars url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(vars.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid("%s must be a number: %q", name, raw)
	}
	return &f, nil
}

func validateBool(vars url.Values, name string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(vars.Get(name)))
	var b bool
	switch raw {
	case "":
		return nil, nil
	case "true", "1", "yes", "on":
		b = true
	case "false", "0", "no", "off":
		b = false
	default:
		return nil, invalid("%s must be a boolean: %q", name, raw)
	}
	return &b, nil
}

// validateList splits comma separated values; repeated parameters are
// merged.
func validateList(vars url.Values, name string) []string {
	var out []string
	for _, v := range vars[name] {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func validateCarID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("car id must be a positive integer: %q", raw)
	}
	return uint(id), nil
}
