package search

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

func listing(id uint, name string, price float64, rating *float64) dal.Listing {
	return dal.Listing{
		Car:    dal.Car{ID: id, Name: name},
		Price:  dal.CarPrice{ID: id, Price: price},
		Agency: dal.Agency{Rating: rating},
	}
}

func ids(ls []dal.Listing) []uint {
	out := make([]uint, len(ls))
	for i, l := range ls {
		out[i] = l.Price.ID
	}
	return out
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ count, limit, want int }{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{14, 12, 2},
		{100, 1, 100},
		{101, 50, 3},
	}
	for _, tc := range tests {
		if got := TotalPages(tc.count, tc.limit); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d; want %d", tc.count, tc.limit, got, tc.want)
		}
	}
	for count := 1; count <= 120; count++ {
		for limit := 1; limit <= 50; limit++ {
			tp := TotalPages(count, limit)
			if (tp-1)*limit >= count || tp*limit < count {
				t.Fatalf("TotalPages(%d, %d) = %d is not the ceiling", count, limit, tp)
			}
		}
	}
}

func TestSortListings(t *testing.T) {
	base := []dal.Listing{
		listing(1, "Toyota Corolla", 50, f64(4.5)),
		listing(2, "Kia Rio", 20, nil),
		listing(3, "Tesla Model 3", 80, f64(3.0)),
		listing(4, "Audi A4", 50, f64(4.5)),
	}
	tests := []struct {
		key  dal.SortKey
		want []uint
	}{
		{dal.SortPriceAsc, []uint{2, 1, 4, 3}},
		{dal.SortPriceDesc, []uint{3, 1, 4, 2}},
		{dal.SortRating, []uint{1, 4, 3, 2}},
		{dal.SortName, []uint{4, 2, 3, 1}},
		{dal.SortKey("bogus"), []uint{2, 1, 4, 3}},
	}
	for _, tc := range tests {
		ls := append([]dal.Listing(nil), base...)
		SortListings(ls, tc.key)
		if got := ids(ls); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestSortDirectionsReverse(t *testing.T) {
	base := []dal.Listing{
		listing(1, "a", 30, nil),
		listing(2, "b", 10, nil),
		listing(3, "c", 70, nil),
		listing(4, "d", 40, nil),
	}
	asc := append([]dal.Listing(nil), base...)
	desc := append([]dal.Listing(nil), base...)
	SortListings(asc, dal.SortPriceAsc)
	SortListings(desc, dal.SortPriceDesc)
	for i := range asc {
		if asc[i].Price.ID != desc[len(desc)-1-i].Price.ID {
			t.Fatalf("asc %v is not the reverse of desc %v", ids(asc), ids(desc))
		}
	}
}

func TestPaginate(t *testing.T) {
	var ls []dal.Listing
	for i := uint(1); i <= 14; i++ {
		ls = append(ls, listing(i, "car", float64(i), nil))
	}
	if got := Paginate(ls, Page{Number: 1, Limit: 12}); len(got) != 12 {
		t.Errorf("page 1: got %d items", len(got))
	}
	if got := ids(Paginate(ls, Page{Number: 2, Limit: 12})); !reflect.DeepEqual(got, []uint{13, 14}) {
		t.Errorf("page 2: got %v", got)
	}
	if got := Paginate(ls, Page{Number: 3, Limit: 12}); len(got) != 0 {
		t.Errorf("page 3: got %d items", len(got))
	}
}

func TestLimitsCheck(t *testing.T) {
	tests := []struct {
		page Page
		ok   bool
	}{
		{Page{1, 12}, true},
		{Page{1, 1}, true},
		{Page{9, 50}, true},
		{Page{0, 12}, false},
		{Page{1, 0}, false},
		{Page{1, 51}, false},
		{Page{math.MaxInt / 50, 50}, true},
		{Page{math.MaxInt/50 + 1, 50}, false},
		{Page{1<<62 + 1, 4}, false},
	}
	for _, tc := range tests {
		err := DefaultLimits.Check(tc.page)
		if tc.ok && err != nil {
			t.Errorf("%+v: unexpected error %v", tc.page, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%+v: got %v, want ErrInvalidParameter", tc.page, err)
		}
	}
}

func TestSortAndPage(t *testing.T) {
	var ls []dal.Listing
	for i := uint(1); i <= 14; i++ {
		ls = append(ls, listing(i, "car", float64(100-i), nil))
	}
	items, total, pages := SortAndPage(ls, dal.SortPriceAsc, Page{Number: 2, Limit: 12})
	if total != 14 || pages != 2 {
		t.Errorf("total/pages: got %d/%d", total, pages)
	}
	if got := ids(items); !reflect.DeepEqual(got, []uint{2, 1}) {
		t.Errorf("page 2: got %v", got)
	}
}
