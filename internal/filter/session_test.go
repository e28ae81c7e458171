package filter

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

func TestSession_MutationsRefilter(t *testing.T) {
	var notified []Result
	s := NewSession(fixture(), Options{}, func(r Result) { notified = append(notified, r) })

	if s.Result().Total != 5 {
		t.Fatalf("initial Total = %d", s.Result().Total)
	}
	if len(notified) != 0 {
		t.Errorf("constructor should not notify, got %d", len(notified))
	}

	steps := []struct {
		name string
		do   func()
		want []string
	}{
		{"toggle Apple on", func() { s.Toggle(models.FacetBrand, "Apple") }, []string{"1", "3"}},
		{"toggle Google on", func() { s.Toggle(models.FacetBrand, "Google") }, []string{"1", "3", "4"}},
		{"toggle apple off", func() { s.Toggle(models.FacetBrand, "apple") }, []string{"4"}},
		{"select brands", func() { s.Select(models.FacetBrand, "Apple", "Samsung") }, []string{"1", "2", "3"}},
		{"in stock", func() { s.SetStock(models.StockIn) }, []string{"1", "3"}},
		{"price reversed", func() { s.SetPriceRange(decimal.NewFromInt(600), decimal.NewFromInt(100)) }, []string{"3"}},
		{"clear price", func() { s.ClearPriceRange() }, []string{"1", "3"}},
		{"clear brand", func() { s.Clear(models.FacetBrand) }, []string{"1", "3", "4", "5"}},
		{"reset", func() { s.Reset() }, []string{"1", "2", "3", "4", "5"}},
	}

	for i, step := range steps {
		step.do()
		if got := ids(s.Result().Products); !reflect.DeepEqual(got, step.want) {
			t.Errorf("%s: ids = %v, want %v", step.name, got, step.want)
		}
		if len(notified) != i+1 {
			t.Errorf("%s: notifications = %d, want %d", step.name, len(notified), i+1)
		}
	}
}

func TestSession_SetProductsKeepsState(t *testing.T) {
	s := NewSession(fixture(), Options{}, nil)
	s.Select(models.FacetColor, "Black")

	more := append(fixture(), product("6", "Apple", "Apple iPhone 14", "599", 1, models.ProductSpecs{Color: "Black"}))
	s.SetProducts(more)

	if got, want := ids(s.Result().Products), []string{"2", "4", "6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if got := s.State().Selected(models.FacetColor); !reflect.DeepEqual(got, []string{"Black"}) {
		t.Errorf("color selection = %v", got)
	}
}

func TestSession_StateIsACopy(t *testing.T) {
	s := NewSession(fixture(), Options{}, nil)
	s.Select(models.FacetBrand, "Apple")

	st := s.State()
	st.Selections[models.FacetBrand][0] = "Samsung"

	if got := ids(s.Result().Products); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("ids = %v", got)
	}
	if s.State().Selected(models.FacetBrand)[0] != "Apple" {
		t.Error("State() leaked internal selections")
	}
}
