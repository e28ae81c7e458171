package filter

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/catalog"
	"github.com/johnrirwin/devicedesk/internal/inventory"
	"github.com/johnrirwin/devicedesk/internal/models"
)

func product(id, brand, name string, price string, stock int, specs models.ProductSpecs, tags ...string) models.Product {
	p := models.Product{
		ID:    id,
		Name:  name,
		Brand: brand,
		Price: decimal.RequireFromString(price),
		Specs: specs,
		Tags:  tags,
	}
	p.SetStock(stock)
	return p
}

func fixture() []models.Product {
	return []models.Product{
		product("1", "Apple", "Apple iPhone 15 128GB Blue", "699", 12, models.ProductSpecs{Color: "Blue", Storage: "128GB", Grade: "A"}),
		product("2", "Samsung", "Samsung Galaxy S23", "549", 0, models.ProductSpecs{Color: "Black", Storage: "256GB", Grade: "B"}, "Phones"),
		product("3", "Apple", "Apple iPad Air", "499", 3, models.ProductSpecs{Storage: "64GB", Grade: "A"}),
		product("4", "Google", "Google Pixel Watch", "199", 5, models.ProductSpecs{Color: "Black"}),
		product("5", "Anker", "Anker USB-C Charger", "25", 40, models.ProductSpecs{}),
	}
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name string
		p    models.Product
		want string
	}{
		{"tag wins", models.Product{Name: "Apple iPhone 15", Tags: []string{"Apple", "TABLETS"}}, "tablets"},
		{"first matching tag", models.Product{Tags: []string{"wearables", "phones"}}, "wearables"},
		{"iPhone in name", models.Product{Name: "Apple iPhone 13"}, "phones"},
		{"iPad in name", models.Product{Name: "Apple iPad Pro"}, "tablets"},
		{"Watch in name", models.Product{Name: "Samsung Galaxy Watch 6"}, "wearables"},
		{"name hints are case-sensitive", models.Product{Name: "iphone case"}, "accessory"},
		{"fallback", models.Product{Name: "USB-C cable"}, "accessory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCategory(tt.p); got != tt.want {
				t.Errorf("DeriveCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveOS(t *testing.T) {
	tests := map[string]string{
		"Apple":    "iOS",
		"samsung":  "Android",
		"Google":   "Android",
		"Motorola": "Other",
		"":         "Other",
	}
	for brand, want := range tests {
		if got := DeriveOS(brand); got != want {
			t.Errorf("DeriveOS(%q) = %q, want %q", brand, got, want)
		}
	}
}

func TestApply_DefaultStateKeepsEverything(t *testing.T) {
	products := fixture()
	res := Apply(products, NewState(), Options{})

	if !reflect.DeepEqual(ids(res.Products), []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("ids = %v", ids(res.Products))
	}
	if res.Total != 5 {
		t.Errorf("Total = %d", res.Total)
	}
}

func TestApply_EmptySelectionIsNoOp(t *testing.T) {
	state := NewState()
	state.Selections[models.FacetColor] = []string{}
	state.Selections[models.FacetBrand] = nil

	res := Apply(fixture(), state, Options{})
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
}

func TestApply_Constraints(t *testing.T) {
	tests := []struct {
		name  string
		state func(models.FilterState) models.FilterState
		want  []string
	}{
		{"brand", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetBrand] = []string{"Apple"}
			return s
		}, []string{"1", "3"}},
		{"OR within a facet", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetColor] = []string{"Blue", "Black"}
			return s
		}, []string{"1", "2", "4"}},
		{"AND across facets", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetColor] = []string{"Black"}
			s.Selections[models.FacetOS] = []string{"Android"}
			s.Selections[models.FacetGrade] = []string{"B"}
			return s
		}, []string{"2"}},
		{"category derived from tag and name", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetCategory] = []string{"phones"}
			return s
		}, []string{"1", "2"}},
		{"absent color excluded", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetColor] = []string{"Blue", "Black", "Silver"}
			return s
		}, []string{"1", "2", "4"}},
		{"stale selection matches nothing", func(s models.FilterState) models.FilterState {
			s.Selections[models.FacetBrand] = []string{"Nokia"}
			return s
		}, []string{}},
		{"price inclusive", func(s models.FilterState) models.FilterState {
			s.Price = &models.PriceRange{Min: decimal.NewFromInt(199), Max: decimal.NewFromInt(549)}
			return s
		}, []string{"2", "3", "4"}},
		{"price zero range", func(s models.FilterState) models.FilterState {
			s.Price = &models.PriceRange{Min: decimal.Zero, Max: decimal.Zero}
			return s
		}, []string{}},
		{"in stock", func(s models.FilterState) models.FilterState {
			s.Stock = models.StockIn
			return s
		}, []string{"1", "3", "4", "5"}},
		{"out of stock", func(s models.FilterState) models.FilterState {
			s.Stock = models.StockOut
			return s
		}, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(fixture(), tt.state(NewState()), Options{})
			if got := ids(res.Products); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	products := fixture()
	before := make([]models.Product, len(products))
	for i, p := range products {
		before[i] = p.Clone()
	}

	state := NewState()
	state.Selections[models.FacetBrand] = []string{"Apple"}
	Apply(products, state, Options{CountMode: CountNarrowed})

	if !reflect.DeepEqual(products, before) {
		t.Error("Apply() modified its input")
	}
}

func facet(res Result, f models.Facet) models.FacetSummary {
	for _, s := range res.Facets {
		if s.Facet == f {
			return s
		}
	}
	return models.FacetSummary{}
}

func labels(s models.FacetSummary) []string {
	out := make([]string, 0, len(s.Options))
	for _, o := range s.Options {
		out = append(out, o.Label())
	}
	return out
}

func TestApply_FacetOptions(t *testing.T) {
	res := Apply(fixture(), NewState(), Options{})

	if got, want := labels(facet(res, models.FacetColor)), []string{"Black (2)", "Blue (1)"}; !reflect.DeepEqual(got, want) {
		t.Errorf("color options = %v, want %v", got, want)
	}
	if got, want := labels(facet(res, models.FacetOS)), []string{"Android (2)", "iOS (2)", "Other (1)"}; !reflect.DeepEqual(got, want) {
		t.Errorf("os options = %v, want %v", got, want)
	}
	if got, want := labels(facet(res, models.FacetCategory)), []string{"accessory (1)", "phones (2)", "tablets (1)", "wearables (1)"}; !reflect.DeepEqual(got, want) {
		t.Errorf("category options = %v, want %v", got, want)
	}
	if len(res.Facets) != len(models.AllFacets()) {
		t.Errorf("len(Facets) = %d", len(res.Facets))
	}
}

func TestApply_CountModes(t *testing.T) {
	state := NewState()
	state.Selections[models.FacetBrand] = []string{"Apple"}
	state.Selections[models.FacetColor] = []string{"Blue"}

	t.Run("collection", func(t *testing.T) {
		res := Apply(fixture(), state, Options{CountMode: CountCollection})
		if got, want := labels(facet(res, models.FacetColor)), []string{"Black (2)", "Blue (1)"}; !reflect.DeepEqual(got, want) {
			t.Errorf("color options = %v, want %v", got, want)
		}
		if got, want := labels(facet(res, models.FacetBrand)), []string{"Anker (1)", "Apple (2)", "Google (1)", "Samsung (1)"}; !reflect.DeepEqual(got, want) {
			t.Errorf("brand options = %v, want %v", got, want)
		}
	})

	t.Run("narrowed", func(t *testing.T) {
		res := Apply(fixture(), state, Options{CountMode: CountNarrowed})
		// color counts ignore the color selection but respect brand=Apple
		if got, want := labels(facet(res, models.FacetColor)), []string{"Black (0)", "Blue (1)"}; !reflect.DeepEqual(got, want) {
			t.Errorf("color options = %v, want %v", got, want)
		}
		// brand counts ignore the brand selection but respect color=Blue
		if got, want := labels(facet(res, models.FacetBrand)), []string{"Anker (0)", "Apple (1)", "Google (0)", "Samsung (0)"}; !reflect.DeepEqual(got, want) {
			t.Errorf("brand options = %v, want %v", got, want)
		}
	})
}

func TestApply_SelectedFlagAndStaleOption(t *testing.T) {
	state := NewState()
	state.Selections[models.FacetColor] = []string{"blue", "Purple"}

	res := Apply(fixture(), state, Options{})
	opts := facet(res, models.FacetColor).Options
	if len(opts) != 3 {
		t.Fatalf("options = %+v", opts)
	}
	for _, o := range opts {
		switch o.Value {
		case "Blue":
			if !o.Selected || o.Count != 1 {
				t.Errorf("Blue = %+v", o)
			}
		case "Purple":
			if !o.Selected || o.Count != 0 {
				t.Errorf("Purple = %+v", o)
			}
		case "Black":
			if o.Selected {
				t.Errorf("Black should not be selected")
			}
		}
	}
}

func TestPriceBounds(t *testing.T) {
	b := PriceBounds(fixture())
	if !b.Min.Equal(decimal.NewFromInt(25)) || !b.Max.Equal(decimal.NewFromInt(699)) {
		t.Errorf("bounds = %s..%s", b.Min, b.Max)
	}
	empty := PriceBounds(nil)
	if !empty.Min.IsZero() || !empty.Max.IsZero() {
		t.Errorf("empty bounds = %s..%s", empty.Min, empty.Max)
	}
}

func TestRoundTrip_ParseDeriveFilter(t *testing.T) {
	header := strings.Repeat("h,", 20) + "h"
	rows := []string{
		"1,NYC,Phones,Apple,iPhone 15,A,128GB,NA,Blue,Unlocked,,,1,12,$699,,,,,,",
		"2,NYC,Tablets,Apple,iPad Air,B,64GB,NA,Mixed,Unlocked,,,1,0,$399,,,,,,",
		"3,LAX,Phones,Samsung,Galaxy S23,A,256GB,Verizon,NA,Locked,,,1,4,not a price,,,,,,",
		"short,row",
	}
	items := inventory.Parse(header + "\n" + strings.Join(rows, "\n"))
	products := catalog.NewDeriver().DeriveAll(items)

	res := Apply(products, NewState(), Options{})
	if len(res.Products) != 3 {
		t.Fatalf("len = %d, want 3", len(res.Products))
	}
	for i, p := range res.Products {
		if !reflect.DeepEqual(p, products[i]) {
			t.Errorf("product %d changed by filtering", i)
		}
	}
	if res.Products[0].Model != "iPhone 15" || res.Products[2].Model != "Galaxy S23" {
		t.Errorf("order not preserved: %v", ids(res.Products))
	}
}
