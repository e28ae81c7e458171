// Package catalog derives storefront products from wholesale inventory rows.
package catalog

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

const colorMixed = "Mixed"

// Deriver turns InventoryItems into Products. IDs it hands out are unique for the
// lifetime of the Deriver, so one Deriver per import batch gives batch-unique IDs.
// A Deriver is safe for concurrent use.
type Deriver struct {
	mu     sync.Mutex
	issued map[string]struct{}
	newID  func() string
	now    func() time.Time
}

// NewDeriver creates a Deriver using random UUIDs
func NewDeriver() *Deriver {
	return &Deriver{
		issued: make(map[string]struct{}),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Derive builds a product from one inventory row. Every field except ID and the
// timestamps is a pure function of the row.
func (d *Deriver) Derive(item models.InventoryItem) models.Product {
	now := d.now()
	p := models.Product{
		ID:          d.nextID(),
		Name:        Name(item),
		Brand:       item.Manufacturer,
		Model:       item.Model,
		Price:       ParsePrice(item.ListPrice),
		Description: Description(item),
		Tags:        Tags(item),
		Specs:       Specs(item),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if models.Present(item.Category) {
		p.Category = strings.ToLower(item.Category)
	}
	p.SetStock(ParseStock(item.QuantityAvailable))
	return p
}

// DeriveAll derives every item, preserving order
func (d *Deriver) DeriveAll(items []models.InventoryItem) []models.Product {
	out := make([]models.Product, 0, len(items))
	for _, item := range items {
		out = append(out, d.Derive(item))
	}
	return out
}

func (d *Deriver) nextID() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		id := d.newID()
		if _, taken := d.issued[id]; taken {
			continue
		}
		d.issued[id] = struct{}{}
		return id
	}
}

// Name renders "{manufacturer} {model}[ {capacity}][ {color}]"
func Name(item models.InventoryItem) string {
	parts := []string{item.Manufacturer, item.Model}
	if models.Present(item.Capacity) {
		parts = append(parts, item.Capacity)
	}
	if models.Present(item.Color) {
		parts = append(parts, item.Color)
	}
	return joinPresent(parts)
}

// Tags lists manufacturer, model, category, capacity, color, carrier, grade and
// lock status in that order, skipping absent values
func Tags(item models.InventoryItem) []string {
	tags := make([]string, 0, 8)
	add := func(v string) {
		if models.Present(v) {
			tags = append(tags, strings.TrimSpace(v))
		}
	}

	add(item.Manufacturer)
	add(item.Model)
	add(strings.ToLower(item.Category))
	add(strings.ToLower(item.Capacity))
	if colorPresent(item.Color) {
		add(item.Color)
	}
	add(item.Carrier)
	add(item.Grade)
	add(item.LockStatus)
	return tags
}

// Description joins the clauses that have a source value, e.g.
// "Apple iPhone 15 128GB storage in Blue (A condition)"
func Description(item models.InventoryItem) string {
	clauses := []string{joinPresent([]string{item.Manufacturer, item.Model})}
	if models.Present(item.Capacity) {
		clauses = append(clauses, item.Capacity+" storage")
	}
	if colorPresent(item.Color) {
		clauses = append(clauses, "in "+item.Color)
	}
	if models.Present(item.Carrier) {
		clauses = append(clauses, "for "+item.Carrier)
	}
	if models.Present(item.Grade) {
		clauses = append(clauses, "("+item.Grade+" condition)")
	}
	return joinPresent(clauses)
}

// Specs maps capacity, color, carrier, lock status and grade onto spec keys
func Specs(item models.InventoryItem) models.ProductSpecs {
	var s models.ProductSpecs
	if models.Present(item.Capacity) {
		s.Storage = item.Capacity
	}
	if colorPresent(item.Color) {
		s.Color = item.Color
	}
	if models.Present(item.Carrier) {
		s.Carrier = item.Carrier
	}
	if models.Present(item.LockStatus) {
		s.LockStatus = item.LockStatus
	}
	if models.Present(item.Grade) {
		s.Grade = item.Grade
	}
	return s
}

// ParsePrice reads a list price such as "$1,099.00". Unparseable or negative input is 0.
func ParsePrice(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseStock reads a quantity. Unparseable or negative input is 0; fractional counts truncate.
func ParseStock(raw string) int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.IsNaN(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func colorPresent(v string) bool {
	return models.Present(v) && !strings.EqualFold(strings.TrimSpace(v), colorMixed)
}

func joinPresent(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
