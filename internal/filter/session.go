package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

// Session holds a product snapshot and the current filter state. Every mutation
// re-runs Apply synchronously and passes the new result to the change callback.
// A Session is not safe for concurrent use.
type Session struct {
	products []models.Product
	state    models.FilterState
	opts     Options
	result   Result
	onChange func(Result)
}

// NewSession creates a session over products; onChange may be nil
func NewSession(products []models.Product, opts Options, onChange func(Result)) *Session {
	s := &Session{
		products: products,
		state:    NewState(),
		opts:     opts,
		onChange: onChange,
	}
	s.result = Apply(s.products, s.state, s.opts)
	return s
}

// Result returns the latest filter pass
func (s *Session) Result() Result {
	return s.result
}

// State returns a copy of the current filter state
func (s *Session) State() models.FilterState {
	return s.state.Clone()
}

// Toggle adds value to a facet's selection, or removes it when already selected
func (s *Session) Toggle(f models.Facet, value string) {
	current := s.state.Selections[f]
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, v := range current {
		if strings.EqualFold(v, value) {
			removed = true
			continue
		}
		next = append(next, v)
	}
	if !removed {
		next = append(next, value)
	}
	s.setSelection(f, next)
}

// Select replaces a facet's selection
func (s *Session) Select(f models.Facet, values ...string) {
	s.setSelection(f, append([]string(nil), values...))
}

// Clear removes every selection on a facet
func (s *Session) Clear(f models.Facet) {
	s.setSelection(f, nil)
}

// SetPriceRange restricts results to [min, max]; the bounds are swapped when reversed
func (s *Session) SetPriceRange(min, max decimal.Decimal) {
	if min.GreaterThan(max) {
		min, max = max, min
	}
	s.state.Price = &models.PriceRange{Min: min, Max: max}
	s.refresh()
}

// ClearPriceRange goes back to the full observed range
func (s *Session) ClearPriceRange() {
	s.state.Price = nil
	s.refresh()
}

// SetStock sets the availability filter
func (s *Session) SetStock(stock models.StockFilter) {
	s.state.Stock = stock
	s.refresh()
}

// Reset drops every constraint
func (s *Session) Reset() {
	s.state = NewState()
	s.refresh()
}

// SetProducts swaps the snapshot, keeping the current state
func (s *Session) SetProducts(products []models.Product) {
	s.products = products
	s.refresh()
}

func (s *Session) setSelection(f models.Facet, values []string) {
	if s.state.Selections == nil {
		s.state.Selections = make(map[models.Facet][]string)
	}
	if len(values) == 0 {
		delete(s.state.Selections, f)
	} else {
		s.state.Selections[f] = values
	}
	s.refresh()
}

func (s *Session) refresh() {
	s.result = Apply(s.products, s.state, s.opts)
	if s.onChange != nil {
		s.onChange(s.result)
	}
}
