package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/catalog"
	"github.com/johnrirwin/devicedesk/internal/inventory"
	"github.com/johnrirwin/devicedesk/internal/models"
)

var (
	// ErrEmptyFile is returned when the upload has no rows at all
	ErrEmptyFile = errors.New("import file is empty")
	// ErrNoHeader is returned when the first row matches neither supported layout
	ErrNoHeader = errors.New("import file has no recognisable header row")
)

// record is one source row with its 1-based position in the file
type record struct {
	num  int
	cols []string
}

// readRecords splits an upload into rows, reading workbooks with excelize and
// everything else as delimited text. Blank rows are dropped but keep their numbering.
func readRecords(filename string, data []byte) ([]record, error) {
	if inventory.IsSpreadsheet(filename, data) {
		rows, err := inventory.ReadSpreadsheet(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read workbook: %w", err)
		}
		out := make([]record, 0, len(rows))
		for i, cols := range rows {
			if blankRow(cols) {
				continue
			}
			out = append(out, record{num: i + 1, cols: cols})
		}
		return out, nil
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]record, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, record{num: i + 1, cols: inventory.SplitLine(line)})
	}
	return out, nil
}

func blankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sheetLayout maps the header of a product sheet to column positions
type sheetLayout struct {
	index map[string]int
}

var sheetAliases = map[string]string{
	"name":         "name",
	"productname":  "name",
	"title":        "name",
	"brand":        "brand",
	"manufacturer": "brand",
	"make":         "brand",
	"model":        "model",
	"price":        "price",
	"listprice":    "price",
	"description":  "description",
	"category":     "category",
	"stock":        "stock",
	"stockcount":   "stock",
	"quantity":     "stock",
	"qty":          "stock",
	"imageurl":     "imageUrl",
	"image":        "imageUrl",
	"tags":         "tags",
}

func init() {
	for _, key := range models.SpecKeys() {
		sheetAliases[strings.ToLower(key)] = key
	}
	sheetAliases["capacity"] = models.SpecStorage
}

// newSheetLayout reports false unless the header names brand, model and price
func newSheetLayout(header []string) (sheetLayout, bool) {
	l := sheetLayout{index: make(map[string]int)}
	for i, h := range header {
		field, ok := sheetAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := l.index[field]; !dup {
			l.index[field] = i
		}
	}
	for _, required := range []string{"brand", "model", "price"} {
		if _, ok := l.index[required]; !ok {
			return l, false
		}
	}
	return l, true
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "*")
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func (l sheetLayout) get(cols []string, field string) string {
	i, ok := l.index[field]
	if !ok || i >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[i])
}

// product builds a product from one sheet row. Brand, model and a parseable
// non-negative price are required; every other column is optional.
func (l sheetLayout) product(cols []string) (models.Product, error) {
	p := models.Product{
		Name:        l.get(cols, "name"),
		Brand:       l.get(cols, "brand"),
		Model:       l.get(cols, "model"),
		Description: l.get(cols, "description"),
		Category:    strings.ToLower(l.get(cols, "category")),
		ImageURL:    l.get(cols, "imageUrl"),
		Tags:        splitTags(l.get(cols, "tags")),
	}
	if p.Brand == "" {
		return p, errors.New("brand is required")
	}
	if p.Model == "" {
		return p, errors.New("model is required")
	}

	price, err := parsePrice(l.get(cols, "price"))
	if err != nil {
		return p, err
	}
	p.Price = price

	for _, key := range models.SpecKeys() {
		if v := l.get(cols, key); models.Present(v) {
			p.Specs.Set(key, v)
		}
	}
	p.SetStock(catalog.ParseStock(l.get(cols, "stock")))
	return p, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return decimal.Zero, errors.New("price is required")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("price must not be negative: %s", raw)
	}
	return d, nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
