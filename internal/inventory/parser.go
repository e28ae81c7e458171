// Package inventory turns wholesale inventory exports into InventoryItems.
package inventory

import (
	"encoding/csv"
	"strings"

	"github.com/johnrirwin/devicedesk/internal/models"
)

// Parse reads a delimited inventory export. The first line is a header and is skipped.
// Each remaining non-blank line is split on tabs when it contains one, otherwise on commas
// (double-quoted fields may contain commas). Rows with fewer than 21 columns are dropped.
// Output preserves input order.
func Parse(text string) []models.InventoryItem {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) <= 1 {
		return []models.InventoryItem{}
	}

	items := make([]models.InventoryItem, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if item, ok := FromColumns(SplitLine(line)); ok {
			items = append(items, item)
		}
	}
	return items
}

// ParseRecords applies the same rule to pre-split rows such as spreadsheet cells.
// The first record is a header and is skipped.
func ParseRecords(records [][]string) []models.InventoryItem {
	if len(records) <= 1 {
		return []models.InventoryItem{}
	}

	items := make([]models.InventoryItem, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		if item, ok := FromColumns(rec); ok {
			items = append(items, item)
		}
	}
	return items
}

// FromColumns maps one split row onto an item, reporting false for short rows
func FromColumns(cols []string) (models.InventoryItem, bool) {
	return models.InventoryItemFromColumns(cols)
}

// SplitLine splits a single line on its delimiter: tab when present, otherwise comma
func SplitLine(line string) []string {
	if strings.Contains(line, "\t") {
		return strings.Split(line, "\t")
	}

	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rec, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return rec
}

// IsInventoryHeader reports whether a header row matches the 21-column inventory layout
func IsInventoryHeader(header []string) bool {
	if len(header) < models.InventoryColumns {
		return false
	}
	matched := 0
	for i, want := range models.InventoryHeader {
		if headerKey(header[i]) == headerKey(want) {
			matched++
		}
	}
	// Exports from different warehouses rename a few trailing columns
	return matched >= models.InventoryColumns-4
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, " *")
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
