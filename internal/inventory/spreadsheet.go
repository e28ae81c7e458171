package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without any worksheet
var ErrNoSheets = errors.New("no sheets found in workbook")

var preferredSheets = []string{"Inventory", "Products"}

// ReadSpreadsheet returns the rows of the most relevant sheet of an .xlsx workbook.
// A sheet named "Inventory" or "Products" wins over the first sheet.
func ReadSpreadsheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	sheetName := sheets[0]
pick:
	for _, want := range preferredSheets {
		for _, name := range sheets {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				sheetName = name
				break pick
			}
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

// IsSpreadsheet reports whether a file looks like an .xlsx workbook, by name or zip magic
func IsSpreadsheet(filename string, head []byte) bool {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return true
	}
	return bytes.HasPrefix(head, []byte("PK\x03\x04"))
}
