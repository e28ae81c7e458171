package models

import "io"

// ImportRequest is one uploaded catalog file
type ImportRequest struct {
	Filename    string
	Body        io.Reader
	FetchImages bool
	FetchSpecs  bool
}

// ImportResult reports a bulk import. Row-level failures are listed in Errors
// while the remaining rows are still imported.
type ImportResult struct {
	Imported int       `json:"imported"`
	Errors   []string  `json:"errors"`
	Products []Product `json:"products"`
}
