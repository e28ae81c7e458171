package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/johnrirwin/devicedesk/internal/enrichment"
	"github.com/johnrirwin/devicedesk/internal/models"
	"github.com/johnrirwin/devicedesk/internal/products"
	"github.com/johnrirwin/devicedesk/internal/testutil"
)

var inventoryHeader = strings.Join(models.InventoryHeader, ",")

func inventoryRow(manufacturer, model, price, qty string) string {
	cols := make([]string, models.InventoryColumns)
	cols[2] = "Phones"
	cols[3] = manufacturer
	cols[4] = model
	cols[5] = "A"
	cols[6] = "128GB"
	cols[7] = "NA"
	cols[8] = "Blue"
	cols[9] = "Unlocked"
	cols[13] = qty
	cols[14] = price
	return strings.Join(cols, ",")
}

func newCatalog() (*products.Service, *products.MemoryStore) {
	store := products.NewMemoryStore()
	return products.NewService(store, nil, testutil.NullLogger()), store
}

func newImporter(saver Saver, enricher Enricher, cfg Config) *Service {
	s := NewService(saver, enricher, cfg, testutil.NullLogger())
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return s
}

func TestImport_InventoryLayout(t *testing.T) {
	catalog, store := newCatalog()
	svc := newImporter(catalog, nil, Config{})

	text := inventoryHeader + "\n" +
		inventoryRow("Apple", "iPhone 15", "$699.00", "12") + "\n" +
		inventoryRow("Samsung", "Galaxy S24", "$799.00", "0") + "\n"

	result, err := svc.Import(context.Background(), models.ImportRequest{
		Filename: "stock.csv",
		Body:     strings.NewReader(text),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 2 || len(result.Errors) != 0 {
		t.Fatalf("result = %d imported, errors %v", result.Imported, result.Errors)
	}

	first := result.Products[0]
	if first.Name != "Apple iPhone 15 128GB Blue" {
		t.Errorf("Name = %q", first.Name)
	}
	if !first.InStock || first.StockCount != 12 {
		t.Errorf("stock = %d/%v", first.StockCount, first.InStock)
	}
	if result.Products[1].InStock {
		t.Error("zero quantity row should be out of stock")
	}

	stored, _ := store.List(context.Background())
	if len(stored) != 2 || stored[0].ID != first.ID {
		t.Errorf("stored = %v", stored)
	}
}

func TestImport_RenamedInventoryHeader(t *testing.T) {
	catalog, _ := newCatalog()
	svc := newImporter(catalog, nil, Config{})

	header := make([]string, models.InventoryColumns)
	for i := range header {
		header[i] = "c" + string(rune('a'+i))
	}
	row := strings.ReplaceAll(inventoryRow("Apple", "iPhone 15", "$699.00", "3"), ",", "\t")
	text := strings.Join(header, "\t") + "\n" + row + "\n"

	result, err := svc.Import(context.Background(), models.ImportRequest{
		Filename: "export.tsv",
		Body:     strings.NewReader(text),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 0 {
		t.Fatalf("result = %d imported, errors %v", result.Imported, result.Errors)
	}
	if got := result.Products[0].Name; got != "Apple iPhone 15 128GB Blue" {
		t.Errorf("Name = %q", got)
	}
}

func TestImport_PartialFailure(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     int
		wantErrors []string
	}{
		{
			name: "inventory rows missing manufacturer or model",
			text: inventoryHeader + "\n" +
				inventoryRow("Apple", "iPhone 15", "699", "1") + "\n" +
				inventoryRow("NA", "iPhone 14", "599", "1") + "\n" +
				inventoryRow("Apple", "", "599", "1") + "\n" +
				inventoryRow("Google", "Pixel 8", "499", "3"),
			wantOK:     2,
			wantErrors: []string{"Row 3: manufacturer is required", "Row 4: model is required"},
		},
		{
			name: "product sheet validation",
			text: "Name,Brand,Model,Price,Stock,Color\n" +
				"Pixel 8,Google,Pixel 8,499,3,Obsidian\n" +
				",,Galaxy S24,799,1,\n" +
				",Apple,iPad Air,abc,1,\n" +
				",Apple,iPad Mini,-5,1,\n" +
				",Apple,iPhone 13,,1,\n" +
				",Samsung,Galaxy Tab,\"$1,099.00\",0,",
			wantOK: 2,
			wantErrors: []string{
				"Row 3: brand is required",
				`Row 4: invalid price "abc"`,
				"Row 5: price must not be negative: -5",
				"Row 6: price is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, _ := newCatalog()
			svc := newImporter(catalog, nil, Config{BatchSize: 2})

			result, err := svc.Import(context.Background(), models.ImportRequest{
				Filename: "upload.csv",
				Body:     strings.NewReader(tt.text),
			})
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if result.Imported != tt.wantOK {
				t.Errorf("Imported = %d, want %d", result.Imported, tt.wantOK)
			}
			if len(result.Errors) != len(tt.wantErrors) {
				t.Fatalf("Errors = %v, want %v", result.Errors, tt.wantErrors)
			}
			for i, want := range tt.wantErrors {
				if result.Errors[i] != want {
					t.Errorf("Errors[%d] = %q, want %q", i, result.Errors[i], want)
				}
			}
		})
	}
}

func TestImport_ProductSheetFields(t *testing.T) {
	catalog, _ := newCatalog()
	svc := newImporter(catalog, nil, Config{})

	text := "Brand,Model,Price,Category,Quantity,Tags,Storage,Lock Status\n" +
		"Apple,iPhone 15,\"$1,099.00\",Phones,4,\"apple; flagship\",256GB,Unlocked\n"

	result, err := svc.Import(context.Background(), models.ImportRequest{Body: strings.NewReader(text)})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("Imported = %d, errors %v", result.Imported, result.Errors)
	}
	p := result.Products[0]
	if p.Name != "Apple iPhone 15" {
		t.Errorf("Name = %q, want derived name", p.Name)
	}
	if p.Price.String() != "1099" {
		t.Errorf("Price = %s", p.Price)
	}
	if p.Category != "phones" || p.StockCount != 4 || !p.InStock {
		t.Errorf("product = %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[1] != "flagship" {
		t.Errorf("Tags = %v", p.Tags)
	}
	if p.Specs.Storage != "256GB" || p.Specs.LockStatus != "Unlocked" {
		t.Errorf("Specs = %+v", p.Specs)
	}
}

func TestImport_SystemicFailures(t *testing.T) {
	tests := []struct {
		name    string
		req     models.ImportRequest
		wantErr error
	}{
		{"nil body", models.ImportRequest{}, ErrEmptyFile},
		{"empty file", models.ImportRequest{Body: strings.NewReader("")}, ErrEmptyFile},
		{"blank lines only", models.ImportRequest{Body: strings.NewReader("\n \r\n")}, ErrEmptyFile},
		{"unknown header", models.ImportRequest{Body: strings.NewReader("foo,bar\n1,2")}, ErrNoHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, _ := newCatalog()
			svc := newImporter(catalog, nil, Config{})

			result, err := svc.Import(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Import() error = %v, want %v", err, tt.wantErr)
			}
			if result != nil {
				t.Errorf("result = %+v, want nil", result)
			}
		})
	}
}

func TestImport_UnreadableWorkbook(t *testing.T) {
	catalog, _ := newCatalog()
	svc := newImporter(catalog, nil, Config{})

	_, err := svc.Import(context.Background(), models.ImportRequest{
		Filename: "stock.xlsx",
		Body:     strings.NewReader("not really a workbook"),
	})
	if err == nil || !strings.Contains(err.Error(), "workbook") {
		t.Errorf("Import() error = %v, want workbook error", err)
	}
}

func TestImport_TooLarge(t *testing.T) {
	catalog, _ := newCatalog()
	svc := newImporter(catalog, nil, Config{MaxUploadBytes: 10})

	_, err := svc.Import(context.Background(), models.ImportRequest{
		Body: strings.NewReader("Brand,Model,Price\nApple,iPhone,1\n"),
	})
	if err == nil {
		t.Error("expected size error")
	}
}

func TestImport_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Brand", "Model", "Price", "Stock"},
		{"Apple", "iPhone 15", "699", "2"},
		{"Google", "", "499", "1"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := r
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	f.Close()

	catalog, _ := newCatalog()
	svc := newImporter(catalog, nil, Config{})

	result, err := svc.Import(context.Background(), models.ImportRequest{
		Filename: "catalog.xlsx",
		Body:     bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 1 || result.Errors[0] != "Row 3: model is required" {
		t.Errorf("result = %d imported, errors %v", result.Imported, result.Errors)
	}
}

type failingSaver struct {
	failModel string
	inner     Saver
}

func (f failingSaver) Add(ctx context.Context, p models.Product) (*models.Product, error) {
	if p.Model == f.failModel {
		return nil, errors.New("database unavailable")
	}
	return f.inner.Add(ctx, p)
}

func TestImport_StoreFailureIsRowError(t *testing.T) {
	catalog, _ := newCatalog()
	svc := newImporter(failingSaver{failModel: "Galaxy S24", inner: catalog}, nil, Config{})

	text := "Brand,Model,Price\nApple,iPhone 15,699\nSamsung,Galaxy S24,799\nGoogle,Pixel 8,499\n"
	result, err := svc.Import(context.Background(), models.ImportRequest{Body: strings.NewReader(text)})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Row 3: database unavailable" {
		t.Errorf("Errors = %v", result.Errors)
	}
	if result.Products[0].Model != "iPhone 15" || result.Products[1].Model != "Pixel 8" {
		t.Errorf("products out of order: %v", result.Products)
	}
}

// trackingEnricher records concurrency and sets a marker image
type trackingEnricher struct {
	mu      sync.Mutex
	calls   int
	active  int32
	maxSeen int32
}

func (e *trackingEnricher) Enrich(ctx context.Context, p *models.Product, opts enrichment.Options) enrichment.Report {
	n := atomic.AddInt32(&e.active, 1)
	defer atomic.AddInt32(&e.active, -1)

	e.mu.Lock()
	e.calls++
	if n > e.maxSeen {
		e.maxSeen = n
	}
	e.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	p.ImageURL = "https://img.example.net/" + p.Model + ".jpg"
	return enrichment.Report{Image: &enrichment.ImageResult{URL: p.ImageURL, Strategy: "fake"}}
}

func TestImport_BatchesEnrichment(t *testing.T) {
	catalog, _ := newCatalog()
	enricher := &trackingEnricher{}
	svc := NewService(catalog, enricher, Config{BatchSize: 3, BatchDelay: time.Hour}, testutil.NullLogger())

	var sleeps int
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		if d != time.Hour {
			t.Errorf("sleep(%v), want 1h", d)
		}
		sleeps++
		return nil
	}

	var b strings.Builder
	b.WriteString("Brand,Model,Price\n")
	for i := 0; i < 7; i++ {
		b.WriteString("Apple,Model")
		b.WriteByte(byte('A' + i))
		b.WriteString(",100\n")
	}

	result, err := svc.Import(context.Background(), models.ImportRequest{
		Body:        strings.NewReader(b.String()),
		FetchImages: true,
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 7 {
		t.Fatalf("Imported = %d", result.Imported)
	}
	if enricher.calls != 7 {
		t.Errorf("enrich calls = %d, want 7", enricher.calls)
	}
	if enricher.maxSeen > 3 {
		t.Errorf("max concurrent enrichments = %d, want <= 3", enricher.maxSeen)
	}
	if sleeps != 2 {
		t.Errorf("inter-batch delays = %d, want 2", sleeps)
	}
	if result.Products[0].ImageURL != "https://img.example.net/ModelA.jpg" {
		t.Errorf("ImageURL = %q", result.Products[0].ImageURL)
	}
}

func TestImport_NoEnrichmentWithoutFlags(t *testing.T) {
	catalog, _ := newCatalog()
	enricher := &trackingEnricher{}
	svc := newImporter(catalog, enricher, Config{})

	text := "Brand,Model,Price\nApple,iPhone 15,699\n"
	if _, err := svc.Import(context.Background(), models.ImportRequest{Body: strings.NewReader(text)}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if enricher.calls != 0 {
		t.Errorf("enrich calls = %d, want 0", enricher.calls)
	}
}

func TestImport_CancelledBetweenBatches(t *testing.T) {
	catalog, _ := newCatalog()
	svc := NewService(catalog, &trackingEnricher{}, Config{BatchSize: 1}, testutil.NullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	text := "Brand,Model,Price\nApple,iPhone 15,699\nApple,iPhone 14,599\nApple,iPhone 13,499\n"
	result, err := svc.Import(ctx, models.ImportRequest{Body: strings.NewReader(text), FetchSpecs: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 2 {
		t.Errorf("result = %d imported, errors %v", result.Imported, result.Errors)
	}
	if !strings.HasPrefix(result.Errors[0], "Row 3: import cancelled") {
		t.Errorf("Errors[0] = %q", result.Errors[0])
	}
}
