package models

import "strings"

// InventoryColumns is the number of positional columns in a wholesale inventory row
const InventoryColumns = 21

// SentinelNA marks a value that is not applicable in inventory exports
const SentinelNA = "NA"

// InventoryItem is one row of a wholesale inventory export, in column order.
// Values are trimmed; a missing column is "".
type InventoryItem struct {
	ItemNumber          string `json:"itemNumber"`
	Warehouse           string `json:"warehouse"`
	Category            string `json:"category"`
	Manufacturer        string `json:"manufacturer"`
	Model               string `json:"model"`
	Grade               string `json:"grade"`
	Capacity            string `json:"capacity"`
	Carrier             string `json:"carrier"`
	Color               string `json:"color"`
	LockStatus          string `json:"lockStatus"`
	ModelNumber         string `json:"modelNumber"`
	PartsMessage        string `json:"partsMessage"`
	IncrementSize       string `json:"incrementSize"`
	QuantityAvailable   string `json:"quantityAvailable"`
	ListPrice           string `json:"listPrice"`
	TransactionStatus   string `json:"transactionStatus"`
	TransactionQuantity string `json:"transactionQuantity"`
	TransactionPrice    string `json:"transactionPrice"`
	Expiry              string `json:"expiry"`
	NewOfferQuantity    string `json:"newOfferQuantity"`
	NewOfferPrice       string `json:"newOfferPrice"`
}

// InventoryHeader is the canonical header of the 21-column layout
var InventoryHeader = []string{
	"Item Number", "Warehouse", "Category", "Manufacturer", "Model", "Grade", "Capacity",
	"Carrier", "Color", "Lock Status", "Model Number", "Parts Message", "Increment Size",
	"Quantity Available", "List Price", "Transaction Status", "Transaction Quantity",
	"Transaction Price", "Expiry", "New Offer Quantity", "New Offer Price",
}

// InventoryItemFromColumns maps positional columns onto an item.
// Extra columns are ignored; it reports false when fewer than InventoryColumns are given.
func InventoryItemFromColumns(cols []string) (InventoryItem, bool) {
	if len(cols) < InventoryColumns {
		return InventoryItem{}, false
	}
	v := func(i int) string { return strings.TrimSpace(cols[i]) }
	return InventoryItem{
		ItemNumber:          v(0),
		Warehouse:           v(1),
		Category:            v(2),
		Manufacturer:        v(3),
		Model:               v(4),
		Grade:               v(5),
		Capacity:            v(6),
		Carrier:             v(7),
		Color:               v(8),
		LockStatus:          v(9),
		ModelNumber:         v(10),
		PartsMessage:        v(11),
		IncrementSize:       v(12),
		QuantityAvailable:   v(13),
		ListPrice:           v(14),
		TransactionStatus:   v(15),
		TransactionQuantity: v(16),
		TransactionPrice:    v(17),
		Expiry:              v(18),
		NewOfferQuantity:    v(19),
		NewOfferPrice:       v(20),
	}, true
}

// Columns returns the item's values in column order
func (i InventoryItem) Columns() []string {
	return []string{
		i.ItemNumber, i.Warehouse, i.Category, i.Manufacturer, i.Model, i.Grade, i.Capacity,
		i.Carrier, i.Color, i.LockStatus, i.ModelNumber, i.PartsMessage, i.IncrementSize,
		i.QuantityAvailable, i.ListPrice, i.TransactionStatus, i.TransactionQuantity,
		i.TransactionPrice, i.Expiry, i.NewOfferQuantity, i.NewOfferPrice,
	}
}

// Present reports whether an inventory value carries information (non-empty, not NA)
func Present(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, SentinelNA)
}
