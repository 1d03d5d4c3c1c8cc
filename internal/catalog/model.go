// Package catalog exposes the read-only product/UOM catalog consumed by the
// inventory ledger. Products carry one base unit of measure plus packaging
// level alternate units with fixed conversion factors.
package catalog

import "time"

// AlternateUOM is a named packaging unit with a fixed conversion to the base UOM.
type AlternateUOM struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ConversionFactor float64 `json:"conversion_factor"`
	SellingPrice     float64 `json:"selling_price"`
}

// Product is the catalog view the ledger needs: identity, unit structure,
// costing state and the low-stock threshold.
type Product struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	BaseUOM          string         `json:"base_uom"`
	AlternateUOMs    []AlternateUOM `json:"alternate_uoms"`
	AverageCostPrice float64        `json:"average_cost_price"`
	MinStockLevel    float64        `json:"min_stock_level"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
