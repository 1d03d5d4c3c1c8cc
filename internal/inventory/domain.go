// Package inventory maintains authoritative on-hand quantities per
// (product, warehouse) and the append-only stock movement ledger. Every
// quantity change is applied as an atomic (inventory delta, movement) pair,
// so for any pair the current quantity equals the sum of its movement deltas.
package inventory

import (
	"time"
)

// MovementType enumerates supported ledger entry types.
type MovementType string

const (
	// MovementIn represents an inbound movement (receipt, transfer-in).
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement (sale, transfer-out).
	MovementOut MovementType = "OUT"
	// MovementTransfer marks transfer meta records.
	MovementTransfer MovementType = "TRANSFER"
	// MovementAdjustment indicates manual batch corrections.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// ReferenceTransfer is the reference type shared by a transfer's OUT/IN pair.
const ReferenceTransfer = "TRANSFER"

// Reference links a movement to the business transaction that caused it.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Inventory is the authoritative current quantity for one (product, warehouse)
// pair, in the product's base UOM. Rows are created lazily on first delta;
// absence reads as zero.
type Inventory struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Quantity    float64   `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockMovement is one immutable ledger entry. Quantity is the signed delta
// in base units. UnitCost is the per-base-unit cost at movement time: the
// received cost for inbound entries, the product's average cost for outbound
// consumption (feeding downstream COGS).
type StockMovement struct {
	ID          string       `json:"id"`
	ProductID   string       `json:"product_id"`
	WarehouseID string       `json:"warehouse_id"`
	Type        MovementType `json:"type"`
	Quantity    float64      `json:"quantity"`
	UnitCost    float64      `json:"unit_cost"`
	Reference   Reference    `json:"reference"`
	Reason      string       `json:"reason"`
	ActorID     string       `json:"actor_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

// AddStockInput describes an inbound receipt. Quantity and UnitCost are
// expressed in the named UOM; both are normalized to base units before they
// reach the ledger.
type AddStockInput struct {
	ProductID   string
	WarehouseID string
	Quantity    float64
	UOM         string
	UnitCost    float64
	Reason      string
	Reference   Reference
	ActorID     string
}

// DeductStockInput describes an outbound consumption.
type DeductStockInput struct {
	ProductID   string
	WarehouseID string
	Quantity    float64
	UOM         string
	Reason      string
	Reference   Reference
	ActorID     string
	// AllowNegative lets the caller override the negative-stock guard.
	// Ordinary deductions must fail rather than go negative.
	AllowNegative bool
}

// TransferStockInput moves stock between two warehouses as one atomic pair.
type TransferStockInput struct {
	ProductID              string
	SourceWarehouseID      string
	DestinationWarehouseID string
	Quantity               float64
	UOM                    string
	Reason                 string
	ReferenceID            string
	ActorID                string
	AllowNegative          bool
}

// TransferResult reports both sides of a completed transfer.
type TransferResult struct {
	Source      Inventory `json:"source"`
	Destination Inventory `json:"destination"`
	ReferenceID string    `json:"reference_id"`
}

// InventoryFilter narrows inventory projections.
type InventoryFilter struct {
	ProductID   string
	WarehouseID string
}

// MovementFilter narrows ledger projections.
type MovementFilter struct {
	ProductID     string
	WarehouseID   string
	Type          MovementType
	ReferenceID   string
	ReferenceType string
	From          time.Time
	To            time.Time
	Limit         int
}
