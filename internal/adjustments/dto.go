package adjustments

import "time"

// ItemInput is one requested adjustment line.
type ItemInput struct {
	ProductID string   `json:"product_id" validate:"required"`
	Quantity  float64  `json:"quantity"`
	UOM       string   `json:"uom" validate:"required"`
	Type      ItemType `json:"type" validate:"omitempty,oneof=RELATIVE ABSOLUTE"`
}

// CreateDraftInput creates a new DRAFT adjustment with its items in one
// atomic insert.
type CreateDraftInput struct {
	WarehouseID     string      `json:"warehouse_id" validate:"required"`
	BranchID        string      `json:"branch_id" validate:"required"`
	Reason          string      `json:"reason" validate:"required"`
	ReferenceNumber string      `json:"reference_number"`
	AdjustmentDate  time.Time   `json:"adjustment_date"`
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateDraftInput edits a DRAFT. A non-nil Items slice replaces the item
// list wholesale; items are never patched incrementally.
type UpdateDraftInput struct {
	Reason          *string     `json:"reason,omitempty"`
	ReferenceNumber *string     `json:"reference_number,omitempty"`
	AdjustmentDate  *time.Time  `json:"adjustment_date,omitempty"`
	Items           []ItemInput `json:"items,omitempty"`
}
