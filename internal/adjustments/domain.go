// Package adjustments implements the manual batch-correction workflow: a
// draft adjustment collects line items, posting applies every item's effect
// to the inventory ledger as one atomic unit, cancellation discards the
// draft with no ledger effect.
package adjustments

import (
	"time"
)

// Status is the lifecycle of an adjustment.
type Status string

const (
	// StatusDraft is the initial, editable state.
	StatusDraft Status = "DRAFT"
	// StatusPosted is terminal; inventory has been affected.
	StatusPosted Status = "POSTED"
	// StatusCancelled is terminal; the draft never touched the ledger.
	StatusCancelled Status = "CANCELLED"
)

// CanEdit reports whether items and header may still change.
func (s Status) CanEdit() bool { return s == StatusDraft }

// CanPost reports whether posting is allowed.
func (s Status) CanPost() bool { return s == StatusDraft }

// CanCancel reports whether cancellation is allowed.
func (s Status) CanCancel() bool { return s == StatusDraft }

// ItemType selects how an item's quantity is interpreted at posting time.
type ItemType string

const (
	// ItemRelative applies the converted quantity as a signed delta.
	ItemRelative ItemType = "RELATIVE"
	// ItemAbsolute sets the on-hand quantity; the delta is computed against
	// a live read at posting time, never the draft snapshot.
	ItemAbsolute ItemType = "ABSOLUTE"
)

// Adjustment is the batch correction header.
type Adjustment struct {
	ID               string     `json:"id"`
	AdjustmentNumber string     `json:"adjustment_number"`
	WarehouseID      string     `json:"warehouse_id"`
	BranchID         string     `json:"branch_id"`
	Reason           string     `json:"reason"`
	ReferenceNumber  string     `json:"reference_number,omitempty"`
	AdjustmentDate   time.Time  `json:"adjustment_date"`
	Status           Status     `json:"status"`
	CreatedBy        string     `json:"created_by"`
	PostedBy         *string    `json:"posted_by,omitempty"`
	PostedAt         *time.Time `json:"posted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Items            []Item     `json:"items,omitempty"`
}

// Item is one line of an adjustment. SystemQuantity and ActualQuantity are
// snapshots in the item's UOM, informational only; posting always re-reads
// live inventory.
type Item struct {
	ID             string   `json:"id"`
	AdjustmentID   string   `json:"adjustment_id"`
	ProductID      string   `json:"product_id"`
	UOM            string   `json:"uom"`
	Quantity       float64  `json:"quantity"`
	Type           ItemType `json:"type"`
	SystemQuantity *float64 `json:"system_quantity,omitempty"`
	ActualQuantity *float64 `json:"actual_quantity,omitempty"`
	LineOrder      int      `json:"line_order"`
}

// Filter narrows adjustment listings.
type Filter struct {
	WarehouseID string
	BranchID    string
	Status      Status
	DateFrom    time.Time
	DateTo      time.Time
	Search      string
	Limit       int
}
