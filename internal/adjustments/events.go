package adjustments

import (
	"context"
	"time"
)

// PostedItemEvent describes one applied line for downstream consumers.
type PostedItemEvent struct {
	ProductID     string
	WarehouseID   string
	Delta         float64
	NewQuantity   float64
	MinStockLevel float64
}

// AdjustmentPostedEvent is emitted after a posting transaction commits.
type AdjustmentPostedEvent struct {
	ID               string
	AdjustmentNumber string
	WarehouseID      string
	BranchID         string
	Reason           string
	ActorID          string
	PostedAt         time.Time
	Items            []PostedItemEvent
}

// EventHandler receives workflow events strictly after commit.
type EventHandler interface {
	HandleAdjustmentPosted(ctx context.Context, evt AdjustmentPostedEvent) error
}
