package inventory

import (
	"context"
	"time"
)

// StockMovementRecordedEvent is emitted after a movement commits.
type StockMovementRecordedEvent struct {
	MovementID  string
	ProductID   string
	WarehouseID string
	Type        MovementType
	Quantity    float64
	NewQuantity float64
	Reference   Reference
	ActorID     string
	RecordedAt  time.Time
}

// LowStockDetectedEvent is emitted when a committed movement leaves a
// warehouse below the product's minimum stock level.
type LowStockDetectedEvent struct {
	ProductID     string
	ProductName   string
	WarehouseID   string
	Quantity      float64
	MinStockLevel float64
	DetectedAt    time.Time
}

// EventHandler receives ledger domain events strictly after commit. Handler
// failures must never affect the committed operation; the service logs and
// continues.
type EventHandler interface {
	HandleStockMovementRecorded(ctx context.Context, evt StockMovementRecordedEvent) error
	HandleLowStockDetected(ctx context.Context, evt LowStockDetectedEvent) error
}
