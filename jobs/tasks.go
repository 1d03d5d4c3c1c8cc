package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert notifies about a product dropping below its minimum.
	TaskLowStockAlert = "inventory:low_stock"
	// TaskAdjustmentPosted fans out downstream work after an adjustment posts.
	TaskAdjustmentPosted = "inventory:adjustment_posted"
)

// LowStockAlertPayload identifies the depleted product/warehouse pair.
type LowStockAlertPayload struct {
	ProductID     string  `json:"product_id"`
	WarehouseID   string  `json:"warehouse_id"`
	Quantity      float64 `json:"quantity"`
	MinStockLevel float64 `json:"min_stock_level"`
}

// NewLowStockAlertTask constructs an Asynq task.
func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data, asynq.Queue(QueueDefault)), nil
}

// HandleLowStockAlertTask processes TaskLowStockAlert tasks.
func HandleLowStockAlertTask(ctx context.Context, t *asynq.Task) error {
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: route to notification channels once they exist.
	slog.Default().Warn("low stock alert",
		slog.String("product_id", payload.ProductID),
		slog.String("warehouse_id", payload.WarehouseID),
		slog.Float64("quantity", payload.Quantity),
		slog.Float64("min_stock_level", payload.MinStockLevel))
	return nil
}

// AdjustmentPostedPayload carries the posted adjustment identity.
type AdjustmentPostedPayload struct {
	AdjustmentID     string    `json:"adjustment_id"`
	AdjustmentNumber string    `json:"adjustment_number"`
	WarehouseID      string    `json:"warehouse_id"`
	ItemCount        int       `json:"item_count"`
	PostedAt         time.Time `json:"posted_at"`
}

// NewAdjustmentPostedTask constructs an Asynq task.
func NewAdjustmentPostedTask(payload AdjustmentPostedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdjustmentPosted, data, asynq.Queue(QueueDefault)), nil
}

// HandleAdjustmentPostedTask processes TaskAdjustmentPosted tasks.
func HandleAdjustmentPostedTask(ctx context.Context, t *asynq.Task) error {
	var payload AdjustmentPostedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("adjustment posted",
		slog.String("adjustment_id", payload.AdjustmentID),
		slog.String("adjustment_number", payload.AdjustmentNumber),
		slog.String("warehouse_id", payload.WarehouseID),
		slog.Int("item_count", payload.ItemCount))
	return nil
}
