package integration

import (
	"context"
	"log/slog"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/adjustments"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/inventory"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/jobs"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Hooks routes domain events into the audit trail and the job queue. Events
// arrive only after the originating transaction commits; a hook failure is the
// caller's to log, never to roll back on.
type Hooks struct {
	audit  AuditRecorder
	queue  *jobs.Client
	logger *slog.Logger
}

// NewHooks constructs integration hooks. audit and queue may each be nil.
func NewHooks(audit AuditRecorder, queue *jobs.Client, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{audit: audit, queue: queue, logger: logger}
}

// HandleStockMovementRecorded records the committed movement in the audit
// trail.
func (h *Hooks) HandleStockMovementRecorded(ctx context.Context, evt inventory.StockMovementRecordedEvent) error {
	if h == nil || h.audit == nil {
		return nil
	}
	return h.audit.Record(ctx, shared.AuditLog{
		ActorID:  evt.ActorID,
		Action:   "stock." + string(evt.Type),
		Entity:   "stock_movement",
		EntityID: evt.MovementID,
		Meta: map[string]any{
			"product_id":     evt.ProductID,
			"warehouse_id":   evt.WarehouseID,
			"quantity":       evt.Quantity,
			"new_quantity":   evt.NewQuantity,
			"reference_type": evt.Reference.Type,
			"reference_id":   evt.Reference.ID,
		},
		At: evt.RecordedAt,
	})
}

// HandleLowStockDetected enqueues a low-stock notification.
func (h *Hooks) HandleLowStockDetected(ctx context.Context, evt inventory.LowStockDetectedEvent) error {
	if h == nil || h.queue == nil {
		return nil
	}
	_, err := h.queue.EnqueueLowStockAlert(ctx, jobs.LowStockAlertPayload{
		ProductID:     evt.ProductID,
		WarehouseID:   evt.WarehouseID,
		Quantity:      evt.Quantity,
		MinStockLevel: evt.MinStockLevel,
	})
	return err
}

// HandleAdjustmentPosted records the posting in the audit trail, enqueues the
// fanout task, and raises low-stock alerts for lines that fell below minimum.
func (h *Hooks) HandleAdjustmentPosted(ctx context.Context, evt adjustments.AdjustmentPostedEvent) error {
	if h == nil {
		return nil
	}
	if h.audit != nil {
		err := h.audit.Record(ctx, shared.AuditLog{
			ActorID:  evt.ActorID,
			Action:   "adjustment.posted",
			Entity:   "inventory_adjustment",
			EntityID: evt.ID,
			Meta: map[string]any{
				"adjustment_number": evt.AdjustmentNumber,
				"warehouse_id":      evt.WarehouseID,
				"branch_id":         evt.BranchID,
				"reason":            evt.Reason,
				"item_count":        len(evt.Items),
			},
			At: evt.PostedAt,
		})
		if err != nil {
			return err
		}
	}
	if h.queue == nil {
		return nil
	}
	_, err := h.queue.EnqueueAdjustmentPosted(ctx, jobs.AdjustmentPostedPayload{
		AdjustmentID:     evt.ID,
		AdjustmentNumber: evt.AdjustmentNumber,
		WarehouseID:      evt.WarehouseID,
		ItemCount:        len(evt.Items),
		PostedAt:         evt.PostedAt,
	})
	if err != nil {
		return err
	}
	for _, item := range evt.Items {
		if item.MinStockLevel <= 0 || item.NewQuantity >= item.MinStockLevel {
			continue
		}
		if _, err := h.queue.EnqueueLowStockAlert(ctx, jobs.LowStockAlertPayload{
			ProductID:     item.ProductID,
			WarehouseID:   item.WarehouseID,
			Quantity:      item.NewQuantity,
			MinStockLevel: item.MinStockLevel,
		}); err != nil {
			h.logger.Warn("enqueue low stock alert",
				slog.String("product_id", item.ProductID), slog.Any("error", err))
		}
	}
	return nil
}

var _ inventory.EventHandler = (*Hooks)(nil)
var _ adjustments.EventHandler = (*Hooks)(nil)
