package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/catalog"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, StockTx) error) error
	GetQuantity(ctx context.Context, productID, warehouseID string) (float64, error)
	ListInventory(ctx context.Context, filter InventoryFilter) ([]Inventory, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// CatalogPort is the read-only product/UOM catalog collaborator.
type CatalogPort interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Service coordinates the add/deduct/transfer operations shared by PO
// receiving, POS sales and manual flows.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	idempotency *shared.IdempotencyStore
	events      EventHandler
	logger      *slog.Logger
}

// NewService builds Service. idempotency and events may be nil.
func NewService(repo RepositoryPort, cat CatalogPort, idem *shared.IdempotencyStore, events EventHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: cat, idempotency: idem, events: events, logger: logger}
}

// AddStock records an inbound receipt: converts to base units, applies the
// delta, appends an IN movement and folds the received cost into the
// product's weighted average, all in one transaction.
func (s *Service) AddStock(ctx context.Context, input AddStockInput) (Inventory, error) {
	if input.ProductID == "" || input.WarehouseID == "" {
		return Inventory{}, shared.NewValidation("product and warehouse are required", nil)
	}
	if input.Quantity <= 0 {
		return Inventory{}, shared.NewValidation("quantity must be greater than zero", map[string]string{"quantity": "must be > 0"})
	}
	if input.UnitCost < 0 {
		return Inventory{}, shared.NewValidation("unit cost must be >= 0", map[string]string{"unit_cost": "must be >= 0"})
	}
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return Inventory{}, err
	}
	res, err := catalog.ResolveUOM(product, input.UOM)
	if err != nil {
		return Inventory{}, err
	}
	baseQty := input.Quantity * res.Factor
	// UnitCost arrives per input UOM; the ledger stores cost per base unit.
	baseUnitCost := input.UnitCost / res.Factor

	reason := input.Reason
	if reason == "" {
		reason = "Stock addition"
	}

	key, err := s.claimIdempotency(ctx, MovementIn, input.Reference, input.ProductID, input.WarehouseID)
	if err != nil {
		return Inventory{}, err
	}

	var (
		inv      Inventory
		movement StockMovement
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx StockTx) error {
		current, err := tx.GetQuantityForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		globalQty, err := tx.GlobalQuantity(ctx, input.ProductID)
		if err != nil {
			return err
		}
		oldCost, err := tx.GetProductCostForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		inv, err = tx.UpsertQuantity(ctx, input.ProductID, input.WarehouseID, current+baseQty)
		if err != nil {
			return err
		}
		movement, err = tx.InsertMovement(ctx, StockMovement{
			ID:          uuid.NewString(),
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			Type:        MovementIn,
			Quantity:    baseQty,
			UnitCost:    baseUnitCost,
			Reference:   input.Reference,
			Reason:      reason,
			ActorID:     s.actor(ctx, input.ActorID),
		})
		if err != nil {
			return err
		}
		newCost := catalog.WeightedAverageCost(globalQty, oldCost, baseQty, baseUnitCost)
		return tx.UpdateAverageCost(ctx, input.ProductID, newCost)
	})
	if err != nil {
		s.releaseIdempotency(ctx, key)
		return Inventory{}, err
	}

	s.emitMovement(ctx, movement, inv.Quantity)
	return inv, nil
}

// DeductStock records an outbound consumption at the product's current
// average cost. Without AllowNegative the operation fails rather than drive
// the warehouse negative.
func (s *Service) DeductStock(ctx context.Context, input DeductStockInput) (Inventory, error) {
	if input.ProductID == "" || input.WarehouseID == "" {
		return Inventory{}, shared.NewValidation("product and warehouse are required", nil)
	}
	if input.Quantity <= 0 {
		return Inventory{}, shared.NewValidation("quantity must be greater than zero", map[string]string{"quantity": "must be > 0"})
	}
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return Inventory{}, err
	}
	baseQty, err := catalog.ToBaseQuantity(product, input.Quantity, input.UOM)
	if err != nil {
		return Inventory{}, err
	}

	reason := input.Reason
	if reason == "" {
		reason = "Stock deduction"
	}

	key, err := s.claimIdempotency(ctx, MovementOut, input.Reference, input.ProductID, input.WarehouseID)
	if err != nil {
		return Inventory{}, err
	}

	var (
		inv      Inventory
		movement StockMovement
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx StockTx) error {
		current, err := tx.GetQuantityForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if !input.AllowNegative && current < baseQty {
			return shared.NewInsufficientStock(product.Name, current, baseQty)
		}
		inv, err = tx.UpsertQuantity(ctx, input.ProductID, input.WarehouseID, current-baseQty)
		if err != nil {
			return err
		}
		movement, err = tx.InsertMovement(ctx, StockMovement{
			ID:          uuid.NewString(),
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			Type:        MovementOut,
			Quantity:    -baseQty,
			UnitCost:    product.AverageCostPrice,
			Reference:   input.Reference,
			Reason:      reason,
			ActorID:     s.actor(ctx, input.ActorID),
		})
		return err
	})
	if err != nil {
		s.releaseIdempotency(ctx, key)
		return Inventory{}, err
	}

	s.emitMovement(ctx, movement, inv.Quantity)
	s.emitLowStock(ctx, product, input.WarehouseID, inv.Quantity)
	return inv, nil
}

// TransferStock moves stock between warehouses as an OUT at the source and
// an IN at the destination, identical base quantity, sharing one reference
// id, applied in one transaction.
func (s *Service) TransferStock(ctx context.Context, input TransferStockInput) (TransferResult, error) {
	if input.ProductID == "" || input.SourceWarehouseID == "" || input.DestinationWarehouseID == "" {
		return TransferResult{}, shared.NewValidation("product and both warehouses are required", nil)
	}
	if input.SourceWarehouseID == input.DestinationWarehouseID {
		return TransferResult{}, shared.NewValidation("source and destination warehouses must be different", map[string]string{"warehouse": "cannot transfer to the same warehouse"})
	}
	if input.Quantity <= 0 {
		return TransferResult{}, shared.NewValidation("quantity must be greater than zero", map[string]string{"quantity": "must be > 0"})
	}
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return TransferResult{}, err
	}
	baseQty, err := catalog.ToBaseQuantity(product, input.Quantity, input.UOM)
	if err != nil {
		return TransferResult{}, err
	}

	refID := input.ReferenceID
	if refID == "" {
		refID = uuid.NewString()
	}
	ref := Reference{Type: ReferenceTransfer, ID: refID}
	actorID := s.actor(ctx, input.ActorID)

	outReason := input.Reason
	if outReason == "" {
		outReason = fmt.Sprintf("Transfer to warehouse %s", input.DestinationWarehouseID)
	}
	inReason := input.Reason
	if inReason == "" {
		inReason = fmt.Sprintf("Transfer from warehouse %s", input.SourceWarehouseID)
	}

	var (
		result  TransferResult
		outMove StockMovement
		inMove  StockMovement
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx StockTx) error {
		// Lock both rows in a deterministic order so two opposing
		// transfers cannot deadlock.
		first, second := input.SourceWarehouseID, input.DestinationWarehouseID
		if second < first {
			first, second = second, first
		}
		locked := map[string]float64{}
		for _, warehouseID := range []string{first, second} {
			qty, err := tx.GetQuantityForUpdate(ctx, input.ProductID, warehouseID)
			if err != nil {
				return err
			}
			locked[warehouseID] = qty
		}
		srcQty := locked[input.SourceWarehouseID]
		if !input.AllowNegative && srcQty < baseQty {
			return shared.NewInsufficientStock(product.Name, srcQty, baseQty)
		}

		src, err := tx.UpsertQuantity(ctx, input.ProductID, input.SourceWarehouseID, srcQty-baseQty)
		if err != nil {
			return err
		}
		outMove, err = tx.InsertMovement(ctx, StockMovement{
			ID:          uuid.NewString(),
			ProductID:   input.ProductID,
			WarehouseID: input.SourceWarehouseID,
			Type:        MovementOut,
			Quantity:    -baseQty,
			UnitCost:    product.AverageCostPrice,
			Reference:   ref,
			Reason:      outReason,
			ActorID:     actorID,
		})
		if err != nil {
			return err
		}

		dst, err := tx.UpsertQuantity(ctx, input.ProductID, input.DestinationWarehouseID, locked[input.DestinationWarehouseID]+baseQty)
		if err != nil {
			return err
		}
		inMove, err = tx.InsertMovement(ctx, StockMovement{
			ID:          uuid.NewString(),
			ProductID:   input.ProductID,
			WarehouseID: input.DestinationWarehouseID,
			Type:        MovementIn,
			Quantity:    baseQty,
			UnitCost:    product.AverageCostPrice,
			Reference:   ref,
			Reason:      inReason,
			ActorID:     actorID,
		})
		if err != nil {
			return err
		}
		result = TransferResult{Source: src, Destination: dst, ReferenceID: refID}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.emitMovement(ctx, outMove, result.Source.Quantity)
	s.emitMovement(ctx, inMove, result.Destination.Quantity)
	s.emitLowStock(ctx, product, input.SourceWarehouseID, result.Source.Quantity)
	return result, nil
}

// GetStockLevel returns the current quantity in base units; 0 when the pair
// has never been stocked.
func (s *Service) GetStockLevel(ctx context.Context, productID, warehouseID string) (float64, error) {
	if productID == "" || warehouseID == "" {
		return 0, shared.NewValidation("product and warehouse are required", nil)
	}
	return s.repo.GetQuantity(ctx, productID, warehouseID)
}

// GetStockLevels reads current quantities for several products in one
// warehouse, fanning the reads out concurrently.
func (s *Service) GetStockLevels(ctx context.Context, productIDs []string, warehouseID string) (map[string]float64, error) {
	if warehouseID == "" {
		return nil, shared.NewValidation("warehouse is required", nil)
	}
	var mu sync.Mutex
	out := make(map[string]float64, len(productIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, productID := range productIDs {
		productID := productID
		g.Go(func() error {
			qty, err := s.repo.GetQuantity(ctx, productID, warehouseID)
			if err != nil {
				return err
			}
			mu.Lock()
			out[productID] = qty
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInventory lists current inventory rows.
func (s *Service) GetInventory(ctx context.Context, filter InventoryFilter) ([]Inventory, error) {
	return s.repo.ListInventory(ctx, filter)
}

// GetMovements lists ledger entries.
func (s *Service) GetMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	return s.repo.ListMovements(ctx, filter)
}

func (s *Service) actor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return shared.ActorFromContext(ctx)
}

// claimIdempotency reserves a key for referenced movements so a retried call
// cannot double-apply. Returns "" when no reference or store is configured.
func (s *Service) claimIdempotency(ctx context.Context, t MovementType, ref Reference, productID, warehouseID string) (string, error) {
	if s.idempotency == nil || ref.ID == "" {
		return "", nil
	}
	key := fmt.Sprintf("%s:%s:%s:%s:%s", t, ref.Type, ref.ID, productID, warehouseID)
	if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

// emitMovement dispatches the after-commit event. Handler failures are
// logged and swallowed; the transaction already committed.
func (s *Service) emitMovement(ctx context.Context, m StockMovement, newQty float64) {
	if s.events == nil {
		return
	}
	evt := StockMovementRecordedEvent{
		MovementID:  m.ID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		NewQuantity: newQty,
		Reference:   m.Reference,
		ActorID:     m.ActorID,
		RecordedAt:  m.CreatedAt,
	}
	if err := s.events.HandleStockMovementRecorded(ctx, evt); err != nil {
		s.logger.Error("dispatch stock movement event",
			slog.String("movement_id", m.ID), slog.Any("error", err))
	}
}

func (s *Service) emitLowStock(ctx context.Context, product catalog.Product, warehouseID string, qty float64) {
	if s.events == nil || product.MinStockLevel <= 0 || qty >= product.MinStockLevel {
		return
	}
	evt := LowStockDetectedEvent{
		ProductID:     product.ID,
		ProductName:   product.Name,
		WarehouseID:   warehouseID,
		Quantity:      qty,
		MinStockLevel: product.MinStockLevel,
		DetectedAt:    time.Now().UTC(),
	}
	if err := s.events.HandleLowStockDetected(ctx, evt); err != nil {
		s.logger.Error("dispatch low stock event",
			slog.String("product_id", product.ID), slog.Any("error", err))
	}
}
