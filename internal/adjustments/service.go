package adjustments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/catalog"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/inventory"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Adjustment, error)
	List(ctx context.Context, filter Filter) ([]Adjustment, error)
}

// CatalogPort is the read-only product/UOM catalog collaborator.
type CatalogPort interface {
	GetProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// DirectoryPort validates warehouse/branch references.
type DirectoryPort interface {
	WarehouseExists(ctx context.Context, id string) (bool, error)
	BranchExists(ctx context.Context, id string) (bool, error)
}

// StockReader provides the live quantity reads used for display snapshots.
type StockReader interface {
	GetQuantity(ctx context.Context, productID, warehouseID string) (float64, error)
}

// maxConflictRetries bounds how often a posting is retried on lock contention
// before the conflict surfaces to the caller.
const maxConflictRetries = 3

const conflictBackoff = 50 * time.Millisecond

// Service drives the adjustment state machine.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	directory DirectoryPort
	stock     StockReader
	validate  *validator.Validate
	events    EventHandler
	logger    *slog.Logger
}

// NewService builds Service. events may be nil.
func NewService(repo RepositoryPort, cat CatalogPort, directory DirectoryPort, stock StockReader, events EventHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		catalog:   cat,
		directory: directory,
		stock:     stock,
		validate:  validator.New(),
		events:    events,
		logger:    logger,
	}
}

// CreateDraft validates the request and inserts the header plus all items in
// one transaction. Item snapshots come from a live inventory read converted
// into each item's UOM; they are informational and never trusted at posting.
func (s *Service) CreateDraft(ctx context.Context, input CreateDraftInput) (Adjustment, error) {
	if err := s.validate.Struct(input); err != nil {
		return Adjustment{}, validationError(err)
	}
	if err := s.checkDirectory(ctx, input.WarehouseID, input.BranchID); err != nil {
		return Adjustment{}, err
	}
	items, err := s.buildItems(ctx, input.WarehouseID, input.Items)
	if err != nil {
		return Adjustment{}, err
	}

	adjustmentDate := input.AdjustmentDate
	if adjustmentDate.IsZero() {
		adjustmentDate = time.Now().UTC()
	}
	adj := Adjustment{
		ID:              uuid.NewString(),
		WarehouseID:     input.WarehouseID,
		BranchID:        input.BranchID,
		Reason:          input.Reason,
		ReferenceNumber: input.ReferenceNumber,
		AdjustmentDate:  adjustmentDate,
		Status:          StatusDraft,
		CreatedBy:       shared.ActorFromContext(ctx),
	}
	for i := range items {
		items[i].AdjustmentID = adj.ID
	}

	// The counted document number can collide with a concurrent same-day
	// draft; each retry recomputes it inside a fresh transaction.
	for attempt := 0; ; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := tx.NextAdjustmentNumber(ctx, adjustmentDate)
			if err != nil {
				return err
			}
			adj.AdjustmentNumber = number
			if err := tx.InsertAdjustment(ctx, adj); err != nil {
				return err
			}
			return tx.InsertItems(ctx, items)
		})
		if err == nil || !shared.IsConflict(err) || attempt+1 >= maxConflictRetries {
			break
		}
		s.logger.Warn("draft creation conflict, retrying",
			slog.String("adjustment_number", adj.AdjustmentNumber), slog.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return Adjustment{}, ctx.Err()
		case <-time.After(conflictBackoff << attempt):
		}
	}
	if err != nil {
		return Adjustment{}, err
	}
	return s.repo.Get(ctx, adj.ID)
}

// UpdateDraft edits a DRAFT header and, when Items is non-nil, replaces the
// item list wholesale.
func (s *Service) UpdateDraft(ctx context.Context, id string, input UpdateDraftInput) (Adjustment, error) {
	var items []Item
	if input.Items != nil {
		if len(input.Items) == 0 {
			return Adjustment{}, shared.NewValidation("at least one item is required", map[string]string{"items": "must not be empty"})
		}
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return Adjustment{}, err
		}
		items, err = s.buildItems(ctx, current.WarehouseID, input.Items)
		if err != nil {
			return Adjustment{}, err
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !adj.Status.CanEdit() {
			return shared.NewInvalidState(fmt.Sprintf("only draft adjustments can be updated, status is %s", adj.Status))
		}
		if input.Reason != nil {
			adj.Reason = *input.Reason
		}
		if input.ReferenceNumber != nil {
			adj.ReferenceNumber = *input.ReferenceNumber
		}
		if input.AdjustmentDate != nil {
			adj.AdjustmentDate = *input.AdjustmentDate
		}
		if err := tx.UpdateHeader(ctx, adj); err != nil {
			return err
		}
		if items != nil {
			if err := tx.DeleteItems(ctx, id); err != nil {
				return err
			}
			for i := range items {
				items[i].AdjustmentID = id
			}
			return tx.InsertItems(ctx, items)
		}
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	return s.repo.Get(ctx, id)
}

// Post applies every item's effect to inventory and the ledger as one atomic
// unit of work. Any single item's failure aborts the whole posting; the
// adjustment stays DRAFT. Lock contention is retried a bounded number of
// times before the conflict surfaces.
func (s *Service) Post(ctx context.Context, id, actorID string) (Adjustment, error) {
	var (
		result Adjustment
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = s.postOnce(ctx, id, actorID)
		if err == nil || !shared.IsConflict(err) || attempt+1 >= maxConflictRetries {
			break
		}
		s.logger.Warn("adjustment posting conflict, retrying",
			slog.String("adjustment_id", id), slog.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return Adjustment{}, ctx.Err()
		case <-time.After(conflictBackoff << attempt):
		}
	}
	return result, err
}

func (s *Service) postOnce(ctx context.Context, id, actorID string) (Adjustment, error) {
	// Catalog data is read outside the transaction; quantities never are.
	draft, err := s.repo.Get(ctx, id)
	if err != nil {
		return Adjustment{}, err
	}
	if !draft.Status.CanPost() {
		return Adjustment{}, shared.NewInvalidState(fmt.Sprintf("only draft adjustments can be posted, status is %s", draft.Status))
	}
	if len(draft.Items) == 0 {
		return Adjustment{}, shared.NewValidation("adjustment has no items to post", map[string]string{"items": "must not be empty"})
	}
	products, err := s.catalog.GetProducts(ctx, productIDs(draft.Items))
	if err != nil {
		return Adjustment{}, err
	}

	if actorID == "" {
		actorID = shared.ActorFromContext(ctx)
	}
	now := time.Now().UTC()
	evt := AdjustmentPostedEvent{
		ID:          id,
		WarehouseID: draft.WarehouseID,
		BranchID:    draft.BranchID,
		Reason:      draft.Reason,
		ActorID:     actorID,
		PostedAt:    now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !adj.Status.CanPost() {
			return shared.NewInvalidState(fmt.Sprintf("only draft adjustments can be posted, status is %s", adj.Status))
		}
		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return shared.NewValidation("adjustment has no items to post", map[string]string{"items": "must not be empty"})
		}
		evt.AdjustmentNumber = adj.AdjustmentNumber
		evt.Items = evt.Items[:0]

		for _, item := range items {
			product, ok := products[item.ProductID]
			if !ok {
				return shared.NewNotFound("product", item.ProductID)
			}
			res, err := catalog.ResolveUOM(product, item.UOM)
			if err != nil {
				return err
			}
			current, err := tx.GetQuantityForUpdate(ctx, item.ProductID, adj.WarehouseID)
			if err != nil {
				return err
			}
			converted := item.Quantity * res.Factor
			var delta float64
			switch item.Type {
			case ItemAbsolute:
				delta = converted - current
			default:
				delta = converted
			}
			newQty := current + delta
			if delta != 0 {
				// Adjustments may drive stock negative; that asymmetry
				// against ordinary deductions is a business rule.
				if _, err := tx.UpsertQuantity(ctx, item.ProductID, adj.WarehouseID, newQty); err != nil {
					return err
				}
				_, err = tx.InsertMovement(ctx, adjustmentMovement(adj, item, product, delta, actorID))
				if err != nil {
					return err
				}
			}
			if err := tx.UpdateItemSnapshot(ctx, item.ID, current/res.Factor, newQty/res.Factor); err != nil {
				return err
			}
			evt.Items = append(evt.Items, PostedItemEvent{
				ProductID:     item.ProductID,
				WarehouseID:   adj.WarehouseID,
				Delta:         delta,
				NewQuantity:   newQty,
				MinStockLevel: product.MinStockLevel,
			})
		}
		return tx.MarkPosted(ctx, id, actorID, now)
	})
	if err != nil {
		return Adjustment{}, err
	}

	if s.events != nil {
		if err := s.events.HandleAdjustmentPosted(ctx, evt); err != nil {
			s.logger.Error("dispatch adjustment posted event",
				slog.String("adjustment_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// Cancel discards a DRAFT. Terminal; no ledger writes.
func (s *Service) Cancel(ctx context.Context, id string) (Adjustment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !adj.Status.CanCancel() {
			return shared.NewInvalidState(fmt.Sprintf("only draft adjustments can be cancelled, status is %s", adj.Status))
		}
		return tx.MarkCancelled(ctx, id)
	})
	if err != nil {
		return Adjustment{}, err
	}
	return s.repo.Get(ctx, id)
}

// Copy clones any existing adjustment into a brand-new DRAFT with fresh
// snapshots and a new number. No ledger effect.
func (s *Service) Copy(ctx context.Context, id string) (Adjustment, error) {
	original, err := s.repo.Get(ctx, id)
	if err != nil {
		return Adjustment{}, err
	}
	input := CreateDraftInput{
		WarehouseID:     original.WarehouseID,
		BranchID:        original.BranchID,
		Reason:          fmt.Sprintf("Copy of %s: %s", original.AdjustmentNumber, original.Reason),
		ReferenceNumber: original.ReferenceNumber,
		Items:           itemInputs(original.Items),
	}
	return s.CreateDraft(ctx, input)
}

// Reverse builds a new DRAFT whose RELATIVE items negate a POSTED
// adjustment's applied deltas.
func (s *Service) Reverse(ctx context.Context, id string) (Adjustment, error) {
	original, err := s.repo.Get(ctx, id)
	if err != nil {
		return Adjustment{}, err
	}
	if original.Status != StatusPosted {
		return Adjustment{}, shared.NewInvalidState(fmt.Sprintf("only posted adjustments can be reversed, status is %s", original.Status))
	}
	items := make([]ItemInput, 0, len(original.Items))
	for _, item := range original.Items {
		qty := -item.Quantity
		if item.Type == ItemAbsolute {
			// The applied delta is actual − system, both rewritten from the
			// live read at posting time.
			var system, actual float64
			if item.SystemQuantity != nil {
				system = *item.SystemQuantity
			}
			if item.ActualQuantity != nil {
				actual = *item.ActualQuantity
			}
			qty = -(actual - system)
		}
		items = append(items, ItemInput{
			ProductID: item.ProductID,
			Quantity:  qty,
			UOM:       item.UOM,
			Type:      ItemRelative,
		})
	}
	input := CreateDraftInput{
		WarehouseID:     original.WarehouseID,
		BranchID:        original.BranchID,
		Reason:          fmt.Sprintf("Reversal of %s", original.AdjustmentNumber),
		ReferenceNumber: original.AdjustmentNumber,
		Items:           items,
	}
	return s.CreateDraft(ctx, input)
}

// Get loads one adjustment with items.
func (s *Service) Get(ctx context.Context, id string) (Adjustment, error) {
	return s.repo.Get(ctx, id)
}

// List returns adjustment headers matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Adjustment, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) checkDirectory(ctx context.Context, warehouseID, branchID string) error {
	ok, err := s.directory.WarehouseExists(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFound("warehouse", warehouseID)
	}
	ok, err = s.directory.BranchExists(ctx, branchID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFound("branch", branchID)
	}
	return nil
}

// buildItems validates inputs against the catalog and snapshots live
// quantities for display. One catalog batch read serves all items, so a
// 50-line draft does not pay a per-item round trip.
func (s *Service) buildItems(ctx context.Context, warehouseID string, inputs []ItemInput) ([]Item, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		itemType := in.Type
		if itemType == "" {
			itemType = ItemRelative
		}
		product := products[in.ProductID]
		res, err := catalog.ResolveUOM(product, in.UOM)
		if err != nil {
			return nil, err
		}
		if itemType == ItemRelative && in.Quantity == 0 {
			return nil, shared.NewValidation(
				fmt.Sprintf("item %d: relative adjustments need a non-zero quantity", i+1),
				map[string]string{"quantity": "must be non-zero"},
			)
		}
		currentBase, err := s.stock.GetQuantity(ctx, in.ProductID, warehouseID)
		if err != nil {
			return nil, err
		}
		system := currentBase / res.Factor
		actual := system + in.Quantity
		if itemType == ItemAbsolute {
			actual = in.Quantity
		}
		items = append(items, Item{
			ID:             uuid.NewString(),
			ProductID:      in.ProductID,
			UOM:            in.UOM,
			Quantity:       in.Quantity,
			Type:           itemType,
			SystemQuantity: &system,
			ActualQuantity: &actual,
			LineOrder:      i + 1,
		})
	}
	return items, nil
}

func adjustmentMovement(adj Adjustment, item Item, product catalog.Product, delta float64, actorID string) inventory.StockMovement {
	return inventory.StockMovement{
		ID:          uuid.NewString(),
		ProductID:   item.ProductID,
		WarehouseID: adj.WarehouseID,
		Type:        inventory.MovementAdjustment,
		Quantity:    delta,
		UnitCost:    product.AverageCostPrice,
		Reference:   inventory.Reference{Type: "ADJUSTMENT", ID: adj.ID},
		Reason:      adj.Reason,
		ActorID:     actorID,
	}
}

func productIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return dedupe(ids)
}

func itemInputs(items []Item) []ItemInput {
	inputs := make([]ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UOM:       item.UOM,
			Type:      item.Type,
		})
	}
	return inputs
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func validationError(err error) error {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return shared.NewValidation("invalid adjustment input", fields)
}
