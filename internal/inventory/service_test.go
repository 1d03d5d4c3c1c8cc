package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/catalog"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// memoryStore backs both the repository port and the transactional ledger in
// tests. WithTx snapshots state up front and restores it when fn fails, so the
// rollback behaviour of the real repository holds.
type memoryStore struct {
	quantities map[string]float64
	costs      map[string]float64
	movements  []StockMovement
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		quantities: map[string]float64{},
		costs:      map[string]float64{},
	}
}

func stockKey(productID, warehouseID string) string {
	return productID + "|" + warehouseID
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, StockTx) error) error {
	quantities := make(map[string]float64, len(m.quantities))
	for k, v := range m.quantities {
		quantities[k] = v
	}
	costs := make(map[string]float64, len(m.costs))
	for k, v := range m.costs {
		costs[k] = v
	}
	movements := append([]StockMovement(nil), m.movements...)

	if err := fn(ctx, m); err != nil {
		m.quantities = quantities
		m.costs = costs
		m.movements = movements
		return err
	}
	return nil
}

func (m *memoryStore) GetQuantity(ctx context.Context, productID, warehouseID string) (float64, error) {
	return m.quantities[stockKey(productID, warehouseID)], nil
}

func (m *memoryStore) ListInventory(ctx context.Context, filter InventoryFilter) ([]Inventory, error) {
	var out []Inventory
	for k, v := range m.quantities {
		out = append(out, Inventory{ProductID: k, Quantity: v})
	}
	return out, nil
}

func (m *memoryStore) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	var out []StockMovement
	for _, mv := range m.movements {
		if filter.ProductID != "" && mv.ProductID != filter.ProductID {
			continue
		}
		if filter.WarehouseID != "" && mv.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.ReferenceID != "" && mv.Reference.ID != filter.ReferenceID {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (m *memoryStore) GetQuantityForUpdate(ctx context.Context, productID, warehouseID string) (float64, error) {
	return m.quantities[stockKey(productID, warehouseID)], nil
}

func (m *memoryStore) UpsertQuantity(ctx context.Context, productID, warehouseID string, qty float64) (Inventory, error) {
	m.quantities[stockKey(productID, warehouseID)] = qty
	return Inventory{ProductID: productID, WarehouseID: warehouseID, Quantity: qty, UpdatedAt: time.Now()}, nil
}

func (m *memoryStore) InsertMovement(ctx context.Context, mv StockMovement) (StockMovement, error) {
	mv.CreatedAt = time.Now()
	m.movements = append(m.movements, mv)
	return mv, nil
}

func (m *memoryStore) GlobalQuantity(ctx context.Context, productID string) (float64, error) {
	var total float64
	for k, v := range m.quantities {
		if len(k) > len(productID) && k[:len(productID)] == productID && k[len(productID)] == '|' {
			total += v
		}
	}
	return total, nil
}

func (m *memoryStore) GetProductCostForUpdate(ctx context.Context, productID string) (float64, error) {
	return m.costs[productID], nil
}

func (m *memoryStore) UpdateAverageCost(ctx context.Context, productID string, cost float64) error {
	m.costs[productID] = cost
	return nil
}

type memoryCatalog struct {
	products map[string]catalog.Product
}

func (c *memoryCatalog) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, shared.NewNotFound("product", id)
	}
	return p, nil
}

type recordedEvents struct {
	movements []StockMovementRecordedEvent
	lowStock  []LowStockDetectedEvent
}

func (r *recordedEvents) HandleStockMovementRecorded(ctx context.Context, evt StockMovementRecordedEvent) error {
	r.movements = append(r.movements, evt)
	return nil
}

func (r *recordedEvents) HandleLowStockDetected(ctx context.Context, evt LowStockDetectedEvent) error {
	r.lowStock = append(r.lowStock, evt)
	return nil
}

func testProduct() catalog.Product {
	return catalog.Product{
		ID:      "prod-1",
		Name:    "Bottled Water",
		BaseUOM: "PCS",
		AlternateUOMs: []catalog.AlternateUOM{
			{ID: "uom-1", Name: "BOX", ConversionFactor: 12},
		},
	}
}

func newTestService(products ...catalog.Product) (*Service, *memoryStore, *recordedEvents) {
	store := newMemoryStore()
	cat := &memoryCatalog{products: map[string]catalog.Product{}}
	for _, p := range products {
		cat.products[p.ID] = p
		store.costs[p.ID] = p.AverageCostPrice
	}
	events := &recordedEvents{}
	svc := NewService(store, cat, nil, events, nil)
	return svc, store, events
}

func TestAddStockBaseUnits(t *testing.T) {
	svc, store, events := newTestService(testProduct())
	ctx := context.Background()

	inv, err := svc.AddStock(ctx, AddStockInput{
		ProductID:   "prod-1",
		WarehouseID: "wh-1",
		Quantity:    10,
		UOM:         "PCS",
		UnitCost:    5,
	})
	require.NoError(t, err)
	require.Equal(t, 10.0, inv.Quantity)
	require.InDelta(t, 5.0, store.costs["prod-1"], 1e-9)

	require.Len(t, store.movements, 1)
	mv := store.movements[0]
	require.Equal(t, MovementIn, mv.Type)
	require.Equal(t, 10.0, mv.Quantity)
	require.Equal(t, 5.0, mv.UnitCost)

	require.Len(t, events.movements, 1)
	require.Equal(t, 10.0, events.movements[0].NewQuantity)
}

func TestAddStockConvertsAlternateUOM(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	// 2 boxes of 12 at 24 per box: 24 base units at 2 per piece.
	inv, err := svc.AddStock(ctx, AddStockInput{
		ProductID:   "prod-1",
		WarehouseID: "wh-1",
		Quantity:    2,
		UOM:         "box",
		UnitCost:    24,
	})
	require.NoError(t, err)
	require.Equal(t, 24.0, inv.Quantity)
	require.Len(t, store.movements, 1)
	require.Equal(t, 24.0, store.movements[0].Quantity)
	require.InDelta(t, 2.0, store.movements[0].UnitCost, 1e-9)
	require.InDelta(t, 2.0, store.costs["prod-1"], 1e-9)
}

func TestAddStockBlendsWeightedAverage(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, UOM: "PCS", UnitCost: 5})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, UOM: "PCS", UnitCost: 7})
	require.NoError(t, err)
	require.InDelta(t, 6.0, store.costs["prod-1"], 1e-9)
}

func TestAddStockAverageSpansWarehouses(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 30, UOM: "PCS", UnitCost: 4})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-2", Quantity: 10, UOM: "PCS", UnitCost: 8})
	require.NoError(t, err)
	// (30*4 + 10*8) / 40
	require.InDelta(t, 5.0, store.costs["prod-1"], 1e-9)
}

func TestAddStockUnknownUOMWritesNothing(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 1, UOM: "CRATE", UnitCost: 1})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Empty(t, store.movements)
	require.Empty(t, store.quantities)
}

func TestAddStockZeroFactorUOMRejected(t *testing.T) {
	p := testProduct()
	p.AlternateUOMs = append(p.AlternateUOMs, catalog.AlternateUOM{ID: "uom-bad", Name: "CRATE", ConversionFactor: 0})
	svc, store, _ := newTestService(p)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, UOM: "PCS", UnitCost: 5})
	require.NoError(t, err)

	// A receipt in the broken unit must fail before any math runs; the
	// quantity and the stored average stay untouched.
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 1, UOM: "CRATE", UnitCost: 12})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Len(t, store.movements, 1)
	require.Equal(t, 10.0, store.quantities[stockKey("prod-1", "wh-1")])
	require.InDelta(t, 5.0, store.costs["prod-1"], 1e-9)
}

func TestDeductStockInsufficient(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.DeductStock(ctx, DeductStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, UOM: "PCS"})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindInsufficientStock))
	require.Empty(t, store.movements)
	qty, err := svc.GetStockLevel(ctx, "prod-1", "wh-1")
	require.NoError(t, err)
	require.Equal(t, 0.0, qty)
}

func TestDeductStockAllowNegative(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	inv, err := svc.DeductStock(ctx, DeductStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, UOM: "PCS", AllowNegative: true})
	require.NoError(t, err)
	require.Equal(t, -5.0, inv.Quantity)
	require.Len(t, store.movements, 1)
	require.Equal(t, -5.0, store.movements[0].Quantity)
}

func TestDeductStockUsesAverageCost(t *testing.T) {
	p := testProduct()
	p.AverageCostPrice = 6
	svc, store, _ := newTestService(p)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 10, UOM: "PCS", UnitCost: 6})
	require.NoError(t, err)
	_, err = svc.DeductStock(ctx, DeductStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 4, UOM: "PCS"})
	require.NoError(t, err)

	require.Len(t, store.movements, 2)
	out := store.movements[1]
	require.Equal(t, MovementOut, out.Type)
	require.InDelta(t, 6.0, out.UnitCost, 1e-9)
}

func TestDeductStockEmitsLowStock(t *testing.T) {
	p := testProduct()
	p.MinStockLevel = 10
	svc, _, events := newTestService(p)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 12, UOM: "PCS", UnitCost: 5})
	require.NoError(t, err)
	_, err = svc.DeductStock(ctx, DeductStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, UOM: "PCS"})
	require.NoError(t, err)

	require.Len(t, events.lowStock, 1)
	require.Equal(t, 7.0, events.lowStock[0].Quantity)
	require.Equal(t, 10.0, events.lowStock[0].MinStockLevel)
}

func TestTransferStockPairedMovements(t *testing.T) {
	svc, _, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 50, UOM: "PCS", UnitCost: 5})
	require.NoError(t, err)

	res, err := svc.TransferStock(ctx, TransferStockInput{
		ProductID:              "prod-1",
		SourceWarehouseID:      "wh-1",
		DestinationWarehouseID: "wh-2",
		Quantity:               20,
		UOM:                    "PCS",
	})
	require.NoError(t, err)
	require.Equal(t, 30.0, res.Source.Quantity)
	require.Equal(t, 20.0, res.Destination.Quantity)
	require.NotEmpty(t, res.ReferenceID)

	moves, err := svc.GetMovements(ctx, MovementFilter{ReferenceID: res.ReferenceID})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	require.Equal(t, MovementOut, moves[0].Type)
	require.Equal(t, -20.0, moves[0].Quantity)
	require.Equal(t, MovementIn, moves[1].Type)
	require.Equal(t, 20.0, moves[1].Quantity)
	require.Equal(t, ReferenceTransfer, moves[0].Reference.Type)
	require.Equal(t, moves[0].Reference.ID, moves[1].Reference.ID)
	// Total stock is conserved.
	require.InDelta(t, 0.0, moves[0].Quantity+moves[1].Quantity, 1e-9)
}

func TestTransferStockSameWarehouse(t *testing.T) {
	svc, _, _ := newTestService(testProduct())
	_, err := svc.TransferStock(context.Background(), TransferStockInput{
		ProductID:              "prod-1",
		SourceWarehouseID:      "wh-1",
		DestinationWarehouseID: "wh-1",
		Quantity:               5,
		UOM:                    "PCS",
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestTransferStockInsufficientRollsBack(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 5, UOM: "PCS", UnitCost: 5})
	require.NoError(t, err)

	_, err = svc.TransferStock(ctx, TransferStockInput{
		ProductID:              "prod-1",
		SourceWarehouseID:      "wh-1",
		DestinationWarehouseID: "wh-2",
		Quantity:               10,
		UOM:                    "PCS",
	})
	require.Error(t, err)
	require.True(t, shared.IsKind(err, shared.KindInsufficientStock))

	qty, err := svc.GetStockLevel(ctx, "prod-1", "wh-1")
	require.NoError(t, err)
	require.Equal(t, 5.0, qty)
	qty, err = svc.GetStockLevel(ctx, "prod-1", "wh-2")
	require.NoError(t, err)
	require.Equal(t, 0.0, qty)
	require.Len(t, store.movements, 1)
}

func TestGetStockLevels(t *testing.T) {
	svc, store, _ := newTestService(testProduct())
	store.quantities[stockKey("prod-1", "wh-1")] = 12
	store.quantities[stockKey("prod-2", "wh-1")] = 7

	levels, err := svc.GetStockLevels(context.Background(), []string{"prod-1", "prod-2", "prod-3"}, "wh-1")
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"prod-1": 12, "prod-2": 7, "prod-3": 0}, levels)
}

func TestGetStockLevelUnknownPairIsZero(t *testing.T) {
	svc, _, _ := newTestService(testProduct())
	qty, err := svc.GetStockLevel(context.Background(), "prod-1", "wh-99")
	require.NoError(t, err)
	require.Equal(t, 0.0, qty)
}
