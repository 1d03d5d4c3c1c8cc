package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/platform/db"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// Repository persists inventory rows and stock movements in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository. lockTimeout bounds row-lock waits
// inside transactions; zero or negative selects db.DefaultLockTimeout.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

func (r *Repository) txLockTimeout() time.Duration {
	if r.lockTimeout > 0 {
		return r.lockTimeout
	}
	return db.DefaultLockTimeout
}

// StockTx exposes the transactional ledger operations. The adjustment
// workflow embeds the same interface so a batch posting shares one
// transaction with its inventory writes.
type StockTx interface {
	// GetQuantityForUpdate locks the row and returns its quantity, or 0
	// when the pair has never been stocked.
	GetQuantityForUpdate(ctx context.Context, productID, warehouseID string) (float64, error)
	// UpsertQuantity creates the row on first write.
	UpsertQuantity(ctx context.Context, productID, warehouseID string, qty float64) (Inventory, error)
	// InsertMovement appends one immutable ledger entry.
	InsertMovement(ctx context.Context, m StockMovement) (StockMovement, error)
	// GlobalQuantity sums the product's stock across all warehouses.
	GlobalQuantity(ctx context.Context, productID string) (float64, error)
	// GetProductCostForUpdate locks the product row for a costing update.
	GetProductCostForUpdate(ctx context.Context, productID string) (float64, error)
	// UpdateAverageCost writes the product's new weighted-average cost.
	UpdateAverageCost(ctx context.Context, productID string, cost float64) error
}

type stockTx struct {
	tx pgx.Tx
}

// NewStockTx wraps an open transaction with the ledger operations.
func NewStockTx(tx pgx.Tx) StockTx {
	return &stockTx{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction with a
// bounded lock timeout.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, StockTx) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTxTimeout(ctx, r.pool, r.txLockTimeout(), func(tx pgx.Tx) error {
		return fn(ctx, NewStockTx(tx))
	})
}

// GetQuantity reads the current quantity without locking; 0 when absent.
func (r *Repository) GetQuantity(ctx context.Context, productID, warehouseID string) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM inventory WHERE product_id=$1 AND warehouse_id=$2`, productID, warehouseID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, shared.NewPersistence(err)
	}
	return qty, nil
}

// ListInventory returns current inventory rows matching the filter.
func (r *Repository) ListInventory(ctx context.Context, filter InventoryFilter) ([]Inventory, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, warehouse_id, quantity, updated_at
FROM inventory
WHERE ($1 = '' OR product_id = $1) AND ($2 = '' OR warehouse_id = $2)
ORDER BY product_id ASC, warehouse_id ASC`, filter.ProductID, filter.WarehouseID)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	items := []Inventory{}
	for rows.Next() {
		var inv Inventory
		if err := rows.Scan(&inv.ProductID, &inv.WarehouseID, &inv.Quantity, &inv.UpdatedAt); err != nil {
			return nil, shared.NewPersistence(err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	return items, nil
}

// ListMovements returns ledger entries matching the filter, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, warehouse_id, movement_type, quantity, unit_cost, reference_type, reference_id, reason, actor_id, created_at
FROM stock_movements
WHERE ($1 = '' OR product_id = $1)
  AND ($2 = '' OR warehouse_id = $2)
  AND ($3 = '' OR movement_type = $3)
  AND ($4 = '' OR reference_id = $4)
  AND ($5 = '' OR reference_type = $5)
  AND created_at BETWEEN COALESCE($6, '-infinity') AND COALESCE($7, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $8`,
		filter.ProductID, filter.WarehouseID, string(filter.Type), filter.ReferenceID, filter.ReferenceType,
		nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	movements := []StockMovement{}
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Type, &m.Quantity, &m.UnitCost,
			&m.Reference.Type, &m.Reference.ID, &m.Reason, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, shared.NewPersistence(err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	return movements, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (t *stockTx) GetQuantityForUpdate(ctx context.Context, productID, warehouseID string) (float64, error) {
	var qty float64
	err := t.tx.QueryRow(ctx, `SELECT quantity FROM inventory WHERE product_id=$1 AND warehouse_id=$2 FOR UPDATE`, productID, warehouseID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (t *stockTx) UpsertQuantity(ctx context.Context, productID, warehouseID string, qty float64) (Inventory, error) {
	var inv Inventory
	err := t.tx.QueryRow(ctx, `INSERT INTO inventory (product_id, warehouse_id, quantity, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (product_id, warehouse_id) DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=NOW()
RETURNING product_id, warehouse_id, quantity, updated_at`, productID, warehouseID, qty).
		Scan(&inv.ProductID, &inv.WarehouseID, &inv.Quantity, &inv.UpdatedAt)
	if err != nil {
		return Inventory{}, err
	}
	return inv, nil
}

func (t *stockTx) InsertMovement(ctx context.Context, m StockMovement) (StockMovement, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (id, product_id, warehouse_id, movement_type, quantity, unit_cost, reference_type, reference_id, reason, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
RETURNING created_at`,
		m.ID, m.ProductID, m.WarehouseID, string(m.Type), m.Quantity, m.UnitCost,
		m.Reference.Type, m.Reference.ID, m.Reason, m.ActorID).Scan(&m.CreatedAt)
	if err != nil {
		return StockMovement{}, err
	}
	return m, nil
}

func (t *stockTx) GlobalQuantity(ctx context.Context, productID string) (float64, error) {
	var total float64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM inventory WHERE product_id=$1`, productID).Scan(&total)
	return total, err
}

func (t *stockTx) GetProductCostForUpdate(ctx context.Context, productID string) (float64, error) {
	var cost float64
	err := t.tx.QueryRow(ctx, `SELECT average_cost_price FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NewNotFound("product", productID)
		}
		return 0, err
	}
	return cost, nil
}

func (t *stockTx) UpdateAverageCost(ctx context.Context, productID string, cost float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET average_cost_price=$2, updated_at=NOW() WHERE id=$1`, productID, cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFound("product", productID)
	}
	return nil
}
