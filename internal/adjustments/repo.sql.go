package adjustments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/inventory"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/platform/db"
	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// Repository persists adjustments in PostgreSQL.
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

// TxRepository exposes the transactional operations used during draft
// management and posting. It embeds the inventory StockTx so a posting's
// ledger writes share the adjustment's transaction.
type TxRepository interface {
	inventory.StockTx
	NextAdjustmentNumber(ctx context.Context, at time.Time) (string, error)
	InsertAdjustment(ctx context.Context, adj Adjustment) error
	InsertItems(ctx context.Context, items []Item) error
	DeleteItems(ctx context.Context, adjustmentID string) error
	GetForUpdate(ctx context.Context, id string) (Adjustment, error)
	ListItems(ctx context.Context, adjustmentID string) ([]Item, error)
	UpdateHeader(ctx context.Context, adj Adjustment) error
	UpdateItemSnapshot(ctx context.Context, itemID string, systemQty, actualQty float64) error
	MarkPosted(ctx context.Context, id, actorID string, at time.Time) error
	MarkCancelled(ctx context.Context, id string) error
}

type txRepository struct {
	inventory.StockTx
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction with a
// bounded lock timeout.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("adjustments repository not initialised")
	}
	return db.WithTxTimeout(ctx, r.pool, r.txLockTimeout(), func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{StockTx: inventory.NewStockTx(tx), tx: tx})
	})
}

// Get loads one adjustment with its items in line order.
func (r *Repository) Get(ctx context.Context, id string) (Adjustment, error) {
	adj, err := scanAdjustment(r.pool.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Adjustment{}, shared.NewNotFound("inventory adjustment", id)
		}
		return Adjustment{}, shared.NewPersistence(err)
	}
	items, err := listItems(ctx, r.pool, id)
	if err != nil {
		return Adjustment{}, err
	}
	adj.Items = items
	return adj, nil
}

// List returns adjustment headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Adjustment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+adjustmentColumns+`
FROM inventory_adjustments
WHERE ($1 = '' OR warehouse_id = $1)
  AND ($2 = '' OR branch_id = $2)
  AND ($3 = '' OR status = $3)
  AND adjustment_date BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
  AND ($6 = '' OR adjustment_number ILIKE '%' || $6 || '%' OR reason ILIKE '%' || $6 || '%' OR reference_number ILIKE '%' || $6 || '%')
ORDER BY created_at DESC
LIMIT $7`,
		filter.WarehouseID, filter.BranchID, string(filter.Status),
		nullTime(filter.DateFrom), nullTime(filter.DateTo), filter.Search, limit)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	adjustments := []Adjustment{}
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, shared.NewPersistence(err)
		}
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	return adjustments, nil
}

const adjustmentColumns = `id, adjustment_number, warehouse_id, branch_id, reason, COALESCE(reference_number, ''), adjustment_date, status, created_by, posted_by, posted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdjustment(row rowScanner) (Adjustment, error) {
	var adj Adjustment
	err := row.Scan(&adj.ID, &adj.AdjustmentNumber, &adj.WarehouseID, &adj.BranchID, &adj.Reason,
		&adj.ReferenceNumber, &adj.AdjustmentDate, &adj.Status, &adj.CreatedBy,
		&adj.PostedBy, &adj.PostedAt, &adj.CreatedAt, &adj.UpdatedAt)
	return adj, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q querier, adjustmentID string) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, adjustment_id, product_id, uom, quantity, item_type, system_quantity, actual_quantity, line_order
FROM inventory_adjustment_items WHERE adjustment_id=$1 ORDER BY line_order ASC`, adjustmentID)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.AdjustmentID, &item.ProductID, &item.UOM, &item.Quantity,
			&item.Type, &item.SystemQuantity, &item.ActualQuantity, &item.LineOrder); err != nil {
			return nil, shared.NewPersistence(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	return items, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (t *txRepository) NextAdjustmentNumber(ctx context.Context, at time.Time) (string, error) {
	return shared.NextDocumentNumber(ctx, t.tx, "inventory_adjustments", "adjustment_number", "ADJ", at)
}

func (t *txRepository) InsertAdjustment(ctx context.Context, adj Adjustment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO inventory_adjustments (id, adjustment_number, warehouse_id, branch_id, reason, reference_number, adjustment_date, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,NOW(),NOW())`,
		adj.ID, adj.AdjustmentNumber, adj.WarehouseID, adj.BranchID, adj.Reason,
		adj.ReferenceNumber, adj.AdjustmentDate, string(adj.Status), adj.CreatedBy)
	// Two same-day drafts can race to the same counted number; the unique
	// index catches the loser, who retries with a fresh count.
	if db.IsUniqueViolation(err) {
		return shared.NewConflict("adjustment number already taken", err)
	}
	return err
}

// InsertItems bulk-inserts via COPY so a 50-item draft is not 50 round trips.
func (t *txRepository) InsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{
			item.ID, item.AdjustmentID, item.ProductID, item.UOM, item.Quantity,
			string(item.Type), item.SystemQuantity, item.ActualQuantity, item.LineOrder,
		})
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"inventory_adjustment_items"},
		[]string{"id", "adjustment_id", "product_id", "uom", "quantity", "item_type", "system_quantity", "actual_quantity", "line_order"},
		pgx.CopyFromRows(rows))
	return err
}

func (t *txRepository) DeleteItems(ctx context.Context, adjustmentID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM inventory_adjustment_items WHERE adjustment_id=$1`, adjustmentID)
	return err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id string) (Adjustment, error) {
	adj, err := scanAdjustment(t.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Adjustment{}, shared.NewNotFound("inventory adjustment", id)
		}
		return Adjustment{}, err
	}
	return adj, nil
}

func (t *txRepository) ListItems(ctx context.Context, adjustmentID string) ([]Item, error) {
	return listItems(ctx, t.tx, adjustmentID)
}

func (t *txRepository) UpdateHeader(ctx context.Context, adj Adjustment) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inventory_adjustments
SET reason=$2, reference_number=NULLIF($3,''), adjustment_date=$4, updated_at=NOW()
WHERE id=$1`, adj.ID, adj.Reason, adj.ReferenceNumber, adj.AdjustmentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFound("inventory adjustment", adj.ID)
	}
	return nil
}

func (t *txRepository) UpdateItemSnapshot(ctx context.Context, itemID string, systemQty, actualQty float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE inventory_adjustment_items SET system_quantity=$2, actual_quantity=$3 WHERE id=$1`, itemID, systemQty, actualQty)
	return err
}

func (t *txRepository) MarkPosted(ctx context.Context, id, actorID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inventory_adjustments SET status=$2, posted_by=$3, posted_at=$4, updated_at=NOW() WHERE id=$1`,
		id, string(StatusPosted), actorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFound("inventory adjustment", id)
	}
	return nil
}

func (t *txRepository) MarkCancelled(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inventory_adjustments SET status=$2, updated_at=NOW() WHERE id=$1`,
		id, string(StatusCancelled))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFound("inventory adjustment", id)
	}
	return nil
}
