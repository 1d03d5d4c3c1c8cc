package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// Repository reads warehouses and branches from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetWarehouse loads one warehouse.
func (r *Repository) GetWarehouse(ctx context.Context, id string) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id, name, location, created_at FROM warehouses WHERE id=$1`, id).
		Scan(&w.ID, &w.BranchID, &w.Name, &w.Location, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, shared.NewNotFound("warehouse", id)
		}
		return Warehouse{}, shared.NewPersistence(err)
	}
	return w, nil
}

// WarehouseExists reports whether the warehouse id is known.
func (r *Repository) WarehouseExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, shared.NewPersistence(err)
	}
	return exists, nil
}

// BranchExists reports whether the branch id is known.
func (r *Repository) BranchExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM branches WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, shared.NewPersistence(err)
	}
	return exists, nil
}
