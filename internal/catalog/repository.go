package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// Repository reads products and their alternate UOMs from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProduct loads one product with its alternate UOMs.
func (r *Repository) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, base_uom, average_cost_price, min_stock_level, created_at, updated_at
FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.BaseUOM, &p.AverageCostPrice, &p.MinStockLevel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NewNotFound("product", id)
		}
		return Product{}, shared.NewPersistence(err)
	}
	uoms, err := r.loadUOMs(ctx, []string{id})
	if err != nil {
		return Product{}, err
	}
	p.AlternateUOMs = uoms[id]
	return p, nil
}

// GetProducts loads a batch of products keyed by id. Missing ids fail with
// a not-found error so callers never post against unknown products.
func (r *Repository) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	if len(ids) == 0 {
		return map[string]Product{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, base_uom, average_cost_price, min_stock_level, created_at, updated_at
FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	products := make(map[string]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseUOM, &p.AverageCostPrice, &p.MinStockLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, shared.NewPersistence(err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, shared.NewNotFound("product", id)
		}
	}

	uoms, err := r.loadUOMs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, alts := range uoms {
		p := products[id]
		p.AlternateUOMs = alts
		products[id] = p
	}
	return products, nil
}

func (r *Repository) loadUOMs(ctx context.Context, productIDs []string) (map[string][]AlternateUOM, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, id, name, conversion_factor, selling_price
FROM product_uoms WHERE product_id = ANY($1) ORDER BY name ASC`, productIDs)
	if err != nil {
		return nil, shared.NewPersistence(err)
	}
	defer rows.Close()

	uoms := make(map[string][]AlternateUOM)
	for rows.Next() {
		var productID string
		var alt AlternateUOM
		if err := rows.Scan(&productID, &alt.ID, &alt.Name, &alt.ConversionFactor, &alt.SellingPrice); err != nil {
			return nil, shared.NewPersistence(err)
		}
		uoms[productID] = append(uoms[productID], alt)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.NewPersistence(err)
	}
	return uoms, nil
}
