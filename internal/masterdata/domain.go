// Package masterdata exposes the warehouse/branch reference data the ledger
// validates against. The engine only reads; maintenance screens live elsewhere.
package masterdata

import "time"

// Warehouse is a physical stock location.
type Warehouse struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Branch is the organisational unit a warehouse belongs to.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
