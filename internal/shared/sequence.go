package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// NextDocumentNumber produces a human readable number PREFIX-YYYYMMDD-NNNN
// by counting same-day documents inside the caller's transaction. Running it
// inside the insert transaction keeps the sequence gap-free per day.
func NextDocumentNumber(ctx context.Context, tx pgx.Tx, table, column, prefix string, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	full := fmt.Sprintf("%s-%s", prefix, day)
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s LIKE $1`, table, column)
	if err := tx.QueryRow(ctx, query, full+"%").Scan(&count); err != nil {
		return "", NewPersistence(err)
	}
	return fmt.Sprintf("%s-%04d", full, count+1), nil
}
