package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// nextOrderNumberTx generates the next gapless order number for a year,
// formatted as PC-<year>-NNNNN. It must run inside the caller's
// transaction so a rolled-back order never consumes a number.
func nextOrderNumberTx(ctx context.Context, tx pgx.Tx, year int) (string, error) {
	var lastNumber int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO order_sequences (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year)
		DO UPDATE SET last_number = order_sequences.last_number + 1
		RETURNING last_number`,
		year,
	).Scan(&lastNumber); err != nil {
		return "", fmt.Errorf("generate order number for %d: %w", year, err)
	}
	return fmt.Sprintf("PC-%d-%05d", year, lastNumber), nil
}
