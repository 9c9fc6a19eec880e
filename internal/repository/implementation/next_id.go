package implementation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutria-assistant-be/internal/repository/contract"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const nextIDAttempts = 3

// nextID returns the next unused integer id of table.
func nextID(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	var max int64
	if err := db.WithContext(ctx).Table(table).Select("COALESCE(MAX(id), 0)").Scan(&max).Error; err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	return max + 1, nil
}

// createWithNextID assigns the next unused id and inserts, retrying when a
// concurrent insert took the same id first.
func createWithNextID(ctx context.Context, db *gorm.DB, table string, assign func(int64), insert func() error) error {
	for attempt := 0; attempt < nextIDAttempts; attempt++ {
		id, err := nextID(ctx, db, table)
		if err != nil {
			return err
		}
		assign(id)

		err = insert()
		if err == nil {
			return nil
		}
		constraint, unique := uniqueViolation(err)
		if !unique {
			return err
		}
		if !strings.HasSuffix(constraint, "_pkey") {
			return fmt.Errorf("%w: %s", contract.ErrDuplicate, constraint)
		}
	}
	return fmt.Errorf("%w: could not assign an id in %s", contract.ErrConflict, table)
}

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
