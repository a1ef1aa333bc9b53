package persistence

import (
	"fmt"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate is the row-level write lock used by every mutating read.
// Dialects without row locks (SQLite) drop the clause and rely on the database-level lock.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// updateWithVersion writes updates only when the stored row still carries version,
// bumping the version in the same statement. Zero values in updates are written.
func updateWithVersion(db *gorm.DB, model any, entity string, id uuid.UUID, version int, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	result := db.Model(model).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.KindConcurrencyConflict, string(shared.KindConcurrencyConflict),
			fmt.Sprintf("%s %s was modified by another process (expected version %d)", entity, id, version))
	}
	return nil
}
