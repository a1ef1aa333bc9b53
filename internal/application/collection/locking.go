package collection

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// sortedUniqueIDs returns ids deduplicated in ascending byte order, the order rows are locked in
func sortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

// lockInstallments row-locks the installments in id order. Any unknown id is a NOT_FOUND error.
func lockInstallments(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) (map[uuid.UUID]*collection.Installment, error) {
	locked := make(map[uuid.UUID]*collection.Installment, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}
	sorted := sortedUniqueIDs(ids)
	rows, err := repos.Installments().FindByIDsForUpdate(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to lock installments: %w", err)
	}
	for i := range rows {
		locked[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, shared.NewNotFoundError("Installment", id)
		}
	}
	return locked, nil
}

// lockDebts row-locks the parent debts of installments in id order
func lockDebts(ctx context.Context, repos TransactionalRepositories, installments map[uuid.UUID]*collection.Installment) (map[uuid.UUID]*collection.Debt, error) {
	locked := make(map[uuid.UUID]*collection.Debt)
	if len(installments) == 0 {
		return locked, nil
	}
	ids := make([]uuid.UUID, 0, len(installments))
	for _, inst := range installments {
		ids = append(ids, inst.DebtID)
	}
	sorted := sortedUniqueIDs(ids)
	rows, err := repos.Debts().FindByIDsForUpdate(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to lock debts: %w", err)
	}
	for i := range rows {
		locked[rows[i].ID] = &rows[i]
	}
	for _, id := range sorted {
		if _, ok := locked[id]; !ok {
			return nil, shared.NewNotFoundError("Debt", id)
		}
	}
	return locked, nil
}

func saveInstallments(ctx context.Context, repos TransactionalRepositories, installments map[uuid.UUID]*collection.Installment) error {
	for _, id := range sortedKeys(installments) {
		if err := repos.Installments().SaveWithLock(ctx, installments[id]); err != nil {
			return err
		}
	}
	return nil
}

func saveDebts(ctx context.Context, repos TransactionalRepositories, debts map[uuid.UUID]*collection.Debt) error {
	for _, id := range sortedKeys(debts) {
		if err := repos.Debts().SaveWithLock(ctx, debts[id]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[uuid.UUID]V) []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	return sortedUniqueIDs(keys)
}
