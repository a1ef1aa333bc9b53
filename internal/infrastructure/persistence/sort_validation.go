package persistence

import (
	"strings"
)

// CustomerSortFields contains the persisted customer columns usable in ORDER BY.
// Computed stats fields are sorted in memory by the application layer.
var CustomerSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"email":      true,
	"status":     true,
}

// ValidateSortOrder normalizes orderDir to ASC or DESC; anything else is DESC
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted in allowed, defaultField otherwise.
// Only whitelisted names ever reach an ORDER BY clause.
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	if trimmed := strings.TrimSpace(sortField); allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// customerOrderClauses returns the ORDER BY terms for a customer page.
// created_at and id break ties so pages do not overlap.
func customerOrderClauses(sortField, orderDir string) []string {
	field := ValidateSortField(sortField, CustomerSortFields, "created_at")
	dir := ValidateSortOrder(orderDir)

	clauses := []string{field + " " + dir}
	for _, tie := range []string{"created_at", "id"} {
		if tie != field {
			clauses = append(clauses, tie+" "+dir)
		}
	}
	return clauses
}
