package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":                         "DESC",
		"asc":                      "ASC",
		"  ASC ":                   "ASC",
		"desc":                     "DESC",
		"sideways":                 "DESC",
		"ASC; DROP TABLE debts;--": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "created_at"},
		{"name", "name"},
		{"  email ", "email"},
		{"NAME", "created_at"},
		{"total_debt_amount", "created_at"},
		{"payments_count", "created_at"},
		{"name; DROP TABLE customers;--", "created_at"},
		{"id' OR '1'='1", "created_at"},
		{"CASE WHEN 1=1 THEN id ELSE name END", "created_at"},
		{"name\n; DROP TABLE payments", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, CustomerSortFields, "created_at"))
		})
	}
}

func TestCustomerOrderClauses(t *testing.T) {
	assert.Equal(t, []string{"name ASC", "created_at ASC", "id ASC"}, customerOrderClauses("name", "asc"))
	assert.Equal(t, []string{"created_at DESC", "id DESC"}, customerOrderClauses("", ""))
	assert.Equal(t, []string{"id DESC", "created_at DESC"}, customerOrderClauses("id", "desc"))
	assert.Equal(t, []string{"created_at DESC", "id DESC"}, customerOrderClauses("overdue_days", "asc; --"))
}
