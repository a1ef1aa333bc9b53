package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewNotFoundError("Payment", "p-1"), http.StatusNotFound, "NOT_FOUND"},
		{"business rule", shared.NewValidationError("EXCEEDS_AVAILABLE", "too much"), http.StatusUnprocessableEntity, "EXCEEDS_AVAILABLE"},
		{"conflict", shared.NewConflictError("ALREADY_REVERSED", "reversed"), http.StatusConflict, "ALREADY_REVERSED"},
		{"wrapped", fmt.Errorf("failed to allocate: %w", shared.NewConflictError("DUPLICATE_ALLOCATION", "dup")), http.StatusConflict, "DUPLICATE_ALLOCATION"},
		{"unknown", errors.New("driver: bad connection"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, info := ErrorFrom(tt.err, "req-1")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.Equal(t, "req-1", info.RequestID)
		})
	}
}

func TestErrorFrom_HidesInternalMessage(t *testing.T) {
	_, info := ErrorFrom(errors.New("pq: password authentication failed"), "")
	assert.NotContains(t, info.Message, "password")
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusForKind(shared.KindNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForKind(shared.KindValidation))
	assert.Equal(t, http.StatusConflict, StatusForKind(shared.KindConflict))
	assert.Equal(t, http.StatusConflict, StatusForKind(shared.KindConcurrencyConflict))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(shared.ErrorKind("OTHER")))
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated([]string{"a", "b"}, 5, 1, 2)
	resp := NewPageResponse(page)

	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.EqualValues(t, 5, resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewPageResponse(shared.NewPaginated[string](nil, 0, 1, 20))
	body, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestNewErrorResponse_JSON(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse(ErrCodeBadRequest, "bad", "req-9"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_BAD_REQUEST","message":"bad","request_id":"req-9"}}`, string(body))
}
