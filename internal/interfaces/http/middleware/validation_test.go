package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/debtdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindTarget struct {
	Name  string   `json:"name" binding:"required,max=5"`
	Email string   `json:"email" binding:"omitempty,email"`
	Lines []string `json:"lines" binding:"required,min=1"`
	Count int      `json:"count"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.POST("/bind", func(c *gin.Context) {
		var req bindTarget
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func postBind(t *testing.T, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHandleBindError_FieldDetails(t *testing.T) {
	w, resp := postBind(t, `{"name":"too long name","email":"nope","lines":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	fields := map[string]string{}
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Must be at most 5 characters", fields["name"])
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Must contain at least 1 item(s)", fields["lines"])
}

func TestHandleBindError_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"syntax", `{"name":`},
		{"wrong type", `{"name":"ok","lines":["a"],"count":"three"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := postBind(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		})
	}
}

func TestHandleBindError_Valid(t *testing.T) {
	w, _ := postBind(t, `{"name":"ok","lines":["a"]}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
