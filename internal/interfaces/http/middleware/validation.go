package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/debtdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupValidatorOnce sync.Once

// SetupValidator makes validation errors name fields by their json (or form) tag
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
			}
			return name
		})
	})
}

// BindErrorResponse turns a ShouldBind* error into a 400 response body.
// Field-level failures are listed in details; a malformed body gets ERR_INVALID_JSON.
func BindErrorResponse(err error, requestID string) (int, dto.Response) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]dto.ValidationDetail, 0, len(validationErrs))
		for _, e := range validationErrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
		return http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Request body is empty", requestID)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr):
		return http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	case errors.As(err, &typeErr):
		return http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON,
			"Field "+typeErr.Field+" has the wrong type", requestID)
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size", requestID)
	}

	return http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error(), requestID)
}

// HandleBindError writes the response for a failed ShouldBind* call
func HandleBindError(c *gin.Context, err error) {
	status, body := BindErrorResponse(err, GetRequestID(c))
	c.JSON(status, body)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " item(s)"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "datetime":
		return "Must be a date in format " + e.Param()
	default:
		return "Invalid value"
	}
}
