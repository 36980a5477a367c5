package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

func init() {
	// report json names in validation details
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Writes error responses. Internal error causes are only echoed back in development.
type Responder struct {
	Development bool
}

func (r Responder) Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": "Internal server error"}

	switch {
	case service.IsValidationError(err):
		status = http.StatusBadRequest
		body["error"] = service.GetErrorMessage(err)
		if details := service.GetErrorDetails(err); len(details) > 0 {
			body["details"] = details
		}
	case service.IsNotFoundError(err):
		status = http.StatusNotFound
		body["error"] = service.GetErrorMessage(err)
	case service.IsConflictError(err):
		status = http.StatusConflict
		body["error"] = service.GetErrorMessage(err)
	case service.IsUnauthorizedError(err):
		status = http.StatusUnauthorized
		body["error"] = service.GetErrorMessage(err)
	case service.IsUnavailableError(err):
		status = http.StatusServiceUnavailable
		body["error"] = service.GetErrorMessage(err)
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")

		if r.Development {
			body["message"] = err.Error()
		}
	}

	_ = c.Error(err)
	c.JSON(status, body)
}

// bind decodes the JSON body into obj. Decode and binding failures come back
// as validation errors carrying message and per-field details.
func bind(c *gin.Context, obj interface{}, message string) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	return service.Validation(message, fieldErrors(err)...)
}

func fieldErrors(err error) []service.FieldError {
	var validationErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &validationErrs):
		details := make([]service.FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, service.FieldError{
				Field:   fe.Field(),
				Message: describeTag(fe),
			})
		}
		return details
	case errors.As(err, &typeErr):
		return []service.FieldError{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be a %s", jsonKind(typeErr.Type)),
		}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []service.FieldError{{Field: "body", Message: "malformed JSON"}}
	case errors.Is(err, io.EOF):
		return []service.FieldError{{Field: "body", Message: "request body is required"}}
	default:
		return []service.FieldError{{Field: "body", Message: err.Error()}}
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return t.String()
	}
}
