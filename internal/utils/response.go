package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type APIResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      interface{}       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	_ = WriteJSON(w, status, ErrorResponse(message, detail))
}

// NewValidator reports field errors under their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationFields maps each failed field to the rule it broke. It returns nil for non-validation errors.
func ValidationFields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make(map[string]string, len(ve))
	for _, fieldErr := range ve {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return fields
}

// WriteValidationError answers 400 with the field map of a validation failure.
func WriteValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse("Validation failed", err.Error())
	resp.Fields = ValidationFields(err)
	_ = WriteJSON(w, http.StatusBadRequest, resp)
}
