package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps request bodies. Every rollcall payload is tiny.
const MaxBodyBytes = 16 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeError is returned for bodies that are malformed, carry unknown
// fields, or fail validation. Handlers answer it with invalid-argument.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string { return e.Msg }

// DecodeJSON strictly decodes the request body into dst and validates it.
// An empty body decodes as {}.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return &DecodeError{Msg: "Request body is too large."}
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return &DecodeError{Msg: fmt.Sprintf("Unexpected field %s.", field)}
		default:
			return &DecodeError{Msg: "Request body must be a JSON object."}
		}
	}
	if dec.More() {
		return &DecodeError{Msg: "Request body must contain a single JSON object."}
	}

	return ValidateStruct(dst)
}

// ValidateStruct runs the struct's validate tags.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("httpx: validate: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return &DecodeError{Msg: strings.Join(msgs, "; ") + "."}
}
