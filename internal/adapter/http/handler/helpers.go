package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	t "github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// 1MB
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		// json has no typed error for unknown fields, see golang/go#29035
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// readIDParam parses the {id} path value.
func readIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid id parameter")
	}
	return id, nil
}

func readString(qs url.Values, key string, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

func readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}
	return i
}

func readUUID(qs url.Values, key string, v *validator.Validator) *uuid.UUID {
	s := qs.Get(key)
	if s == "" {
		return nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		v.AddError(key, "must be a valid UUID")
		return nil
	}
	return &id
}

// readDate parses a YYYY-MM-DD query value.
func readDate(qs url.Values, key string, v *validator.Validator) *time.Time {
	s := qs.Get(key)
	if s == "" {
		return nil
	}

	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		v.AddError(key, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

func validateRange(v *validator.Validator, from, to *time.Time) {
	if from != nil && to != nil {
		v.Check(!to.Before(*from), "to", "must not be before from")
	}
}

func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrInvalidExportFormat, t.ErrTripWithoutLegs, t.ErrInvalidPaymentAmount):
		return http.StatusBadRequest
	case IsOneOf(err, t.ErrInvalidCredentials, t.ErrInvalidToken, t.ErrExpiredToken, t.ErrRevokedToken):
		return http.StatusUnauthorized
	case IsOneOf(err, t.ErrForbidden, t.ErrUserInactive):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrUserNotFound, t.ErrTripNotFound, t.ErrDriverNotFound, t.ErrPaymentNotFound, t.ErrNotFound):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrEmailAlreadyTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicErrors are the sentinels whose text may be shown to clients.
var publicErrors = []error{
	t.ErrInvalidExportFormat, t.ErrTripWithoutLegs, t.ErrInvalidPaymentAmount,
	t.ErrInvalidCredentials, t.ErrInvalidToken, t.ErrExpiredToken, t.ErrRevokedToken,
	t.ErrForbidden, t.ErrUserInactive,
	t.ErrUserNotFound, t.ErrTripNotFound, t.ErrDriverNotFound, t.ErrPaymentNotFound, t.ErrNotFound,
	t.ErrEmailAlreadyTaken,
}

// GetMessage returns the client facing text of err. Internal failures are never echoed.
func GetMessage(err error) string {
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "the server encountered a problem and could not process your request"
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
