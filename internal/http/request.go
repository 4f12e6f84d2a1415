package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/pkg/validator"
)

const maxJSONBodyBytes = 1 << 20

type request struct {
	r         *http.Request
	validator validator.Validator
}

// bind decodes a JSON body into dst and validates it.
func (req request) bind(w http.ResponseWriter, dst any) error {
	body := http.MaxBytesReader(w, req.r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.ValidationErr.WithMsg("request body is required")
		}
		return apperr.ValidationErr.WithMsg("malformed JSON body").WrapParent(err)
	}

	if err := req.validator.Validate(dst); err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func (req request) pathID() (int64, error) {
	raw := chi.URLParam(req.r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ValidationErr.WithMsg(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

// writtenError marks a failure that happened after the response status was sent.
type writtenError struct {
	err error
}

func (e writtenError) Error() string { return e.err.Error() }
func (e writtenError) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return writtenError{err: fmt.Errorf("encode response: %w", err)}
	}
	return nil
}
