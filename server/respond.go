package server

import (
	"encoding/json"
	"net/http"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/store"
)

type handlerFunc func(r *http.Request) (status int, body any, err error)

// handle runs fn with panic recovery and writes its result as JSON.
func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

		var (
			status int
			body   any
		)
		err := errors.SafeExecute("server."+r.Method+" "+r.URL.Path, func() error {
			var err error
			status, body, err = fn(r)
			return err
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if body == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err, "path", r.URL.Path, log.ErrorTypeKey, kind)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, log.ErrorKey, err.Error())
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Type: kind})
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

// classify maps an error to an HTTP status and a short type name.
func classify(err error) (int, string) {
	var (
		reqErr        *requestError
		notFitted     *errors.NotFittedError
		schema        *errors.SchemaMismatchError
		unseen        *errors.UnseenCategoryError
		validation    *errors.ValidationError
		configuration *errors.ConfigurationError
		dimension     *errors.DimensionError
		value         *errors.ValueError
		panicErr      *errors.PanicError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, errors.ErrEmptyData):
		return http.StatusUnprocessableEntity, "EmptyData"
	case errors.As(err, &notFitted):
		return http.StatusUnprocessableEntity, "NotFittedError"
	case errors.As(err, &schema):
		return http.StatusUnprocessableEntity, "SchemaMismatchError"
	case errors.As(err, &unseen):
		return http.StatusUnprocessableEntity, "UnseenCategoryError"
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, "ValidationError"
	case errors.As(err, &configuration):
		return http.StatusUnprocessableEntity, "ConfigurationError"
	case errors.As(err, &dimension):
		return http.StatusUnprocessableEntity, "DimensionError"
	case errors.As(err, &value):
		return http.StatusUnprocessableEntity, "ValueError"
	case errors.As(err, &panicErr):
		return http.StatusInternalServerError, "PanicError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
