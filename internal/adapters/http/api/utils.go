package api

import (
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/rallyeval/internal/app"
	"github.com/okian/rallyeval/internal/domain/model"
)

// readLog decodes the request body as an event log, writing the error
// response itself on failure.
func readLog(w http.ResponseWriter, r *http.Request, deps Dependencies, cfg handlerConfig, op string) (model.Log, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return model.Log{}, false
	}
	body := http.MaxBytesReader(w, r.Body, cfg.maxBodyBytes)
	defer body.Close()

	log, err := deps.Decode(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
		case service.ErrorKind(err) == "malformed_log":
			writeError(w, http.StatusBadRequest, "malformed_log", WrapKind(op, ErrMalformedLog, err))
		default:
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		}
		return model.Log{}, false
	}
	return log, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
