package api

import (
	"net/http"

	service "github.com/okian/rallyeval/internal/app"
	"github.com/okian/rallyeval/internal/domain/matching"
	"github.com/okian/rallyeval/pkg/logger"
)

// EvaluateHandler handles evaluation requests.
type EvaluateHandler struct {
	deps Dependencies
	cfg  handlerConfig
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps Dependencies, cfg handlerConfig) *EvaluateHandler {
	return &EvaluateHandler{deps: deps, cfg: cfg}
}

// HandleEvaluate handles POST /evaluate?tolerance=N&mode=any|one_to_one.
// The body is the event log mapping; the response is the evaluation report.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req service.Request
	tol, err := queryInt(r, "tolerance")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if tol != nil && *tol < 0 {
		writeError(w, http.StatusBadRequest, "invalid_tolerance",
			WrapKind(op, ErrInvalidTol, &matching.InvalidToleranceError{Tolerance: *tol}))
		return
	}
	req.Tolerance = tol
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, err := matching.ParseMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		req.Mode = &mode
	}

	log, ok := readLog(w, r, h.deps, h.cfg, op)
	if !ok {
		return
	}

	report, err := h.deps.Evaluate(r.Context(), log, req)
	if err != nil {
		switch service.ErrorKind(err) {
		case "invalid_tolerance":
			writeError(w, http.StatusBadRequest, "invalid_tolerance", WrapKind(op, ErrInvalidTol, err))
		default:
			h.cfg.logger.Error(r.Context(), "evaluation failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}
