package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/okian/rallyeval/internal/adapters/plotting"
	"github.com/okian/rallyeval/pkg/logger"
)

// RenderHandler serves the static plot and the interactive chart.
type RenderHandler struct {
	deps Dependencies
	cfg  handlerConfig
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(deps Dependencies, cfg handlerConfig) *RenderHandler {
	return &RenderHandler{deps: deps, cfg: cfg}
}

// HandlePlot handles POST /plot?format=png|svg.
func (h *RenderHandler) HandlePlot(w http.ResponseWriter, r *http.Request) {
	const op = "api.plot"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	format, err := plotting.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	log, ok := readLog(w, r, h.deps, h.cfg, op)
	if !ok {
		return
	}

	// Buffer so a failed render still gets a JSON error response.
	var buf bytes.Buffer
	if err := h.deps.Plot(r.Context(), &buf, log, format); err != nil {
		h.fail(w, r, op, err)
		return
	}
	h.write(w, format.ContentType(), buf.Bytes())
}

// HandleChart handles POST /chart.
func (h *RenderHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart"
	log, ok := readLog(w, r, h.deps, h.cfg, op)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.deps.Chart(r.Context(), &buf, log); err != nil {
		h.fail(w, r, op, err)
		return
	}
	h.write(w, "text/html; charset=utf-8", buf.Bytes())
}

func (h *RenderHandler) write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *RenderHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, plotting.ErrUnsupportedFormat) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.cfg.logger.Error(r.Context(), "render failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", NewKind(op, ErrRender))
}
