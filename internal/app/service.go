// Package service provides the evaluation service used by the HTTP API and
// the CLI: it decodes event logs, runs the windowed matcher, renders the
// visualizations, and records logs and metrics around each call.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rallyeval/internal/adapters/chart"
	"github.com/okian/rallyeval/internal/adapters/eventlog"
	"github.com/okian/rallyeval/internal/adapters/plotting"
	"github.com/okian/rallyeval/internal/domain/matching"
	"github.com/okian/rallyeval/internal/domain/model"
	"github.com/okian/rallyeval/internal/domain/types"
	"github.com/okian/rallyeval/pkg/logger"
	"github.com/okian/rallyeval/pkg/metrics"
	"gonum.org/v1/plot/vg"
)

// Default service configuration constants.
const (
	defaultTolerance  = 5
	defaultPlotSizeIn = 12
	msPerSecond       = 1e3
)

// Report is the outcome of one evaluation.
type Report struct {
	RunID      string             `json:"run_id"`
	Tolerance  int                `json:"tolerance"`
	Mode       string             `json:"mode"`
	Frames     int                `json:"frames"`
	Table      matching.Table     `json:"table"`
	Recall     map[string]float64 `json:"recall"`
	MeanOffset map[string]float64 `json:"mean_abs_offset,omitempty"`
	Outcomes   []types.Outcome    `json:"outcomes"`
}

// Request overrides the service defaults for a single evaluation.
type Request struct {
	Tolerance *int
	Mode      *matching.Mode
}

// Service evaluates event logs.
type Service struct {
	mu sync.RWMutex

	tolerance  int
	mode       matching.Mode
	plotWidth  vg.Length
	plotHeight vg.Length

	decoder *eventlog.Decoder
	metrics *metrics.Manager
	logger  logger.Logger

	evaluations atomic.Int64
	rejected    atomic.Int64
	renders     atomic.Int64
	lastRunID   string
	startedAt   time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTolerance sets the default matching window half-width. Negative
// values are kept so that evaluations fail loudly rather than silently
// falling back.
func WithTolerance(frames int) Option {
	return func(s *Service) {
		s.tolerance = frames
	}
}

// WithMode sets the default pairing mode.
func WithMode(m matching.Mode) Option {
	return func(s *Service) {
		s.mode = m
	}
}

// WithPlotSize sets the rendered image size in inches.
func WithPlotSize(widthIn, heightIn float64) Option {
	return func(s *Service) {
		if widthIn > 0 && heightIn > 0 {
			s.plotWidth = vg.Length(widthIn) * vg.Inch
			s.plotHeight = vg.Length(heightIn) * vg.Inch
		}
	}
}

// WithMetrics sets the metrics manager; defaults to the process-wide one.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{
		tolerance:  defaultTolerance,
		mode:       matching.ModeAny,
		plotWidth:  defaultPlotSizeIn * vg.Inch,
		plotHeight: defaultPlotSizeIn * vg.Inch,
		metrics:    metrics.Default(),
		logger:     logger.Nop(),
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.decoder = eventlog.NewDecoder(eventlog.WithLogger(s.logger.Named("eventlog")))
	return s
}

// Decode reads an event log in the upstream JSON shape.
func (s *Service) Decode(ctx context.Context, r io.Reader) (model.Log, error) {
	log, err := s.decoder.Decode(ctx, r)
	if err != nil {
		s.reject(ctx, err)
		return model.Log{}, err
	}
	return log, nil
}

// DecodeFile reads an event log from path.
func (s *Service) DecodeFile(ctx context.Context, path string) (model.Log, error) {
	log, err := s.decoder.DecodeFile(ctx, path)
	if err != nil {
		s.reject(ctx, err)
		return model.Log{}, err
	}
	return log, nil
}

// Evaluate computes the contingency table and per-event outcomes for log.
func (s *Service) Evaluate(ctx context.Context, log model.Log, req Request) (Report, error) {
	tolerance, mode := s.tolerance, s.mode
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	if req.Mode != nil {
		mode = *req.Mode
	}

	start := time.Now()
	res, err := matching.EvaluateContext(ctx, log, tolerance, matching.WithMode(mode))
	if err != nil {
		s.reject(ctx, err)
		return Report{}, err
	}
	elapsed := time.Since(start)

	report := Report{
		RunID:      uuid.NewString(),
		Tolerance:  res.Tolerance,
		Mode:       res.Mode.String(),
		Frames:     log.Len(),
		Table:      res.Table,
		Recall:     make(map[string]float64, len(model.TrackedTypes())),
		MeanOffset: make(map[string]float64, len(model.TrackedTypes())),
		Outcomes:   make([]types.Outcome, 0, len(res.Matches)),
	}
	for _, et := range model.TrackedTypes() {
		name := et.String()
		report.Recall[name] = res.Table.Recall(et)
		if mean, ok := res.MeanAbsOffset(et); ok {
			report.MeanOffset[name] = mean
		}
		s.metrics.RecordInstances(name, "correct", res.Table.Get(et, matching.Correct))
		s.metrics.RecordInstances(name, "incorrect", res.Table.Get(et, matching.Incorrect))
		if res.Table.Total(et) > 0 {
			s.metrics.UpdateRecall(name, report.Recall[name])
		}
	}
	for _, m := range res.Matches {
		o := types.Outcome{Event: m.Type.String(), Frame: m.Frame, Correct: m.Correct}
		if m.Correct {
			matched := m.MatchedFrame
			o.MatchedFrame = &matched
		}
		report.Outcomes = append(report.Outcomes, o)
	}

	s.metrics.RecordEvaluation(elapsed.Seconds()*msPerSecond, log.Len())
	s.evaluations.Add(1)
	s.mu.Lock()
	s.lastRunID = report.RunID
	s.mu.Unlock()

	s.logger.Info(ctx, "evaluation complete",
		logger.String("run_id", report.RunID),
		logger.Int("frames", report.Frames),
		logger.Int("tolerance", report.Tolerance),
		logger.String("mode", report.Mode),
		logger.Int("hit_correct", res.Table.Get(model.Hit, matching.Correct)),
		logger.Int("hit_incorrect", res.Table.Get(model.Hit, matching.Incorrect)),
		logger.Int("bounce_correct", res.Table.Get(model.Bounce, matching.Correct)),
		logger.Int("bounce_incorrect", res.Table.Get(model.Bounce, matching.Incorrect)),
		logger.Duration("elapsed", elapsed),
	)
	return report, nil
}

// Plot renders the stacked actual/predicted plots of log to w.
func (s *Service) Plot(ctx context.Context, w io.Writer, log model.Log, format plotting.Format) error {
	err := plotting.Render(w, log,
		plotting.WithFormat(format),
		plotting.WithSize(s.plotWidth, s.plotHeight),
	)
	if err != nil {
		s.logger.Error(ctx, "plot render failed", logger.String("format", string(format)), logger.Error(err))
		return fmt.Errorf("render plot: %w", err)
	}
	s.rendered(ctx, "plot_"+string(format), log)
	return nil
}

// Chart renders the interactive HTML chart page of log to w.
func (s *Service) Chart(ctx context.Context, w io.Writer, log model.Log) error {
	if err := chart.Render(w, log); err != nil {
		s.logger.Error(ctx, "chart render failed", logger.Error(err))
		return err
	}
	s.rendered(ctx, "chart", log)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"evaluations":   s.evaluations.Load(),
		"rejected":      s.rejected.Load(),
		"renders":       s.renders.Load(),
		"lastRunID":     s.lastRunID,
		"tolerance":     s.tolerance,
		"mode":          s.mode.String(),
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	}
}

func (s *Service) rendered(ctx context.Context, kind string, log model.Log) {
	s.renders.Add(1)
	s.metrics.RecordRender(kind)
	s.logger.Debug(ctx, "rendered visualization", logger.String("kind", kind), logger.Int("frames", log.Len()))
}

// reject counts and logs a validation failure.
func (s *Service) reject(ctx context.Context, err error) {
	kind := ErrorKind(err)
	s.rejected.Add(1)
	s.metrics.RecordEvaluationError(kind)
	s.logger.Warn(ctx, "evaluation rejected", logger.String("kind", kind), logger.Error(err))
}

// ErrorKind classifies err for metrics and API error codes.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, matching.ErrInvalidTolerance):
		return "invalid_tolerance"
	case errors.Is(err, model.ErrMalformedLog):
		return "malformed_log"
	default:
		return "internal"
	}
}
