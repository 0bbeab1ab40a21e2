// Package matching decides, for every annotated hit and bounce, whether a
// same-type prediction exists within a tolerance window of frames, and
// tallies the decisions into a contingency table.
package matching

import (
	"context"
	"math"
	"sort"

	"github.com/okian/rallyeval/internal/domain/model"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Match is the decision for one ground-truth event.
type Match struct {
	Type    model.EventType
	Frame   int
	Correct bool
	// MatchedFrame is the nearest same-type prediction in the window
	// (ties go to the earlier frame). Valid only when Correct.
	MatchedFrame int
}

// Result carries the table together with the per-event decisions.
type Result struct {
	Table     Table
	Tolerance int
	Mode      Mode
	// Matches are ordered by event type (table row order), then frame.
	Matches []Match
}

// MeanAbsOffset returns the mean |matched - annotated| frame distance of
// the correct events of type et. ok is false when none matched.
func (r Result) MeanAbsOffset(et model.EventType) (mean float64, ok bool) {
	var offsets []float64
	for _, m := range r.Matches {
		if m.Type == et && m.Correct {
			offsets = append(offsets, math.Abs(float64(m.MatchedFrame-m.Frame)))
		}
	}
	if len(offsets) == 0 {
		return 0, false
	}
	return stat.Mean(offsets, nil), true
}

// Compute returns the contingency table for log at the given tolerance.
// A negative tolerance fails with *InvalidToleranceError.
func Compute(log model.Log, tolerance int, opts ...Option) (Table, error) {
	res, err := Evaluate(log, tolerance, opts...)
	if err != nil {
		return Table{}, err
	}
	return res.Table, nil
}

// Evaluate classifies every annotated hit and bounce of log as correct or
// incorrect. Event types are tallied independently and merged once.
func Evaluate(log model.Log, tolerance int, opts ...Option) (Result, error) {
	return EvaluateContext(context.Background(), log, tolerance, opts...)
}

// EvaluateContext is Evaluate with cancellation. The tolerance is checked
// before ctx; a canceled ctx yields ctx.Err() and no partial result.
func EvaluateContext(ctx context.Context, log model.Log, tolerance int, opts ...Option) (Result, error) {
	if tolerance < 0 {
		return Result{}, &InvalidToleranceError{Tolerance: tolerance}
	}
	s := settings{mode: ModeAny}
	for _, opt := range opts {
		opt(&s)
	}

	tracked := model.TrackedTypes()
	partial := make([][]Match, len(tracked))

	g, gctx := errgroup.WithContext(ctx)
	for i, et := range tracked {
		g.Go(func() error {
			matches, err := matchType(gctx, et, log.ActualFrames(et), log.PredictedFrames(et), tolerance, s.mode)
			if err != nil {
				return err
			}
			partial[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Tolerance: tolerance, Mode: s.mode}
	for i, et := range tracked {
		for _, m := range partial[i] {
			if m.Correct {
				res.Table.add(et, Correct, 1)
			} else {
				res.Table.add(et, Incorrect, 1)
			}
		}
		res.Matches = append(res.Matches, partial[i]...)
	}
	return res, nil
}

// matchType decides each annotated frame of one event type. Both slices
// are ascending.
func matchType(ctx context.Context, et model.EventType, actual, predicted []int, tol int, mode Mode) ([]Match, error) {
	out := make([]Match, 0, len(actual))
	var claimed []bool
	if mode == ModeOneToOne {
		claimed = make([]bool, len(predicted))
	}

	for _, f := range actual {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := Match{Type: et, Frame: f}
		idx := nearest(f, predicted, tol, claimed)
		if idx >= 0 {
			m.Correct = true
			m.MatchedFrame = predicted[idx]
			if claimed != nil {
				claimed[idx] = true
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// nearest returns the index of the prediction closest to f within
// [f-tol, f+tol], skipping claimed ones when claimed is non-nil, or -1.
// Differences are taken between non-negative frame indices so the window
// bounds never overflow.
func nearest(f int, predicted []int, tol int, claimed []bool) int {
	k := sort.SearchInts(predicted, f)

	right := -1
	for i := k; i < len(predicted) && predicted[i]-f <= tol; i++ {
		if claimed == nil || !claimed[i] {
			right = i
			break
		}
	}
	left := -1
	for i := k - 1; i >= 0 && f-predicted[i] <= tol; i-- {
		if claimed == nil || !claimed[i] {
			left = i
			break
		}
	}

	switch {
	case left < 0:
		return right
	case right < 0:
		return left
	case f-predicted[left] <= predicted[right]-f:
		return left
	default:
		return right
	}
}
