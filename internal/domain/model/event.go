// Package model contains the frame-indexed event log evaluated by the
// matcher and consumed by the visualizers.
package model

import (
	"math"
	"sort"
	"strconv"
)

// Label is an event label attached to a frame, either annotated (ground
// truth) or predicted.
type Label string

// Recognized labels.
const (
	LabelNone   Label = "none"
	LabelHit    Label = "hit"
	LabelBounce Label = "bounce"
)

// ParseLabel returns the label for s. Matching is exact: no case folding
// or trimming is applied.
func ParseLabel(s string) (Label, error) {
	switch l := Label(s); l {
	case LabelNone, LabelHit, LabelBounce:
		return l, nil
	}
	return "", malformed("", "label", "unrecognized label "+strconv.Quote(s))
}

// Valid reports whether l belongs to the recognized label set.
func (l Label) Valid() bool {
	switch l {
	case LabelNone, LabelHit, LabelBounce:
		return true
	}
	return false
}

// EventType is an event kind tracked by the evaluation.
type EventType int

// Tracked event types, in contingency table row order.
const (
	Hit EventType = iota
	Bounce
)

// TrackedTypes returns the tracked event types in row order.
func TrackedTypes() []EventType { return []EventType{Hit, Bounce} }

// Label maps the event type to the frame label it matches.
func (t EventType) Label() Label {
	if t == Bounce {
		return LabelBounce
	}
	return LabelHit
}

func (t EventType) String() string {
	if t == Bounce {
		return "Bounce"
	}
	return "Hit"
}

// Frame is one timestep of the tracked sequence.
type Frame struct {
	Index     int     // unique, non-negative
	Y         float64 // ball position; meaningful only when HasY
	HasY      bool
	Actual    Label
	Predicted Label
}

// Log is an immutable event log sorted ascending by frame index.
type Log struct {
	frames []Frame
}

// NewLog validates frames and returns a sorted log. The input slice is
// not retained.
func NewLog(frames []Frame) (Log, error) {
	out := make([]Frame, len(frames))
	copy(out, frames)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	for i, f := range out {
		key := strconv.Itoa(f.Index)
		if f.Index < 0 {
			return Log{}, malformed(key, "frame", "negative frame index")
		}
		if i > 0 && out[i-1].Index == f.Index {
			return Log{}, malformed(key, "frame", "duplicate frame index")
		}
		if !f.Actual.Valid() {
			return Log{}, malformed(key, "action", "unrecognized label "+strconv.Quote(string(f.Actual)))
		}
		if !f.Predicted.Valid() {
			return Log{}, malformed(key, "pred_action", "unrecognized label "+strconv.Quote(string(f.Predicted)))
		}
		if f.HasY && (math.IsNaN(f.Y) || math.IsInf(f.Y, 0)) {
			out[i].HasY = false
		}
		if !out[i].HasY {
			out[i].Y = 0
		}
	}
	return Log{frames: out}, nil
}

// Len returns the number of frames.
func (l Log) Len() int { return len(l.frames) }

// Frames returns a copy of the frames in ascending order.
func (l Log) Frames() []Frame {
	out := make([]Frame, len(l.frames))
	copy(out, l.frames)
	return out
}

// IndicesWhere returns, in ascending order, the indices of frames for
// which keep reports true.
func (l Log) IndicesWhere(keep func(Frame) bool) []int {
	var out []int
	for _, f := range l.frames {
		if keep(f) {
			out = append(out, f.Index)
		}
	}
	return out
}

// ActualFrames returns the frames annotated with t.
func (l Log) ActualFrames(t EventType) []int {
	want := t.Label()
	return l.IndicesWhere(func(f Frame) bool { return f.Actual == want })
}

// PredictedFrames returns the frames predicted as t.
func (l Log) PredictedFrames(t EventType) []int {
	want := t.Label()
	return l.IndicesWhere(func(f Frame) bool { return f.Predicted == want })
}

// Positions returns the frames with a defined position as parallel
// x (frame) and y slices.
func (l Log) Positions() (xs, ys []float64) {
	for _, f := range l.frames {
		if f.HasY {
			xs = append(xs, float64(f.Index))
			ys = append(ys, f.Y)
		}
	}
	return xs, ys
}

// Span returns the first and last frame index; ok is false for an empty log.
func (l Log) Span() (first, last int, ok bool) {
	if len(l.frames) == 0 {
		return 0, 0, false
	}
	return l.frames[0].Index, l.frames[len(l.frames)-1].Index, true
}
