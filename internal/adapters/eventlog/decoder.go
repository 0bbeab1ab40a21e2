// Package eventlog decodes the upstream per-frame JSON mapping into a
// validated model.Log.
//
// The accepted shape is an object keyed by frame index:
//
//	{"12": {"y": 431.5, "action": "hit", "pred_action": "none"}, ...}
package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/rallyeval/internal/domain/model"
	"github.com/okian/rallyeval/pkg/logger"
)

type rawRecord struct {
	Y          json.RawMessage `json:"y"`
	Action     json.RawMessage `json:"action"`
	PredAction json.RawMessage `json:"pred_action"`
}

// Option applies a configuration option to the Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// Decoder turns upstream JSON into event logs.
type Decoder struct {
	logger logger.Logger
}

// NewDecoder creates a decoder with the given options.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{logger: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads one JSON mapping from r. Every validation failure is a
// *model.MalformedLogError; nothing is returned on error.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (model.Log, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Log{}, fmt.Errorf("read event log: %w", err)
	}
	raw, err := readRecords(data)
	if err != nil {
		return model.Log{}, err
	}

	// Sorted keys keep the reported error stable across runs.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	frames := make([]model.Frame, 0, len(raw))
	seen := make(map[int]string, len(raw))
	undefinedY := 0
	for _, key := range keys {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return model.Log{}, &model.MalformedLogError{Frame: key, Field: "frame", Reason: "not an integer"}
		}
		if idx < 0 {
			return model.Log{}, &model.MalformedLogError{Frame: key, Field: "frame", Reason: "negative frame index"}
		}
		if prev, dup := seen[idx]; dup {
			return model.Log{}, &model.MalformedLogError{Frame: key, Field: "frame", Reason: fmt.Sprintf("duplicates frame %q", prev)}
		}
		seen[idx] = key

		rec := raw[key]
		actual, err := parseLabel(key, "action", rec.Action)
		if err != nil {
			return model.Log{}, err
		}
		predicted, err := parseLabel(key, "pred_action", rec.PredAction)
		if err != nil {
			return model.Log{}, err
		}
		y, hasY := parsePosition(rec.Y)
		if !hasY {
			undefinedY++
		}
		frames = append(frames, model.Frame{Index: idx, Y: y, HasY: hasY, Actual: actual, Predicted: predicted})
	}

	log, err := model.NewLog(frames)
	if err != nil {
		return model.Log{}, err
	}
	d.logger.Debug(ctx, "decoded event log",
		logger.Int("frames", log.Len()),
		logger.Int("undefined_y", undefinedY),
	)
	return log, nil
}

// readRecords walks the top-level object token by token so that a key
// repeated verbatim is reported instead of collapsed.
func readRecords(data []byte) (map[string]rawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &model.MalformedLogError{Field: "log", Reason: err.Error()}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &model.MalformedLogError{Field: "log", Reason: "expected a JSON object keyed by frame"}
	}

	raw := make(map[string]rawRecord)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &model.MalformedLogError{Field: "log", Reason: err.Error()}
		}
		key, _ := tok.(string)
		if _, dup := raw[key]; dup {
			return nil, &model.MalformedLogError{Frame: key, Field: "frame", Reason: "repeated key"}
		}
		var rec rawRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, &model.MalformedLogError{Frame: key, Field: "log", Reason: err.Error()}
		}
		raw[key] = rec
	}
	if _, err := dec.Token(); err != nil {
		return nil, &model.MalformedLogError{Field: "log", Reason: err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &model.MalformedLogError{Field: "log", Reason: "trailing data after the frame mapping"}
	}
	return raw, nil
}

// DecodeFile decodes the mapping stored at path.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (model.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Log{}, fmt.Errorf("open event log: %w", err)
	}
	defer func() { _ = f.Close() }()
	return d.Decode(ctx, f)
}

func parseLabel(frame, field string, raw json.RawMessage) (model.Label, error) {
	var s *string
	if len(raw) == 0 {
		return "", &model.MalformedLogError{Frame: frame, Field: field, Reason: "missing label"}
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &model.MalformedLogError{Frame: frame, Field: field, Reason: "label must be a string"}
	}
	if s == nil {
		return "", &model.MalformedLogError{Frame: frame, Field: field, Reason: "missing label"}
	}
	l := model.Label(*s)
	if !l.Valid() {
		return "", &model.MalformedLogError{Frame: frame, Field: field, Reason: "unrecognized label " + strconv.Quote(*s)}
	}
	return l, nil
}

// parsePosition coerces y the lenient way: numbers and numeric strings
// are defined, anything else (null, missing, text, bools) is undefined.
func parsePosition(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	// NaN and Inf are dropped by model.NewLog.
	return v, true
}
