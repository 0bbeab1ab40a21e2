package matching

import "fmt"

// Mode selects how predicted events are paired with ground-truth events.
type Mode int

const (
	// ModeAny counts a ground-truth event as correct when any same-type
	// prediction lies in its window. One prediction may satisfy several
	// ground-truth events.
	ModeAny Mode = iota
	// ModeOneToOne lets each prediction satisfy at most one ground-truth
	// event. Ground-truth events claim, in frame order, the nearest
	// unclaimed prediction in their window.
	ModeOneToOne
)

// ParseMode parses "any" or "one_to_one".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "any":
		return ModeAny, nil
	case "one_to_one":
		return ModeOneToOne, nil
	}
	return ModeAny, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) String() string {
	if m == ModeOneToOne {
		return "one_to_one"
	}
	return "any"
}

// Option applies a configuration option to an evaluation.
type Option func(*settings)

type settings struct {
	mode Mode
}

// WithMode selects the pairing mode. The default is ModeAny.
func WithMode(m Mode) Option {
	return func(s *settings) {
		if m == ModeAny || m == ModeOneToOne {
			s.mode = m
		}
	}
}
