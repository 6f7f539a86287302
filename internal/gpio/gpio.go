// Package gpio provides the encoder input lines and the indicator output line
// with hardware abstraction.
// The default implementation uses the Linux GPIO character device; a periph.io
// backend is available for hosts where that is preferred.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// InputPair samples the two encoder lines.
type InputPair interface {
	// Levels returns the current levels of lines A and B. It never fails and
	// never blocks: a backend that cannot read the lines returns the last
	// good levels and counts the failure.
	Levels() (a, b logic.Level)
}

// OutputLine drives the indicator line.
type OutputLine interface {
	// Set drives the line active (true) or inactive (false). Failures are
	// counted, not returned.
	Set(active bool)
}

// Lines is the full set of lines owned by the sampling context.
type Lines interface {
	InputPair
	OutputLine

	// Read returns the current levels, reporting any read error.
	// Intended for one-off reads from the main context before sampling starts.
	Read() (a, b logic.Level, err error)

	// LineErrors returns the number of absorbed line failures.
	LineErrors() uint64

	// Close releases GPIO resources.
	Close() error
}

// Backend names.
const (
	BackendCdev   = "gpiocdev"
	BackendPeriph = "periph"
)

// Pin defaults (BCM numbering).
const (
	DefaultChip   = "gpiochip0"
	DefaultPinA   = 17
	DefaultPinB   = 27
	DefaultPinOut = 22
)

// Options selects the backend and lines to open.
type Options struct {
	Backend string
	Chip    string // gpiocdev only
	PinA    int
	PinB    int
	PinOut  int
	PullUp  bool // bias the inputs high; most bare encoders switch to ground
}

// Open opens the lines described by opts.
func Open(opts Options) (Lines, error) {
	switch opts.Backend {
	case "", BackendCdev:
		chip := opts.Chip
		if chip == "" {
			chip = DefaultChip
		}
		l, err := NewCdevLines(chip, opts.PinA, opts.PinB, opts.PinOut, opts.PullUp)
		if err != nil {
			return nil, err
		}
		return l, nil
	case BackendPeriph:
		l, err := NewPeriphLines(opts.PinA, opts.PinB, opts.PinOut, opts.PullUp)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", opts.Backend)
	}
}
