//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

const consumer = "rotary-sensor"

// CdevLines drives the encoder lines through the Linux GPIO character device.
type CdevLines struct {
	chip   *gpiocdev.Chip
	inputs *gpiocdev.Lines
	output *gpiocdev.Line

	// Owned by the sampling context after binding.
	vals  []int
	lastA logic.Level
	lastB logic.Level

	lineErrors atomic.Uint64
}

// NewCdevLines requests pinA and pinB as inputs and pinOut as an output
// (initially inactive) on the named chip.
func NewCdevLines(chipName string, pinA, pinB, pinOut int, pullUp bool) (*CdevLines, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	bias := gpiocdev.WithPullDown
	if pullUp {
		bias = gpiocdev.WithPullUp
	}

	inputs, err := chip.RequestLines([]int{pinA, pinB}, gpiocdev.AsInput, bias)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input pins %d,%d: %w", pinA, pinB, err)
	}

	output, err := chip.RequestLine(pinOut, gpiocdev.AsOutput(0))
	if err != nil {
		inputs.Close()
		chip.Close()
		return nil, fmt.Errorf("request output pin %d: %w", pinOut, err)
	}

	return &CdevLines{
		chip:   chip,
		inputs: inputs,
		output: output,
		vals:   make([]int, 2),
	}, nil
}

// Read returns the current levels of lines A and B.
func (l *CdevLines) Read() (logic.Level, logic.Level, error) {
	vals := make([]int, 2)
	if err := l.inputs.Values(vals); err != nil {
		return logic.Low, logic.Low, fmt.Errorf("read input pins: %w", err)
	}
	return vals[0] != 0, vals[1] != 0, nil
}

// Levels returns the current levels of lines A and B, or the last good
// levels if the read fails.
func (l *CdevLines) Levels() (logic.Level, logic.Level) {
	if err := l.inputs.Values(l.vals); err != nil {
		l.lineErrors.Add(1)
		return l.lastA, l.lastB
	}
	l.lastA = l.vals[0] != 0
	l.lastB = l.vals[1] != 0
	return l.lastA, l.lastB
}

// Set drives the output line.
func (l *CdevLines) Set(active bool) {
	v := 0
	if active {
		v = 1
	}
	if err := l.output.SetValue(v); err != nil {
		l.lineErrors.Add(1)
	}
}

// LineErrors returns the number of failed line operations absorbed by
// Levels and Set.
func (l *CdevLines) LineErrors() uint64 {
	return l.lineErrors.Load()
}

// Close releases GPIO resources.
// The output is driven inactive and every line is returned to an input so the
// pins are left in a safe state for the next user.
func (l *CdevLines) Close() error {
	var errs []error

	if l.output != nil {
		if err := l.output.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear output pin: %w", err))
		}
		if err := l.output.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output pin: %w", err))
		}
		if err := l.output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output pin: %w", err))
		}
	}
	if l.inputs != nil {
		if err := l.inputs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input pins: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
