package gpio

import (
	"fmt"
	"sync/atomic"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// PeriphLines drives the encoder lines through periph.io. Pins are addressed
// by their BCM numbers ("GPIO17").
type PeriphLines struct {
	a   pgpio.PinIO
	b   pgpio.PinIO
	out pgpio.PinIO

	lineErrors atomic.Uint64
}

// NewPeriphLines initialises the periph host drivers and configures the pins.
func NewPeriphLines(pinA, pinB, pinOut int, pullUp bool) (*PeriphLines, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	pull := pgpio.PullDown
	if pullUp {
		pull = pgpio.PullUp
	}

	return openPeriph(periphPin, pinA, pinB, pinOut, pull)
}

func periphPin(n int) pgpio.PinIO {
	return gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
}

// openPeriph configures the pins found by lookup. If a later pin fails, the
// ones already configured are halted.
func openPeriph(lookup func(int) pgpio.PinIO, pinA, pinB, pinOut int, pull pgpio.Pull) (l *PeriphLines, err error) {
	var configured []pgpio.PinIO
	defer func() {
		if err == nil {
			return
		}
		for _, p := range configured {
			p.Halt()
		}
	}()

	a, err := periphInput(lookup, pinA, pull)
	if err != nil {
		return nil, err
	}
	configured = append(configured, a)

	b, err := periphInput(lookup, pinB, pull)
	if err != nil {
		return nil, err
	}
	configured = append(configured, b)

	out := lookup(pinOut)
	if out == nil {
		return nil, fmt.Errorf("output pin GPIO%d not found", pinOut)
	}
	if err := out.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("configure output pin %d: %w", pinOut, err)
	}

	return &PeriphLines{a: a, b: b, out: out}, nil
}

func periphInput(lookup func(int) pgpio.PinIO, pin int, pull pgpio.Pull) (pgpio.PinIO, error) {
	p := lookup(pin)
	if p == nil {
		return nil, fmt.Errorf("input pin GPIO%d not found", pin)
	}
	if err := p.In(pull, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure input pin %d: %w", pin, err)
	}
	return p, nil
}

// Read returns the current levels of lines A and B.
func (l *PeriphLines) Read() (logic.Level, logic.Level, error) {
	a, b := l.Levels()
	return a, b, nil
}

// Levels returns the current levels of lines A and B. periph reads are
// infallible at this layer.
func (l *PeriphLines) Levels() (logic.Level, logic.Level) {
	return logic.Level(l.a.Read() == pgpio.High), logic.Level(l.b.Read() == pgpio.High)
}

// Set drives the output line.
func (l *PeriphLines) Set(active bool) {
	level := pgpio.Low
	if active {
		level = pgpio.High
	}
	if err := l.out.Out(level); err != nil {
		l.lineErrors.Add(1)
	}
}

// LineErrors returns the number of failed output writes.
func (l *PeriphLines) LineErrors() uint64 {
	return l.lineErrors.Load()
}

// Close drives the output inactive and halts the pins.
func (l *PeriphLines) Close() error {
	var errs []error
	if err := l.out.Out(pgpio.Low); err != nil {
		errs = append(errs, fmt.Errorf("clear output pin: %w", err))
	}
	for _, p := range []pgpio.PinIO{l.a, l.b, l.out} {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
