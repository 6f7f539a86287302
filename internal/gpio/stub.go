//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// CdevLines is not available on non-Linux platforms.
type CdevLines struct{}

// NewCdevLines returns an error on non-Linux platforms.
func NewCdevLines(chipName string, pinA, pinB, pinOut int, pullUp bool) (*CdevLines, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (l *CdevLines) Read() (logic.Level, logic.Level, error) {
	return logic.Low, logic.Low, errors.New("gpio: not supported")
}

// Levels always reports both lines low.
func (l *CdevLines) Levels() (logic.Level, logic.Level) {
	return logic.Low, logic.Low
}

// Set does nothing on non-Linux platforms.
func (l *CdevLines) Set(active bool) {}

// LineErrors always returns 0.
func (l *CdevLines) LineErrors() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (l *CdevLines) Close() error {
	return nil
}
