package timer

import (
	"errors"
	"fmt"
)

// Timer errors.
var (
	ErrInvalidConfig = errors.New("invalid timer config")
	ErrDoubleBind    = errors.New("timer already has a handler bound")
	ErrInvalidState  = errors.New("timer operation not valid in current state")
	ErrNilHandler    = errors.New("timer handler is nil")
)

// ConfigurationError reports that the platform rejected one of the steps
// needed to bring the timer up. The process should not go on to arm or start
// a timer after one of these.
type ConfigurationError struct {
	Op  string // "init", "set counter", "set alarm", "enable interrupt", "bind handler", "start"
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("timer %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StatusError is a non-success status code returned by a platform driver.
type StatusError int

func (s StatusError) Error() string {
	return fmt.Sprintf("platform returned status %d", int(s))
}
