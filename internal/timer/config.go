// Package timer configures the periodic tick source that drives sampling.
//
// A Source walks a Platform through Uninitialized, Configured, Armed and
// Running, binding exactly one TickHandler on the way. The Platform is the
// only hardware-facing surface; TickerPlatform implements it with a locked OS
// thread for Linux hosts and FakePlatform implements it for tests.
package timer

import (
	"fmt"
	"math"
	"time"
)

// Default clock settings: an 80 MHz base clock divided by 20 gives a
// 4 MHz counter, and an alarm every 80 000 counts fires 50 times a second.
const (
	DefaultBaseClockHz = 80_000_000
	DefaultDivider     = 20
	DefaultSampleRate  = 50.0
)

// CountDirection is the direction the platform counter runs in.
type CountDirection uint8

const (
	CountUp CountDirection = iota
	CountDown
)

// String returns "UP" or "DOWN".
func (d CountDirection) String() string {
	switch d {
	case CountUp:
		return "UP"
	case CountDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// TriggerMode is how the platform raises the tick interrupt.
type TriggerMode uint8

const (
	TriggerLevel TriggerMode = iota
	TriggerEdge
)

// String returns "LEVEL" or "EDGE".
func (m TriggerMode) String() string {
	switch m {
	case TriggerLevel:
		return "LEVEL"
	case TriggerEdge:
		return "EDGE"
	default:
		return "UNKNOWN"
	}
}

// Config is the immutable description of a periodic timer.
type Config struct {
	BaseClockHz  uint64
	Divider      uint64
	AlarmTicks   uint64
	InitialCount uint64 // counter value loaded before start
	AutoReload   bool
	Direction    CountDirection
	Trigger      TriggerMode
}

// DefaultConfig returns the default configuration: 80 MHz / 20 / 80 000,
// auto-reloading, counting up, level triggered. Its frequency is 50 Hz.
func DefaultConfig() Config {
	return Config{
		BaseClockHz: DefaultBaseClockHz,
		Divider:     DefaultDivider,
		AlarmTicks:  80_000,
		AutoReload:  true,
		Direction:   CountUp,
		Trigger:     TriggerLevel,
	}
}

// Validate reports whether c can be programmed.
func (c Config) Validate() error {
	if c.BaseClockHz == 0 {
		return fmt.Errorf("%w: base clock is zero", ErrInvalidConfig)
	}
	if c.Divider == 0 {
		return fmt.Errorf("%w: divider is zero", ErrInvalidConfig)
	}
	if c.Divider > c.BaseClockHz {
		return fmt.Errorf("%w: divider %d exceeds base clock %d", ErrInvalidConfig, c.Divider, c.BaseClockHz)
	}
	if c.AlarmTicks == 0 {
		return fmt.Errorf("%w: alarm ticks is zero", ErrInvalidConfig)
	}
	if c.Direction > CountDown {
		return fmt.Errorf("%w: unknown count direction %d", ErrInvalidConfig, c.Direction)
	}
	if c.Trigger > TriggerEdge {
		return fmt.Errorf("%w: unknown trigger mode %d", ErrInvalidConfig, c.Trigger)
	}
	return nil
}

// Frequency returns the tick frequency in Hz of c.
func (c Config) Frequency() float64 {
	return Frequency(c.BaseClockHz, c.Divider, c.AlarmTicks)
}

// Period returns the time between ticks of c.
func (c Config) Period() time.Duration {
	return TicksToDuration(c.BaseClockHz, c.Divider, c.AlarmTicks)
}

// Frequency returns baseClockHz / divider / alarmTicks. It returns 0 if
// divider or alarmTicks is zero.
func Frequency(baseClockHz, divider, alarmTicks uint64) float64 {
	if divider == 0 || alarmTicks == 0 {
		return 0
	}
	return float64(baseClockHz) / float64(divider) / float64(alarmTicks)
}

// TicksToDuration returns how long the divided counter takes to advance by
// ticks. It returns 0 if baseClockHz is zero.
func TicksToDuration(baseClockHz, divider, ticks uint64) time.Duration {
	if baseClockHz == 0 {
		return 0
	}
	ns := float64(ticks) * float64(divider) * float64(time.Second) / float64(baseClockHz)
	return time.Duration(math.Round(ns))
}

// AlarmTicksFor returns the alarm tick count that makes a counter running at
// baseClockHz / divider fire sampleHz times per second, rounded to the
// nearest tick.
func AlarmTicksFor(baseClockHz, divider uint64, sampleHz float64) (uint64, error) {
	if baseClockHz == 0 || divider == 0 {
		return 0, fmt.Errorf("%w: base clock and divider must be non-zero", ErrInvalidConfig)
	}
	if sampleHz <= 0 || math.IsNaN(sampleHz) || math.IsInf(sampleHz, 0) {
		return 0, fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, sampleHz)
	}
	ticks := math.Round(float64(baseClockHz) / float64(divider) / sampleHz)
	if ticks < 1 {
		return 0, fmt.Errorf("%w: sample rate %v Hz exceeds counter rate %d Hz",
			ErrInvalidConfig, sampleHz, baseClockHz/divider)
	}
	return uint64(ticks), nil
}
