package timer

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a Source.
type State uint8

const (
	// StateUninitialized indicates nothing has been programmed yet.
	StateUninitialized State = iota

	// StateConfigured indicates init, counter reset and alarm succeeded.
	StateConfigured

	// StateArmed indicates the tick interrupt is enabled.
	StateArmed

	// StateRunning indicates the counter is running and ticks are delivered.
	StateRunning
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConfigured:
		return "CONFIGURED"
	case StateArmed:
		return "ARMED"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Source brings a Platform up in order and binds the tick handler to it.
// There is no path back to StateUninitialized; tearing the platform down is
// the platform owner's business.
type Source struct {
	mu sync.Mutex

	platform Platform
	cfg      Config
	state    State
	bound    bool
}

// NewSource creates a Source that will program platform with cfg.
func NewSource(platform Platform, cfg Config) *Source {
	return &Source{
		platform: platform,
		cfg:      cfg,
	}
}

// Config returns the configuration the source programs.
func (s *Source) Config() Config {
	return s.cfg
}

// State returns the current lifecycle state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bound reports whether a handler has been bound.
func (s *Source) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Configure initialises the platform, loads the counter with InitialCount and
// sets the alarm. Any platform failure is returned as a *ConfigurationError and leaves
// the source uninitialized.
func (s *Source) Configure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return fmt.Errorf("configure in state %s: %w", s.state, ErrInvalidState)
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.platform.Init(s.cfg); err != nil {
		return &ConfigurationError{Op: "init", Err: err}
	}
	if err := s.platform.SetCounter(s.cfg.InitialCount); err != nil {
		return &ConfigurationError{Op: "set counter", Err: err}
	}
	if err := s.platform.SetAlarm(s.cfg.AlarmTicks); err != nil {
		return &ConfigurationError{Op: "set alarm", Err: err}
	}

	s.state = StateConfigured
	return nil
}

// Arm enables tick interrupt delivery.
func (s *Source) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfigured {
		return fmt.Errorf("arm in state %s: %w", s.state, ErrInvalidState)
	}
	if err := s.platform.EnableInterrupt(); err != nil {
		return &ConfigurationError{Op: "enable interrupt", Err: err}
	}

	s.state = StateArmed
	return nil
}

// Bind registers h as the one tick handler for this source. A second call
// fails with ErrDoubleBind whatever the first handler was. Binding is allowed
// once the source is configured and before it runs.
func (s *Source) Bind(h TickHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !usable(h) {
		return ErrNilHandler
	}
	if s.bound {
		return ErrDoubleBind
	}
	if s.state != StateConfigured && s.state != StateArmed {
		return fmt.Errorf("bind in state %s: %w", s.state, ErrInvalidState)
	}
	if err := s.platform.BindHandler(h); err != nil {
		return &ConfigurationError{Op: "bind handler", Err: err}
	}

	s.bound = true
	return nil
}

// Start starts the counter. The source must be armed with a handler bound.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateArmed {
		return fmt.Errorf("start in state %s: %w", s.state, ErrInvalidState)
	}
	if !s.bound {
		return fmt.Errorf("start without handler: %w", ErrInvalidState)
	}
	if err := s.platform.Start(); err != nil {
		return &ConfigurationError{Op: "start", Err: err}
	}

	s.state = StateRunning
	return nil
}

// Setup runs Configure, Arm, Bind and Start in order, stopping at the first
// failure.
func (s *Source) Setup(h TickHandler) error {
	if err := s.Configure(); err != nil {
		return err
	}
	if err := s.Arm(); err != nil {
		return err
	}
	if err := s.Bind(h); err != nil {
		return err
	}
	return s.Start()
}
