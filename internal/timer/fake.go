package timer

// FakePlatform records the calls a Source makes and lets tests fire ticks
// synchronously.
type FakePlatform struct {
	// Calls lists the operations in the order they were invoked.
	Calls []string

	// Config, Counter and Alarm hold the last programmed values.
	Config  Config
	Counter uint64
	Alarm   uint64

	// Handler is the bound tick handler, if any.
	Handler TickHandler

	// InterruptEnabled and Started track the corresponding calls.
	InterruptEnabled bool
	Started          bool

	// Per-operation errors returned instead of succeeding.
	InitError       error
	SetCounterError error
	SetAlarmError   error
	EnableError     error
	BindError       error
	StartError      error
}

// NewFakePlatform creates a FakePlatform for testing.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{}
}

// Init records cfg.
func (f *FakePlatform) Init(cfg Config) error {
	f.Calls = append(f.Calls, "init")
	if f.InitError != nil {
		return f.InitError
	}
	f.Config = cfg
	return nil
}

// SetCounter records value.
func (f *FakePlatform) SetCounter(value uint64) error {
	f.Calls = append(f.Calls, "set counter")
	if f.SetCounterError != nil {
		return f.SetCounterError
	}
	f.Counter = value
	return nil
}

// SetAlarm records value.
func (f *FakePlatform) SetAlarm(value uint64) error {
	f.Calls = append(f.Calls, "set alarm")
	if f.SetAlarmError != nil {
		return f.SetAlarmError
	}
	f.Alarm = value
	return nil
}

// EnableInterrupt marks interrupts enabled.
func (f *FakePlatform) EnableInterrupt() error {
	f.Calls = append(f.Calls, "enable interrupt")
	if f.EnableError != nil {
		return f.EnableError
	}
	f.InterruptEnabled = true
	return nil
}

// BindHandler records h. Like a real vector table it holds one handler.
func (f *FakePlatform) BindHandler(h TickHandler) error {
	f.Calls = append(f.Calls, "bind handler")
	if f.BindError != nil {
		return f.BindError
	}
	if !usable(h) {
		return ErrNilHandler
	}
	if f.Handler != nil {
		return ErrDoubleBind
	}
	f.Handler = h
	return nil
}

// Start marks the platform started.
func (f *FakePlatform) Start() error {
	f.Calls = append(f.Calls, "start")
	if f.StartError != nil {
		return f.StartError
	}
	f.Started = true
	return nil
}

// Fire delivers n ticks to the bound handler if the platform is started with
// interrupts enabled, and returns how many were acknowledged.
func (f *FakePlatform) Fire(n int) int {
	if !f.Started || !f.InterruptEnabled || f.Handler == nil {
		return 0
	}
	acked := 0
	for i := 0; i < n; i++ {
		if f.Handler.OnTick() {
			acked++
		}
	}
	return acked
}
