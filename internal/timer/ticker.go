package timer

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// TickerPlatform is a software timer for Linux hosts. Ticks are delivered on
// a single goroutine locked to its own OS thread, so the bound handler never
// runs concurrently with itself.
//
// The tick period follows BaseClockHz, Divider and AlarmTicks. Direction and
// Trigger are validated and recorded but do not change the timing. Ticks stop
// when the context passed to NewTickerPlatform is cancelled.
type TickerPlatform struct {
	ctx context.Context

	mu          sync.Mutex
	cfg         Config
	initialized bool
	counter     uint64
	alarm       uint64
	interrupts  bool
	handler     TickHandler
	started     bool

	fired atomic.Uint64
	done  chan struct{}
}

// NewTickerPlatform creates a platform whose tick goroutine runs until ctx is
// done.
func NewTickerPlatform(ctx context.Context) *TickerPlatform {
	return &TickerPlatform{
		ctx:  ctx,
		done: make(chan struct{}),
	}
}

var (
	errNotInitialized = errors.New("not initialized")
	errAlreadyStarted = errors.New("already started")
)

// Init records cfg after validating it.
func (p *TickerPlatform) Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errAlreadyStarted
	}
	p.cfg = cfg
	p.initialized = true
	return nil
}

// SetCounter sets the counter value the first alarm is measured from.
func (p *TickerPlatform) SetCounter(value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return errNotInitialized
	}
	if p.started {
		return errAlreadyStarted
	}
	p.counter = value
	return nil
}

// SetAlarm sets the alarm value.
func (p *TickerPlatform) SetAlarm(value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return errNotInitialized
	}
	if p.started {
		return errAlreadyStarted
	}
	if value == 0 {
		return errors.New("alarm value is zero")
	}
	p.alarm = value
	return nil
}

// EnableInterrupt enables delivery of ticks to the bound handler.
func (p *TickerPlatform) EnableInterrupt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return errNotInitialized
	}
	p.interrupts = true
	return nil
}

// BindHandler installs h for the lifetime of the platform.
func (p *TickerPlatform) BindHandler(h TickHandler) error {
	if !usable(h) {
		return ErrNilHandler
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		return ErrDoubleBind
	}
	p.handler = h
	return nil
}

// Start launches the tick goroutine.
func (p *TickerPlatform) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return errNotInitialized
	}
	if p.started {
		return errAlreadyStarted
	}
	if p.alarm == 0 {
		return errors.New("alarm not set")
	}
	if p.handler == nil {
		return errors.New("no handler bound")
	}

	first := TicksToDuration(p.cfg.BaseClockHz, p.cfg.Divider, p.firstAlarmTicks())
	period := TicksToDuration(p.cfg.BaseClockHz, p.cfg.Divider, p.alarm)
	if first <= 0 || period <= 0 {
		return errors.New("alarm period rounds to zero")
	}

	p.started = true
	go p.run(first, period, p.cfg.AutoReload, p.interrupts, p.handler)
	return nil
}

// firstAlarmTicks returns how far the counter has to travel from its start
// value to reach the alarm. A counter already past the alarm waits one full
// alarm period.
func (p *TickerPlatform) firstAlarmTicks() uint64 {
	switch {
	case p.cfg.Direction == CountUp && p.counter < p.alarm:
		return p.alarm - p.counter
	case p.cfg.Direction == CountDown && p.counter > p.alarm:
		return p.counter - p.alarm
	default:
		return p.alarm
	}
}

func (p *TickerPlatform) run(first, period time.Duration, autoReload, interrupts bool, h TickHandler) {
	defer close(p.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t := time.NewTimer(first)
	defer t.Stop()

	select {
	case <-p.ctx.Done():
		return
	case <-t.C:
	}
	p.fire(interrupts, h)

	if !autoReload {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.fire(interrupts, h)
		}
	}
}

func (p *TickerPlatform) fire(interrupts bool, h TickHandler) {
	if !interrupts {
		return
	}
	h.OnTick()
	p.fired.Add(1)
}

// Fired returns the number of ticks delivered to the handler.
func (p *TickerPlatform) Fired() uint64 {
	return p.fired.Load()
}

// Done is closed when the tick goroutine exits. It never closes if Start was
// not called.
func (p *TickerPlatform) Done() <-chan struct{} {
	return p.done
}
