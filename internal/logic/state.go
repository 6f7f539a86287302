package logic

import "sync/atomic"

// SharedState holds the cells written by the sampling context and read by
// observers. Every cell is an independent atomic; no locks are taken, so the
// sampling context can never be stalled by a reader.
//
// Go's sync/atomic operations are sequentially consistent. The exchange in
// Resolve relies on that: each invocation observes exactly the code stored
// by the one before it.
type SharedState struct {
	previous atomic.Int32
	signal   atomic.Int32
	counter  atomic.Int64
	ticks    atomic.Uint64
}

// NewSharedState returns state with previous code 0, signal None and a zero
// counter. Create one per sensor and hand the pointer to both contexts.
func NewSharedState() *SharedState {
	return &SharedState{}
}

// Resolve exchanges the stored previous code with code and classifies the
// rotation from the old value to the new one. The swap is a single atomic
// operation; after it returns the stored code is always code.
func (s *SharedState) Resolve(code GrayCode) Direction {
	old := GrayCode(s.previous.Swap(int32(code)))
	return Classify(old, code)
}

// Record publishes dir: the signal is stored, the counter moves by +1 on
// Clockwise and -1 on AntiClockwise, and the tick count is incremented.
func (s *SharedState) Record(dir Direction) {
	s.signal.Store(int32(dir.Signal()))
	switch dir {
	case Clockwise:
		s.counter.Add(1)
	case AntiClockwise:
		s.counter.Add(-1)
	}
	s.ticks.Add(1)
}

// Previous returns the last code stored by Resolve.
func (s *SharedState) Previous() GrayCode {
	return GrayCode(s.previous.Load())
}

// Signal returns the last recorded direction signal.
func (s *SharedState) Signal() Signal {
	return Signal(s.signal.Load())
}

// Counter returns the diagnostic step counter.
func (s *SharedState) Counter() int64 {
	return s.counter.Load()
}

// Ticks returns the number of recorded samples.
func (s *SharedState) Ticks() uint64 {
	return s.ticks.Load()
}

// Snapshot loads every cell. Cells are loaded independently, so a snapshot
// taken mid-sample may pair a new signal with the previous counter; each
// individual value is always whole.
func (s *SharedState) Snapshot() Reading {
	return Reading{
		Previous: s.Previous(),
		Signal:   s.Signal(),
		Counter:  s.Counter(),
		Ticks:    s.Ticks(),
	}
}
