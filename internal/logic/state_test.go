package logic

import (
	"sync"
	"testing"
)

func TestNewSharedState(t *testing.T) {
	s := NewSharedState()
	r := s.Snapshot()
	if r.Previous != 0 {
		t.Errorf("Previous: got %d, want 0", r.Previous)
	}
	if r.Signal != SignalNone {
		t.Errorf("Signal: got %d, want 0", r.Signal)
	}
	if r.Counter != 0 {
		t.Errorf("Counter: got %d, want 0", r.Counter)
	}
	if r.Ticks != 0 {
		t.Errorf("Ticks: got %d, want 0", r.Ticks)
	}
}

func resolveAll(s *SharedState, codes []GrayCode) []Direction {
	out := make([]Direction, len(codes))
	for i, c := range codes {
		out[i] = s.Resolve(c)
	}
	return out
}

func TestResolveForwardSequence(t *testing.T) {
	s := NewSharedState()
	got := resolveAll(s, []GrayCode{0, 1, 2, 3, 0, 1, 2, 3})

	if got[0] != None {
		t.Errorf("call 0: got %s, want NONE", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] != Clockwise {
			t.Errorf("call %d: got %s, want CW", i, got[i])
		}
	}
}

func TestResolveReverseSequence(t *testing.T) {
	s := NewSharedState()
	got := resolveAll(s, []GrayCode{0, 3, 2, 1, 0})

	if got[0] != None {
		t.Errorf("call 0: got %s, want NONE", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] != AntiClockwise {
			t.Errorf("call %d: got %s, want CCW", i, got[i])
		}
	}
}

func TestResolveSameCodeTwice(t *testing.T) {
	s := NewSharedState()
	s.Resolve(2)
	if got := s.Resolve(2); got != None {
		t.Errorf("second resolve of same code: got %s, want NONE", got)
	}
}

func TestResolveAlwaysStoresNewCode(t *testing.T) {
	s := NewSharedState()
	// 0 -> 2 is ambiguous, but the stored code must still move.
	if got := s.Resolve(2); got != None {
		t.Errorf("skipped step: got %s, want NONE", got)
	}
	if s.Previous() != 2 {
		t.Errorf("Previous: got %d, want 2", s.Previous())
	}
	if got := s.Resolve(3); got != Clockwise {
		t.Errorf("after skip: got %s, want CW", got)
	}
}

func TestRecordCounter(t *testing.T) {
	s := NewSharedState()

	s.Record(Clockwise)
	s.Record(Clockwise)
	s.Record(AntiClockwise)
	s.Record(None)

	if s.Counter() != 1 {
		t.Errorf("Counter: got %d, want 1", s.Counter())
	}
	if s.Signal() != SignalNone {
		t.Errorf("Signal: got %d, want 0", s.Signal())
	}
	if s.Ticks() != 4 {
		t.Errorf("Ticks: got %d, want 4", s.Ticks())
	}

	s.Record(AntiClockwise)
	if s.Signal() != SignalAntiClockwise {
		t.Errorf("Signal: got %d, want -1", s.Signal())
	}
	if s.Counter() != 0 {
		t.Errorf("Counter: got %d, want 0", s.Counter())
	}
}

// TestConcurrentReadersSeeWholeValues runs a writer that walks the code
// sequence forward while several readers snapshot the cells. Run with -race.
func TestConcurrentReadersSeeWholeValues(t *testing.T) {
	const steps = 20000
	s := NewSharedState()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < steps; i++ {
			code := GrayCode(i % 4)
			s.Record(s.Resolve(code))
		}
	}()

	errs := make(chan string, 4*8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastTicks uint64
			var lastCounter int64
			for {
				snap := s.Snapshot()
				if snap.Previous < 0 || snap.Previous > 3 {
					errs <- "previous out of range"
					return
				}
				if snap.Signal < -1 || snap.Signal > 1 {
					errs <- "signal out of range"
					return
				}
				if snap.Ticks < lastTicks {
					errs <- "ticks went backwards"
					return
				}
				if snap.Counter < lastCounter {
					errs <- "counter went backwards on a forward-only walk"
					return
				}
				lastTicks = snap.Ticks
				lastCounter = snap.Counter
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}

	// First call is 0 -> 0, every later one is a forward step.
	if s.Counter() != steps-1 {
		t.Errorf("Counter: got %d, want %d", s.Counter(), steps-1)
	}
	if s.Ticks() != steps {
		t.Errorf("Ticks: got %d, want %d", s.Ticks(), steps)
	}
	if s.Signal() != SignalClockwise {
		t.Errorf("Signal: got %d, want 1", s.Signal())
	}
}
