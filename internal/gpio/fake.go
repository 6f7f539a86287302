package gpio

import (
	"errors"

	"github.com/sweeney/rotary-sensor/internal/logic"
)

// FakeLines is a test double that returns scripted input levels and records
// output writes. Not safe for concurrent use: only the sampling context may
// touch it while sampling runs.
type FakeLines struct {
	// Samples contains scripted (A, B) levels to return.
	// Each call to Levels() or Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Outputs records every value passed to Set, in order.
	Outputs []bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read() and counted by Levels()
	ReadError error

	lineErrors uint64
}

// Sample represents a single reading of both encoder lines.
type Sample struct {
	A logic.Level
	B logic.Level
}

// SampleFor returns the sample whose levels map to code.
func SampleFor(code logic.GrayCode) Sample {
	switch code {
	case 0:
		return Sample{A: logic.Low, B: logic.Low}
	case 1:
		return Sample{A: logic.Low, B: logic.High}
	case 2:
		return Sample{A: logic.High, B: logic.High}
	default:
		return Sample{A: logic.High, B: logic.Low}
	}
}

// SamplesFor converts a code sequence into samples.
func SamplesFor(codes ...logic.GrayCode) []Sample {
	out := make([]Sample, len(codes))
	for i, c := range codes {
		out[i] = SampleFor(c)
	}
	return out
}

// NewFakeLines creates a FakeLines with the given samples.
func NewFakeLines(samples []Sample) *FakeLines {
	return &FakeLines{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeLines) Read() (logic.Level, logic.Level, error) {
	if f.ReadError != nil {
		return logic.Low, logic.Low, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.Low, logic.Low, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.A, sample.B, nil
}

// Levels returns the next scripted sample, or both lines low (counting a
// line error) when Read would fail.
func (f *FakeLines) Levels() (logic.Level, logic.Level) {
	a, b, err := f.Read()
	if err != nil {
		f.lineErrors++
	}
	return a, b
}

// Set records the output value.
func (f *FakeLines) Set(active bool) {
	f.Outputs = append(f.Outputs, active)
}

// LineErrors returns the number of failed Levels() calls.
func (f *FakeLines) LineErrors() uint64 {
	return f.lineErrors
}

// Close marks the lines as closed.
func (f *FakeLines) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the samples and clears recorded outputs.
func (f *FakeLines) Reset() {
	f.index = 0
	f.Outputs = nil
	f.Closed = false
	f.lineErrors = 0
}
