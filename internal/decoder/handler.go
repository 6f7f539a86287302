// Package decoder binds the quadrature decoding logic to the encoder lines.
// Its Handler is what the timer calls on every tick.
package decoder

import (
	"github.com/sweeney/rotary-sensor/internal/gpio"
	"github.com/sweeney/rotary-sensor/internal/logic"
	"github.com/sweeney/rotary-sensor/internal/timer"
)

// Handler samples the encoder on each tick and publishes the result to the
// shared state. Once bound to a timer it owns the lines it was given.
type Handler struct {
	state *logic.SharedState
	in    gpio.InputPair
	out   gpio.OutputLine
}

var (
	_ timer.TickHandler  = (*Handler)(nil)
	_ timer.ReadyChecker = (*Handler)(nil)
)

// New creates a Handler over the given state and lines.
func New(state *logic.SharedState, in gpio.InputPair, out gpio.OutputLine) *Handler {
	return &Handler{state: state, in: in, out: out}
}

// Ready reports whether h has its state and both lines. A timer refuses to
// bind a handler that is not ready.
func (h *Handler) Ready() bool {
	return h != nil && h.state != nil && h.in != nil && h.out != nil
}

// OnTick reads both lines, resolves the rotation against the previous code,
// records it and drives the output line: active on clockwise, inactive on no
// movement, untouched on anticlockwise. It always returns true.
func (h *Handler) OnTick() bool {
	a, b := h.in.Levels()
	dir := h.state.Resolve(logic.ToGrayCode(a, b))
	h.state.Record(dir)

	switch dir {
	case logic.Clockwise:
		h.out.Set(true)
	case logic.None:
		h.out.Set(false)
	}
	return true
}
