package timer

// TickHandler is invoked once per timer tick in the tick context.
// OnTick must return quickly and must not block, allocate or take a lock that
// another context may hold. The return value is an acknowledgement for the
// platform's own bookkeeping and carries no other meaning.
type TickHandler interface {
	OnTick() bool
}

// ReadyChecker is implemented by handlers that can be non-nil yet unusable,
// such as a typed nil pointer. Binding rejects a handler whose Ready is false.
type ReadyChecker interface {
	Ready() bool
}

// usable reports whether h can be bound.
func usable(h TickHandler) bool {
	if h == nil {
		return false
	}
	if c, ok := h.(ReadyChecker); ok {
		return c.Ready()
	}
	return true
}

// TickFunc adapts a plain function to TickHandler.
type TickFunc func() bool

// OnTick calls f.
func (f TickFunc) OnTick() bool {
	return f()
}

// Platform is the narrow driver surface a Source depends on.
type Platform interface {
	Init(cfg Config) error
	SetCounter(value uint64) error
	SetAlarm(value uint64) error
	EnableInterrupt() error
	BindHandler(h TickHandler) error
	Start() error
}
