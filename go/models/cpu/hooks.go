package cpu

// Hooks collects step, memory-access, and fault callbacks that a
// stepper or debugger can attach to observe the VM. There's a single
// flat memory region here instead of mapped/protected pages, so unlike
// the Unicorn-oriented HookAdd/HookDel this package used to offer,
// there's no address-range filtering or typed hook handle to delete by
// — callers register for the life of the Hooks value.
type Hooks struct {
	steps  []func(pc uint32)
	mem    []func(access AccessKind, addr uint32, size int)
	faults []func(access AccessKind, addr uint32, size int, err error)
}

// NewHooks creates an empty Hooks and, if mem is non-nil, attaches it so
// the memory's own reads/writes dispatch OnMem/OnFault automatically.
func NewHooks(mem *Memory) *Hooks {
	h := &Hooks{}
	if mem != nil {
		mem.hooks = h
	}
	return h
}

func (h *Hooks) OnStepHook(cb func(pc uint32)) {
	h.steps = append(h.steps, cb)
}

func (h *Hooks) OnMemHook(cb func(access AccessKind, addr uint32, size int)) {
	h.mem = append(h.mem, cb)
}

func (h *Hooks) OnFaultHook(cb func(access AccessKind, addr uint32, size int, err error)) {
	h.faults = append(h.faults, cb)
}

func (h *Hooks) Step(pc uint32) {
	for _, cb := range h.steps {
		cb(pc)
	}
}

func (h *Hooks) OnMem(access AccessKind, addr uint32, size int) {
	for _, cb := range h.mem {
		cb(access, addr, size)
	}
}

func (h *Hooks) OnFault(access AccessKind, addr uint32, size int, err error) {
	for _, cb := range h.faults {
		cb(access, addr, size, err)
	}
}
