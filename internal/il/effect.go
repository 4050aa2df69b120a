package il

// Effect describes an instruction's observable side effect, consumed
// by the dataflow layer's alias/purity/escape analyses.
type Effect interface {
	EffectKind() string
}

// PureEffect marks an instruction with no observable side effect.
type PureEffect struct{}

func (PureEffect) EffectKind() string { return "pure" }

// MemoryEffect marks a read or write of a named memory location
// (variable, array element, pointer target, or an unresolved alias
// class). Region is set by the instruction's own Effects(): the
// variable name for load_var/store_var, "*" for a call, and
// "*intrinsic*" plus the intrinsic's name for an intrinsic; alias
// analysis in internal/dataflow groups these names into classes.
type MemoryEffect struct {
	Write  bool
	Region string
}

func (MemoryEffect) EffectKind() string { return "memory" }

// BarrierEffect marks an instruction (an intrinsic barrier, sei/cli,
// or a call) that optimizations must not reorder across.
type BarrierEffect struct{}

func (BarrierEffect) EffectKind() string { return "barrier" }

// VolatileEffect marks access to a volatile location (e.g.
// volatile_read/volatile_write), which must not be eliminated even if
// apparently dead or redundant.
type VolatileEffect struct{}

func (VolatileEffect) EffectKind() string { return "volatile" }
