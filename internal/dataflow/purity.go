package dataflow

import "raster/internal/il"

// Purity classifies a function's observable side-effect profile (spec
// 4.6): Pure functions read and write nothing but their own locals and
// return value; ReadOnly functions read shared state (globals,
// pointer/array targets, volatile locations) but never write it;
// Impure functions write shared state, call another (possibly impure)
// function, or cross a barrier.
type Purity int

const (
	Pure Purity = iota
	ReadOnly
	Impure
)

func (p Purity) String() string {
	switch p {
	case Pure:
		return "pure"
	case ReadOnly:
		return "read-only"
	default:
		return "impure"
	}
}

// PurityResult is the classification plus the instructions that drove
// it, for diagnostic reporting.
type PurityResult struct {
	Class  Purity
	Reason string // the first instruction that forced the classification, if not Pure
}

// localNames collects fn's own parameter/local name set: every
// parameter plus every base variable name ever targeted by a
// StoreVarInst within fn, the same "declare on first store_var" shape
// escape.go's EscapeAnalysis uses to tell a frame-local variable from
// one that must live somewhere shared. A MemoryEffect whose Region is
// in this set reads or writes only fn's own locals and does not affect
// purity, per spec 4.6's definition of Pure.
func localNames(fn *il.Function) map[string]bool {
	locals := make(map[string]bool)
	for _, p := range fn.Params {
		locals[p.Name] = true
	}
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok {
				locals[s.Name] = true
			}
		}
	}
	return locals
}

// ClassifyPurity walks every instruction's Effects() (spec 4.6: "uses
// intrinsic side-effect flags as leaves") and folds them into the
// three-point purity lattice Pure < ReadOnly < Impure. A MemoryEffect
// whose Region names one of fn's own parameters/locals (per
// localNames) is invisible to an outside caller and never raises
// purity. A BarrierEffect, a VolatileEffect, or a MemoryEffect{Write:
// true} to a name outside that set makes the function Impure; any
// other non-local MemoryEffect (a read) makes it at least ReadOnly.
func ClassifyPurity(fn *il.Function) PurityResult {
	locals := localNames(fn)
	class := Pure
	reason := ""
	raise := func(to Purity, why string) {
		if to > class {
			class = to
			reason = why
		}
	}

	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			for _, eff := range inst.Effects() {
				switch e := eff.(type) {
				case il.BarrierEffect:
					raise(Impure, inst.String())
				case il.VolatileEffect:
					raise(Impure, inst.String())
				case il.MemoryEffect:
					if locals[e.Region] {
						continue
					}
					if e.Write {
						raise(Impure, inst.String())
					} else {
						raise(ReadOnly, inst.String())
					}
				}
			}
		}
	}
	return PurityResult{Class: class, Reason: reason}
}
