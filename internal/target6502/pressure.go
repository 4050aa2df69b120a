package target6502

import "raster/internal/il"

// Pressure is spec 4.7's 1-3 register-pressure metric for the 6502's
// three registers (A/X/Y). Expressions scoring above 2 are flagged as
// spill candidates.
type Pressure int

const (
	PressureMin Pressure = 1
	PressureMax Pressure = 3
)

// SpillThreshold is the pressure value above which an expression is a
// spill candidate (spec 4.7: "pressure > 2").
const SpillThreshold = 2

func clampPressure(p int) Pressure {
	if p < int(PressureMin) {
		return PressureMin
	}
	if p > int(PressureMax) {
		return PressureMax
	}
	return Pressure(p)
}

// operandPressure is the base-case pressure of a single operand: a
// constant or already-materialized register/variable costs the
// minimum, 1.
func operandPressure(v il.Value) int {
	return int(PressureMin)
}

// InstructionPressure computes spec 4.7's pressure metric for one
// instruction:
//
//	binary = min(3, max(left, right + 1))
//	call   = 3 (all registers clobbered by the call convention)
//	indexed (an IntrinsicInst with two or more arguments, e.g. poke,
//	  scored on its first two) = min(3, max(base, index + 1))
//
// Every other instruction kind is scored at the minimum, 1: it
// produces or consumes at most one live value at a time.
func InstructionPressure(inst il.Instruction) Pressure {
	switch v := inst.(type) {
	case *il.BinaryInst:
		left, right := operandPressure(v.Lhs), operandPressure(v.Rhs)
		return clampPressure(min(3, max(left, right+1)))
	case *il.CallInst:
		return PressureMax
	case *il.IntrinsicInst:
		if len(v.Args) >= 2 {
			base, index := operandPressure(v.Args[0]), operandPressure(v.Args[1])
			return clampPressure(min(3, max(base, index+1)))
		}
		return PressureMin
	default:
		return PressureMin
	}
}

// IsSpillCandidate reports whether inst's pressure exceeds the
// threshold spec 4.7 flags for spilling.
func IsSpillCandidate(inst il.Instruction) bool {
	return int(InstructionPressure(inst)) > SpillThreshold
}

// FunctionPressure computes InstructionPressure for every instruction
// in fn, keyed by the instruction's result (for instructions that
// produce one) so a caller can look up a specific value's pressure.
type FunctionPressure struct {
	ByResult map[string]Pressure
	Spills   []string // result keys of spill candidates, in discovery order
}

// AnalyzePressure runs InstructionPressure over every block of fn in
// ascending id/position order (spec 5's determinism guarantee).
func AnalyzePressure(fn *il.Function) FunctionPressure {
	out := FunctionPressure{ByResult: make(map[string]Pressure)}
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			res, ok := inst.Result()
			if !ok {
				continue
			}
			p := InstructionPressure(inst)
			out.ByResult[res.Key()] = p
			if IsSpillCandidate(inst) {
				out.Spills = append(out.Spills, res.Key())
			}
		}
	}
	return out
}
