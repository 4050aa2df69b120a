package dataflow

import (
	"fmt"
	"sort"

	"raster/internal/il"
)

// GVNResult assigns a value number to every SSA value produced in fn
// (spec 4.6: "assigns value numbers such that textually different
// expressions with equal computed values receive the same number
// across the whole CFG"), and lists later computations that are
// redundant with an earlier one under the same number.
type GVNResult struct {
	Number map[string]int // SSA value key -> value number

	// Redundant lists, for each redundant instruction (by key), the
	// earlier value key with the same number it can be replaced by.
	Redundant map[string]string
}

// GVN computes global value numbers over fn's whole CFG by hashing
// each pure instruction's canonical operator-plus-operand-numbers
// signature (spec 4.6/4.9's CSE canonicalization rule: commutative
// operators sort their operand keys first so `a+b` and `b+a` collapse
// to one signature). Non-pure instructions (memory/barrier/volatile
// effects, calls) always get a fresh number since their result may
// differ across executions even with syntactically identical
// operands. Blocks are visited in ascending id order, which for a
// dominance-respecting SSA program means every operand's number is
// already assigned before the instruction that consumes it is
// visited.
func GVN(fn *il.Function) GVNResult {
	number := make(map[string]int)
	sigToNumber := make(map[string]int)
	sigToKey := make(map[string]string)
	redundant := make(map[string]string)
	next := 0

	fresh := func(key string) int {
		n := next
		next++
		number[key] = n
		return n
	}

	numberOf := func(v il.Value) string {
		if v.ValKind == il.ValueConstant {
			return fmt.Sprintf("c:%s:%d", v.Type.String(), v.Const)
		}
		if n, ok := number[v.Key()]; ok {
			return fmt.Sprintf("n:%d", n)
		}
		return "n:?" + v.Key()
	}

	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			res, ok := inst.Result()
			if !ok {
				continue
			}
			key := res.Key()
			if !isPure(inst) {
				fresh(key)
				continue
			}

			sig := signature(inst, numberOf)
			if sig == "" {
				fresh(key)
				continue
			}
			if n, ok := sigToNumber[sig]; ok {
				number[key] = n
				redundant[key] = sigToKey[sig]
				continue
			}
			n := fresh(key)
			sigToNumber[sig] = n
			sigToKey[sig] = key
		}
	}

	return GVNResult{Number: number, Redundant: redundant}
}

func isPure(inst il.Instruction) bool {
	for _, e := range inst.Effects() {
		if _, ok := e.(il.PureEffect); !ok {
			return false
		}
	}
	return true
}

// signature builds a canonical string for a pure instruction's
// operator and operand value numbers, sorting commutative operands so
// operand order doesn't affect the key. PhiInst, LoadVarInst and
// IntrinsicInst never participate (phis merge control-dependent
// values, loads are eliminated by SSA construction, intrinsics are
// handled by purity regardless of their Effects()).
func signature(inst il.Instruction, numberOf func(il.Value) string) string {
	switch v := inst.(type) {
	case *il.BinaryInst:
		a, b := numberOf(v.Lhs), numberOf(v.Rhs)
		if v.Op.Commutative() && b < a {
			a, b = b, a
		}
		return fmt.Sprintf("bin:%s:%s:%s", v.Op, a, b)
	case *il.UnaryInst:
		return fmt.Sprintf("un:%s:%s", v.Op, numberOf(v.Src))
	case *il.ConvertInst:
		return fmt.Sprintf("conv:%s:%s", v.Kind, numberOf(v.Src))
	case *il.LoadConstInst:
		return fmt.Sprintf("const:%s", numberOf(v.Value_))
	default:
		return ""
	}
}

// SortedRedundantKeys returns Redundant's keys in a deterministic
// order, for stable diagnostic output.
func (r GVNResult) SortedRedundantKeys() []string {
	keys := make([]string, 0, len(r.Redundant))
	for k := range r.Redundant {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
