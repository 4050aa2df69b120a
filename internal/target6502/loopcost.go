package target6502

import (
	"raster/internal/dataflow"
	"raster/internal/il"
)

// LoopCost is one loop's cycle estimate (spec 4.7: "a loop's estimate
// is setup + iterations × (body + loop_overhead)").
type LoopCost struct {
	Header     int
	Body       int // sum of the loop's member blocks' own instruction costs
	Iterations int
	Estimated  bool // true if Iterations fell back to DefaultLoopIterations
	Total      int  // Iterations * (Body + LoopOverhead)
}

// estimateLoop computes one Loop's cost: the member blocks' summed
// instruction cost as the per-iteration body, and an iteration count
// recovered from the loop's exit comparison when both the induction
// variable's initial value and the compared bound are literals (spec
// 4.7/§8.2's worked example: `i < 10`, stride +1, initial 0 gives 10
// iterations, not the default).
func estimateLoop(fn *il.Function, loop dataflow.Loop) LoopCost {
	body := 0
	for _, id := range loop.Blocks {
		b := fn.Block(id)
		if b == nil {
			continue
		}
		cost, _ := BlockCost(b)
		body += cost
	}

	iterations, exact := literalIterationCount(fn, loop)
	if !exact {
		iterations = DefaultLoopIterations
	}

	return LoopCost{
		Header:     loop.Header,
		Body:       body,
		Iterations: iterations,
		Estimated:  !exact,
		Total:      iterations * (body + LoopOverhead),
	}
}

// literalIterationCount looks for a comparison instruction feeding the
// loop's exit branch whose operands are a classified basic induction
// variable (with a recovered initial value) and a literal bound, and
// derives the exact iteration count from initial/stride/bound. Returns
// exact=false whenever the shape doesn't match, so the caller can fall
// back to the spec's default of 10.
func literalIterationCount(fn *il.Function, loop dataflow.Loop) (int, bool) {
	members := make(map[int]bool, len(loop.Blocks))
	for _, id := range loop.Blocks {
		members[id] = true
	}

	for _, id := range loop.Blocks {
		b := fn.Block(id)
		if b == nil {
			continue
		}
		br, ok := lastBranch(b)
		if !ok {
			continue
		}
		cmp, ok := findComparison(fn, members, br.Cond)
		if !ok {
			continue
		}
		if n, ok := solveIterations(cmp, loop); ok {
			return n, true
		}
	}
	return 0, false
}

func lastBranch(b *il.BasicBlock) (*il.BranchInst, bool) {
	t, ok := b.Terminator()
	if !ok {
		return nil, false
	}
	br, ok := t.(*il.BranchInst)
	return br, ok
}

// findComparison locates the BinaryInst, among the loop's member
// blocks, whose result is the branch condition.
func findComparison(fn *il.Function, members map[int]bool, cond il.Value) (*il.BinaryInst, bool) {
	if cond.ValKind == il.ValueConstant {
		return nil, false
	}
	for id := range members {
		b := fn.Block(id)
		if b == nil {
			continue
		}
		for _, inst := range b.Instructions {
			bin, ok := inst.(*il.BinaryInst)
			if !ok || !bin.Op.IsComparison() {
				continue
			}
			if bin.Res.Key() == cond.Key() {
				return bin, true
			}
		}
	}
	return nil, false
}

func solveIterations(cmp *il.BinaryInst, loop dataflow.Loop) (int, bool) {
	varSide, constSide, ok := splitVarConst(cmp.Lhs, cmp.Rhs)
	if !ok {
		return 0, false
	}
	ind, ok := loop.Inductions[varSide.VarName]
	if !ok || ind.Kind != dataflow.Basic || !ind.HasInitial || ind.Offset == 0 {
		return 0, false
	}
	bound := constSide.Const
	stride := ind.Offset
	if stride < 0 {
		return 0, false // decreasing counters need the mirrored comparison direction; not handled
	}

	// Normalize the bound to an exclusive upper limit matching the
	// comparison actually used.
	exclusive := bound
	switch cmp.Op {
	case il.OpLt:
		// i < bound, variable on the left -- exclusive already.
	case il.OpLe:
		exclusive = bound + 1
	default:
		return 0, false
	}
	if exclusive <= ind.Initial {
		return 0, true
	}
	n := (exclusive - ind.Initial + stride - 1) / stride
	if n < 0 {
		return 0, false
	}
	return int(n), true
}

// splitVarConst reports which of lhs/rhs is the ValueVar operand and
// which is the ValueConstant, requiring the variable on the left (the
// common `i < 10` shape); the mirrored `10 > i` form is left
// unhandled, matching the worked example's convention.
func splitVarConst(lhs, rhs il.Value) (v, c il.Value, ok bool) {
	if lhs.ValKind == il.ValueVar && rhs.ValKind == il.ValueConstant {
		return lhs, rhs, true
	}
	return il.Value{}, il.Value{}, false
}
