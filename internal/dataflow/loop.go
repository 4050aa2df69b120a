package dataflow

import (
	"raster/internal/dom"
	"raster/internal/il"
)

// InductionKind distinguishes a basic induction variable from a
// derived one (spec 4.6/§8.2).
type InductionKind int

const (
	NotInduction InductionKind = iota
	Basic                      // v = v + c / v = v - c, constant stride
	Derived                    // v = base*k, or v = base + c
)

// Induction describes one variable's role in a loop: its kind, its
// stride/scale/offset, and (for a BIV) the initial value recovered by
// scanning textually-prior assignments.
type Induction struct {
	Name    string
	Kind    InductionKind
	Base    string // DIV only: the BIV it derives from
	Scale   int64  // DIV only: k in base*k
	Offset  int64  // stride for a BIV; c for a DIV
	Initial int64
	HasInitial bool
}

// Loop describes one natural loop (spec 4.6): its header, its member
// blocks, the induction variables found in it, and the set of
// variable names proven loop-invariant.
type Loop struct {
	Header     int
	Blocks     []int
	Inductions map[string]Induction
	Invariant  map[string]bool
}

// LoopResult is the natural-loop nest discovered in fn, one Loop per
// back edge (spec 4.6 does not require merging loops that share a
// header via multiple back edges into one record; each back edge is
// reported separately, matching NaturalLoop's own one-edge-at-a-time
// contract).
type LoopResult struct {
	Loops []Loop
}

// AnalyzeLoops finds every natural loop in fn via tree's back edges
// (spec 4.6: "finds back edges (u->v where v dominates u); the
// natural loop for a back edge is the header v plus every block that
// can reach u without passing through v"), then classifies induction
// variables and computes loop invariance as the transitive closure
// spec 4.6 describes: literals are invariant, and variables unmodified
// within the loop body are invariant; a variable stored exactly once
// in the loop is invariant when the stored value is a literal or an
// invariant variable, propagated to a fixed point. A store of a
// computed register value counts as variant: the computation behind
// the register is not traced.
func AnalyzeLoops(fn *il.Function, tree *dom.Tree) LoopResult {
	var loops []Loop
	for _, edge := range tree.BackEdges() {
		members := tree.NaturalLoop(edge)
		l := Loop{Header: edge.Head, Blocks: members}
		l.Invariant = computeInvariant(fn, members)
		l.Inductions = classifyInductions(fn, members, l.Invariant)
		loops = append(loops, l)
	}
	return LoopResult{Loops: loops}
}

// computeInvariant implements spec 4.6's invariance closure: a
// variable's defining store is invariant if its value operand is a
// constant, or a variable whose own unique defining store (if any) is
// itself invariant, or there is no store to it inside the loop at all
// (it's defined outside). Every variable read in the loop but never
// stored there is invariant as well. Iterates to a fixed point since a later
// store in program order may turn out invariant only once an earlier
// one has been marked so.
func computeInvariant(fn *il.Function, members []int) map[string]bool {
	inLoop := make(map[int]bool, len(members))
	for _, id := range members {
		inLoop[id] = true
	}

	storesOf := make(map[string][]*il.StoreVarInst)
	var reads []string
	for _, id := range members {
		b := fn.Block(id)
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok {
				storesOf[s.Name] = append(storesOf[s.Name], s)
			}
			if l, ok := inst.(*il.LoadVarInst); ok {
				reads = append(reads, l.Name)
			}
			for _, op := range inst.Operands() {
				if op.ValKind == il.ValueVar {
					reads = append(reads, op.VarName)
				}
			}
		}
	}

	invariant := make(map[string]bool)
	for _, name := range reads {
		if _, stored := storesOf[name]; !stored {
			invariant[name] = true
		}
	}
	changed := true
	for changed {
		changed = false
		for name, stores := range storesOf {
			if invariant[name] {
				continue
			}
			if len(stores) != 1 {
				continue // reassigned more than once in the loop: conservatively variant
			}
			val := stores[0].Val
			ok := valueIsInvariant(val, storesOf, invariant)
			if ok {
				invariant[name] = true
				changed = true
			}
		}
	}
	return invariant
}

func valueIsInvariant(v il.Value, storesOf map[string][]*il.StoreVarInst, invariant map[string]bool) bool {
	switch v.ValKind {
	case il.ValueConstant:
		return true
	case il.ValueVar:
		if _, storedInLoop := storesOf[v.VarName]; !storedInLoop {
			return true // defined outside the loop
		}
		return invariant[v.VarName]
	default:
		return false
	}
}

// classifyInductions implements spec 4.6's BIV/DIV classification: a
// basic induction variable has exactly one in-loop store of the form
// `v = v +/- constant`; a derived induction variable's single store
// computes `base*k` or `base + c` (either operand order, k and c
// constants) from a variable already classified as a BIV or DIV.
// Other shapes are not classified: `base*k + c`, a plain copy
// `v = base`, and `base - c` yield no DIV. The BIV's initial value is
// the last constant store to that name found by scanning every block
// outside the loop in ascending id order (spec 4.6: "the initial value
// is recovered by scanning textually-prior initializations/
// assignments"); HasInitial is false when there is none.
func classifyInductions(fn *il.Function, members []int, invariant map[string]bool) map[string]Induction {
	inLoop := make(map[int]bool, len(members))
	for _, id := range members {
		inLoop[id] = true
	}

	storesOf := make(map[string][]*il.StoreVarInst)
	for _, id := range members {
		b := fn.Block(id)
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok {
				storesOf[s.Name] = append(storesOf[s.Name], s)
			}
		}
	}

	definingBinary := collectDefiningBinaries(fn, members)

	result := make(map[string]Induction)
	for name, stores := range storesOf {
		if len(stores) != 1 || invariant[name] {
			continue
		}
		b, isBin := resolveBinary(stores[0].Val, definingBinary)
		if !isBin {
			continue
		}
		if stride, ok := biVStride(b, name); ok {
			result[name] = Induction{Name: name, Kind: Basic, Offset: stride}
		}
	}

	// second pass: derived induction variables reference a BIV (or
	// another already-classified DIV) found above.
	for name, stores := range storesOf {
		if _, already := result[name]; already {
			continue
		}
		if len(stores) != 1 || invariant[name] {
			continue
		}
		b, isBin := resolveBinary(stores[0].Val, definingBinary)
		if !isBin {
			continue
		}
		if div, ok := classifyDerived(b, result); ok {
			div.Name = name
			result[name] = div
		}
	}

	for name, ind := range result {
		if ind.Kind != Basic {
			continue
		}
		init, ok := recoverInitial(fn, inLoop, name)
		ind.Initial = init
		ind.HasInitial = ok
		result[name] = ind
	}
	return result
}

// collectDefiningBinaries indexes every BinaryInst in the loop's
// member blocks by its result's Key(), so a stored value (which
// references its defining instruction only by value identity, not by
// pointer) can be traced back to the arithmetic that computed it.
func collectDefiningBinaries(fn *il.Function, members []int) map[string]*il.BinaryInst {
	out := make(map[string]*il.BinaryInst)
	for _, id := range members {
		b := fn.Block(id)
		for _, inst := range b.Instructions {
			if bin, ok := inst.(*il.BinaryInst); ok {
				out[bin.Res.Key()] = bin
			}
		}
	}
	return out
}

// resolveBinary looks up the BinaryInst that produced v, if v is a
// register/versioned-var reference to one found in defining.
func resolveBinary(v il.Value, defining map[string]*il.BinaryInst) (*il.BinaryInst, bool) {
	if v.ValKind == il.ValueConstant {
		return nil, false
	}
	b, ok := defining[v.Key()]
	return b, ok
}

func biVStride(b *il.BinaryInst, name string) (int64, bool) {
	if b.Op != il.OpAdd && b.Op != il.OpSub {
		return 0, false
	}
	var other il.Value
	switch {
	case b.Lhs.ValKind == il.ValueVar && b.Lhs.VarName == name:
		other = b.Rhs
	case b.Rhs.ValKind == il.ValueVar && b.Rhs.VarName == name && b.Op == il.OpAdd:
		other = b.Lhs
	default:
		return 0, false
	}
	if other.ValKind != il.ValueConstant {
		return 0, false
	}
	if b.Op == il.OpSub {
		return -other.Const, true
	}
	return other.Const, true
}

func classifyDerived(b *il.BinaryInst, known map[string]Induction) (Induction, bool) {
	baseOf := func(v il.Value) (string, bool) {
		if v.ValKind != il.ValueVar {
			return "", false
		}
		if _, ok := known[v.VarName]; ok {
			return v.VarName, true
		}
		return "", false
	}
	switch b.Op {
	case il.OpMul:
		if base, ok := baseOf(b.Lhs); ok && b.Rhs.ValKind == il.ValueConstant {
			return Induction{Kind: Derived, Base: base, Scale: b.Rhs.Const}, true
		}
		if base, ok := baseOf(b.Rhs); ok && b.Lhs.ValKind == il.ValueConstant {
			return Induction{Kind: Derived, Base: base, Scale: b.Lhs.Const}, true
		}
	case il.OpAdd:
		if base, ok := baseOf(b.Lhs); ok && b.Rhs.ValKind == il.ValueConstant {
			return Induction{Kind: Derived, Base: base, Scale: 1, Offset: b.Rhs.Const}, true
		}
		if base, ok := baseOf(b.Rhs); ok && b.Lhs.ValKind == il.ValueConstant {
			return Induction{Kind: Derived, Base: base, Scale: 1, Offset: b.Lhs.Const}, true
		}
	}
	return Induction{}, false
}

// recoverInitial scans every block outside the loop, in ascending id
// order, for the textually-last store to name -- an approximation of
// "scan textually-prior initializations" using this IL's id-ordered
// block list as the program-order proxy.
func recoverInitial(fn *il.Function, inLoop map[int]bool, name string) (int64, bool) {
	var last int64
	found := false
	for _, b := range fn.Blocks() {
		if inLoop[b.ID] {
			continue
		}
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok && s.Name == name {
				if s.Val.ValKind == il.ValueConstant {
					last = s.Val.Const
					found = true
				}
			}
		}
	}
	return last, found
}
