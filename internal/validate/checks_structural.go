package validate

import (
	"raster/internal/diag"
	"raster/internal/dom"
	"raster/internal/il"
)

type coordFn func(blockID int, hasBlock bool, instID int, hasInst bool) diag.Coordinate

// checkTerminators verifies that every non-empty block ends with a
// terminator and that no terminator appears anywhere but last.
func checkTerminators(fn *il.Function, coord coordFn, bag *diag.Bag) {
	for _, b := range fn.Blocks() {
		if len(b.Instructions) == 0 {
			continue
		}
		for i, inst := range b.Instructions {
			isLast := i == len(b.Instructions)-1
			_, isTerm := inst.(il.Terminator)
			if isTerm && !isLast {
				bag.Add(diag.New(diag.CodeMisplacedTerminator, coord(b.ID, true, inst.ID(), true),
					"terminator instruction %d is not the last instruction of block %d", inst.ID(), b.ID))
			}
			if isLast && !isTerm {
				bag.Add(diag.New(diag.CodeMissingTerminator, coord(b.ID, true, inst.ID(), true),
					"block %d does not end with a terminator", b.ID))
			}
		}
	}
}

// checkCFGSymmetry verifies P in pred(S) iff S in succ(P), and that
// every referenced target block actually exists.
func checkCFGSymmetry(fn *il.Function, coord coordFn, bag *diag.Bag) {
	for _, b := range fn.Blocks() {
		for _, succ := range b.Succs {
			sb := fn.Block(succ)
			if sb == nil {
				bag.Add(diag.New(diag.CodeUnknownBlockRef, coord(b.ID, true, 0, false),
					"block %d has successor %d which does not exist", b.ID, succ))
				continue
			}
			if !containsInt(sb.Preds, b.ID) {
				bag.Add(diag.New(diag.CodeCFGAsymmetry, coord(b.ID, true, 0, false),
					"block %d lists %d as a successor, but %d does not list %d as a predecessor", b.ID, succ, succ, b.ID))
			}
		}
		for _, pred := range b.Preds {
			pb := fn.Block(pred)
			if pb == nil {
				bag.Add(diag.New(diag.CodeUnknownBlockRef, coord(b.ID, true, 0, false),
					"block %d has predecessor %d which does not exist", b.ID, pred))
				continue
			}
			if !containsInt(pb.Succs, b.ID) {
				bag.Add(diag.New(diag.CodeCFGAsymmetry, coord(b.ID, true, 0, false),
					"block %d lists %d as a predecessor, but %d does not list %d as a successor", b.ID, pred, pred, b.ID))
			}
		}
		if term, ok := b.Terminator(); ok {
			for _, target := range term.Targets() {
				if fn.Block(target) == nil {
					bag.Add(diag.New(diag.CodeUnknownBlockRef, coord(b.ID, true, term.ID(), true),
						"terminator in block %d targets nonexistent block %d", b.ID, target))
				}
			}
		}
	}
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// checkReachability warns on blocks with no path from the entry.
func checkReachability(fn *il.Function, tree *dom.Tree, coord coordFn, bag *diag.Bag) {
	if tree == nil {
		return
	}
	for _, id := range fn.BlockIDs() {
		if !tree.Reachable(id) {
			bag.Add(diag.Warnf(diag.CodeUnreachableBlock, coord(id, true, 0, false),
				"block %d is unreachable from the entry block", id))
		}
	}
}

// checkModule verifies the declared entry point exists and every
// export resolves to a declared function.
func checkModule(m *il.Module, bag *diag.Bag) {
	coord := diag.Coordinate{Module: m.Name}
	if m.EntryFunc != "" {
		if _, ok := m.Functions[m.EntryFunc]; !ok {
			bag.Add(diag.New(diag.CodeEntryBlockMissing, coord,
				"module %q declares entry point %q which is not defined", m.Name, m.EntryFunc))
		}
	}
	for _, exp := range m.Exports {
		if _, ok := m.Functions[exp]; !ok {
			if _, ok := m.Globals[exp]; !ok {
				bag.Add(diag.New(diag.CodeUnknownBlockRef, coord,
					"module %q exports %q which resolves to neither a function nor a global", m.Name, exp))
			}
		}
	}
}
