// Package validate implements the IL Validator (spec 4.5): a battery
// of independently-switchable structural, type, SSA, phi, constant-
// range, reachability and module-level checks that every
// transformation pass runs after it finishes.
//
// Grounded on the teacher's FlowAnalyzer (kanso's semantic/
// flow_analyzer.go "afterReturn"/unreachable-code bookkeeping, and its
// "don't abort on first error, keep scanning" loop shape) and on
// internal/errors/semantic_errors.go's named-constructor-per-diagnostic
// idiom, retargeted from semantic AST errors to structural IL errors.
package validate

import (
	"sort"

	"raster/internal/diag"
	"raster/internal/dom"
	"raster/internal/il"
)

// Options toggles each check independently; every field defaults to
// enabled (false == "run this check").
type Options struct {
	SkipTerminators   bool
	SkipCFG           bool
	SkipTypes         bool
	SkipSSA           bool
	SkipPhi           bool
	SkipConstantRange bool
	SkipReachability  bool
	SkipModule        bool
	SkipIntrinsics    bool
}

// Function runs every enabled check against fn, using tree (if
// non-nil) for SSA dominance checks. Returns the diagnostics bag and
// a validity flag (no error-severity diagnostics present).
func Function(module string, fn *il.Function, tree *dom.Tree, opts Options) (*diag.Bag, bool) {
	bag := diag.NewBag()
	coord := func(blockID int, hasBlock bool, instID int, hasInst bool) diag.Coordinate {
		return diag.Coordinate{Module: module, Function: fn.Name, Block: blockID, HasBlock: hasBlock, Instruction: instID, HasInstr: hasInst}
	}

	if !opts.SkipTerminators {
		checkTerminators(fn, coord, bag)
	}
	if !opts.SkipCFG {
		checkCFGSymmetry(fn, coord, bag)
	}
	if !opts.SkipTypes {
		checkTypes(fn, coord, bag)
	}
	if !opts.SkipConstantRange {
		checkConstantRanges(fn, coord, bag)
	}
	if !opts.SkipPhi {
		checkPhiWellFormed(fn, coord, bag)
	}
	if !opts.SkipSSA {
		checkSSA(fn, tree, coord, bag)
	}
	if !opts.SkipReachability {
		checkReachability(fn, tree, coord, bag)
	}
	if !opts.SkipIntrinsics {
		checkIntrinsics(fn, coord, bag)
	}

	return bag, !bag.HasErrors()
}

// Module runs Function over every function in m, plus module-level
// checks (entry point exists, exports resolve).
func Module(m *il.Module, trees map[string]*dom.Tree, opts Options) (*diag.Bag, bool) {
	bag := diag.NewBag()
	for _, name := range sortedNames(m.Functions) {
		fnBag, _ := Function(m.Name, m.Functions[name], trees[name], opts)
		bag.Merge(fnBag)
	}
	if !opts.SkipModule {
		checkModule(m, bag)
	}
	return bag, !bag.HasErrors()
}

func sortedNames(funcs map[string]*il.Function) []string {
	names := make([]string, 0, len(funcs))
	for n := range funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
