package ssa

import (
	"fmt"

	"raster/internal/dom"
	"raster/internal/il"
)

// VerifyError reports a single SSA invariant violation, with enough
// IL coordinates to point a caller at the offending register/block.
type VerifyError struct {
	Kind    string // "MultipleDefinitions" | "UseNotDominated" | "PhiPredMismatch" | "PhiTypeMismatch" | "DominatedUseMissingPhi"
	Message string
}

func (e *VerifyError) Error() string { return fmt.Sprintf("ssa: %s: %s", e.Kind, e.Message) }

// verifyErrors aggregates every violation found by Verify so a single
// run surfaces all of them rather than stopping at the first.
type verifyErrors struct {
	errs []*VerifyError
}

func (v *verifyErrors) add(kind, format string, args ...any) {
	v.errs = append(v.errs, &VerifyError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (v *verifyErrors) asError() error {
	if len(v.errs) == 0 {
		return nil
	}
	msg := v.errs[0].Error()
	for _, e := range v.errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// Verify checks the four SSA invariants from spec 4.4 step 6 against
// an already-renamed function: single definition per register, every
// use dominated by its definition, phi predecessor-set completeness
// with type-matching sources, and phi-placement completeness (no
// reachable join where two distinct reaching definitions would need a
// phi that wasn't inserted).
func Verify(fn *il.Function, tree *dom.Tree) error {
	var ve verifyErrors

	defBlock := make(map[string]int) // register identity -> defining block
	defInst := make(map[string]int)  // register identity -> position within block (for same-block ordering)

	for _, b := range fn.Blocks() {
		for pos, inst := range b.Instructions {
			res, ok := inst.Result()
			if !ok {
				continue
			}
			key := res.Identity()
			idStr := fmt.Sprint(key)
			if prevBlock, seen := defBlock[idStr]; seen {
				ve.add("MultipleDefinitions", "register %s defined in block %d and again in block %d", res, prevBlock, b.ID)
				continue
			}
			defBlock[idStr] = b.ID
			defInst[idStr] = pos
		}
	}

	for _, b := range fn.Blocks() {
		for pos, inst := range b.Instructions {
			if phi, ok := inst.(*il.PhiInst); ok {
				verifyPhi(fn, phi, b, &ve)
				continue
			}
			for _, op := range inst.Operands() {
				verifyUseDominated(op, b, pos, tree, defBlock, defInst, &ve)
			}
		}
	}

	verifyPhiCompleteness(fn, tree, &ve)

	return ve.asError()
}

func verifyUseDominated(op il.Value, useBlock *il.BasicBlock, usePos int, tree *dom.Tree,
	defBlock map[string]int, defInst map[string]int, ve *verifyErrors) {
	if op.ValKind != il.ValueRegister && !(op.ValKind == il.ValueVar && op.Versioned) {
		return // constant, or a pre-SSA unversioned var reference
	}
	idStr := fmt.Sprint(op.Identity())
	db, ok := defBlock[idStr]
	if !ok {
		ve.add("UseNotDominated", "use of %s in block %d has no recorded definition", op, useBlock.ID)
		return
	}
	if db == useBlock.ID {
		if defInst[idStr] > usePos {
			ve.add("UseNotDominated", "use of %s in block %d precedes its definition textually", op, useBlock.ID)
		}
		return
	}
	if !tree.Dominates(db, useBlock.ID) {
		ve.add("UseNotDominated", "definition of %s in block %d does not dominate its use in block %d", op, db, useBlock.ID)
	}
}

func verifyPhi(fn *il.Function, phi *il.PhiInst, b *il.BasicBlock, ve *verifyErrors) {
	predSet := make(map[int]bool, len(b.Preds))
	for _, p := range b.Preds {
		predSet[p] = true
	}
	sourceSet := make(map[int]bool, len(phi.Sources))
	for _, s := range phi.Sources {
		sourceSet[s.Pred] = true
		if !s.Value.Type.Equal(phi.Res.Type) {
			ve.add("PhiTypeMismatch", "phi %s in block %d has source from block %d of type %s, expected %s",
				phi.Res, b.ID, s.Pred, s.Value.Type, phi.Res.Type)
		}
	}
	if len(predSet) != len(sourceSet) {
		ve.add("PhiPredMismatch", "phi %s in block %d has %d sources for %d predecessors", phi.Res, b.ID, len(sourceSet), len(predSet))
		return
	}
	for p := range predSet {
		if !sourceSet[p] {
			ve.add("PhiPredMismatch", "phi %s in block %d is missing a source for predecessor %d", phi.Res, b.ID, p)
		}
	}
}

// verifyPhiCompleteness re-derives, for every variable with more than
// one reaching store across distinct predecessors of a join, whether a
// phi was actually placed there -- catching the hand-constructed
// counter-example in spec 8.6 (b3 with two predecessors both writing x
// but no phi).
func verifyPhiCompleteness(fn *il.Function, tree *dom.Tree, ve *verifyErrors) {
	// Reconstruct, per block, which base-variable names already have a
	// phi, then scan every block with >=2 predecessors that lacks a
	// phi for a name written in more than one distinct predecessor's
	// dominance region -- that gap is exactly a missing merge.
	lastStoreReachingBlock := make(map[string]map[int]bool) // name -> set of blocks whose reaching def differs

	definedIn := make(map[string]map[int]bool)
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok {
				if definedIn[s.Name] == nil {
					definedIn[s.Name] = make(map[int]bool)
				}
				definedIn[s.Name][b.ID] = true
			}
		}
	}
	_ = lastStoreReachingBlock

	for _, b := range fn.Blocks() {
		if len(b.Preds) < 2 || !tree.Reachable(b.ID) {
			continue
		}
		hasPhi := make(map[string]bool)
		for _, p := range b.Phis() {
			hasPhi[p.Res.VarName] = true
		}
		for name, blocks := range definedIn {
			if hasPhi[name] {
				continue
			}
			frontier := tree.IteratedFrontier(setKeys(blocks))
			for _, f := range frontier {
				if f == b.ID {
					ve.add("DominatedUseMissingPhi", "block %d merges predecessors writing %q but has no phi for it", b.ID, name)
					break
				}
			}
		}
	}
}

func setKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
