package validate

import (
	"fmt"

	"raster/internal/diag"
	"raster/internal/dom"
	"raster/internal/il"
)

// checkPhiWellFormed covers spec 4.5's phi bullet: phi instructions
// occupy the block prefix, one source per predecessor, and source
// types match the result type.
func checkPhiWellFormed(fn *il.Function, coord coordFn, bag *diag.Bag) {
	for _, b := range fn.Blocks() {
		seenNonPhi := false
		for _, inst := range b.Instructions {
			phi, isPhi := inst.(*il.PhiInst)
			if !isPhi {
				seenNonPhi = true
				continue
			}
			if seenNonPhi {
				bag.Add(diag.New(diag.CodePhiMisplaced, coord(b.ID, true, phi.ID(), true),
					"phi %d in block %d follows a non-phi instruction", phi.ID(), b.ID))
			}
			predSet := map[int]bool{}
			for _, p := range b.Preds {
				predSet[p] = true
			}
			srcSet := map[int]bool{}
			for _, s := range phi.Sources {
				srcSet[s.Pred] = true
				if !s.Value.Type.Equal(phi.Res.Type) {
					bag.Add(diag.New(diag.CodePhiTypeMismatch, coord(b.ID, true, phi.ID(), true),
						"phi %d source from block %d has type %s, expected %s", phi.ID(), s.Pred, s.Value.Type, phi.Res.Type))
				}
			}
			if len(predSet) != len(srcSet) {
				bag.Add(diag.New(diag.CodePhiPredMismatch, coord(b.ID, true, phi.ID(), true),
					"phi %d in block %d has %d sources for %d predecessors", phi.ID(), b.ID, len(srcSet), len(predSet)))
				continue
			}
			for p := range predSet {
				if !srcSet[p] {
					bag.Add(diag.New(diag.CodePhiPredMismatch, coord(b.ID, true, phi.ID(), true),
						"phi %d in block %d is missing a source for predecessor %d", phi.ID(), b.ID, p))
				}
			}
		}
	}
}

// checkSSA covers spec 4.5's SSA bullet: single definition per
// register, and every use dominated by its definition (textually
// within a block, transitively across blocks via tree). A phi source
// is checked as a use at the end of its predecessor block. A versioned
// phi source with no recorded definition comes from a store_var, which
// carries no result value, so it is not checked.
func checkSSA(fn *il.Function, tree *dom.Tree, coord coordFn, bag *diag.Bag) {
	defBlock := map[string]int{}
	defPos := map[string]int{}
	firstDef := map[string]bool{}

	for _, b := range fn.Blocks() {
		for pos, inst := range b.Instructions {
			res, ok := inst.Result()
			if !ok {
				continue
			}
			key := fmt.Sprint(res.Identity())
			if firstDef[key] {
				bag.Add(diag.New(diag.CodeMultipleDefinitions, coord(b.ID, true, inst.ID(), true),
					"register %s is defined more than once (previously in block %d)", res, defBlock[key]))
				continue
			}
			firstDef[key] = true
			defBlock[key] = b.ID
			defPos[key] = pos
		}
	}

	if tree == nil {
		return // dominance checks need dominators; skip (spec 7's Prerequisite category)
	}

	for _, b := range fn.Blocks() {
		for pos, inst := range b.Instructions {
			if phi, isPhi := inst.(*il.PhiInst); isPhi {
				for _, s := range phi.Sources {
					if _, ok := defBlock[fmt.Sprint(s.Value.Identity())]; !ok && s.Value.ValKind == il.ValueVar {
						continue
					}
					checkUseDominated(s.Value, s.Pred, -1, tree, defBlock, defPos, coord, bag)
				}
				continue
			}
			for _, op := range inst.Operands() {
				checkUseDominated(op, b.ID, pos, tree, defBlock, defPos, coord, bag)
			}
		}
	}
}

func checkUseDominated(v il.Value, useBlock, usePos int, tree *dom.Tree, defBlock, defPos map[string]int, coord coordFn, bag *diag.Bag) {
	if v.ValKind != il.ValueRegister && !(v.ValKind == il.ValueVar && v.Versioned) {
		return
	}
	key := fmt.Sprint(v.Identity())
	db, ok := defBlock[key]
	if !ok {
		bag.Add(diag.New(diag.CodeUseNotDominated, coord(useBlock, true, 0, false),
			"use of %s in block %d has no recorded definition", v, useBlock))
		return
	}
	if db == useBlock {
		if usePos >= 0 && defPos[key] > usePos {
			bag.Add(diag.New(diag.CodeUseBeforeDef, coord(useBlock, true, 0, false),
				"use of %s in block %d precedes its definition", v, useBlock))
		}
		return
	}
	if !tree.Dominates(db, useBlock) {
		bag.Add(diag.New(diag.CodeUseNotDominated, coord(useBlock, true, 0, false),
			"definition of %s in block %d does not dominate use in block %d", v, db, useBlock))
	}
}
