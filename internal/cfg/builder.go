// Package cfg partitions a flat, front-end-produced instruction stream
// into basic blocks and wires the control-flow edges between them. It
// is the first pass in the pipeline: every later pass (dominators,
// SSA, dataflow, target analysis) assumes it has already run.
//
// The front end hands this package a single []il.Instruction per
// function in program order, with branch/jump/return targets
// expressed as *instruction-stream indices* rather than block ids --
// there are no blocks yet, so there is nothing else a target could
// name. Build partitions that stream at the natural leader points
// (first instruction, any branch/jump/return target, the instruction
// following a terminator) and rewrites every target to the block id
// of its containing block.
package cfg

import (
	"sort"

	"raster/internal/diag"
	"raster/internal/il"
)

// Result carries the structural facts the builder produces alongside
// the il.Function itself.
type Result struct {
	ExitBlocks []int
	// Reducible is a conservative true by construction (spec's Open
	// Question allows this default). Nothing overwrites it: the
	// back-edge-based verdict is (*dom.Tree).IsReducible, which is not
	// written back into this field.
	Reducible bool
}

// Build partitions flat into basic blocks and wires their edges,
// returning the constructed function, structural facts, and any
// diagnostics raised along the way (a missing terminator on the final
// block, or a target index outside the stream).
func Build(name string, params []il.Parameter, ret il.Type, flat []il.Instruction) (*il.Function, Result, *diag.Bag) {
	bag := diag.NewBag()
	coord := func() diag.Coordinate { return diag.Coordinate{Function: name} }

	if len(flat) == 0 {
		bag.Add(diag.Notef(diag.CodeEmptyFunctionAccepted, coord(), "function %q has no instructions", name))
		fn := il.NewFunction(name, params, ret)
		return fn, Result{Reducible: true}, bag
	}

	leaders := collectLeaders(flat, bag, coord)
	blockOf := assignBlockIDs(leaders, len(flat))

	fn := il.NewFunction(name, params, ret)
	fn.EntryID = blockOf[0]

	for i, start := range leaders {
		end := len(flat)
		if i+1 < len(leaders) {
			end = leaders[i+1]
		}
		id := blockOf[start]
		block := &il.BasicBlock{ID: id, Instructions: append([]il.Instruction(nil), flat[start:end]...)}
		rewriteTargets(block, blockOf)
		ensureTerminated(block, id, leaders, blockOf, i, coord, bag)
		fn.AddBlock(block)
	}

	wireEdges(fn)

	res := Result{ExitBlocks: fn.ExitBlockIDs(), Reducible: true}
	return fn, res, bag
}

// collectLeaders finds every instruction-stream index that starts a
// new block: index 0, the instruction after a terminator, and every
// index named as a branch/jump/return_void target.
func collectLeaders(flat []il.Instruction, bag *diag.Bag, coord func() diag.Coordinate) []int {
	isLeader := make(map[int]bool)
	isLeader[0] = true

	for i, inst := range flat {
		if term, ok := inst.(il.Terminator); ok {
			for _, target := range term.Targets() {
				if target < 0 || target >= len(flat) {
					bag.Add(diag.New(diag.CodeUnknownBlockRef, coord(), "terminator at instruction %d targets out-of-range index %d", i, target))
					continue
				}
				isLeader[target] = true
			}
			if i+1 < len(flat) {
				isLeader[i+1] = true
			}
		}
	}

	leaders := make([]int, 0, len(isLeader))
	for idx := range isLeader {
		leaders = append(leaders, idx)
	}
	sort.Ints(leaders)
	return leaders
}

// assignBlockIDs maps every instruction index to the id of the block
// it falls within. Block ids are assigned in leader order, 0-based, so
// the entry block (leaders[0] == 0) always receives id 0.
func assignBlockIDs(leaders []int, streamLen int) map[int]int {
	blockOf := make(map[int]int, streamLen)
	for blockID, start := range leaders {
		end := streamLen
		if blockID+1 < len(leaders) {
			end = leaders[blockID+1]
		}
		for i := start; i < end; i++ {
			blockOf[i] = blockID
		}
	}
	return blockOf
}

// rewriteTargets mutates a terminator's target fields in place from
// instruction-stream indices to block ids. Non-terminator instructions
// are untouched.
func rewriteTargets(block *il.BasicBlock, blockOf map[int]int) {
	if len(block.Instructions) == 0 {
		return
	}
	last := block.Instructions[len(block.Instructions)-1]
	switch t := last.(type) {
	case *il.BranchInst:
		t.ThenBlk = blockOf[t.ThenBlk]
		t.ElseBlk = blockOf[t.ElseBlk]
	case *il.JumpInst:
		t.Target = blockOf[t.Target]
	}
}

// ensureTerminated appends a synthetic fall-through jump when a block
// (other than the last) does not end in a terminator -- permitted
// transiently by the front-end contract -- and reports a structural
// diagnostic when the very last block of the stream falls off the end
// unterminated.
func ensureTerminated(block *il.BasicBlock, id int, leaders []int, blockOf map[int]int, leaderIdx int, coord func() diag.Coordinate, bag *diag.Bag) {
	if _, ok := block.Terminator(); ok {
		return
	}
	if leaderIdx+1 < len(leaders) {
		nextID := blockOf[leaders[leaderIdx+1]]
		block.Instructions = append(block.Instructions, &il.JumpInst{Blk: id, Target: nextID})
		return
	}
	bag.Add(diag.New(diag.CodeMissingTerminator, coord(), "block %d falls off the end of the instruction stream without a terminator", id))
}

// wireEdges derives Preds/Succs for every block from its terminator's
// Targets().
func wireEdges(fn *il.Function) {
	for _, b := range fn.Blocks() {
		term, ok := b.Terminator()
		if !ok {
			continue
		}
		for _, target := range term.Targets() {
			b.AddSucc(target)
			if succ := fn.Block(target); succ != nil {
				succ.AddPred(b.ID)
			}
		}
	}
}
