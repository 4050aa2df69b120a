package dataflow

import (
	"time"

	"github.com/willf/bitset"

	"raster/internal/il"
)

// Def identifies a single store_var site: the block and instruction
// id that wrote a base variable name.
type Def struct {
	Name    string
	BlockID int
	InstID  int
}

// ReachingResult carries, per block, the bitset of definitions live
// on entry (IN) and on exit (OUT), plus the flat Def table the bit
// indices refer to.
type ReachingResult struct {
	Defs []Def // index == bit position
	IN   map[int]*bitset.BitSet
	OUT  map[int]*bitset.BitSet

	Converged  bool
	Iterations int
}

// ReachingDefinitions computes reaching definitions over fn (spec
// 4.6): gen = local defs, kill = other defs of the same base
// variable, IN = union(OUT(preds)), OUT = gen | (IN &^ kill). Block
// iteration is by ascending id and predecessor lists are already
// id-sorted by internal/cfg, satisfying the ordering guarantee of spec
// section 5.
func ReachingDefinitions(fn *il.Function, budget Budget) ReachingResult {
	defs, byName := collectDefs(fn)
	n := uint(len(defs))

	gen := make(map[int]*bitset.BitSet)
	kill := make(map[int]*bitset.BitSet)
	for _, b := range fn.Blocks() {
		gen[b.ID] = bitset.New(n)
		kill[b.ID] = bitset.New(n)
	}
	for idx, d := range defs {
		gen[d.BlockID].Set(uint(idx))
		for _, otherIdx := range byName[d.Name] {
			if otherIdx != idx {
				kill[d.BlockID].Set(uint(otherIdx))
			}
		}
	}

	in := make(map[int]*bitset.BitSet)
	out := make(map[int]*bitset.BitSet)
	for _, b := range fn.Blocks() {
		in[b.ID] = bitset.New(n)
		out[b.ID] = gen[b.ID].Clone()
	}

	res := ReachingResult{Defs: defs, IN: in, OUT: out}
	start := time.Now()
	iter := 0
	for {
		iter++
		changed := false
		for _, b := range fn.Blocks() {
			newIn := bitset.New(n)
			for _, pred := range b.Preds {
				newIn = newIn.Union(out[pred])
			}
			in[b.ID] = newIn

			notKill := kill[b.ID].Complement()
			newOut := gen[b.ID].Union(newIn.Intersection(notKill))
			if !newOut.Equal(out[b.ID]) {
				out[b.ID] = newOut
				changed = true
			}
		}
		if !changed {
			res.Converged = true
			break
		}
		if budget.Exceeded(iter, time.Since(start)) {
			res.Converged = false
			break
		}
	}
	res.IN, res.OUT = in, out
	res.Iterations = iter
	return res
}

// collectDefs scans every store_var in program order (block ascending,
// instruction position ascending) and returns the flat Def slice plus
// a per-name index list into it.
func collectDefs(fn *il.Function) ([]Def, map[string][]int) {
	var defs []Def
	byName := make(map[string][]int)
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			if s, ok := inst.(*il.StoreVarInst); ok {
				idx := len(defs)
				defs = append(defs, Def{Name: s.Name, BlockID: b.ID, InstID: s.InstID})
				byName[s.Name] = append(byName[s.Name], idx)
			}
		}
	}
	return defs, byName
}
