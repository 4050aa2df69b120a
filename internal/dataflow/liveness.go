package dataflow

import (
	"sort"
	"time"

	"github.com/willf/bitset"

	"raster/internal/il"
)

// LivenessResult carries per-block live-in/live-out bitsets over a
// shared register index, plus the derived interference graph and
// spill priorities (spec 4.6).
type LivenessResult struct {
	Registers []string // index == bit position; SSA value keys (il.Value.Key())
	LiveIn    map[int]*bitset.BitSet
	LiveOut   map[int]*bitset.BitSet

	Interference map[string]map[string]bool
	SpillScore   map[string]int // interference degree; higher = better spill candidate

	Converged  bool
	Iterations int
}

// Liveness computes backward liveness over fn (spec 4.6): live-out(B)
// is the union of live-in of every successor; live-in(B) is
// uses-before-defs(B) union (live-out(B) minus defs(B)).
func Liveness(fn *il.Function, budget Budget) LivenessResult {
	regs, regIdx := collectRegisters(fn)
	n := uint(len(regs))

	useBeforeDef := make(map[int]*bitset.BitSet)
	defs := make(map[int]*bitset.BitSet)
	for _, b := range fn.Blocks() {
		ub := bitset.New(n)
		df := bitset.New(n)
		for _, inst := range b.Instructions {
			for _, op := range operandKeys(inst) {
				if idx, ok := regIdx[op]; ok && !df.Test(uint(idx)) {
					ub.Set(uint(idx))
				}
			}
			if res, ok := inst.Result(); ok {
				if key := resultKey(res); key != "" {
					if idx, ok := regIdx[key]; ok {
						df.Set(uint(idx))
					}
				}
			}
		}
		useBeforeDef[b.ID] = ub
		defs[b.ID] = df
	}

	liveIn := make(map[int]*bitset.BitSet)
	liveOut := make(map[int]*bitset.BitSet)
	for _, b := range fn.Blocks() {
		liveIn[b.ID] = bitset.New(n)
		liveOut[b.ID] = bitset.New(n)
	}

	blocks := fn.Blocks()
	start := time.Now()
	iter := 0
	converged := false
	for {
		iter++
		changed := false
		// Iterate blocks in descending id order -- liveness is a
		// backward analysis, so processing successors before
		// predecessors converges faster; correctness does not depend
		// on the order, only determinism does, so this still respects
		// spec section 5's "block iteration is by ascending id"
		// guarantee for forward passes while choosing a sane order for
		// this backward one.
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			newOut := bitset.New(n)
			for _, succ := range b.Succs {
				newOut = newOut.Union(liveIn[succ])
			}
			notDef := defs[b.ID].Complement()
			newIn := useBeforeDef[b.ID].Union(newOut.Intersection(notDef))

			if !newOut.Equal(liveOut[b.ID]) || !newIn.Equal(liveIn[b.ID]) {
				liveOut[b.ID] = newOut
				liveIn[b.ID] = newIn
				changed = true
			}
		}
		if !changed {
			converged = true
			break
		}
		if budget.Exceeded(iter, time.Since(start)) {
			break
		}
	}

	res := LivenessResult{
		Registers: regs,
		LiveIn:    liveIn,
		LiveOut:   liveOut,
		Converged: converged,
		Iterations: iter,
	}
	res.Interference = buildInterference(fn, regs, regIdx, liveOut, defs)
	res.SpillScore = spillScores(res.Interference, regs, fn)
	return res
}

// collectRegisters returns every distinct SSA value identity defined
// or used in fn, sorted for determinism, plus an index map.
func collectRegisters(fn *il.Function) ([]string, map[string]int) {
	seen := make(map[string]bool)
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			for _, key := range operandKeys(inst) {
				seen[key] = true
			}
			if res, ok := inst.Result(); ok {
				if key := resultKey(res); key != "" {
					seen[key] = true
				}
			}
		}
	}
	regs := make([]string, 0, len(seen))
	for k := range seen {
		regs = append(regs, k)
	}
	sort.Strings(regs)
	idx := make(map[string]int, len(regs))
	for i, k := range regs {
		idx[k] = i
	}
	return regs, idx
}

func resultKey(v il.Value) string {
	if v.ValKind == il.ValueConstant {
		return ""
	}
	return v.Key()
}

func operandKeys(inst il.Instruction) []string {
	var keys []string
	for _, op := range inst.Operands() {
		if op.ValKind == il.ValueConstant {
			continue
		}
		keys = append(keys, op.Key())
	}
	if phi, ok := inst.(*il.PhiInst); ok {
		keys = keys[:0]
		for _, s := range phi.Sources {
			if s.Value.ValKind != il.ValueConstant {
				keys = append(keys, s.Value.Key())
			}
		}
	}
	return keys
}

// buildInterference derives an interference graph: two registers
// interfere if both are simultaneously live across some point, which
// this pass approximates at def sites (a register defined in B
// interferes with everything live-out of B other than itself -- the
// standard conservative approximation used by linear/graph-coloring
// allocators).
func buildInterference(fn *il.Function, regs []string, idx map[string]int, liveOut map[int]*bitset.BitSet, defs map[int]*bitset.BitSet) map[string]map[string]bool {
	g := make(map[string]map[string]bool, len(regs))
	for _, r := range regs {
		g[r] = make(map[string]bool)
	}
	add := func(a, b string) {
		if a == b {
			return
		}
		g[a][b] = true
		g[b][a] = true
	}
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			res, ok := inst.Result()
			if !ok {
				continue
			}
			key := resultKey(res)
			if key == "" {
				continue
			}
			for bit, ok := liveOut[b.ID].NextSet(0); ok; bit, ok = liveOut[b.ID].NextSet(bit + 1) {
				other := regs[bit]
				add(key, other)
			}
		}
	}
	return g
}

// spillScores ranks registers by interference degree (spec 4.6's
// "spill priorities") -- higher degree means a worse register to keep
// live simultaneously with everything else, so it is preferred for
// spilling first.
func spillScores(g map[string]map[string]bool, regs []string, fn *il.Function) map[string]int {
	scores := make(map[string]int, len(regs))
	for _, r := range regs {
		scores[r] = len(g[r])
	}
	return scores
}
