package dom

import (
	"testing"

	"raster/internal/il"
)

// diamond builds: 0 -> {1,2} -> 3, the textbook dominator example.
func diamond() *il.Function {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0}
	b1 := &il.BasicBlock{ID: 1}
	b2 := &il.BasicBlock{ID: 2}
	b3 := &il.BasicBlock{ID: 3}
	b0.AddSucc(1)
	b0.AddSucc(2)
	b1.AddPred(0)
	b1.AddSucc(3)
	b2.AddPred(0)
	b2.AddSucc(3)
	b3.AddPred(1)
	b3.AddPred(2)
	fn.AddBlock(b0)
	fn.AddBlock(b1)
	fn.AddBlock(b2)
	fn.AddBlock(b3)
	return fn
}

// loopy builds a single natural loop: 0 -> 1 -> 2 -> 1 (back edge), 2 -> 3.
func loopy() *il.Function {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0}
	b1 := &il.BasicBlock{ID: 1}
	b2 := &il.BasicBlock{ID: 2}
	b3 := &il.BasicBlock{ID: 3}
	b0.AddSucc(1)
	b1.AddPred(0)
	b1.AddPred(2)
	b1.AddSucc(2)
	b2.AddPred(1)
	b2.AddSucc(1)
	b2.AddSucc(3)
	b3.AddPred(2)
	fn.AddBlock(b0)
	fn.AddBlock(b1)
	fn.AddBlock(b2)
	fn.AddBlock(b3)
	return fn
}

func TestImmediateDominators(t *testing.T) {
	fn := diamond()
	tree := Build(fn)

	cases := map[int]int{1: 0, 2: 0, 3: 0}
	for id, want := range cases {
		got, ok := tree.IDom(id)
		if !ok || got != want {
			t.Fatalf("IDom(%d) = %d, %v; want %d, true", id, got, ok, want)
		}
	}
	if _, ok := tree.IDom(0); ok {
		t.Fatal("entry block should report no idom")
	}
}

func TestDominatesTransitive(t *testing.T) {
	fn := diamond()
	tree := Build(fn)
	if !tree.Dominates(0, 3) {
		t.Fatal("entry should dominate the merge block")
	}
	if tree.Dominates(1, 2) || tree.Dominates(2, 1) {
		t.Fatal("sibling branches should not dominate each other")
	}
	if !tree.Dominates(3, 3) {
		t.Fatal("a block should dominate itself")
	}
}

func TestDominanceFrontierAtMerge(t *testing.T) {
	fn := diamond()
	tree := Build(fn)
	// Block 3 has two preds (1 and 2), neither of which strictly
	// dominates it, so it belongs to both their frontiers.
	f1 := tree.Frontier(1)
	f2 := tree.Frontier(2)
	if len(f1) != 1 || f1[0] != 3 {
		t.Fatalf("Frontier(1) = %v, want [3]", f1)
	}
	if len(f2) != 1 || f2[0] != 3 {
		t.Fatalf("Frontier(2) = %v, want [3]", f2)
	}
	if len(tree.Frontier(0)) != 0 {
		t.Fatalf("Frontier(0) = %v, want empty", tree.Frontier(0))
	}
}

func TestIteratedFrontierFixedPoint(t *testing.T) {
	fn := diamond()
	tree := Build(fn)
	df := tree.IteratedFrontier([]int{1, 2})
	if len(df) != 1 || df[0] != 3 {
		t.Fatalf("IteratedFrontier({1,2}) = %v, want [3]", df)
	}
}

func TestBackEdgeDetection(t *testing.T) {
	fn := loopy()
	tree := Build(fn)
	edges := tree.BackEdges()
	if len(edges) != 1 || edges[0] != (BackEdge{Tail: 2, Head: 1}) {
		t.Fatalf("BackEdges() = %v, want [{Tail:2 Head:1}]", edges)
	}
}

func TestNaturalLoopMembership(t *testing.T) {
	fn := loopy()
	tree := Build(fn)
	loop := tree.NaturalLoop(BackEdge{Tail: 2, Head: 1})
	want := []int{1, 2}
	if len(loop) != len(want) {
		t.Fatalf("NaturalLoop = %v, want %v", loop, want)
	}
	for i := range want {
		if loop[i] != want[i] {
			t.Fatalf("NaturalLoop = %v, want %v", loop, want)
		}
	}
}

func TestReducibleDiamondAndLoop(t *testing.T) {
	if !Build(diamond()).IsReducible() {
		t.Fatal("diamond CFG should be reducible")
	}
	if !Build(loopy()).IsReducible() {
		t.Fatal("single natural loop should be reducible")
	}
}

func TestIrreducibleCFGDetected(t *testing.T) {
	// Two mutually entered blocks 1 and 2, both reachable from 0, each
	// branching into the other -- a loop with two entries, the
	// textbook irreducible construct.
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0}
	b1 := &il.BasicBlock{ID: 1}
	b2 := &il.BasicBlock{ID: 2}
	b0.AddSucc(1)
	b0.AddSucc(2)
	b1.AddPred(0)
	b1.AddPred(2)
	b1.AddSucc(2)
	b2.AddPred(0)
	b2.AddPred(1)
	b2.AddSucc(1)
	fn.AddBlock(b0)
	fn.AddBlock(b1)
	fn.AddBlock(b2)

	if Build(fn).IsReducible() {
		t.Fatal("mutually-entered two-block loop should be irreducible")
	}
}
