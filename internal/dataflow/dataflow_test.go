package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raster/internal/dom"
	"raster/internal/il"
)

// diamondFn builds the same fixture ssa_test.go and validate_test.go
// use: b0 branches to b1/b2, both store x, b3 merges and reads it.
func diamondFn() *il.Function {
	fn := il.NewFunction("f", nil, il.Byte)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.BranchInst{InstID: 0, Blk: 0, Cond: il.ConstValue(il.Bool, 1), ThenBlk: 1, ElseBlk: 2},
	}}
	b1 := &il.BasicBlock{ID: 1, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 1, Blk: 1, Name: "x", Val: il.ConstValue(il.Byte, 1)},
		&il.JumpInst{InstID: 2, Blk: 1, Target: 3},
	}}
	b2 := &il.BasicBlock{ID: 2, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 3, Blk: 2, Name: "x", Val: il.ConstValue(il.Byte, 2)},
		&il.JumpInst{InstID: 4, Blk: 2, Target: 3},
	}}
	b3 := &il.BasicBlock{ID: 3, Instructions: []il.Instruction{
		&il.LoadVarInst{InstID: 5, Blk: 3, Res: il.Reg(100, il.Byte, "xload"), Name: "x"},
		&il.ReturnInst{InstID: 6, Blk: 3, Val: il.Reg(100, il.Byte, "xload")},
	}}
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

func TestReachingDefinitionsConverges(t *testing.T) {
	fn := diamondFn()
	res := ReachingDefinitions(fn, DefaultBudget())
	require.True(t, res.Converged)
	assert.Len(t, res.Defs, 2) // the two stores to x

	b3 := fn.Block(3)
	in := res.IN[b3.ID]
	assert.Equal(t, uint(2), in.Count(), "both predecessor defs of x reach the merge block")
}

func TestLivenessCarriesRegisterAcrossBlockBoundary(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	r1 := il.Reg(1, il.Byte, "r1")
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.LoadConstInst{InstID: 0, Blk: 0, Res: r1, Value_: il.ConstValue(il.Byte, 9)},
		&il.JumpInst{InstID: 1, Blk: 0, Target: 1},
	}}
	b1 := &il.BasicBlock{ID: 1, Instructions: []il.Instruction{
		&il.ReturnInst{InstID: 2, Blk: 1, Val: r1},
	}}
	b0.AddSucc(1)
	b1.AddPred(0)
	fn.AddBlock(b0)
	fn.AddBlock(b1)

	res := Liveness(fn, DefaultBudget())
	require.True(t, res.Converged)
	assert.EqualValues(t, 1, res.LiveOut[b0.ID].Count(), "r1 is defined in b0 and consumed in b1")
	assert.EqualValues(t, 1, res.LiveIn[b1.ID].Count())
}

func TestConstantPropagationFoldsBinary(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 0, Blk: 0, Res: il.Reg(1, il.Byte, "sum"), Op: il.OpAdd,
			Lhs: il.ConstValue(il.Byte, 2), Rhs: il.ConstValue(il.Byte, 3)},
		&il.ReturnInst{InstID: 1, Blk: 0, Val: il.Reg(1, il.Byte, "sum")},
	}}
	fn.AddBlock(b0)

	res := ConstantPropagation(fn, DefaultBudget())
	lv, ok := res.Values["r1"]
	require.True(t, ok)
	assert.Equal(t, Const, lv.State)
	assert.EqualValues(t, 5, lv.Value)
}

func TestConstantPropagationMarksDeadEdge(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.BranchInst{InstID: 0, Blk: 0, Cond: il.ConstValue(il.Bool, 1), ThenBlk: 1, ElseBlk: 2},
	}}
	b1 := &il.BasicBlock{ID: 1, Instructions: []il.Instruction{&il.ReturnVoidInst{InstID: 1, Blk: 1}}}
	b2 := &il.BasicBlock{ID: 2, Instructions: []il.Instruction{&il.ReturnVoidInst{InstID: 2, Blk: 2}}}
	b0.AddSucc(1)
	b0.AddSucc(2)
	fn.AddBlock(b0)
	fn.AddBlock(b1)
	fn.AddBlock(b2)

	res := ConstantPropagation(fn, DefaultBudget())
	dead, ok := res.DeadEdges[0]
	require.True(t, ok)
	assert.Equal(t, 2, dead, "condition is always true, so the else edge is dead")
}

func TestAliasAnalysisGivesScalarsSingletonClasses(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 0, Blk: 0, Name: "x", Val: il.ConstValue(il.Byte, 1)},
		&il.StoreVarInst{InstID: 1, Blk: 0, Name: "y", Val: il.ConstValue(il.Byte, 2)},
		&il.ReturnVoidInst{InstID: 2, Blk: 0},
	}}
	fn.AddBlock(b0)

	res := AliasAnalysis(fn)
	xc, xok := res.ClassOf["x"]
	yc, yok := res.ClassOf["y"]
	require.True(t, xok)
	require.True(t, yok)
	assert.NotEqual(t, xc, yc)
}

func TestPurityClassifiesPokeAsImpure(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.IntrinsicInst{InstID: 0, Blk: 0, Name: "poke", SideEffect: true,
			Args: []il.Value{il.ConstValue(il.Word, 0xD020), il.ConstValue(il.Byte, 0)}},
		&il.ReturnVoidInst{InstID: 1, Blk: 0},
	}}
	fn.AddBlock(b0)

	res := ClassifyPurity(fn)
	assert.Equal(t, Impure, res.Class)
}

func TestPurityClassifiesArithmeticAsPure(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 0, Blk: 0, Res: il.Reg(1, il.Byte, "r"), Op: il.OpAdd,
			Lhs: il.ConstValue(il.Byte, 1), Rhs: il.ConstValue(il.Byte, 2)},
		&il.ReturnInst{InstID: 1, Blk: 0, Val: il.Reg(1, il.Byte, "r")},
	}}
	fn.AddBlock(b0)

	res := ClassifyPurity(fn)
	assert.Equal(t, Pure, res.Class)
}

// TestPurityClassifiesLocalStoreVarAsPure reproduces spec §8.2's
// canonical counting loop (`let i: byte = 0; while i < 10 { i = i + 1;
// }`, the same scenario orchestrator_test.go's loopFlat() and
// target6502_test.go's loopFn() build): i is a local that is never
// read or written outside fn, so per spec 4.6 ("Pure functions read
// and write nothing but their own locals and return value") the
// function must classify as Pure despite its StoreVarInst/LoadVarInst
// traffic.
func TestPurityClassifiesLocalStoreVarAsPure(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Void)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 0, Blk: 0, Name: "i", Val: il.ConstValue(il.Byte, 0)},
		&il.JumpInst{InstID: 1, Blk: 0, Target: 1},
	}}
	header := &il.BasicBlock{ID: 1, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 2, Blk: 1, Res: il.Reg(10, il.Bool, "cond"), Op: il.OpLt,
			Lhs: il.Var("i", il.Byte), Rhs: il.ConstValue(il.Byte, 10)},
		&il.BranchInst{InstID: 3, Blk: 1, Cond: il.Reg(10, il.Bool, "cond"), ThenBlk: 2, ElseBlk: 3},
	}}
	body := &il.BasicBlock{ID: 2, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 4, Blk: 2, Res: il.Reg(11, il.Byte, "next"), Op: il.OpAdd,
			Lhs: il.Var("i", il.Byte), Rhs: il.ConstValue(il.Byte, 1)},
		&il.StoreVarInst{InstID: 5, Blk: 2, Name: "i", Val: il.Reg(11, il.Byte, "next")},
		&il.JumpInst{InstID: 6, Blk: 2, Target: 1},
	}}
	exit := &il.BasicBlock{ID: 3, Instructions: []il.Instruction{
		&il.ReturnVoidInst{InstID: 7, Blk: 3},
	}}
	fn.AddBlock(b0)
	fn.AddBlock(header)
	fn.AddBlock(body)
	fn.AddBlock(exit)

	res := ClassifyPurity(fn)
	assert.Equal(t, Pure, res.Class, res.Reason)
}

func TestEscapeAnalysisMarksReturnedVariable(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 0, Blk: 0, Name: "x", Val: il.ConstValue(il.Byte, 1)},
		&il.ReturnInst{InstID: 1, Blk: 0, Val: il.Var("x", il.Byte)},
	}}
	fn.AddBlock(b0)

	res := EscapeAnalysis(fn)
	assert.True(t, res.Escapes["x"])
}

func TestGVNCollapsesCommutativeDuplicate(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	a := il.Reg(1, il.Byte, "a")
	b := il.Reg(2, il.Byte, "b")
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.LoadConstInst{InstID: 0, Blk: 0, Res: a, Value_: il.ConstValue(il.Byte, 7)},
		&il.LoadConstInst{InstID: 1, Blk: 0, Res: b, Value_: il.ConstValue(il.Byte, 9)},
		&il.BinaryInst{InstID: 2, Blk: 0, Res: il.Reg(3, il.Byte, "s1"), Op: il.OpAdd, Lhs: a, Rhs: b},
		&il.BinaryInst{InstID: 3, Blk: 0, Res: il.Reg(4, il.Byte, "s2"), Op: il.OpAdd, Lhs: b, Rhs: a},
		&il.ReturnInst{InstID: 4, Blk: 0, Val: il.Reg(4, il.Byte, "s2")},
	}}
	fn.AddBlock(b0)

	res := GVN(fn)
	replacement, ok := res.Redundant["r4"]
	require.True(t, ok, "a+b and b+a must collapse to the same value number")
	assert.Equal(t, "r3", replacement)
}

func TestCSEFindsRepeatedExpressionWithinDominatedScope(t *testing.T) {
	fn := il.NewFunction("f", nil, il.Byte)
	a := il.Reg(1, il.Byte, "a")
	b0 := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.LoadConstInst{InstID: 0, Blk: 0, Res: a, Value_: il.ConstValue(il.Byte, 4)},
		&il.BinaryInst{InstID: 1, Blk: 0, Res: il.Reg(2, il.Byte, "s1"), Op: il.OpAdd, Lhs: a, Rhs: il.ConstValue(il.Byte, 1)},
		&il.BinaryInst{InstID: 2, Blk: 0, Res: il.Reg(3, il.Byte, "s2"), Op: il.OpAdd, Lhs: a, Rhs: il.ConstValue(il.Byte, 1)},
		&il.ReturnInst{InstID: 3, Blk: 0, Val: il.Reg(3, il.Byte, "s2")},
	}}
	fn.AddBlock(b0)
	tree := dom.Build(fn)

	res := CSE(fn, tree)
	cand, ok := res.Candidates["r3"]
	require.True(t, ok)
	assert.Equal(t, "r2", cand.ReplaceWith)
}

// loopFn builds spec 8's worked example 2: `let i: byte = 0; while i
// < 10 { i = i + 1; }` -- entry initializes i, header tests it,
// the body increments and loops back. Variable reads are written
// directly as il.Var references (the shape the SSA renamer leaves
// behind once load_var instructions are substituted away), since loop
// analysis runs after SSA construction.
func loopFn() *il.Function {
	fn := il.NewFunction("f", nil, il.Void)
	entry := &il.BasicBlock{ID: 0, Instructions: []il.Instruction{
		&il.StoreVarInst{InstID: 0, Blk: 0, Name: "i", Val: il.ConstValue(il.Byte, 0)},
		&il.JumpInst{InstID: 1, Blk: 0, Target: 1},
	}}
	header := &il.BasicBlock{ID: 1, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 3, Blk: 1, Res: il.Reg(11, il.Bool, "cond"), Op: il.OpLt,
			Lhs: il.Var("i", il.Byte), Rhs: il.ConstValue(il.Byte, 10)},
		&il.BranchInst{InstID: 4, Blk: 1, Cond: il.Reg(11, il.Bool, "cond"), ThenBlk: 2, ElseBlk: 3},
	}}
	body := &il.BasicBlock{ID: 2, Instructions: []il.Instruction{
		&il.BinaryInst{InstID: 6, Blk: 2, Res: il.Reg(13, il.Byte, "inc"), Op: il.OpAdd,
			Lhs: il.Var("i", il.Byte), Rhs: il.ConstValue(il.Byte, 1)},
		&il.StoreVarInst{InstID: 7, Blk: 2, Name: "i", Val: il.Reg(13, il.Byte, "inc")},
		&il.JumpInst{InstID: 8, Blk: 2, Target: 1},
	}}
	exit := &il.BasicBlock{ID: 3, Instructions: []il.Instruction{&il.ReturnVoidInst{InstID: 9, Blk: 3}}}

	entry.AddSucc(1)
	header.AddPred(0)
	header.AddPred(2)
	header.AddSucc(2)
	header.AddSucc(3)
	body.AddPred(1)
	body.AddSucc(1)
	exit.AddPred(1)

	fn.AddBlock(entry)
	fn.AddBlock(header)
	fn.AddBlock(body)
	fn.AddBlock(exit)
	return fn
}

func TestAnalyzeLoopsFindsBasicInductionVariable(t *testing.T) {
	fn := loopFn()
	tree := dom.Build(fn)

	res := AnalyzeLoops(fn, tree)
	require.Len(t, res.Loops, 1)
	loop := res.Loops[0]
	assert.Equal(t, 1, loop.Header)

	ind, ok := loop.Inductions["i"]
	require.True(t, ok, "i must be classified as an induction variable")
	assert.Equal(t, Basic, ind.Kind)
	assert.EqualValues(t, 1, ind.Offset)
	assert.True(t, ind.HasInitial)
	assert.EqualValues(t, 0, ind.Initial)
}
