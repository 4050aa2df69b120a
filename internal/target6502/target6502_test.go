package target6502

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raster/internal/diag"
	"raster/internal/dom"
	"raster/internal/il"
	"raster/internal/target"
)

// loopFn mirrors spec §8.2's worked example: `let i: byte = 0; while i
// < 10 { i = i + 1; }`, built directly in post-SSA shape (store_var
// kept, operands reference the variable directly rather than through a
// load) the way internal/ssa's renamer leaves a function.
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

func TestInstructionCostMatchesSpecFormula(t *testing.T) {
	bin := &il.BinaryInst{Res: il.Reg(1, il.Byte, ""), Op: il.OpAdd,
		Lhs: il.Var("a", il.Byte), Rhs: il.ConstValue(il.Byte, 1)}
	cost, cat := InstructionCost(bin)
	assert.Equal(t, 8+3+2, cost)
	assert.Equal(t, CategoryBinary, cat)

	store := &il.StoreVarInst{Name: "x", Val: il.ConstValue(il.Byte, 5)}
	cost, cat = InstructionCost(store)
	assert.Equal(t, 5+2, cost)
	assert.Equal(t, CategoryAssignment, cat)

	call := &il.CallInst{Callee: "f", Args: []il.Value{il.ConstValue(il.Byte, 1), il.Var("y", il.Byte)}}
	cost, cat = InstructionCost(call)
	assert.Equal(t, 12+(2+3)+(3+3), cost)
	assert.Equal(t, CategoryCall, cat)
}

func TestEstimateFunctionDerivesLiteralLoopIterations(t *testing.T) {
	fn := loopFn()
	tree := dom.Build(fn)

	est, bag := EstimateFunction(fn, tree)
	require.Len(t, est.Loops, 1)
	assert.Equal(t, 10, est.Loops[0].Iterations)
	assert.False(t, est.Loops[0].Estimated)
	assert.Equal(t, ConfidenceExact, est.Confidence)
	assert.Empty(t, bag.All())
}

func TestEstimateFunctionFlagsDefaultIterationCount(t *testing.T) {
	fn := loopFn()
	// Replace the literal bound with a variable so the bound can no
	// longer be recovered, forcing the default-10 fallback.
	header := fn.Block(1)
	header.Instructions[0].(*il.BinaryInst).Rhs = il.Var("limit", il.Byte)
	tree := dom.Build(fn)

	est, bag := EstimateFunction(fn, tree)
	require.Len(t, est.Loops, 1)
	assert.Equal(t, DefaultLoopIterations, est.Loops[0].Iterations)
	assert.True(t, est.Loops[0].Estimated)
	assert.Equal(t, ConfidenceEstimated, est.Confidence)
	assert.NotEmpty(t, bag.All())
}

func TestRegisterPressureFlagsCallsAsMaxAndSpillCandidates(t *testing.T) {
	call := &il.CallInst{Callee: "f"}
	assert.Equal(t, PressureMax, InstructionPressure(call))
	assert.True(t, IsSpillCandidate(call))

	bin := &il.BinaryInst{Op: il.OpAdd, Lhs: il.ConstValue(il.Byte, 1), Rhs: il.ConstValue(il.Byte, 2)}
	assert.False(t, IsSpillCandidate(bin))
}

func TestValidateZeroPageRejectsReservedOverlap(t *testing.T) {
	cfg := target.DefaultC64PAL()
	bag := ValidateZeroPage(cfg, []ZeroPageAllocation{
		{Name: "cursor", Address: 0x00, Size: 2},
	})
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Errors()[0].Message, "cursor")
}

func TestValidateZeroPageAcceptsSafeRange(t *testing.T) {
	cfg := target.DefaultC64PAL()
	bag := ValidateZeroPage(cfg, []ZeroPageAllocation{
		{Name: "counter", Address: 0x10, Size: 2},
	})
	assert.False(t, bag.HasErrors())
}

func TestClassifyRasterMatchesWorkedExample(t *testing.T) {
	cfg := target.DefaultC64PAL()
	require.Equal(t, 63, cfg.NormalLineCycles())
	require.Equal(t, 23, cfg.BadlineCycles())

	m := ClassifyRaster(cfg, 45, 0)
	assert.True(t, m.RasterSafe)
	assert.False(t, m.BadlineAware)
	assert.Equal(t, RecUseStableRaster, m.Recommendation)

	bag := DiagnoseRaster("f", cfg, m, false)
	require.Len(t, bag.All(), 1)
	assert.Equal(t, diag.SeverityNote, bag.All()[0].Severity)
}

func TestAnalyzeSIDFlagsVoiceConflict(t *testing.T) {
	report := AnalyzeSID([]SIDWrite{
		{Function: "playNote", Address: Voice1Start},
		{Function: "sfxBeep", Address: Voice1Start + 2},
	})
	bag := report.Diagnose()
	require.True(t, bag.HasWarnings())
}

func TestAnalyzeSIDFlagsAllVoicesUsed(t *testing.T) {
	report := AnalyzeSID([]SIDWrite{
		{Function: "player", Address: Voice1Start},
		{Function: "player", Address: Voice2Start},
		{Function: "player", Address: Voice3Start},
	})
	assert.True(t, report.AllVoicesUsed)
	bag := report.Diagnose()
	assert.True(t, len(bag.All()) >= 1)
}
