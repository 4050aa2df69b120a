package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raster/internal/dataflow"
	"raster/internal/il"
)

// loopFlat is spec §8.2's worked example (`let i: byte = 0; while i <
// 10 { i = i + 1; }`) expressed as a flat pre-SSA instruction stream,
// the shape cfg.Build expects straight from the front end.
func loopFlat() []il.Instruction {
	return []il.Instruction{
		&il.StoreVarInst{InstID: 0, Name: "i", Val: il.ConstValue(il.Byte, 0)},
		&il.LoadVarInst{InstID: 1, Res: il.Reg(1, il.Byte, "i0"), Name: "i"},
		&il.BinaryInst{InstID: 2, Res: il.Reg(2, il.Bool, "cond"), Op: il.OpLt,
			Lhs: il.Reg(1, il.Byte, "i0"), Rhs: il.ConstValue(il.Byte, 10)},
		&il.BranchInst{InstID: 3, Cond: il.Reg(2, il.Bool, "cond"), ThenBlk: 4, ElseBlk: 8},
		&il.LoadVarInst{InstID: 4, Res: il.Reg(3, il.Byte, "i1"), Name: "i"},
		&il.BinaryInst{InstID: 5, Res: il.Reg(4, il.Byte, "inc"), Op: il.OpAdd,
			Lhs: il.Reg(3, il.Byte, "i1"), Rhs: il.ConstValue(il.Byte, 1)},
		&il.StoreVarInst{InstID: 6, Name: "i", Val: il.Reg(4, il.Byte, "inc")},
		&il.JumpInst{InstID: 7, Target: 1},
		&il.ReturnVoidInst{InstID: 8},
	}
}

func TestRunBuildsFullPipelineAndAggregatesDiagnostics(t *testing.T) {
	result := Run("loop", nil, il.Void, loopFlat(), Options{})

	require.NotNil(t, result.Function)
	assert.NotNil(t, result.Dom)
	assert.False(t, result.HasErrors())
	assert.NotZero(t, result.Estimate.Worst)
	// i is a local never read or written outside this function, so per
	// spec 4.6 the whole pipeline must classify it Pure end to end.
	assert.Equal(t, dataflow.Pure, result.Purity.Class, result.Purity.Reason)
}

func TestRunSkipsTargetAnalysesWhenRequested(t *testing.T) {
	result := Run("loop", nil, il.Void, loopFlat(), Options{SkipTarget: true})

	assert.Zero(t, result.Estimate.Worst)
	assert.False(t, result.HasErrors())
}

func TestRunReportsPrerequisiteDiagnosticOnEmptyInput(t *testing.T) {
	result := Run("empty", nil, il.Void, nil, Options{})

	assert.True(t, result.HasErrors() || len(result.Diagnostics().All()) > 0)
}

func TestRunTracesEachPassWhenTracefSet(t *testing.T) {
	var lines []string
	Run("loop", nil, il.Void, loopFlat(), Options{
		Tracef: func(format string, args ...any) { lines = append(lines, format) },
	})

	assert.NotEmpty(t, lines)
}
