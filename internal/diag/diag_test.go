package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagSeverityFilters(t *testing.T) {
	b := NewBag()
	b.Add(New(CodeMissingTerminator, Coordinate{Function: "f", Block: 0, HasBlock: true}, "block has no terminator"))
	b.Add(Warnf(CodeUnreachableBlock, Coordinate{Function: "f", Block: 3, HasBlock: true}, "block 3 is unreachable"))
	b.Add(Notef(CodeDeadBranch, Coordinate{Function: "f"}, "branch always taken"))

	require.True(t, b.HasErrors())
	require.True(t, b.HasWarnings())
	assert.Len(t, b.Errors(), 1)
	assert.Len(t, b.Warnings(), 1)
	assert.Len(t, b.All(), 3)
}

func TestBagMerge(t *testing.T) {
	a := NewBag()
	a.Addf(CodeReservedZeroPage, Coordinate{Function: "f"}, "zero page $02 already reserved")
	b := NewBag()
	b.Addf(CodeRasterOverflow, Coordinate{Function: "g"}, "frame budget exceeded by %d cycles", 40)

	a.Merge(b)
	assert.Len(t, a.All(), 2)
}

func TestSortStableErrorsFirst(t *testing.T) {
	b := NewBag()
	b.Add(Warnf(CodeTightMargin, Coordinate{}, "warn"))
	b.Add(New(CodeMissingTerminator, Coordinate{}, "err"))
	b.SortStable()
	require.Equal(t, SeverityError, b.All()[0].Severity)
}

func TestReporterFormatContainsCodeAndMessage(t *testing.T) {
	r := NewReporter(true)
	d := New(CodeConstantOutOfRange, Coordinate{Function: "clear_screen", Block: 2, HasBlock: true}, "constant 300 does not fit in byte")
	d = d.WithSuggestion("use a word-typed constant", "")
	out := r.Format(d)
	assert.Contains(t, out, string(CodeConstantOutOfRange))
	assert.Contains(t, out, "constant 300 does not fit in byte")
	assert.Contains(t, out, "clear_screen")
	assert.Contains(t, out, "help:")
}

func TestCategoryRanges(t *testing.T) {
	assert.Equal(t, "Structural", category(CodeMissingTerminator))
	assert.Equal(t, "SSA", category(CodeUseNotDominated))
	assert.Equal(t, "Hardware", category(CodeReservedZeroPage))
	assert.Equal(t, "Warning", category(CodeUnreachableBlock))
}
