package validate

import (
	"raster/internal/diag"
	"raster/internal/il"
)

// checkTypes covers spec 4.5's Types bullet: binary operand equality,
// binary result type, comparison result Bool, conversion directionality,
// branch-condition type, and void-return rejection.
func checkTypes(fn *il.Function, coord coordFn, bag *diag.Bag) {
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			c := coord(b.ID, true, inst.ID(), true)
			switch v := inst.(type) {
			case *il.BinaryInst:
				checkBinary(v, c, bag)
			case *il.UnaryInst:
				checkUnary(v, c, bag)
			case *il.ConvertInst:
				checkConvert(v, c, bag)
			case *il.BranchInst:
				checkBranchCond(v, c, bag)
			case *il.ReturnInst:
				checkReturn(v, c, bag)
			}
		}
	}
}

func checkBinary(v *il.BinaryInst, c diag.Coordinate, bag *diag.Bag) {
	if !v.Lhs.Type.Equal(v.Rhs.Type) {
		bag.Add(diag.New(diag.CodeOperandTypeMismatch, c,
			"%s operands have mismatched types: %s vs %s", v.Op, v.Lhs.Type, v.Rhs.Type))
		return
	}
	if v.Op.IsComparison() {
		if !v.Res.Type.Equal(il.Bool) {
			bag.Add(diag.New(diag.CodeComparisonNotBool, c,
				"comparison %s must produce Bool, got %s", v.Op, v.Res.Type))
		}
		return
	}
	if !v.Res.Type.Equal(v.Lhs.Type) {
		bag.Add(diag.New(diag.CodeOperandTypeMismatch, c,
			"arithmetic %s result type %s does not match operand type %s", v.Op, v.Res.Type, v.Lhs.Type))
	}
}

func checkUnary(v *il.UnaryInst, c diag.Coordinate, bag *diag.Bag) {
	if v.Op == il.OpLogicalNot {
		if !v.Src.Type.Equal(il.Bool) || !v.Res.Type.Equal(il.Bool) {
			bag.Add(diag.New(diag.CodeOperandTypeMismatch, c, "logical_not requires Bool operand and result"))
		}
		return
	}
	if !v.Res.Type.Equal(v.Src.Type) {
		bag.Add(diag.New(diag.CodeOperandTypeMismatch, c,
			"unary %s result type %s does not match operand type %s", v.Op, v.Res.Type, v.Src.Type))
	}
}

func checkConvert(v *il.ConvertInst, c diag.Coordinate, bag *diag.Bag) {
	switch v.Kind {
	case il.ConvertZeroExtend:
		if !v.Src.Type.Equal(il.Byte) || !v.Res.Type.Equal(il.Word) {
			bag.Add(diag.New(diag.CodeInvalidConversion, c, "zero_extend requires Byte source and Word result"))
		}
	case il.ConvertTruncate:
		if !v.Src.Type.Equal(il.Word) || !v.Res.Type.Equal(il.Byte) {
			bag.Add(diag.New(diag.CodeInvalidConversion, c, "truncate requires Word source and Byte result"))
		}
	}
}

func checkBranchCond(v *il.BranchInst, c diag.Coordinate, bag *diag.Bag) {
	if !v.Cond.Type.Equal(il.Bool) && !v.Cond.Type.Equal(il.Byte) {
		bag.Add(diag.New(diag.CodeInvalidBranchCond, c,
			"branch condition must be Bool or Byte, got %s", v.Cond.Type))
	}
}

func checkReturn(v *il.ReturnInst, c diag.Coordinate, bag *diag.Bag) {
	if v.Val.Type.Equal(il.Void) {
		bag.Add(diag.New(diag.CodeVoidInReturnPosition, c, "return must not carry a Void value; use return_void"))
	}
}

// checkConstantRanges covers spec 4.5's Constant ranges bullet: Byte
// 0..255 and Word 0..65535 are hard errors; Bool outside {0,1} is a
// warning (spec 7's severity gradient).
func checkConstantRanges(fn *il.Function, coord coordFn, bag *diag.Bag) {
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			c := coord(b.ID, true, inst.ID(), true)
			for _, op := range inst.Operands() {
				checkConstRange(op, c, bag)
			}
			if res, ok := inst.Result(); ok {
				checkConstRange(res, c, bag)
			}
		}
	}
}

func checkConstRange(v il.Value, c diag.Coordinate, bag *diag.Bag) {
	if v.ValKind != il.ValueConstant {
		return
	}
	switch v.Type.Kind {
	case il.KindByte:
		if v.Const < 0 || v.Const > 255 {
			bag.Add(diag.New(diag.CodeConstantOutOfRange, c, "Byte constant %d out of range 0..255", v.Const))
		}
	case il.KindWord:
		if v.Const < 0 || v.Const > 65535 {
			bag.Add(diag.New(diag.CodeConstantOutOfRange, c, "Word constant %d out of range 0..65535", v.Const))
		}
	case il.KindBool:
		if v.Const != 0 && v.Const != 1 {
			bag.Add(diag.Warnf(diag.CodeBoolConstOutOfRange, c, "Bool constant %d out of range 0..1", v.Const))
		}
	}
}
