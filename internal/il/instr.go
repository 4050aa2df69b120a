package il

import (
	"fmt"
	"strings"
)

// BinOp enumerates the arithmetic/logical and comparison binary
// opcodes. Comparisons always produce a Bool result; the rest produce
// a result of the operand type.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binOpNames = map[BinOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
}

func (op BinOp) String() string {
	if s, ok := binOpNames[op]; ok {
		return s
	}
	return "?binop"
}

// IsComparison reports whether op is one of the six comparison
// opcodes (result type Bool).
func (op BinOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Commutative reports whether operand order doesn't affect the
// result, used by CSE/GVN canonicalization.
func (op BinOp) Commutative() bool {
	switch op {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor, OpEq, OpNe:
		return true
	default:
		return false
	}
}

// UnOp enumerates the unary opcodes.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
	OpLogicalNot
)

func (op UnOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	case OpLogicalNot:
		return "logical_not"
	default:
		return "?unop"
	}
}

// Instruction is the tagged-sum interface every IL instruction
// implements, one concrete type per opcode family
type Instruction interface {
	ID() int
	Block() int // owning block id
	Result() (Value, bool)
	Operands() []Value
	// SetOperands overwrites operands in the same order Operands()
	// returned them. Callers must pass a slice of the same length;
	// implementations panic otherwise. Used by the SSA renamer to
	// rewrite pre-SSA register references in place.
	SetOperands([]Value)
	IsTerminator() bool
	Effects() []Effect
	String() string
}

// mustLen panics if ops doesn't have exactly n elements -- SetOperands
// is only ever called by passes that just read Operands() off the same
// instruction, so a mismatch means a caller bug, not bad input.
func mustLen(ops []Value, n int) {
	if len(ops) != n {
		panic(fmt.Sprintf("il: SetOperands got %d operands, want %d", len(ops), n))
	}
}

// ---- arithmetic/logical/comparison binary ----

type BinaryInst struct {
	InstID   int
	Blk      int
	Res      Value
	Op       BinOp
	Lhs, Rhs Value
}

func (i *BinaryInst) ID() int               { return i.InstID }
func (i *BinaryInst) Block() int            { return i.Blk }
func (i *BinaryInst) Result() (Value, bool) { return i.Res, true }
func (i *BinaryInst) Operands() []Value     { return []Value{i.Lhs, i.Rhs} }
func (i *BinaryInst) SetOperands(ops []Value) {
	mustLen(ops, 2)
	i.Lhs, i.Rhs = ops[0], ops[1]
}
func (i *BinaryInst) IsTerminator() bool { return false }
func (i *BinaryInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *BinaryInst) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Res, i.Op, i.Lhs, i.Rhs)
}

// ---- unary ----

type UnaryInst struct {
	InstID int
	Blk    int
	Res    Value
	Op     UnOp
	Src    Value
}

func (i *UnaryInst) ID() int               { return i.InstID }
func (i *UnaryInst) Block() int            { return i.Blk }
func (i *UnaryInst) Result() (Value, bool) { return i.Res, true }
func (i *UnaryInst) Operands() []Value { return []Value{i.Src} }
func (i *UnaryInst) SetOperands(ops []Value) {
	mustLen(ops, 1)
	i.Src = ops[0]
}
func (i *UnaryInst) IsTerminator() bool { return false }
func (i *UnaryInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *UnaryInst) String() string {
	return fmt.Sprintf("%s = %s %s", i.Res, i.Op, i.Src)
}

// ---- conversions ----

type ConvertKind int

const (
	ConvertZeroExtend ConvertKind = iota // Byte -> Word
	ConvertTruncate                      // Word -> Byte
)

func (c ConvertKind) String() string {
	if c == ConvertZeroExtend {
		return "zero_extend"
	}
	return "truncate"
}

type ConvertInst struct {
	InstID int
	Blk    int
	Res    Value
	Kind   ConvertKind
	Src    Value
}

func (i *ConvertInst) ID() int               { return i.InstID }
func (i *ConvertInst) Block() int            { return i.Blk }
func (i *ConvertInst) Result() (Value, bool) { return i.Res, true }
func (i *ConvertInst) Operands() []Value { return []Value{i.Src} }
func (i *ConvertInst) SetOperands(ops []Value) {
	mustLen(ops, 1)
	i.Src = ops[0]
}
func (i *ConvertInst) IsTerminator() bool { return false }
func (i *ConvertInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *ConvertInst) String() string {
	return fmt.Sprintf("%s = %s %s", i.Res, i.Kind, i.Src)
}

// ---- memory ----

type LoadConstInst struct {
	InstID int
	Blk    int
	Res    Value
	Value_ Value // always ValueConstant
}

func (i *LoadConstInst) ID() int               { return i.InstID }
func (i *LoadConstInst) Block() int            { return i.Blk }
func (i *LoadConstInst) Result() (Value, bool) { return i.Res, true }
func (i *LoadConstInst) Operands() []Value     { return nil }
func (i *LoadConstInst) SetOperands(ops []Value) { mustLen(ops, 0) }
func (i *LoadConstInst) IsTerminator() bool      { return false }
func (i *LoadConstInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *LoadConstInst) String() string {
	return fmt.Sprintf("%s = load_const %s", i.Res, i.Value_)
}

// LoadVarInst reads the current SSA value of a named variable. Before
// SSA construction, Name identifies the base name; after, Res is simply
// an alias for the renamed Value and LoadVarInst instructions are
// eliminated by the renamer.
type LoadVarInst struct {
	InstID int
	Blk    int
	Res    Value
	Name   string
}

func (i *LoadVarInst) ID() int               { return i.InstID }
func (i *LoadVarInst) Block() int            { return i.Blk }
func (i *LoadVarInst) Result() (Value, bool) { return i.Res, true }
func (i *LoadVarInst) Operands() []Value     { return nil }
func (i *LoadVarInst) SetOperands(ops []Value) { mustLen(ops, 0) }
func (i *LoadVarInst) IsTerminator() bool      { return false }
func (i *LoadVarInst) Effects() []Effect     { return []Effect{MemoryEffect{Region: i.Name}} }
func (i *LoadVarInst) String() string {
	return fmt.Sprintf("%s = load_var %s", i.Res, i.Name)
}

type StoreVarInst struct {
	InstID int
	Blk    int
	Name   string
	Val    Value
}

func (i *StoreVarInst) ID() int               { return i.InstID }
func (i *StoreVarInst) Block() int            { return i.Blk }
func (i *StoreVarInst) Result() (Value, bool) { return Value{}, false }
func (i *StoreVarInst) Operands() []Value { return []Value{i.Val} }
func (i *StoreVarInst) SetOperands(ops []Value) {
	mustLen(ops, 1)
	i.Val = ops[0]
}
func (i *StoreVarInst) IsTerminator() bool { return false }
func (i *StoreVarInst) Effects() []Effect {
	return []Effect{MemoryEffect{Write: true, Region: i.Name}}
}
func (i *StoreVarInst) String() string {
	return fmt.Sprintf("store_var %s, %s", i.Name, i.Val)
}

// ---- control ----

type BranchInst struct {
	InstID           int
	Blk              int
	Cond             Value
	ThenBlk, ElseBlk int
}

func (i *BranchInst) ID() int               { return i.InstID }
func (i *BranchInst) Block() int            { return i.Blk }
func (i *BranchInst) Result() (Value, bool) { return Value{}, false }
func (i *BranchInst) Operands() []Value { return []Value{i.Cond} }
func (i *BranchInst) SetOperands(ops []Value) {
	mustLen(ops, 1)
	i.Cond = ops[0]
}
func (i *BranchInst) IsTerminator() bool { return true }
func (i *BranchInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *BranchInst) Targets() []int        { return []int{i.ThenBlk, i.ElseBlk} }
func (i *BranchInst) String() string {
	return fmt.Sprintf("branch %s, then b%d, else b%d", i.Cond, i.ThenBlk, i.ElseBlk)
}

type JumpInst struct {
	InstID int
	Blk    int
	Target int
}

func (i *JumpInst) ID() int               { return i.InstID }
func (i *JumpInst) Block() int            { return i.Blk }
func (i *JumpInst) Result() (Value, bool) { return Value{}, false }
func (i *JumpInst) Operands() []Value     { return nil }
func (i *JumpInst) SetOperands(ops []Value) { mustLen(ops, 0) }
func (i *JumpInst) IsTerminator() bool      { return true }
func (i *JumpInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *JumpInst) Targets() []int        { return []int{i.Target} }
func (i *JumpInst) String() string        { return fmt.Sprintf("jump b%d", i.Target) }

type CallInst struct {
	InstID int
	Blk    int
	Res    Value
	HasRes bool
	Callee string
	Args   []Value
}

func (i *CallInst) ID() int               { return i.InstID }
func (i *CallInst) Block() int            { return i.Blk }
func (i *CallInst) Result() (Value, bool) { return i.Res, i.HasRes }
func (i *CallInst) Operands() []Value { return i.Args }
func (i *CallInst) SetOperands(ops []Value) {
	mustLen(ops, len(i.Args))
	i.Args = ops
}
func (i *CallInst) IsTerminator() bool { return false }
func (i *CallInst) Effects() []Effect {
	return []Effect{MemoryEffect{Write: true, Region: "*"}, BarrierEffect{}}
}
func (i *CallInst) String() string {
	parts := make([]string, len(i.Args))
	for idx, a := range i.Args {
		parts[idx] = a.String()
	}
	if i.HasRes {
		return fmt.Sprintf("%s = call %s(%s)", i.Res, i.Callee, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("call %s(%s)", i.Callee, strings.Join(parts, ", "))
}

type ReturnInst struct {
	InstID int
	Blk    int
	Val    Value
}

func (i *ReturnInst) ID() int               { return i.InstID }
func (i *ReturnInst) Block() int            { return i.Blk }
func (i *ReturnInst) Result() (Value, bool) { return Value{}, false }
func (i *ReturnInst) Operands() []Value { return []Value{i.Val} }
func (i *ReturnInst) SetOperands(ops []Value) {
	mustLen(ops, 1)
	i.Val = ops[0]
}
func (i *ReturnInst) IsTerminator() bool { return true }
func (i *ReturnInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *ReturnInst) Targets() []int        { return nil }
func (i *ReturnInst) String() string        { return fmt.Sprintf("return %s", i.Val) }

type ReturnVoidInst struct {
	InstID int
	Blk    int
}

func (i *ReturnVoidInst) ID() int               { return i.InstID }
func (i *ReturnVoidInst) Block() int            { return i.Blk }
func (i *ReturnVoidInst) Result() (Value, bool) { return Value{}, false }
func (i *ReturnVoidInst) Operands() []Value     { return nil }
func (i *ReturnVoidInst) SetOperands(ops []Value) { mustLen(ops, 0) }
func (i *ReturnVoidInst) IsTerminator() bool      { return true }
func (i *ReturnVoidInst) Effects() []Effect     { return []Effect{PureEffect{}} }
func (i *ReturnVoidInst) Targets() []int        { return nil }
func (i *ReturnVoidInst) String() string        { return "return_void" }

// ---- phi ----

// PhiSource pairs a predecessor block id with the value it supplies.
type PhiSource struct {
	Pred  int
	Value Value
}

type PhiInst struct {
	InstID  int
	Blk     int
	Res     Value
	Sources []PhiSource
}

func (i *PhiInst) ID() int               { return i.InstID }
func (i *PhiInst) Block() int            { return i.Blk }
func (i *PhiInst) Result() (Value, bool) { return i.Res, true }
func (i *PhiInst) Operands() []Value {
	ops := make([]Value, len(i.Sources))
	for idx, s := range i.Sources {
		ops[idx] = s.Value
	}
	return ops
}
func (i *PhiInst) SetOperands(ops []Value) {
	mustLen(ops, len(i.Sources))
	for idx := range ops {
		i.Sources[idx].Value = ops[idx]
	}
}
func (i *PhiInst) IsTerminator() bool { return false }
func (i *PhiInst) Effects() []Effect  { return []Effect{PureEffect{}} }
func (i *PhiInst) String() string {
	parts := make([]string, len(i.Sources))
	for idx, s := range i.Sources {
		parts[idx] = fmt.Sprintf("b%d: %s", s.Pred, s.Value)
	}
	return fmt.Sprintf("%s = phi [%s]", i.Res, strings.Join(parts, ", "))
}

// SourceFor returns the value supplied by pred, if any.
func (i *PhiInst) SourceFor(pred int) (Value, bool) {
	for _, s := range i.Sources {
		if s.Pred == pred {
			return s.Value, true
		}
	}
	return Value{}, false
}

// ---- intrinsics ----

// IntrinsicInst carries a call to a 6502 intrinsic (peek, poke, sei,
// cli, ...); the opcode/metadata is looked up in internal/intrinsics.
type IntrinsicInst struct {
	InstID int
	Blk    int
	Res    Value
	HasRes bool
	Name   string
	Args   []Value

	// Metadata cached from the intrinsic registry so later passes
	// don't need to re-resolve it.
	SideEffect bool
	Barrier    bool
	Volatile   bool
	CycleCost  int // -1 if unknown; 0 for compile-time-only intrinsics
}

func (i *IntrinsicInst) ID() int               { return i.InstID }
func (i *IntrinsicInst) Block() int            { return i.Blk }
func (i *IntrinsicInst) Result() (Value, bool) { return i.Res, i.HasRes }
func (i *IntrinsicInst) Operands() []Value { return i.Args }
func (i *IntrinsicInst) SetOperands(ops []Value) {
	mustLen(ops, len(i.Args))
	i.Args = ops
}
func (i *IntrinsicInst) IsTerminator() bool { return false }
func (i *IntrinsicInst) Effects() []Effect {
	var effs []Effect
	if i.Volatile {
		effs = append(effs, VolatileEffect{})
	}
	if i.Barrier {
		effs = append(effs, BarrierEffect{})
	}
	if i.SideEffect {
		effs = append(effs, MemoryEffect{Write: true, Region: "*intrinsic*" + i.Name})
	}
	if len(effs) == 0 {
		effs = append(effs, PureEffect{})
	}
	return effs
}
func (i *IntrinsicInst) String() string {
	parts := make([]string, len(i.Args))
	for idx, a := range i.Args {
		parts[idx] = a.String()
	}
	if i.HasRes {
		return fmt.Sprintf("%s = %s(%s)", i.Res, i.Name, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s(%s)", i.Name, strings.Join(parts, ", "))
}

// Terminator is implemented by every terminator instruction and
// exposes its successor block ids.
type Terminator interface {
	Instruction
	Targets() []int
}

var (
	_ Terminator = (*BranchInst)(nil)
	_ Terminator = (*JumpInst)(nil)
	_ Terminator = (*ReturnInst)(nil)
	_ Terminator = (*ReturnVoidInst)(nil)
)
