package il

import "fmt"

// ValueKind tags the three forms a Value can take.
type ValueKind int

const (
	// ValueConstant is a literal of a given IL type.
	ValueConstant ValueKind = iota
	// ValueRegister is a virtual register: the unit of SSA renaming.
	ValueRegister
	// ValueVar is a pre-SSA variable reference (base name, and after
	// renaming, a version).
	ValueVar
)

// Value is a tagged union of constant, virtual register and variable
// reference. It is small and passed by value -- instructions hold
// Values directly rather than pointers into an arena, so a Value can be
// copied freely without aliasing concerns.
type Value struct {
	ValKind ValueKind
	Type    Type

	// ValueConstant
	Const int64

	// ValueRegister
	RegID   int
	RegName string // optional symbolic name

	// ValueVar (pre-SSA) / renamed var (post-SSA)
	VarName    string
	VarVersion int
	Versioned  bool // true once SSA renaming has assigned a version
}

// ConstValue builds a constant Value of the given type.
func ConstValue(t Type, v int64) Value {
	return Value{ValKind: ValueConstant, Type: t, Const: v}
}

// Reg builds a virtual-register Value.
func Reg(id int, t Type, name string) Value {
	return Value{ValKind: ValueRegister, Type: t, RegID: id, RegName: name}
}

// Var builds an unversioned variable-reference Value.
func Var(name string, t Type) Value {
	return Value{ValKind: ValueVar, Type: t, VarName: name}
}

// VersionedVar builds a post-SSA-rename variable reference.
func VersionedVar(name string, version int, t Type) Value {
	return Value{ValKind: ValueVar, Type: t, VarName: name, VarVersion: version, Versioned: true}
}

// Identity distinguishes values for set/map membership: two register
// Values are the same iff their RegID matches; two constants of the
// same type/value are considered equal for CSE/GVN purposes via
// Value.Key(), not via Identity.
func (v Value) Identity() any {
	switch v.ValKind {
	case ValueRegister:
		return v.RegID
	case ValueVar:
		if v.Versioned {
			return fmt.Sprintf("%s.%d", v.VarName, v.VarVersion)
		}
		return "var:" + v.VarName
	default:
		return fmt.Sprintf("const:%s:%d", v.Type.String(), v.Const)
	}
}

// Key is a canonical string suitable for hashing in CSE/GVN tables.
func (v Value) Key() string {
	switch k := v.Identity().(type) {
	case int:
		return fmt.Sprintf("r%d", k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

func (v Value) String() string {
	switch v.ValKind {
	case ValueConstant:
		return fmt.Sprintf("%d", v.Const)
	case ValueRegister:
		if v.RegName != "" {
			return fmt.Sprintf("%%%s", v.RegName)
		}
		return fmt.Sprintf("%%r%d", v.RegID)
	case ValueVar:
		if v.Versioned {
			return fmt.Sprintf("%s.%d", v.VarName, v.VarVersion)
		}
		return v.VarName
	default:
		return "<invalid>"
	}
}
