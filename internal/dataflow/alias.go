package dataflow

import (
	"sort"

	"raster/internal/il"
)

// LocationKind classifies a memory reference for alias purposes (spec
// 4.6): a named variable, an array element, a pointer target, or
// unknown when no static classification is possible.
type LocationKind int

const (
	LocVariable LocationKind = iota
	LocArrayElement
	LocPointerTarget
	LocUnknown
)

func (k LocationKind) String() string {
	switch k {
	case LocVariable:
		return "variable"
	case LocArrayElement:
		return "array element"
	case LocPointerTarget:
		return "pointer target"
	default:
		return "unknown"
	}
}

// AliasClass is a may-alias equivalence class: a set of location
// names that cannot be statically distinguished.
type AliasClass struct {
	ID        int
	Members   []string
	Kind      LocationKind
	SelfModify bool // true if this class may be written through a pointer while also holding code
}

// AliasResult carries the class assignment (by location name) and the
// resolved classes themselves.
type AliasResult struct {
	ClassOf map[string]int
	Classes []AliasClass
}

// AliasAnalysis partitions every memory-effect location named by fn's
// instructions into may-alias equivalence classes (spec 4.6). Every
// named location gets its own singleton class (the IL's base
// variable names are never aliased to each other), including an
// array-typed parameter's name and each intrinsic's region. The "*"
// region of a call and every pointer-typed parameter collapse into a
// single catch-all unknown class -- the standard conservative
// fallback: an imprecise
// alias set is always safe because it only ever prevents an
// optimization, never enables an incorrect one.
func AliasAnalysis(fn *il.Function) AliasResult {
	classOf := make(map[string]int)
	var classes []AliasClass
	unknownClass := -1

	ensureClass := func(name string, kind LocationKind) int {
		if id, ok := classOf[name]; ok {
			return id
		}
		id := len(classes)
		classes = append(classes, AliasClass{ID: id, Members: []string{name}, Kind: kind})
		classOf[name] = id
		return id
	}

	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			for _, eff := range inst.Effects() {
				mem, ok := eff.(il.MemoryEffect)
				if !ok || mem.Region == "" {
					continue
				}
				name := mem.Region
				switch {
				case name == "*":
					if unknownClass == -1 {
						unknownClass = len(classes)
						classes = append(classes, AliasClass{ID: unknownClass, Kind: LocUnknown})
					}
					classOf[name] = unknownClass
				default:
					ensureClass(name, classifyLocation(fn, name))
				}
			}
		}
	}

	// Pointer-typed parameters widen into the unknown class: a
	// write through a pointer can hit any location, so treat every
	// pointer-typed parameter as aliasing the unknown class rather than
	// its own singleton (conservative).
	for _, p := range fn.Params {
		if p.Type.Kind == il.KindPointer {
			if unknownClass == -1 {
				unknownClass = len(classes)
				classes = append(classes, AliasClass{ID: unknownClass, Kind: LocUnknown})
			}
			mergeInto(&classes, classOf, p.Name, unknownClass)
		}
	}

	flagSelfModifying(fn, classes, classOf)

	for i := range classes {
		sort.Strings(classes[i].Members)
	}
	return AliasResult{ClassOf: classOf, Classes: classes}
}

func classifyLocation(fn *il.Function, name string) LocationKind {
	for _, p := range fn.Params {
		if p.Name == name {
			if p.Type.Kind == il.KindPointer {
				return LocPointerTarget
			}
			if p.Type.Kind == il.KindArray {
				return LocArrayElement
			}
		}
	}
	return LocVariable
}

func mergeInto(classes *[]AliasClass, classOf map[string]int, name string, target int) {
	old, had := classOf[name]
	if had && old == target {
		return
	}
	if had {
		oldClass := &(*classes)[old]
		kept := oldClass.Members[:0]
		for _, m := range oldClass.Members {
			if m != name {
				kept = append(kept, m)
			}
		}
		oldClass.Members = kept
	}
	(*classes)[target].Members = append((*classes)[target].Members, name)
	classOf[name] = target
}

// flagSelfModifying marks any alias class written to by a StoreVarInst
// whose target is also the callee of a CallInst elsewhere in fn --
// the IL-level signature of self-modifying code (writing into a
// region later executed as instructions), which spec 4.6 requires
// alias analysis to surface rather than silently allow reordering
// around.
func flagSelfModifying(fn *il.Function, classes []AliasClass, classOf map[string]int) {
	callees := make(map[string]bool)
	writes := make(map[string]bool)
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			switch v := inst.(type) {
			case *il.CallInst:
				callees[v.Callee] = true
			case *il.StoreVarInst:
				writes[v.Name] = true
			}
		}
	}
	for name := range writes {
		if callees[name] {
			if id, ok := classOf[name]; ok {
				classes[id].SelfModify = true
			}
		}
	}
}
