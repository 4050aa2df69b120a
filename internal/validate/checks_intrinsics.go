package validate

import (
	"raster/internal/diag"
	"raster/internal/il"
	"raster/internal/intrinsics"
)

// checkIntrinsics cross-checks every IntrinsicInst against the process-
// wide registry (spec 6): the name must be registered, the argument
// count and kinds must match the entry's ParamSpec list (skipped for
// variadic type-argument intrinsics like sizeof), the result type must
// match the entry's ReturnKind, and the side-effect/barrier/volatile
// flags cached on the instruction must agree with the registry entry
// they were copied from -- a mismatch there means some earlier pass
// rewrote the instruction without refreshing its cached metadata.
func checkIntrinsics(fn *il.Function, coord coordFn, bag *diag.Bag) {
	reg := intrinsics.Default()
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			v, ok := inst.(*il.IntrinsicInst)
			if !ok {
				continue
			}
			c := coord(b.ID, true, inst.ID(), true)
			entry, found := reg.Lookup(v.Name)
			if !found {
				bag.Add(diag.New(diag.CodeUnknownIntrinsic, c, "unknown intrinsic %q", v.Name))
				continue
			}
			checkIntrinsicArgs(v, entry, c, bag)
			checkIntrinsicReturn(v, entry, c, bag)
			checkIntrinsicMeta(v, entry, c, bag)
		}
	}
}

func checkIntrinsicArgs(v *il.IntrinsicInst, entry intrinsics.Entry, c diag.Coordinate, bag *diag.Bag) {
	if entry.Variadic {
		return
	}
	if len(v.Args) != len(entry.Params) {
		bag.Add(diag.New(diag.CodeIntrinsicArgMismatch, c,
			"%s expects %d argument(s), got %d", v.Name, len(entry.Params), len(v.Args)))
		return
	}
	for i, arg := range v.Args {
		want := entry.Params[i]
		if !paramKindAccepts(want.Kind, arg.Type) {
			bag.Add(diag.New(diag.CodeIntrinsicArgMismatch, c,
				"%s argument %q (%d) expects %s, got %s", v.Name, want.Name, i, want.Kind, arg.Type))
		}
	}
}

func paramKindAccepts(k intrinsics.ParamKind, t il.Type) bool {
	switch k {
	case intrinsics.ParamByte:
		return t.Equal(il.Byte)
	case intrinsics.ParamWord:
		return t.Equal(il.Word)
	case intrinsics.ParamBool:
		return t.Equal(il.Bool)
	default:
		return true
	}
}

func checkIntrinsicReturn(v *il.IntrinsicInst, entry intrinsics.Entry, c diag.Coordinate, bag *diag.Bag) {
	want := returnKindType(entry.Return)
	switch {
	case entry.Return == intrinsics.ReturnVoid && v.HasRes:
		bag.Add(diag.New(diag.CodeIntrinsicArgMismatch, c, "%s returns Void but is used as a value", v.Name))
	case entry.Return != intrinsics.ReturnVoid && !v.HasRes:
		bag.Add(diag.New(diag.CodeIntrinsicArgMismatch, c, "%s returns %s but its result is discarded without binding", v.Name, want))
	case v.HasRes && !v.Res.Type.Equal(want):
		bag.Add(diag.New(diag.CodeIntrinsicArgMismatch, c, "%s result type %s does not match registry return type %s", v.Name, v.Res.Type, want))
	}
}

func returnKindType(k intrinsics.ReturnKind) il.Type {
	switch k {
	case intrinsics.ReturnByte:
		return il.Byte
	case intrinsics.ReturnWord:
		return il.Word
	case intrinsics.ReturnBool:
		return il.Bool
	default:
		return il.Void
	}
}

func checkIntrinsicMeta(v *il.IntrinsicInst, entry intrinsics.Entry, c diag.Coordinate, bag *diag.Bag) {
	if v.SideEffect != entry.SideEffect || v.Barrier != entry.Barrier || v.Volatile != entry.Volatile {
		bag.Add(diag.Warnf(diag.CodeIntrinsicMetaStale, c,
			"%s's cached side-effect/barrier/volatile flags no longer match the registry entry", v.Name))
	}
}
