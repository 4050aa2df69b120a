package ssa

import (
	"raster/internal/dom"
	"raster/internal/il"
)

// renamer tracks, per base variable name, a version stack and the
// next version to allocate -- the same two fields the teacher's
// builder carries (variableStack, next version counter), generalized
// to operate over a dominator-tree preorder walk instead of
// AST-lowering order.
type renamer struct {
	fn       *il.Function
	tree     *dom.Tree
	stacks   map[string][]il.Value // base name -> stack of live versions
	nextVer  map[string]int
	instID   int
	regID    int
	varTypes map[string]il.Type // base name -> type, learned from first store/load seen
}

// rename performs step 5 of spec 4.4: a dominator-tree preorder walk
// that allocates fresh versions for phi results, rewrites non-phi
// variable uses to the current top-of-stack version, fills phi
// operands along successor edges, recurses into dominator children,
// then restores every variable's stack to its entry depth on exit.
func rename(fn *il.Function, tree *dom.Tree, phiBlocks map[string][]int, opts Options) {
	r := &renamer{
		fn:       fn,
		tree:     tree,
		stacks:   make(map[string][]il.Value),
		nextVer:  make(map[string]int),
		instID:   nextInstID(fn),
		regID:    nextRegID(fn),
		varTypes: inferVarTypes(fn),
	}
	if !tree.Reachable(fn.EntryID) {
		return
	}
	r.walk(fn.EntryID)
}

func inferVarTypes(fn *il.Function) map[string]il.Type {
	types := make(map[string]il.Type)
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions {
			switch v := inst.(type) {
			case *il.StoreVarInst:
				types[v.Name] = v.Val.Type
			case *il.LoadVarInst:
				if _, ok := types[v.Name]; !ok {
					types[v.Name] = v.Res.Type
				}
			}
		}
	}
	return types
}

func (r *renamer) push(name string, v il.Value) {
	r.stacks[name] = append(r.stacks[name], v)
}

func (r *renamer) top(name string) (il.Value, bool) {
	stack := r.stacks[name]
	if len(stack) == 0 {
		return il.Value{}, false
	}
	return stack[len(stack)-1], true
}

// freshVersion allocates the next SSA version of name: a ValueVar in
// Versioned form, printed "name.version" per spec 3. RegID still
// advances so every fresh definition keeps a process-wide-unique
// identity usable by passes (GVN, liveness) that index by Value.Identity.
func (r *renamer) freshVersion(name string, t il.Type) il.Value {
	ver := r.nextVer[name]
	r.nextVer[name] = ver + 1
	v := il.VersionedVar(name, ver, t)
	v.RegID = r.regID
	r.regID++
	return v
}

// walk renames block id's instructions then recurses into its
// dominator-tree children in ascending id order. load_var instructions
// are eliminated outright (spec 4.4 step 5b: "rewrite variable uses to
// the current top-of-stack version") -- their defined register id is
// recorded in subst so any instruction that referenced it as an
// operand is rewritten to the resolved SSA value instead, and the
// load_var itself is dropped from the block's instruction list so it
// never shows up as a second "definition" of that same value during
// verification.
func (r *renamer) walk(id int) {
	b := r.fn.Block(id)
	if b == nil {
		return
	}

	entryDepths := make(map[string]int, len(r.stacks))
	for name, stack := range r.stacks {
		entryDepths[name] = len(stack)
	}

	for _, phi := range b.Phis() {
		name := phi.Res.RegName
		t := r.varTypes[name]
		fresh := r.freshVersion(name, t)
		phi.Res = fresh
		r.push(name, fresh)
	}

	subst := make(map[int]il.Value) // pre-SSA load_var register id -> resolved value
	var kept []il.Instruction
	for _, inst := range b.Instructions {
		if phi, isPhi := inst.(*il.PhiInst); isPhi {
			kept = append(kept, phi)
			continue
		}
		if load, isLoad := inst.(*il.LoadVarInst); isLoad {
			if cur, ok := r.top(load.Name); ok {
				subst[load.Res.RegID] = cur
			}
			continue // drop: consumers are redirected via subst
		}
		r.rewriteOperands(inst, subst)
		if store, isStore := inst.(*il.StoreVarInst); isStore {
			fresh := r.freshVersion(store.Name, store.Val.Type)
			r.push(store.Name, fresh)
		}
		kept = append(kept, inst)
	}
	b.Instructions = kept

	for _, succ := range b.Succs {
		sb := r.fn.Block(succ)
		if sb == nil {
			continue
		}
		for _, phi := range sb.Phis() {
			name := phi.Res.RegName
			if cur, ok := r.top(name); ok {
				for i := range phi.Sources {
					if phi.Sources[i].Pred == id {
						phi.Sources[i].Value = cur
					}
				}
			}
		}
	}

	for _, kid := range r.tree.Children(id) {
		r.walk(kid)
	}

	for name, depth := range entryDepths {
		r.stacks[name] = r.stacks[name][:depth]
	}
}

// rewriteOperands replaces any ValueVar operand with the current
// top-of-stack register for its base name, and any ValueRegister
// operand that is a key in subst (a load_var result being eliminated)
// with its resolved value. Constants and already-resolved register
// operands are untouched.
func (r *renamer) rewriteOperands(inst il.Instruction, subst map[int]il.Value) {
	ops := inst.Operands()
	changed := false
	out := make([]il.Value, len(ops))
	for i, op := range ops {
		out[i] = op
		switch {
		case op.ValKind == il.ValueVar && !op.Versioned:
			if cur, ok := r.top(op.VarName); ok {
				out[i] = cur
				changed = true
			}
		case op.ValKind == il.ValueRegister:
			if cur, ok := subst[op.RegID]; ok {
				out[i] = cur
				changed = true
			}
		}
	}
	if changed {
		inst.SetOperands(out)
	}
}
