package il

// BasicBlock is a maximal straight-line instruction sequence with a
// single terminator as its last instruction. Predecessors/successors
// are stored as sorted id slices -- never pointers -- so
// the CFG can be frozen and shared between passes without aliasing.
type BasicBlock struct {
	ID           int
	Label        string
	Instructions []Instruction // phis occupy a prefix,
	Preds        []int
	Succs        []int
}

// Terminator returns the block's terminator instruction, if the block
// is non-empty and well-formed.
func (b *BasicBlock) Terminator() (Terminator, bool) {
	if len(b.Instructions) == 0 {
		return nil, false
	}
	t, ok := b.Instructions[len(b.Instructions)-1].(Terminator)
	return t, ok
}

// Phis returns the prefix of phi instructions in the block.
func (b *BasicBlock) Phis() []*PhiInst {
	var out []*PhiInst
	for _, inst := range b.Instructions {
		if p, ok := inst.(*PhiInst); ok {
			out = append(out, p)
		} else {
			break
		}
	}
	return out
}

// AddPred/AddSucc insert an id into the sorted edge slice if absent.
func (b *BasicBlock) AddPred(id int) { b.Preds = insertSorted(b.Preds, id) }
func (b *BasicBlock) AddSucc(id int) { b.Succs = insertSorted(b.Succs, id) }

func insertSorted(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	i := 0
	for i < len(ids) && ids[i] < id {
		i++
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
