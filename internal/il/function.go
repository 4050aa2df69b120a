package il

import "sort"

// Parameter is an ordered function parameter.
type Parameter struct {
	Name string
	Type Type
}

// Function holds an arena of basic blocks, addressed by id. EntryID is
// conventionally 0.
type Function struct {
	Name       string
	Params     []Parameter
	ReturnType Type
	EntryID    int

	blocks map[int]*BasicBlock
	order  []int // insertion order, for deterministic iteration fallback
}

// NewFunction creates an empty function whose EntryID is 0.
func NewFunction(name string, params []Parameter, ret Type) *Function {
	return &Function{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		EntryID:    0,
		blocks:     make(map[int]*BasicBlock),
	}
}

// AddBlock registers a block in the function's arena.
func (f *Function) AddBlock(b *BasicBlock) {
	if f.blocks == nil {
		f.blocks = make(map[int]*BasicBlock)
	}
	if _, exists := f.blocks[b.ID]; !exists {
		f.order = append(f.order, b.ID)
	}
	f.blocks[b.ID] = b
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id int) *BasicBlock { return f.blocks[id] }

// Entry returns the entry block, or nil if not present.
func (f *Function) Entry() *BasicBlock { return f.blocks[f.EntryID] }

// BlockIDs returns every block id in ascending order -- the ordering
// guarantee every pass in this module relies on.
func (f *Function) BlockIDs() []int {
	ids := make([]int, 0, len(f.blocks))
	for id := range f.blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NumBlocks returns the number of blocks in the arena.
func (f *Function) NumBlocks() int { return len(f.blocks) }

// Blocks returns every block, ordered by ascending id.
func (f *Function) Blocks() []*BasicBlock {
	ids := f.BlockIDs()
	out := make([]*BasicBlock, len(ids))
	for i, id := range ids {
		out[i] = f.blocks[id]
	}
	return out
}

// ExitBlockIDs returns blocks with no successors, or whose terminator
// is a return/return_void.
func (f *Function) ExitBlockIDs() []int {
	var exits []int
	for _, id := range f.BlockIDs() {
		b := f.blocks[id]
		if len(b.Succs) == 0 {
			exits = append(exits, id)
			continue
		}
		if t, ok := b.Terminator(); ok {
			switch t.(type) {
			case *ReturnInst, *ReturnVoidInst:
				exits = append(exits, id)
			}
		}
	}
	return exits
}

// RemoveBlock deletes a block from the arena. Edges in other blocks'
// Preds/Succs lists that name it are left as they are.
func (f *Function) RemoveBlock(id int) {
	delete(f.blocks, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}
