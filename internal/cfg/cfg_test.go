package cfg

import (
	"testing"

	"raster/internal/il"
)

// buildDiamond constructs a flat instruction stream shaped like:
//
//	block0 (entry): r0 = load_const 1; branch r0, then=block1, else=block2
//	block1 (then):  r2 = load_const 10; jump block3
//	block2 (else):  r4 = load_const 20  (falls through to block3)
//	block3 (merge): return 0
//
// Target fields carry raw instruction-stream indices, per this
// package's input contract, not the final block ids.
func buildDiamond() []il.Instruction {
	return []il.Instruction{
		&il.LoadConstInst{InstID: 0, Res: il.Reg(0, il.Byte, "r0"), Value_: il.ConstValue(il.Byte, 1)},
		&il.BranchInst{InstID: 1, Cond: il.Reg(0, il.Byte, "r0"), ThenBlk: 2, ElseBlk: 4},
		&il.LoadConstInst{InstID: 2, Res: il.Reg(2, il.Byte, "r2"), Value_: il.ConstValue(il.Byte, 10)},
		&il.JumpInst{InstID: 3, Target: 5},
		&il.LoadConstInst{InstID: 4, Res: il.Reg(4, il.Byte, "r4"), Value_: il.ConstValue(il.Byte, 20)},
		&il.ReturnInst{InstID: 5, Val: il.ConstValue(il.Byte, 0)},
	}
}

func TestBuildPartitionsAtBranchTargets(t *testing.T) {
	fn, res, bag := Build("f", nil, il.Byte, buildDiamond())
	if len(bag.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	// Leaders: 0 (first), 2 (then-target, also after the branch at 1),
	// 4 (else-target, also after the jump at 3), 5 (jump-target).
	ids := fn.BlockIDs()
	if len(ids) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %v", len(ids), ids)
	}
	if len(res.ExitBlocks) != 1 {
		t.Fatalf("expected exactly one exit block, got %v", res.ExitBlocks)
	}
}

func TestBuildWiresPredsAndSuccs(t *testing.T) {
	fn, _, bag := Build("f", nil, il.Byte, buildDiamond())
	if len(bag.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	entry := fn.Entry()
	if len(entry.Succs) != 2 {
		t.Fatalf("entry block should have 2 successors, got %v", entry.Succs)
	}
	for _, succID := range entry.Succs {
		succ := fn.Block(succID)
		found := false
		for _, p := range succ.Preds {
			if p == entry.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("block %d missing predecessor edge back to entry %d", succID, entry.ID)
		}
	}
}

func TestBuildReportsMissingTerminator(t *testing.T) {
	flat := []il.Instruction{
		&il.LoadConstInst{InstID: 0, Res: il.Reg(0, il.Byte, "r0"), Value_: il.ConstValue(il.Byte, 1)},
	}
	_, _, bag := Build("f", nil, il.Byte, flat)
	if len(bag.Errors()) != 1 {
		t.Fatalf("expected exactly one structural error, got %v", bag.Errors())
	}
	if bag.Errors()[0].Code != "D0001" {
		t.Fatalf("expected missing-terminator code, got %s", bag.Errors()[0].Code)
	}
}

func TestBuildEmptyFunctionIsAccepted(t *testing.T) {
	fn, res, bag := Build("empty", nil, il.Void, nil)
	if fn.NumBlocks() != 0 {
		t.Fatalf("expected zero blocks, got %d", fn.NumBlocks())
	}
	if !res.Reducible {
		t.Fatal("empty function should be trivially reducible")
	}
	if len(bag.All()) != 1 || bag.All()[0].Code != "D0006" {
		t.Fatalf("expected exactly one informational diagnostic, got %v", bag.All())
	}
}

func TestBuildOutOfRangeTargetReported(t *testing.T) {
	flat := []il.Instruction{
		&il.JumpInst{InstID: 0, Target: 99},
	}
	_, _, bag := Build("f", nil, il.Void, flat)
	if len(bag.Errors()) != 1 || bag.Errors()[0].Code != "D0003" {
		t.Fatalf("expected unknown-block-ref error, got %v", bag.Errors())
	}
}
