package target6502

import (
	"fmt"

	"raster/internal/diag"
	"raster/internal/target"
)

// ZeroPageAllocation is a requested placement: a base address and a
// byte size (spec 4.7: "A validator takes (address, size) and rejects
// any overlap with reserved ranges").
type ZeroPageAllocation struct {
	Name    string
	Address int
	Size    int
}

// ValidateZeroPage rejects any allocation whose [Address, Address+Size)
// range overlaps a reserved byte in cfg.ZeroPage, and any allocation
// that runs off the end of the zero page entirely. Range and
// struct-field mappings are both validated through this same entry
// point -- a struct's fields are just a sequence of allocations at
// increasing offsets from its base address, so no separate "struct"
// code path is needed.
func ValidateZeroPage(cfg target.Config, allocs []ZeroPageAllocation) *diag.Bag {
	bag := diag.NewBag()
	for _, a := range allocs {
		if a.Size <= 0 {
			continue
		}
		if a.Address < 0 || a.Address+a.Size > 256 {
			bag.Add(diag.New(diag.CodeReservedZeroPage, diag.Coordinate{},
				"zero-page allocation %q at $%02X size %d runs outside the $00-$FF page", a.Name, a.Address, a.Size))
			continue
		}
		for offset := 0; offset < a.Size; offset++ {
			addr := a.Address + offset
			cat := cfg.ZeroPage[addr]
			if cat == target.ZPSafe {
				continue
			}
			d := diag.New(diag.CodeReservedZeroPage, diag.Coordinate{},
				"zero-page allocation %q overlaps $%02X, %s", a.Name, addr, cat)
			d = d.WithSuggestion(fmt.Sprintf("place %q outside the reserved range", a.Name), "")
			if safe, ok := nearestSafeRun(cfg, a.Size); ok {
				d = d.WithSuggestion("nearest safe run of this size", fmt.Sprintf("$%02X", safe))
			}
			bag.Add(d)
			break
		}
	}
	return bag
}

// nearestSafeRun finds the lowest address starting a contiguous run of
// size bytes that are all ZPSafe, for the validator's fix-it
// suggestion.
func nearestSafeRun(cfg target.Config, size int) (int, bool) {
	if size <= 0 || size > 256 {
		return 0, false
	}
	run := 0
	for addr := 0; addr < 256; addr++ {
		if cfg.ZeroPage[addr] == target.ZPSafe {
			run++
			if run >= size {
				return addr - size + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}
