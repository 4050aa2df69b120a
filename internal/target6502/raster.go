package target6502

import (
	"raster/internal/diag"
	"raster/internal/target"
)

// Recommendation is the VIC-II raster-safety classifier's verdict
// (spec 4.7).
type Recommendation int

const (
	RecSafe Recommendation = iota
	RecUseStableRaster
	RecSplitAcrossLines
	RecDisableBadlines
	RecTooLong
)

func (r Recommendation) String() string {
	switch r {
	case RecSafe:
		return "Safe"
	case RecUseStableRaster:
		return "UseStableRaster"
	case RecSplitAcrossLines:
		return "SplitAcrossLines"
	case RecDisableBadlines:
		return "DisableBadlines"
	default:
		return "TooLong"
	}
}

// SpriteDMACycles is the per-active-sprite raster cost spec 4.7 adds,
// capped at 8 active sprites.
const SpriteDMACycles = 2

// MaxActiveSprites caps the sprite-DMA penalty (spec 4.7: "each active
// sprite adds +2 per raster line (capped at 8)").
const MaxActiveSprites = 8

// PageCrossPenalty and RMWPenalty are the other two per-occurrence
// penalties spec 4.7 names alongside sprite DMA.
const (
	PageCrossPenalty = 1
	RMWPenalty       = 2
)

// RasterExtras bundles the hardware-contention counts that
// AdjustedCycles folds into a raw cycle estimate: how many page
// crossings, read-modify-write accesses, and active sprites a function
// body involves.
type RasterExtras struct {
	PageCrossings    int
	ReadModifyWrites int
	ActiveSprites    int
}

// AdjustedCycles applies spec 4.7's hardware penalties on top of a base
// cycle count from EstimateFunction.
func AdjustedCycles(base int, extras RasterExtras) int {
	sprites := extras.ActiveSprites
	if sprites > MaxActiveSprites {
		sprites = MaxActiveSprites
	}
	return base + extras.PageCrossings*PageCrossPenalty + extras.ReadModifyWrites*RMWPenalty + sprites*SpriteDMACycles
}

// RasterSafetyMetadata is spec 4.7's per-function raster-safety report.
type RasterSafetyMetadata struct {
	Cycles                 int
	RasterSafe             bool
	BadlineAware            bool
	CycleMargin            int
	LinesRequired           int
	StableRasterCompatible bool
	Recommendation         Recommendation
}

// ClassifyRaster computes spec 4.7's RasterSafetyMetadata for a
// function whose adjusted worst-case cycle count is `cycles`, and
// `variance` is worst-min-best observed across the function's distinct
// execution paths (used only for the stableRasterCompatible check;
// callers with a single deterministic path pass 0).
func ClassifyRaster(cfg target.Config, cycles, variance int) RasterSafetyMetadata {
	normal := cfg.NormalLineCycles()
	badline := cfg.BadlineCycles()

	m := RasterSafetyMetadata{
		Cycles:        cycles,
		RasterSafe:    cycles <= normal,
		BadlineAware:  cycles <= badline,
		CycleMargin:   badline - cycles,
		LinesRequired: ceilDiv(cycles, normal),
	}
	m.StableRasterCompatible = m.BadlineAware && variance <= 1

	// Recommendation gradient (spec 4.7 + §8.4's worked example, which
	// pins RasterSafe=true/BadlineAware=false to UseStableRaster): code
	// that doesn't even fit a normal line must split or give up; code
	// that fits the normal line but not the badline-reduced one can
	// compensate with the stable-raster technique; code that fits the
	// badline budget but whose timing isn't stable enough for that
	// technique (variance > 1) should disable badlines outright for
	// deterministic timing instead.
	switch {
	case !m.RasterSafe && m.LinesRequired > 2:
		m.Recommendation = RecTooLong
	case !m.RasterSafe:
		m.Recommendation = RecSplitAcrossLines
	case !m.BadlineAware:
		m.Recommendation = RecUseStableRaster
	case !m.StableRasterCompatible:
		m.Recommendation = RecDisableBadlines
	default:
		m.Recommendation = RecSafe
	}
	return m
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// DiagnoseRaster emits spec 4.7's severity gradient for a function's
// raster-safety metadata: warning if it exceeds a normal line, note if
// it exceeds the badline budget but still fits a normal line, warning
// for a tight normal-line margin, note for a tight badline margin, and
// a warning when sprite DMA alone pushed the function past budget.
func DiagnoseRaster(fn string, cfg target.Config, m RasterSafetyMetadata, spriteDMAOverrun bool) *diag.Bag {
	bag := diag.NewBag()
	coord := diag.Coordinate{Function: fn}

	switch {
	case !m.RasterSafe:
		bag.Add(diag.Warnf(diag.CodeRasterOverflow, coord,
			"%s: %d cycles exceeds the %d-cycle raster line budget", fn, m.Cycles, cfg.NormalLineCycles()))
	case !m.BadlineAware:
		// Fits a normal line but can't run unmodified on a badline --
		// common and expected (only 1 line in 8 is a badline), so this
		// is informational: it names the UseStableRaster recommendation
		// rather than flagging a defect (spec §8.4's worked example).
		bag.Add(diag.Notef(diag.CodeRasterBadline, coord,
			"%s: %d cycles fits a normal line but exceeds the %d-cycle badline budget; recommend %s",
			fn, m.Cycles, cfg.BadlineCycles(), RecUseStableRaster))
	}

	if m.RasterSafe && m.CycleMargin+cfg.BadlinePenalty < 5 {
		// margin on the normal line is badline-margin plus the penalty
		// that a normal line doesn't pay.
		normalMargin := cfg.NormalLineCycles() - m.Cycles
		if normalMargin < 5 {
			bag.Add(diag.Warnf(diag.CodeTightMargin, coord,
				"%s: only %d cycles of margin before the normal-line budget", fn, normalMargin))
		}
	}
	if m.BadlineAware && m.CycleMargin < 5 {
		bag.Add(diag.Notef(diag.CodeTightMarginInfo, coord,
			"%s: only %d cycles of margin before the badline budget", fn, m.CycleMargin))
	}

	if spriteDMAOverrun {
		bag.Add(diag.Warnf(diag.CodeSpriteDMAOverrun, coord,
			"%s: active sprite DMA pushes the function past its effective raster budget", fn))
	}

	return bag
}
