// Package orchestrator sequences the mid-end's passes in dependency
// order (spec 4.8): CFG construction, dominators/SSA, the IL validator,
// the dataflow bundle, then the 6502 target analyses, aggregating
// every pass's diagnostics into one ledger.
//
// Modeled directly on the teacher's OptimizationPipeline
// (internal/ir/optimizations.go): a slice of named, independently
// reportable passes run in sequence against one shared context, the
// same "print what ran, keep going" shape as AddPass/Run -- retargeted
// from "gas optimization passes over a Program" to "analysis passes
// over one il.Function." A pass whose declared prerequisite didn't
// produce usable state is skipped with a Prerequisite diagnostic
// instead of panicking; an unexpected panic from SSA construction,
// validation, the dataflow bundle or the target analyses (each run as
// one unit, so a panic ends the rest of that unit) is recovered and
// wrapped with github.com/pkg/errors, attaching the failing unit's
// name, into an Internal diagnostic (spec 5's "thrown
// errors are caught at pass boundaries" policy) -- the same recover-
// and-wrap shape ssa.Build already uses for its own phases.
package orchestrator

import (
	"fmt"

	"github.com/pkg/errors"

	"raster/internal/cfg"
	"raster/internal/dataflow"
	"raster/internal/diag"
	"raster/internal/dom"
	"raster/internal/il"
	"raster/internal/ssa"
	"raster/internal/target"
	"raster/internal/target6502"
	"raster/internal/validate"
)

// Options bundles every individually-switchable knob the passes below
// accept, plus the target configuration the 6502 analyses run against.
type Options struct {
	SSA      ssa.Options
	Validate validate.Options
	Budget   dataflow.Budget
	Target   target.Config

	SkipValidate bool
	SkipDataflow bool
	SkipTarget   bool

	// Tracef, if set, receives one line per pass the way the teacher's
	// Pipeline.Run prints "- Name: Description" / "✓ Applied"/"- No
	// changes needed" lines; nil disables tracing.
	Tracef func(format string, args ...any)
}

// Result is spec 4.8/§6's "to the back end" bundle: the SSA-form
// function, its dominator tree, every dataflow analysis, the 6502
// target analyses, and one flat diagnostic ledger.
type Result struct {
	Function *il.Function
	CFG      cfg.Result
	Dom      *dom.Tree

	Reaching  dataflow.ReachingResult
	Liveness  dataflow.LivenessResult
	ConstProp dataflow.ConstPropResult
	Alias     dataflow.AliasResult
	Purity    dataflow.PurityResult
	Escape    dataflow.EscapeResult
	GVN       dataflow.GVNResult
	CSE       dataflow.CSEResult
	Loops     dataflow.LoopResult

	Estimate target6502.FunctionEstimate
	Pressure target6502.FunctionPressure
	Raster   target6502.RasterSafetyMetadata

	diagnostics *diag.Bag
}

// HasErrors reports whether any pass raised an error-severity diagnostic.
func (r *Result) HasErrors() bool { return r.diagnostics.HasErrors() }

// HasWarnings reports whether any pass raised a warning-severity diagnostic.
func (r *Result) HasWarnings() bool { return r.diagnostics.HasWarnings() }

// Diagnostics returns the aggregated ledger across every pass that ran.
func (r *Result) Diagnostics() *diag.Bag { return r.diagnostics }

// Run builds fn from a front-end-produced flat instruction stream
// (spec 6's "From the front end" contract) and carries it through
// every pass in dependency order: CFG -> dominators/SSA -> validation
// -> dataflow -> target-specific. Each stage's diagnostics are merged
// into the returned Result's ledger regardless of whether later stages
// ran.
func Run(name string, params []il.Parameter, ret il.Type, flat []il.Instruction, opts Options) *Result {
	bag := diag.NewBag()
	result := &Result{diagnostics: bag}
	trace := opts.Tracef
	if trace == nil {
		trace = func(string, ...any) {}
	}

	trace("orchestrator: building CFG for %q", name)
	fn, cfgRes, cfgBag := cfg.Build(name, params, ret, flat)
	bag.Merge(cfgBag)
	result.Function = fn
	result.CFG = cfgRes
	if fn == nil || fn.Entry() == nil {
		bag.Add(diag.New(diag.CodeEntryBlockMissing, diag.Coordinate{Function: name},
			"orchestrator: no usable entry block for %q, aborting remaining passes", name))
		return result
	}

	trace("orchestrator: building SSA form for %q", name)
	ssaRes, ssaOK := runRecovered(bag, "ssa.Build", diag.Coordinate{Function: name}, func() (ssa.Result, error) {
		return ssa.Build(fn, opts.SSA)
	})
	if !ssaOK {
		bag.Add(diag.New(diag.CodeMissingDominators, diag.Coordinate{Function: name},
			"orchestrator: SSA construction failed for %q; dominator-dependent passes skipped", name))
	} else {
		result.Dom = ssaRes.Dom
	}

	if !opts.SkipValidate && result.Dom != nil {
		trace("orchestrator: validating %q", name)
		runRecovered(bag, "validate", diag.Coordinate{Function: name}, func() (struct{}, error) {
			vbag, _ := validate.Function(name, fn, result.Dom, opts.Validate)
			bag.Merge(vbag)
			return struct{}{}, nil
		})
	} else if !opts.SkipValidate {
		bag.Add(diag.New(diag.CodeMissingDominators, diag.Coordinate{Function: name},
			"orchestrator: validation skipped for %q, no dominator tree", name))
	}

	if !opts.SkipDataflow {
		runRecovered(bag, "dataflow", diag.Coordinate{Function: name}, func() (struct{}, error) {
			runDataflow(fn, result, opts, bag, trace)
			return struct{}{}, nil
		})
	}

	if !opts.SkipTarget {
		runRecovered(bag, "target6502", diag.Coordinate{Function: name}, func() (struct{}, error) {
			runTarget(fn, result, opts, bag, trace)
			return struct{}{}, nil
		})
	}

	return result
}

func runDataflow(fn *il.Function, result *Result, opts Options, bag *diag.Bag, trace func(string, ...any)) {
	budget := opts.Budget
	if budget.MaxIterations == 0 {
		budget = dataflow.DefaultBudget()
	}

	trace("orchestrator: reaching definitions for %q", fn.Name)
	result.Reaching = dataflow.ReachingDefinitions(fn, budget)
	if !result.Reaching.Converged {
		bag.Add(diag.Warnf(diag.CodeIterationCapExceeded, diag.Coordinate{Function: fn.Name},
			"reaching definitions hit the iteration cap before converging"))
	}

	trace("orchestrator: liveness for %q", fn.Name)
	result.Liveness = dataflow.Liveness(fn, budget)
	if !result.Liveness.Converged {
		bag.Add(diag.Warnf(diag.CodeIterationCapExceeded, diag.Coordinate{Function: fn.Name},
			"liveness hit the iteration cap before converging"))
	}

	trace("orchestrator: constant propagation for %q", fn.Name)
	result.ConstProp = dataflow.ConstantPropagation(fn, budget)
	for instID, target := range result.ConstProp.DeadEdges {
		bag.Add(diag.Notef(diag.CodeDeadBranch, diag.Coordinate{Function: fn.Name, Instruction: instID, HasInstr: true},
			"branch instruction %d has a statically-dead edge to block %d", instID, target))
	}

	trace("orchestrator: alias/purity/escape analysis for %q", fn.Name)
	result.Alias = dataflow.AliasAnalysis(fn)
	result.Purity = dataflow.ClassifyPurity(fn)
	result.Escape = dataflow.EscapeAnalysis(fn)
	if result.Escape.OverBudget {
		bag.Add(diag.Warnf(diag.CodeStackOverflowRisk, diag.Coordinate{Function: fn.Name},
			"%s: %s (%d bytes)", fn.Name, result.Escape.OverflowRisk, result.Escape.FrameBytes))
	}

	trace("orchestrator: GVN/CSE for %q", fn.Name)
	result.GVN = dataflow.GVN(fn)
	if result.Dom != nil {
		result.CSE = dataflow.CSE(fn, result.Dom)
	}

	if result.Dom != nil {
		trace("orchestrator: loop/induction analysis for %q", fn.Name)
		result.Loops = dataflow.AnalyzeLoops(fn, result.Dom)
	}
}

func runTarget(fn *il.Function, result *Result, opts Options, bag *diag.Bag, trace func(string, ...any)) {
	trace("orchestrator: cycle estimate for %q", fn.Name)
	if result.Dom != nil {
		est, ebag := target6502.EstimateFunction(fn, result.Dom)
		result.Estimate = est
		bag.Merge(ebag)

		cfgTarget := opts.Target
		if cfgTarget.CyclesPerLine == 0 {
			cfgTarget = target.DefaultC64PAL()
		}
		m := target6502.ClassifyRaster(cfgTarget, est.Worst, 0)
		result.Raster = m
		bag.Merge(target6502.DiagnoseRaster(fn.Name, cfgTarget, m, false))
	} else {
		bag.Add(diag.New(diag.CodeMissingDominators, diag.Coordinate{Function: fn.Name},
			"orchestrator: cycle estimate skipped for %q, no dominator tree (loop analysis unavailable)", fn.Name))
	}

	trace("orchestrator: register pressure for %q", fn.Name)
	result.Pressure = target6502.AnalyzePressure(fn)
}

// runRecovered invokes fn under panic recovery, wrapping any recovered
// value with the failing pass's name and converting it to an Internal
// diagnostic appended to bag, the same shape ssa.Build's own phase
// recovery uses.
func runRecovered[T any](bag *diag.Bag, passName string, coord diag.Coordinate, fn func() (T, error)) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			wrapped := errors.Wrapf(fmt.Errorf("%v", r), "%s: recovered panic", passName)
			bag.Add(diag.New(diag.CodeInternal, coord, "%s", wrapped.Error()))
			ok = false
		}
	}()
	res, err := fn()
	if err != nil {
		bag.Add(diag.New(diag.CodeInternal, coord, "%s: %s", passName, err.Error()))
		return res, false
	}
	return res, true
}
