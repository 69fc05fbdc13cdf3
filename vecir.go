// Package vecir provides a pure Go vector IR transformation engine.
//
// vecir parses a textual vector assembly into an operation graph,
// canonicalizes it, and progressively lowers high-level operations
// (contractions, transposes, aggregate slices, masked transfers) to
// elementary primitives under configurable strategies.
//
// Example usage:
//
//	source := `
//	func @dot(%arg0: vector<4xf32>, %arg1: vector<4xf32>, %arg2: f32) -> f32 {
//	  %0 = contract %arg0, %arg1, %arg2 {kind = add, lhs_contract = [0], rhs_contract = [0]} : (vector<4xf32>, vector<4xf32>, f32) -> f32
//	  return %0 : (f32)
//	}
//	`
//	lowered, err := vecir.LowerSource(source, vecir.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For more control, use the individual Parse/Canonicalize/Lower/Print
// stages, or the pattern families in the transform package directly.
package vecir

import (
	"fmt"

	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
	"github.com/gogpu/vecir/text"
	"github.com/gogpu/vecir/transform"
)

// LowerOptions configures the lowering pipeline.
type LowerOptions struct {
	// Transform selects the per-family lowering strategies.
	Transform transform.Options

	// SplitTransfers aligns transfer granularity with the slices
	// consuming or producing the transferred vectors before lowering.
	SplitTransfers bool

	// Validate enables IR validation after lowering.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() LowerOptions {
	return LowerOptions{
		Transform: transform.Options{},
		Validate:  true,
	}
}

// Parse parses vector assembly source into an IR module.
func Parse(source string) (*ir.Module, error) {
	module, err := text.Parse(source)
	if err != nil {
		return nil, err
	}
	validationErrors, err := ir.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if len(validationErrors) > 0 {
		return nil, fmt.Errorf("validation failed: %w", &validationErrors[0])
	}
	return module, nil
}

// Print renders a module back to canonical textual form.
func Print(module *ir.Module) string {
	return text.Print(module)
}

// Canonicalize applies the generic simplification patterns to every
// function and reports whether anything changed.
func Canonicalize(module *ir.Module) bool {
	patterns := append(
		transform.CanonicalizationPatterns(module.Context),
		transform.TransformationPatterns(module.Context)...)
	changed := false
	for _, fn := range module.Funcs {
		if rewrite.Apply(module.Context, fn, patterns) {
			changed = true
		}
	}
	return changed
}

// Lower runs the full lowering pipeline on a module in place.
//
// The pipeline is:
//  1. Canonicalize
//  2. Split transfers along their consuming slices (if enabled)
//  3. Decompose aggregate slice operations
//  4. Lower contractions, transposes and broadcasts per the options
//  5. Lower transfers to loads and stores where possible
//  6. Validate (if enabled)
func Lower(module *ir.Module, opts LowerOptions) error {
	Canonicalize(module)

	stages := [][]rewrite.Pattern{}
	if opts.SplitTransfers {
		stages = append(stages, transform.SplitTransferPatterns(module.Context, nil))
	}
	stages = append(stages,
		transform.SlicesLoweringPatterns(module.Context),
		transform.ContractLoweringPatterns(module.Context, opts.Transform),
		transform.TransferLoweringPatterns(module.Context),
	)
	for _, fn := range module.Funcs {
		for _, patterns := range stages {
			rewrite.Apply(module.Context, fn, patterns)
		}
	}

	if opts.Validate {
		validationErrors, err := ir.Validate(module)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		if len(validationErrors) > 0 {
			return fmt.Errorf("validation failed: %w", &validationErrors[0])
		}
	}
	return nil
}

// LowerSource parses, lowers and reprints a module in one call.
func LowerSource(source string, opts LowerOptions) (string, error) {
	module, err := Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	if err := Lower(module, opts); err != nil {
		return "", fmt.Errorf("lowering error: %w", err)
	}
	return Print(module), nil
}
