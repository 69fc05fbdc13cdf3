package vecir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/vecir/transform"
)

const contractKernel = `func @matmul(%arg0: vector<4x4xf32>, %arg1: vector<4x4xf32>, %arg2: vector<4x4xf32>) -> vector<4x4xf32> {
  %0 = contract %arg0, %arg1, %arg2 {kind = add, lhs_contract = [1], rhs_contract = [0]} : (vector<4x4xf32>, vector<4x4xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  return %0 : (vector<4x4xf32>)
}
`

// TestLowerSourceDefault lowers a contraction with the default (dot)
// strategy and checks the contraction is fully decomposed.
func TestLowerSourceDefault(t *testing.T) {
	out, err := LowerSource(contractKernel, DefaultOptions())
	if err != nil {
		t.Fatalf("LowerSource failed: %v", err)
	}
	if strings.Contains(out, "contract") {
		t.Errorf("contraction survived lowering:\n%s", out)
	}
	if !strings.Contains(out, "reduction") {
		t.Errorf("dot strategy should produce reductions:\n%s", out)
	}
}

// TestLowerSourceMatmul lowers the same contraction to the flat
// matrix-multiply primitive.
func TestLowerSourceMatmul(t *testing.T) {
	opts := DefaultOptions()
	opts.Transform = opts.Transform.WithContractLowering(transform.ContractMatmul)
	out, err := LowerSource(contractKernel, opts)
	if err != nil {
		t.Fatalf("LowerSource failed: %v", err)
	}
	if strings.Contains(out, "contract") {
		t.Errorf("contraction survived lowering:\n%s", out)
	}
	if strings.Count(out, "matrix_multiply") != 1 {
		t.Errorf("expected exactly one matrix_multiply:\n%s", out)
	}
	if strings.Contains(out, "reduction") {
		t.Errorf("matmul strategy should not produce reductions:\n%s", out)
	}
}

// TestLoweredOutputReparses checks the printed lowering round-trips
// through the parser and validator.
func TestLoweredOutputReparses(t *testing.T) {
	out, err := LowerSource(contractKernel, DefaultOptions())
	if err != nil {
		t.Fatalf("LowerSource failed: %v", err)
	}
	module, err := Parse(out)
	if err != nil {
		t.Fatalf("lowered output does not reparse: %v", err)
	}
	if diff := cmp.Diff(out, Print(module)); diff != "" {
		t.Errorf("reprint differs from lowered output (-want +got):\n%s", diff)
	}
}

// TestCanonicalize checks that mutually inverse transposes cancel.
func TestCanonicalize(t *testing.T) {
	source := `func @t(%arg0: vector<2x3xf32>) -> vector<2x3xf32> {
  %0 = transpose %arg0 {permutation = [1, 0]} : (vector<2x3xf32>) -> vector<3x2xf32>
  %1 = transpose %0 {permutation = [1, 0]} : (vector<3x2xf32>) -> vector<2x3xf32>
  return %1 : (vector<2x3xf32>)
}
`
	module, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !Canonicalize(module) {
		t.Fatal("Canonicalize reported no change")
	}
	if out := Print(module); strings.Contains(out, "transpose") {
		t.Errorf("transposes survived canonicalization:\n%s", out)
	}
}

// TestParseSyntaxError tests error handling for malformed source.
func TestParseSyntaxError(t *testing.T) {
	source := `func @bad(%arg0: vector<4xf32> {
  return %arg0 : (vector<4xf32>)
}
`
	if _, err := Parse(source); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

// TestParseValidationError tests that Parse rejects structurally
// invalid modules.
func TestParseValidationError(t *testing.T) {
	source := `func @bad(%arg0: vector<3xf32>) -> vector<4xf32> {
  %0 = broadcast %arg0 : (vector<3xf32>) -> vector<4xf32>
  return %0 : (vector<4xf32>)
}
`
	if _, err := Parse(source); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

// TestLowerSkipsValidation checks the Validate switch is honored.
func TestLowerSkipsValidation(t *testing.T) {
	module, err := Parse(contractKernel)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	opts := DefaultOptions()
	opts.Validate = false
	if err := Lower(module, opts); err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
}
