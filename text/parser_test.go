package text

import (
	"strings"
	"testing"

	"github.com/gogpu/vecir/ir"
)

const kernelSource = `func @kernel(%arg0: memref<8x8xf32>) -> vector<4x4xf32> {
  %0 = constant {value = 0} : () -> i64
  %1 = constant {value = 0} : () -> f32
  %2 = transfer_read %arg0, %0, %0, %1 {permutation = [0, 1], masked = [true, true]} : (memref<8x8xf32>, i64, i64, f32) -> vector<4x4xf32>
  %3 = transpose %2 {permutation = [1, 0]} : (vector<4x4xf32>) -> vector<4x4xf32>
  %4 = broadcast %1 : (f32) -> vector<4x4xf32>
  %5 = contract %2, %3, %4 {kind = add, lhs_contract = [1], rhs_contract = [0]} : (vector<4x4xf32>, vector<4x4xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  return %5 : (vector<4x4xf32>)
}
`

func TestParse_Kernel(t *testing.T) {
	module, err := Parse(kernelSource)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(module.Funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(module.Funcs))
	}

	fn := module.Func("kernel")
	if fn == nil {
		t.Fatal("function kernel not found")
	}
	// 1 argument + 7 body ops.
	if len(fn.Ops) != 8 {
		t.Fatalf("got %d ops, want 8", len(fn.Ops))
	}

	errs, err := ir.Validate(module)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("validation errors: %v", errs)
	}

	ret := fn.Terminator()
	if ret == nil {
		t.Fatal("no terminator")
	}
	contract, ok := ret.Operands[0].Inner.(ir.Contract)
	if !ok {
		t.Fatalf("returned op is %T, want Contract", ret.Operands[0].Inner)
	}
	if contract.Kind.Kind() != ir.CombiningAdd {
		t.Errorf("contract kind is %v, want add", contract.Kind.Kind())
	}
	if contract.Kind != ir.CombiningKindAttrOf(ir.CombiningAdd, module.Context) {
		t.Error("contract kind attribute not interned in the module context")
	}
}

func TestParsePrint_RoundTrip(t *testing.T) {
	module, err := Parse(kernelSource)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	printed := Print(module)
	if printed != kernelSource {
		t.Errorf("canonical form differs.\ngot:\n%s\nwant:\n%s", printed, kernelSource)
	}

	// Printing is stable under a second round trip.
	again, err := Parse(printed)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if Print(again) != printed {
		t.Error("second round trip changed the text")
	}
}

func TestParse_UnknownCombiningKind(t *testing.T) {
	source := `func @f(%arg0: vector<4xf32>) -> f32 {
  %0 = reduction %arg0 {kind = frobnicate} : (vector<4xf32>) -> f32
  return %0 : (f32)
}
`
	_, err := Parse(source)
	if err == nil {
		t.Fatal("unknown combining kind parsed but should not")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if !strings.Contains(perr.Message, "unrecognized combining kind") {
		t.Errorf("unexpected message: %s", perr.Message)
	}
	if perr.Pos.Line != 2 {
		t.Errorf("error on line %d, want 2", perr.Pos.Line)
	}
	if !strings.Contains(perr.FormatWithContext(), "^") {
		t.Error("context format missing caret")
	}
}

func TestParse_UndefinedValue(t *testing.T) {
	source := `func @f() {
  return %nope : (f32)
}
`
	_, err := Parse(source)
	if err == nil || !strings.Contains(err.Error(), "undefined value") {
		t.Fatalf("expected an undefined-value error, got %v", err)
	}
}

func TestParse_OperandTypeMismatch(t *testing.T) {
	source := `func @f(%arg0: vector<4xf32>) -> f32 {
  %0 = reduction %arg0 {kind = add} : (vector<8xf32>) -> f32
  return %0 : (f32)
}
`
	_, err := Parse(source)
	if err == nil || !strings.Contains(err.Error(), "signature says") {
		t.Fatalf("expected a type-mismatch error, got %v", err)
	}
}

func TestParse_HalfConstantBits(t *testing.T) {
	source := `func @f() -> f16 {
  %0 = constant {bits = 0x3c00} : () -> f16
  return %0 : (f16)
}
`
	module, err := Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	c := module.Funcs[0].Ops[0].Inner.(ir.Constant)
	if c.Bits != 0x3c00 {
		t.Errorf("bits = %#x, want 0x3c00", c.Bits)
	}
	if !strings.Contains(Print(module), "bits = 0x3c00") {
		t.Error("f16 constant not printed as raw bits")
	}
}

func TestParse_TupleTypes(t *testing.T) {
	source := `func @f(%arg0: vector<4x4xf32>) -> vector<2x2xf32> {
  %0 = extract_slices %arg0 {sizes = [2, 2], strides = [1, 1]} : (vector<4x4xf32>) -> tuple<vector<2x2xf32>, vector<2x2xf32>, vector<2x2xf32>, vector<2x2xf32>>
  %1 = tuple_get %0 {index = 3} : (tuple<vector<2x2xf32>, vector<2x2xf32>, vector<2x2xf32>, vector<2x2xf32>>) -> vector<2x2xf32>
  return %1 : (vector<2x2xf32>)
}
`
	module, err := Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if errs, _ := ir.Validate(module); len(errs) != 0 {
		t.Fatalf("validation errors: %v", errs)
	}
	if Print(module) != source {
		t.Errorf("canonical form differs.\ngot:\n%s", Print(module))
	}
}
