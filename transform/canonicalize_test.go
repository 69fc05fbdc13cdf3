package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
	"github.com/gogpu/vecir/text"
)

func parseFunc(t *testing.T, source string) (*ir.Module, *ir.Function) {
	t.Helper()
	module, err := text.Parse(source)
	require.NoError(t, err)
	errs, err := ir.Validate(module)
	require.NoError(t, err)
	require.Empty(t, errs)
	return module, module.Funcs[0]
}

// applyAndValidate runs the patterns to a fixed point and checks the
// function is still well formed afterwards.
func applyAndValidate(t *testing.T, module *ir.Module, fn *ir.Function, patterns []rewrite.Pattern) bool {
	t.Helper()
	changed := rewrite.Apply(module.Context, fn, patterns)
	errs, err := ir.Validate(module)
	require.NoError(t, err)
	require.Empty(t, errs)
	return changed
}

func numOps[T ir.OpInner](fn *ir.Function) int {
	n := 0
	for _, op := range fn.Ops {
		if _, ok := op.Inner.(T); ok {
			n++
		}
	}
	return n
}

func findOp[T ir.OpInner](t *testing.T, fn *ir.Function) (*ir.Operation, T) {
	t.Helper()
	for _, op := range fn.Ops {
		if inner, ok := op.Inner.(T); ok {
			return op, inner
		}
	}
	var zero T
	t.Fatalf("no %T in function %s", zero, fn.Name)
	return nil, zero
}

func TestCanonicalize_TransposeInverse(t *testing.T) {
	module, fn := parseFunc(t, `func @t(%arg0: vector<2x3xf32>) -> vector<2x3xf32> {
  %0 = transpose %arg0 {permutation = [1, 0]} : (vector<2x3xf32>) -> vector<3x2xf32>
  %1 = transpose %0 {permutation = [1, 0]} : (vector<3x2xf32>) -> vector<2x3xf32>
  return %1 : (vector<2x3xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	// Both transposes cancel; only the argument and the return remain.
	assert.Len(t, fn.Ops, 2)
	assert.Same(t, fn.Ops[0], fn.Terminator().Operands[0])
}

func TestCanonicalize_TransposeCompose(t *testing.T) {
	module, fn := parseFunc(t, `func @t(%arg0: vector<2x3x4xf32>) -> vector<4x2x3xf32> {
  %0 = transpose %arg0 {permutation = [1, 2, 0]} : (vector<2x3x4xf32>) -> vector<3x4x2xf32>
  %1 = transpose %0 {permutation = [1, 2, 0]} : (vector<3x4x2xf32>) -> vector<4x2x3xf32>
  return %1 : (vector<4x2x3xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	assert.Equal(t, 1, numOps[ir.Transpose](fn))
	_, tr := findOp[ir.Transpose](t, fn)
	assert.Equal(t, []int64{2, 0, 1}, tr.Permutation)
}

func TestCanonicalize_ExtractOfInsert(t *testing.T) {
	module, fn := parseFunc(t, `func @e(%arg0: vector<4xf32>, %arg1: vector<2x4xf32>) -> vector<4xf32> {
  %0 = insert %arg0, %arg1 {position = [0]} : (vector<4xf32>, vector<2x4xf32>) -> vector<2x4xf32>
  %1 = extract %0 {position = [0]} : (vector<2x4xf32>) -> vector<4xf32>
  return %1 : (vector<4xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	// Extract at the inserted position yields the inserted value.
	assert.Same(t, fn.Ops[0], fn.Terminator().Operands[0])
	assert.Equal(t, 0, numOps[ir.Insert](fn))
}

func TestCanonicalize_ExtractBesideInsert(t *testing.T) {
	module, fn := parseFunc(t, `func @e(%arg0: vector<4xf32>, %arg1: vector<2x4xf32>) -> vector<4xf32> {
  %0 = insert %arg0, %arg1 {position = [0]} : (vector<4xf32>, vector<2x4xf32>) -> vector<2x4xf32>
  %1 = extract %0 {position = [1]} : (vector<2x4xf32>) -> vector<4xf32>
  return %1 : (vector<4xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	// A disjoint extract reads through the insert to its destination.
	ext, _ := findOp[ir.Extract](t, fn)
	assert.Same(t, fn.Ops[1], ext.Operands[0])
	assert.Equal(t, 0, numOps[ir.Insert](fn))
}

func TestCanonicalize_ExtractOfSplat(t *testing.T) {
	module, fn := parseFunc(t, `func @b(%arg0: f32) -> f32 {
  %0 = broadcast %arg0 : (f32) -> vector<4xf32>
  %1 = extract %0 {position = [2]} : (vector<4xf32>) -> f32
  return %1 : (f32)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	assert.Len(t, fn.Ops, 2)
	assert.Same(t, fn.Ops[0], fn.Terminator().Operands[0])
}

func TestCanonicalize_ShapeCastChain(t *testing.T) {
	module, fn := parseFunc(t, `func @s(%arg0: vector<4x4xf32>) -> vector<2x8xf32> {
  %0 = shape_cast %arg0 : (vector<4x4xf32>) -> vector<16xf32>
  %1 = shape_cast %0 : (vector<16xf32>) -> vector<2x8xf32>
  return %1 : (vector<2x8xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	assert.Equal(t, 1, numOps[ir.ShapeCast](fn))
	cast, _ := findOp[ir.ShapeCast](t, fn)
	assert.Same(t, fn.Ops[0], cast.Operands[0])
	vt, _ := cast.VectorType()
	assert.Equal(t, []int64{2, 8}, vt.Shape)
}

func TestCanonicalize_BroadcastChain(t *testing.T) {
	module, fn := parseFunc(t, `func @b(%arg0: f32) -> vector<2x4xf32> {
  %0 = broadcast %arg0 : (f32) -> vector<4xf32>
  %1 = broadcast %0 : (vector<4xf32>) -> vector<2x4xf32>
  return %1 : (vector<2x4xf32>)
}
`)
	require.True(t, applyAndValidate(t, module, fn, CanonicalizationPatterns(module.Context)))

	assert.Equal(t, 1, numOps[ir.Broadcast](fn))
	bcast, _ := findOp[ir.Broadcast](t, fn)
	assert.Same(t, fn.Ops[0], bcast.Operands[0])
	vt, _ := bcast.VectorType()
	assert.Equal(t, []int64{2, 4}, vt.Shape)
}
