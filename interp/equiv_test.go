package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
	"github.com/gogpu/vecir/transform"
)

const contractSource = `func @matmul(%arg0: vector<4x4xf32>, %arg1: vector<4x4xf32>, %arg2: vector<4x4xf32>) -> vector<4x4xf32> {
  %0 = contract %arg0, %arg1, %arg2 {kind = add, lhs_contract = [1], rhs_contract = [0]} : (vector<4x4xf32>, vector<4x4xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  return %0 : (vector<4x4xf32>)
}
`

// Small integer inputs keep every f32 intermediate exact, so the three
// lowering strategies must agree bit for bit despite reassociation.
func matmulArgs() []Value {
	lhs := make([]float64, 16)
	rhs := make([]float64, 16)
	acc := make([]float64, 16)
	for i := range lhs {
		lhs[i] = float64(i % 7)
		rhs[i] = float64((i * 3) % 5)
		acc[i] = float64(i % 3)
	}
	return []Value{
		vecValue([]int64{4, 4}, ir.F32, lhs),
		vecValue([]int64{4, 4}, ir.F32, rhs),
		vecValue([]int64{4, 4}, ir.F32, acc),
	}
}

func lowerContract(t *testing.T, strategy transform.ContractLowering) *ir.Function {
	t.Helper()
	module, fn := parseFunc(t, contractSource)
	opts := transform.Options{}.WithContractLowering(strategy)
	changed := rewrite.Apply(module.Context, fn, transform.ContractLoweringPatterns(module.Context, opts))
	require.True(t, changed, "strategy %s did not fire", strategy)

	errs, err := ir.Validate(module)
	require.NoError(t, err)
	require.Empty(t, errs, "lowered module invalid under %s", strategy)

	// The contraction itself must be gone.
	for _, op := range fn.Ops {
		_, isContract := op.Inner.(ir.Contract)
		require.False(t, isContract, "contract survived %s lowering", strategy)
	}
	return fn
}

func TestContractLowering_StrategiesAgree(t *testing.T) {
	_, reference := parseFunc(t, contractSource)
	want, err := Run(reference, matmulArgs())
	require.NoError(t, err)

	for _, strategy := range []transform.ContractLowering{
		transform.ContractDot,
		transform.ContractMatmul,
		transform.ContractOuterProduct,
	} {
		fn := lowerContract(t, strategy)
		got, err := Run(fn, matmulArgs())
		require.NoError(t, err, "strategy %s", strategy)
		assert.Equal(t, want.Bits, got.Bits, "strategy %s", strategy)
	}
}

func TestContractLowering_AgainstGonum(t *testing.T) {
	args := matmulArgs()
	lhs := mat.NewDense(4, 4, floats(args[0], ir.F32))
	rhs := mat.NewDense(4, 4, floats(args[1], ir.F32))
	var prod mat.Dense
	prod.Mul(lhs, rhs)

	fn := lowerContract(t, transform.ContractDot)
	out, err := Run(fn, args)
	require.NoError(t, err)

	got := floats(out, ir.F32)
	accVals := floats(args[2], ir.F32)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := prod.At(i, j) + accVals[i*4+j]
			assert.Equal(t, want, got[i*4+j], "element (%d,%d)", i, j)
		}
	}
}

func TestContractLowering_Structure(t *testing.T) {
	// Matmul produces exactly one flat multiply and no dot reductions;
	// Dot produces one reduction per result element and no multiplies.
	matmulFn := lowerContract(t, transform.ContractMatmul)
	assert.Equal(t, 1, countOps(matmulFn, func(inner ir.OpInner) bool {
		_, ok := inner.(ir.Matmul)
		return ok
	}))
	assert.Equal(t, 0, countOps(matmulFn, func(inner ir.OpInner) bool {
		_, ok := inner.(ir.Reduction)
		return ok
	}))

	dotFn := lowerContract(t, transform.ContractDot)
	assert.Equal(t, 16, countOps(dotFn, func(inner ir.OpInner) bool {
		_, ok := inner.(ir.Reduction)
		return ok
	}))
	assert.Equal(t, 0, countOps(dotFn, func(inner ir.OpInner) bool {
		_, ok := inner.(ir.Matmul)
		return ok
	}))
}

func TestBatchContract_PeelsAndAgrees(t *testing.T) {
	source := `func @batch(%arg0: vector<2x3x4xf32>, %arg1: vector<2x4x3xf32>, %arg2: vector<2x3x3xf32>) -> vector<2x3x3xf32> {
  %0 = contract %arg0, %arg1, %arg2 {kind = add, lhs_batch = [0], rhs_batch = [0], lhs_contract = [2], rhs_contract = [1]} : (vector<2x3x4xf32>, vector<2x4x3xf32>, vector<2x3x3xf32>) -> vector<2x3x3xf32>
  return %0 : (vector<2x3x3xf32>)
}
`
	lhs := make([]float64, 24)
	rhs := make([]float64, 24)
	acc := make([]float64, 18)
	for i := range lhs {
		lhs[i] = float64(i % 5)
		rhs[i] = float64((i * 7) % 4)
	}
	for i := range acc {
		acc[i] = float64(i % 2)
	}
	args := []Value{
		vecValue([]int64{2, 3, 4}, ir.F32, lhs),
		vecValue([]int64{2, 4, 3}, ir.F32, rhs),
		vecValue([]int64{2, 3, 3}, ir.F32, acc),
	}

	_, reference := parseFunc(t, source)
	want, err := Run(reference, args)
	require.NoError(t, err)

	module, fn := parseFunc(t, source)
	patterns := transform.ContractLoweringPatterns(module.Context, transform.Options{})
	require.True(t, rewrite.Apply(module.Context, fn, patterns))
	errs, err := ir.Validate(module)
	require.NoError(t, err)
	require.Empty(t, errs)

	got, err := Run(fn, args)
	require.NoError(t, err)
	assert.Equal(t, want.Bits, got.Bits)
}

func countOps(fn *ir.Function, pred func(ir.OpInner) bool) int {
	n := 0
	for _, op := range fn.Ops {
		if pred(op.Inner) {
			n++
		}
	}
	return n
}
