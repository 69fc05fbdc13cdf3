package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vecir/ir"
)

// identityTranspose forwards transposes whose permutation is the
// identity.
type identityTranspose struct{}

func (identityTranspose) Match(op *ir.Operation) bool {
	inner, ok := op.Inner.(ir.Transpose)
	if !ok {
		return false
	}
	for i, p := range inner.Permutation {
		if p != int64(i) {
			return false
		}
	}
	return true
}

func (identityTranspose) Rewrite(r *Rewriter, op *ir.Operation) bool {
	r.Replace(op, op.Operands[0])
	return true
}

// alwaysDecline matches everything and rewrites nothing.
type alwaysDecline struct{}

func (alwaysDecline) Match(*ir.Operation) bool              { return true }
func (alwaysDecline) Rewrite(*Rewriter, *ir.Operation) bool { return false }

func vecFunc(t *testing.T) (*ir.Module, *ir.Function, *ir.Builder) {
	t.Helper()
	module := ir.NewModule()
	vt := module.Context.VectorOf([]int64{4, 4}, ir.F32)
	fn := ir.NewFunction("f", []ir.TypeInner{vt})
	module.Funcs = append(module.Funcs, fn)
	return module, fn, ir.NewBuilder(module.Context, fn)
}

func TestApply_FixedPoint(t *testing.T) {
	module, fn, b := vecFunc(t)
	// Two stacked identity transposes; both must fold away.
	t1 := b.Transpose(fn.Argument(0), []int64{0, 1})
	t2 := b.Transpose(t1, []int64{0, 1})
	b.Return(t2)

	changed := Apply(module.Context, fn, []Pattern{identityTranspose{}})
	require.True(t, changed)

	ret := fn.Terminator()
	require.NotNil(t, ret)
	assert.Same(t, fn.Argument(0), ret.Operands[0])
	assert.Len(t, fn.Ops, 2) // argument + return
}

func TestApply_DeclineIsNotChange(t *testing.T) {
	module, fn, b := vecFunc(t)
	b.Return(b.Transpose(fn.Argument(0), []int64{1, 0}))

	before := len(fn.Ops)
	changed := Apply(module.Context, fn, []Pattern{alwaysDecline{}, identityTranspose{}})
	assert.False(t, changed)
	assert.Len(t, fn.Ops, before)
}

func TestApply_NoPatterns(t *testing.T) {
	module, fn, b := vecFunc(t)
	b.Return(fn.Argument(0))
	assert.False(t, Apply(module.Context, fn, nil))
}

func TestFold_TupleGetOfTuple(t *testing.T) {
	module, fn, b := vecFunc(t)
	arg := fn.Argument(0)
	tr := b.Transpose(arg, []int64{1, 0})
	tup := b.Tuple(arg, tr)
	b.Return(b.TupleGet(tup, 1))

	changed := Apply(module.Context, fn, nil)
	require.True(t, changed)
	assert.Same(t, tr, fn.Terminator().Operands[0])
	// The tuple itself is dead once the projection is forwarded.
	for _, op := range fn.Ops {
		_, isTuple := op.Inner.(ir.Tuple)
		assert.False(t, isTuple)
	}
}

func TestFold_CastToSameType(t *testing.T) {
	module, fn, b := vecFunc(t)
	arg := fn.Argument(0)
	sc := b.ShapeCast(arg, []int64{4, 4})
	bc := b.Broadcast(sc, ir.VectorType{Shape: []int64{4, 4}, Elem: ir.F32})
	b.Return(bc)

	require.True(t, Apply(module.Context, fn, nil))
	assert.Same(t, arg, fn.Terminator().Operands[0])
}

func TestEliminateDeadOps(t *testing.T) {
	_, fn, b := vecFunc(t)
	arg := fn.Argument(0)
	// A dead chain and a live op.
	dead := b.Transpose(arg, []int64{1, 0})
	b.Transpose(dead, []int64{1, 0})
	live := b.Transpose(arg, []int64{1, 0})
	b.Return(live)

	require.True(t, EliminateDeadOps(fn))
	assert.Len(t, fn.Ops, 3) // argument, live transpose, return
	assert.False(t, EliminateDeadOps(fn))
}

func TestRewriter_InsertsBeforeAnchor(t *testing.T) {
	module, fn, b := vecFunc(t)
	arg := fn.Argument(0)
	tr := b.Transpose(arg, []int64{1, 0})
	b.Return(tr)

	r := newRewriter(module.Context, fn, tr)
	repl := r.Transpose(arg, []int64{1, 0})
	r.Replace(tr, repl)

	// The replacement sits where the anchor was, before the return.
	ret := fn.Terminator()
	assert.Same(t, repl, ret.Operands[0])
	assert.Same(t, repl, fn.Ops[1])
}
