package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

func identityPerm(n int) []int64 {
	perm := make([]int64, n)
	for i := range perm {
		perm[i] = int64(i)
	}
	return perm
}

func isIdentityPerm(perm []int64) bool {
	for i, p := range perm {
		if p != int64(i) {
			return false
		}
	}
	return true
}

// composePerms returns the permutation applying inner first, then outer.
func composePerms(inner, outer []int64) []int64 {
	composed := make([]int64, len(outer))
	for i, p := range outer {
		composed[i] = inner[p]
	}
	return composed
}

func intsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allUnit(strides []int64) bool {
	for _, s := range strides {
		if s != 1 {
			return false
		}
	}
	return true
}

func allUnmasked(masked []bool) bool {
	for _, m := range masked {
		if m {
			return false
		}
	}
	return true
}

// constIndexValue reports the value of a constant integer scalar, such
// as a transfer index operand.
func constIndexValue(op *ir.Operation) (int64, bool) {
	c, ok := op.Inner.(ir.Constant)
	if !ok {
		return 0, false
	}
	st, ok := op.Type.(ir.ScalarType)
	if !ok || st.Kind == ir.ScalarFloat {
		return 0, false
	}
	return int64(c.Bits), true
}

// zeroSplat materializes a vector whose contents are irrelevant because
// every element is overwritten by the rewrite that requested it.
func zeroSplat(r *rewrite.Rewriter, vt ir.VectorType) *ir.Operation {
	zero := r.ConstantBits(0, vt.Elem)
	return r.Broadcast(zero, vt)
}

// leadingCoords enumerates every coordinate of the leading lead dims of
// shape, row-major.
func leadingCoords(shape []int64, lead int) [][]int64 {
	total := int64(1)
	for _, d := range shape[:lead] {
		total *= d
	}
	coords := make([][]int64, 0, total)
	for n := int64(0); n < total; n++ {
		coord := make([]int64, lead)
		rem := n
		for i := lead - 1; i >= 0; i-- {
			coord[i] = rem % shape[i]
			rem /= shape[i]
		}
		coords = append(coords, coord)
	}
	return coords
}
