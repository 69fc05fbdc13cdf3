package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// TransformationPatterns returns structural rewrites that go beyond
// canonicalization: they reshape operations to expose further
// simplification, while staying semantics-preserving.
func TransformationPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		tupleGetOverSlices{},
		transferReadForwarding{},
		stridedSliceChain{},
	}
}

// tupleGetOverSlices turns a projection out of extract_slices into a
// direct strided slice of the source vector, bypassing the aggregate.
type tupleGetOverSlices struct{}

func (tupleGetOverSlices) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.TupleGet); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.ExtractSlices)
	return ok
}

func (tupleGetOverSlices) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	get := op.Inner.(ir.TupleGet)
	slices := op.Operands[0]
	es := slices.Inner.(ir.ExtractSlices)
	src := slices.Operands[0]
	vt, _ := src.VectorType()

	counts := ir.TileCounts(vt.Shape, es.Sizes)
	coords := ir.TileCoords(counts, int64(get.Index))
	offsets := ir.TileOffsets(es.Sizes, coords)
	sizes := ir.TileShape(vt.Shape, es.Sizes, coords)
	strides := make([]int64, len(sizes))
	for i := range strides {
		strides[i] = 1
	}
	r.Replace(op, r.ExtractStridedSlice(src, offsets, sizes, strides))
	return true
}

// transferReadForwarding replaces a transfer_read with the value most
// recently written to the same memref at the same indices. The nearest
// preceding write must match exactly; anything less is declined.
type transferReadForwarding struct{}

func (transferReadForwarding) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.TransferRead)
	return ok
}

func (transferReadForwarding) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	read := op.Inner.(ir.TransferRead)
	memref := op.Operands[0]
	readIndices := op.Operands[1 : len(op.Operands)-1]

	fn := r.Func()
	pos := -1
	for i, o := range fn.Ops {
		if o == op {
			pos = i
			break
		}
	}
	for i := pos - 1; i >= 0; i-- {
		prev := fn.Ops[i]
		var target *ir.Operation
		switch prev.Inner.(type) {
		case ir.TransferWrite, ir.Store:
			target = prev.Operands[1]
		default:
			continue
		}
		if target != memref {
			continue
		}
		// Nearest write to this memref. Forward only an exact match.
		write, ok := prev.Inner.(ir.TransferWrite)
		if !ok {
			return false
		}
		value := prev.Operands[0]
		if !ir.TypeEqual(value.Type, op.Type) ||
			!intsEqual(write.Permutation, read.Permutation) ||
			!allUnmasked(write.Masked) || !allUnmasked(read.Masked) {
			return false
		}
		writeIndices := prev.Operands[2:]
		if len(writeIndices) != len(readIndices) {
			return false
		}
		for j := range writeIndices {
			if writeIndices[j] != readIndices[j] {
				return false
			}
		}
		r.Replace(op, value)
		return true
	}
	return false
}

// stridedSliceChain folds a strided slice of a strided slice into a
// single slice of the original vector. Both slices must be unit stride.
type stridedSliceChain struct{}

func (stridedSliceChain) Match(op *ir.Operation) bool {
	outer, ok := op.Inner.(ir.ExtractStridedSlice)
	if !ok || !allUnit(outer.Strides) {
		return false
	}
	inner, ok := op.Operands[0].Inner.(ir.ExtractStridedSlice)
	return ok && allUnit(inner.Strides)
}

func (stridedSliceChain) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	outer := op.Inner.(ir.ExtractStridedSlice)
	innerOp := op.Operands[0]
	inner := innerOp.Inner.(ir.ExtractStridedSlice)

	k := len(inner.Offsets)
	if len(outer.Offsets) > k {
		k = len(outer.Offsets)
	}
	offsets := make([]int64, k)
	sizes := make([]int64, k)
	strides := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(inner.Offsets) {
			offsets[i] += inner.Offsets[i]
		}
		if i < len(outer.Offsets) {
			offsets[i] += outer.Offsets[i]
			sizes[i] = outer.Sizes[i]
		} else {
			sizes[i] = inner.Sizes[i]
		}
		strides[i] = 1
	}
	r.Replace(op, r.ExtractStridedSlice(innerOp.Operands[0], offsets, sizes, strides))
	return true
}
