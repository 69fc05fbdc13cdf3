package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// TransferLoweringPatterns returns rewrites from transfer_read and
// transfer_write to plain loads, stores and broadcasts, for the
// transfers those primitives can represent. Masked or non-contiguous
// transfers are left alone; partial coverage here is deliberate.
func TransferLoweringPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		lowerReadToLoad{},
		lowerWriteToStore{},
	}
}

// minorIdentity reports whether the permutation maps vector dimensions
// onto the trailing memref dimensions in order.
func minorIdentity(perm []int64, memrefRank int) bool {
	lead := memrefRank - len(perm)
	if lead < 0 {
		return false
	}
	for d, p := range perm {
		if p != int64(lead+d) {
			return false
		}
	}
	return true
}

type lowerReadToLoad struct{}

func (lowerReadToLoad) Match(op *ir.Operation) bool {
	read, ok := op.Inner.(ir.TransferRead)
	return ok && allUnmasked(read.Masked)
}

func (lowerReadToLoad) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	read := op.Inner.(ir.TransferRead)
	vt, _ := op.VectorType()
	memref := op.Operands[0]
	mt := memref.Type.(ir.MemRefType)
	indices := op.Operands[1 : len(op.Operands)-1]

	if minorIdentity(read.Permutation, mt.Rank()) {
		r.Replace(op, r.Load(memref, indices, vt))
		return true
	}
	// A pure broadcast read loads one element and splats it.
	broadcastOnly := true
	for _, p := range read.Permutation {
		if p != ir.BroadcastDim {
			broadcastOnly = false
			break
		}
	}
	if broadcastOnly {
		one := r.Load(memref, indices, ir.VectorType{Shape: []int64{1}, Elem: vt.Elem})
		r.Replace(op, r.Broadcast(r.Extract(one, []int64{0}), vt))
		return true
	}
	return false
}

type lowerWriteToStore struct{}

func (lowerWriteToStore) Match(op *ir.Operation) bool {
	write, ok := op.Inner.(ir.TransferWrite)
	return ok && allUnmasked(write.Masked)
}

func (lowerWriteToStore) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	write := op.Inner.(ir.TransferWrite)
	memref := op.Operands[1]
	mt := memref.Type.(ir.MemRefType)
	if !minorIdentity(write.Permutation, mt.Rank()) {
		return false
	}
	r.Store(op.Operands[0], memref, op.Operands[2:])
	r.Erase(op)
	return true
}

// ---------------------------------------------------------------------------
// Transfer-split strategies
// ---------------------------------------------------------------------------

// transferSplitPatterns returns the patterns implementing the selected
// masked-transfer strategy.
func transferSplitPatterns(split TransferSplit) []rewrite.Pattern {
	switch split {
	case TransferSplitForceUnmasked:
		return []rewrite.Pattern{forceUnmasked{}}
	case TransferSplitVectorTransfer:
		return []rewrite.Pattern{unmaskInBounds{}}
	case TransferSplitLinalgCopy:
		return []rewrite.Pattern{clipAndFill{}}
	default:
		return nil
	}
}

func anyMasked(masked []bool) bool {
	return !allUnmasked(masked)
}

// forceUnmasked clears masked flags unconditionally: the caller asserts
// every transfer is in bounds.
type forceUnmasked struct{}

func (forceUnmasked) Match(op *ir.Operation) bool {
	switch inner := op.Inner.(type) {
	case ir.TransferRead:
		return anyMasked(inner.Masked)
	case ir.TransferWrite:
		return anyMasked(inner.Masked)
	}
	return false
}

func (forceUnmasked) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	switch inner := op.Inner.(type) {
	case ir.TransferRead:
		vt, _ := op.VectorType()
		sub := r.TransferRead(op.Operands[0],
			op.Operands[1:len(op.Operands)-1],
			op.Operands[len(op.Operands)-1],
			vt, inner.Permutation, nil)
		r.Replace(op, sub)
	case ir.TransferWrite:
		r.TransferWrite(op.Operands[0], op.Operands[1], op.Operands[2:],
			inner.Permutation, nil)
		r.Erase(op)
	}
	return true
}

// transferBounds resolves the statically available extent of each
// vector dimension of a transfer. Requires constant indices.
func transferBounds(vt ir.VectorType, mt ir.MemRefType, perm []int64,
	indices []*ir.Operation) ([]int64, bool) {
	sizes := make([]int64, vt.Rank())
	for d := range sizes {
		if perm[d] == ir.BroadcastDim {
			sizes[d] = vt.Shape[d]
			continue
		}
		idx, ok := constIndexValue(indices[perm[d]])
		if !ok {
			return nil, false
		}
		avail := mt.Shape[perm[d]] - idx
		if avail < 0 {
			avail = 0
		}
		sizes[d] = vt.Shape[d]
		if avail < sizes[d] {
			sizes[d] = avail
		}
	}
	return sizes, true
}

// unmaskInBounds clears masked flags when static shapes and constant
// indices prove the full access in bounds; otherwise it declines.
type unmaskInBounds struct{}

func (unmaskInBounds) Match(op *ir.Operation) bool {
	return forceUnmasked{}.Match(op)
}

func (unmaskInBounds) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	var vt ir.VectorType
	var mt ir.MemRefType
	var perm []int64
	var indices []*ir.Operation
	switch inner := op.Inner.(type) {
	case ir.TransferRead:
		vt, _ = op.VectorType()
		mt = op.Operands[0].Type.(ir.MemRefType)
		perm = inner.Permutation
		indices = op.Operands[1 : len(op.Operands)-1]
	case ir.TransferWrite:
		vt, _ = op.Operands[0].VectorType()
		mt = op.Operands[1].Type.(ir.MemRefType)
		perm = inner.Permutation
		indices = op.Operands[2:]
	}
	sizes, ok := transferBounds(vt, mt, perm, indices)
	if !ok || !intsEqual(sizes, vt.Shape) {
		return false
	}
	return forceUnmasked{}.Rewrite(r, op)
}

// clipAndFill rewrites a masked transfer into its statically in-bounds
// portion: a read becomes a padding fill with the clipped unmasked read
// inserted, and a write stores only the clipped slice of its value.
type clipAndFill struct{}

func (clipAndFill) Match(op *ir.Operation) bool {
	return forceUnmasked{}.Match(op)
}

func (clipAndFill) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	switch inner := op.Inner.(type) {
	case ir.TransferRead:
		vt, _ := op.VectorType()
		mt := op.Operands[0].Type.(ir.MemRefType)
		indices := op.Operands[1 : len(op.Operands)-1]
		padding := op.Operands[len(op.Operands)-1]
		sizes, ok := transferBounds(vt, mt, inner.Permutation, indices)
		if !ok {
			return false
		}
		if intsEqual(sizes, vt.Shape) {
			return forceUnmasked{}.Rewrite(r, op)
		}
		for _, s := range sizes {
			if s == 0 {
				// Nothing in bounds: the whole vector is padding.
				r.Replace(op, r.Broadcast(padding, vt))
				return true
			}
		}
		clipped := r.TransferRead(op.Operands[0], indices, padding,
			ir.VectorType{Shape: sizes, Elem: vt.Elem}, inner.Permutation, nil)
		fill := r.Broadcast(padding, vt)
		zeros := make([]int64, vt.Rank())
		ones := make([]int64, vt.Rank())
		for i := range ones {
			ones[i] = 1
		}
		r.Replace(op, r.InsertStridedSlice(clipped, fill, zeros, ones))
		return true

	case ir.TransferWrite:
		value := op.Operands[0]
		vt, _ := value.VectorType()
		mt := op.Operands[1].Type.(ir.MemRefType)
		indices := op.Operands[2:]
		sizes, ok := transferBounds(vt, mt, inner.Permutation, indices)
		if !ok {
			return false
		}
		if intsEqual(sizes, vt.Shape) {
			return forceUnmasked{}.Rewrite(r, op)
		}
		for _, s := range sizes {
			if s == 0 {
				// Nothing in bounds: the masked write stores nothing.
				r.Erase(op)
				return true
			}
		}
		zeros := make([]int64, vt.Rank())
		ones := make([]int64, vt.Rank())
		for i := range ones {
			ones[i] = 1
		}
		clipped := r.ExtractStridedSlice(value, zeros, sizes, ones)
		r.TransferWrite(clipped, op.Operands[1], indices, inner.Permutation, nil)
		r.Erase(op)
		return true
	}
	return false
}
