package transform

import (
	"fmt"

	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// IgnoreFilter opts an operation out of the split-transfer rewrites.
// A nil filter ignores nothing.
type IgnoreFilter func(*ir.Operation) bool

// SplitTransferPatterns returns rewrites that align transfer
// granularity with the slices consuming or producing the transferred
// vector: a transfer_read fully consumed by uniform strided extracts
// becomes one transfer per slice, and a transfer_write of a complete
// strided insert chain becomes one transfer per inserted tile.
func SplitTransferPatterns(ctx *ir.Context, ignore IgnoreFilter) []rewrite.Pattern {
	return []rewrite.Pattern{
		splitTransferRead{ignore: ignore},
		splitTransferWrite{ignore: ignore},
	}
}

type splitTransferRead struct {
	ignore IgnoreFilter
}

func (splitTransferRead) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.TransferRead)
	return ok
}

func (p splitTransferRead) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	if p.ignore != nil && p.ignore(op) {
		return false
	}
	read := op.Inner.(ir.TransferRead)
	vt, _ := op.VectorType()
	if hasBroadcastDim(read.Permutation) {
		return false
	}

	users := r.Func().Users(op)
	if len(users) == 0 {
		return false
	}
	var sizes []int64
	for _, u := range users {
		slice, ok := u.Inner.(ir.ExtractStridedSlice)
		if !ok || !allUnit(slice.Strides) || len(slice.Sizes) != vt.Rank() {
			return false
		}
		if sizes == nil {
			sizes = slice.Sizes
		} else if !intsEqual(sizes, slice.Sizes) {
			return false
		}
		for d, o := range slice.Offsets {
			if o%sizes[d] != 0 {
				return false
			}
		}
	}

	memref := op.Operands[0]
	indices := op.Operands[1 : len(op.Operands)-1]
	padding := op.Operands[len(op.Operands)-1]
	for _, u := range users {
		slice := u.Inner.(ir.ExtractStridedSlice)
		sub := r.TransferRead(memref,
			shiftIndices(r, indices, read.Permutation, slice.Offsets),
			padding,
			ir.VectorType{Shape: sizes, Elem: vt.Elem},
			read.Permutation, read.Masked)
		r.Replace(u, sub)
	}
	return true
}

type splitTransferWrite struct {
	ignore IgnoreFilter
}

func (splitTransferWrite) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.TransferWrite)
	return ok
}

func (p splitTransferWrite) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	if p.ignore != nil && p.ignore(op) {
		return false
	}
	write := op.Inner.(ir.TransferWrite)
	value := op.Operands[0]
	vt, _ := value.VectorType()
	if hasBroadcastDim(write.Permutation) {
		return false
	}

	// Walk the insert chain feeding the write, outermost first.
	type tile struct {
		src     *ir.Operation
		offsets []int64
	}
	var tiles []tile
	var sizes []int64
	for {
		ins, ok := value.Inner.(ir.InsertStridedSlice)
		if !ok {
			break
		}
		src := value.Operands[0]
		st, ok := src.VectorType()
		if !ok || !allUnit(ins.Strides) || len(ins.Offsets) != vt.Rank() || st.Rank() != vt.Rank() {
			return false
		}
		if sizes == nil {
			sizes = st.Shape
		} else if !intsEqual(sizes, st.Shape) {
			return false
		}
		tiles = append(tiles, tile{src: src, offsets: ins.Offsets})
		value = value.Operands[1]
	}
	if len(tiles) == 0 {
		return false
	}

	// The chain must tile the written vector exactly, with no tile
	// inserted twice.
	for d, size := range sizes {
		if vt.Shape[d]%size != 0 {
			return false
		}
	}
	counts := ir.TileCounts(vt.Shape, sizes)
	if int64(len(tiles)) != ir.NumTiles(counts) {
		return false
	}
	seen := make(map[string]bool, len(tiles))
	for _, t := range tiles {
		for d, o := range t.offsets {
			if o%sizes[d] != 0 {
				return false
			}
		}
		key := fmt.Sprint(t.offsets)
		if seen[key] {
			return false
		}
		seen[key] = true
	}

	memref := op.Operands[1]
	indices := op.Operands[2:]
	for _, t := range tiles {
		r.TransferWrite(t.src, memref,
			shiftIndices(r, indices, write.Permutation, t.offsets),
			write.Permutation, write.Masked)
	}
	r.Erase(op)
	return true
}

func hasBroadcastDim(perm []int64) bool {
	for _, p := range perm {
		if p == ir.BroadcastDim {
			return true
		}
	}
	return false
}

// shiftIndices advances the memref indices by the per-dimension vector
// offsets, routed through the transfer permutation.
func shiftIndices(r *rewrite.Rewriter, indices []*ir.Operation, perm, offsets []int64) []*ir.Operation {
	addKind := ir.CombiningKindAttrOf(ir.CombiningAdd, r.Ctx)
	shifted := make([]*ir.Operation, len(indices))
	copy(shifted, indices)
	for d, o := range offsets {
		if o == 0 {
			continue
		}
		mdim := perm[d]
		st := shifted[mdim].Type.(ir.ScalarType)
		shifted[mdim] = r.Elementwise(addKind, shifted[mdim], r.ConstantInt(o, st))
	}
	return shifted
}
