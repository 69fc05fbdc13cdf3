package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// SlicesLoweringPatterns returns rewrites that decompose the aggregate
// slice operations into elementary single-slice operations. When every
// aggregate value is locally consumed, the tuples vanish under the
// driver's folding and dead-code elimination.
func SlicesLoweringPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		lowerExtractSlices{},
		lowerInsertSlices{},
	}
}

// lowerExtractSlices turns extract_slices into a tuple of strided
// slices, one per tile, boundary tiles clipped.
type lowerExtractSlices struct{}

func (lowerExtractSlices) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.ExtractSlices)
	return ok
}

func (lowerExtractSlices) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	es := op.Inner.(ir.ExtractSlices)
	src := op.Operands[0]
	vt, _ := src.VectorType()

	counts := ir.TileCounts(vt.Shape, es.Sizes)
	n := ir.NumTiles(counts)
	strides := make([]int64, len(es.Sizes))
	for i := range strides {
		strides[i] = 1
	}

	tiles := make([]*ir.Operation, n)
	for i := int64(0); i < n; i++ {
		coords := ir.TileCoords(counts, i)
		offsets := ir.TileOffsets(es.Sizes, coords)
		sizes := ir.TileShape(vt.Shape, es.Sizes, coords)
		tiles[i] = r.ExtractStridedSlice(src, offsets, sizes, strides)
	}
	r.Replace(op, r.Tuple(tiles...))
	return true
}

// lowerInsertSlices turns insert_slices into a chain of strided inserts
// of the tuple's tiles.
type lowerInsertSlices struct{}

func (lowerInsertSlices) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.InsertSlices)
	return ok
}

func (lowerInsertSlices) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	is := op.Inner.(ir.InsertSlices)
	tuple := op.Operands[0]
	vt, _ := op.VectorType()

	counts := ir.TileCounts(vt.Shape, is.Sizes)
	n := ir.NumTiles(counts)
	strides := make([]int64, len(is.Sizes))
	for i := range strides {
		strides[i] = 1
	}

	// Every element of the seed is overwritten by the tile inserts.
	acc := zeroSplat(r, vt)
	for i := int64(0); i < n; i++ {
		coords := ir.TileCoords(counts, i)
		offsets := ir.TileOffsets(is.Sizes, coords)
		tile := r.TupleGet(tuple, int(i))
		acc = r.InsertStridedSlice(tile, acc, offsets, strides)
	}
	r.Replace(op, acc)
	return true
}
