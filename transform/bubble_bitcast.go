package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// BubbleBitCastPatterns returns rewrites that move bitcasts next to the
// extract or insert they feed, so the casts operate on the smallest
// vectors and adjacent casts can cancel.
func BubbleBitCastPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		bubbleDownBitCastExtract{},
		bubbleUpBitCastInsert{},
	}
}

// bubbleDownBitCastExtract turns extract(bitcast(x)) into
// bitcast(extract(x)): the extract consumes leading dimensions only,
// while the bitcast rescales the minor dimension, so they commute as
// long as the extract result is still a vector.
type bubbleDownBitCastExtract struct{}

func (bubbleDownBitCastExtract) Match(op *ir.Operation) bool {
	ext, ok := op.Inner.(ir.Extract)
	if !ok {
		return false
	}
	if _, ok := op.VectorType(); !ok {
		return false
	}
	cast := op.Operands[0]
	if _, ok := cast.Inner.(ir.BitCast); !ok {
		return false
	}
	castVT, _ := cast.VectorType()
	return len(ext.Position) < castVT.Rank()
}

func (bubbleDownBitCastExtract) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	ext := op.Inner.(ir.Extract)
	cast := op.Operands[0]
	vt, _ := op.VectorType()

	src := cast.Operands[0]
	srcVT, _ := src.VectorType()
	sub := ir.VectorType{Shape: srcVT.Shape[len(ext.Position):], Elem: srcVT.Elem}
	if _, err := ir.BitCastResultShape(sub, vt.Elem); err != nil {
		return false
	}
	r.Replace(op, r.BitCast(r.Extract(src, ext.Position), vt.Elem))
	return true
}

// bubbleUpBitCastInsert turns bitcast(insert(v, dest)) into
// insert(bitcast(v), bitcast(dest)), guarded by minor-dimension
// divisibility of both casts.
type bubbleUpBitCastInsert struct{}

func (bubbleUpBitCastInsert) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.BitCast); !ok {
		return false
	}
	insert := op.Operands[0]
	if _, ok := insert.Inner.(ir.Insert); !ok {
		return false
	}
	_, valueIsVector := insert.Operands[0].VectorType()
	return valueIsVector
}

func (bubbleUpBitCastInsert) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	vt, _ := op.VectorType()
	insert := op.Operands[0]
	ins := insert.Inner.(ir.Insert)
	value := insert.Operands[0]
	dest := insert.Operands[1]

	valueVT, _ := value.VectorType()
	destVT, _ := dest.VectorType()
	if _, err := ir.BitCastResultShape(valueVT, vt.Elem); err != nil {
		return false
	}
	if _, err := ir.BitCastResultShape(destVT, vt.Elem); err != nil {
		return false
	}
	castValue := r.BitCast(value, vt.Elem)
	castDest := r.BitCast(dest, vt.Elem)
	r.Replace(op, r.Insert(castValue, castDest, ins.Position))
	return true
}
