package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// CanonicalizationPatterns returns the generic simplifications that
// apply regardless of lowering strategy: cast and broadcast chains,
// extract/insert cancellation, and transpose composition.
func CanonicalizationPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		shapeCastChain{},
		bitCastChain{},
		broadcastChain{},
		extractOfBroadcast{},
		extractOfInsert{},
		trivialExtract{},
		trivialInsert{},
		transposeIdentity{},
		transposeChain{},
	}
}

// shapeCastChain collapses shape_cast of shape_cast into one cast from
// the original source.
type shapeCastChain struct{}

func (shapeCastChain) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.ShapeCast); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.ShapeCast)
	return ok
}

func (shapeCastChain) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	vt, _ := op.VectorType()
	r.Replace(op, r.ShapeCast(op.Operands[0].Operands[0], vt.Shape))
	return true
}

// bitCastChain collapses bitcast of bitcast into one cast to the final
// element type.
type bitCastChain struct{}

func (bitCastChain) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.BitCast); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.BitCast)
	return ok
}

func (bitCastChain) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0].Operands[0]
	srcVT, _ := src.VectorType()
	vt, _ := op.VectorType()
	if _, err := ir.BitCastResultShape(srcVT, vt.Elem); err != nil {
		return false
	}
	r.Replace(op, r.BitCast(src, vt.Elem))
	return true
}

// broadcastChain collapses broadcast of broadcast.
type broadcastChain struct{}

func (broadcastChain) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Broadcast); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.Broadcast)
	return ok
}

func (broadcastChain) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0].Operands[0]
	vt, _ := op.VectorType()
	if !ir.BroadcastCompatible(src.Type, vt) {
		return false
	}
	r.Replace(op, r.Broadcast(src, vt))
	return true
}

// extractOfBroadcast folds extract over a scalar broadcast: the result
// is the scalar itself, or a smaller broadcast of it.
type extractOfBroadcast struct{}

func (extractOfBroadcast) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Extract); !ok {
		return false
	}
	bcast := op.Operands[0]
	if _, ok := bcast.Inner.(ir.Broadcast); !ok {
		return false
	}
	_, scalar := bcast.Operands[0].Type.(ir.ScalarType)
	return scalar
}

func (extractOfBroadcast) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	scalar := op.Operands[0].Operands[0]
	if vt, ok := op.VectorType(); ok {
		r.Replace(op, r.Broadcast(scalar, vt))
	} else {
		r.Replace(op, scalar)
	}
	return true
}

// extractOfInsert cancels extract against a dominating insert: an
// extract at the inserted position yields the inserted value, and an
// extract at a provably different position reads through to the
// destination.
type extractOfInsert struct{}

func (extractOfInsert) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Extract); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.Insert)
	return ok
}

func (extractOfInsert) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	ext := op.Inner.(ir.Extract)
	insert := op.Operands[0]
	ins := insert.Inner.(ir.Insert)

	if intsEqual(ext.Position, ins.Position) {
		r.Replace(op, insert.Operands[0])
		return true
	}
	// Positions disjoint in their common prefix: the insert cannot have
	// touched the extracted region.
	n := len(ext.Position)
	if len(ins.Position) < n {
		n = len(ins.Position)
	}
	for i := 0; i < n; i++ {
		if ext.Position[i] != ins.Position[i] {
			r.Replace(op, r.Extract(insert.Operands[1], ext.Position))
			return true
		}
	}
	return false
}

// trivialExtract forwards an extract with an empty position.
type trivialExtract struct{}

func (trivialExtract) Match(op *ir.Operation) bool {
	ext, ok := op.Inner.(ir.Extract)
	return ok && len(ext.Position) == 0
}

func (trivialExtract) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	r.Replace(op, op.Operands[0])
	return true
}

// trivialInsert forwards an insert that overwrites the whole
// destination.
type trivialInsert struct{}

func (trivialInsert) Match(op *ir.Operation) bool {
	ins, ok := op.Inner.(ir.Insert)
	return ok && len(ins.Position) == 0
}

func (trivialInsert) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	r.Replace(op, op.Operands[0])
	return true
}

// transposeIdentity forwards transposes with the identity permutation.
type transposeIdentity struct{}

func (transposeIdentity) Match(op *ir.Operation) bool {
	tr, ok := op.Inner.(ir.Transpose)
	return ok && isIdentityPerm(tr.Permutation)
}

func (transposeIdentity) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	r.Replace(op, op.Operands[0])
	return true
}

// transposeChain composes transpose of transpose into one permutation.
type transposeChain struct{}

func (transposeChain) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Transpose); !ok {
		return false
	}
	_, ok := op.Operands[0].Inner.(ir.Transpose)
	return ok
}

func (transposeChain) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	outer := op.Inner.(ir.Transpose)
	inner := op.Operands[0].Inner.(ir.Transpose)
	composed := composePerms(inner.Permutation, outer.Permutation)
	if isIdentityPerm(composed) {
		r.Replace(op, op.Operands[0].Operands[0])
		return true
	}
	r.Replace(op, r.Transpose(op.Operands[0].Operands[0], composed))
	return true
}
