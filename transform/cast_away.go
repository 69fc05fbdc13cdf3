package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// CastAwayLeadingOneDimPatterns returns rewrites that strip leading
// size-1 dimensions from operations via shape_cast, exposing the
// rank-reduced forms that extract/insert cancellation and forwarding
// patterns match on.
func CastAwayLeadingOneDimPatterns(ctx *ir.Context) []rewrite.Pattern {
	return []rewrite.Pattern{
		castAwayBroadcast{},
		castAwayElementwise{},
		castAwayTransferRead{},
		castAwayTransferWrite{},
	}
}

// stripLeadingOnes removes leading unit dimensions, keeping at least
// one dimension. Returns the reduced shape and the count removed.
func stripLeadingOnes(shape []int64) ([]int64, int) {
	n := 0
	for n < len(shape)-1 && shape[n] == 1 {
		n++
	}
	return shape[n:], n
}

type castAwayBroadcast struct{}

func (castAwayBroadcast) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Broadcast); !ok {
		return false
	}
	vt, _ := op.VectorType()
	return vt.Rank() > 1 && vt.Shape[0] == 1
}

func (castAwayBroadcast) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	vt, _ := op.VectorType()
	reduced, n := stripLeadingOnes(vt.Shape)
	if n == 0 {
		return false
	}
	reducedVT := ir.VectorType{Shape: reduced, Elem: vt.Elem}
	if !ir.BroadcastCompatible(op.Operands[0].Type, reducedVT) {
		return false
	}
	b := r.Broadcast(op.Operands[0], reducedVT)
	r.Replace(op, r.ShapeCast(b, vt.Shape))
	return true
}

type castAwayElementwise struct{}

func (castAwayElementwise) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Elementwise); !ok {
		return false
	}
	vt, ok := op.VectorType()
	return ok && vt.Rank() > 1 && vt.Shape[0] == 1
}

func (castAwayElementwise) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	inner := op.Inner.(ir.Elementwise)
	vt, _ := op.VectorType()
	reduced, n := stripLeadingOnes(vt.Shape)
	if n == 0 {
		return false
	}
	lhs := r.ShapeCast(op.Operands[0], reduced)
	rhs := r.ShapeCast(op.Operands[1], reduced)
	e := r.Elementwise(inner.Kind, lhs, rhs)
	r.Replace(op, r.ShapeCast(e, vt.Shape))
	return true
}

type castAwayTransferRead struct{}

func (castAwayTransferRead) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.TransferRead); !ok {
		return false
	}
	vt, _ := op.VectorType()
	return vt.Rank() > 1 && vt.Shape[0] == 1
}

func (castAwayTransferRead) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	read := op.Inner.(ir.TransferRead)
	vt, _ := op.VectorType()
	reduced, n := stripLeadingOnes(vt.Shape)
	if n == 0 {
		return false
	}
	// A masked unit dimension may still be out of bounds; leave it.
	for d := 0; d < n; d++ {
		if read.Masked != nil && read.Masked[d] {
			return false
		}
	}
	var masked []bool
	if read.Masked != nil {
		masked = read.Masked[n:]
	}
	memref := op.Operands[0]
	indices := op.Operands[1 : len(op.Operands)-1]
	padding := op.Operands[len(op.Operands)-1]
	sub := r.TransferRead(memref, indices, padding,
		ir.VectorType{Shape: reduced, Elem: vt.Elem},
		read.Permutation[n:], masked)
	r.Replace(op, r.ShapeCast(sub, vt.Shape))
	return true
}

type castAwayTransferWrite struct{}

func (castAwayTransferWrite) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.TransferWrite); !ok {
		return false
	}
	vt, ok := op.Operands[0].VectorType()
	return ok && vt.Rank() > 1 && vt.Shape[0] == 1
}

func (castAwayTransferWrite) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	write := op.Inner.(ir.TransferWrite)
	vt, _ := op.Operands[0].VectorType()
	reduced, n := stripLeadingOnes(vt.Shape)
	if n == 0 {
		return false
	}
	for d := 0; d < n; d++ {
		if write.Masked != nil && write.Masked[d] {
			return false
		}
	}
	var masked []bool
	if write.Masked != nil {
		masked = write.Masked[n:]
	}
	value := r.ShapeCast(op.Operands[0], reduced)
	r.TransferWrite(value, op.Operands[1], op.Operands[2:],
		write.Permutation[n:], masked)
	r.Erase(op)
	return true
}
