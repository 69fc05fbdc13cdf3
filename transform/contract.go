package transform

import (
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/rewrite"
)

// ContractLoweringPatterns returns the contraction lowering selected by
// opts, together with the companion lowerings for the operations that
// surround a contraction (2-D shape casts, broadcast, transpose, outer
// product) and the masked-transfer strategy of opts.TransferSplit.
func ContractLoweringPatterns(ctx *ir.Context, opts Options) []rewrite.Pattern {
	patterns := []rewrite.Pattern{contractBatchPeel{}}
	switch opts.ContractLowering {
	case ContractMatmul:
		patterns = append(patterns, contractToMatmul{})
	case ContractOuterProduct:
		patterns = append(patterns, contractToOuterProduct{})
	default:
		patterns = append(patterns, contractPeelLHS{}, contractPeelRHS{}, contractDot{})
	}
	patterns = append(patterns,
		shapeCastUp2D{},
		shapeCastDown2D{},
		broadcastLowering{},
		outerProductLowering{},
		transposeLowering{strategy: opts.TransposeLowering},
	)
	return append(patterns, transferSplitPatterns(opts.TransferSplit)...)
}

// singleAxis reports the contraction axes of a batch-free single-axis
// contraction.
func singleAxis(c ir.Contract) (lhs, rhs int64, ok bool) {
	if len(c.LHSBatch) != 0 || len(c.LHSContract) != 1 {
		return 0, 0, false
	}
	return c.LHSContract[0], c.RHSContract[0], true
}

// contractBatchPeel peels the outermost batch dimension of a
// contraction into per-batch sub-contractions.
type contractBatchPeel struct{}

func (contractBatchPeel) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	return ok && len(c.LHSBatch) > 0
}

func (contractBatchPeel) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	if c.LHSBatch[0] != 0 || c.RHSBatch[0] != 0 {
		return false
	}
	// Every other axis must survive the rank reduction.
	for _, axes := range [][]int64{c.LHSBatch[1:], c.LHSContract} {
		for _, a := range axes {
			if a == 0 {
				return false
			}
		}
	}
	for _, axes := range [][]int64{c.RHSBatch[1:], c.RHSContract} {
		for _, a := range axes {
			if a == 0 {
				return false
			}
		}
	}

	lhs, rhs, acc := op.Operands[0], op.Operands[1], op.Operands[2]
	lvt, _ := lhs.VectorType()
	sub := ir.Contract{
		Kind:        c.Kind,
		LHSBatch:    shiftAxes(c.LHSBatch[1:]),
		RHSBatch:    shiftAxes(c.RHSBatch[1:]),
		LHSContract: shiftAxes(c.LHSContract),
		RHSContract: shiftAxes(c.RHSContract),
	}
	result := acc
	for b := int64(0); b < lvt.Shape[0]; b++ {
		pos := []int64{b}
		part := r.Contract(sub, r.Extract(lhs, pos), r.Extract(rhs, pos), r.Extract(acc, pos))
		result = r.Insert(part, result, pos)
	}
	r.Replace(op, result)
	return true
}

func shiftAxes(axes []int64) []int64 {
	if len(axes) == 0 {
		return nil
	}
	shifted := make([]int64, len(axes))
	for i, a := range axes {
		shifted[i] = a - 1
	}
	return shifted
}

// contractPeelLHS peels the leading free dimension of the lhs into
// per-row sub-contractions, transposing a 2-D lhs first when its
// contracted dimension leads.
type contractPeelLHS struct{}

func (contractPeelLHS) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	if !ok {
		return false
	}
	if _, _, ok := singleAxis(c); !ok {
		return false
	}
	lvt, _ := op.Operands[0].VectorType()
	return lvt.Rank() >= 2
}

func (contractPeelLHS) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	lhsAxis, rhsAxis, _ := singleAxis(c)
	lhs, rhs, acc := op.Operands[0], op.Operands[1], op.Operands[2]
	lvt, _ := lhs.VectorType()

	if lhsAxis == 0 {
		if lvt.Rank() != 2 {
			return false
		}
		lhs = r.Transpose(lhs, []int64{1, 0})
		lhsAxis = 1
		lvt, _ = lhs.VectorType()
	}

	sub := ir.Contract{
		Kind:        c.Kind,
		LHSContract: []int64{lhsAxis - 1},
		RHSContract: []int64{rhsAxis},
	}
	result := acc
	for i := int64(0); i < lvt.Shape[0]; i++ {
		pos := []int64{i}
		part := r.Contract(sub, r.Extract(lhs, pos), rhs, r.Extract(acc, pos))
		result = r.Insert(part, result, pos)
	}
	r.Replace(op, result)
	return true
}

// contractPeelRHS peels the free dimension of a 2-D rhs once the lhs is
// down to a single contracted vector, yielding terminal dot products.
type contractPeelRHS struct{}

func (contractPeelRHS) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	if !ok {
		return false
	}
	if _, _, ok := singleAxis(c); !ok {
		return false
	}
	lvt, _ := op.Operands[0].VectorType()
	rvt, _ := op.Operands[1].VectorType()
	return lvt.Rank() == 1 && rvt.Rank() == 2
}

func (contractPeelRHS) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	_, rhsAxis, _ := singleAxis(c)
	lhs, rhs, acc := op.Operands[0], op.Operands[1], op.Operands[2]

	if rhsAxis == 0 {
		rhs = r.Transpose(rhs, []int64{1, 0})
	}
	rvt, _ := rhs.VectorType()

	sub := ir.Contract{Kind: c.Kind, LHSContract: []int64{0}, RHSContract: []int64{0}}
	result := acc
	for j := int64(0); j < rvt.Shape[0]; j++ {
		pos := []int64{j}
		part := r.Contract(sub, lhs, r.Extract(rhs, pos), r.Extract(acc, pos))
		result = r.Insert(part, result, pos)
	}
	r.Replace(op, result)
	return true
}

// contractDot lowers the terminal 1-D by 1-D contraction: multiply
// element-wise, reduce with the combining kind, combine with the
// accumulator.
type contractDot struct{}

func (contractDot) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	if !ok {
		return false
	}
	if _, _, ok := singleAxis(c); !ok {
		return false
	}
	lvt, _ := op.Operands[0].VectorType()
	rvt, _ := op.Operands[1].VectorType()
	_, scalarAcc := op.Operands[2].Type.(ir.ScalarType)
	return lvt.Rank() == 1 && rvt.Rank() == 1 && scalarAcc
}

func (contractDot) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	mul := ir.CombiningKindAttrOf(ir.CombiningMul, r.Ctx)
	prod := r.Elementwise(mul, op.Operands[0], op.Operands[1])
	red := r.Reduction(c.Kind, prod)
	r.Replace(op, r.Elementwise(c.Kind, red, op.Operands[2]))
	return true
}

// contractToMatmul lowers an additive 2-D contraction to the flat
// matrix-multiply primitive, with shape casts on either side.
type contractToMatmul struct{}

func (contractToMatmul) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	if !ok || c.Kind.Kind() != ir.CombiningAdd {
		return false
	}
	if _, _, ok := singleAxis(c); !ok {
		return false
	}
	lvt, _ := op.Operands[0].VectorType()
	rvt, _ := op.Operands[1].VectorType()
	return lvt.Rank() == 2 && rvt.Rank() == 2
}

func (contractToMatmul) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	lhsAxis, rhsAxis, _ := singleAxis(c)
	lhs, rhs, acc := op.Operands[0], op.Operands[1], op.Operands[2]

	// Normalize to row-major [m,k] by [k,n].
	if lhsAxis == 0 {
		lhs = r.Transpose(lhs, []int64{1, 0})
	}
	if rhsAxis == 1 {
		rhs = r.Transpose(rhs, []int64{1, 0})
	}
	lvt, _ := lhs.VectorType()
	rvt, _ := rhs.VectorType()
	m, k, n := lvt.Shape[0], lvt.Shape[1], rvt.Shape[1]

	flatLHS := r.ShapeCast(lhs, []int64{m * k})
	flatRHS := r.ShapeCast(rhs, []int64{k * n})
	mm := r.Matmul(flatLHS, flatRHS, m, k, n)
	prod := r.ShapeCast(mm, []int64{m, n})
	r.Replace(op, r.Elementwise(c.Kind, prod, acc))
	return true
}

// contractToOuterProduct lowers a 2-D contraction to a chain of outer
// products over the contracted dimension.
type contractToOuterProduct struct{}

func (contractToOuterProduct) Match(op *ir.Operation) bool {
	c, ok := op.Inner.(ir.Contract)
	if !ok {
		return false
	}
	if _, _, ok := singleAxis(c); !ok {
		return false
	}
	lvt, _ := op.Operands[0].VectorType()
	rvt, _ := op.Operands[1].VectorType()
	return lvt.Rank() == 2 && rvt.Rank() == 2
}

func (contractToOuterProduct) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	c := op.Inner.(ir.Contract)
	lhsAxis, rhsAxis, _ := singleAxis(c)
	lhs, rhs, acc := op.Operands[0], op.Operands[1], op.Operands[2]

	// Normalize so the contracted dimension leads both operands.
	if lhsAxis == 1 {
		lhs = r.Transpose(lhs, []int64{1, 0})
	}
	if rhsAxis == 1 {
		rhs = r.Transpose(rhs, []int64{1, 0})
	}
	lvt, _ := lhs.VectorType()

	result := acc
	for p := int64(0); p < lvt.Shape[0]; p++ {
		pos := []int64{p}
		result = r.OuterProduct(c.Kind, r.Extract(lhs, pos), r.Extract(rhs, pos), result)
	}
	r.Replace(op, result)
	return true
}

// shapeCastUp2D expands a 1-D to 2-D shape cast into strided slices of
// the flat vector inserted row by row.
type shapeCastUp2D struct{}

func (shapeCastUp2D) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.ShapeCast); !ok {
		return false
	}
	src, _ := op.Operands[0].VectorType()
	dst, _ := op.VectorType()
	return src.Rank() == 1 && dst.Rank() == 2
}

func (shapeCastUp2D) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0]
	dst, _ := op.VectorType()
	m, n := dst.Shape[0], dst.Shape[1]

	result := zeroSplat(r, dst)
	for i := int64(0); i < m; i++ {
		row := r.ExtractStridedSlice(src, []int64{i * n}, []int64{n}, []int64{1})
		result = r.Insert(row, result, []int64{i})
	}
	r.Replace(op, result)
	return true
}

// shapeCastDown2D flattens a 2-D to 1-D shape cast into rows inserted
// as strided slices of the flat vector.
type shapeCastDown2D struct{}

func (shapeCastDown2D) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.ShapeCast); !ok {
		return false
	}
	src, _ := op.Operands[0].VectorType()
	dst, _ := op.VectorType()
	return src.Rank() == 2 && dst.Rank() == 1
}

func (shapeCastDown2D) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0]
	srcVT, _ := src.VectorType()
	dst, _ := op.VectorType()
	m, n := srcVT.Shape[0], srcVT.Shape[1]

	result := zeroSplat(r, dst)
	for i := int64(0); i < m; i++ {
		row := r.Extract(src, []int64{i})
		result = r.InsertStridedSlice(row, result, []int64{i * n}, []int64{1})
	}
	r.Replace(op, result)
	return true
}

// broadcastLowering expands a rank-stretching vector broadcast into
// inserts of the source at every leading coordinate. Scalar splats are
// primitive and stay.
type broadcastLowering struct{}

func (broadcastLowering) Match(op *ir.Operation) bool {
	if _, ok := op.Inner.(ir.Broadcast); !ok {
		return false
	}
	src, ok := op.Operands[0].VectorType()
	if !ok {
		return false
	}
	dst, _ := op.VectorType()
	return dst.Rank() > src.Rank()
}

func (broadcastLowering) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0]
	srcVT, _ := src.VectorType()
	dst, _ := op.VectorType()
	lead := dst.Rank() - srcVT.Rank()
	// Stretched unit dimensions need a different expansion; decline.
	if !intsEqual(srcVT.Shape, dst.Shape[lead:]) {
		return false
	}

	result := zeroSplat(r, dst)
	for _, coord := range leadingCoords(dst.Shape, lead) {
		result = r.Insert(src, result, coord)
	}
	r.Replace(op, result)
	return true
}

// outerProductLowering expands an outer product into broadcast rows
// multiplied element-wise and combined with the accumulator.
type outerProductLowering struct{}

func (outerProductLowering) Match(op *ir.Operation) bool {
	_, ok := op.Inner.(ir.OuterProduct)
	return ok
}

func (outerProductLowering) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	outer := op.Inner.(ir.OuterProduct)
	lhs, rhs := op.Operands[0], op.Operands[1]
	var acc *ir.Operation
	if len(op.Operands) == 3 {
		acc = op.Operands[2]
	}
	lvt, _ := lhs.VectorType()
	rvt, _ := rhs.VectorType()
	dst := ir.VectorType{Shape: []int64{lvt.Shape[0], rvt.Shape[0]}, Elem: lvt.Elem}
	mul := ir.CombiningKindAttrOf(ir.CombiningMul, r.Ctx)

	result := acc
	if result == nil {
		result = zeroSplat(r, dst)
	}
	for i := int64(0); i < lvt.Shape[0]; i++ {
		pos := []int64{i}
		splat := r.Broadcast(r.Extract(lhs, pos), ir.VectorType{Shape: rvt.Shape, Elem: rvt.Elem})
		row := r.Elementwise(mul, splat, rhs)
		if acc != nil {
			row = r.Elementwise(outer.Kind, r.Extract(acc, pos), row)
		}
		result = r.Insert(row, result, pos)
	}
	r.Replace(op, result)
	return true
}

// transposeLowering lowers a 2-D transpose either element by element or
// through the flat transpose primitive, per the configured strategy.
type transposeLowering struct {
	strategy TransposeLowering
}

func (transposeLowering) Match(op *ir.Operation) bool {
	tr, ok := op.Inner.(ir.Transpose)
	if !ok {
		return false
	}
	return len(tr.Permutation) == 2 && tr.Permutation[0] == 1 && tr.Permutation[1] == 0
}

func (p transposeLowering) Rewrite(r *rewrite.Rewriter, op *ir.Operation) bool {
	src := op.Operands[0]
	srcVT, _ := src.VectorType()
	m, n := srcVT.Shape[0], srcVT.Shape[1]

	if p.strategy == TransposeFlat {
		flat := r.ShapeCast(src, []int64{m * n})
		ft := r.FlatTranspose(flat, m, n)
		r.Replace(op, r.ShapeCast(ft, []int64{n, m}))
		return true
	}

	result := zeroSplat(r, ir.VectorType{Shape: []int64{n, m}, Elem: srcVT.Elem})
	for i := int64(0); i < m; i++ {
		for j := int64(0); j < n; j++ {
			e := r.Extract(src, []int64{i, j})
			result = r.Insert(e, result, []int64{j, i})
		}
	}
	r.Replace(op, result)
	return true
}
