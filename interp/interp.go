package interp

import (
	"fmt"

	"github.com/gogpu/vecir/ir"
)

// Buffer is a concrete memref: a row-major block of elements addressed
// by multi-dimensional coordinates.
type Buffer struct {
	Shape []int64
	Elem  ir.ScalarType
	Bits  []uint64
}

// NewBuffer allocates a zero-filled buffer.
func NewBuffer(shape []int64, elem ir.ScalarType) *Buffer {
	return &Buffer{Shape: shape, Elem: elem, Bits: make([]uint64, numElems(shape))}
}

// SetFloat stores a float at the given coordinates.
func (b *Buffer) SetFloat(f float64, coord ...int64) {
	b.Bits[mustLinear(coord, b.Shape)] = floatToBits(f, b.Elem)
}

// Float reads a float from the given coordinates.
func (b *Buffer) Float(coord ...int64) float64 {
	return floatFromBits(b.Bits[mustLinear(coord, b.Shape)], b.Elem)
}

// SetInt stores an integer at the given coordinates.
func (b *Buffer) SetInt(v int64, coord ...int64) {
	b.Bits[mustLinear(coord, b.Shape)] = uint64(v) & widthMask(b.Elem.Width)
}

// Int reads an integer from the given coordinates.
func (b *Buffer) Int(coord ...int64) int64 {
	return signExtend(b.Bits[mustLinear(coord, b.Shape)], b.Elem.Width)
}

// Value is a runtime value: a scalar or vector as flattened element
// bits, a tuple of values, or a memref buffer.
type Value struct {
	Type  ir.TypeInner
	Bits  []uint64
	Tuple []Value
	Buf   *Buffer
}

// Floats decodes the value's bits as floats of its element type.
func (v Value) Floats() []float64 {
	st, ok := v.Type.(ir.ScalarType)
	if !ok {
		st = v.Type.(ir.VectorType).Elem
	}
	out := make([]float64, len(v.Bits))
	for i, b := range v.Bits {
		out[i] = floatFromBits(b, st)
	}
	return out
}

// FloatValue wraps a float scalar.
func FloatValue(f float64, st ir.ScalarType) Value {
	return Value{Type: st, Bits: []uint64{floatToBits(f, st)}}
}

// IntValue wraps an integer scalar.
func IntValue(v int64, st ir.ScalarType) Value {
	return Value{Type: st, Bits: []uint64{uint64(v) & widthMask(st.Width)}}
}

// FloatVector wraps a float vector in row-major element order.
func FloatVector(vt ir.VectorType, vals ...float64) Value {
	bits := make([]uint64, len(vals))
	for i, v := range vals {
		bits[i] = floatToBits(v, vt.Elem)
	}
	return Value{Type: vt, Bits: bits}
}

// BufferValue wraps a memref argument.
func BufferValue(b *Buffer) Value {
	return Value{Buf: b}
}

// Run evaluates fn on the given arguments, one per parameter, and
// returns the value of its terminator operand (a zero Value for a bare
// return).
func Run(fn *ir.Function, args []Value) (Value, error) {
	if len(args) != len(fn.Params) {
		return Value{}, fmt.Errorf("interp: %s takes %d arguments, got %d",
			fn.Name, len(fn.Params), len(args))
	}
	m := &machine{env: make(map[*ir.Operation]Value, len(fn.Ops))}
	for _, op := range fn.Ops {
		if _, ok := op.Inner.(ir.Return); ok {
			if len(op.Operands) == 1 {
				return m.env[op.Operands[0]], nil
			}
			return Value{}, nil
		}
		v, err := m.eval(op, args)
		if err != nil {
			return Value{}, fmt.Errorf("interp: %s: %w", ir.OpName(op.Inner), err)
		}
		m.env[op] = v
	}
	return Value{}, fmt.Errorf("interp: %s has no return", fn.Name)
}

type machine struct {
	env map[*ir.Operation]Value
}

func (m *machine) operand(op *ir.Operation, i int) Value {
	return m.env[op.Operands[i]]
}

func (m *machine) eval(op *ir.Operation, args []Value) (Value, error) {
	switch inner := op.Inner.(type) {
	case ir.Argument:
		v := args[inner.Index]
		v.Type = op.Type
		return v, nil

	case ir.Constant:
		st := op.Type.(ir.ScalarType)
		bits := inner.Bits
		if st.Kind != ir.ScalarFloat {
			bits &= widthMask(st.Width)
		}
		return Value{Type: op.Type, Bits: []uint64{bits}}, nil

	case ir.Broadcast:
		return m.evalBroadcast(op)

	case ir.Extract:
		return m.evalExtract(op, inner.Position), nil

	case ir.Insert:
		return m.evalInsert(op, inner.Position), nil

	case ir.ExtractStridedSlice:
		return m.evalExtractStrided(op, inner.Offsets), nil

	case ir.InsertStridedSlice:
		return m.evalInsertStrided(op, inner.Offsets), nil

	case ir.ExtractSlices:
		return m.evalExtractSlices(op, inner.Sizes), nil

	case ir.InsertSlices:
		return m.evalInsertSlices(op, inner.Sizes), nil

	case ir.Tuple:
		elems := make([]Value, len(op.Operands))
		for i := range op.Operands {
			elems[i] = m.operand(op, i)
		}
		return Value{Type: op.Type, Tuple: elems}, nil

	case ir.TupleGet:
		return m.operand(op, 0).Tuple[inner.Index], nil

	case ir.ShapeCast:
		v := m.operand(op, 0)
		return Value{Type: op.Type, Bits: v.Bits}, nil

	case ir.BitCast:
		return m.evalBitCast(op), nil

	case ir.Transpose:
		return m.evalTranspose(op, inner.Permutation), nil

	case ir.FlatTranspose:
		return m.evalFlatTranspose(op, inner), nil

	case ir.Matmul:
		return m.evalMatmul(op, inner)

	case ir.Contract:
		return m.evalContract(op, inner)

	case ir.OuterProduct:
		return m.evalOuterProduct(op, inner)

	case ir.Elementwise:
		return m.evalElementwise(op, inner)

	case ir.Reduction:
		return m.evalReduction(op, inner)

	case ir.TransferRead:
		return m.evalTransferRead(op, inner), nil

	case ir.TransferWrite:
		m.evalTransferWrite(op, inner)
		return Value{}, nil

	case ir.Load:
		return m.evalLoad(op), nil

	case ir.Store:
		m.evalStore(op)
		return Value{}, nil

	default:
		return Value{}, fmt.Errorf("unsupported operation")
	}
}

func (m *machine) evalBroadcast(op *ir.Operation) (Value, error) {
	src := m.operand(op, 0)
	dst, _ := op.VectorType()
	out := make([]uint64, numElems(dst.Shape))

	srcShape := []int64{}
	if vt, ok := src.Type.(ir.VectorType); ok {
		srcShape = vt.Shape
	}
	lead := len(dst.Shape) - len(srcShape)
	for i := range out {
		coord := delinearize(int64(i), dst.Shape)
		srcCoord := make([]int64, len(srcShape))
		for d := range srcShape {
			srcCoord[d] = coord[lead+d]
			if srcShape[d] == 1 {
				srcCoord[d] = 0
			}
		}
		out[i] = src.Bits[mustLinear(srcCoord, srcShape)]
	}
	return Value{Type: op.Type, Bits: out}, nil
}

func (m *machine) evalExtract(op *ir.Operation, position []int64) Value {
	src := m.operand(op, 0)
	vt := src.Type.(ir.VectorType)
	subShape := vt.Shape[len(position):]
	n := numElems(subShape)
	base := int64(0)
	str := rowStrides(vt.Shape)
	for d, p := range position {
		base += p * str[d]
	}
	out := make([]uint64, n)
	copy(out, src.Bits[base:base+n])
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalInsert(op *ir.Operation, position []int64) Value {
	value := m.operand(op, 0)
	dest := m.operand(op, 1)
	vt := dest.Type.(ir.VectorType)
	out := make([]uint64, len(dest.Bits))
	copy(out, dest.Bits)
	base := int64(0)
	str := rowStrides(vt.Shape)
	for d, p := range position {
		base += p * str[d]
	}
	copy(out[base:], value.Bits)
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalExtractStrided(op *ir.Operation, offsets []int64) Value {
	src := m.operand(op, 0)
	srcVT := src.Type.(ir.VectorType)
	dst, _ := op.VectorType()
	out := make([]uint64, numElems(dst.Shape))
	for i := range out {
		coord := delinearize(int64(i), dst.Shape)
		srcCoord := make([]int64, len(coord))
		copy(srcCoord, coord)
		for d, o := range offsets {
			srcCoord[d] += o
		}
		out[i] = src.Bits[mustLinear(srcCoord, srcVT.Shape)]
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalInsertStrided(op *ir.Operation, offsets []int64) Value {
	value := m.operand(op, 0)
	dest := m.operand(op, 1)
	valueVT := value.Type.(ir.VectorType)
	destVT := dest.Type.(ir.VectorType)
	out := make([]uint64, len(dest.Bits))
	copy(out, dest.Bits)
	for i := range value.Bits {
		coord := delinearize(int64(i), valueVT.Shape)
		dstCoord := make([]int64, len(coord))
		copy(dstCoord, coord)
		for d, o := range offsets {
			dstCoord[d] += o
		}
		out[mustLinear(dstCoord, destVT.Shape)] = value.Bits[i]
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalExtractSlices(op *ir.Operation, sizes []int64) Value {
	src := m.operand(op, 0)
	vt := src.Type.(ir.VectorType)
	counts := ir.TileCounts(vt.Shape, sizes)
	n := ir.NumTiles(counts)
	tt := op.Type.(ir.TupleType)

	tiles := make([]Value, n)
	for t := int64(0); t < n; t++ {
		coords := ir.TileCoords(counts, t)
		offsets := ir.TileOffsets(sizes, coords)
		tileShape := ir.TileShape(vt.Shape, sizes, coords)
		bits := make([]uint64, numElems(tileShape))
		for i := range bits {
			coord := delinearize(int64(i), tileShape)
			srcCoord := make([]int64, len(coord))
			for d := range coord {
				srcCoord[d] = coord[d] + offsets[d]
			}
			bits[i] = src.Bits[mustLinear(srcCoord, vt.Shape)]
		}
		tiles[t] = Value{Type: tt.Elems[t], Bits: bits}
	}
	return Value{Type: op.Type, Tuple: tiles}
}

func (m *machine) evalInsertSlices(op *ir.Operation, sizes []int64) Value {
	tuple := m.operand(op, 0)
	dst, _ := op.VectorType()
	counts := ir.TileCounts(dst.Shape, sizes)
	out := make([]uint64, numElems(dst.Shape))
	for t := int64(0); t < ir.NumTiles(counts); t++ {
		coords := ir.TileCoords(counts, t)
		offsets := ir.TileOffsets(sizes, coords)
		tile := tuple.Tuple[t]
		tileShape := tile.Type.(ir.VectorType).Shape
		for i := range tile.Bits {
			coord := delinearize(int64(i), tileShape)
			dstCoord := make([]int64, len(coord))
			for d := range coord {
				dstCoord[d] = coord[d] + offsets[d]
			}
			out[mustLinear(dstCoord, dst.Shape)] = tile.Bits[i]
		}
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalBitCast(op *ir.Operation) Value {
	src := m.operand(op, 0)
	srcVT := src.Type.(ir.VectorType)
	dst, _ := op.VectorType()

	raw := make([]byte, 0, len(src.Bits)*int(srcVT.Elem.Width)/8)
	for _, bits := range src.Bits {
		for b := 0; b < int(srcVT.Elem.Width); b += 8 {
			raw = append(raw, byte(bits>>b))
		}
	}
	out := make([]uint64, numElems(dst.Shape))
	bytesPer := int(dst.Elem.Width) / 8
	for i := range out {
		var bits uint64
		for b := 0; b < bytesPer; b++ {
			bits |= uint64(raw[i*bytesPer+b]) << (8 * b)
		}
		out[i] = bits
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalTranspose(op *ir.Operation, perm []int64) Value {
	src := m.operand(op, 0)
	srcVT := src.Type.(ir.VectorType)
	dst, _ := op.VectorType()
	out := make([]uint64, len(src.Bits))
	for i := range out {
		coord := delinearize(int64(i), dst.Shape)
		srcCoord := make([]int64, len(coord))
		for d, p := range perm {
			srcCoord[p] = coord[d]
		}
		out[i] = src.Bits[mustLinear(srcCoord, srcVT.Shape)]
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalFlatTranspose(op *ir.Operation, ft ir.FlatTranspose) Value {
	src := m.operand(op, 0)
	out := make([]uint64, len(src.Bits))
	for i := int64(0); i < ft.Rows; i++ {
		for j := int64(0); j < ft.Columns; j++ {
			out[j*ft.Rows+i] = src.Bits[i*ft.Columns+j]
		}
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalMatmul(op *ir.Operation, mm ir.Matmul) (Value, error) {
	lhs := m.operand(op, 0)
	rhs := m.operand(op, 1)
	elem := lhs.Type.(ir.VectorType).Elem
	out := make([]uint64, mm.LHSRows*mm.RHSColumns)
	for i := int64(0); i < mm.LHSRows; i++ {
		for j := int64(0); j < mm.RHSColumns; j++ {
			var sum uint64
			for p := int64(0); p < mm.LHSColumns; p++ {
				prod, err := combine(ir.CombiningMul,
					lhs.Bits[i*mm.LHSColumns+p], rhs.Bits[p*mm.RHSColumns+j], elem)
				if err != nil {
					return Value{}, err
				}
				if p == 0 {
					sum = prod
					continue
				}
				sum, err = combine(ir.CombiningAdd, sum, prod, elem)
				if err != nil {
					return Value{}, err
				}
			}
			out[i*mm.RHSColumns+j] = sum
		}
	}
	return Value{Type: op.Type, Bits: out}, nil
}

func (m *machine) evalContract(op *ir.Operation, c ir.Contract) (Value, error) {
	lhs := m.operand(op, 0)
	rhs := m.operand(op, 1)
	acc := m.operand(op, 2)
	lvt := lhs.Type.(ir.VectorType)
	rvt := rhs.Type.(ir.VectorType)
	kind := c.Kind.Kind()

	shapes, err := ir.ResolveContract(c, lvt, rvt)
	if err != nil {
		return Value{}, err
	}
	lhsFreeDims := freeDims(lvt.Rank(), c.LHSBatch, c.LHSContract)
	rhsFreeDims := freeDims(rvt.Rank(), c.RHSBatch, c.RHSContract)
	contractShape := make([]int64, len(c.LHSContract))
	for i, a := range c.LHSContract {
		contractShape[i] = lvt.Shape[a]
	}

	out := make([]uint64, numElems(shapes.Result))
	for i := range out {
		coord := delinearize(int64(i), shapes.Result)
		batch := coord[:len(shapes.Batch)]
		lfree := coord[len(shapes.Batch) : len(shapes.Batch)+len(shapes.LHSFree)]
		rfree := coord[len(shapes.Batch)+len(shapes.LHSFree):]

		var red uint64
		first := true
		for n := int64(0); n < numElems(contractShape); n++ {
			cc := delinearize(n, contractShape)
			lc := operandCoord(lvt.Rank(), c.LHSBatch, batch, c.LHSContract, cc, lhsFreeDims, lfree)
			rc := operandCoord(rvt.Rank(), c.RHSBatch, batch, c.RHSContract, cc, rhsFreeDims, rfree)
			prod, err := combine(ir.CombiningMul,
				lhs.Bits[mustLinear(lc, lvt.Shape)], rhs.Bits[mustLinear(rc, rvt.Shape)], lvt.Elem)
			if err != nil {
				return Value{}, err
			}
			if first {
				red = prod
				first = false
				continue
			}
			red, err = combine(kind, red, prod, lvt.Elem)
			if err != nil {
				return Value{}, err
			}
		}
		out[i], err = combine(kind, red, acc.Bits[i], lvt.Elem)
		if err != nil {
			return Value{}, err
		}
	}
	return Value{Type: op.Type, Bits: out}, nil
}

func freeDims(rank int, batch, contract []int64) []int64 {
	var free []int64
	for d := int64(0); d < int64(rank); d++ {
		bound := false
		for _, a := range batch {
			if a == d {
				bound = true
			}
		}
		for _, a := range contract {
			if a == d {
				bound = true
			}
		}
		if !bound {
			free = append(free, d)
		}
	}
	return free
}

func operandCoord(rank int, batchAxes, batch, contractAxes, contract, freeAxes, free []int64) []int64 {
	coord := make([]int64, rank)
	for i, a := range batchAxes {
		coord[a] = batch[i]
	}
	for i, a := range contractAxes {
		coord[a] = contract[i]
	}
	for i, a := range freeAxes {
		coord[a] = free[i]
	}
	return coord
}

func (m *machine) evalOuterProduct(op *ir.Operation, outer ir.OuterProduct) (Value, error) {
	lhs := m.operand(op, 0)
	rhs := m.operand(op, 1)
	elem := lhs.Type.(ir.VectorType).Elem
	kind := outer.Kind.Kind()
	nl, nr := int64(len(lhs.Bits)), int64(len(rhs.Bits))

	out := make([]uint64, nl*nr)
	for i := int64(0); i < nl; i++ {
		for j := int64(0); j < nr; j++ {
			prod, err := combine(ir.CombiningMul, lhs.Bits[i], rhs.Bits[j], elem)
			if err != nil {
				return Value{}, err
			}
			if len(op.Operands) == 3 {
				acc := m.operand(op, 2)
				prod, err = combine(kind, acc.Bits[i*nr+j], prod, elem)
				if err != nil {
					return Value{}, err
				}
			}
			out[i*nr+j] = prod
		}
	}
	return Value{Type: op.Type, Bits: out}, nil
}

func (m *machine) evalElementwise(op *ir.Operation, ew ir.Elementwise) (Value, error) {
	a := m.operand(op, 0)
	b := m.operand(op, 1)
	elem := scalarElem(a.Type)
	out := make([]uint64, len(a.Bits))
	for i := range out {
		v, err := combine(ew.Kind.Kind(), a.Bits[i], b.Bits[i], elem)
		if err != nil {
			return Value{}, err
		}
		out[i] = v
	}
	return Value{Type: op.Type, Bits: out}, nil
}

func (m *machine) evalReduction(op *ir.Operation, red ir.Reduction) (Value, error) {
	src := m.operand(op, 0)
	elem := scalarElem(src.Type)
	acc := src.Bits[0]
	for _, bits := range src.Bits[1:] {
		var err error
		acc, err = combine(red.Kind.Kind(), acc, bits, elem)
		if err != nil {
			return Value{}, err
		}
	}
	return Value{Type: op.Type, Bits: []uint64{acc}}, nil
}

func scalarElem(t ir.TypeInner) ir.ScalarType {
	switch t := t.(type) {
	case ir.ScalarType:
		return t
	case ir.VectorType:
		return t.Elem
	default:
		return ir.ScalarType{}
	}
}

// ---------------------------------------------------------------------------
// Memory operations
// ---------------------------------------------------------------------------

func (m *machine) evalTransferRead(op *ir.Operation, read ir.TransferRead) Value {
	buf := m.operand(op, 0).Buf
	vt, _ := op.VectorType()
	indices := m.indexValues(op.Operands[1 : len(op.Operands)-1])
	padding := m.operand(op, len(op.Operands)-1).Bits[0]

	out := make([]uint64, numElems(vt.Shape))
	for i := range out {
		coord := delinearize(int64(i), vt.Shape)
		mcoord := make([]int64, len(indices))
		copy(mcoord, indices)
		for d, p := range read.Permutation {
			if p != ir.BroadcastDim {
				mcoord[p] += coord[d]
			}
		}
		if idx, ok := linear(mcoord, buf.Shape); ok {
			out[i] = buf.Bits[idx]
		} else {
			out[i] = padding
		}
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalTransferWrite(op *ir.Operation, write ir.TransferWrite) {
	value := m.operand(op, 0)
	buf := m.operand(op, 1).Buf
	vt := value.Type.(ir.VectorType)
	indices := m.indexValues(op.Operands[2:])

	for i := range value.Bits {
		coord := delinearize(int64(i), vt.Shape)
		mcoord := make([]int64, len(indices))
		copy(mcoord, indices)
		for d, p := range write.Permutation {
			if p != ir.BroadcastDim {
				mcoord[p] += coord[d]
			}
		}
		if idx, ok := linear(mcoord, buf.Shape); ok {
			buf.Bits[idx] = value.Bits[i]
		}
	}
}

func (m *machine) evalLoad(op *ir.Operation) Value {
	buf := m.operand(op, 0).Buf
	vt, _ := op.VectorType()
	indices := m.indexValues(op.Operands[1:])
	lead := len(buf.Shape) - vt.Rank()

	out := make([]uint64, numElems(vt.Shape))
	for i := range out {
		coord := delinearize(int64(i), vt.Shape)
		mcoord := make([]int64, len(indices))
		copy(mcoord, indices)
		for d := range coord {
			mcoord[lead+d] += coord[d]
		}
		out[i] = buf.Bits[mustLinear(mcoord, buf.Shape)]
	}
	return Value{Type: op.Type, Bits: out}
}

func (m *machine) evalStore(op *ir.Operation) {
	value := m.operand(op, 0)
	buf := m.operand(op, 1).Buf
	vt := value.Type.(ir.VectorType)
	indices := m.indexValues(op.Operands[2:])
	lead := len(buf.Shape) - vt.Rank()

	for i := range value.Bits {
		coord := delinearize(int64(i), vt.Shape)
		mcoord := make([]int64, len(indices))
		copy(mcoord, indices)
		for d := range coord {
			mcoord[lead+d] += coord[d]
		}
		buf.Bits[mustLinear(mcoord, buf.Shape)] = value.Bits[i]
	}
}

func (m *machine) indexValues(ops []*ir.Operation) []int64 {
	indices := make([]int64, len(ops))
	for i, op := range ops {
		v := m.env[op]
		st := op.Type.(ir.ScalarType)
		indices[i] = signExtend(v.Bits[0], st.Width)
	}
	return indices
}

// ---------------------------------------------------------------------------
// Shape arithmetic
// ---------------------------------------------------------------------------

func numElems(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

func rowStrides(shape []int64) []int64 {
	str := make([]int64, len(shape))
	stride := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		str[i] = stride
		stride *= shape[i]
	}
	return str
}

func delinearize(idx int64, shape []int64) []int64 {
	coord := make([]int64, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		coord[i] = idx % shape[i]
		idx /= shape[i]
	}
	return coord
}

func linear(coord, shape []int64) (int64, bool) {
	idx := int64(0)
	for i, c := range coord {
		if c < 0 || c >= shape[i] {
			return 0, false
		}
		idx = idx*shape[i] + c
	}
	return idx, true
}

func mustLinear(coord, shape []int64) int64 {
	idx, ok := linear(coord, shape)
	if !ok {
		panic(fmt.Sprintf("interp: coordinate %v out of range for shape %v", coord, shape))
	}
	return idx
}
