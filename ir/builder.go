package ir

import "math"

// Builder constructs operations inside a function. New operations are
// appended, or inserted before a fixed anchor once SetInsertionPoint has
// been called (the mode rewrite patterns use).
type Builder struct {
	Ctx *Context
	Fn  *Function

	before *Operation
}

// NewBuilder creates a builder appending to fn.
func NewBuilder(ctx *Context, fn *Function) *Builder {
	return &Builder{Ctx: ctx, Fn: fn}
}

// SetInsertionPoint makes the builder insert before anchor.
func (b *Builder) SetInsertionPoint(anchor *Operation) {
	b.before = anchor
}

func (b *Builder) emit(inner OpInner, operands []*Operation, result TypeInner) *Operation {
	if b.before != nil {
		return b.Fn.InsertBefore(b.before, inner, operands, result)
	}
	return b.Fn.Append(inner, operands, result)
}

// ConstantBits creates a scalar constant from a raw bit pattern.
func (b *Builder) ConstantBits(bits uint64, typ ScalarType) *Operation {
	return b.emit(Constant{Bits: bits}, nil, b.Ctx.Intern(typ))
}

// ConstantInt creates an integer scalar constant.
func (b *Builder) ConstantInt(v int64, typ ScalarType) *Operation {
	return b.ConstantBits(uint64(v), typ)
}

// ConstantFloat creates a floating-point scalar constant.
func (b *Builder) ConstantFloat(v float64, typ ScalarType) *Operation {
	if typ.Width == 32 {
		return b.ConstantBits(uint64(math.Float32bits(float32(v))), typ)
	}
	return b.ConstantBits(math.Float64bits(v), typ)
}

// Return creates the function terminator.
func (b *Builder) Return(v *Operation) *Operation {
	var operands []*Operation
	if v != nil {
		operands = []*Operation{v}
	}
	return b.emit(Return{}, operands, nil)
}

// TransferRead reads a vector of the given type from source at indices,
// filling masked-off elements with padding.
func (b *Builder) TransferRead(source *Operation, indices []*Operation, padding *Operation,
	result VectorType, permutation []int64, masked []bool) *Operation {
	operands := make([]*Operation, 0, len(indices)+2)
	operands = append(operands, source)
	operands = append(operands, indices...)
	operands = append(operands, padding)
	return b.emit(TransferRead{Permutation: permutation, Masked: masked}, operands, b.Ctx.Intern(result))
}

// TransferWrite writes value to dest at indices.
func (b *Builder) TransferWrite(value, dest *Operation, indices []*Operation,
	permutation []int64, masked []bool) *Operation {
	operands := make([]*Operation, 0, len(indices)+2)
	operands = append(operands, value, dest)
	operands = append(operands, indices...)
	return b.emit(TransferWrite{Permutation: permutation, Masked: masked}, operands, nil)
}

// Load reads a contiguous vector of the given type.
func (b *Builder) Load(source *Operation, indices []*Operation, result VectorType) *Operation {
	operands := make([]*Operation, 0, len(indices)+1)
	operands = append(operands, source)
	operands = append(operands, indices...)
	return b.emit(Load{}, operands, b.Ctx.Intern(result))
}

// Store writes a contiguous vector.
func (b *Builder) Store(value, dest *Operation, indices []*Operation) *Operation {
	operands := make([]*Operation, 0, len(indices)+2)
	operands = append(operands, value, dest)
	operands = append(operands, indices...)
	return b.emit(Store{}, operands, nil)
}

// Broadcast duplicates v into the result vector type.
func (b *Builder) Broadcast(v *Operation, result VectorType) *Operation {
	return b.emit(Broadcast{}, []*Operation{v}, b.Ctx.Intern(result))
}

// Extract removes the leading len(position) dimensions at position.
func (b *Builder) Extract(v *Operation, position []int64) *Operation {
	vt, _ := v.VectorType()
	result := ExtractResultType(vt, len(position))
	return b.emit(Extract{Position: position}, []*Operation{v}, b.Ctx.Intern(result))
}

// Insert places value into dest at position.
func (b *Builder) Insert(value, dest *Operation, position []int64) *Operation {
	return b.emit(Insert{Position: position}, []*Operation{value, dest}, dest.Type)
}

// ExtractStridedSlice extracts a strided slice of the leading dims.
func (b *Builder) ExtractStridedSlice(v *Operation, offsets, sizes, strides []int64) *Operation {
	vt, _ := v.VectorType()
	result := StridedSliceResultType(vt, sizes)
	inner := ExtractStridedSlice{Offsets: offsets, Sizes: sizes, Strides: strides}
	return b.emit(inner, []*Operation{v}, b.Ctx.Intern(result))
}

// InsertStridedSlice inserts src into dest at the given offsets.
func (b *Builder) InsertStridedSlice(src, dest *Operation, offsets, strides []int64) *Operation {
	inner := InsertStridedSlice{Offsets: offsets, Strides: strides}
	return b.emit(inner, []*Operation{src, dest}, dest.Type)
}

// ExtractSlices tiles v into a tuple of sub-vectors.
func (b *Builder) ExtractSlices(v *Operation, sizes, strides []int64) *Operation {
	vt, _ := v.VectorType()
	result := SlicesTupleType(b.Ctx, vt, sizes)
	return b.emit(ExtractSlices{Sizes: sizes, Strides: strides}, []*Operation{v}, result)
}

// InsertSlices reassembles a vector of the given type from a tuple.
func (b *Builder) InsertSlices(tuple *Operation, sizes, strides []int64, result VectorType) *Operation {
	return b.emit(InsertSlices{Sizes: sizes, Strides: strides}, []*Operation{tuple}, b.Ctx.Intern(result))
}

// Tuple aggregates values.
func (b *Builder) Tuple(values ...*Operation) *Operation {
	elems := make([]TypeInner, len(values))
	for i, v := range values {
		elems[i] = v.Type
	}
	return b.emit(Tuple{}, values, b.Ctx.TupleOf(elems))
}

// TupleGet projects element index out of tuple.
func (b *Builder) TupleGet(tuple *Operation, index int) *Operation {
	tt := tuple.Type.(TupleType)
	return b.emit(TupleGet{Index: index}, []*Operation{tuple}, tt.Elems[index])
}

// ShapeCast reinterprets v with a new shape of equal element count.
func (b *Builder) ShapeCast(v *Operation, shape []int64) *Operation {
	vt, _ := v.VectorType()
	result := b.Ctx.VectorOf(shape, vt.Elem)
	return b.emit(ShapeCast{}, []*Operation{v}, result)
}

// BitCast reinterprets v's bits with a new element type.
func (b *Builder) BitCast(v *Operation, elem ScalarType) *Operation {
	vt, _ := v.VectorType()
	shape, err := BitCastResultShape(vt, elem)
	if err != nil {
		panic(err)
	}
	return b.emit(BitCast{}, []*Operation{v}, b.Ctx.VectorOf(shape, elem))
}

// Transpose permutes v's dimensions.
func (b *Builder) Transpose(v *Operation, permutation []int64) *Operation {
	vt, _ := v.VectorType()
	shape := make([]int64, len(permutation))
	for i, p := range permutation {
		shape[i] = vt.Shape[p]
	}
	inner := Transpose{Permutation: permutation}
	return b.emit(inner, []*Operation{v}, b.Ctx.VectorOf(shape, vt.Elem))
}

// FlatTranspose transposes a row-major 1-D matrix.
func (b *Builder) FlatTranspose(v *Operation, rows, cols int64) *Operation {
	return b.emit(FlatTranspose{Rows: rows, Columns: cols}, []*Operation{v}, v.Type)
}

// Matmul multiplies two row-major 1-D matrices.
func (b *Builder) Matmul(lhs, rhs *Operation, lhsRows, lhsCols, rhsCols int64) *Operation {
	vt, _ := lhs.VectorType()
	result := b.Ctx.VectorOf([]int64{lhsRows * rhsCols}, vt.Elem)
	inner := Matmul{LHSRows: lhsRows, LHSColumns: lhsCols, RHSColumns: rhsCols}
	return b.emit(inner, []*Operation{lhs, rhs}, result)
}

// Contract contracts lhs and rhs into acc.
func (b *Builder) Contract(c Contract, lhs, rhs, acc *Operation) *Operation {
	return b.emit(c, []*Operation{lhs, rhs, acc}, acc.Type)
}

// OuterProduct combines lhs and rhs (and optionally acc).
func (b *Builder) OuterProduct(kind *CombiningKindAttr, lhs, rhs, acc *Operation) *Operation {
	lt, _ := lhs.VectorType()
	rt, _ := rhs.VectorType()
	result := b.Ctx.VectorOf([]int64{lt.Shape[0], rt.Shape[0]}, lt.Elem)
	operands := []*Operation{lhs, rhs}
	if acc != nil {
		operands = append(operands, acc)
	}
	return b.emit(OuterProduct{Kind: kind}, operands, result)
}

// Elementwise combines a and b element by element.
func (b *Builder) Elementwise(kind *CombiningKindAttr, x, y *Operation) *Operation {
	return b.emit(Elementwise{Kind: kind}, []*Operation{x, y}, x.Type)
}

// Reduction reduces a 1-D vector to a scalar.
func (b *Builder) Reduction(kind *CombiningKindAttr, v *Operation) *Operation {
	vt, _ := v.VectorType()
	return b.emit(Reduction{Kind: kind}, []*Operation{v}, b.Ctx.Intern(vt.Elem))
}
