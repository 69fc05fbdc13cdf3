package ir

import (
	"fmt"
	"strings"
)

// Operation is a single-result SSA node in a function body.
//
// Operations are immutable once built: rewrites construct replacement
// operations and redirect uses, they never mutate a matched operation in
// place. The only mutable state is the operand slice, which the rewrite
// engine updates when a producer is replaced.
type Operation struct {
	id int

	// Inner is the operation kind and its static parameters.
	Inner OpInner

	// Operands are the producing operations of each SSA operand.
	Operands []*Operation

	// Type is the result type, or nil for operations without a result
	// (transfer_write, store, return).
	Type TypeInner
}

// ID returns the operation's function-unique id.
func (op *Operation) ID() int { return op.id }

// VectorType returns the result vector type. The boolean is false when
// the result is absent or not a vector.
func (op *Operation) VectorType() (VectorType, bool) {
	vt, ok := op.Type.(VectorType)
	return vt, ok
}

// String returns a debug representation of the operation.
func (op *Operation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%%d = %s", op.id, OpName(op.Inner))
	for i, operand := range op.Operands {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%d", operand.id)
	}
	if op.Type != nil {
		fmt.Fprintf(&sb, " : %s", TypeString(op.Type))
	}
	return sb.String()
}

// OpInner represents the different operation kinds.
type OpInner interface {
	opInner()
}

// OpName returns the assembly mnemonic for an operation kind.
func OpName(inner OpInner) string {
	switch inner.(type) {
	case Argument:
		return "argument"
	case Constant:
		return "constant"
	case Return:
		return "return"
	case TransferRead:
		return "transfer_read"
	case TransferWrite:
		return "transfer_write"
	case Load:
		return "load"
	case Store:
		return "store"
	case Broadcast:
		return "broadcast"
	case Extract:
		return "extract"
	case Insert:
		return "insert"
	case ExtractStridedSlice:
		return "extract_strided_slice"
	case InsertStridedSlice:
		return "insert_strided_slice"
	case ExtractSlices:
		return "extract_slices"
	case InsertSlices:
		return "insert_slices"
	case Tuple:
		return "tuple"
	case TupleGet:
		return "tuple_get"
	case ShapeCast:
		return "shape_cast"
	case BitCast:
		return "bitcast"
	case Transpose:
		return "transpose"
	case FlatTranspose:
		return "flat_transpose"
	case Matmul:
		return "matrix_multiply"
	case Contract:
		return "contract"
	case OuterProduct:
		return "outerproduct"
	case Elementwise:
		return "elementwise"
	case Reduction:
		return "reduction"
	default:
		return fmt.Sprintf("unknown(%T)", inner)
	}
}

// Argument references a function parameter by index.
type Argument struct {
	Index int
}

func (Argument) opInner() {}

// Constant is a scalar literal. Bits holds the raw bit pattern of the
// value; the result scalar type gives its interpretation.
type Constant struct {
	Bits uint64
}

func (Constant) opInner() {}

// Return terminates a function. Zero or one operand.
type Return struct{}

func (Return) opInner() {}

// TransferRead reads a vector from a memref.
//
// Operands: memref, one index per memref dimension, padding scalar.
// Permutation has one entry per result vector dimension: the memref
// dimension that vector dimension advances along, or BroadcastDim for a
// broadcast dimension. Masked marks the vector dimensions that may run
// out of bounds; an unmasked dimension is a promise that it cannot.
type TransferRead struct {
	Permutation []int64
	Masked      []bool
}

func (TransferRead) opInner() {}

// BroadcastDim marks a broadcast dimension in a transfer permutation.
const BroadcastDim = int64(-1)

// TransferWrite writes a vector to a memref.
//
// Operands: vector, memref, one index per memref dimension.
type TransferWrite struct {
	Permutation []int64
	Masked      []bool
}

func (TransferWrite) opInner() {}

// Load reads a contiguous vector from a memref, minor-identity only.
//
// Operands: memref, one index per memref dimension.
type Load struct{}

func (Load) opInner() {}

// Store writes a contiguous vector to a memref, minor-identity only.
//
// Operands: vector, memref, one index per memref dimension.
type Store struct{}

func (Store) opInner() {}

// Broadcast duplicates a scalar or vector into a larger vector by
// prepending dimensions (and stretching unit dimensions).
type Broadcast struct{}

func (Broadcast) opInner() {}

// Extract removes the leading len(Position) dimensions at a fixed
// position, yielding a sub-vector or a scalar.
type Extract struct {
	Position []int64
}

func (Extract) opInner() {}

// Insert places a scalar or sub-vector into a vector at a fixed position
// in the leading dimensions. Operands: value, dest.
type Insert struct {
	Position []int64
}

func (Insert) opInner() {}

// ExtractStridedSlice extracts a strided sub-vector. The attribute
// slices apply to the leading dimensions; trailing dimensions are taken
// whole.
type ExtractStridedSlice struct {
	Offsets []int64
	Sizes   []int64
	Strides []int64
}

func (ExtractStridedSlice) opInner() {}

// InsertStridedSlice inserts a strided sub-vector. Operands: src, dest.
type InsertStridedSlice struct {
	Offsets []int64
	Strides []int64
}

func (InsertStridedSlice) opInner() {}

// ExtractSlices tiles a vector into a tuple of sub-vectors, row-major
// over the tile grid. Boundary tiles are clipped.
type ExtractSlices struct {
	Sizes   []int64
	Strides []int64
}

func (ExtractSlices) opInner() {}

// InsertSlices reassembles a vector from a tuple of tiles produced with
// the same sizes and strides.
type InsertSlices struct {
	Sizes   []int64
	Strides []int64
}

func (InsertSlices) opInner() {}

// Tuple aggregates vector values.
type Tuple struct{}

func (Tuple) opInner() {}

// TupleGet projects one element out of a tuple.
type TupleGet struct {
	Index int
}

func (TupleGet) opInner() {}

// ShapeCast reinterprets a vector with a different shape of equal
// element count.
type ShapeCast struct{}

func (ShapeCast) opInner() {}

// BitCast reinterprets a vector's bits with a different element type.
// The minor dimension scales by the width ratio; total bits preserved.
type BitCast struct{}

func (BitCast) opInner() {}

// Transpose permutes vector dimensions.
type Transpose struct {
	Permutation []int64
}

func (Transpose) opInner() {}

// FlatTranspose transposes a row-major 1-D matrix, mapping 1-1 to a
// matrix intrinsic.
type FlatTranspose struct {
	Rows    int64
	Columns int64
}

func (FlatTranspose) opInner() {}

// Matmul multiplies two row-major 1-D matrices, mapping 1-1 to a matrix
// intrinsic. Operands: lhs, rhs.
type Matmul struct {
	LHSRows    int64
	LHSColumns int64
	RHSColumns int64
}

func (Matmul) opInner() {}

// Contract is an algebraic contraction of two vectors into an
// accumulator. Operands: lhs, rhs, acc. Contraction axes are explicit
// dimension pairs; result dimensions are the batch dimensions followed
// by the free dimensions of lhs then rhs, which must equal the acc
// shape.
type Contract struct {
	Kind        *CombiningKindAttr
	LHSBatch    []int64
	RHSBatch    []int64
	LHSContract []int64
	RHSContract []int64
}

func (Contract) opInner() {}

// OuterProduct combines an n-element and an m-element vector into an
// n-by-m vector, accumulating into acc with the combining kind.
// Operands: lhs, rhs, and optionally acc.
type OuterProduct struct {
	Kind *CombiningKindAttr
}

func (OuterProduct) opInner() {}

// Elementwise combines two same-shaped values element by element.
type Elementwise struct {
	Kind *CombiningKindAttr
}

func (Elementwise) opInner() {}

// Reduction reduces a 1-D vector to a scalar.
type Reduction struct {
	Kind *CombiningKindAttr
}

func (Reduction) opInner() {}
