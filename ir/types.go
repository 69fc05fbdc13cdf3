package ir

import "strconv"

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean (width 1)
)

// ScalarType represents scalar element types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bits: 1, 16, 32 or 64
}

func (ScalarType) typeInner() {}

// Common scalar types.
var (
	I1  = ScalarType{Kind: ScalarBool, Width: 1}
	I32 = ScalarType{Kind: ScalarSint, Width: 32}
	I64 = ScalarType{Kind: ScalarSint, Width: 64}
	F16 = ScalarType{Kind: ScalarFloat, Width: 16}
	F32 = ScalarType{Kind: ScalarFloat, Width: 32}
	F64 = ScalarType{Kind: ScalarFloat, Width: 64}
)

// String returns the canonical spelling of the scalar type (f32, i64, ...).
func (s ScalarType) String() string {
	switch s.Kind {
	case ScalarFloat:
		return "f" + strconv.Itoa(int(s.Width))
	default:
		return "i" + strconv.Itoa(int(s.Width))
	}
}

// VectorType represents an n-dimensional vector with a static shape.
type VectorType struct {
	Shape []int64
	Elem  ScalarType
}

func (VectorType) typeInner() {}

// Rank returns the number of dimensions.
func (v VectorType) Rank() int { return len(v.Shape) }

// NumElements returns the total element count.
func (v VectorType) NumElements() int64 {
	n := int64(1)
	for _, d := range v.Shape {
		n *= d
	}
	return n
}

// MemRefType represents a memory buffer with a static shape.
type MemRefType struct {
	Shape []int64
	Elem  ScalarType
}

func (MemRefType) typeInner() {}

// Rank returns the number of dimensions.
func (m MemRefType) Rank() int { return len(m.Shape) }

// TupleType represents an aggregate of vector values, produced by the
// extract_slices operation and destructured by tuple_get.
type TupleType struct {
	Elems []TypeInner
}

func (TupleType) typeInner() {}

// IntegerType represents a standalone integer type used by attributes.
type IntegerType struct {
	Width  uint8
	Signed bool
}

func (IntegerType) typeInner() {}

// TypeString returns the canonical spelling of any inner type.
func TypeString(t TypeInner) string {
	switch t := t.(type) {
	case nil:
		return "none"
	case ScalarType:
		return t.String()
	case VectorType:
		return "vector<" + shapeString(t.Shape, t.Elem) + ">"
	case MemRefType:
		return "memref<" + shapeString(t.Shape, t.Elem) + ">"
	case TupleType:
		s := "tuple<"
		for i, e := range t.Elems {
			if i > 0 {
				s += ", "
			}
			s += TypeString(e)
		}
		return s + ">"
	case IntegerType:
		return "i" + strconv.Itoa(int(t.Width))
	default:
		return "unknown"
	}
}

func shapeString(shape []int64, elem ScalarType) string {
	s := ""
	for _, d := range shape {
		s += strconv.FormatInt(d, 10) + "x"
	}
	return s + elem.String()
}

// TypeEqual reports structural equality of two inner types.
func TypeEqual(a, b TypeInner) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case ScalarType:
		bb, ok := b.(ScalarType)
		return ok && a == bb
	case IntegerType:
		bb, ok := b.(IntegerType)
		return ok && a == bb
	case VectorType:
		bb, ok := b.(VectorType)
		return ok && a.Elem == bb.Elem && shapeEqual(a.Shape, bb.Shape)
	case MemRefType:
		bb, ok := b.(MemRefType)
		return ok && a.Elem == bb.Elem && shapeEqual(a.Shape, bb.Shape)
	case TupleType:
		bb, ok := b.(TupleType)
		if !ok || len(a.Elems) != len(bb.Elems) {
			return false
		}
		for i := range a.Elems {
			if !TypeEqual(a.Elems[i], bb.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func shapeEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
