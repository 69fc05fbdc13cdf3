package ir

import "fmt"

// IntegerAttr is an integer value paired with its attribute type.
type IntegerAttr struct {
	Type  IntegerType
	Value int64
}

// NewIntegerAttr wraps value in the given integer type, failing when the
// value does not fit the type's width.
func NewIntegerAttr(typ IntegerType, value int64) (IntegerAttr, error) {
	if typ.Width < 64 {
		limit := int64(1) << (typ.Width - 1)
		if value >= limit || value < -limit {
			return IntegerAttr{}, fmt.Errorf("ir: value %d out of range for %s", value, TypeString(typ))
		}
	}
	return IntegerAttr{Type: typ, Value: value}, nil
}

// ArrayAttr is an ordered sequence of integer attributes.
type ArrayAttr struct {
	Elems []IntegerAttr
}

// Values returns the raw integer values of the array.
func (a ArrayAttr) Values() []int64 {
	vals := make([]int64, len(a.Elems))
	for i, e := range a.Elems {
		vals[i] = e.Value
	}
	return vals
}

// subscriptWidth is the fixed width of vector subscripts, dialect-wide.
const subscriptWidth = 64

// VectorSubscriptType returns the integer type required for subscripts in
// the vector dialect. Every pattern constructing index attributes goes
// through this single definition.
func VectorSubscriptType(ctx *Context) IntegerType {
	return ctx.Intern(IntegerType{Width: subscriptWidth, Signed: true}).(IntegerType)
}

// VectorSubscriptAttr returns an integer array attribute containing the
// given values using the subscript type. The only failure mode is a value
// outside the subscript type's range, surfaced from NewIntegerAttr.
func VectorSubscriptAttr(ctx *Context, values []int64) (ArrayAttr, error) {
	typ := VectorSubscriptType(ctx)
	elems := make([]IntegerAttr, len(values))
	for i, v := range values {
		attr, err := NewIntegerAttr(typ, v)
		if err != nil {
			return ArrayAttr{}, err
		}
		elems[i] = attr
	}
	return ArrayAttr{Elems: elems}, nil
}
