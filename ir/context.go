package ir

import (
	"strconv"
	"sync"
)

// Context owns the uniquing tables for types and attributes.
//
// Interning guarantees at-most-one instance per structural key within a
// context, including under concurrent first-use from multiple goroutines.
// A Context is never shared between unrelated modules; its tables live and
// die with it.
type Context struct {
	mu        sync.Mutex
	types     map[string]TypeInner
	combining map[CombiningKind]*CombiningKindAttr
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{
		types:     make(map[string]TypeInner, 16),
		combining: make(map[CombiningKind]*CombiningKindAttr, 8),
	}
}

// Intern returns the canonical instance of a structurally equal type,
// creating it on first request.
func (c *Context) Intern(t TypeInner) TypeInner {
	key := typeKey(t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.types[key]; ok {
		return existing
	}
	c.types[key] = t
	return t
}

// VectorOf returns the interned vector type with the given shape.
func (c *Context) VectorOf(shape []int64, elem ScalarType) VectorType {
	return c.Intern(VectorType{Shape: shape, Elem: elem}).(VectorType)
}

// MemRefOf returns the interned memref type with the given shape.
func (c *Context) MemRefOf(shape []int64, elem ScalarType) MemRefType {
	return c.Intern(MemRefType{Shape: shape, Elem: elem}).(MemRefType)
}

// TupleOf returns the interned tuple type with the given element types.
func (c *Context) TupleOf(elems []TypeInner) TupleType {
	return c.Intern(TupleType{Elems: elems}).(TupleType)
}

// typeKey creates a unique key for a type based on its structure.
// Two structurally identical types produce the same key.
func typeKey(t TypeInner) string {
	switch t := t.(type) {
	case ScalarType:
		return "scalar:" + strconv.Itoa(int(t.Kind)) + ":" + strconv.Itoa(int(t.Width))
	case IntegerType:
		return "int:" + strconv.Itoa(int(t.Width)) + ":" + strconv.FormatBool(t.Signed)
	case VectorType:
		return "vec:" + shapeKey(t.Shape) + ":" + typeKey(t.Elem)
	case MemRefType:
		return "memref:" + shapeKey(t.Shape) + ":" + typeKey(t.Elem)
	case TupleType:
		key := "tuple"
		for _, e := range t.Elems {
			key += ":(" + typeKey(e) + ")"
		}
		return key
	default:
		return "unknown"
	}
}

func shapeKey(shape []int64) string {
	key := ""
	for i, d := range shape {
		if i > 0 {
			key += "x"
		}
		key += strconv.FormatInt(d, 10)
	}
	return key
}
