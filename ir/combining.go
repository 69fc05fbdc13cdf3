package ir

import (
	"fmt"
	"io"
)

// CombiningKind is the algebraic operator used to reduce or contract
// vector elements. The enumeration is closed: values are stable and are
// used as discriminants throughout the dialect.
type CombiningKind uint8

const (
	CombiningAdd CombiningKind = iota
	CombiningMul
	CombiningMin
	CombiningMax
	CombiningAnd
	CombiningOr
	CombiningXor

	numCombiningKinds
)

// combiningKeywords holds the canonical textual token for each kind.
// Print and parse must round-trip through this table.
var combiningKeywords = [numCombiningKinds]string{
	CombiningAdd: "add",
	CombiningMul: "mul",
	CombiningMin: "min",
	CombiningMax: "max",
	CombiningAnd: "and",
	CombiningOr:  "or",
	CombiningXor: "xor",
}

// CombiningKinds returns every valid kind, in declaration order.
func CombiningKinds() []CombiningKind {
	kinds := make([]CombiningKind, 0, numCombiningKinds)
	for k := CombiningKind(0); k < numCombiningKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a member of the closed enumeration.
func (k CombiningKind) Valid() bool { return k < numCombiningKinds }

// String returns the canonical keyword for the kind.
func (k CombiningKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("CombiningKind(%d)", uint8(k))
	}
	return combiningKeywords[k]
}

// ParseCombiningKind maps a keyword back to its kind. The boolean is
// false for unrecognized keywords; no default kind is ever produced.
func ParseCombiningKind(keyword string) (CombiningKind, bool) {
	for k, kw := range combiningKeywords {
		if kw == keyword {
			return CombiningKind(k), true
		}
	}
	return 0, false
}

// Bitwise reports whether the kind only applies to integer elements.
func (k CombiningKind) Bitwise() bool {
	switch k {
	case CombiningAnd, CombiningOr, CombiningXor:
		return true
	default:
		return false
	}
}

// CombiningKindAttr is the interned, immutable attribute wrapping a
// CombiningKind. Two attributes with equal kind obtained from the same
// Context are the identical object.
type CombiningKindAttr struct {
	kind CombiningKind
}

// CombiningKindAttrOf returns the unique attribute instance for kind
// within ctx, creating it on first request. It never fails for a valid
// enum value and panics on an out-of-enum kind, which only a caller bug
// can produce.
func CombiningKindAttrOf(kind CombiningKind, ctx *Context) *CombiningKindAttr {
	if !kind.Valid() {
		panic(fmt.Sprintf("ir: invalid combining kind %d", uint8(kind)))
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if attr, ok := ctx.combining[kind]; ok {
		return attr
	}
	attr := &CombiningKindAttr{kind: kind}
	ctx.combining[kind] = attr
	return attr
}

// Kind returns the wrapped combining kind.
func (a *CombiningKindAttr) Kind() CombiningKind { return a.kind }

// Print emits the canonical textual token for the attribute.
func (a *CombiningKindAttr) Print(w io.Writer) error {
	_, err := io.WriteString(w, a.kind.String())
	return err
}
