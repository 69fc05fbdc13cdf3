// Package interp evaluates a function on concrete inputs. It exists
// for equivalence testing: lowering rewrites are checked by running the
// original and lowered functions on the same buffers and comparing
// results bit for bit.
//
// Values are bit patterns, one uint64 per element, interpreted through
// the element's scalar type. Integer combining uses signed two's
// complement arithmetic masked to the element width; float combining
// uses IEEE semantics, with f16 routed through float32.
package interp
