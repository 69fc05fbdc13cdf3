// Package ir defines the intermediate representation for the vecir
// vector dialect.
//
// The IR is designed to be:
//   - Target-agnostic: high-level vector operations with no machine detail
//   - Transformable: operations are immutable SSA nodes that rewrites
//     replace, never mutate in place
//   - Interned: types and attributes are uniqued per Context
//
// # Structure
//
// The IR is organized around a Module type that contains:
//   - Functions: sequences of single-result SSA operations
//
// and a Context that owns the uniquing tables for types and attributes.
// Two structurally equal types or attributes obtained from the same
// Context are the identical object.
//
// # Transformation Pipeline
//
// The typical pipeline is:
//
//	Text -> Module -> canonicalization -> lowering -> Text
//
// The rewrite and transform packages provide the pattern families; this
// package only provides the data model, construction and verification.
package ir
