// Package transform provides the rewrite pattern families of the
// dialect: canonicalizations, structural transformations, and the
// lowerings that decompose high-level vector operations into
// progressively more primitive forms.
//
// Each family is built by a population function returning a fresh
// pattern slice; callers concatenate families and hand the result to
// rewrite.Apply. Populations are pure and safe to call concurrently.
package transform
