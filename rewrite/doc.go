// Package rewrite provides the pattern interface and the greedy driver
// that applies pattern sets to a function until a fixed point.
//
// Patterns are match-or-decline: Match inspects a single operation
// without touching it, and Rewrite either replaces the operation
// completely or reports false and leaves the function untouched. The
// driver interleaves pattern application with local folding and dead
// operation elimination, so patterns may leave orphaned producers
// behind and rely on the driver to clean up.
package rewrite
