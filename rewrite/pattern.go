package rewrite

import "github.com/gogpu/vecir/ir"

// Pattern matches one operation and replaces it with an equivalent
// computation.
//
// Match must not modify the function. Rewrite either performs the full
// replacement and returns true, or returns false having changed
// nothing; a partial rewrite is a bug in the pattern.
type Pattern interface {
	Match(op *ir.Operation) bool
	Rewrite(r *Rewriter, op *ir.Operation) bool
}

// Rewriter is the builder handed to a pattern's Rewrite. New operations
// are inserted before the matched operation, so every value the matched
// operation could see is visible to the replacement.
type Rewriter struct {
	*ir.Builder

	fn *ir.Function
}

func newRewriter(ctx *ir.Context, fn *ir.Function, anchor *ir.Operation) *Rewriter {
	b := ir.NewBuilder(ctx, fn)
	b.SetInsertionPoint(anchor)
	return &Rewriter{Builder: b, fn: fn}
}

// Func returns the function being rewritten. Patterns whose match
// depends on the uses of an operation inspect it here and decline from
// Rewrite when the surroundings do not fit.
func (r *Rewriter) Func() *ir.Function {
	return r.fn
}

// Replace redirects every use of old to repl and removes old from the
// function. Operands of old that become dead are left for the driver's
// elimination pass.
func (r *Rewriter) Replace(old, repl *ir.Operation) {
	r.fn.ReplaceAllUses(old, repl)
	r.fn.Remove(old)
}

// Erase removes an operation that produces no result, such as a
// transfer_write being replaced by per-slice writes.
func (r *Rewriter) Erase(op *ir.Operation) {
	r.fn.Remove(op)
}
