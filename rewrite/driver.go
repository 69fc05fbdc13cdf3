package rewrite

import "github.com/gogpu/vecir/ir"

// Apply rewrites fn with the given patterns until no pattern fires.
// Each round runs every pattern over the function, then folds trivial
// identities and removes dead operations. Reports whether anything
// changed.
func Apply(ctx *ir.Context, fn *ir.Function, patterns []Pattern) bool {
	changed := false
	for {
		round := applyPatterns(ctx, fn, patterns)
		if foldAll(fn) {
			round = true
		}
		if EliminateDeadOps(fn) {
			round = true
		}
		if !round {
			return changed
		}
		changed = true
	}
}

func applyPatterns(ctx *ir.Context, fn *ir.Function, patterns []Pattern) bool {
	changed := false
	for {
		fired := false
		// Snapshot: patterns insert and remove operations while we walk.
		ops := make([]*ir.Operation, len(fn.Ops))
		copy(ops, fn.Ops)

		for _, op := range ops {
			if !alive(fn, op) {
				continue
			}
			for _, pat := range patterns {
				if !pat.Match(op) {
					continue
				}
				r := newRewriter(ctx, fn, op)
				if pat.Rewrite(r, op) {
					fired = true
					break
				}
			}
		}
		if !fired {
			return changed
		}
		changed = true
	}
}

func alive(fn *ir.Function, op *ir.Operation) bool {
	for _, o := range fn.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// foldAll forwards trivial identities: casts and broadcasts to the
// operand's own type, and tuple_get applied directly to a tuple.
func foldAll(fn *ir.Function) bool {
	changed := false
	for {
		fired := false
		for _, op := range fn.Ops {
			repl := foldOp(op)
			if repl == nil {
				continue
			}
			fn.ReplaceAllUses(op, repl)
			fn.Remove(op)
			fired = true
			break
		}
		if !fired {
			return changed
		}
		changed = true
	}
}

func foldOp(op *ir.Operation) *ir.Operation {
	switch inner := op.Inner.(type) {
	case ir.ShapeCast, ir.BitCast, ir.Broadcast:
		if ir.TypeEqual(op.Type, op.Operands[0].Type) {
			return op.Operands[0]
		}
	case ir.TupleGet:
		if _, ok := op.Operands[0].Inner.(ir.Tuple); ok {
			return op.Operands[0].Operands[inner.Index]
		}
	}
	return nil
}

// EliminateDeadOps removes result-bearing operations with no remaining
// uses. Arguments stay so parameter indexing remains stable. Reports
// whether anything was removed.
func EliminateDeadOps(fn *ir.Function) bool {
	changed := false
	for {
		fired := false
		for i := len(fn.Ops) - 1; i >= 0; i-- {
			op := fn.Ops[i]
			if op.Type == nil {
				continue
			}
			if _, ok := op.Inner.(ir.Argument); ok {
				continue
			}
			if len(fn.Users(op)) == 0 {
				fn.Remove(op)
				fired = true
			}
		}
		if !fired {
			return changed
		}
		changed = true
	}
}
