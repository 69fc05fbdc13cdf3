package ir

// Module is a collection of functions sharing one Context.
type Module struct {
	Context *Context
	Funcs   []*Function
}

// NewModule creates an empty module owning a fresh context.
func NewModule() *Module {
	return &Module{Context: NewContext()}
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Function {
	for _, fn := range m.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Function is an ordered sequence of SSA operations. Every operand of an
// operation appears earlier in Ops than the operation itself.
type Function struct {
	Name   string
	Params []TypeInner
	Ops    []*Operation

	nextID int
}

// NewFunction creates an empty function and materializes one Argument
// operation per parameter, in order.
func NewFunction(name string, params []TypeInner) *Function {
	fn := &Function{Name: name, Params: params}
	for i, p := range params {
		fn.Append(Argument{Index: i}, nil, p)
	}
	return fn
}

// Append adds a new operation at the end of the function.
func (fn *Function) Append(inner OpInner, operands []*Operation, result TypeInner) *Operation {
	op := &Operation{id: fn.nextID, Inner: inner, Operands: operands, Type: result}
	fn.nextID++
	fn.Ops = append(fn.Ops, op)
	return op
}

// InsertBefore adds a new operation immediately before anchor.
func (fn *Function) InsertBefore(anchor *Operation, inner OpInner, operands []*Operation, result TypeInner) *Operation {
	op := &Operation{id: fn.nextID, Inner: inner, Operands: operands, Type: result}
	fn.nextID++

	idx := fn.indexOf(anchor)
	fn.Ops = append(fn.Ops, nil)
	copy(fn.Ops[idx+1:], fn.Ops[idx:])
	fn.Ops[idx] = op
	return op
}

func (fn *Function) indexOf(op *Operation) int {
	for i, o := range fn.Ops {
		if o == op {
			return i
		}
	}
	return len(fn.Ops)
}

// Argument returns the Argument operation for parameter index.
func (fn *Function) Argument(index int) *Operation {
	for _, op := range fn.Ops {
		if arg, ok := op.Inner.(Argument); ok && arg.Index == index {
			return op
		}
	}
	return nil
}

// ReplaceAllUses redirects every operand edge pointing at old to point at
// repl instead.
func (fn *Function) ReplaceAllUses(old, repl *Operation) {
	for _, op := range fn.Ops {
		for i, operand := range op.Operands {
			if operand == old {
				op.Operands[i] = repl
			}
		}
	}
}

// Users returns the operations consuming op's result, in program order.
func (fn *Function) Users(op *Operation) []*Operation {
	var users []*Operation
	for _, candidate := range fn.Ops {
		for _, operand := range candidate.Operands {
			if operand == op {
				users = append(users, candidate)
				break
			}
		}
	}
	return users
}

// Remove deletes op from the function. The caller must have redirected
// or removed all uses first.
func (fn *Function) Remove(op *Operation) {
	idx := fn.indexOf(op)
	if idx < len(fn.Ops) {
		fn.Ops = append(fn.Ops[:idx], fn.Ops[idx+1:]...)
	}
}

// Terminator returns the function's return operation, or nil while the
// function is still under construction.
func (fn *Function) Terminator() *Operation {
	for i := len(fn.Ops) - 1; i >= 0; i-- {
		if _, ok := fn.Ops[i].Inner.(Return); ok {
			return fn.Ops[i]
		}
	}
	return nil
}
