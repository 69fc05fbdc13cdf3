package ir

import "fmt"

// ValidationError represents a structural error in a module.
type ValidationError struct {
	Message  string
	Function string
	Op       int // op id, or -1
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Op >= 0 {
			return fmt.Sprintf("in function %s, op %%%d: %s", e.Function, e.Op, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator validates IR modules.
type Validator struct {
	module *Module
	errors []ValidationError

	fn *Function
}

// Validate checks the module for correctness: SSA ordering, operand
// counts, type and shape agreement per operation.
// Returns validation errors if any, or nil if the module is valid.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{module: module}
	for _, fn := range module.Funcs {
		v.fn = fn
		v.validateFunction(fn)
	}

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

func (v *Validator) errorf(op *Operation, format string, args ...interface{}) {
	id := -1
	if op != nil {
		id = op.id
	}
	v.errors = append(v.errors, ValidationError{
		Message:  fmt.Sprintf(format, args...),
		Function: v.fn.Name,
		Op:       id,
	})
}

func (v *Validator) validateFunction(fn *Function) {
	seen := make(map[*Operation]bool, len(fn.Ops))
	for _, op := range fn.Ops {
		for _, operand := range op.Operands {
			if operand == nil {
				v.errorf(op, "nil operand")
				continue
			}
			if !seen[operand] {
				v.errorf(op, "operand %%%d does not dominate its use", operand.id)
			}
		}
		seen[op] = true
		v.validateOp(op)
	}
}

func (v *Validator) validateOp(op *Operation) {
	switch inner := op.Inner.(type) {
	case Argument:
		if inner.Index < 0 || inner.Index >= len(v.fn.Params) {
			v.errorf(op, "argument index %d out of range", inner.Index)
		}

	case Constant:
		if _, ok := op.Type.(ScalarType); !ok {
			v.errorf(op, "constant must have scalar type, got %s", TypeString(op.Type))
		}

	case Return:
		if len(op.Operands) > 1 {
			v.errorf(op, "return takes at most one operand")
		}

	case TransferRead:
		v.validateTransferRead(op, inner)

	case TransferWrite:
		v.validateTransferWrite(op, inner)

	case Load:
		v.validateMemAccess(op, op.Operands)

	case Store:
		if len(op.Operands) < 2 {
			v.errorf(op, "store needs a value and a memref")
			return
		}
		v.validateMemAccess(op, op.Operands[1:])

	case Broadcast:
		vt, ok := op.VectorType()
		if !ok {
			v.errorf(op, "broadcast must produce a vector")
			return
		}
		if !BroadcastCompatible(op.Operands[0].Type, vt) {
			v.errorf(op, "cannot broadcast %s to %s", TypeString(op.Operands[0].Type), TypeString(vt))
		}

	case Extract:
		src, ok := op.Operands[0].VectorType()
		if !ok {
			v.errorf(op, "extract source must be a vector")
			return
		}
		if len(inner.Position) > src.Rank() {
			v.errorf(op, "extract position rank %d exceeds source rank %d", len(inner.Position), src.Rank())
			return
		}
		for i, p := range inner.Position {
			if p < 0 || p >= src.Shape[i] {
				v.errorf(op, "extract position %d out of range for dimension %d", p, i)
			}
		}
		if !TypeEqual(op.Type, ExtractResultType(src, len(inner.Position))) {
			v.errorf(op, "extract result type mismatch")
		}

	case Insert:
		dest, ok := op.Operands[1].VectorType()
		if !ok {
			v.errorf(op, "insert destination must be a vector")
			return
		}
		for i, p := range inner.Position {
			if i >= dest.Rank() || p < 0 || p >= dest.Shape[i] {
				v.errorf(op, "insert position %d out of range for dimension %d", p, i)
			}
		}
		if !TypeEqual(op.Operands[0].Type, ExtractResultType(dest, len(inner.Position))) {
			v.errorf(op, "insert value type mismatch")
		}
		if !TypeEqual(op.Type, dest) {
			v.errorf(op, "insert result type mismatch")
		}

	case ExtractStridedSlice:
		src, ok := op.Operands[0].VectorType()
		if !ok {
			v.errorf(op, "strided slice source must be a vector")
			return
		}
		if len(inner.Offsets) != len(inner.Sizes) || len(inner.Sizes) != len(inner.Strides) {
			v.errorf(op, "strided slice attribute lengths differ")
			return
		}
		if len(inner.Sizes) > src.Rank() {
			v.errorf(op, "strided slice rank exceeds source rank")
			return
		}
		for i := range inner.Sizes {
			if inner.Strides[i] != 1 {
				v.errorf(op, "only unit strides are supported")
			}
			if inner.Offsets[i] < 0 || inner.Offsets[i]+inner.Sizes[i] > src.Shape[i] {
				v.errorf(op, "strided slice overruns dimension %d", i)
			}
		}

	case InsertStridedSlice:
		src, okSrc := op.Operands[0].VectorType()
		dest, okDest := op.Operands[1].VectorType()
		if !okSrc || !okDest {
			v.errorf(op, "insert_strided_slice operands must be vectors")
			return
		}
		if src.Rank() > dest.Rank() {
			v.errorf(op, "source rank exceeds destination rank")
			return
		}
		if len(inner.Offsets) != src.Rank() {
			v.errorf(op, "offsets rank must equal source rank")
			return
		}
		for i := range inner.Offsets {
			if inner.Offsets[i]+src.Shape[i] > dest.Shape[i] {
				v.errorf(op, "insert_strided_slice overruns dimension %d", i)
			}
		}

	case ExtractSlices:
		src, ok := op.Operands[0].VectorType()
		if !ok {
			v.errorf(op, "extract_slices source must be a vector")
			return
		}
		if len(inner.Sizes) != src.Rank() {
			v.errorf(op, "tile sizes rank must equal source rank")
			return
		}
		want := SlicesTupleType(v.module.Context, src, inner.Sizes)
		if !TypeEqual(op.Type, want) {
			v.errorf(op, "extract_slices tuple type mismatch")
		}

	case InsertSlices:
		result, ok := op.VectorType()
		if !ok {
			v.errorf(op, "insert_slices must produce a vector")
			return
		}
		if _, ok := op.Operands[0].Type.(TupleType); !ok {
			v.errorf(op, "insert_slices operand must be a tuple")
			return
		}
		want := SlicesTupleType(v.module.Context, result, inner.Sizes)
		if !TypeEqual(op.Operands[0].Type, want) {
			v.errorf(op, "insert_slices tuple type mismatch")
		}

	case Tuple:
		tt, ok := op.Type.(TupleType)
		if !ok || len(tt.Elems) != len(op.Operands) {
			v.errorf(op, "tuple type arity mismatch")
		}

	case TupleGet:
		tt, ok := op.Operands[0].Type.(TupleType)
		if !ok {
			v.errorf(op, "tuple_get operand must be a tuple")
			return
		}
		if inner.Index < 0 || inner.Index >= len(tt.Elems) {
			v.errorf(op, "tuple index %d out of range", inner.Index)
			return
		}
		if !TypeEqual(op.Type, tt.Elems[inner.Index]) {
			v.errorf(op, "tuple_get result type mismatch")
		}

	case ShapeCast:
		src, okSrc := op.Operands[0].VectorType()
		dst, okDst := op.VectorType()
		if !okSrc || !okDst {
			v.errorf(op, "shape_cast operands must be vectors")
			return
		}
		if src.Elem != dst.Elem || src.NumElements() != dst.NumElements() {
			v.errorf(op, "shape_cast must preserve element count and type")
		}

	case BitCast:
		src, okSrc := op.Operands[0].VectorType()
		dst, okDst := op.VectorType()
		if !okSrc || !okDst {
			v.errorf(op, "bitcast operands must be vectors")
			return
		}
		shape, err := BitCastResultShape(src, dst.Elem)
		if err != nil {
			v.errorf(op, "%v", err)
			return
		}
		if !shapeEqual(shape, dst.Shape) {
			v.errorf(op, "bitcast result shape mismatch")
		}

	case Transpose:
		src, ok := op.Operands[0].VectorType()
		if !ok {
			v.errorf(op, "transpose source must be a vector")
			return
		}
		if len(inner.Permutation) != src.Rank() {
			v.errorf(op, "permutation rank must equal source rank")
			return
		}
		seen := make(map[int64]bool, len(inner.Permutation))
		for _, p := range inner.Permutation {
			if p < 0 || p >= int64(src.Rank()) || seen[p] {
				v.errorf(op, "invalid permutation")
				return
			}
			seen[p] = true
		}

	case FlatTranspose:
		src, ok := op.Operands[0].VectorType()
		if !ok || src.Rank() != 1 {
			v.errorf(op, "flat_transpose requires a 1-D vector")
			return
		}
		if inner.Rows*inner.Columns != src.Shape[0] {
			v.errorf(op, "flat_transpose rows*columns must equal vector length")
		}

	case Matmul:
		lhs, okL := op.Operands[0].VectorType()
		rhs, okR := op.Operands[1].VectorType()
		if !okL || !okR || lhs.Rank() != 1 || rhs.Rank() != 1 {
			v.errorf(op, "matrix_multiply requires 1-D vectors")
			return
		}
		if lhs.Shape[0] != inner.LHSRows*inner.LHSColumns {
			v.errorf(op, "lhs length must equal rows*columns")
		}
		if rhs.Shape[0] != inner.LHSColumns*inner.RHSColumns {
			v.errorf(op, "rhs length must equal columns*rhs_columns")
		}

	case Contract:
		v.validateContract(op, inner)

	case OuterProduct:
		lhs, okL := op.Operands[0].VectorType()
		rhs, okR := op.Operands[1].VectorType()
		if !okL || !okR || lhs.Rank() != 1 || rhs.Rank() != 1 {
			v.errorf(op, "outerproduct requires 1-D operands")
			return
		}
		if len(op.Operands) == 3 {
			acc, ok := op.Operands[2].VectorType()
			if !ok || !shapeEqual(acc.Shape, []int64{lhs.Shape[0], rhs.Shape[0]}) {
				v.errorf(op, "outerproduct accumulator shape mismatch")
			}
		}
		if inner.Kind == nil {
			v.errorf(op, "outerproduct requires a combining kind")
		}

	case Elementwise:
		if !TypeEqual(op.Operands[0].Type, op.Operands[1].Type) {
			v.errorf(op, "elementwise operands must have identical types")
		}
		if inner.Kind == nil {
			v.errorf(op, "elementwise requires a combining kind")
		}

	case Reduction:
		src, ok := op.Operands[0].VectorType()
		if !ok || src.Rank() != 1 {
			v.errorf(op, "reduction requires a 1-D vector")
			return
		}
		if inner.Kind == nil {
			v.errorf(op, "reduction requires a combining kind")
		}
		if inner.Kind != nil && inner.Kind.Kind().Bitwise() && src.Elem.Kind == ScalarFloat {
			v.errorf(op, "bitwise reduction over float elements")
		}

	default:
		v.errorf(op, "unknown operation %T", op.Inner)
	}
}

func (v *Validator) validateTransferRead(op *Operation, inner TransferRead) {
	if len(op.Operands) < 2 {
		v.errorf(op, "transfer_read needs a memref and padding")
		return
	}
	mt, ok := op.Operands[0].Type.(MemRefType)
	if !ok {
		v.errorf(op, "transfer_read source must be a memref")
		return
	}
	if len(op.Operands) != 1+mt.Rank()+1 {
		v.errorf(op, "transfer_read needs one index per memref dimension")
		return
	}
	vt, ok := op.VectorType()
	if !ok {
		v.errorf(op, "transfer_read must produce a vector")
		return
	}
	v.validateTransferMaps(op, mt, vt, inner.Permutation, inner.Masked)
	if pad, ok := op.Operands[len(op.Operands)-1].Type.(ScalarType); !ok || pad != vt.Elem {
		v.errorf(op, "padding type must match the vector element type")
	}
}

func (v *Validator) validateTransferWrite(op *Operation, inner TransferWrite) {
	if len(op.Operands) < 2 {
		v.errorf(op, "transfer_write needs a vector and a memref")
		return
	}
	vt, ok := op.Operands[0].VectorType()
	if !ok {
		v.errorf(op, "transfer_write value must be a vector")
		return
	}
	mt, ok := op.Operands[1].Type.(MemRefType)
	if !ok {
		v.errorf(op, "transfer_write destination must be a memref")
		return
	}
	if len(op.Operands) != 2+mt.Rank() {
		v.errorf(op, "transfer_write needs one index per memref dimension")
		return
	}
	v.validateTransferMaps(op, mt, vt, inner.Permutation, inner.Masked)
}

func (v *Validator) validateTransferMaps(op *Operation, mt MemRefType, vt VectorType,
	permutation []int64, masked []bool) {
	if len(permutation) != vt.Rank() {
		v.errorf(op, "permutation must have one entry per vector dimension")
		return
	}
	if masked != nil && len(masked) != vt.Rank() {
		v.errorf(op, "masked must have one entry per vector dimension")
	}
	for _, p := range permutation {
		if p == BroadcastDim {
			continue
		}
		if p < 0 || p >= int64(mt.Rank()) {
			v.errorf(op, "permutation entry %d out of memref range", p)
		}
	}
	if mt.Elem != vt.Elem {
		v.errorf(op, "element type mismatch between %s and %s", TypeString(mt), TypeString(vt))
	}
}

func (v *Validator) validateContract(op *Operation, inner Contract) {
	if len(op.Operands) != 3 {
		v.errorf(op, "contract needs lhs, rhs and acc")
		return
	}
	lhs, okL := op.Operands[0].VectorType()
	rhs, okR := op.Operands[1].VectorType()
	if !okL || !okR {
		v.errorf(op, "contract operands must be vectors")
		return
	}
	if inner.Kind == nil {
		v.errorf(op, "contract requires a combining kind")
		return
	}
	shapes, err := ResolveContract(inner, lhs, rhs)
	if err != nil {
		v.errorf(op, "%v", err)
		return
	}
	switch acc := op.Operands[2].Type.(type) {
	case ScalarType:
		if len(shapes.Result) != 0 {
			v.errorf(op, "scalar accumulator for a non-scalar contraction")
		}
	case VectorType:
		if !shapeEqual(acc.Shape, shapes.Result) {
			v.errorf(op, "accumulator shape does not match contraction result")
		}
	default:
		v.errorf(op, "contract accumulator must be a scalar or a vector")
	}
	if !TypeEqual(op.Type, op.Operands[2].Type) {
		v.errorf(op, "contract result type must equal accumulator type")
	}
}

func (v *Validator) validateMemAccess(op *Operation, operands []*Operation) {
	mt, ok := operands[0].Type.(MemRefType)
	if !ok {
		v.errorf(op, "memory access requires a memref")
		return
	}
	if len(operands) != 1+mt.Rank() {
		v.errorf(op, "memory access needs one index per memref dimension")
	}
}
