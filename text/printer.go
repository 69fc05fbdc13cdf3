// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package text

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/vecir/ir"
)

// Printer emits canonical assembly from an IR module. Output of Print
// round-trips through Parse.
type Printer struct {
	out    strings.Builder
	indent int

	names map[*ir.Operation]string
}

// Print returns the canonical textual form of module.
func Print(module *ir.Module) string {
	p := &Printer{}
	for i, fn := range module.Funcs {
		if i > 0 {
			p.out.WriteString("\n")
		}
		p.printFunction(fn)
	}
	return p.out.String()
}

// PrintFunction returns the canonical textual form of a single function.
func PrintFunction(fn *ir.Function) string {
	p := &Printer{}
	p.printFunction(fn)
	return p.out.String()
}

func (p *Printer) printFunction(fn *ir.Function) {
	p.names = make(map[*ir.Operation]string, len(fn.Ops))
	next := 0
	for _, op := range fn.Ops {
		if arg, ok := op.Inner.(ir.Argument); ok {
			p.names[op] = fmt.Sprintf("%%arg%d", arg.Index)
			continue
		}
		if op.Type != nil {
			p.names[op] = fmt.Sprintf("%%%d", next)
			next++
		}
	}

	p.out.WriteString("func @")
	p.out.WriteString(fn.Name)
	p.out.WriteString("(")
	for i, param := range fn.Params {
		if i > 0 {
			p.out.WriteString(", ")
		}
		fmt.Fprintf(&p.out, "%%arg%d: %s", i, ir.TypeString(param))
	}
	p.out.WriteString(")")
	if ret := fn.Terminator(); ret != nil && len(ret.Operands) == 1 {
		fmt.Fprintf(&p.out, " -> %s", ir.TypeString(ret.Operands[0].Type))
	}
	p.out.WriteString(" {\n")

	p.indent++
	for _, op := range fn.Ops {
		if _, ok := op.Inner.(ir.Argument); ok {
			continue
		}
		p.printOp(op)
	}
	p.indent--
	p.out.WriteString("}\n")
}

func (p *Printer) printOp(op *ir.Operation) {
	p.out.WriteString(strings.Repeat("  ", p.indent))
	if op.Type != nil {
		p.out.WriteString(p.names[op])
		p.out.WriteString(" = ")
	}
	p.out.WriteString(ir.OpName(op.Inner))

	for i, operand := range op.Operands {
		if i == 0 {
			p.out.WriteString(" ")
		} else {
			p.out.WriteString(", ")
		}
		p.out.WriteString(p.names[operand])
	}

	p.printAttrs(op)

	p.out.WriteString(" : (")
	for i, operand := range op.Operands {
		if i > 0 {
			p.out.WriteString(", ")
		}
		p.out.WriteString(ir.TypeString(operand.Type))
	}
	p.out.WriteString(")")
	if op.Type != nil {
		fmt.Fprintf(&p.out, " -> %s", ir.TypeString(op.Type))
	}
	p.out.WriteString("\n")
}

// printAttrs writes the attribute dictionary in a fixed per-op order.
func (p *Printer) printAttrs(op *ir.Operation) {
	var attrs []string
	add := func(key, value string) {
		attrs = append(attrs, key+" = "+value)
	}

	switch inner := op.Inner.(type) {
	case ir.Constant:
		add(constantAttr(inner.Bits, op.Type.(ir.ScalarType)))
	case ir.TransferRead:
		add("permutation", intList(inner.Permutation))
		if inner.Masked != nil {
			add("masked", boolList(inner.Masked))
		}
	case ir.TransferWrite:
		add("permutation", intList(inner.Permutation))
		if inner.Masked != nil {
			add("masked", boolList(inner.Masked))
		}
	case ir.Extract:
		add("position", intList(inner.Position))
	case ir.Insert:
		add("position", intList(inner.Position))
	case ir.ExtractStridedSlice:
		add("offsets", intList(inner.Offsets))
		add("sizes", intList(inner.Sizes))
		add("strides", intList(inner.Strides))
	case ir.InsertStridedSlice:
		add("offsets", intList(inner.Offsets))
		add("strides", intList(inner.Strides))
	case ir.ExtractSlices:
		add("sizes", intList(inner.Sizes))
		add("strides", intList(inner.Strides))
	case ir.InsertSlices:
		add("sizes", intList(inner.Sizes))
		add("strides", intList(inner.Strides))
	case ir.TupleGet:
		add("index", strconv.Itoa(inner.Index))
	case ir.Transpose:
		add("permutation", intList(inner.Permutation))
	case ir.FlatTranspose:
		add("rows", strconv.FormatInt(inner.Rows, 10))
		add("columns", strconv.FormatInt(inner.Columns, 10))
	case ir.Matmul:
		add("lhs_rows", strconv.FormatInt(inner.LHSRows, 10))
		add("lhs_columns", strconv.FormatInt(inner.LHSColumns, 10))
		add("rhs_columns", strconv.FormatInt(inner.RHSColumns, 10))
	case ir.Contract:
		add("kind", inner.Kind.Kind().String())
		if len(inner.LHSBatch) > 0 {
			add("lhs_batch", intList(inner.LHSBatch))
			add("rhs_batch", intList(inner.RHSBatch))
		}
		add("lhs_contract", intList(inner.LHSContract))
		add("rhs_contract", intList(inner.RHSContract))
	case ir.OuterProduct:
		add("kind", inner.Kind.Kind().String())
	case ir.Elementwise:
		add("kind", inner.Kind.Kind().String())
	case ir.Reduction:
		add("kind", inner.Kind.Kind().String())
	}

	if len(attrs) > 0 {
		p.out.WriteString(" {")
		p.out.WriteString(strings.Join(attrs, ", "))
		p.out.WriteString("}")
	}
}

// constantAttr renders a constant's payload: decimal for integers and
// f32/f64, raw bits for f16.
func constantAttr(bits uint64, st ir.ScalarType) (string, string) {
	switch {
	case st.Kind == ir.ScalarFloat && st.Width == 32:
		return "value", strconv.FormatFloat(float64(math.Float32frombits(uint32(bits))), 'g', -1, 32)
	case st.Kind == ir.ScalarFloat && st.Width == 64:
		return "value", strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
	case st.Kind == ir.ScalarFloat:
		return "bits", "0x" + strconv.FormatUint(bits, 16)
	default:
		return "value", strconv.FormatInt(int64(bits), 10)
	}
}

func intList(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func boolList(values []bool) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatBool(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
