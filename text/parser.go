package text

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/vecir/ir"
)

// Parser parses vecir assembly into an IR module.
type Parser struct {
	source  string
	tokens  []Token
	current int

	module *ir.Module
	fn     *ir.Function
	values map[string]*ir.Operation
}

// Parse parses source into a module. The returned module is structurally
// complete but not validated; callers that accept untrusted input should
// run ir.Validate on the result.
func Parse(source string) (*ir.Module, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{source: source, tokens: tokens, module: ir.NewModule()}
	for !p.isAtEnd() {
		if err := p.parseFunction(); err != nil {
			return nil, err
		}
	}
	return p.module, nil
}

func (p *Parser) parseFunction() error {
	if err := p.expectKeyword("func"); err != nil {
		return err
	}
	nameTok, err := p.expect(TokenSymbolName)
	if err != nil {
		return err
	}

	if _, err := p.expect(TokenLeftParen); err != nil {
		return err
	}
	var paramNames []string
	var paramTypes []ir.TypeInner
	for !p.check(TokenRightParen) {
		if len(paramNames) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return err
			}
		}
		nameTok, err := p.expect(TokenValueName)
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenColon); err != nil {
			return err
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		paramNames = append(paramNames, nameTok.Lexeme)
		paramTypes = append(paramTypes, typ)
	}
	if _, err := p.expect(TokenRightParen); err != nil {
		return err
	}

	if p.check(TokenArrow) {
		p.advance()
		if _, err := p.parseType(); err != nil {
			return err
		}
	}

	p.fn = ir.NewFunction(nameTok.Lexeme, paramTypes)
	p.module.Funcs = append(p.module.Funcs, p.fn)
	p.values = make(map[string]*ir.Operation, 16)
	for i, name := range paramNames {
		if _, dup := p.values[name]; dup {
			return p.errorf(nameTok.Pos(), "duplicate value name %%%s", name)
		}
		p.values[name] = p.fn.Argument(i)
	}

	if _, err := p.expect(TokenLeftBrace); err != nil {
		return err
	}
	for !p.check(TokenRightBrace) {
		if err := p.parseOp(); err != nil {
			return err
		}
	}
	_, err = p.expect(TokenRightBrace)
	return err
}

// attrValue is a parsed attribute value with its source position.
type attrValue struct {
	pos    Pos
	ident  string
	num    *int64
	fnum   *float64
	ints   []int64
	bools  []bool
	isInts bool
}

func (p *Parser) parseOp() error {
	resultName := ""
	var resultPos Pos
	if p.check(TokenValueName) {
		tok := p.advance()
		resultName = tok.Lexeme
		resultPos = tok.Pos()
		if _, err := p.expect(TokenEqual); err != nil {
			return err
		}
	}

	opTok, err := p.expect(TokenIdent)
	if err != nil {
		return err
	}

	var operands []*ir.Operation
	for p.check(TokenValueName) {
		tok := p.advance()
		operand, ok := p.values[tok.Lexeme]
		if !ok {
			return p.errorf(tok.Pos(), "use of undefined value %%%s", tok.Lexeme)
		}
		operands = append(operands, operand)
		if p.check(TokenComma) {
			p.advance()
		} else {
			break
		}
	}

	attrs := map[string]attrValue{}
	if p.check(TokenLeftBrace) {
		p.advance()
		for !p.check(TokenRightBrace) {
			if len(attrs) > 0 {
				if _, err := p.expect(TokenComma); err != nil {
					return err
				}
			}
			key, err := p.expect(TokenIdent)
			if err != nil {
				return err
			}
			if _, err := p.expect(TokenEqual); err != nil {
				return err
			}
			val, err := p.parseAttrValue()
			if err != nil {
				return err
			}
			attrs[key.Lexeme] = val
		}
		p.advance() // '}'
	}

	if _, err := p.expect(TokenColon); err != nil {
		return err
	}
	if _, err := p.expect(TokenLeftParen); err != nil {
		return err
	}
	var operandTypes []ir.TypeInner
	for !p.check(TokenRightParen) {
		if len(operandTypes) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return err
			}
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		operandTypes = append(operandTypes, typ)
	}
	p.advance() // ')'

	var resultType ir.TypeInner
	if p.check(TokenArrow) {
		p.advance()
		resultType, err = p.parseType()
		if err != nil {
			return err
		}
	}

	if len(operandTypes) != len(operands) {
		return p.errorf(opTok.Pos(), "%s has %d operands but %d operand types",
			opTok.Lexeme, len(operands), len(operandTypes))
	}
	for i, typ := range operandTypes {
		if !ir.TypeEqual(typ, operands[i].Type) {
			return p.errorf(opTok.Pos(), "operand %d has type %s, signature says %s",
				i, ir.TypeString(operands[i].Type), ir.TypeString(typ))
		}
	}

	inner, err := p.buildInner(opTok, attrs, resultType)
	if err != nil {
		return err
	}

	op := p.fn.Append(inner, operands, resultType)
	if resultName != "" {
		if resultType == nil {
			return p.errorf(resultPos, "%s produces no result", opTok.Lexeme)
		}
		if _, dup := p.values[resultName]; dup {
			return p.errorf(resultPos, "duplicate value name %%%s", resultName)
		}
		p.values[resultName] = op
	} else if resultType != nil {
		return p.errorf(opTok.Pos(), "%s result must be named", opTok.Lexeme)
	}
	return nil
}

// buildInner maps an op mnemonic and its attribute dictionary to the
// operation kind.
func (p *Parser) buildInner(opTok Token, attrs map[string]attrValue, resultType ir.TypeInner) (ir.OpInner, error) {
	a := &attrReader{p: p, opTok: opTok, attrs: attrs}

	var inner ir.OpInner
	switch opTok.Lexeme {
	case "constant":
		bits, err := p.constantBits(opTok, attrs, resultType)
		if err != nil {
			return nil, err
		}
		inner = ir.Constant{Bits: bits}
	case "return":
		inner = ir.Return{}
	case "transfer_read":
		inner = ir.TransferRead{Permutation: a.ints("permutation"), Masked: a.optBools("masked")}
	case "transfer_write":
		inner = ir.TransferWrite{Permutation: a.ints("permutation"), Masked: a.optBools("masked")}
	case "load":
		inner = ir.Load{}
	case "store":
		inner = ir.Store{}
	case "broadcast":
		inner = ir.Broadcast{}
	case "extract":
		inner = ir.Extract{Position: a.ints("position")}
	case "insert":
		inner = ir.Insert{Position: a.ints("position")}
	case "extract_strided_slice":
		inner = ir.ExtractStridedSlice{Offsets: a.ints("offsets"), Sizes: a.ints("sizes"), Strides: a.ints("strides")}
	case "insert_strided_slice":
		inner = ir.InsertStridedSlice{Offsets: a.ints("offsets"), Strides: a.ints("strides")}
	case "extract_slices":
		inner = ir.ExtractSlices{Sizes: a.ints("sizes"), Strides: a.ints("strides")}
	case "insert_slices":
		inner = ir.InsertSlices{Sizes: a.ints("sizes"), Strides: a.ints("strides")}
	case "tuple":
		inner = ir.Tuple{}
	case "tuple_get":
		inner = ir.TupleGet{Index: int(a.intVal("index"))}
	case "shape_cast":
		inner = ir.ShapeCast{}
	case "bitcast":
		inner = ir.BitCast{}
	case "transpose":
		inner = ir.Transpose{Permutation: a.ints("permutation")}
	case "flat_transpose":
		inner = ir.FlatTranspose{Rows: a.intVal("rows"), Columns: a.intVal("columns")}
	case "matrix_multiply":
		inner = ir.Matmul{LHSRows: a.intVal("lhs_rows"), LHSColumns: a.intVal("lhs_columns"), RHSColumns: a.intVal("rhs_columns")}
	case "contract":
		inner = ir.Contract{
			Kind:        a.kind("kind"),
			LHSBatch:    a.optInts("lhs_batch"),
			RHSBatch:    a.optInts("rhs_batch"),
			LHSContract: a.ints("lhs_contract"),
			RHSContract: a.ints("rhs_contract"),
		}
	case "outerproduct":
		inner = ir.OuterProduct{Kind: a.kind("kind")}
	case "elementwise":
		inner = ir.Elementwise{Kind: a.kind("kind")}
	case "reduction":
		inner = ir.Reduction{Kind: a.kind("kind")}
	default:
		return nil, p.errorf(opTok.Pos(), "unknown operation %q", opTok.Lexeme)
	}
	if a.err != nil {
		return nil, a.err
	}
	return inner, nil
}

// constantBits interprets the value or bits attribute according to the
// declared result scalar type.
func (p *Parser) constantBits(opTok Token, attrs map[string]attrValue, resultType ir.TypeInner) (uint64, error) {
	st, ok := resultType.(ir.ScalarType)
	if !ok {
		return 0, p.errorf(opTok.Pos(), "constant requires a scalar result type")
	}
	if v, ok := attrs["bits"]; ok {
		if v.num == nil {
			return 0, p.errorf(v.pos, "bits must be an integer literal")
		}
		return uint64(*v.num), nil
	}
	v, ok := attrs["value"]
	if !ok {
		return 0, p.errorf(opTok.Pos(), "constant requires a value or bits attribute")
	}
	switch {
	case st.Kind == ir.ScalarFloat:
		var f float64
		switch {
		case v.fnum != nil:
			f = *v.fnum
		case v.num != nil:
			f = float64(*v.num)
		default:
			return 0, p.errorf(v.pos, "value must be numeric")
		}
		switch st.Width {
		case 32:
			return uint64(math.Float32bits(float32(f))), nil
		case 64:
			return math.Float64bits(f), nil
		default:
			return 0, p.errorf(v.pos, "f%d constants must use the bits attribute", st.Width)
		}
	default:
		if v.num == nil {
			return 0, p.errorf(v.pos, "value must be an integer literal")
		}
		return uint64(*v.num), nil
	}
}

// attrReader extracts typed attribute values, recording the first error.
type attrReader struct {
	p     *Parser
	opTok Token
	attrs map[string]attrValue
	err   error
}

func (a *attrReader) get(key string, required bool) (attrValue, bool) {
	v, ok := a.attrs[key]
	if !ok && required && a.err == nil {
		a.err = a.p.errorf(a.opTok.Pos(), "%s requires attribute %q", a.opTok.Lexeme, key)
	}
	return v, ok
}

func (a *attrReader) intVal(key string) int64 {
	v, ok := a.get(key, true)
	if !ok {
		return 0
	}
	if v.num == nil {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "%s must be an integer", key)
		}
		return 0
	}
	return *v.num
}

func (a *attrReader) ints(key string) []int64 {
	v, ok := a.get(key, true)
	if !ok {
		return nil
	}
	if !v.isInts {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "%s must be an integer list", key)
		}
		return nil
	}
	return v.ints
}

func (a *attrReader) optInts(key string) []int64 {
	v, ok := a.get(key, false)
	if !ok {
		return nil
	}
	if !v.isInts {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "%s must be an integer list", key)
		}
		return nil
	}
	return v.ints
}

func (a *attrReader) optBools(key string) []bool {
	v, ok := a.get(key, false)
	if !ok {
		return nil
	}
	if v.bools == nil && !(v.isInts && len(v.ints) == 0) {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "%s must be a boolean list", key)
		}
		return nil
	}
	return v.bools
}

// kind resolves a combining-kind keyword. An unrecognized keyword is a
// located parse error; no attribute is produced for it.
func (a *attrReader) kind(key string) *ir.CombiningKindAttr {
	v, ok := a.get(key, true)
	if !ok {
		return nil
	}
	if v.ident == "" {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "%s must be a combining-kind keyword", key)
		}
		return nil
	}
	kind, ok := ir.ParseCombiningKind(v.ident)
	if !ok {
		if a.err == nil {
			a.err = a.p.errorf(v.pos, "unrecognized combining kind %q", v.ident)
		}
		return nil
	}
	return ir.CombiningKindAttrOf(kind, a.p.module.Context)
}

func (p *Parser) parseAttrValue() (attrValue, error) {
	tok := p.peek()
	val := attrValue{pos: tok.Pos()}

	switch tok.Kind {
	case TokenIdent:
		p.advance()
		val.ident = tok.Lexeme
		return val, nil
	case TokenMinus, TokenIntLiteral, TokenFloatLiteral:
		num, fnum, isFloat, err := p.parseNumber()
		if err != nil {
			return val, err
		}
		if isFloat {
			val.fnum = &fnum
		} else {
			val.num = &num
		}
		return val, nil
	case TokenLeftBracket:
		p.advance()
		first := true
		for !p.check(TokenRightBracket) {
			if !first {
				if _, err := p.expect(TokenComma); err != nil {
					return val, err
				}
			}
			first = false
			elem := p.peek()
			if elem.Kind == TokenIdent && (elem.Lexeme == "true" || elem.Lexeme == "false") {
				p.advance()
				val.bools = append(val.bools, elem.Lexeme == "true")
			} else {
				num, _, isFloat, err := p.parseNumber()
				if err != nil {
					return val, err
				}
				if isFloat {
					return val, p.errorf(elem.Pos(), "float not allowed in attribute list")
				}
				val.ints = append(val.ints, num)
				val.isInts = true
			}
		}
		p.advance() // ']'
		if val.bools == nil && val.ints == nil {
			val.isInts = true
			val.ints = []int64{}
		}
		return val, nil
	default:
		return val, p.errorf(tok.Pos(), "expected an attribute value, found %s", tok.Kind)
	}
}

func (p *Parser) parseNumber() (int64, float64, bool, error) {
	neg := false
	if p.check(TokenMinus) {
		p.advance()
		neg = true
	}
	tok := p.peek()
	switch tok.Kind {
	case TokenIntLiteral:
		p.advance()
		var v int64
		var err error
		if strings.HasPrefix(tok.Lexeme, "0x") || strings.HasPrefix(tok.Lexeme, "0X") {
			var u uint64
			u, err = strconv.ParseUint(tok.Lexeme[2:], 16, 64)
			v = int64(u)
		} else {
			v, err = strconv.ParseInt(tok.Lexeme, 10, 64)
		}
		if err != nil {
			return 0, 0, false, p.errorf(tok.Pos(), "invalid integer literal %q", tok.Lexeme)
		}
		if neg {
			v = -v
		}
		return v, 0, false, nil
	case TokenFloatLiteral:
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return 0, 0, false, p.errorf(tok.Pos(), "invalid float literal %q", tok.Lexeme)
		}
		if neg {
			f = -f
		}
		return 0, f, true, nil
	default:
		return 0, 0, false, p.errorf(tok.Pos(), "expected a number, found %s", tok.Kind)
	}
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

func (p *Parser) parseType() (ir.TypeInner, error) {
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}

	switch tok.Lexeme {
	case "vector":
		shape, elem, err := p.parseShapedBody(tok)
		if err != nil {
			return nil, err
		}
		return p.module.Context.VectorOf(shape, elem), nil
	case "memref":
		shape, elem, err := p.parseShapedBody(tok)
		if err != nil {
			return nil, err
		}
		return p.module.Context.MemRefOf(shape, elem), nil
	case "tuple":
		if _, err := p.expect(TokenLess); err != nil {
			return nil, err
		}
		var elems []ir.TypeInner
		for !p.check(TokenGreater) {
			if len(elems) > 0 {
				if _, err := p.expect(TokenComma); err != nil {
					return nil, err
				}
			}
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		p.advance() // '>'
		return p.module.Context.TupleOf(elems), nil
	default:
		st, ok := scalarByName(tok.Lexeme)
		if !ok {
			return nil, p.errorf(tok.Pos(), "unknown type %q", tok.Lexeme)
		}
		return p.module.Context.Intern(st), nil
	}
}

// parseShapedBody parses the <4x4xf32> body of a vector or memref type.
// The lexer splits the shape into adjacent integer and identifier
// tokens; their lexemes are rejoined and split on 'x'.
func (p *Parser) parseShapedBody(typeTok Token) ([]int64, ir.ScalarType, error) {
	if _, err := p.expect(TokenLess); err != nil {
		return nil, ir.ScalarType{}, err
	}
	body := ""
	for !p.check(TokenGreater) {
		tok := p.advance()
		if tok.Kind != TokenIntLiteral && tok.Kind != TokenIdent {
			return nil, ir.ScalarType{}, p.errorf(tok.Pos(), "unexpected %s in %s shape", tok.Kind, typeTok.Lexeme)
		}
		body += tok.Lexeme
	}
	p.advance() // '>'

	parts := strings.Split(body, "x")
	elem, ok := scalarByName(parts[len(parts)-1])
	if !ok {
		return nil, ir.ScalarType{}, p.errorf(typeTok.Pos(), "unknown element type %q", parts[len(parts)-1])
	}
	shape := make([]int64, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		d, err := strconv.ParseInt(part, 10, 64)
		if err != nil || d <= 0 {
			return nil, ir.ScalarType{}, p.errorf(typeTok.Pos(), "invalid dimension %q", part)
		}
		shape = append(shape, d)
	}
	return shape, elem, nil
}

func scalarByName(name string) (ir.ScalarType, bool) {
	switch name {
	case "f16":
		return ir.F16, true
	case "f32":
		return ir.F32, true
	case "f64":
		return ir.F64, true
	case "i1":
		return ir.I1, true
	case "i32":
		return ir.I32, true
	case "i64":
		return ir.I64, true
	default:
		return ir.ScalarType{}, false
	}
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.current]
	if tok.Kind != TokenEOF {
		p.current++
	}
	return tok
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorf(tok.Pos(), "expected %s, found %s", kind, tok.Kind)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(keyword string) error {
	tok := p.peek()
	if tok.Kind != TokenIdent || tok.Lexeme != keyword {
		return p.errorf(tok.Pos(), "expected %q", keyword)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(pos Pos, format string, args ...interface{}) *ParseError {
	return newErrorf(pos, p.source, format, args...)
}
