package asm

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
)

// Block keywords. They cannot be used as sub, label or variable names.
const (
	KeywordSub  = "sub"
	KeywordVar  = "var"
	KeywordAnim = "anim"
	KeywordEcli = "ecli"
	KeywordData = "data"
)

var rawOpcodePattern = regexp.MustCompile(`^ins_(\d+)$`)

func isKeyword(s string) bool {
	switch s {
	case KeywordSub, KeywordVar, KeywordAnim, KeywordEcli, KeywordData:
		return true
	}
	return false
}

// Parse reads the text form into a new Program. On error the partially
// built Program is freed and nil is returned.
func Parse(r io.Reader, d *Dialect, maps *eclmap.Set) (*ir.Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	p := &parser{lex: newLexer(string(src)), d: d, maps: maps, prog: ir.NewProgram()}
	if err := p.program(); err != nil {
		p.prog.Free()
		return nil, err
	}
	return p.prog, nil
}

type parser struct {
	lex  *lexer
	d    *Dialect
	maps *eclmap.Set
	prog *ir.Program

	tok    token
	peeked bool

	// per-sub state
	sub    *ir.Sub
	offset uint32
	time   uint32
	rank   uint32
	refs   []token // label references to check at the end of the sub
}

func (p *parser) peek() (token, error) {
	if !p.peeked {
		t, err := p.lex.next()
		if err != nil {
			return t, err
		}
		p.tok = t
		p.peeked = true
	}
	return p.tok, nil
}

func (p *parser) next() (token, error) {
	t, err := p.peek()
	p.peeked = false
	return t, err
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Col: t.col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(punct string) (token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if !t.is(punct) {
		return t, p.errorf(t, "expected %q, got %s", punct, t.describe())
	}
	return t, nil
}

// accept consumes punct if it is next.
func (p *parser) accept(punct string) (bool, error) {
	t, err := p.peek()
	if err != nil {
		return false, err
	}
	if t.is(punct) {
		p.peeked = false
		return true, nil
	}
	return false, nil
}

func (p *parser) program() error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.kind == tokEOF {
			return nil
		}
		if t.kind != tokIdent {
			return p.errorf(t, "expected a block, got %s", t.describe())
		}
		switch t.text {
		case KeywordSub:
			err = p.subBlock()
		case KeywordAnim, KeywordEcli:
			if !p.d.Includes {
				return p.errorf(t, "%s blocks are not supported by %s", t.text, p.d.Family)
			}
			err = p.nameBlock(t.text)
		case KeywordData:
			if !p.d.Data {
				return p.errorf(t, "data blocks are not supported by %s", p.d.Family)
			}
			err = p.dataBlock()
		default:
			return p.errorf(t, "unknown block %q", t.text)
		}
		if err != nil {
			return err
		}
	}
}

// nameBlock parses `anim { "a"; "b"; }`.
func (p *parser) nameBlock(kind string) error {
	if _, err := p.expect("{"); err != nil {
		return err
	}
	for {
		if ok, err := p.accept("}"); err != nil || ok {
			return err
		}
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.kind != tokString {
			return p.errorf(t, "expected a file name, got %s", t.describe())
		}
		if kind == KeywordAnim {
			p.prog.AnimNames = append(p.prog.AnimNames, t.s)
		} else {
			p.prog.EcliNames = append(p.prog.EcliNames, t.s)
		}
		if _, err := p.expect(";"); err != nil {
			return err
		}
	}
}

// dataBlock parses `data { #[..]; }`.
func (p *parser) dataBlock() error {
	if _, err := p.expect("{"); err != nil {
		return err
	}
	for {
		if ok, err := p.accept("}"); err != nil || ok {
			return err
		}
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.kind != tokBytes {
			return p.errorf(t, "expected a byte array, got %s", t.describe())
		}
		p.prog.LocalData = append(p.prog.LocalData, &ir.LocalData{Data: t.b})
		if _, err := p.expect(";"); err != nil {
			return err
		}
	}
}

func (p *parser) subBlock() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	var name string
	switch {
	case t.kind == tokIdent && !isKeyword(t.text):
		name = t.text
	case t.kind == tokString:
		name = t.s
	default:
		return p.errorf(t, "expected a sub name, got %s", t.describe())
	}

	p.sub = ir.NewSub(name)
	p.offset, p.time, p.rank = 0, 0, p.d.Rank.Full()
	p.refs = nil
	if err := p.prog.AddSub(p.sub); err != nil {
		p.sub.Free()
		return p.errorf(t, "%v", err)
	}
	if _, err := p.expect("{"); err != nil {
		return err
	}
	for {
		if ok, err := p.accept("}"); err != nil {
			return err
		} else if ok {
			break
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
	for _, ref := range p.refs {
		if _, ok := p.sub.LabelOffset(ref.text); !ok {
			return p.errorf(ref, "undefined label %q in sub %s", ref.text, p.sub.Name)
		}
	}
	return nil
}

func (p *parser) statement() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	switch {
	case t.kind == tokIdent && t.text == KeywordVar:
		return p.varDecl()
	case t.kind == tokInt:
		return p.timeMarker(t, false)
	case t.is("+"):
		n, err := p.next()
		if err != nil {
			return err
		}
		if n.kind != tokInt {
			return p.errorf(n, "expected a relative time, got %s", n.describe())
		}
		return p.timeMarker(n, true)
	case t.is("!"):
		return p.rankMarker()
	case t.kind == tokIdent:
		n, err := p.peek()
		if err != nil {
			return err
		}
		if n.is(":") {
			p.peeked = false
			return p.label(t)
		}
		return p.instruction(t)
	}
	return p.errorf(t, "expected a statement, got %s", t.describe())
}

func (p *parser) varDecl() error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.is(";") {
			return nil
		}
		if t.kind != tokIdent || isKeyword(t.text) {
			return p.errorf(t, "expected a variable name, got %s", t.describe())
		}
		if err := p.sub.AddVar(t.text); err != nil {
			return p.errorf(t, "%v", err)
		}
	}
}

func (p *parser) timeMarker(t token, relative bool) error {
	if _, err := p.expect(":"); err != nil {
		return err
	}
	v := t.i
	if relative {
		v += int64(p.time)
	}
	if v < 0 || v > math.MaxUint32 {
		return p.errorf(t, "time %d out of range", v)
	}
	p.time = uint32(v)
	p.sub.Append(ir.NewTime(p.time))
	return nil
}

func (p *parser) rankMarker() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	var rank uint32
	switch {
	case t.is("*"):
		rank = p.d.Rank.Full()
	case t.kind == tokInt:
		if t.i < 0 || t.i > int64(p.d.Rank.Max()) {
			return p.errorf(t, "rank %s out of range", t.text)
		}
		rank = uint32(t.i)
	case t.kind == tokIdent:
		rank, err = p.d.Rank.Parse(t.text)
		if err != nil {
			return p.errorf(t, "%v", err)
		}
	default:
		return p.errorf(t, "expected a rank, got %s", t.describe())
	}
	p.rank = rank
	p.sub.Append(ir.NewRank(rank))
	return nil
}

func (p *parser) label(t token) error {
	if isKeyword(t.text) {
		return p.errorf(t, "%q cannot be used as a label", t.text)
	}
	if err := p.sub.AddLabel(t.text, p.offset); err != nil {
		return p.errorf(t, "%v", err)
	}
	p.sub.Append(ir.NewLabel(p.offset))
	return nil
}

func (p *parser) opcode(t token) (int, error) {
	if m := rawOpcodePattern.FindStringSubmatch(t.text); m != nil {
		id, err := strconv.Atoi(m[1])
		if err != nil || id > p.d.MaxOpcode {
			return 0, p.errorf(t, "opcode %s out of range", m[1])
		}
		return id, nil
	}
	if id, ok := p.maps.Opcode(t.text); ok {
		if id < 0 || id > p.d.MaxOpcode {
			return 0, p.errorf(t, "opcode %d of %q out of range", id, t.text)
		}
		return id, nil
	}
	return 0, p.errorf(t, "unknown instruction %q", t.text)
}

func (p *parser) instruction(t token) error {
	id, err := p.opcode(t)
	if err != nil {
		return err
	}
	op := ir.NewOp(id)
	op.Time, op.Rank, op.Offset = p.time, p.rank, p.offset
	p.sub.Append(op)

	raw, err := p.accept("<")
	if err != nil {
		return err
	}
	if raw {
		if err := p.rawHeader(op); err != nil {
			return err
		}
	}

	if _, err := p.expect("("); err != nil {
		return err
	}
	if ok, err := p.accept(")"); err != nil {
		return err
	} else if !ok {
		for {
			prm, err := p.param()
			if err != nil {
				return err
			}
			op.AddParam(prm)
			if ok, err := p.accept(","); err != nil {
				return err
			} else if !ok {
				break
			}
		}
		if _, err := p.expect(")"); err != nil {
			return err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}

	if err := p.check(t, op); err != nil {
		return err
	}
	size, err := p.d.Size(op)
	if err != nil {
		return p.errorf(t, "%v", err)
	}
	p.offset += size
	return nil
}

// rawHeader parses the `<count, mask>` of an undecoded instruction.
func (p *parser) rawHeader(op *ir.Op) error {
	count, err := p.next()
	if err != nil {
		return err
	}
	if count.kind != tokInt || count.i < 0 || count.i > 0xff {
		return p.errorf(count, "expected a parameter count, got %s", count.describe())
	}
	if _, err := p.expect(","); err != nil {
		return err
	}
	mask, err := p.next()
	if err != nil {
		return err
	}
	if mask.kind != tokInt || mask.i < 0 || mask.i > 0xffff {
		return p.errorf(mask, "expected a parameter mask, got %s", mask.describe())
	}
	if _, err := p.expect(">"); err != nil {
		return err
	}
	op.Raw = &ir.RawHeader{Count: int(count.i), Mask: uint32(mask.i)}
	return nil
}

// check validates op's parameters against the opcode signature.
func (p *parser) check(t token, op *ir.Op) error {
	if op.Raw != nil {
		if len(op.Params) != 1 || op.Params[0].Kind() != ir.KindBytes || op.Params[0].Var {
			return p.errorf(t, "undecoded instruction takes exactly one byte array")
		}
		return nil
	}
	sig, ok := p.d.Codec.Sigs.Lookup(op.ID)
	if !ok {
		return nil
	}
	if len(op.Params) != len(sig) {
		return p.errorf(t, "%s takes %d parameters, got %d", t.text, len(sig), len(op.Params))
	}
	for i, ch := range sig {
		prm := op.Params[i]
		switch {
		case ch == backend.SigOffset && prm.Label:
		case prm.Label:
			return p.errorf(t, "parameter %d of %s cannot be a label", i+1, t.text)
		case ch == backend.SigFloat && prm.Kind() == ir.KindInt && !prm.Var:
			f := ir.NewValueParam(ir.Float(float32(prm.Int())))
			f.IsExpression = prm.IsExpression
			op.ReplaceParam(i, f)
		case prm.Kind() != sigKind(ch):
			return p.errorf(t, "parameter %d of %s must be %s, got %s", i+1, t.text, sigKind(ch), prm.Kind())
		}
	}
	return nil
}

func sigKind(ch rune) ir.Kind {
	switch ch {
	case backend.SigFloat:
		return ir.KindFloat
	case backend.SigString:
		return ir.KindString
	case backend.SigRest:
		return ir.KindBytes
	}
	return ir.KindInt
}

func (p *parser) param() (*ir.Param, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case t.kind == tokInt:
		return ir.NewValueParam(ir.Int(t.i)), nil
	case t.kind == tokFloat:
		return ir.NewValueParam(ir.Float(t.f)), nil
	case t.kind == tokString:
		return ir.NewValueParam(ir.String(t.s)), nil
	case t.kind == tokBytes:
		return ir.NewValueParam(ir.Bytes(t.b)), nil
	case t.kind == tokIntVar, t.kind == tokFloatVar:
		return p.variable(t)
	case t.kind == tokIdent:
		if isKeyword(t.text) {
			return nil, p.errorf(t, "%q cannot be used as a label", t.text)
		}
		p.refs = append(p.refs, t)
		return ir.NewLabelRef(t.text), nil
	case t.is("-"):
		n, err := p.next()
		if err != nil {
			return nil, err
		}
		switch n.kind {
		case tokInt:
			return ir.NewValueParam(ir.Int(-n.i)), nil
		case tokFloat:
			return ir.NewValueParam(ir.Float(-n.f)), nil
		}
		return nil, p.errorf(n, "expected a number after '-', got %s", n.describe())
	case t.is("("):
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		prm := ir.NewValueParam(v.value())
		prm.IsExpression = true
		return prm, nil
	}
	return nil, p.errorf(t, "expected a parameter, got %s", t.describe())
}

// variable resolves $name and %name through the sub's locals, then the
// global name table. Numeric forms are taken as written.
func (p *parser) variable(t token) (*ir.Param, error) {
	var n int64
	if v, err := strconv.ParseInt(t.s, 10, 32); err == nil {
		n = v
	} else if i, ok := p.sub.VarIndex(t.s); ok {
		n = int64(i) * 4
	} else if g, ok := p.maps.Global(t.s); ok {
		n = int64(g)
	} else {
		return nil, p.errorf(t, "unknown variable %q", t.text)
	}

	var prm *ir.Param
	if t.kind == tokFloatVar {
		prm = ir.NewValueParam(ir.Float(float32(n)))
	} else {
		prm = ir.NewValueParam(ir.Int(n))
	}
	prm.Var = true
	return prm, nil
}
