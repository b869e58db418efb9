package asm

import (
	"math"

	"github.com/roach88/thecl/internal/ir"
)

// constant is the result of folding a parenthesised expression. Integer
// operands stay integers until a float operand is seen.
type constant struct {
	isFloat bool
	i       int64
	f       float64
}

func (c constant) float() float64 {
	if c.isFloat {
		return c.f
	}
	return float64(c.i)
}

func (c constant) value() ir.Value {
	if c.isFloat {
		return ir.Float(float32(c.f))
	}
	return ir.Int(c.i)
}

// expr := term (('+' | '-') term)*
func (p *parser) expr() (constant, error) {
	left, err := p.term()
	if err != nil {
		return left, err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return left, err
		}
		if !t.is("+") && !t.is("-") {
			return left, nil
		}
		p.peeked = false
		right, err := p.term()
		if err != nil {
			return left, err
		}
		if left, err = p.fold(t, left, right); err != nil {
			return left, err
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) term() (constant, error) {
	left, err := p.unary()
	if err != nil {
		return left, err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return left, err
		}
		if !t.is("*") && !t.is("/") {
			return left, nil
		}
		p.peeked = false
		right, err := p.unary()
		if err != nil {
			return left, err
		}
		if left, err = p.fold(t, left, right); err != nil {
			return left, err
		}
	}
}

// unary := '-' unary | primary
func (p *parser) unary() (constant, error) {
	if ok, err := p.accept("-"); err != nil {
		return constant{}, err
	} else if ok {
		c, err := p.unary()
		c.i, c.f = -c.i, -c.f
		return c, err
	}
	return p.primary()
}

// primary := int | float | '(' expr ')'
func (p *parser) primary() (constant, error) {
	t, err := p.next()
	if err != nil {
		return constant{}, err
	}
	switch {
	case t.kind == tokInt:
		return constant{i: t.i}, nil
	case t.kind == tokFloat:
		return constant{isFloat: true, f: float64(t.f)}, nil
	case t.is("("):
		c, err := p.expr()
		if err != nil {
			return c, err
		}
		_, err = p.expect(")")
		return c, err
	}
	return constant{}, p.errorf(t, "expected a constant, got %s", t.describe())
}

func (p *parser) fold(op token, a, b constant) (constant, error) {
	if a.isFloat || b.isFloat {
		x, y := a.float(), b.float()
		var r float64
		switch op.text {
		case "+":
			r = x + y
		case "-":
			r = x - y
		case "*":
			r = x * y
		case "/":
			if y == 0 {
				return a, p.errorf(op, "division by zero")
			}
			r = x / y
		}
		if math.IsInf(float64(float32(r)), 0) || math.IsNaN(r) {
			return a, p.errorf(op, "float overflow")
		}
		return constant{isFloat: true, f: r}, nil
	}

	var r int64
	switch op.text {
	case "+":
		r = a.i + b.i
	case "-":
		r = a.i - b.i
	case "*":
		r = a.i * b.i
	case "/":
		if b.i == 0 {
			return a, p.errorf(op, "division by zero")
		}
		r = a.i / b.i
	}
	return constant{i: r}, nil
}
