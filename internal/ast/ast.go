// Package ast defines the generic, name-keyed abstract syntax tree
// produced by internal/parser (§2.2, §3). Every node carries its own
// source substring so errors raised at any later stage — resolution,
// evaluation — can still point back at the exact source text.
//
// Node kinds collapse the distilled spec's per-arity operator templates
// into two variants, per the design note in §9: a constant arity
// collapses to a single Call node whose arity is checked once at
// resolution time, and the two operator fixities collapse into BinOp and
// UnOp rather than one node type per operator.
package ast

import "github.com/mcgru/zecalc/internal/token"

// Node is the closed sum type of generic AST nodes. It is implemented
// only by the types in this file; exhaustive type switches are the
// intended dispatch mechanism (no visitor indirection is needed for a
// tree this shallow).
type Node interface {
	Span() token.Substring
	isNode()
}

// Number is a literal floating-point value.
type Number struct {
	SpanV token.Substring
	Value float64
}

func (n *Number) Span() token.Substring { return n.SpanV }
func (*Number) isNode()                 {}

// Variable is an unresolved free identifier, e.g. in `x + c` before `c`
// is known to be a global constant.
type Variable struct {
	SpanV token.Substring
	Name  string
}

func (v *Variable) Span() token.Substring { return v.SpanV }
func (*Variable) isNode()                 {}

// InputVariable is a free identifier that the input-variable marker
// (§4.3) has bound to a positional formal parameter; it is never
// produced directly by the AST builder.
type InputVariable struct {
	SpanV token.Substring
	Name  string // retained for diagnostics; not consulted by evaluation
	Index int
}

func (iv *InputVariable) Span() token.Substring { return iv.SpanV }
func (*InputVariable) isNode()                  {}

// Call is a function application whose name resolution is deferred to
// internal/resolve. ArgsSpan covers just the argument list, for
// ArgCountMismatch errors that must point at "1, 2, 3" rather than the
// whole call.
type Call struct {
	SpanV    token.Substring
	Name     string
	ArgsSpan token.Substring
	Args     []Node
}

func (c *Call) Span() token.Substring { return c.SpanV }
func (*Call) isNode()                 {}

// BinOp is a binary operator application; Op is one of '=','+','-','*','/','^'.
type BinOp struct {
	SpanV token.Substring
	Op    byte
	Left  Node
	Right Node
}

func (b *BinOp) Span() token.Substring { return b.SpanV }
func (*BinOp) isNode()                 {}

// UnOp is a unary-prefix operator application; Op is '+' or '-'.
type UnOp struct {
	SpanV   token.Substring
	Op      byte
	Operand Node
}

func (u *UnOp) Span() token.Substring { return u.SpanV }
func (*UnOp) isNode()                 {}
