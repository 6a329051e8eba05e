// Package resolve implements the name resolver (§4.4): it walks a
// generic ast.Node tree (with input variables already marked) against a
// registry and produces a reference-bearing tree (FAST) whose Variable
// and Call leaves have been replaced by typed, slot-identified handles.
//
// Kind and Slot are defined here, not in internal/objects, because the
// FAST must exist independently of any particular registry
// implementation: internal/objects' concrete object types hold a
// resolve.Node (their parsed RHS) and so must not import back up to a
// package that depends on them. Lookup is the minimal registry surface
// resolution needs; internal/world.World implements it.
package resolve

import (
	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Kind discriminates which object variant a Slot addresses.
type Kind int

const (
	UnknownKind Kind = iota - 1
	ConstantKind
	UserFunctionKind
	SequenceKind
	DataSeriesKind
	BuiltinFunctionKind
)

func (k Kind) IsCallable() bool { return k != ConstantKind }

// Slot is the stable, non-owning identity of an object for the lifetime
// of the registry (design note §9: "stable slot indices plus a
// non-owning handle ... arena + index replaces pointer chasing").
type Slot struct {
	Kind  Kind
	Index int
}

// Node is the closed sum type of the reference-bearing tree. Shape
// mirrors ast.Node exactly except Variable/Call leaves now carry a Slot.
type Node interface {
	Span() token.Substring
	isNode()
}

type Number struct {
	SpanV token.Substring
	Value float64
}

func (n *Number) Span() token.Substring { return n.SpanV }
func (*Number) isNode()                 {}

type InputVariable struct {
	SpanV token.Substring
	Index int
}

func (iv *InputVariable) Span() token.Substring { return iv.SpanV }
func (*InputVariable) isNode()                  {}

// ConstRef is a resolved reference to a GlobalConstant.
type ConstRef struct {
	SpanV token.Substring
	Name  string
	Slot  Slot
}

func (c *ConstRef) Span() token.Substring { return c.SpanV }
func (*ConstRef) isNode()                 {}

// Call is a resolved reference to a callable object (BuiltinFunction,
// UserFunction, Sequence, or DataSeries); Kind discriminates evaluation
// behavior (§4.6).
type Call struct {
	SpanV token.Substring
	Name  string
	Slot  Slot
	Kind  Kind
	Args  []Node
}

func (c *Call) Span() token.Substring { return c.SpanV }
func (*Call) isNode()                 {}

type BinOp struct {
	SpanV token.Substring
	Op    byte
	Left  Node
	Right Node
}

func (b *BinOp) Span() token.Substring { return b.SpanV }
func (*BinOp) isNode()                 {}

type UnOp struct {
	SpanV   token.Substring
	Op      byte
	Operand Node
}

func (u *UnOp) Span() token.Substring { return u.SpanV }
func (*UnOp) isNode()                 {}

// Lookup is the registry surface the resolver needs. It is satisfied by
// *internal/world.World.
type Lookup interface {
	// Find reports whether name is currently bound, and if so to what
	// kind/slot/arity. arity is meaningless (0) for ConstantKind.
	Find(name string) (slot Slot, kind Kind, arity int, ok bool)
	// IsErrored reports whether the object at slot currently holds an
	// error from its own last (re)parse.
	IsErrored(slot Slot) bool
	// RecordDependency registers that dependent's parsed form mentions
	// name at pos, regardless of whether resolution of name succeeds (kind
	// is UnknownKind when it doesn't) — so that later binding name heals
	// dependent without an explicit reparse.
	RecordDependency(name string, dependent Slot, kind Kind, pos token.Substring)
}

// Resolve produces the FAST for node, resolving names against lookup and
// recording direct dependencies of `dependent` as a side effect.
func Resolve(node ast.Node, dependent Slot, lookup Lookup, source string) (Node, *zerr.Error) {
	switch n := node.(type) {
	case *ast.Number:
		return &Number{SpanV: n.SpanV, Value: n.Value}, nil

	case *ast.InputVariable:
		return &InputVariable{SpanV: n.SpanV, Index: n.Index}, nil

	case *ast.Variable:
		slot, kind, _, ok := lookup.Find(n.Name)
		if !ok {
			lookup.RecordDependency(n.Name, dependent, UnknownKind, n.SpanV)
			return nil, zerr.New(zerr.UndefinedVariable, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		lookup.RecordDependency(n.Name, dependent, kind, n.SpanV)
		if kind != ConstantKind {
			return nil, zerr.New(zerr.WrongObjectType, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		if lookup.IsErrored(slot) {
			return nil, zerr.New(zerr.ObjectInvalidState, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		return &ConstRef{SpanV: n.SpanV, Name: n.Name, Slot: slot}, nil

	case *ast.Call:
		slot, kind, arity, ok := lookup.Find(n.Name)
		if !ok {
			lookup.RecordDependency(n.Name, dependent, UnknownKind, n.SpanV)
			return nil, zerr.New(zerr.UndefinedFunction, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		lookup.RecordDependency(n.Name, dependent, kind, n.SpanV)
		if kind == ConstantKind {
			return nil, zerr.New(zerr.WrongObjectType, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		if arity != len(n.Args) {
			return nil, zerr.New(zerr.ArgCountMismatch, zerr.PhaseResolve, spanOf(n.ArgsSpan), source, n.Name)
		}
		args := make([]Node, len(n.Args))
		for i, a := range n.Args {
			resolved, err := Resolve(a, dependent, lookup, source)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		if lookup.IsErrored(slot) {
			return nil, zerr.New(zerr.ObjectInvalidState, zerr.PhaseResolve, spanOf(n.SpanV), source, n.Name)
		}
		return &Call{SpanV: n.SpanV, Name: n.Name, Slot: slot, Kind: kind, Args: args}, nil

	case *ast.BinOp:
		left, err := Resolve(n.Left, dependent, lookup, source)
		if err != nil {
			return nil, err
		}
		right, err := Resolve(n.Right, dependent, lookup, source)
		if err != nil {
			return nil, err
		}
		return &BinOp{SpanV: n.SpanV, Op: n.Op, Left: left, Right: right}, nil

	case *ast.UnOp:
		operand, err := Resolve(n.Operand, dependent, lookup, source)
		if err != nil {
			return nil, err
		}
		return &UnOp{SpanV: n.SpanV, Op: n.Op, Operand: operand}, nil

	default:
		return nil, zerr.New(zerr.Unknown, zerr.PhaseResolve, zerr.Span{}, source, "unrecognized AST node")
	}
}

func spanOf(s token.Substring) zerr.Span {
	return zerr.Span{Begin: s.Begin, Size: s.Size}
}
