// Package rpn linearizes a FAST into a postfix instruction stream and
// runs it on a stack machine (§4.5, §4.6's RPN evaluator), as an
// alternative to walking the tree recursively. Semantics are identical
// to internal/eval's tree evaluator for the object the stream was built
// from; a callee reached through a UserFunction/Sequence/DataSeries call
// is evaluated through its own canonical FAST (internal/eval.EvalAt) since
// only a single object's own top-level body is ever linearized at a
// time — recursing into another object's RPN stream would require
// storing and threading a second, independently-sized stack per callee
// for no semantic benefit.
package rpn

import (
	"github.com/mcgru/zecalc/internal/eval"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Op discriminates one instruction in the linearized stream.
type Op int

const (
	PushNumber Op = iota
	PushInput
	PushConst
	ApplyBinOp
	ApplyUnOp
	ApplyCall
)

// Instr is one marker of the postfix stream. The marker carries the
// resolved reference directly (slot, kind, arity) so evaluation never
// re-looks-up a name (§4.5).
type Instr struct {
	Op    Op
	Span  token.Substring
	Num   float64      // PushNumber
	Index int          // PushInput
	Slot  objects.Slot // PushConst, ApplyCall
	Byte  byte         // ApplyBinOp, ApplyUnOp
	Kind  resolve.Kind // ApplyCall
	Arity int          // ApplyCall
}

// Program is a linearized, directly-executable instruction stream.
type Program []Instr

// Linearize performs the postorder walk of §4.5: each operand's stream
// first, then the node's own marker.
func Linearize(node resolve.Node) Program {
	var prog Program
	emit(node, &prog)
	return prog
}

func emit(node resolve.Node, prog *Program) {
	switch n := node.(type) {
	case *resolve.Number:
		*prog = append(*prog, Instr{Op: PushNumber, Span: n.SpanV, Num: n.Value})
	case *resolve.InputVariable:
		*prog = append(*prog, Instr{Op: PushInput, Span: n.SpanV, Index: n.Index})
	case *resolve.ConstRef:
		*prog = append(*prog, Instr{Op: PushConst, Span: n.SpanV, Slot: n.Slot})
	case *resolve.UnOp:
		emit(n.Operand, prog)
		*prog = append(*prog, Instr{Op: ApplyUnOp, Span: n.SpanV, Byte: n.Op})
	case *resolve.BinOp:
		emit(n.Left, prog)
		emit(n.Right, prog)
		*prog = append(*prog, Instr{Op: ApplyBinOp, Span: n.SpanV, Byte: n.Op})
	case *resolve.Call:
		for _, a := range n.Args {
			emit(a, prog)
		}
		*prog = append(*prog, Instr{Op: ApplyCall, Span: n.SpanV, Slot: n.Slot, Kind: n.Kind, Arity: len(n.Args)})
	}
}

// Run executes prog against the bound input-variable vector args,
// starting at recursion depth 0. Final stack must hold exactly one
// value; any other count is Unknown (malformed program).
func Run(prog Program, args []float64, store eval.Store, maxDepth int, source string) (float64, *zerr.Error) {
	return runDepth(prog, args, store, 0, maxDepth, source)
}

func runDepth(prog Program, args []float64, store eval.Store, depth, maxDepth int, source string) (float64, *zerr.Error) {
	var stack []float64
	pop := func() float64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, instr := range prog {
		switch instr.Op {
		case PushNumber:
			stack = append(stack, instr.Num)

		case PushInput:
			if instr.Index < 0 || instr.Index >= len(args) {
				return 0, zerr.New(zerr.ArgCountMismatch, zerr.PhaseEval, spanOf(instr.Span), source)
			}
			stack = append(stack, args[instr.Index])

		case PushConst:
			c, ok := store.Constant(instr.Slot)
			if !ok {
				return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, spanOf(instr.Span), source)
			}
			stack = append(stack, c.Value)

		case ApplyUnOp:
			v := pop()
			switch instr.Byte {
			case '+':
				stack = append(stack, v)
			case '-':
				stack = append(stack, -v)
			default:
				return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, spanOf(instr.Span), source, "unknown unary operator")
			}

		case ApplyBinOp:
			b := pop()
			a := pop()
			stack = append(stack, eval.BinOp(instr.Byte, a, b))

		case ApplyCall:
			if len(stack) < instr.Arity {
				return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, spanOf(instr.Span), source, "malformed instruction stream")
			}
			argv := append([]float64(nil), stack[len(stack)-instr.Arity:]...)
			stack = stack[:len(stack)-instr.Arity]

			v, err := runCall(instr, argv, store, depth, maxDepth, source)
			if err != nil {
				return 0, err
			}
			stack = append(stack, v)
		}
	}

	if len(stack) != 1 {
		return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, zerr.Span{}, source, "malformed instruction stream")
	}
	return stack[0], nil
}

func runCall(instr Instr, argv []float64, store eval.Store, depth, maxDepth int, source string) (float64, *zerr.Error) {
	switch instr.Kind {
	case resolve.BuiltinFunctionKind:
		fn, ok := store.Builtin(instr.Slot)
		if !ok {
			return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, spanOf(instr.Span), source)
		}
		return fn.Native(argv), nil

	case resolve.UserFunctionKind:
		if depth+1 > maxDepth {
			return 0, zerr.New(zerr.RecursionDepthOverflow, zerr.PhaseEval, spanOf(instr.Span), source)
		}
		f, ok := store.Function(instr.Slot)
		if !ok || f.ErrV != nil {
			return 0, zerr.New(zerr.ObjectInvalidState, zerr.PhaseEval, spanOf(instr.Span), source)
		}
		return eval.EvalAt(f.RHS, argv, store, depth+1, maxDepth, source)

	case resolve.SequenceKind, resolve.DataSeriesKind:
		if depth+1 > maxDepth {
			return 0, zerr.New(zerr.RecursionDepthOverflow, zerr.PhaseEval, spanOf(instr.Span), source)
		}
		// Sequence/DataSeries index-dispatch lives in internal/eval; build
		// a single-node Call and delegate rather than duplicating it.
		call := &resolve.Call{SpanV: instr.Span, Slot: instr.Slot, Kind: instr.Kind, Args: []resolve.Node{&resolve.Number{Value: argv[0]}}}
		return eval.EvalAt(call, nil, store, depth, maxDepth, source)

	default:
		return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, spanOf(instr.Span), source, "unrecognized call kind")
	}
}

func spanOf(s token.Substring) zerr.Span {
	return zerr.Span{Begin: s.Begin, Size: s.Size}
}
