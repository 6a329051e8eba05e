// Package eval walks a resolved FAST (internal/resolve.Node) to a
// float64, per §4.6-4.9. It is the one package allowed to recurse into
// other objects' bodies, so it alone carries the recursion-depth budget
// (§4.6, §5) that keeps a cyclic user-function or sequence definition
// from diverging: every call into a UserFunction, Sequence, or
// DataSeries body increments depth, and the walk fails closed with
// RecursionDepthOverflow rather than overflowing the Go call stack.
package eval

import (
	"math"

	"github.com/mcgru/zecalc/internal/cache"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Store is the minimal registry surface eval needs to dereference a
// resolved Slot into the object it addresses. *internal/world.World
// implements it directly via its slotted storage.
type Store interface {
	Constant(slot objects.Slot) (*objects.GlobalConstant, bool)
	Function(slot objects.Slot) (*objects.UserFunction, bool)
	Sequence(slot objects.Slot) (*objects.Sequence, bool)
	DataSeries(slot objects.Slot) (*objects.DataSeries, bool)
	Builtin(slot objects.Slot) (*objects.BuiltinFunction, bool)
}

// Eval evaluates node against the bound input-variable vector args,
// starting at recursion depth 0 with budget maxDepth (§5, default 100).
// source is carried through only for error messages.
func Eval(node resolve.Node, args []float64, store Store, maxDepth int, source string) (float64, *zerr.Error) {
	return EvalAt(node, args, store, 0, maxDepth, source)
}

// EvalAt is Eval starting from an already-accumulated recursion depth; it
// exists so internal/rpn can hand a callee's body back to the tree
// evaluator without resetting the shared recursion budget.
func EvalAt(node resolve.Node, args []float64, store Store, depth, maxDepth int, source string) (float64, *zerr.Error) {
	return evalDepth(node, args, store, depth, maxDepth, source)
}

func evalDepth(node resolve.Node, args []float64, store Store, depth, maxDepth int, source string) (float64, *zerr.Error) {
	switch n := node.(type) {
	case *resolve.Number:
		return n.Value, nil

	case *resolve.InputVariable:
		if n.Index < 0 || n.Index >= len(args) {
			return 0, zerr.New(zerr.ArgCountMismatch, zerr.PhaseEval, spanOf(n.SpanV), source)
		}
		return args[n.Index], nil

	case *resolve.ConstRef:
		c, ok := store.Constant(n.Slot)
		if !ok {
			return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, spanOf(n.SpanV), source, n.Name)
		}
		return c.Value, nil

	case *resolve.UnOp:
		v, err := evalDepth(n.Operand, args, store, depth, maxDepth, source)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return v, nil
		case '-':
			return -v, nil
		}
		return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, spanOf(n.SpanV), source, "unknown unary operator")

	case *resolve.BinOp:
		left, err := evalDepth(n.Left, args, store, depth, maxDepth, source)
		if err != nil {
			return 0, err
		}
		right, err := evalDepth(n.Right, args, store, depth, maxDepth, source)
		if err != nil {
			return 0, err
		}
		return BinOp(n.Op, left, right), nil

	case *resolve.Call:
		return evalCall(n, args, store, depth, maxDepth, source)

	default:
		return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, zerr.Span{}, source, "unrecognized FAST node")
	}
}

func evalCall(n *resolve.Call, args []float64, store Store, depth, maxDepth int, source string) (float64, *zerr.Error) {
	argv := make([]float64, len(n.Args))
	for i, a := range n.Args {
		v, err := evalDepth(a, args, store, depth, maxDepth, source)
		if err != nil {
			return 0, err
		}
		argv[i] = v
	}

	switch n.Kind {
	case resolve.BuiltinFunctionKind:
		fn, ok := store.Builtin(n.Slot)
		if !ok {
			return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, spanOf(n.SpanV), source, n.Name)
		}
		return fn.Native(argv), nil

	case resolve.UserFunctionKind:
		if depth+1 > maxDepth {
			return 0, zerr.New(zerr.RecursionDepthOverflow, zerr.PhaseEval, spanOf(n.SpanV), source)
		}
		f, ok := store.Function(n.Slot)
		if !ok || f.ErrV != nil {
			return 0, zerr.New(zerr.ObjectInvalidState, zerr.PhaseEval, spanOf(n.SpanV), source, n.Name)
		}
		return evalDepth(f.RHS, argv, store, depth+1, maxDepth, source)

	case resolve.SequenceKind:
		if depth+1 > maxDepth {
			return 0, zerr.New(zerr.RecursionDepthOverflow, zerr.PhaseEval, spanOf(n.SpanV), source)
		}
		return evalSequence(n, store, argv[0], depth+1, maxDepth, source)

	case resolve.DataSeriesKind:
		if depth+1 > maxDepth {
			return 0, zerr.New(zerr.RecursionDepthOverflow, zerr.PhaseEval, spanOf(n.SpanV), source)
		}
		return evalDataSeries(n, store, argv[0], depth+1, maxDepth, source)

	default:
		return 0, zerr.New(zerr.Unknown, zerr.PhaseEval, spanOf(n.SpanV), source, "unrecognized call kind")
	}
}

// evalSequence implements §4.9's sequence evaluation rule: round x to an
// integer index i; i<0 is nan; i within the seed range evaluates that
// seed expression; otherwise the general term, both with i bound as the
// sole input variable. A per-sequence cache (if sized > 0) is consulted
// and updated keyed on the sequence's current revision, so a redefinition
// can never observe a stale cached value.
func evalSequence(call *resolve.Call, store Store, x float64, depth, maxDepth int, source string) (float64, *zerr.Error) {
	seq, ok := store.Sequence(call.Slot)
	if !ok || seq.ErrV != nil {
		return 0, zerr.New(zerr.ObjectInvalidState, zerr.PhaseEval, spanOf(call.SpanV), source, call.Name)
	}
	i := int(math.Round(x))
	if i < 0 {
		return math.NaN(), nil
	}

	key := cache.Key{Revision: seq.RevisionV, Arg: float64(i)}
	if v, hit := seq.Cache.Get(key); hit {
		return v, nil
	}

	var body resolve.Node
	if i < len(seq.Seeds) {
		body = seq.Seeds[i]
	} else {
		body = seq.General
	}
	v, err := evalDepth(body, []float64{float64(i)}, store, depth, maxDepth, source)
	if err != nil {
		return 0, err
	}
	seq.Cache.Set(key, v)
	return v, nil
}

// evalDataSeries implements §4.9's data-series evaluation rule: round x
// to a non-negative integer row; a row absent from the sparse table is
// EmptyExpression (the Open Question's preferred resolution over
// clamping to the last row).
func evalDataSeries(call *resolve.Call, store Store, x float64, depth, maxDepth int, source string) (float64, *zerr.Error) {
	ds, ok := store.DataSeries(call.Slot)
	if !ok {
		return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, spanOf(call.SpanV), source, call.Name)
	}
	i := int(math.Round(x))
	if i < 0 {
		return math.NaN(), nil
	}
	if rowErr := ds.RowErr[i]; rowErr != nil {
		return 0, zerr.New(zerr.ObjectInvalidState, zerr.PhaseEval, spanOf(call.SpanV), source, call.Name)
	}

	key := cache.Key{Revision: ds.RevisionV, Arg: float64(i)}
	if v, hit := ds.Cache.Get(key); hit {
		return v, nil
	}
	row, present := ds.Rows[i]
	if !present {
		return 0, zerr.New(zerr.EmptyExpression, zerr.PhaseEval, spanOf(call.SpanV), source)
	}
	v, err := evalDepth(row, []float64{float64(i)}, store, depth, maxDepth, source)
	if err != nil {
		return 0, err
	}
	ds.Cache.Set(key, v)
	return v, nil
}

func spanOf(s token.Substring) zerr.Span {
	return zerr.Span{Begin: s.Begin, Size: s.Size}
}
