// Package zecalc is the public facade over the math-world registry: a
// parser, name resolver, and recursion-bounded evaluator for equations
// defining global constants, multi-argument functions, recurrent
// sequences, and sparse tabulated data series (§1).
//
// Internally every object lives at a stable internal/objects.Slot for the
// life of the registry. Handle wraps that Slot in a UUID so external
// callers get a stable, comparable identity across redefinition even
// though a Slot index can be recycled after Erase frees it — mirroring
// how the teacher's evaluator/builtins_uuid.go stamps a fresh identity
// onto a value rather than handing out a raw internal index.
package zecalc

import (
	"github.com/google/uuid"

	"github.com/mcgru/zecalc/internal/eval"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/pipeline"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/rpn"
	"github.com/mcgru/zecalc/internal/world"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Error is re-exported so callers can branch on error Code without
// importing an internal package; it is always the concrete type
// returned by every operation in this package.
type Error = zerr.Error

// Code is re-exported for errors.Is-style branching (zerr.Error.Is
// matches on Code alone).
type Code = zerr.Code

const (
	ErrWrongFormat             = zerr.WrongFormat
	ErrUnexpected              = zerr.Unexpected
	ErrMissing                 = zerr.Missing
	ErrUndefinedVariable       = zerr.UndefinedVariable
	ErrUndefinedFunction       = zerr.UndefinedFunction
	ErrWrongObjectType         = zerr.WrongObjectType
	ErrArgCountMismatch        = zerr.ArgCountMismatch
	ErrObjectInvalidState      = zerr.ObjectInvalidState
	ErrNameAlreadyTaken        = zerr.NameAlreadyTaken
	ErrNotMathObjectDefinition = zerr.NotMathObjectDefinition
	ErrRecursionDepthOverflow  = zerr.RecursionDepthOverflow
	ErrEmptyExpression         = zerr.EmptyExpression
	ErrObjectNotInWorld        = zerr.ObjectNotInWorld
)

// World owns every math object by stable slot and is the entry point for
// every mutating or evaluating operation (§4.7-4.8). A World does no
// internal locking: callers sharing one across goroutines must serialize
// every mutating and evaluating call externally.
type World struct {
	core   *world.World
	bySlot map[objects.Slot]uuid.UUID
	byID   map[uuid.UUID]objects.Slot
}

// NewWorld constructs a registry seeded with the built-in constants,
// unary functions, and binary operators of §6.
func NewWorld() *World {
	return &World{
		core:   world.New(),
		bySlot: make(map[objects.Slot]uuid.UUID),
		byID:   make(map[uuid.UUID]objects.Slot),
	}
}

// SetRecursionBudget overrides the registry's evaluation depth budget
// (§4.6, §5; default 100).
func (w *World) SetRecursionBudget(n int) { w.core.SetRecursionBudget(n) }

// SetCacheSize changes the per-object cache buffer size (§4.7; default
// 32) applied to every Sequence/DataSeries created from this point on.
func (w *World) SetCacheSize(n int) { w.core.SetCacheSize(n) }

func (w *World) stamp(slot objects.Slot) Handle {
	id, ok := w.bySlot[slot]
	if !ok {
		id = uuid.New()
		w.bySlot[slot] = id
		w.byID[id] = slot
	}
	return Handle{id: id, world: w}
}

// committed reports whether the core registry installed an object. A
// structural rejection (the equation didn't tokenise to one of the three
// surface forms, or the name was already taken) leaves nothing behind
// and comes back with the zero Slot, whatever its error code; an object
// committed in an error state is always a UserFunction or Sequence, so
// its Slot is never the zero Slot.
func committed(slot objects.Slot, err *zerr.Error) bool {
	return err == nil || slot != (objects.Slot{})
}

// Define parses and installs equation (§6's three surface forms). A
// structural failure returns a zero Handle and the error. A failure
// resolving the RHS (an undefined or wrong-kind reference, a bad arity)
// still returns a usable Handle, in an error state, alongside the error:
// a later Define of the missing dependency heals it automatically
// (§4.8) without any further call on this Handle.
func (w *World) Define(equation string) (Handle, *Error) {
	slot, err := w.core.Define(equation)
	if !committed(slot, err) {
		return Handle{}, err
	}
	return w.stamp(slot), err
}

// DefineDataSeries creates an empty named data series (§6: there is no
// equation form for it; populate rows with Handle.SetDataRow).
func (w *World) DefineDataSeries(name string) (Handle, *Error) {
	slot, err := w.core.DefineDataSeries(name)
	if !committed(slot, err) {
		return Handle{}, err
	}
	return w.stamp(slot), err
}

// Get looks up a bound name.
func (w *World) Get(name string) (Handle, bool) {
	slot, ok := w.core.Get(name)
	if !ok {
		return Handle{}, false
	}
	return w.stamp(slot), true
}

// Erase removes the named object, addressed either by name or by a
// Handle obtained from this World (§6); its dependents enter an error
// state naming it until it is redefined. Erasing by Handle resolves the
// Handle to its current name first, so it still works after a
// Redefine. The erased slot's UUID mapping is dropped so a later Define
// that reuses the freed slot mints a fresh identity rather than
// resurrecting a stale Handle (Handle.Valid() becomes false for every
// Handle that named this slot).
func (w *World) Erase(nameOrHandle any) *Error {
	var name string
	switch v := nameOrHandle.(type) {
	case string:
		name = v
	case Handle:
		slot, ok := w.slot(v)
		if !ok {
			return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, "", v.String())
		}
		n, ok := w.core.Name(slot)
		if !ok {
			return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, "", v.String())
		}
		name = n
	default:
		return zerr.New(zerr.WrongFormat, zerr.PhaseParse, zerr.Span{}, "", "")
	}

	slot, ok := w.core.Get(name)
	if err := w.core.Erase(name); err != nil {
		return err
	}
	if ok {
		if id, have := w.bySlot[slot]; have {
			delete(w.bySlot, slot)
			delete(w.byID, id)
		}
	}
	return nil
}

// Explain runs source (a bare expression, not a full equation) through
// the lex/parse/mark/resolve chain against this World's current
// bindings, and returns every intermediate stage for inspection — a
// diagnostic companion to Define, not a mutating operation: nothing is
// installed in the registry. params names the input variables source may
// reference, as Define would infer from an equation's LHS.
func (w *World) Explain(source string, params []string) *pipeline.Context {
	scratch := objects.Slot{Kind: resolve.UnknownKind, Index: -1}
	return pipeline.Explain(source, params, scratch, w.core)
}

// EvaluateExpression parses and evaluates source as a standalone
// expression (not bound to any name) against this World's current
// bindings — the counterpart to Define for a caller that just wants an
// answer, such as a REPL's bare-expression mode.
func (w *World) EvaluateExpression(source string) (float64, *Error) {
	ctx := w.Explain(source, nil)
	if ctx.Err != nil {
		return 0, ctx.Err
	}
	return eval.Eval(ctx.Resolved, nil, w.core, w.core.MaxRecursionDepth(), source)
}

// slot resolves a Handle back to its current internal slot.
func (w *World) slot(h Handle) (objects.Slot, bool) {
	slot, ok := w.byID[h.id]
	return slot, ok
}

// Handle is a stable, comparable reference to one registry object (§6).
// The zero Handle is never valid; obtain one from World.
type Handle struct {
	id    uuid.UUID
	world *World
}

// Valid reports whether h still refers to a live object (false after the
// object it named has been erased, or for the zero Handle).
func (h Handle) Valid() bool {
	if h.world == nil {
		return false
	}
	_, ok := h.world.slot(h)
	return ok
}

func (h Handle) String() string {
	if h.world == nil {
		return "<invalid handle>"
	}
	return h.id.String()
}

// Name returns the name h is currently bound under.
func (h Handle) Name() (string, bool) {
	slot, ok := h.world.slot(h)
	if !ok {
		return "", false
	}
	return h.world.core.Name(slot)
}

// Redefine replaces h's content with a new equation, preserving h's
// identity and its slot (§6).
func (h Handle) Redefine(equation string) *Error {
	slot, ok := h.world.slot(h)
	if !ok {
		return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, equation, h.String())
	}
	return h.world.core.Redefine(slot, equation)
}

// SetDataRow installs (or, for a blank source, clears) the expression at
// row of the DataSeries h addresses (§6). It is an error to call this on
// a Handle that does not address a DataSeries.
func (h Handle) SetDataRow(row int, source string) *Error {
	slot, ok := h.world.slot(h)
	if !ok {
		return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, source, h.String())
	}
	return h.world.core.SetDataRow(slot, row, source)
}

// Revision returns h's current monotonic revision counter (§4.7),
// bumped by any mutation to h itself or transitively to an object it
// depends on.
func (h Handle) Revision() (uint64, bool) {
	slot, ok := h.world.slot(h)
	if !ok {
		return 0, false
	}
	return h.world.core.Revision(slot)
}

// DirectDependencies returns the names h's current definition references
// directly, each with the kind it resolved as and every source position
// it occurred at (§6).
func (h Handle) DirectDependencies() (map[string]objects.DepInfo, bool) {
	slot, ok := h.world.slot(h)
	if !ok {
		return nil, false
	}
	return h.world.core.DirectDependencies(slot)
}

// Err returns h's own sticky parse/resolve error, if any.
func (h Handle) Err() error {
	slot, ok := h.world.slot(h)
	if !ok {
		return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, "", h.String())
	}
	return h.world.core.ObjectError(slot)
}

// Evaluate runs h's FAST evaluator (§4.6) against args as the bound
// input-variable vector, under the registry's recursion budget.
func (h Handle) Evaluate(args ...float64) (float64, *Error) {
	slot, ok := h.world.slot(h)
	if !ok {
		return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, "", h.String())
	}
	node, source, arity, err := bodyOf(h.world.core, slot)
	if err != nil {
		return 0, err
	}
	if len(args) != arity {
		return 0, zerr.New(zerr.ArgCountMismatch, zerr.PhaseEval, zerr.Span{}, source, h.String())
	}
	return eval.Eval(node, args, h.world.core, h.world.core.MaxRecursionDepth(), source)
}

// EvaluateRPN is Evaluate via the linearized postfix path (§4.5-4.6);
// semantics are identical, offered for callers that want to inspect or
// reuse the linearized stream.
func (h Handle) EvaluateRPN(args ...float64) (float64, *Error) {
	slot, ok := h.world.slot(h)
	if !ok {
		return 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, "", h.String())
	}
	node, source, arity, err := bodyOf(h.world.core, slot)
	if err != nil {
		return 0, err
	}
	if len(args) != arity {
		return 0, zerr.New(zerr.ArgCountMismatch, zerr.PhaseEval, zerr.Span{}, source, h.String())
	}
	prog := rpn.Linearize(node)
	return rpn.Run(prog, args, h.world.core, h.world.core.MaxRecursionDepth(), source)
}

// bodyOf fetches the callable body, its source (for diagnostics), and
// its arity for any of the callable object kinds, or the object's own
// sticky error if its last (re)parse failed. A Sequence or DataSeries has
// no stored top-level body of its own, so this returns a synthetic
// one-argument Call wrapping the slot, whose argument is input variable 0
// (arity 1).
func bodyOf(core *world.World, slot objects.Slot) (node resolve.Node, source string, arity int, err *Error) {
	switch slot.Kind {
	case objects.UserFunctionKind:
		f, ok := core.Function(slot)
		if !ok {
			return nil, "", 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, zerr.Span{}, "", "")
		}
		if f.ErrV != nil {
			return nil, f.Source, f.Arity(), zerr.Wrap(zerr.PhaseEval, zerr.Span{}, f.Source, f.ErrV)
		}
		return f.RHS, f.Source, f.Arity(), nil

	case objects.SequenceKind:
		s, ok := core.Sequence(slot)
		if !ok {
			return nil, "", 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, zerr.Span{}, "", "")
		}
		if s.ErrV != nil {
			return nil, s.Source, 1, zerr.Wrap(zerr.PhaseEval, zerr.Span{}, s.Source, s.ErrV)
		}
		return &resolve.Call{Name: s.NameV, Slot: slot, Kind: objects.SequenceKind, Args: []resolve.Node{&resolve.InputVariable{Index: 0}}}, s.Source, 1, nil

	case objects.DataSeriesKind:
		d, ok := core.DataSeries(slot)
		if !ok {
			return nil, "", 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, zerr.Span{}, "", "")
		}
		return &resolve.Call{Name: d.NameV, Slot: slot, Kind: objects.DataSeriesKind, Args: []resolve.Node{&resolve.InputVariable{Index: 0}}}, "", 1, nil

	case objects.BuiltinFunctionKind:
		b, ok := core.Builtin(slot)
		if !ok {
			return nil, "", 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, zerr.Span{}, "", "")
		}
		args := make([]resolve.Node, b.ArityV)
		for i := range args {
			args[i] = &resolve.InputVariable{Index: i}
		}
		return &resolve.Call{Name: b.NameV, Slot: slot, Kind: objects.BuiltinFunctionKind, Args: args}, "", b.ArityV, nil

	case objects.ConstantKind:
		c, ok := core.Constant(slot)
		if !ok {
			return nil, "", 0, zerr.New(zerr.ObjectNotInWorld, zerr.PhaseEval, zerr.Span{}, "", "")
		}
		return &resolve.Number{Value: c.Value}, "", 0, nil
	}
	return nil, "", 0, zerr.New(zerr.WrongObjectType, zerr.PhaseEval, zerr.Span{}, "", "")
}
