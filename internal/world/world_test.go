package world

import (
	"testing"

	"github.com/mcgru/zecalc/internal/eval"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/zerr"
)

func code(err *zerr.Error) zerr.Code {
	if err == nil {
		return ""
	}
	return err.Code
}

// callNode builds a synthetic single-node Call wrapping slot, the same
// way the public zecalc package does to evaluate a Sequence/DataSeries by
// index without a stored top-level body of its own.
func callNode(slot objects.Slot, arg float64) *resolve.Call {
	return &resolve.Call{Slot: slot, Kind: slot.Kind, Args: []resolve.Node{&resolve.Number{Value: arg}}}
}

func evalSlot(t *testing.T, w *World, slot objects.Slot, args ...float64) float64 {
	t.Helper()
	switch slot.Kind {
	case objects.ConstantKind:
		c, ok := w.Constant(slot)
		if !ok {
			t.Fatalf("constant slot %v not found", slot)
		}
		return c.Value
	case objects.UserFunctionKind:
		f, ok := w.Function(slot)
		if !ok || f.ErrV != nil {
			t.Fatalf("function slot %v is missing or errored: %v", slot, f)
		}
		v, err := eval.Eval(f.RHS, args, w, w.MaxRecursionDepth(), f.Source)
		if err != nil {
			t.Fatalf("eval error: %v", err)
		}
		return v
	default:
		t.Fatalf("evalSlot: unsupported kind %v", slot.Kind)
		return 0
	}
}

func TestDefineConstant(t *testing.T) {
	w := New()
	slot, err := w.Define("answer = 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Kind != objects.ConstantKind {
		t.Fatalf("Kind = %v, want ConstantKind", slot.Kind)
	}
	if v := evalSlot(t, w, slot); v != 42 {
		t.Fatalf("value = %v, want 42", v)
	}
}

func TestDefineFunction(t *testing.T) {
	w := New()
	slot, err := w.Define("f(x, y) = x * x + y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := evalSlot(t, w, slot, 3, 2); v != 11 {
		t.Fatalf("f(3,2) = %v, want 11", v)
	}
}

func TestDefineRejectsStructurallyMalformedEquation(t *testing.T) {
	w := New()
	slot, err := w.Define("not an equation")
	if code(err) != zerr.NotMathObjectDefinition {
		t.Fatalf("code = %v, want NotMathObjectDefinition", code(err))
	}
	if slot != (objects.Slot{}) {
		t.Fatalf("slot = %v, want zero Slot: a structural failure commits nothing", slot)
	}
}

func TestDefineRejectsDuplicateName(t *testing.T) {
	w := New()
	if _, err := w.Define("a = 1"); err != nil {
		t.Fatalf("unexpected error on first Define: %v", err)
	}
	_, err := w.Define("a = 2")
	if code(err) != zerr.NameAlreadyTaken {
		t.Fatalf("code = %v, want NameAlreadyTaken", code(err))
	}
}

// A semantic failure (an undefined reference in the RHS) still commits
// the object, in an error state, so a later Define of the dependency can
// heal it through propagation.
func TestDefineCommitsOnSemanticFailure(t *testing.T) {
	w := New()
	slot, err := w.Define("f(x) = x + missing")
	if err == nil {
		t.Fatal("expected a semantic resolution error")
	}
	if code(err) != zerr.UndefinedVariable {
		t.Fatalf("code = %v, want UndefinedVariable", code(err))
	}
	if slot.Kind != objects.UserFunctionKind {
		t.Fatalf("slot = %v, want a committed UserFunctionKind slot", slot)
	}
	f, ok := w.Function(slot)
	if !ok || f.ErrV == nil {
		t.Fatal("expected the function to be committed in an error state")
	}

	// Healing: defining "missing" should make f valid via propagation.
	if _, err := w.Define("missing = 10"); err != nil {
		t.Fatalf("unexpected error defining missing: %v", err)
	}
	f, ok = w.Function(slot)
	if !ok || f.ErrV != nil {
		t.Fatalf("expected f to be healed after missing was defined, ErrV = %v", f.ErrV)
	}
	if v := evalSlot(t, w, slot, 5); v != 15 {
		t.Fatalf("f(5) = %v, want 15 after healing", v)
	}
}

func TestRedefineConstant(t *testing.T) {
	w := New()
	slot, _ := w.Define("a = 1")
	if err := w.Redefine(slot, "a = 2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := evalSlot(t, w, slot); v != 2 {
		t.Fatalf("value = %v, want 2 after redefine", v)
	}
}

func TestRedefineWrongShapeFails(t *testing.T) {
	w := New()
	slot, _ := w.Define("a = 1")
	err := w.Redefine(slot, "a(x) = x")
	if code(err) != zerr.WrongObjectType {
		t.Fatalf("code = %v, want WrongObjectType", code(err))
	}
}

func TestRedefinePropagatesToDependents(t *testing.T) {
	w := New()
	aSlot, _ := w.Define("a = 1")
	fSlot, err := w.Define("f(x) = x + a")
	if err != nil {
		t.Fatalf("unexpected error defining f: %v", err)
	}
	if v := evalSlot(t, w, fSlot, 10); v != 11 {
		t.Fatalf("f(10) = %v, want 11", v)
	}
	if err := w.Redefine(aSlot, "a = 100"); err != nil {
		t.Fatalf("unexpected error redefining a: %v", err)
	}
	if v := evalSlot(t, w, fSlot, 10); v != 110 {
		t.Fatalf("f(10) after redefine = %v, want 110", v)
	}
}

func TestEraseThenDependentBreaksThenHeals(t *testing.T) {
	w := New()
	_, _ = w.Define("a = 1")
	fSlot, _ := w.Define("f(x) = x + a")

	if err := w.Erase("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, _ := w.Function(fSlot)
	if f.ErrV == nil {
		t.Fatal("expected f to break after a was erased")
	}

	if _, err := w.Define("a = 5"); err != nil {
		t.Fatalf("unexpected error redefining a: %v", err)
	}
	f, _ = w.Function(fSlot)
	if f.ErrV != nil {
		t.Fatalf("expected f to heal after a was redefined, ErrV = %v", f.ErrV)
	}
	if v := evalSlot(t, w, fSlot, 2); v != 7 {
		t.Fatalf("f(2) = %v, want 7", v)
	}
}

func TestEraseUnknownName(t *testing.T) {
	w := New()
	err := w.Erase("nope")
	if code(err) != zerr.ObjectNotInWorld {
		t.Fatalf("code = %v, want ObjectNotInWorld", code(err))
	}
}

func TestSequenceEndToEnd(t *testing.T) {
	w := New()
	slot, err := w.Define("u(n) = 1 ; 1 ; u(n-1) + u(n-2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := w.Sequence(slot)
	if !ok || s.ErrV != nil {
		t.Fatalf("sequence not committed cleanly: %v", s)
	}
	call := func(n float64) float64 {
		v, err := eval.Eval(callNode(slot, n), nil, w, w.MaxRecursionDepth(), s.Source)
		if err != nil {
			t.Fatalf("eval u(%v) error: %v", n, err)
		}
		return v
	}
	if v := call(0); v != 1 {
		t.Fatalf("u(0) = %v, want 1", v)
	}
	if v := call(5); v != 8 {
		t.Fatalf("u(5) = %v, want 8", v)
	}
}

func TestDataSeriesEndToEnd(t *testing.T) {
	w := New()
	slot, err := w.DefineDataSeries("d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.SetDataRow(slot, 3, "x * 2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, _ := w.DataSeries(slot)
	v, everr := eval.Eval(callNode(slot, 3), nil, w, w.MaxRecursionDepth(), "")
	if everr != nil {
		t.Fatalf("eval error: %v", everr)
	}
	if v != 6 {
		t.Fatalf("d(3) = %v, want 6", v)
	}

	// absent row
	_, everr = eval.Eval(callNode(slot, 9), nil, w, w.MaxRecursionDepth(), "")
	if code(everr) != zerr.EmptyExpression {
		t.Fatalf("code = %v, want EmptyExpression for an absent row", code(everr))
	}

	// clear the row by setting an empty source
	if err := w.SetDataRow(slot, 3, ""); err != nil {
		t.Fatalf("unexpected error clearing row: %v", err)
	}
	if _, ok := d.Rows[3]; ok {
		t.Fatal("expected row 3 to be cleared")
	}
}

func TestRecursionDepthOverflow(t *testing.T) {
	w := New()
	w.SetRecursionBudget(3)
	slot, err := w.Define("f(n) = f(n)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, _ := w.Function(slot)
	_, everr := eval.Eval(f.RHS, []float64{1}, w, w.MaxRecursionDepth(), f.Source)
	if code(everr) != zerr.RecursionDepthOverflow {
		t.Fatalf("code = %v, want RecursionDepthOverflow", code(everr))
	}
}
