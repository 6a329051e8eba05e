package zecalc

import "testing"

func TestSimpleArithmetic(t *testing.T) {
	w := NewWorld()
	v, err := w.EvaluateExpression("2 + 3 * 4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 14 {
		t.Fatalf("v = %v, want 14", v)
	}
}

func TestConstantAndFunctionComposition(t *testing.T) {
	w := NewWorld()
	if _, err := w.Define("radius = 2"); err != nil {
		t.Fatalf("unexpected error defining radius: %v", err)
	}
	if _, err := w.Define("area(r) = math::pi * r * r"); err != nil {
		t.Fatalf("unexpected error defining area: %v", err)
	}
	h, ok := w.Get("area")
	if !ok {
		t.Fatal("expected area to be defined")
	}
	v, err := h.Evaluate(3)
	if err != nil {
		t.Fatalf("unexpected error evaluating area(3): %v", err)
	}
	want := 28.274333882308138 // math.Pi * 9
	if diff := v - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("area(3) = %v, want %v", v, want)
	}
}

func TestFibonacciSequenceWithTwoSeeds(t *testing.T) {
	w := NewWorld()
	h, err := w.Define("fib(n) = 0 ; 1 ; fib(n-1) + fib(n-2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[float64]float64{0: 0, 1: 1, 2: 1, 3: 2, 4: 3, 5: 5, 10: 55}
	for n, want := range cases {
		v, err := h.Evaluate(n)
		if err != nil {
			t.Fatalf("fib(%v) error: %v", n, err)
		}
		if v != want {
			t.Fatalf("fib(%v) = %v, want %v", n, v, want)
		}
	}
}

func TestMultiArgumentCallChain(t *testing.T) {
	w := NewWorld()
	if _, err := w.Define("add3(a, b, c) = a + b + c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Define("scaled(x, y) = add3(x, y, 1) * 2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, _ := w.Get("scaled")
	v, err := h.Evaluate(3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 16 { // (3+4+1)*2
		t.Fatalf("scaled(3,4) = %v, want 16", v)
	}
}

func TestArityMismatchError(t *testing.T) {
	w := NewWorld()
	h, _ := w.Define("f(x, y) = x + y")
	_, err := h.Evaluate(1)
	if err == nil {
		t.Fatal("expected an arity-mismatch error calling f with one argument")
	}
	if err.Code != ErrArgCountMismatch {
		t.Fatalf("Code = %v, want ErrArgCountMismatch", err.Code)
	}
}

func TestDanglingReferenceThenDefinedHeals(t *testing.T) {
	w := NewWorld()
	h, err := w.Define("f(x) = x + k")
	if err == nil {
		t.Fatal("expected a semantic error for referencing undefined k")
	}
	if !h.Valid() {
		t.Fatal("expected a valid Handle even though the definition is in an error state")
	}
	if _, evalErr := h.Evaluate(1); evalErr == nil {
		t.Fatal("expected evaluation to fail while k is undefined")
	}

	if _, err := w.Define("k = 10"); err != nil {
		t.Fatalf("unexpected error defining k: %v", err)
	}
	v, err := h.Evaluate(1)
	if err != nil {
		t.Fatalf("unexpected error after healing: %v", err)
	}
	if v != 11 {
		t.Fatalf("f(1) = %v, want 11 after k is defined", v)
	}
}

func TestEvaluateRPNMatchesEvaluate(t *testing.T) {
	w := NewWorld()
	h, err := w.Define("f(x, y) = (x + y) * (x - y)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree, err := h.Evaluate(5, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rpnV, err := h.EvaluateRPN(5, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree != rpnV || tree != 16 {
		t.Fatalf("tree = %v, rpn = %v, want both 16", tree, rpnV)
	}
}

func TestDataSeriesHandleLifecycle(t *testing.T) {
	w := NewWorld()
	h, err := w.DefineDataSeries("d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.SetDataRow(2, "x * 10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := h.Evaluate(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 20 {
		t.Fatalf("d(2) = %v, want 20", v)
	}
	if _, err := h.Evaluate(5); err == nil {
		t.Fatal("expected an error evaluating an absent row")
	}
}

func TestEraseInvalidatesHandle(t *testing.T) {
	w := NewWorld()
	h, _ := w.Define("a = 1")
	if err := w.Erase("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Valid() {
		t.Fatal("expected the Handle to be invalid after Erase")
	}
}

func TestRedefinePreservesHandleIdentity(t *testing.T) {
	w := NewWorld()
	h, _ := w.Define("a = 1")
	before := h.String()
	if err := h.Redefine("a = 99"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.String() != before {
		t.Fatal("expected the Handle's identity to survive a Redefine")
	}
	v, err := h.Evaluate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("value = %v, want 99", v)
	}
}

func TestEraseByHandle(t *testing.T) {
	w := NewWorld()
	h, _ := w.Define("a = 1")
	if err := w.Erase(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Valid() {
		t.Fatal("expected the Handle to be invalid after Erase")
	}
	if _, ok := w.Get("a"); ok {
		t.Fatal("expected \"a\" to no longer be bound")
	}
}

// TestEraseThenRedefineMintsFreshIdentity guards against a stale Handle
// silently aliasing a different object: once "a" is erased and its slot
// recycled by a later Define, the old Handle must stay invalid and the
// new one must carry a different identity, even though the two may share
// the same underlying {Kind,Index} slot.
func TestEraseThenRedefineMintsFreshIdentity(t *testing.T) {
	w := NewWorld()
	oldHandle, _ := w.Define("a = 1")
	if err := w.Erase("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newHandle, err := w.Define("b = 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oldHandle.Valid() {
		t.Fatal("expected the erased Handle to remain invalid after a later Define")
	}
	if oldHandle.String() == newHandle.String() {
		t.Fatal("expected the recycled slot's new object to carry a different identity")
	}
	v, err := newHandle.Evaluate()
	if err != nil || v != 2 {
		t.Fatalf("b = %v, %v, want 2, nil", v, err)
	}
}
