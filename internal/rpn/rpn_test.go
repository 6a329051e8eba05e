package rpn

import (
	"testing"

	"github.com/mcgru/zecalc/internal/eval"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/zerr"
)

type fakeStore struct {
	constants map[objects.Slot]*objects.GlobalConstant
	functions map[objects.Slot]*objects.UserFunction
	builtins  map[objects.Slot]*objects.BuiltinFunction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		constants: make(map[objects.Slot]*objects.GlobalConstant),
		functions: make(map[objects.Slot]*objects.UserFunction),
		builtins:  make(map[objects.Slot]*objects.BuiltinFunction),
	}
}

func (f *fakeStore) Constant(slot objects.Slot) (*objects.GlobalConstant, bool) {
	c, ok := f.constants[slot]
	return c, ok
}
func (f *fakeStore) Function(slot objects.Slot) (*objects.UserFunction, bool) {
	fn, ok := f.functions[slot]
	return fn, ok
}
func (f *fakeStore) Sequence(slot objects.Slot) (*objects.Sequence, bool) { return nil, false }
func (f *fakeStore) DataSeries(slot objects.Slot) (*objects.DataSeries, bool) {
	return nil, false
}
func (f *fakeStore) Builtin(slot objects.Slot) (*objects.BuiltinFunction, bool) {
	b, ok := f.builtins[slot]
	return b, ok
}

func code(err *zerr.Error) zerr.Code {
	if err == nil {
		return ""
	}
	return err.Code
}

// agree runs both evaluators over the same FAST and fails unless they
// agree, since rpn.Run is specified to be semantically identical to
// eval.Eval for a single object's own top-level body (see package doc).
func agree(t *testing.T, node resolve.Node, args []float64, store eval.Store, want float64) {
	t.Helper()
	treeV, treeErr := eval.Eval(node, args, store, 100, "")
	if treeErr != nil {
		t.Fatalf("eval.Eval unexpected error: %v", treeErr)
	}
	if treeV != want {
		t.Fatalf("eval.Eval = %v, want %v", treeV, want)
	}

	prog := Linearize(node)
	rpnV, rpnErr := Run(prog, args, store, 100, "")
	if rpnErr != nil {
		t.Fatalf("rpn.Run unexpected error: %v", rpnErr)
	}
	if rpnV != want {
		t.Fatalf("rpn.Run = %v, want %v", rpnV, want)
	}
}

func TestRunArithmeticMatchesEval(t *testing.T) {
	// (2 + 3) * -4 = -20
	node := &resolve.BinOp{
		Op:    '*',
		Left:  &resolve.BinOp{Op: '+', Left: &resolve.Number{Value: 2}, Right: &resolve.Number{Value: 3}},
		Right: &resolve.UnOp{Op: '-', Operand: &resolve.Number{Value: 4}},
	}
	agree(t, node, nil, newFakeStore(), -20)
}

func TestRunInputVariableMatchesEval(t *testing.T) {
	node := &resolve.BinOp{Op: '+', Left: &resolve.InputVariable{Index: 0}, Right: &resolve.InputVariable{Index: 1}}
	agree(t, node, []float64{3, 4}, newFakeStore(), 7)
}

func TestRunConstRefMatchesEval(t *testing.T) {
	store := newFakeStore()
	slot := objects.Slot{Kind: objects.ConstantKind}
	store.constants[slot] = &objects.GlobalConstant{NameV: "c", Value: 9}
	agree(t, &resolve.ConstRef{Name: "c", Slot: slot}, nil, store, 9)
}

func TestRunBuiltinCallMatchesEval(t *testing.T) {
	store := newFakeStore()
	slot := objects.Slot{Kind: objects.BuiltinFunctionKind}
	store.builtins[slot] = &objects.BuiltinFunction{NameV: "double", ArityV: 1, Native: func(args []float64) float64 { return args[0] * 2 }}
	call := &resolve.Call{Name: "double", Slot: slot, Kind: resolve.BuiltinFunctionKind, Args: []resolve.Node{&resolve.Number{Value: 5}}}
	agree(t, call, nil, store, 10)
}

func TestRunUserFunctionCallMatchesEval(t *testing.T) {
	store := newFakeStore()
	slot := objects.Slot{Kind: objects.UserFunctionKind}
	// f(x) = x * x
	store.functions[slot] = &objects.UserFunction{
		NameV:  "f",
		Params: []string{"x"},
		RHS:    &resolve.BinOp{Op: '*', Left: &resolve.InputVariable{Index: 0}, Right: &resolve.InputVariable{Index: 0}},
	}
	call := &resolve.Call{Name: "f", Slot: slot, Kind: resolve.UserFunctionKind, Args: []resolve.Node{&resolve.Number{Value: 6}}}
	agree(t, call, nil, store, 36)
}

func TestRunRecursionOverflowMatchesEval(t *testing.T) {
	store := newFakeStore()
	slot := objects.Slot{Kind: objects.UserFunctionKind}
	selfCall := &resolve.Call{Name: "f", Slot: slot, Kind: resolve.UserFunctionKind, Args: []resolve.Node{&resolve.InputVariable{Index: 0}}}
	store.functions[slot] = &objects.UserFunction{NameV: "f", Params: []string{"n"}, RHS: selfCall}
	call := &resolve.Call{Name: "f", Slot: slot, Kind: resolve.UserFunctionKind, Args: []resolve.Node{&resolve.Number{Value: 1}}}

	_, treeErr := eval.Eval(call, nil, store, 3, "")
	_, rpnErr := Run(Linearize(call), nil, store, 3, "")
	if code(treeErr) != zerr.RecursionDepthOverflow || code(rpnErr) != zerr.RecursionDepthOverflow {
		t.Fatalf("codes = %v, %v, want both RecursionDepthOverflow", code(treeErr), code(rpnErr))
	}
}

func TestRunMalformedProgramDetectsLeftoverStack(t *testing.T) {
	prog := Program{{Op: PushNumber, Num: 1}, {Op: PushNumber, Num: 2}}
	_, err := Run(prog, nil, newFakeStore(), 100, "")
	if code(err) != zerr.Unknown {
		t.Fatalf("code = %v, want Unknown for a malformed two-value stack", code(err))
	}
}

func TestLinearizePostorder(t *testing.T) {
	node := &resolve.BinOp{Op: '+', Left: &resolve.Number{Value: 1}, Right: &resolve.Number{Value: 2}}
	prog := Linearize(node)
	if len(prog) != 3 {
		t.Fatalf("len(prog) = %d, want 3", len(prog))
	}
	if prog[0].Op != PushNumber || prog[1].Op != PushNumber || prog[2].Op != ApplyBinOp {
		t.Fatalf("prog ops = %v, %v, %v; want PushNumber, PushNumber, ApplyBinOp", prog[0].Op, prog[1].Op, prog[2].Op)
	}
}
