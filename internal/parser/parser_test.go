package parser

import (
	"testing"

	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/lexer"
)

func build(t *testing.T, source string) ast.Node {
	t.Helper()
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize(%q) returned error: %v", source, err)
	}
	node, perr := Build(tokens[:len(tokens)-1], source)
	if perr != nil {
		t.Fatalf("Build(%q) returned error: %v", source, perr)
	}
	return node
}

func TestBuildOperatorPrecedence(t *testing.T) {
	// "2 + 3 * 4" should bind as 2 + (3 * 4): the BinOp at top level is '+'.
	node := build(t, "2 + 3 * 4")
	top, ok := node.(*ast.BinOp)
	if !ok || top.Op != '+' {
		t.Fatalf("top node = %#v, want BinOp('+')", node)
	}
	right, ok := top.Right.(*ast.BinOp)
	if !ok || right.Op != '*' {
		t.Fatalf("right node = %#v, want BinOp('*')", top.Right)
	}
}

func TestBuildParenOverridesPrecedence(t *testing.T) {
	// "(2 + 3) * 4" should bind as (2 + 3) * 4: top level is '*'.
	node := build(t, "(2 + 3) * 4")
	top, ok := node.(*ast.BinOp)
	if !ok || top.Op != '*' {
		t.Fatalf("top node = %#v, want BinOp('*')", node)
	}
	left, ok := top.Left.(*ast.BinOp)
	if !ok || left.Op != '+' {
		t.Fatalf("left node = %#v, want BinOp('+')", top.Left)
	}
}

func TestBuildLeftAssociativePower(t *testing.T) {
	// lowestPriorityOp splits at the right-most lowest-priority operator,
	// so "2 ^ 3 ^ 4" parses as (2 ^ 3) ^ 4.
	node := build(t, "2 ^ 3 ^ 4")
	top, ok := node.(*ast.BinOp)
	if !ok || top.Op != '^' {
		t.Fatalf("top node = %#v, want BinOp('^')", node)
	}
	if _, ok := top.Left.(*ast.BinOp); !ok {
		t.Fatalf("left operand = %#v, want BinOp", top.Left)
	}
	if _, ok := top.Right.(*ast.Number); !ok {
		t.Fatalf("right operand = %#v, want Number", top.Right)
	}
}

func TestBuildUnaryMinus(t *testing.T) {
	node := build(t, "-(x + 1)")
	un, ok := node.(*ast.UnOp)
	if !ok || un.Op != '-' {
		t.Fatalf("top node = %#v, want UnOp('-')", node)
	}
	if _, ok := un.Operand.(*ast.BinOp); !ok {
		t.Fatalf("operand = %#v, want BinOp", un.Operand)
	}
}

func TestBuildCallArgs(t *testing.T) {
	node := build(t, "f(x, 2 + 3)")
	call, ok := node.(*ast.Call)
	if !ok {
		t.Fatalf("node = %#v, want *ast.Call", node)
	}
	if call.Name != "f" {
		t.Fatalf("Name = %q, want f", call.Name)
	}
	if len(call.Args) != 2 {
		t.Fatalf("len(Args) = %d, want 2", len(call.Args))
	}
	if _, ok := call.Args[0].(*ast.Variable); !ok {
		t.Fatalf("Args[0] = %#v, want *ast.Variable", call.Args[0])
	}
	if _, ok := call.Args[1].(*ast.BinOp); !ok {
		t.Fatalf("Args[1] = %#v, want *ast.BinOp", call.Args[1])
	}
}

func TestBuildZeroArityCall(t *testing.T) {
	node := build(t, "now()")
	call, ok := node.(*ast.Call)
	if !ok {
		t.Fatalf("node = %#v, want *ast.Call", node)
	}
	if len(call.Args) != 0 {
		t.Fatalf("len(Args) = %d, want 0", len(call.Args))
	}
}

func TestBuildEmptyExpressionError(t *testing.T) {
	if _, err := Build(nil, ""); err == nil {
		t.Fatal("expected an EmptyExpression error for no tokens")
	}
}
