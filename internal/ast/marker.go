package ast

// MarkInputVariables walks node and rewrites every Variable leaf whose
// name matches an entry of params into an InputVariable bound to that
// entry's position, per §4.3. It is a pure rewrite (returns a new tree)
// so it is trivially idempotent and commutes with further applications
// over disjoint name sets: a node already rewritten to InputVariable is
// left untouched, and a Variable whose name isn't in params is returned
// unchanged.
func MarkInputVariables(node Node, params []string) Node {
	if node == nil || len(params) == 0 {
		return node
	}
	index := make(map[string]int, len(params))
	for i, p := range params {
		// first occurrence wins; duplicate formal names are a registry-level concern
		if _, seen := index[p]; !seen {
			index[p] = i
		}
	}
	return markNode(node, index)
}

func markNode(node Node, index map[string]int) Node {
	switch n := node.(type) {
	case *Number:
		return n
	case *InputVariable:
		return n
	case *Variable:
		if i, ok := index[n.Name]; ok {
			return &InputVariable{SpanV: n.SpanV, Name: n.Name, Index: i}
		}
		return n
	case *Call:
		args := make([]Node, len(n.Args))
		for i, a := range n.Args {
			args[i] = markNode(a, index)
		}
		return &Call{SpanV: n.SpanV, Name: n.Name, ArgsSpan: n.ArgsSpan, Args: args}
	case *BinOp:
		return &BinOp{SpanV: n.SpanV, Op: n.Op, Left: markNode(n.Left, index), Right: markNode(n.Right, index)}
	case *UnOp:
		return &UnOp{SpanV: n.SpanV, Op: n.Op, Operand: markNode(n.Operand, index)}
	default:
		return node
	}
}
