// Package parser builds the generic ast.Node tree from a flat token
// sequence by recursive descent over decreasing operator priority
// (§4.2). Top-level means "not enclosed in any parenthesis group,
// including function-call parentheses", tracked with a single depth
// counter so splitting is O(n).
package parser

import (
	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Build parses tokens[0:len(tokens)] into an ast.Node. tokens must not
// include the trailing EndOfExpression sentinel; callers strip it (or
// pass the result of lexer.Tokenize with the last element trimmed).
func Build(tokens []token.Token, source string) (ast.Node, *zerr.Error) {
	if len(tokens) == 0 {
		return nil, zerr.New(zerr.EmptyExpression, zerr.PhaseParse, zerr.Span{}, source)
	}
	p := &parser{tokens: tokens, source: source}
	return p.build(0, len(tokens))
}

type parser struct {
	tokens []token.Token
	source string
}

func (p *parser) errAt(code zerr.Code, sp token.Substring, args ...any) *zerr.Error {
	return zerr.New(code, zerr.PhaseParse, zerr.Span{Begin: sp.Begin, Size: sp.Size}, p.source, args...)
}

// depthDelta returns how a token changes paren nesting depth: +1 for any
// opening paren (plain or call), -1 for any closing paren, 0 otherwise.
func depthDelta(k token.Kind) int {
	switch k {
	case token.OpeningPth, token.FunctionCallStart:
		return 1
	case token.ClosingPth, token.FunctionCallEnd:
		return -1
	default:
		return 0
	}
}

// matchClose returns the index (within the full token slice) of the
// paren that closes the opener at index openIdx.
func (p *parser) matchClose(openIdx int) int {
	depth := 0
	for i := openIdx; i < len(p.tokens); i++ {
		depth += depthDelta(p.tokens[i].Kind)
		if depth == 0 {
			return i
		}
	}
	return -1
}

func (p *parser) span(lo, hi int) token.Substring {
	return p.tokens[lo].Span.Join(p.tokens[hi-1].Span)
}

// build parses the token span [lo, hi).
func (p *parser) build(lo, hi int) (ast.Node, *zerr.Error) {
	if hi <= lo {
		return nil, zerr.New(zerr.EmptyExpression, zerr.PhaseParse, zerr.Span{}, p.source)
	}

	// Rule 1: strip a full outer ( ... ).
	if p.tokens[lo].Kind == token.OpeningPth {
		close := p.matchClose(lo)
		if close == hi-1 {
			return p.build(lo+1, hi-1)
		}
	}

	// Rule 2: single token -> leaf.
	if hi-lo == 1 {
		return p.leaf(lo)
	}

	// Rule 3: Function( args ) shape, when the call spans the whole range;
	// a call followed by more tokens ("f(x) + 1") falls through to rule 4.
	if p.tokens[lo].Kind == token.Function {
		if lo+1 >= hi || p.tokens[lo+1].Kind != token.FunctionCallStart {
			return nil, p.errAt(zerr.Unexpected, p.tokens[lo].Span, "token after function name")
		}
		if p.matchClose(lo+1) == hi-1 {
			return p.buildCall(lo, hi)
		}
	}

	// Rule 4: split at the right-most top-level operator of lowest priority.
	opIdx, found := p.lowestPriorityOp(lo, hi)
	if found {
		info, _ := operatorInfo(p.tokens[opIdx])
		if info.Fixity == token.PrefixUnary {
			if opIdx != lo {
				return nil, p.errAt(zerr.Unexpected, p.tokens[opIdx].Span, "operator '"+string(rune(p.tokens[opIdx].Op))+"'")
			}
			operand, err := p.build(opIdx+1, hi)
			if err != nil {
				return nil, err
			}
			return &ast.UnOp{SpanV: p.span(lo, hi), Op: p.tokens[opIdx].Op, Operand: operand}, nil
		}
		left, err := p.build(lo, opIdx)
		if err != nil {
			return nil, err
		}
		right, err := p.build(opIdx+1, hi)
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{SpanV: p.span(lo, hi), Op: p.tokens[opIdx].Op, Left: left, Right: right}, nil
	}

	// Rule 5: no rule applies.
	return nil, p.errAt(zerr.Unexpected, p.tokens[lo].Span, "token")
}

func (p *parser) leaf(idx int) (ast.Node, *zerr.Error) {
	tok := p.tokens[idx]
	switch tok.Kind {
	case token.Number:
		return &ast.Number{SpanV: tok.Span, Value: tok.Value}, nil
	case token.Variable:
		return &ast.Variable{SpanV: tok.Span, Name: tok.Text(p.source)}, nil
	default:
		return nil, p.errAt(zerr.Unexpected, tok.Span, tok.Kind.String())
	}
}

// buildCall parses a Function FunctionCallStart ... FunctionCallEnd span
// where tokens[lo+1] is the FunctionCallStart matching tokens[hi-1].
func (p *parser) buildCall(lo, hi int) (ast.Node, *zerr.Error) {
	name := p.tokens[lo].Text(p.source)
	argsLo, argsHi := lo+2, hi-1 // region strictly between the call parens

	var argsSpan token.Substring
	if argsHi > argsLo {
		argsSpan = p.span(argsLo, argsHi)
	} else {
		end := p.tokens[lo+1].Span
		argsSpan = token.Substring{Begin: end.Begin + end.Size, Size: 0}
	}

	var args []ast.Node
	for _, sub := range p.splitTopLevel(argsLo, argsHi, token.Separator) {
		node, err := p.build(sub[0], sub[1])
		if err != nil {
			return nil, err
		}
		args = append(args, node)
	}

	return &ast.Call{SpanV: p.span(lo, hi), Name: name, ArgsSpan: argsSpan, Args: args}, nil
}

// splitTopLevel splits [lo, hi) at every depth-0 token of kind sep,
// returning the [begin, end) bounds of each piece. An empty region
// yields no pieces (supports zero-arity calls).
func (p *parser) splitTopLevel(lo, hi int, sep token.Kind) [][2]int {
	if hi <= lo {
		return nil
	}
	var pieces [][2]int
	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		depth += depthDelta(p.tokens[i].Kind)
		if depth == 0 && p.tokens[i].Kind == sep {
			pieces = append(pieces, [2]int{start, i})
			start = i + 1
		}
	}
	pieces = append(pieces, [2]int{start, hi})
	return pieces
}

// lowestPriorityOp finds the right-most top-level Operator token in
// [lo, hi) whose priority is the minimum among all top-level operators
// present, per §4.2 rule 4.
func (p *parser) lowestPriorityOp(lo, hi int) (int, bool) {
	depth := 0
	best := -1
	bestPriority := 0
	for i := lo; i < hi; i++ {
		depth += depthDelta(p.tokens[i].Kind)
		if depth != 0 || p.tokens[i].Kind != token.Operator {
			continue
		}
		info, ok := operatorInfo(p.tokens[i])
		if !ok {
			continue
		}
		if best == -1 || info.Priority <= bestPriority {
			best = i
			bestPriority = info.Priority
		}
	}
	return best, best != -1
}

func operatorInfo(tok token.Token) (token.OperatorInfo, bool) {
	if tok.Fixity == token.PrefixUnary {
		return token.LookupPrefix(tok.Op)
	}
	return token.LookupInfix(tok.Op)
}
