package pipeline

import (
	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/lexer"
	"github.com/mcgru/zecalc/internal/parser"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
)

// LexProcessor runs internal/lexer over ctx.Source.
type LexProcessor struct{}

func (LexProcessor) Process(ctx *Context) *Context {
	tokens, err := lexer.Tokenize(ctx.Source)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Tokens = tokens
	return ctx
}

// ParseProcessor runs internal/parser over ctx.Tokens (dropping the
// trailing EndOfExpression sentinel lexer.Tokenize always appends).
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *Context) *Context {
	node, err := parser.Build(ctx.Tokens[:len(ctx.Tokens)-1], ctx.Source)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.AST = node
	return ctx
}

// MarkProcessor rewrites ctx.AST's Variable leaves named in ctx.Params
// into InputVariable nodes (§4.3).
type MarkProcessor struct{}

func (MarkProcessor) Process(ctx *Context) *Context {
	ctx.Marked = ast.MarkInputVariables(ctx.AST, ctx.Params)
	return ctx
}

// ResolveProcessor runs internal/resolve against ctx.Lookup, producing
// the FAST (§4.4).
type ResolveProcessor struct{}

func (ResolveProcessor) Process(ctx *Context) *Context {
	resolved, err := resolve.Resolve(ctx.Marked, ctx.Dependent, ctx.Lookup, ctx.Source)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Resolved = resolved
	return ctx
}

// readOnlyLookup proxies Find/IsErrored to an underlying registry but
// drops RecordDependency, so a caller exploring an expression that was
// never actually installed under dependent never leaves that scratch
// slot's name behind in the registry's reverse-dependency index.
type readOnlyLookup struct {
	resolve.Lookup
}

func (readOnlyLookup) RecordDependency(name string, dependent resolve.Slot, kind resolve.Kind, pos token.Substring) {
}

// Explain runs the full lex -> parse -> mark -> resolve chain over
// source and returns the populated Context, for introspection (the
// REPL's :explain command) rather than for World's own Define/Redefine
// path, which calls the same four functions directly to avoid paying a
// Processor/Context allocation on every mutation.
func Explain(source string, params []string, dependent resolve.Slot, lookup resolve.Lookup) *Context {
	pl := New(LexProcessor{}, ParseProcessor{}, MarkProcessor{}, ResolveProcessor{})
	return pl.Run(NewContext(source, params, dependent, readOnlyLookup{lookup}))
}
