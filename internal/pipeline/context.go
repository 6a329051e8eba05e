package pipeline

import (
	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// Context carries one expression through the four compilation stages
// (§2's data flow: text -> tokens -> AST -> marked AST -> FAST).
type Context struct {
	Source string
	Params []string // input-variable names bound by the enclosing definition

	// Dependent/Lookup are the resolve stage's registry seam: the slot the
	// expression belongs to, and the registry to resolve names against.
	Dependent resolve.Slot
	Lookup    resolve.Lookup

	Tokens   []token.Token
	AST      ast.Node
	Marked   ast.Node
	Resolved resolve.Node

	Err *zerr.Error
}

// NewContext builds the context an Explain run starts from.
func NewContext(source string, params []string, dependent resolve.Slot, lookup resolve.Lookup) *Context {
	return &Context{Source: source, Params: params, Dependent: dependent, Lookup: lookup}
}
