// Package pipeline is a staged Processor chain over one expression's
// compilation, kept for the teacher's own sequential-processor shape
// (internal/pipeline in the original) but re-pointed at this domain's
// four stages (lex, parse, mark, resolve) instead of a general-purpose
// language's (lex, parse, analyze, execute). It is not on the hot path
// internal/world.parseResolveOne takes for every Define/Redefine — that
// stays a direct function chain, since a World needs to thread its own
// resolve.Lookup through as live registry state, not a context value —
// but it gives a caller (notably the REPL's :explain command) a single
// place to run and inspect every intermediate stage of one expression.
package pipeline

// Processor is one stage of the pipeline: it consumes a Context and
// returns the (possibly mutated) context for the next stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline runs a fixed sequence of Processors, short-circuiting once a
// stage records an error.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order, stopping as soon as ctx.Err is set
// so a later stage never runs against a malformed result from an earlier
// one.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, proc := range p.processors {
		if ctx.Err != nil {
			return ctx
		}
		ctx = proc.Process(ctx)
	}
	return ctx
}
