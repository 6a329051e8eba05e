// Equation-surface parsing and the Define/Redefine/Erase mutation API
// (§4.8, §6), plus the reverse-dependency propagation worklist (§4.7,
// design note "Worklist-based dependency propagation") that keeps every
// dependent's FAST and revision counter in sync after a name-space
// mutation, without the caller ever issuing an explicit reparse or
// cache-flush call.
package world

import (
	"strings"

	"github.com/mcgru/zecalc/internal/ast"
	"github.com/mcgru/zecalc/internal/lexer"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/parser"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
	"github.com/mcgru/zecalc/internal/zerr"
)

// dataSeriesIndexVar is the implicit input-variable name bound to a
// DataSeries row expression. DataSeries objects are never created
// through the equation surface syntax (§6: only via
// data_series.set_expression), so there is no LHS to name it from; a
// fixed convention keeps row expressions (§4.9: "rows may themselves call
// back into the series") uniform.
const dataSeriesIndexVar = "x"

// Define parses a complete equation ("name = value", "name(p...) = expr",
// or "name(idx) = e0;...;ek") and creates a new object for it (§6).
//
// A structural failure — the equation doesn't tokenise to one of the
// three surface forms, or the name is already bound — commits nothing
// and returns a zero Slot. A semantic failure during resolution of the
// RHS (an undefined reference, a wrong-kind reference, an arity
// mismatch) still commits the object, in an error state, under its name:
// this is what lets a later Define of the missing dependency heal it
// through propagate without an explicit reparse call (§4.8).
func (w *World) Define(equation string) (objects.Slot, *zerr.Error) {
	lhsText, rhsText, ok := splitTopLevelChar(equation, '=')
	if !ok {
		return objects.Slot{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
	}
	shape, err := parseLHS(lhsText, equation)
	if err != nil {
		return objects.Slot{}, err
	}
	if _, exists := w.names[shape.name]; exists {
		return objects.Slot{}, zerr.New(zerr.NameAlreadyTaken, zerr.PhaseParse, zerr.Span{}, equation, shape.name)
	}

	if shape.params == nil {
		return w.defineConstant(shape.name, rhsText, equation)
	}

	pieces := splitTopLevelPieces(rhsText, ';')
	if len(pieces) == 1 {
		if len(shape.params) < 1 {
			return objects.Slot{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
		}
		return w.defineFunction(shape.name, shape.params, pieces[0], equation)
	}
	if len(shape.params) != 1 {
		return objects.Slot{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
	}
	return w.defineSequence(shape.name, shape.params[0], pieces, equation)
}

func (w *World) defineConstant(name, rhsText, equation string) (objects.Slot, *zerr.Error) {
	node, err := buildExpr(rhsText)
	if err != nil {
		return objects.Slot{}, err
	}
	num, ok := node.(*ast.Number)
	if !ok {
		return objects.Slot{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
	}

	slot := objects.Slot{Kind: objects.ConstantKind, Index: w.allocConstant()}
	w.constants[slot.Index] = &objects.GlobalConstant{NameV: name, Value: num.Value, RevisionV: 1}
	w.names[name] = slot
	w.propagate(name)
	return slot, nil
}

func (w *World) defineFunction(name string, params []string, rhsText, equation string) (objects.Slot, *zerr.Error) {
	slot := objects.Slot{Kind: objects.UserFunctionKind, Index: w.allocFunction()}
	f := &objects.UserFunction{NameV: name, Source: equation, RHSText: rhsText, Params: params, RevisionV: 0}
	w.functions[slot.Index] = f
	w.names[name] = slot

	node, perr := w.parseResolveOne(rhsText, params, slot)
	if perr != nil {
		f.RHS, f.ErrV = nil, perr
	} else {
		f.RHS, f.ErrV = node, nil
	}
	f.RevisionV = w.nextRevision(f.RevisionV, f.Deps)
	w.propagate(name)
	return slot, perr
}

func (w *World) defineSequence(name, idxVar string, pieces []string, equation string) (objects.Slot, *zerr.Error) {
	slot := objects.Slot{Kind: objects.SequenceKind, Index: w.allocSequence()}
	s := &objects.Sequence{NameV: name, Source: equation, IndexVar: idxVar, PieceSource: pieces, Cache: w.newObjectCache()}
	w.sequences[slot.Index] = s
	w.names[name] = slot

	nodes, perr := w.parseResolveAll(pieces, []string{idxVar}, slot)
	if perr != nil {
		s.Seeds, s.General, s.ErrV = nil, nil, perr
	} else {
		s.Seeds, s.General, s.ErrV = nodes[:len(nodes)-1], nodes[len(nodes)-1], nil
	}
	s.RevisionV = w.nextRevision(s.RevisionV, s.Deps)
	w.propagate(name)
	return slot, perr
}

// DefineDataSeries creates an empty DataSeries bound to name (§6's
// data_series API has no equation form; rows are added with SetDataRow).
func (w *World) DefineDataSeries(name string) (objects.Slot, *zerr.Error) {
	if !isValidName(name) {
		return objects.Slot{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, name)
	}
	if _, exists := w.names[name]; exists {
		return objects.Slot{}, zerr.New(zerr.NameAlreadyTaken, zerr.PhaseParse, zerr.Span{}, name, name)
	}
	slot := objects.Slot{Kind: objects.DataSeriesKind, Index: w.allocDataSeries()}
	w.dataSeries[slot.Index] = &objects.DataSeries{
		NameV:     name,
		IndexVar:  dataSeriesIndexVar,
		RowSource: make(map[int]string),
		Rows:      make(map[int]resolve.Node),
		RowErr:    make(map[int]error),
		Cache:     w.newObjectCache(),
	}
	w.names[name] = slot
	w.propagate(name)
	return slot, nil
}

// SetDataRow parses source as an expression over the series' index
// variable and installs it at row (§6: data_series.set_expression). A row
// absent from the table evaluates as EmptyExpression (§4.9); an empty or
// all-whitespace source removes the row, so an "explicit empty" row
// evaluates the same as an absent one.
func (w *World) SetDataRow(slot objects.Slot, row int, source string) *zerr.Error {
	d, ok := w.DataSeries(slot)
	if !ok {
		return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, source)
	}
	if strings.TrimSpace(source) == "" {
		delete(d.Rows, row)
		delete(d.RowErr, row)
		delete(d.RowSource, row)
		d.RevisionV = w.nextRevision(d.RevisionV, d.Deps)
		w.propagate(d.NameV)
		return nil
	}

	d.RowSource[row] = source
	node, err := w.parseResolveOne(source, []string{d.IndexVar}, slot)
	if err != nil {
		delete(d.Rows, row)
		d.RowErr[row] = err
	} else {
		d.Rows[row] = node
		delete(d.RowErr, row)
	}
	d.RevisionV = w.nextRevision(d.RevisionV, d.Deps)
	w.propagate(d.NameV)
	return err
}

// Redefine replaces the content bound to slot with a new equation (§6).
// The equation's LHS name is not consulted for renaming — the slot keeps
// its current name, per the distilled spec's "mutated by further
// equations under the same name" lifecycle description — and its shape
// must match the slot's existing kind.
func (w *World) Redefine(slot objects.Slot, equation string) *zerr.Error {
	lhsText, rhsText, ok := splitTopLevelChar(equation, '=')
	if !ok {
		return zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
	}
	shape, err := parseLHS(lhsText, equation)
	if err != nil {
		return err
	}

	switch slot.Kind {
	case objects.ConstantKind:
		c, ok := w.Constant(slot)
		if !ok || shape.params != nil {
			return zerr.New(zerr.WrongObjectType, zerr.PhaseParse, zerr.Span{}, equation)
		}
		node, perr := buildExpr(rhsText)
		if perr != nil {
			return perr
		}
		num, ok := node.(*ast.Number)
		if !ok {
			return zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
		}
		c.Value = num.Value
		c.RevisionV++
		w.propagate(c.NameV)
		return nil

	case objects.UserFunctionKind:
		f, ok := w.Function(slot)
		if !ok || shape.params == nil {
			return zerr.New(zerr.WrongObjectType, zerr.PhaseParse, zerr.Span{}, equation)
		}
		pieces := splitTopLevelPieces(rhsText, ';')
		if len(pieces) != 1 {
			return zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
		}
		f.Source, f.RHSText, f.Params = equation, pieces[0], shape.params
		w.clearDeps(slot)
		node, perr := w.parseResolveOne(pieces[0], shape.params, slot)
		if perr != nil {
			f.RHS, f.ErrV = nil, perr
		} else {
			f.RHS, f.ErrV = node, nil
		}
		f.RevisionV = w.nextRevision(f.RevisionV, f.Deps)
		w.propagate(f.NameV)
		return perr

	case objects.SequenceKind:
		s, ok := w.Sequence(slot)
		if !ok || len(shape.params) != 1 {
			return zerr.New(zerr.WrongObjectType, zerr.PhaseParse, zerr.Span{}, equation)
		}
		pieces := splitTopLevelPieces(rhsText, ';')
		if len(pieces) < 2 {
			return zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, equation)
		}
		s.Source, s.IndexVar, s.PieceSource = equation, shape.params[0], pieces
		w.clearDeps(slot)
		nodes, perr := w.parseResolveAll(pieces, []string{shape.params[0]}, slot)
		if perr != nil {
			s.Seeds, s.General, s.ErrV = nil, nil, perr
		} else {
			s.Seeds, s.General, s.ErrV = nodes[:len(nodes)-1], nodes[len(nodes)-1], nil
		}
		s.RevisionV = w.nextRevision(s.RevisionV, s.Deps)
		w.propagate(s.NameV)
		return perr

	default:
		return zerr.New(zerr.WrongObjectType, zerr.PhaseParse, zerr.Span{}, equation)
	}
}

// Erase removes the object bound to name (§6). Its slot is released to
// the free-list; direct dependents are reparsed in place and surface
// whatever error results (typically UndefinedVariable/UndefinedFunction)
// until the name is reintroduced.
func (w *World) Erase(name string) *zerr.Error {
	slot, ok := w.names[name]
	if !ok {
		return zerr.New(zerr.ObjectNotInWorld, zerr.PhaseParse, zerr.Span{}, name, name)
	}
	delete(w.names, name)
	switch slot.Kind {
	case objects.ConstantKind:
		w.constants[slot.Index] = nil
		w.freeConstants = append(w.freeConstants, slot.Index)
	case objects.UserFunctionKind:
		w.functions[slot.Index] = nil
		w.freeFunctions = append(w.freeFunctions, slot.Index)
	case objects.SequenceKind:
		w.sequences[slot.Index] = nil
		w.freeSequences = append(w.freeSequences, slot.Index)
	case objects.DataSeriesKind:
		w.dataSeries[slot.Index] = nil
		w.freeDataSeries = append(w.freeDataSeries, slot.Index)
	default:
		return zerr.New(zerr.WrongObjectType, zerr.PhaseParse, zerr.Span{}, name)
	}
	w.propagate(name)
	return nil
}

func (w *World) allocConstant() int {
	if n := len(w.freeConstants); n > 0 {
		idx := w.freeConstants[n-1]
		w.freeConstants = w.freeConstants[:n-1]
		return idx
	}
	w.constants = append(w.constants, nil)
	return len(w.constants) - 1
}

func (w *World) allocFunction() int {
	if n := len(w.freeFunctions); n > 0 {
		idx := w.freeFunctions[n-1]
		w.freeFunctions = w.freeFunctions[:n-1]
		return idx
	}
	w.functions = append(w.functions, nil)
	return len(w.functions) - 1
}

func (w *World) allocSequence() int {
	if n := len(w.freeSequences); n > 0 {
		idx := w.freeSequences[n-1]
		w.freeSequences = w.freeSequences[:n-1]
		return idx
	}
	w.sequences = append(w.sequences, nil)
	return len(w.sequences) - 1
}

func (w *World) allocDataSeries() int {
	if n := len(w.freeDataSeries); n > 0 {
		idx := w.freeDataSeries[n-1]
		w.freeDataSeries = w.freeDataSeries[:n-1]
		return idx
	}
	w.dataSeries = append(w.dataSeries, nil)
	return len(w.dataSeries) - 1
}

// clearDeps drops a UserFunction/Sequence's own forward-dependency map
// before a (re)parse re-records it from scratch. DataSeries intentionally
// never clears: its Deps is merged across independently-edited rows
// (objects.go), so wiping it on every single-row edit would drop other
// rows' still-valid entries; the cost is that a stale name can linger in
// DirectDependencies/propagate until every row that ever referenced it is
// itself replaced, which is conservative rather than incorrect.
func (w *World) clearDeps(slot objects.Slot) {
	switch slot.Kind {
	case objects.UserFunctionKind:
		if f, ok := w.Function(slot); ok {
			f.Deps = nil
		}
	case objects.SequenceKind:
		if s, ok := w.Sequence(slot); ok {
			s.Deps = nil
		}
	}
}

// nextRevision computes the revision an object should carry after a
// (re)parse: strictly greater than its own previous value, and at least
// one more than every object it directly depends on, satisfying
// Invariant 5 (revision monotonicity transitively through reverse deps)
// without a separate non-reparsing bump pass.
func (w *World) nextRevision(current uint64, deps map[string]objects.DepInfo) uint64 {
	floor := current
	for name := range deps {
		slot, ok := w.names[name]
		if !ok {
			continue
		}
		if rev, ok := w.Revision(slot); ok && rev > floor {
			floor = rev
		}
	}
	return floor + 1
}

// propagate walks the reverse-dependency graph outward from name,
// reparsing every object reached exactly once (design note: "drain the
// affected entries into a worklist and iterate; convergence is
// guaranteed because reparse either clears or re-records each entry").
func (w *World) propagate(name string) {
	visited := make(map[objects.Slot]bool)
	var queue []objects.Slot
	for s := range w.reverseDeps[name] {
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		slot := queue[0]
		queue = queue[1:]
		if visited[slot] {
			continue
		}
		visited[slot] = true
		depName, ok := w.Name(slot)
		if !ok {
			continue
		}
		w.reparseInPlace(slot)
		for s := range w.reverseDeps[depName] {
			if !visited[s] {
				queue = append(queue, s)
			}
		}
	}
}

func (w *World) reparseInPlace(slot objects.Slot) {
	switch slot.Kind {
	case objects.UserFunctionKind:
		f, ok := w.Function(slot)
		if !ok {
			return
		}
		w.clearDeps(slot)
		node, err := w.parseResolveOne(f.RHSText, f.Params, slot)
		if err != nil {
			f.RHS, f.ErrV = nil, err
		} else {
			f.RHS, f.ErrV = node, nil
		}
		f.RevisionV = w.nextRevision(f.RevisionV, f.Deps)

	case objects.SequenceKind:
		s, ok := w.Sequence(slot)
		if !ok {
			return
		}
		w.clearDeps(slot)
		nodes, err := w.parseResolveAll(s.PieceSource, []string{s.IndexVar}, slot)
		if err != nil {
			s.Seeds, s.General, s.ErrV = nil, nil, err
		} else {
			s.Seeds, s.General, s.ErrV = nodes[:len(nodes)-1], nodes[len(nodes)-1], nil
		}
		s.RevisionV = w.nextRevision(s.RevisionV, s.Deps)

	case objects.DataSeriesKind:
		d, ok := w.DataSeries(slot)
		if !ok {
			return
		}
		for row, src := range d.RowSource {
			node, err := w.parseResolveOne(src, []string{d.IndexVar}, slot)
			if err != nil {
				delete(d.Rows, row)
				d.RowErr[row] = err
			} else {
				d.Rows[row] = node
				delete(d.RowErr, row)
			}
		}
		d.RevisionV = w.nextRevision(d.RevisionV, d.Deps)
	}
}

// parseResolveOne runs the full lex -> parse -> mark -> resolve pipeline
// (§2's data flow) for a single expression belonging to dependent.
func (w *World) parseResolveOne(exprText string, params []string, dependent objects.Slot) (resolve.Node, *zerr.Error) {
	node, err := buildExpr(exprText)
	if err != nil {
		return nil, err
	}
	marked := ast.MarkInputVariables(node, params)
	return resolve.Resolve(marked, dependent, w, exprText)
}

// parseResolveAll resolves each of pieces independently (a sequence's
// seeds plus general term), stopping at the first failure.
func (w *World) parseResolveAll(pieces []string, params []string, dependent objects.Slot) ([]resolve.Node, *zerr.Error) {
	nodes := make([]resolve.Node, len(pieces))
	for i, piece := range pieces {
		node, err := w.parseResolveOne(piece, params, dependent)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}

func buildExpr(text string) (ast.Node, *zerr.Error) {
	tokens, err := lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	return parser.Build(tokens[:len(tokens)-1], text)
}

// --- surface-syntax shape parsing ----------------------------------

type lhsShape struct {
	name   string
	params []string // nil for a bare-name (constant) LHS
}

// parseLHS recognises the two LHS forms of §6: a bare name, or
// name(p1, ..., pk) with each parameter a single identifier.
func parseLHS(lhsText, fullSource string) (lhsShape, *zerr.Error) {
	tokens, err := lexer.Tokenize(lhsText)
	if err != nil {
		return lhsShape{}, err
	}
	tokens = tokens[:len(tokens)-1] // drop EndOfExpression
	if len(tokens) == 0 {
		return lhsShape{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, fullSource)
	}

	if len(tokens) == 1 && tokens[0].Kind == token.Variable {
		return lhsShape{name: tokens[0].Text(lhsText)}, nil
	}

	if tokens[0].Kind != token.Function || len(tokens) < 3 || tokens[1].Kind != token.FunctionCallStart || tokens[len(tokens)-1].Kind != token.FunctionCallEnd {
		return lhsShape{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, fullSource)
	}
	name := tokens[0].Text(lhsText)

	var params []string
	start := 2
	for i := 2; i <= len(tokens)-1; i++ {
		if i == len(tokens)-1 || tokens[i].Kind == token.Separator {
			piece := tokens[start:i]
			if len(piece) != 1 || piece[0].Kind != token.Variable {
				return lhsShape{}, zerr.New(zerr.NotMathObjectDefinition, zerr.PhaseParse, zerr.Span{}, fullSource)
			}
			params = append(params, piece[0].Text(lhsText))
			start = i + 1
		}
	}
	return lhsShape{name: name, params: params}, nil
}

func isValidName(name string) bool {
	tokens, err := lexer.Tokenize(name)
	if err != nil {
		return false
	}
	tokens = tokens[:len(tokens)-1]
	return len(tokens) == 1 && tokens[0].Kind == token.Variable
}

// splitTopLevelChar finds the first occurrence of ch outside any
// parenthesis nesting and splits the string there (the '=' separating an
// equation's LHS from its RHS — never legal inside a syntactically valid
// LHS, so the first top-level one is always the right split point).
func splitTopLevelChar(s string, ch byte) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ch:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// splitTopLevelPieces splits s at every top-level occurrence of sep,
// trimming surrounding whitespace from each piece.
func splitTopLevelPieces(s string, sep byte) []string {
	depth := 0
	start := 0
	var pieces []string
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				pieces = append(pieces, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	pieces = append(pieces, strings.TrimSpace(s[start:]))
	return pieces
}
