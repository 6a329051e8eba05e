// Package zerr defines the typed error values returned by every stage of
// the lex/parse/resolve/eval pipeline. Modeled on the teacher's
// internal/diagnostics package: a data-driven message table keyed by a
// short error code, a phase tag, and the offending token substring plus a
// copy of the full source string so a caller can always recover context
// without threading it through separately.
package zerr

import "fmt"

// Phase names the pipeline stage that raised the error.
type Phase string

const (
	PhaseLex     Phase = "lex"
	PhaseParse   Phase = "parse"
	PhaseResolve Phase = "resolve"
	PhaseEval    Phase = "eval"
)

// Code enumerates the error kinds of the distilled spec's error table.
type Code string

const (
	WrongFormat             Code = "WRONG_FORMAT"
	Unexpected              Code = "UNEXPECTED"
	Missing                 Code = "MISSING"
	UndefinedVariable       Code = "UNDEFINED_VARIABLE"
	UndefinedFunction       Code = "UNDEFINED_FUNCTION"
	WrongObjectType         Code = "WRONG_OBJECT_TYPE"
	ArgCountMismatch        Code = "ARG_COUNT_MISMATCH"
	ObjectInvalidState      Code = "OBJECT_INVALID_STATE"
	NameAlreadyTaken        Code = "NAME_ALREADY_TAKEN"
	NotMathObjectDefinition Code = "NOT_MATH_OBJECT_DEFINITION"
	RecursionDepthOverflow  Code = "RECURSION_DEPTH_OVERFLOW"
	EmptyExpression         Code = "EMPTY_EXPRESSION"
	CppIncorrectArgnum      Code = "CPP_INCORRECT_ARGNUM"
	ObjectNotInWorld        Code = "OBJECT_NOT_IN_WORLD"
	Unknown                 Code = "UNKNOWN"
)

var messageTemplates = map[Code]string{
	WrongFormat:             "invalid number literal or name: %q",
	Unexpected:              "unexpected %s",
	Missing:                 "missing %s",
	UndefinedVariable:       "undefined variable %q",
	UndefinedFunction:       "undefined function %q",
	WrongObjectType:         "%q resolves to the wrong kind of object",
	ArgCountMismatch:        "wrong number of arguments calling %q",
	ObjectInvalidState:      "%q transitively depends on an object in an error state",
	NameAlreadyTaken:        "name %q is already bound",
	NotMathObjectDefinition: "not a valid math object definition: expected \"name = value\", \"name(args) = expr\", or a sequence form",
	RecursionDepthOverflow:  "recursion depth exceeded",
	EmptyExpression:         "empty expression",
	CppIncorrectArgnum:      "wrong number of arguments in programmatic call",
	ObjectNotInWorld:        "object %q is not registered in this world",
	Unknown:                 "%s",
}

// Error is the single error type returned by every package in this
// module. It is always a value, never a panic.
type Error struct {
	Code     Code
	Phase    Phase
	Span     Span
	Source   string
	Args     []any
	Wrapped  error
}

// Span is the minimal interface zerr needs from a token/AST span, kept
// free of an import on internal/token so zerr has no dependents.
type Span struct {
	Begin int
	Size  int
}

func (e *Error) Error() string {
	template, ok := messageTemplates[e.Code]
	if !ok {
		template = messageTemplates[Unknown]
	}
	msg := template
	if len(e.Args) > 0 {
		msg = fmt.Sprintf(template, e.Args...)
	}
	phase := ""
	if e.Phase != "" {
		phase = fmt.Sprintf("[%s] ", e.Phase)
	}
	if e.Span.Size > 0 && e.Span.Begin >= 0 && e.Span.Begin+e.Span.Size <= len(e.Source) {
		text := e.Source[e.Span.Begin : e.Span.Begin+e.Span.Size]
		return fmt.Sprintf("%s%s (%s) at %d: %q", phase, e.Code, msg, e.Span.Begin, text)
	}
	return fmt.Sprintf("%s%s: %s", phase, e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is match on Code alone, which is how callers are
// expected to branch on error kind (per §7: "Errors are values ... return
// a sum of Result<double, Error>").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs an error with a code, phase, and source-text span.
func New(code Code, phase Phase, span Span, source string, args ...any) *Error {
	return &Error{Code: code, Phase: phase, Span: span, Source: source, Args: args}
}

// Wrap attaches phase/source context to an existing zerr.Error if it
// doesn't already carry it, or promotes a foreign error into Unknown.
func Wrap(phase Phase, span Span, source string, err error) *Error {
	if ze, ok := err.(*Error); ok {
		if ze.Phase == "" {
			ze.Phase = phase
		}
		if ze.Source == "" {
			ze.Source = source
		}
		return ze
	}
	return &Error{Code: Unknown, Phase: phase, Span: span, Source: source, Args: []any{err.Error()}, Wrapped: err}
}
