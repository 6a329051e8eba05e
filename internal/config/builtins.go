// Package config is the single source of truth for every object a fresh
// World is seeded with (§6): global constants, unary builtin functions,
// and the binary operators, each bound under its own operator glyph
// ("+", "-", "*", "/", "^") exactly as builtin_binary_functions.h
// registers them, so a reference to the bare glyph resolves to the same
// object the grammar's inline operator dispatch computes with. Grounded
// on the original implementation's builtin_unary_functions.h /
// builtin_binary_functions.h tables, translated into Go's math package,
// which covers the same libm surface the originals called into
// directly.
package config

import "math"

// Constant is one seeded global constant's name and value.
type Constant struct {
	Name  string
	Value float64
}

// Constants is the fixed table installed into every new World.
var Constants = []Constant{
	{"math::pi", math.Pi},
	{"math::π", math.Pi},
	{"physics::kB", 1.380649e-23},
	{"physics::h", 6.62607015e-34},
	{"physics::c", 299792458},
}

// UnaryBuiltin is one seeded single-argument builtin function.
type UnaryBuiltin struct {
	Name string
	Fn   func(float64) float64
}

// UnaryBuiltins mirrors builtin_unary_functions.h's table; ch/sh/th and
// ach/ash/ath are the original's alternate spellings of cosh/sinh/tanh
// and their inverses, kept for source compatibility with equations
// written against them.
var UnaryBuiltins = []UnaryBuiltin{
	{"cos", math.Cos},
	{"sin", math.Sin},
	{"tan", math.Tan},

	{"acos", math.Acos},
	{"asin", math.Asin},
	{"atan", math.Atan},

	{"cosh", math.Cosh},
	{"sinh", math.Sinh},
	{"tanh", math.Tanh},

	{"ch", math.Cosh},
	{"sh", math.Sinh},
	{"th", math.Tanh},

	{"acosh", math.Acosh},
	{"asinh", math.Asinh},
	{"atanh", math.Atanh},

	{"ach", math.Acosh},
	{"ash", math.Asinh},
	{"ath", math.Atanh},

	{"sqrt", math.Sqrt},
	{"log", math.Log10},
	{"lg", math.Log2},
	{"ln", math.Log},
	{"abs", math.Abs},
	{"exp", math.Exp},
	{"floor", math.Floor},
	{"ceil", math.Ceil},
	{"erf", math.Erf},
	{"erfc", math.Erfc},
	{"gamma", math.Gamma},
	{"Γ", math.Gamma},
}

// BinaryBuiltin is one seeded two-argument builtin function, making an
// operator callable in functional form.
type BinaryBuiltin struct {
	Name string
	Fn   func(a, b float64) float64
}

// BinaryBuiltins mirrors builtin_binary_functions.h's array of {glyph,
// function} pairs verbatim: the five binary operators are objects named
// after their own operator glyph (§6), resolvable by that name the same
// way a call like `math::pi` resolves a constant by its bound name. The
// parser's arithmetic grammar still reaches '+'/'-'/'*'/'/'/'^' inline as
// a BinOp and never looks these entries up by name, but the registry
// binds them so a lookup of the bare glyph via World.Get resolves to an
// object computing the same result as the grammar's operator dispatch.
// An expression cannot name them: the lexer always reads a glyph as an
// operator, never as an identifier.
var BinaryBuiltins = []BinaryBuiltin{
	{"+", plus},
	{"-", minus},
	{"*", multiply},
	{"/", Divide},
	{"^", math.Pow},
}

func plus(a, b float64) float64     { return a + b }
func minus(a, b float64) float64    { return a - b }
func multiply(a, b float64) float64 { return a * b }

// Divide implements '/' with the distilled spec's no-panic rule: a
// division by zero yields ±Inf (or NaN for 0/0) rather than an error,
// matching Go's float64 semantics, which the seeded "/" object exposes
// verbatim.
func Divide(a, b float64) float64 { return a / b }
