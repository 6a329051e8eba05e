package config

import "strings"

// Help renders every seeded constant and builtin function into the
// human-readable listing cmd/zecalc-repl's :builtins prints, the same role
// the teacher's config.BuiltinFunctions table plays for its own -help
// output: one place that both seeds the registry and documents it, so the
// two can never drift apart silently.
func Help() string {
	var b strings.Builder
	b.WriteString("constants:\n")
	for _, c := range Constants {
		b.WriteString("  " + c.Name + "\n")
	}
	b.WriteString("unary functions:\n")
	for _, fn := range UnaryBuiltins {
		b.WriteString("  " + fn.Name + "(x)\n")
	}
	b.WriteString("binary functions:\n")
	for _, fn := range BinaryBuiltins {
		b.WriteString("  " + fn.Name + "(a, b)\n")
	}
	return b.String()
}
