// Command zecalc-repl is a thin line-oriented shell over the zecalc
// registry: one equation or expression per line, plus a handful of
// ':'-prefixed introspection commands. It exists to exercise the public
// API end to end, not as a serious tool — there is no readline/history.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mcgru/zecalc"
	"github.com/mcgru/zecalc/internal/config"
)

func main() {
	world := zecalc.NewWorld()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("zecalc-repl: enter \"name = expr\", a bare expression, or :help")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			runCommand(world, line)
			continue
		}
		runLine(world, line)
	}
}

func runCommand(world *zecalc.World, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case ":help":
		fmt.Println(`commands:
  name = value                define a constant
  f(x, y) = expr               define a function
  u(n) = e0 ; e1 ; general(n)  define a sequence
  expr                         evaluate a standalone expression
  :explain <expr>               show the lex/parse/resolve stages
  :deps <name>                  show a name's direct dependencies
  :erase <name>                 remove a name
  :series <name>                create an empty data series
  :row <name> <i> <expr>         set (or, with empty expr, clear) a data series row
  :builtins                     list seeded constants and functions
  :quit`)

	case ":builtins":
		fmt.Print(config.Help())

	case ":quit":
		os.Exit(0)

	case ":explain":
		ctx := world.Explain(rest, nil)
		fmt.Printf("tokens: %d\n", len(ctx.Tokens))
		fmt.Printf("ast:    %#v\n", ctx.AST)
		if ctx.Err != nil {
			fmt.Printf("error:  %s\n", ctx.Err)
			return
		}
		fmt.Printf("fast:   %#v\n", ctx.Resolved)

	case ":deps":
		h, ok := world.Get(rest)
		if !ok {
			fmt.Printf("%q is not defined\n", rest)
			return
		}
		deps, _ := h.DirectDependencies()
		if len(deps) == 0 {
			fmt.Println("(no dependencies)")
			return
		}
		for name, info := range deps {
			fmt.Printf("  %s (kind %d, %d occurrence(s))\n", name, info.Kind, len(info.Positions))
		}

	case ":erase":
		if err := world.Erase(rest); err != nil {
			fmt.Printf("error: %s\n", err)
		}

	case ":series":
		if _, err := world.DefineDataSeries(rest); err != nil {
			fmt.Printf("error: %s\n", err)
		}

	case ":row":
		parts := strings.SplitN(rest, " ", 3)
		if len(parts) < 2 {
			fmt.Println("usage: :row <name> <i> [expr]")
			return
		}
		h, ok := world.Get(parts[0])
		if !ok {
			fmt.Printf("%q is not defined\n", parts[0])
			return
		}
		row := 0
		if _, err := fmt.Sscanf(parts[1], "%d", &row); err != nil {
			fmt.Printf("error: %q is not an integer row\n", parts[1])
			return
		}
		expr := ""
		if len(parts) == 3 {
			expr = parts[2]
		}
		if err := h.SetDataRow(row, expr); err != nil {
			fmt.Printf("error: %s\n", err)
		}

	default:
		fmt.Printf("unknown command %q (:help for a list)\n", cmd)
	}
}

func runLine(world *zecalc.World, line string) {
	if looksLikeDefinition(line) {
		h, err := world.Define(line)
		if err != nil && !h.Valid() {
			fmt.Printf("error: %s\n", err)
			return
		}
		if err != nil {
			fmt.Printf("defined %s, but: %s\n", h, err)
			return
		}
		fmt.Printf("defined %s\n", h)
		return
	}

	v, err := world.EvaluateExpression(line)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	fmt.Println(v)
}

// looksLikeDefinition is a REPL-only heuristic, not the registry's own
// classifier (internal/world.Define parses the LHS properly): the LHS of
// a definition is always a bare name or name(params), so it can never
// contain an arithmetic operator or start with a digit — the only other
// use of '=' in a line is the legacy equality operator, which always
// appears inside a fuller arithmetic expression.
func looksLikeDefinition(line string) bool {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return false
	}
	lhs := strings.TrimSpace(line[:eq])
	if lhs == "" || strings.ContainsAny(lhs, "+-*/^") {
		return false
	}
	return !(lhs[0] >= '0' && lhs[0] <= '9')
}
