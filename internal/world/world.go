// Package world implements the math-world registry (§4.7-4.9): the
// slotted container that owns every object by stable Slot, indexes them
// by name, tracks reverse dependencies for rebuild propagation, and
// carries the per-registry recursion budget and cache sizing.
//
// Identity design (§3, §9): each object kind gets its own slice acting as
// a slotted deque, with a free-list of indices released by Erase so a
// long-lived registry doesn't grow unboundedly under define/erase churn.
// A Slot (kind, index) is the object's identity for the registry's
// lifetime — stable across redefinition (there is no rename operation) — while
// the public-facing zecalc.Handle (outside this package) stamps a Slot
// with a UUID for external API stability independent of slot reuse.
package world

import (
	"github.com/mcgru/zecalc/internal/cache"
	"github.com/mcgru/zecalc/internal/config"
	"github.com/mcgru/zecalc/internal/objects"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
)

const (
	defaultMaxRecursionDepth = 100
	defaultCacheSize         = 32
)

// World is the registry. The zero value is not usable; construct with New.
type World struct {
	constants []*objects.GlobalConstant
	functions []*objects.UserFunction
	sequences []*objects.Sequence
	dataSeries []*objects.DataSeries
	builtins  []*objects.BuiltinFunction

	freeConstants  []int
	freeFunctions  []int
	freeSequences  []int
	freeDataSeries []int

	names       map[string]objects.Slot
	reverseDeps map[string]map[objects.Slot]bool

	maxRecursionDepth int
	cacheSize         int
}

// New constructs a World seeded with the built-in constants and unary
// functions of §6, plus the five binary operators in functional form.
func New() *World {
	w := &World{
		names:             make(map[string]objects.Slot),
		reverseDeps:       make(map[string]map[objects.Slot]bool),
		maxRecursionDepth: defaultMaxRecursionDepth,
		cacheSize:         defaultCacheSize,
	}
	w.seedBuiltins()
	return w
}

func (w *World) seedBuiltins() {
	for _, c := range config.Constants {
		slot := objects.Slot{Kind: objects.ConstantKind, Index: len(w.constants)}
		w.constants = append(w.constants, &objects.GlobalConstant{NameV: c.Name, Value: c.Value, RevisionV: 1})
		w.names[c.Name] = slot
	}
	for _, fn := range config.UnaryBuiltins {
		w.addBuiltin(fn.Name, 1, unaryNative(fn.Fn))
	}
	for _, fn := range config.BinaryBuiltins {
		w.addBuiltin(fn.Name, 2, binaryNative(fn.Fn))
	}
}

func unaryNative(f func(float64) float64) func([]float64) float64 {
	return func(args []float64) float64 { return f(args[0]) }
}

func binaryNative(f func(a, b float64) float64) func([]float64) float64 {
	return func(args []float64) float64 { return f(args[0], args[1]) }
}

func (w *World) addBuiltin(name string, arity int, native func([]float64) float64) {
	slot := objects.Slot{Kind: objects.BuiltinFunctionKind, Index: len(w.builtins)}
	w.builtins = append(w.builtins, &objects.BuiltinFunction{NameV: name, ArityV: arity, Native: native})
	w.names[name] = slot
}

// SetRecursionBudget overrides max_recursion_depth (§4.6) for every
// subsequent evaluation through this registry.
func (w *World) SetRecursionBudget(n int) {
	if n > 0 {
		w.maxRecursionDepth = n
	}
}

// MaxRecursionDepth reports the registry's configured recursion budget.
func (w *World) MaxRecursionDepth() int { return w.maxRecursionDepth }

// SetCacheSize changes the per-object cache buffer size (§4.7, default
// 32) applied to every Sequence/DataSeries created from this point on.
// Existing objects keep their current cache's capacity.
func (w *World) SetCacheSize(n int) {
	if n >= 0 {
		w.cacheSize = n
	}
}

func (w *World) newObjectCache() *cache.Cache { return cache.New(w.cacheSize) }

// --- resolve.Lookup -----------------------------------------------------

func (w *World) Find(name string) (resolve.Slot, resolve.Kind, int, bool) {
	slot, ok := w.names[name]
	if !ok {
		return resolve.Slot{}, 0, 0, false
	}
	switch slot.Kind {
	case objects.ConstantKind:
		return slot, slot.Kind, 0, true
	case objects.UserFunctionKind:
		return slot, slot.Kind, w.functions[slot.Index].Arity(), true
	case objects.SequenceKind:
		return slot, slot.Kind, 1, true
	case objects.DataSeriesKind:
		return slot, slot.Kind, 1, true
	case objects.BuiltinFunctionKind:
		return slot, slot.Kind, w.builtins[slot.Index].Arity(), true
	}
	return resolve.Slot{}, 0, 0, false
}

func (w *World) IsErrored(slot resolve.Slot) bool {
	if slot.Kind == objects.DataSeriesKind {
		// Row-level errors are an eval-time concern (§4.9): a DataSeries
		// is callable as long as it exists, even if some rows are broken.
		return false
	}
	obj, ok := w.object(slot)
	if !ok {
		return true
	}
	return obj.Err() != nil
}

func (w *World) RecordDependency(name string, dependent resolve.Slot, kind resolve.Kind, pos token.Substring) {
	set, ok := w.reverseDeps[name]
	if !ok {
		set = make(map[objects.Slot]bool)
		w.reverseDeps[name] = set
	}
	set[dependent] = true
	w.addForwardDep(dependent, name, kind, pos)
}

// addForwardDep records name into dependent's own Deps map, for
// handle.direct_dependencies() (§6). GlobalConstant and BuiltinFunction
// never have dependencies and so have no-op cases.
func (w *World) addForwardDep(dependent objects.Slot, name string, kind resolve.Kind, pos token.Substring) {
	merge := func(deps map[string]objects.DepInfo) {
		info := deps[name]
		info.Kind = kind
		info.Positions = append(info.Positions, pos)
		deps[name] = info
	}
	switch dependent.Kind {
	case objects.UserFunctionKind:
		if f, ok := w.Function(dependent); ok {
			if f.Deps == nil {
				f.Deps = make(map[string]objects.DepInfo)
			}
			merge(f.Deps)
		}
	case objects.SequenceKind:
		if s, ok := w.Sequence(dependent); ok {
			if s.Deps == nil {
				s.Deps = make(map[string]objects.DepInfo)
			}
			merge(s.Deps)
		}
	case objects.DataSeriesKind:
		if d, ok := w.DataSeries(dependent); ok {
			if d.Deps == nil {
				d.Deps = make(map[string]objects.DepInfo)
			}
			merge(d.Deps)
		}
	}
}

// --- eval.Store -----------------------------------------------------

func (w *World) Constant(slot objects.Slot) (*objects.GlobalConstant, bool) {
	if slot.Kind != objects.ConstantKind || slot.Index < 0 || slot.Index >= len(w.constants) || w.constants[slot.Index] == nil {
		return nil, false
	}
	return w.constants[slot.Index], true
}

func (w *World) Function(slot objects.Slot) (*objects.UserFunction, bool) {
	if slot.Kind != objects.UserFunctionKind || slot.Index < 0 || slot.Index >= len(w.functions) || w.functions[slot.Index] == nil {
		return nil, false
	}
	return w.functions[slot.Index], true
}

func (w *World) Sequence(slot objects.Slot) (*objects.Sequence, bool) {
	if slot.Kind != objects.SequenceKind || slot.Index < 0 || slot.Index >= len(w.sequences) || w.sequences[slot.Index] == nil {
		return nil, false
	}
	return w.sequences[slot.Index], true
}

func (w *World) DataSeries(slot objects.Slot) (*objects.DataSeries, bool) {
	if slot.Kind != objects.DataSeriesKind || slot.Index < 0 || slot.Index >= len(w.dataSeries) || w.dataSeries[slot.Index] == nil {
		return nil, false
	}
	return w.dataSeries[slot.Index], true
}

func (w *World) Builtin(slot objects.Slot) (*objects.BuiltinFunction, bool) {
	if slot.Kind != objects.BuiltinFunctionKind || slot.Index < 0 || slot.Index >= len(w.builtins) || w.builtins[slot.Index] == nil {
		return nil, false
	}
	return w.builtins[slot.Index], true
}

// object returns the generic Object interface for any slot kind.
func (w *World) object(slot objects.Slot) (objects.Object, bool) {
	switch slot.Kind {
	case objects.ConstantKind:
		if c, ok := w.Constant(slot); ok {
			return c, true
		}
	case objects.UserFunctionKind:
		if f, ok := w.Function(slot); ok {
			return f, true
		}
	case objects.SequenceKind:
		if s, ok := w.Sequence(slot); ok {
			return s, true
		}
	case objects.DataSeriesKind:
		if d, ok := w.DataSeries(slot); ok {
			return d, true
		}
	case objects.BuiltinFunctionKind:
		if b, ok := w.Builtin(slot); ok {
			return b, true
		}
	}
	return nil, false
}

// Get looks up a bound name and returns its slot.
func (w *World) Get(name string) (objects.Slot, bool) {
	slot, ok := w.names[name]
	return slot, ok
}

// Name returns the current name bound to slot, if any.
func (w *World) Name(slot objects.Slot) (string, bool) {
	obj, ok := w.object(slot)
	if !ok {
		return "", false
	}
	return obj.Name(), true
}

// Revision returns the object's current revision counter.
func (w *World) Revision(slot objects.Slot) (uint64, bool) {
	obj, ok := w.object(slot)
	if !ok {
		return 0, false
	}
	return obj.Revision(), true
}

// DirectDependencies exposes the map handle.direct_dependencies() (§6) needs.
func (w *World) DirectDependencies(slot objects.Slot) (map[string]objects.DepInfo, bool) {
	obj, ok := w.object(slot)
	if !ok {
		return nil, false
	}
	return obj.DirectDependencies(), true
}

// ObjectError returns the object's own sticky error, if any.
func (w *World) ObjectError(slot objects.Slot) error {
	obj, ok := w.object(slot)
	if !ok {
		return nil
	}
	return obj.Err()
}
