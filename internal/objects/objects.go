// Package objects defines the registry's object model: the five
// variants a name can be bound to (§3) and the bookkeeping every variant
// carries in common (source text for reparsing, revision counter for
// cache invalidation, direct-dependency map for reverse-dependency
// propagation, and a sticky error from the variant's own last parse).
//
// Kind and Slot are aliased from internal/resolve rather than redefined
// here: the FAST (internal/resolve.Node) must not depend on the object
// model that stores it, so resolve owns the identity types and objects
// imports them.
package objects

import (
	"github.com/mcgru/zecalc/internal/cache"
	"github.com/mcgru/zecalc/internal/resolve"
	"github.com/mcgru/zecalc/internal/token"
)

type Kind = resolve.Kind
type Slot = resolve.Slot

const (
	ConstantKind        = resolve.ConstantKind
	UserFunctionKind     = resolve.UserFunctionKind
	SequenceKind         = resolve.SequenceKind
	DataSeriesKind       = resolve.DataSeriesKind
	BuiltinFunctionKind  = resolve.BuiltinFunctionKind
)

// DepInfo records, for one name appearing in an object's direct
// dependencies, which kind it was resolved (or attempted) as and every
// source position it occurred at — enough to answer
// handle.direct_dependencies() (§6) without re-walking the FAST.
type DepInfo struct {
	Kind      Kind
	Positions []token.Substring
}

// Object is the common surface every registry entry exposes, regardless
// of variant. Concrete types are always used through a pointer so the
// registry can mutate an entry in place while preserving its Slot.
type Object interface {
	Name() string
	Revision() uint64
	DirectDependencies() map[string]DepInfo
	Err() error
}

// GlobalConstant is a name bound directly to a scalar value (§4.8): its
// value is taken verbatim from its defining equation's RHS leaf, never
// evaluated, so it has no dependencies and cannot itself error.
type GlobalConstant struct {
	NameV     string
	Value     float64
	RevisionV uint64
}

func (c *GlobalConstant) Name() string                     { return c.NameV }
func (c *GlobalConstant) Revision() uint64                 { return c.RevisionV }
func (c *GlobalConstant) DirectDependencies() map[string]DepInfo { return nil }
func (c *GlobalConstant) Err() error                        { return nil }

// UserFunction is a name bound to f(p0, p1, ...) = expr.
type UserFunction struct {
	NameV     string
	Source    string // the full "f(x,y) = expr" equation text, for display/diagnostics
	RHSText   string // just the RHS, re-tokenized on every reparse
	Params    []string
	RHS       resolve.Node // nil when ErrV != nil
	Deps      map[string]DepInfo
	RevisionV uint64
	ErrV      error
}

func (f *UserFunction) Name() string                     { return f.NameV }
func (f *UserFunction) Revision() uint64                 { return f.RevisionV }
func (f *UserFunction) DirectDependencies() map[string]DepInfo { return f.Deps }
func (f *UserFunction) Err() error                        { return f.ErrV }
func (f *UserFunction) Arity() int                        { return len(f.Params) }

// Sequence is a name bound to u(n) = e0 ; e1 ; ... ; e_{k-1} ; general(n),
// per §4.9: the first k pieces are seed values addressed by literal index,
// the last piece is the general term evaluated for every n >= k (and may
// recurse on u(n-1), u(n-2), ... through ordinary Call nodes).
type Sequence struct {
	NameV       string
	Source      string
	IndexVar    string
	PieceSource []string     // source text of each ';'-separated piece, seeds then general
	Seeds       []resolve.Node // len(Seeds) == len(PieceSource)-1; nil entries if ErrV != nil
	General     resolve.Node
	Deps        map[string]DepInfo
	RevisionV   uint64
	ErrV        error
	Cache       *cache.Cache
}

func (s *Sequence) Name() string                     { return s.NameV }
func (s *Sequence) Revision() uint64                 { return s.RevisionV }
func (s *Sequence) DirectDependencies() map[string]DepInfo { return s.Deps }
func (s *Sequence) Err() error                        { return s.ErrV }
func (s *Sequence) SeedCount() int                    { return len(s.Seeds) }

// DataSeries is a name bound to a sparse table of per-row equations
// (§4.10): u(3) = 7.5, u(9) = -2, etc., each an independent parsed
// expression over the series' single index variable. A row not present
// in Rows has no defined value. Dependencies are tracked at the series
// level rather than per row: the registry's reverse-dependency graph
// already only has name granularity, so per-row attribution would not
// change propagation behavior, only the detail in DirectDependencies().
type DataSeries struct {
	NameV     string
	IndexVar  string
	RowSource map[int]string
	Rows      map[int]resolve.Node
	Deps      map[string]DepInfo
	RevisionV uint64
	RowErr    map[int]error
	Cache     *cache.Cache
}

func (d *DataSeries) Name() string     { return d.NameV }
func (d *DataSeries) Revision() uint64 { return d.RevisionV }

func (d *DataSeries) DirectDependencies() map[string]DepInfo { return d.Deps }

// Err reports the first row error encountered, for the coarse
// Object.Err() surface; callers that need per-row detail use RowErr directly.
func (d *DataSeries) Err() error {
	for _, err := range d.RowErr {
		if err != nil {
			return err
		}
	}
	return nil
}

// BuiltinFunction is a natively-implemented function seeded at registry
// construction (§6): sin, sqrt, the binary operators when
// called in functional form, etc. It never errors and has no dependencies.
type BuiltinFunction struct {
	NameV  string
	ArityV int
	Native func(args []float64) float64
}

func (b *BuiltinFunction) Name() string                     { return b.NameV }
func (b *BuiltinFunction) Revision() uint64                 { return 0 }
func (b *BuiltinFunction) DirectDependencies() map[string]DepInfo { return nil }
func (b *BuiltinFunction) Err() error                        { return nil }
func (b *BuiltinFunction) Arity() int                        { return b.ArityV }
