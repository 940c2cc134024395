package filter

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// CompositeFilter combines child filters with AND, OR, or NOT. Children are
// constructed through the Builder supplied by the caller, so this package
// never imports the registry. A composite with no children matches every
// note ("unrestricted"), for all three operators.
type CompositeFilter struct {
	cfg      Config
	operator string
	children []Filter
}

// NewComposite builds a CompositeFilter, constructing each child config via
// build. It fails when any child fails to build.
func NewComposite(cfg Config, build Builder) (*CompositeFilter, error) {
	if build == nil {
		return nil, fmt.Errorf("composite filter: child builder is required")
	}

	f := &CompositeFilter{cfg: cfg.Clone()}
	f.operator, _ = stringField(cfg, "operator")

	childCfgs, _ := configSlice(cfg["filters"])
	f.children = make([]Filter, 0, len(childCfgs))
	for i, childCfg := range childCfgs {
		child, err := build(childCfg)
		if err != nil {
			return nil, fmt.Errorf("composite filter: build child %d: %w", i+1, err)
		}
		f.children = append(f.children, child)
	}
	return f, nil
}

// Children returns the live child filters, in config order.
func (f *CompositeFilter) Children() []Filter {
	return f.children
}

// ChildConfigs returns the child configs of a composite config, or nil when
// the "filters" field is absent or malformed. Used by callers that walk a
// config tree without building it, such as nesting-depth checks.
func ChildConfigs(c Config) []Config {
	children, _ := configSlice(c["filters"])
	return children
}

// Matches combines the children's decisions with the configured operator.
func (f *CompositeFilter) Matches(n models.Note) bool {
	return f.matches(func(child Filter) bool { return child.Matches(n) })
}

// MatchesWithContent combines the children's content-aware decisions.
func (f *CompositeFilter) MatchesWithContent(n models.NoteWithContent) bool {
	return f.matches(func(child Filter) bool { return child.MatchesWithContent(n) })
}

func (f *CompositeFilter) matches(childMatch func(Filter) bool) bool {
	if len(f.children) == 0 {
		return true
	}
	switch f.operator {
	case OpAnd:
		for _, child := range f.children {
			if !childMatch(child) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range f.children {
			if childMatch(child) {
				return true
			}
		}
		return false
	case OpNot:
		return !childMatch(f.children[0])
	}
	return false
}

// Apply returns the notes matching the composite.
func (f *CompositeFilter) Apply(notes []models.Note) []models.Note {
	return applyFilter(f, notes)
}

// ApplyWithContent returns the content-carrying notes matching the composite.
func (f *CompositeFilter) ApplyWithContent(notes []models.NoteWithContent) []models.NoteWithContent {
	return applyFilterWithContent(f, notes)
}

// Serialize returns a deep copy of the original config, descendants included.
func (f *CompositeFilter) Serialize() Config {
	return f.cfg.Clone()
}

// Validate checks the composite's own shape and aggregates every child's
// validation errors, prefixed with the child's position.
func (f *CompositeFilter) Validate() ValidationResult {
	var errs []string

	switch f.operator {
	case OpAnd, OpOr, OpNot:
	case "":
		errs = append(errs, "operator: Operator is required")
	default:
		errs = append(errs, fmt.Sprintf("operator: Must be %s, %s or %s", OpAnd, OpOr, OpNot))
	}

	if len(f.children) == 0 {
		errs = append(errs, "filters: At least one filter is required")
	}
	if f.operator == OpNot && len(f.children) != 1 {
		errs = append(errs, "NOT operator must have exactly one filter")
	}

	for i, child := range f.children {
		if res := child.Validate(); !res.Valid {
			errs = append(errs, fmt.Sprintf("Filter %d validation failed: %s", i+1, strings.Join(res.Errors, "; ")))
		}
	}

	if len(errs) > 0 {
		return invalidResult(errs)
	}
	return validResult()
}

// Describe joins the children's descriptions with the operator keyword.
func (f *CompositeFilter) Describe() string {
	if f.operator == OpNot {
		if len(f.children) == 0 {
			return "NOT ()"
		}
		return fmt.Sprintf("NOT (%s)", f.children[0].Describe())
	}
	descs := make([]string, len(f.children))
	for i, child := range f.children {
		descs[i] = child.Describe()
	}
	return fmt.Sprintf("(%s)", strings.Join(descs, " "+f.operator+" "))
}

// Clone deep-clones the composite and every descendant.
func (f *CompositeFilter) Clone() Filter {
	children := make([]Filter, len(f.children))
	for i, child := range f.children {
		children[i] = child.Clone()
	}
	return &CompositeFilter{
		cfg:      f.cfg.Clone(),
		operator: f.operator,
		children: children,
	}
}
