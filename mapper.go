package gridsearch

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/thalesfsp/gridsearch/learner"
	"golang.org/x/exp/constraints"
)

//////
// Const, vars, types.
//////

// Property path prefixes selecting the component an axis applies to.
const (
	ClassifierPrefix = "classifier."
	FilterPrefix     = "filter."
)

// mathFuncs are the functions callable from axis expressions.
var mathFuncs = map[string]any{
	"pow":   math.Pow,
	"log":   math.Log,
	"log10": math.Log10,
	"exp":   math.Exp,
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
}

// ParameterMapper turns grid coordinates into property values and assigns
// them onto classifier and filter clones.
//
// Thread safety:
//   - A ParameterMapper is read-only after construction and can be shared
//     by concurrent evaluations. The targets it configures are not shared.
type ParameterMapper struct {
	x, y         Axis
	progX, progY *vm.Program
}

//////
// Factory.
//////

// NewParameterMapper compiles the expressions of both axes.
//
// Returns:
//   - error: ErrInvalidConfig if an expression does not compile or a
//     property path lacks the classifier/filter prefix
func NewParameterMapper(x, y Axis) (*ParameterMapper, error) {
	progX, err := compileAxis(x)
	if err != nil {
		return nil, fmt.Errorf("%w: X axis: %w", ErrInvalidConfig, err)
	}

	progY, err := compileAxis(y)
	if err != nil {
		return nil, fmt.Errorf("%w: Y axis: %w", ErrInvalidConfig, err)
	}

	return &ParameterMapper{x: x, y: y, progX: progX, progY: progY}, nil
}

func compileAxis(a Axis) (*vm.Program, error) {
	if _, _, err := splitPath(a.Property); err != nil {
		return nil, err
	}

	if strings.TrimSpace(a.Expression) == "" {
		return nil, fmt.Errorf("property %q: empty expression", a.Property)
	}

	program, err := expr.Compile(a.Expression, expr.Env(axisEnv(a, 0)), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("property %q: compiling %q: %w", a.Property, a.Expression, err)
	}

	return program, nil
}

func axisEnv(a Axis, i float64) map[string]any {
	env := make(map[string]any, len(mathFuncs)+5)
	for name, fn := range mathFuncs {
		env[name] = fn
	}

	env["BASE"] = a.Base
	env["FROM"] = a.Min
	env["TO"] = a.Max
	env["STEP"] = a.Step
	env["I"] = i

	return env
}

// splitPath separates the component prefix from the property path.
func splitPath(path string) (category, rest string, err error) {
	switch {
	case strings.HasPrefix(path, ClassifierPrefix):
		return ClassifierPrefix, strings.TrimPrefix(path, ClassifierPrefix), nil
	case strings.HasPrefix(path, FilterPrefix):
		return FilterPrefix, strings.TrimPrefix(path, FilterPrefix), nil
	default:
		return "", "", fmt.Errorf("property %q must start with %q or %q", path, ClassifierPrefix, FilterPrefix)
	}
}

func categoryOf(target learner.Configurable) string {
	switch target.(type) {
	case learner.Classifier:
		return ClassifierPrefix
	case learner.Filter:
		return FilterPrefix
	default:
		return ""
	}
}

//////
// Methods.
//////

// Evaluate maps the grid coordinate value of one axis to its property value.
// A runtime failure of the expression yields NaN.
func (m *ParameterMapper) Evaluate(value float64, isX bool) float64 {
	axis, program := m.y, m.progY
	if isX {
		axis, program = m.x, m.progX
	}

	out, err := expr.Run(program, axisEnv(axis, value))
	if err != nil {
		return math.NaN()
	}

	v, ok := out.(float64)
	if !ok {
		return math.NaN()
	}

	return v
}

// Values returns the property values of both axes at p.
func (m *ParameterMapper) Values(p GridPoint) (x, y float64) {
	return m.Evaluate(p.X, true), m.Evaluate(p.Y, false)
}

// Apply assigns value to the property at path on target.
//
// The path prefix must match the kind of target: "classifier." for a
// learner.Classifier, "filter." for a learner.Filter. The value is coerced
// to the declared property kind:
//   - float64, float32: assigned directly
//   - int, int64: truncated toward zero; values beyond the type's range
//     are rejected
//   - bool: 0 is false, anything else true
//   - rune: truncated toward zero and used as a code point
//
// Returns:
//   - error: ErrInvalidArgument for a path that does not designate a
//     property of target, a NaN given to a non-float property or a value
//     out of range for an integer property;
//     ErrUnsupportedPropertyType for any other property kind
func (m *ParameterMapper) Apply(target learner.Configurable, path string, value float64) error {
	category, rest, err := splitPath(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if got := categoryOf(target); got != category {
		return fmt.Errorf("%w: property %q cannot be applied to %T", ErrInvalidArgument, path, target)
	}

	prop, err := learner.Resolve(target, rest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	coerced, err := coerce(prop.Kind(), value)
	if err != nil {
		return fmt.Errorf("property %q: %w", path, err)
	}

	return prop.Set(coerced)
}

func coerce(kind learner.Kind, value float64) (any, error) {
	switch kind {
	case learner.KindFloat64:
		return value, nil
	case learner.KindFloat32:
		return float32(value), nil
	case learner.KindString:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPropertyType, kind)
	}

	if math.IsNaN(value) {
		return nil, fmt.Errorf("%w: cannot assign NaN to a %s property", ErrInvalidArgument, kind)
	}

	switch kind {
	case learner.KindInt:
		return truncate[int](value, math.MinInt, math.MaxInt)
	case learner.KindInt64:
		return truncate[int64](value, math.MinInt64, math.MaxInt64)
	case learner.KindBool:
		return value != 0, nil
	case learner.KindRune:
		return truncate[rune](value, math.MinInt32, math.MaxInt32)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPropertyType, kind)
	}
}

// truncate converts v toward zero. Values outside [lo, hi] are rejected.
func truncate[T constraints.Integer](v float64, lo, hi T) (T, error) {
	t := math.Trunc(v)

	// float64(hi)+1 is exact for 32-bit bounds and rounds to 2^63 for 64-bit
	// ones, the first value that does not fit.
	if t < float64(lo) || t >= float64(hi)+1 {
		return 0, fmt.Errorf("%w: %v does not fit in %T", ErrInvalidArgument, v, hi)
	}

	return T(t), nil
}

// Setup applies the values of every axis whose prefix matches target. Axes
// meant for the other component are skipped.
func (m *ParameterMapper) Setup(target learner.Configurable, p GridPoint) error {
	category := categoryOf(target)
	x, y := m.Values(p)

	for _, a := range []struct {
		axis  Axis
		value float64
	}{{m.x, x}, {m.y, y}} {
		if category == "" || !strings.HasPrefix(a.axis.Property, category) {
			continue
		}

		if err := m.Apply(target, a.axis.Property, a.value); err != nil {
			return err
		}
	}

	return nil
}

// SetupClassifier returns a clone of c configured for p. c is not modified.
func (m *ParameterMapper) SetupClassifier(c learner.Classifier, p GridPoint) (learner.Classifier, error) {
	clone := c.Clone()
	if err := m.Setup(clone, p); err != nil {
		return nil, err
	}

	return clone, nil
}

// SetupFilter returns a clone of f configured for p. f is not modified.
func (m *ParameterMapper) SetupFilter(f learner.Filter, p GridPoint) (learner.Filter, error) {
	clone := f.Clone()
	if err := m.Setup(clone, p); err != nil {
		return nil, err
	}

	return clone, nil
}

// Check verifies that every axis designates a property of a supported kind
// on the template it targets. It catches configuration errors before any
// evaluation runs.
func (m *ParameterMapper) Check(c learner.Classifier, f learner.Filter) error {
	for _, a := range []Axis{m.x, m.y} {
		category, rest, err := splitPath(a.Property)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		var target learner.Configurable = c
		if category == FilterPrefix {
			target = f
		}

		prop, err := learner.Resolve(target, rest)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		if _, err := coerce(prop.Kind(), 0); err != nil {
			return fmt.Errorf("property %q: %w", a.Property, err)
		}
	}

	return nil
}
