// Package param implements the SHAC search-space algebra: parameter
// declarations, joint sampling across a parameter space, and the
// encode/decode mapping between user-facing values and the real-valued
// vectors classifiers train on.
package param

import (
	"fmt"
	"math"
	"math/rand"
)

// Kind tags which variant of Parameter a declaration is.
type Kind string

const (
	KindDiscrete          Kind = "discrete"
	KindUniformContinuous Kind = "uniform_continuous"
	KindNormalContinuous  Kind = "normal_continuous"
)

// ValueType tags the uniform type of a Discrete parameter's value list.
type ValueType string

const (
	ValueInt    ValueType = "int"
	ValueReal   ValueType = "real"
	ValueString ValueType = "string"
)

// Sample is one joint draw from a Parameter Space: a mapping from
// parameter name to decoded (user-facing) value. Iteration order for
// encoding/decoding/persistence is always taken from the owning Space,
// not from this map.
type Sample map[string]any

// Clone returns a shallow copy, since Dataset.Append must never let a
// caller mutate a stored sample after the fact.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Parameter declares one search-space dimension.
type Parameter interface {
	Name() string
	Kind() Kind
	// Sample draws one value from this dimension's distribution.
	Sample(rng *rand.Rand) any
	// Encode maps a decoded value to its real-valued encoding.
	Encode(v any) (float64, error)
	// Decode is the inverse of Encode (exact for numeric kinds, nearest
	// valid ordinal for Discrete).
	Decode(f float64) any
}

// Discrete is a parameter drawn uniformly from an ordered list of values
// of one uniform type (int, real, or string).
type Discrete struct {
	name      string
	values    []any
	valueType ValueType
}

// NewDiscrete builds a Discrete parameter. values must be non-empty and of
// a single type: all int64, all float64, or all string.
func NewDiscrete(name string, values []any) (*Discrete, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("param %q: discrete parameter needs at least one value", name)
	}
	vt, err := inferValueType(values)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", name, err)
	}
	cp := make([]any, len(values))
	copy(cp, values)
	return &Discrete{name: name, values: cp, valueType: vt}, nil
}

func inferValueType(values []any) (ValueType, error) {
	var vt ValueType
	for i, v := range values {
		var cur ValueType
		switch v.(type) {
		case int, int64:
			cur = ValueInt
		case float64, float32:
			cur = ValueReal
		case string:
			cur = ValueString
		default:
			return "", fmt.Errorf("value %d has unsupported type %T", i, v)
		}
		if i == 0 {
			vt = cur
		} else if cur != vt {
			return "", fmt.Errorf("value %d is %s, expected uniform type %s", i, cur, vt)
		}
	}
	return vt, nil
}

func (d *Discrete) Name() string   { return d.name }
func (d *Discrete) Kind() Kind     { return KindDiscrete }
func (d *Discrete) ValueType() ValueType { return d.valueType }
func (d *Discrete) Values() []any {
	cp := make([]any, len(d.values))
	copy(cp, d.values)
	return cp
}

func (d *Discrete) Sample(rng *rand.Rand) any {
	idx := rng.Intn(len(d.values))
	return d.values[idx]
}

func (d *Discrete) Encode(v any) (float64, error) {
	for i, existing := range d.values {
		if valuesEqual(existing, v) {
			return float64(i), nil
		}
	}
	return 0, fmt.Errorf("param %q: value %v is not a member of the declared values", d.name, v)
}

func (d *Discrete) Decode(f float64) any {
	idx := int(math.Round(f))
	if idx < 0 {
		idx = 0
	}
	if idx > len(d.values)-1 {
		idx = len(d.values) - 1
	}
	return d.values[idx]
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case int:
		bv, ok := toInt(b)
		return ok && int64(av) == bv
	case int64:
		bv, ok := toInt(b)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	default:
		return a == b
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

// UniformContinuous draws uniformly on the half-open interval [Low, High).
type UniformContinuous struct {
	name       string
	low, high  float64
}

// NewUniformContinuous builds a Uniform-Continuous parameter; low must be <= high.
func NewUniformContinuous(name string, low, high float64) (*UniformContinuous, error) {
	if low > high {
		return nil, fmt.Errorf("param %q: low (%v) must be <= high (%v)", name, low, high)
	}
	return &UniformContinuous{name: name, low: low, high: high}, nil
}

func (u *UniformContinuous) Name() string  { return u.name }
func (u *UniformContinuous) Kind() Kind    { return KindUniformContinuous }
func (u *UniformContinuous) Low() float64  { return u.low }
func (u *UniformContinuous) High() float64 { return u.high }

func (u *UniformContinuous) Sample(rng *rand.Rand) any {
	return u.low + rng.Float64()*(u.high-u.low)
}

func (u *UniformContinuous) Encode(v any) (float64, error) {
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("param %q: value %v is not numeric", u.name, v)
	}
	return f, nil
}

func (u *UniformContinuous) Decode(f float64) any { return f }

// NormalContinuous draws from N(Mean, StdDev^2). Draws are never clipped.
type NormalContinuous struct {
	name           string
	mean, stddev   float64
}

// NewNormalContinuous builds a Normal-Continuous parameter; stddev must be > 0.
func NewNormalContinuous(name string, mean, stddev float64) (*NormalContinuous, error) {
	if stddev <= 0 {
		return nil, fmt.Errorf("param %q: stddev (%v) must be > 0", name, stddev)
	}
	return &NormalContinuous{name: name, mean: mean, stddev: stddev}, nil
}

func (n *NormalContinuous) Name() string   { return n.name }
func (n *NormalContinuous) Kind() Kind     { return KindNormalContinuous }
func (n *NormalContinuous) Mean() float64   { return n.mean }
func (n *NormalContinuous) StdDev() float64 { return n.stddev }

func (n *NormalContinuous) Sample(rng *rand.Rand) any {
	return n.mean + rng.NormFloat64()*n.stddev
}

func (n *NormalContinuous) Encode(v any) (float64, error) {
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("param %q: value %v is not numeric", n.name, v)
	}
	return f, nil
}

func (n *NormalContinuous) Decode(f float64) any { return f }

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
