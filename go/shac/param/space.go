package param

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Space is an ordered collection of Parameters. Declaration order is the
// schema's canonical order: every encode/decode/persisted row walks
// parameters in this order, never in map iteration order.
type Space struct {
	params []Parameter
	index  map[string]int
}

// NewSpace builds a Space from an ordered list of Parameters. Names must
// be unique.
func NewSpace(params ...Parameter) (*Space, error) {
	index := make(map[string]int, len(params))
	for i, p := range params {
		if _, dup := index[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name())
		}
		index[p.Name()] = i
	}
	cp := make([]Parameter, len(params))
	copy(cp, params)
	return &Space{params: cp, index: index}, nil
}

// Arity is the number of declared parameters.
func (s *Space) Arity() int { return len(s.params) }

// Names returns the parameter names in declaration order.
func (s *Space) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name()
	}
	return names
}

// Parameters returns the declared parameters in declaration order.
func (s *Space) Parameters() []Parameter {
	cp := make([]Parameter, len(s.params))
	copy(cp, s.params)
	return cp
}

// Sample draws one value per parameter, independently, using rng.
func (s *Space) Sample(rng *rand.Rand) Sample {
	out := make(Sample, len(s.params))
	for _, p := range s.params {
		out[p.Name()] = p.Sample(rng)
	}
	return out
}

// Encode maps a Sample to a real-valued vector, in declaration order.
func (s *Space) Encode(sample Sample) ([]float64, error) {
	vec := make([]float64, len(s.params))
	for i, p := range s.params {
		v, ok := sample[p.Name()]
		if !ok {
			return nil, fmt.Errorf("sample is missing value for parameter %q", p.Name())
		}
		f, err := p.Encode(v)
		if err != nil {
			return nil, err
		}
		vec[i] = f
	}
	return vec, nil
}

// Decode is the inverse of Encode: exact for numeric dimensions, nearest
// valid ordinal (clamped) for Discrete dimensions.
func (s *Space) Decode(vec []float64) (Sample, error) {
	if len(vec) != len(s.params) {
		return nil, fmt.Errorf("vector has length %d, expected %d", len(vec), len(s.params))
	}
	out := make(Sample, len(s.params))
	for i, p := range s.params {
		out[p.Name()] = p.Decode(vec[i])
	}
	return out, nil
}

// Conforms reports whether sample has exactly this space's parameter
// names (no extras, no missing), the contract Dataset.Append relies on.
func (s *Space) Conforms(sample Sample) bool {
	if len(sample) != len(s.params) {
		return false
	}
	for _, p := range s.params {
		if _, ok := sample[p.Name()]; !ok {
			return false
		}
	}
	return true
}

// --- JSON schema persistence (parameters.json) ---

// paramSchema is the on-disk representation of one Parameter.
type paramSchema struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	ValueType ValueType `json:"value_type,omitempty"`
	Values    []any     `json:"values,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Mean      *float64  `json:"mean,omitempty"`
	StdDev    *float64  `json:"stddev,omitempty"`
}

// MarshalJSON writes the Space as the parameters.json schema document.
func (s *Space) MarshalJSON() ([]byte, error) {
	schemas := make([]paramSchema, len(s.params))
	for i, p := range s.params {
		switch x := p.(type) {
		case *Discrete:
			schemas[i] = paramSchema{Name: x.Name(), Kind: KindDiscrete, ValueType: x.ValueType(), Values: x.Values()}
		case *UniformContinuous:
			low, high := x.Low(), x.High()
			schemas[i] = paramSchema{Name: x.Name(), Kind: KindUniformContinuous, Low: &low, High: &high}
		case *NormalContinuous:
			mean, stddev := x.Mean(), x.StdDev()
			schemas[i] = paramSchema{Name: x.Name(), Kind: KindNormalContinuous, Mean: &mean, StdDev: &stddev}
		default:
			return nil, fmt.Errorf("parameter %q has unsupported concrete type %T", p.Name(), p)
		}
	}
	return json.Marshal(schemas)
}

// UnmarshalJSON rebuilds a Space from a parameters.json document. Space
// must be constructed via NewSpace afterwards is not required: this
// populates the receiver in place, matching encoding/json convention.
func (s *Space) UnmarshalJSON(data []byte) error {
	var schemas []paramSchema
	if err := json.Unmarshal(data, &schemas); err != nil {
		return err
	}
	params := make([]Parameter, 0, len(schemas))
	for _, sc := range schemas {
		p, err := paramFromSchema(sc)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	built, err := NewSpace(params...)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}

func paramFromSchema(sc paramSchema) (Parameter, error) {
	switch sc.Kind {
	case KindDiscrete:
		values, err := coerceValues(sc.Values, sc.ValueType)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", sc.Name, err)
		}
		return NewDiscrete(sc.Name, values)
	case KindUniformContinuous:
		if sc.Low == nil || sc.High == nil {
			return nil, fmt.Errorf("param %q: uniform_continuous requires low and high", sc.Name)
		}
		return NewUniformContinuous(sc.Name, *sc.Low, *sc.High)
	case KindNormalContinuous:
		if sc.Mean == nil || sc.StdDev == nil {
			return nil, fmt.Errorf("param %q: normal_continuous requires mean and stddev", sc.Name)
		}
		return NewNormalContinuous(sc.Name, *sc.Mean, *sc.StdDev)
	default:
		return nil, fmt.Errorf("param %q: unknown kind %q", sc.Name, sc.Kind)
	}
}

// coerceValues re-types JSON-decoded values (always float64 or string)
// back to the declared value type, since encoding/json has no int type.
func coerceValues(values []any, vt ValueType) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		switch vt {
		case ValueInt:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("value %d: expected number for int value_type", i)
			}
			out[i] = int64(f)
		case ValueReal:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("value %d: expected number for real value_type", i)
			}
			out[i] = f
		case ValueString:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("value %d: expected string for string value_type", i)
			}
			out[i] = str
		default:
			return nil, fmt.Errorf("unknown value_type %q", vt)
		}
	}
	return out, nil
}
