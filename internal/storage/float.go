package storage

import (
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that survives JSON round trips when it is not finite.
// Finite values encode as numbers, the rest as the strings "NaN", "+Inf"
// and "-Inf".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Vector is a []float64 encoded element-wise as Float.
type Vector []float64

func (v Vector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make([]Float, len(v))
	for i, x := range v {
		out[i] = Float(x)
	}
	return json.Marshal(out)
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var in []Float
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*v = nil
		return nil
	}
	out := make(Vector, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	*v = out
	return nil
}
