package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// jsonFloat encodes NaN and infinities as the strings "NaN", "+Inf" and
// "-Inf", which encoding/json refuses to write as numbers.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = jsonFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e RollEntry) MarshalJSON() ([]byte, error) {
	type plain RollEntry
	return json.Marshal(struct {
		plain
		Total jsonFloat `json:"total"`
	}{plain(e), jsonFloat(e.Total)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *RollEntry) UnmarshalJSON(data []byte) error {
	type plain RollEntry
	var aux struct {
		plain
		Total jsonFloat `json:"total"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = RollEntry(aux.plain)
	e.Total = float64(aux.Total)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a ExpressionAggregate) MarshalJSON() ([]byte, error) {
	type plain ExpressionAggregate
	return json.Marshal(struct {
		plain
		Sum jsonFloat `json:"sum"`
		Min jsonFloat `json:"min"`
		Max jsonFloat `json:"max"`
	}{plain(a), jsonFloat(a.Sum), jsonFloat(a.Min), jsonFloat(a.Max)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *ExpressionAggregate) UnmarshalJSON(data []byte) error {
	type plain ExpressionAggregate
	var aux struct {
		plain
		Sum jsonFloat `json:"sum"`
		Min jsonFloat `json:"min"`
		Max jsonFloat `json:"max"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = ExpressionAggregate(aux.plain)
	a.Sum, a.Min, a.Max = float64(aux.Sum), float64(aux.Min), float64(aux.Max)
	return nil
}
