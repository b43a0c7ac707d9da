package types

import (
	"slices"
	"strings"
)

// Values is an ordered, duplicate free list of facet values.
type Values []string

// Distinct trims, drops empty strings and keeps the first occurrence of
// every value.
func Distinct(in []string) Values {
	if len(in) == 0 {
		return Values{}
	}
	seen := make(ValueSet, len(in))
	ret := make(Values, 0, len(in))
	for _, v := range in {
		part := strings.TrimSpace(v)
		if part == "" || seen.Has(part) {
			continue
		}
		seen.Add(part)
		ret = append(ret, part)
	}
	return ret
}

func (v Values) Contains(value string) bool {
	return slices.Contains(v, value)
}

func (v Values) Set() ValueSet {
	return SetOf(v...)
}

// Filter keeps the values that are present in allowed, in v's order.
func (v Values) Filter(allowed Values) Values {
	keep := allowed.Set()
	ret := make(Values, 0, len(v))
	for _, value := range v {
		if keep.Has(value) {
			ret = append(ret, value)
		}
	}
	return ret
}

// Without returns the values in v that are not in other.
func (v Values) Without(other Values) Values {
	drop := other.Set()
	ret := make(Values, 0)
	for _, value := range v {
		if !drop.Has(value) {
			ret = append(ret, value)
		}
	}
	return ret
}

// Equal compares as sets.
func (v Values) Equal(other Values) bool {
	if len(v) != len(other) {
		return false
	}
	o := other.Set()
	for _, value := range v {
		if !o.Has(value) {
			return false
		}
	}
	return true
}

func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return slices.Clone(v)
}
