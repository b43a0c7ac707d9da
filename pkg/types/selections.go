package types

// Selections holds the chosen values per dimension. Missing keys are empty.
type Selections map[Dimension]Values

func (s Selections) Get(d Dimension) Values {
	if v, ok := s[d]; ok && v != nil {
		return v
	}
	return Values{}
}

func (s Selections) Set(d Dimension, values []string) {
	s[d] = Distinct(values)
}

func (s Selections) Clone() Selections {
	ret := make(Selections, len(s))
	for d, v := range s {
		ret[d] = v.Clone()
	}
	return ret
}

func (s Selections) Equal(other Selections) bool {
	for _, d := range AllDimensions {
		if !s.Get(d).Equal(other.Get(d)) {
			return false
		}
	}
	return true
}

// Domain returns only the selections that belong to the given domain.
func (s Selections) Domain(domain Domain) Selections {
	ret := make(Selections)
	for _, d := range domain.Dimensions() {
		ret[d] = s.Get(d).Clone()
	}
	return ret
}

func (s Selections) IsEmpty(dims ...Dimension) bool {
	if len(dims) == 0 {
		dims = AllDimensions
	}
	for _, d := range dims {
		if len(s.Get(d)) > 0 {
			return false
		}
	}
	return true
}
