package facet

import "github.com/matst80/slask-audience/pkg/types"

// AllowedSets is the ordered list of legal values per dimension.
type AllowedSets map[types.Dimension]types.Values

func (a AllowedSets) Get(d types.Dimension) types.Values {
	if v, ok := a[d]; ok && v != nil {
		return v
	}
	return types.Values{}
}

func EmptyAllowed(domain types.Domain) AllowedSets {
	ret := make(AllowedSets)
	for _, d := range domain.Dimensions() {
		ret[d] = types.Values{}
	}
	return ret
}

// Merge copies other into a.
func (a AllowedSets) Merge(other AllowedSets) {
	for d, v := range other {
		a[d] = v
	}
}
