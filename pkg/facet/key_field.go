package facet

import (
	"strings"

	"github.com/matst80/slask-audience/pkg/types"
)

// KeyField maps every value of one dimension to the rows carrying it.
type KeyField struct {
	Dimension types.Dimension
	Keys      map[string]types.RowSet
}

func NewKeyField(d types.Dimension) *KeyField {
	return &KeyField{Dimension: d, Keys: make(map[string]types.RowSet)}
}

func (f *KeyField) AddValueLink(value string, row int) bool {
	part := strings.TrimSpace(value)
	if part == "" {
		return false
	}
	if k, ok := f.Keys[part]; ok {
		k.Add(row)
	} else {
		f.Keys[part] = types.RowSet{row: struct{}{}}
	}
	return true
}

func (f *KeyField) match(value string) types.RowSet {
	if ids, ok := f.Keys[value]; ok {
		return ids
	}
	return nil
}

// Match returns the union of rows for the given values.
func (f *KeyField) Match(values types.Values) types.RowSet {
	ret := make(types.RowSet)
	if f == nil {
		return ret
	}
	for _, v := range values {
		if r := f.match(v); r != nil {
			ret.Merge(r)
		}
	}
	return ret
}
