package facet

import "github.com/matst80/slask-audience/pkg/types"

// TaxonomyIndex holds the valid (brand, section, product, model, item)
// combinations. Only combinations present verbatim are valid.
type TaxonomyIndex struct {
	rows   []types.HierarchyEntry
	fields map[types.Dimension]*KeyField
}

func NewTaxonomyIndex(entries []types.HierarchyEntry) *TaxonomyIndex {
	t := &TaxonomyIndex{
		rows:   make([]types.HierarchyEntry, 0, len(entries)),
		fields: make(map[types.Dimension]*KeyField, len(types.TaxonomyDimensions)),
	}
	for _, d := range types.TaxonomyDimensions {
		t.fields[d] = NewKeyField(d)
	}
	for _, e := range entries {
		if e.IsEmpty() {
			continue
		}
		row := len(t.rows)
		t.rows = append(t.rows, e)
		for _, d := range types.TaxonomyDimensions {
			t.fields[d].AddValueLink(e.Value(d), row)
		}
	}
	return t
}

func (t *TaxonomyIndex) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// matching returns the rows matching every dimension with a selection, in
// catalog order.
func (t *TaxonomyIndex) matching(sel types.Selections) []int {
	var rows types.RowSet
	for _, d := range types.TaxonomyDimensions {
		values := sel.Get(d)
		if len(values) == 0 {
			continue
		}
		m := t.fields[d].Match(values)
		if rows == nil {
			rows = m
		} else {
			rows.Intersect(m)
		}
		if len(rows) == 0 {
			return nil
		}
	}
	if rows == nil {
		all := make([]int, len(t.rows))
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rows.Sorted()
}

func (t *TaxonomyIndex) values(d types.Dimension, rows []int) types.Values {
	seen := types.ValueSet{}
	ret := types.Values{}
	for _, row := range rows {
		v := t.rows[row].Value(d)
		if v == "" || seen.Has(v) {
			continue
		}
		seen.Add(v)
		ret = append(ret, v)
	}
	return ret
}

// AllowedValues includes the constraint from d's own selection.
func (t *TaxonomyIndex) AllowedValues(d types.Dimension, sel types.Selections) types.Values {
	if t == nil || d.Domain() != types.TaxonomyDomain {
		return types.Values{}
	}
	return t.values(d, t.matching(sel))
}

func (t *TaxonomyIndex) Allowed(sel types.Selections) AllowedSets {
	ret := EmptyAllowed(types.TaxonomyDomain)
	if t == nil {
		return ret
	}
	rows := t.matching(sel)
	for _, d := range types.TaxonomyDimensions {
		ret[d] = t.values(d, rows)
	}
	return ret
}
