package facet

import "github.com/matst80/slask-audience/pkg/types"

// GeoIndex answers which branches, cities and states stay selectable. All
// city/state filtering goes through branch membership.
type GeoIndex struct {
	branches []string
	cities   map[string]types.Values
	states   map[string]types.Values
	byCity   *KeyField
	byState  *KeyField
}

func NewGeoIndex(branches []string, branchCities, branchStates map[string][]string) *GeoIndex {
	g := &GeoIndex{
		branches: make([]string, 0, len(branches)),
		cities:   make(map[string]types.Values, len(branchCities)),
		states:   make(map[string]types.Values, len(branchStates)),
		byCity:   NewKeyField(types.City),
		byState:  NewKeyField(types.State),
	}
	for b, c := range branchCities {
		g.cities[b] = types.Distinct(c)
	}
	for b, s := range branchStates {
		g.states[b] = types.Distinct(s)
	}
	for _, b := range types.Distinct(branches) {
		row := len(g.branches)
		g.branches = append(g.branches, b)
		for _, c := range g.cities[b] {
			g.byCity.AddValueLink(c, row)
		}
		for _, s := range g.states[b] {
			g.byState.AddValueLink(s, row)
		}
	}
	return g
}

func NewGeoIndexFromOptions(o *types.CampaignOptions) *GeoIndex {
	if o == nil {
		return NewGeoIndex(nil, nil, nil)
	}
	return NewGeoIndex(o.Branches, o.BranchCityMap, o.BranchStateMap)
}

func (g *GeoIndex) Len() int {
	if g == nil {
		return 0
	}
	return len(g.branches)
}

// eligible returns the rows of branches that serve one of the selected
// cities (if any) and one of the selected states (if any).
func (g *GeoIndex) eligible(sel types.Selections) types.RowSet {
	cities, states := sel.Get(types.City), sel.Get(types.State)
	var rows types.RowSet
	if len(cities) > 0 {
		rows = g.byCity.Match(cities)
	}
	if len(states) > 0 {
		byState := g.byState.Match(states)
		if rows == nil {
			rows = byState
		} else {
			rows.Intersect(byState)
		}
	}
	if rows == nil {
		rows = make(types.RowSet, len(g.branches))
		for i := range g.branches {
			rows.Add(i)
		}
	}
	return rows
}

func (g *GeoIndex) names(rows types.RowSet) types.Values {
	ret := make(types.Values, 0, len(rows))
	for _, row := range rows.Sorted() {
		ret = append(ret, g.branches[row])
	}
	return ret
}

func (g *GeoIndex) sourceBranches(sel types.Selections, eligible types.RowSet) types.Values {
	if selected := sel.Get(types.Branch); len(selected) > 0 {
		return selected
	}
	return g.names(eligible)
}

func (g *GeoIndex) AllowedBranches(sel types.Selections) types.Values {
	if g == nil {
		return types.Values{}
	}
	return g.names(g.eligible(sel))
}

func (g *GeoIndex) AllowedCities(sel types.Selections) types.Values {
	if g == nil {
		return types.Values{}
	}
	eligible := g.eligible(sel)
	return g.collect(g.sourceBranches(sel, eligible), g.cities, g.byCity, eligible, len(sel.Get(types.State)) > 0)
}

func (g *GeoIndex) AllowedStates(sel types.Selections) types.Values {
	if g == nil {
		return types.Values{}
	}
	eligible := g.eligible(sel)
	return g.collect(g.sourceBranches(sel, eligible), g.states, g.byState, eligible, len(sel.Get(types.City)) > 0)
}

// collect unions the values of the source branches. When the opposite
// dimension has a selection, a value is kept only if an eligible branch
// serves it; eligibility already requires serving a selected value of the
// opposite dimension.
func (g *GeoIndex) collect(source types.Values, values map[string]types.Values, postings *KeyField, eligible types.RowSet, crossFilter bool) types.Values {
	seen := types.ValueSet{}
	ret := types.Values{}
	for _, b := range source {
		for _, v := range values[b] {
			if seen.Has(v) {
				continue
			}
			seen.Add(v)
			if crossFilter && !eligible.HasIntersection(postings.match(v)) {
				continue
			}
			ret = append(ret, v)
		}
	}
	return ret
}

func (g *GeoIndex) Allowed(sel types.Selections) AllowedSets {
	return AllowedSets{
		types.Branch: g.AllowedBranches(sel),
		types.City:   g.AllowedCities(sel),
		types.State:  g.AllowedStates(sel),
	}
}
