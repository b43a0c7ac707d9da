package types

import (
	"slices"
	"strings"
)

type HierarchyEntry struct {
	Brand   string `json:"brand" yaml:"brand"`
	Section string `json:"section" yaml:"section"`
	Product string `json:"product" yaml:"product"`
	Model   string `json:"model" yaml:"model"`
	Item    string `json:"item" yaml:"item"`
}

func (e HierarchyEntry) Value(d Dimension) string {
	switch d {
	case Brand:
		return e.Brand
	case Section:
		return e.Section
	case Product:
		return e.Product
	case Model:
		return e.Model
	case Item:
		return e.Item
	}
	return ""
}

func (e HierarchyEntry) IsEmpty() bool {
	return e.Brand == "" && e.Section == "" && e.Product == "" && e.Model == "" && e.Item == ""
}

// CampaignOptions is the raw option payload used to build the facet indexes.
type CampaignOptions struct {
	RScores        []string            `json:"r_scores" yaml:"r_scores"`
	FScores        []string            `json:"f_scores" yaml:"f_scores"`
	MScores        []string            `json:"m_scores" yaml:"m_scores"`
	RfmSegments    []string            `json:"rfm_segments" yaml:"rfm_segments"`
	Branches       []string            `json:"branches" yaml:"branches"`
	BranchCityMap  map[string][]string `json:"branch_city_map" yaml:"branch_city_map"`
	BranchStateMap map[string][]string `json:"branch_state_map" yaml:"branch_state_map"`
	Brands         []string            `json:"brands" yaml:"brands"`
	Sections       []string            `json:"sections" yaml:"sections"`
	Products       []string            `json:"products" yaml:"products"`
	Models         []string            `json:"models" yaml:"models"`
	Items          []string            `json:"items" yaml:"items"`
	BrandHierarchy []HierarchyEntry    `json:"brand_hierarchy" yaml:"brand_hierarchy"`
}

// Normalize cleans the payload in place: trims values, drops empty
// city/state names and fully empty hierarchy rows, derives the branch list
// from the maps when it is missing and fills the flat taxonomy lists from
// the hierarchy when they are missing.
func (o *CampaignOptions) Normalize() {
	if o.BranchCityMap == nil {
		o.BranchCityMap = map[string][]string{}
	}
	if o.BranchStateMap == nil {
		o.BranchStateMap = map[string][]string{}
	}
	for b, cities := range o.BranchCityMap {
		o.BranchCityMap[b] = Distinct(cities)
	}
	for b, states := range o.BranchStateMap {
		o.BranchStateMap[b] = Distinct(states)
	}
	branches := Distinct(o.Branches)
	if len(branches) == 0 {
		seen := ValueSet{}
		for b := range o.BranchCityMap {
			seen.Add(strings.TrimSpace(b))
		}
		for b := range o.BranchStateMap {
			seen.Add(strings.TrimSpace(b))
		}
		delete(seen, "")
		branches = seen.Sorted()
	}
	o.Branches = branches

	rows := make([]HierarchyEntry, 0, len(o.BrandHierarchy))
	for _, e := range o.BrandHierarchy {
		e = HierarchyEntry{
			Brand:   strings.TrimSpace(e.Brand),
			Section: strings.TrimSpace(e.Section),
			Product: strings.TrimSpace(e.Product),
			Model:   strings.TrimSpace(e.Model),
			Item:    strings.TrimSpace(e.Item),
		}
		if e.IsEmpty() {
			continue
		}
		rows = append(rows, e)
	}
	o.BrandHierarchy = rows

	fill := func(list *[]string, d Dimension) {
		if len(*list) > 0 {
			*list = Distinct(*list)
			return
		}
		seen := ValueSet{}
		for _, e := range rows {
			if v := e.Value(d); v != "" {
				seen.Add(v)
			}
		}
		*list = seen.Sorted()
	}
	fill(&o.Brands, Brand)
	fill(&o.Sections, Section)
	fill(&o.Products, Product)
	fill(&o.Models, Model)
	fill(&o.Items, Item)

	for _, l := range []*[]string{&o.RScores, &o.FScores, &o.MScores, &o.RfmSegments} {
		*l = Distinct(*l)
	}
}

func (o *CampaignOptions) Clone() *CampaignOptions {
	if o == nil {
		return nil
	}
	ret := *o
	ret.RScores = slices.Clone(o.RScores)
	ret.FScores = slices.Clone(o.FScores)
	ret.MScores = slices.Clone(o.MScores)
	ret.RfmSegments = slices.Clone(o.RfmSegments)
	ret.Branches = slices.Clone(o.Branches)
	ret.Brands = slices.Clone(o.Brands)
	ret.Sections = slices.Clone(o.Sections)
	ret.Products = slices.Clone(o.Products)
	ret.Models = slices.Clone(o.Models)
	ret.Items = slices.Clone(o.Items)
	ret.BrandHierarchy = slices.Clone(o.BrandHierarchy)
	ret.BranchCityMap = make(map[string][]string, len(o.BranchCityMap))
	for k, v := range o.BranchCityMap {
		ret.BranchCityMap[k] = slices.Clone(v)
	}
	ret.BranchStateMap = make(map[string][]string, len(o.BranchStateMap))
	for k, v := range o.BranchStateMap {
		ret.BranchStateMap[k] = slices.Clone(v)
	}
	return &ret
}
