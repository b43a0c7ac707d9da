package types

import (
	"fmt"
	"strings"
)

type Dimension string

const (
	Branch  Dimension = "branch"
	City    Dimension = "city"
	State   Dimension = "state"
	Brand   Dimension = "brand"
	Section Dimension = "section"
	Product Dimension = "product"
	Model   Dimension = "model"
	Item    Dimension = "item"
)

type Domain string

const (
	GeoDomain      Domain = "geo"
	TaxonomyDomain Domain = "taxonomy"
)

var (
	GeoDimensions      = []Dimension{Branch, City, State}
	TaxonomyDimensions = []Dimension{Brand, Section, Product, Model, Item}
	AllDimensions      = []Dimension{Branch, City, State, Brand, Section, Product, Model, Item}
	Domains            = []Domain{GeoDomain, TaxonomyDomain}
)

func (d Domain) Dimensions() []Dimension {
	switch d {
	case GeoDomain:
		return GeoDimensions
	case TaxonomyDomain:
		return TaxonomyDimensions
	}
	return nil
}

func (d Dimension) Domain() Domain {
	switch d {
	case Branch, City, State:
		return GeoDomain
	case Brand, Section, Product, Model, Item:
		return TaxonomyDomain
	}
	return ""
}

func (d Dimension) Valid() bool {
	return d.Domain() != ""
}

// ParseDimension accepts the dimension names and the form field alias
// "purchase_brand" used by the campaign payload.
func ParseDimension(s string) (Dimension, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "purchase_brand" || v == "purchasebrand" {
		return Brand, nil
	}
	d := Dimension(v)
	if !d.Valid() {
		return "", fmt.Errorf("unknown dimension %q", s)
	}
	return d, nil
}

func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if d.Dimensions() == nil {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}
