// Package selection holds the state of one campaign-authoring session.
package selection

import (
	"slices"

	"github.com/matst80/slask-audience/pkg/types"
)

// Scalars are the non-facet criteria of a campaign.
type Scalars struct {
	Name           string             `json:"name"`
	Period         types.DateRange    `json:"period"`
	AudienceMode   types.AudienceMode `json:"based_on"`
	Rfm            types.Rfm          `json:"rfm"`
	RScores        types.Values       `json:"r_score"`
	FScores        types.Values       `json:"f_score"`
	MScores        types.Values       `json:"m_score"`
	Segments       types.Values       `json:"rfm_segments"`
	RfmMode        types.RfmMode      `json:"rfm_mode"`
	PurchaseType   types.PurchaseType `json:"purchase_type"`
	ValueThreshold *float64           `json:"value_threshold,omitempty"`
	Birthday       types.DateRange    `json:"birthday"`
	Anniversary    types.DateRange    `json:"anniversary"`
}

// ScalarPatch updates only the fields that are set.
type ScalarPatch struct {
	Name           *string             `json:"name,omitempty"`
	Period         *types.DateRange    `json:"period,omitempty"`
	Recency        *types.RfmCriterion `json:"recency,omitempty"`
	Frequency      *types.RfmCriterion `json:"frequency,omitempty"`
	Monetary       *types.RfmCriterion `json:"monetary,omitempty"`
	RScores        []string            `json:"r_score,omitempty"`
	FScores        []string            `json:"f_score,omitempty"`
	MScores        []string            `json:"m_score,omitempty"`
	Segments       []string            `json:"rfm_segments,omitempty"`
	ValueThreshold *float64            `json:"value_threshold,omitempty"`
	ClearValue     bool                `json:"clear_value_threshold,omitempty"`
	Birthday       *types.DateRange    `json:"birthday,omitempty"`
	Anniversary    *types.DateRange    `json:"anniversary,omitempty"`
}

// Store is single writer; callers serialize access.
type Store struct {
	selections types.Selections
	scalars    Scalars
	version    uint64
}

// NewStore returns a store with the new-form defaults.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

func defaultScalars() Scalars {
	return Scalars{
		AudienceMode: types.AudienceCustomerBase,
		RfmMode:      types.RfmCustomized,
		PurchaseType: types.PurchaseAny,
		RScores:      types.Values{},
		FScores:      types.Values{},
		MScores:      types.Values{},
		Segments:     types.Values{},
	}
}

func (s *Store) touch() {
	s.version++
}

func (s *Store) Version() uint64 {
	return s.version
}

// Reset clears every filter and restores the new-form defaults.
func (s *Store) Reset() {
	s.selections = make(types.Selections, len(types.AllDimensions))
	for _, d := range types.AllDimensions {
		s.selections[d] = types.Values{}
	}
	s.scalars = defaultScalars()
	s.touch()
}

func (s *Store) Get(d types.Dimension) types.Values {
	return s.selections.Get(d).Clone()
}

func (s *Store) Selections() types.Selections {
	return s.selections.Clone()
}

func (s *Store) Scalars() Scalars {
	ret := s.scalars
	ret.RScores = s.scalars.RScores.Clone()
	ret.FScores = s.scalars.FScores.Clone()
	ret.MScores = s.scalars.MScores.Clone()
	ret.Segments = s.scalars.Segments.Clone()
	if s.scalars.ValueThreshold != nil {
		v := *s.scalars.ValueThreshold
		ret.ValueThreshold = &v
	}
	return ret
}

// Set replaces the selection of d and reports whether it changed.
func (s *Store) Set(d types.Dimension, values []string) bool {
	if !d.Valid() {
		return false
	}
	next := types.Distinct(values)
	if slices.Equal(next, s.selections.Get(d)) {
		return false
	}
	s.selections[d] = next
	s.touch()
	return true
}

func (s *Store) Add(d types.Dimension, values ...string) bool {
	return s.Set(d, append(s.Get(d), values...))
}

func (s *Store) Remove(d types.Dimension, values ...string) bool {
	return s.Set(d, s.selections.Get(d).Without(values))
}

func (s *Store) Clear(d types.Dimension) bool {
	return s.Set(d, nil)
}

// SelectAll stores the given allowed values as a literal selection. The
// selection does not follow later changes to the allowed set.
func (s *Store) SelectAll(d types.Dimension, allowed types.Values) bool {
	return s.Set(d, allowed.Clone())
}

// Apply writes several dimensions as one update and returns the dimensions
// that changed.
func (s *Store) Apply(update types.Selections) []types.Dimension {
	changed := make([]types.Dimension, 0, len(update))
	for _, d := range types.AllDimensions {
		values, ok := update[d]
		if !ok {
			continue
		}
		next := types.Distinct(values)
		if slices.Equal(next, s.selections.Get(d)) {
			continue
		}
		s.selections[d] = next
		changed = append(changed, d)
	}
	if len(changed) > 0 {
		s.touch()
	}
	return changed
}

// SetAudienceMode keeps the structured filters so switching back restores
// them.
func (s *Store) SetAudienceMode(m types.AudienceMode) {
	s.scalars.AudienceMode = types.ParseAudienceMode(string(m))
	s.touch()
}

func (s *Store) SetPurchaseType(p types.PurchaseType) {
	s.scalars.PurchaseType = types.ParsePurchaseType(string(p))
	s.touch()
}

func (s *Store) SetRfmMode(m types.RfmMode) {
	s.scalars.RfmMode = types.ParseRfmMode(string(m))
	s.touch()
}

func (s *Store) SetScalars(p ScalarPatch) {
	sc := &s.scalars
	if p.Name != nil {
		sc.Name = *p.Name
	}
	if p.Period != nil {
		sc.Period = *p.Period
	}
	if p.Recency != nil {
		sc.Rfm.Recency = *p.Recency
	}
	if p.Frequency != nil {
		sc.Rfm.Frequency = *p.Frequency
	}
	if p.Monetary != nil {
		sc.Rfm.Monetary = *p.Monetary
	}
	if p.RScores != nil {
		sc.RScores = types.Distinct(p.RScores)
	}
	if p.FScores != nil {
		sc.FScores = types.Distinct(p.FScores)
	}
	if p.MScores != nil {
		sc.MScores = types.Distinct(p.MScores)
	}
	if p.Segments != nil {
		sc.Segments = types.Distinct(p.Segments)
	}
	if p.ClearValue {
		sc.ValueThreshold = nil
	} else if p.ValueThreshold != nil {
		v := *p.ValueThreshold
		sc.ValueThreshold = &v
	}
	if p.Birthday != nil {
		sc.Birthday = *p.Birthday
	}
	if p.Anniversary != nil {
		sc.Anniversary = *p.Anniversary
	}
	s.touch()
}

// Load replaces the whole state, used when hydrating a saved campaign.
func (s *Store) Load(sel types.Selections, sc Scalars) {
	s.Reset()
	s.Apply(sel)
	sc.AudienceMode = types.ParseAudienceMode(string(sc.AudienceMode))
	sc.RfmMode = types.ParseRfmMode(string(sc.RfmMode))
	sc.PurchaseType = types.ParsePurchaseType(string(sc.PurchaseType))
	sc.RScores = types.Distinct(sc.RScores)
	sc.FScores = types.Distinct(sc.FScores)
	sc.MScores = types.Distinct(sc.MScores)
	sc.Segments = types.Distinct(sc.Segments)
	s.scalars = sc
	s.touch()
}

// Snapshot is a deep copy of the store state.
type Snapshot struct {
	Selections types.Selections `json:"selections"`
	Scalars    Scalars          `json:"scalars"`
	Version    uint64           `json:"version"`
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{Selections: s.Selections(), Scalars: s.Scalars(), Version: s.version}
}
