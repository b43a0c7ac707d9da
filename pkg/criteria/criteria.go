// Package criteria turns a selection store into the campaign payload sent to
// the audience and persistence backends.
package criteria

import (
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
)

// Source is the state the payload is assembled from.
type Source interface {
	Selections() types.Selections
	Scalars() selection.Scalars
}

// CampaignCriteria is the wire payload. The structured part is nil for
// upload based audiences and is then left out of the JSON entirely.
type CampaignCriteria struct {
	Name        string             `json:"name"`
	StartDate   types.Date         `json:"start_date"`
	EndDate     types.Date         `json:"end_date"`
	BasedOn     types.AudienceMode `json:"based_on"`
	RecencyOp   types.RfmOperator  `json:"recency_op,omitempty"`
	FrequencyOp types.RfmOperator  `json:"frequency_op,omitempty"`
	MonetaryOp  types.RfmOperator  `json:"monetary_op,omitempty"`
	*StructuredCriteria
}

type StructuredCriteria struct {
	RecencyMin       *float64           `json:"recency_min,omitempty"`
	RecencyMax       *float64           `json:"recency_max,omitempty"`
	FrequencyMin     *float64           `json:"frequency_min,omitempty"`
	FrequencyMax     *float64           `json:"frequency_max,omitempty"`
	MonetaryMin      *float64           `json:"monetary_min,omitempty"`
	MonetaryMax      *float64           `json:"monetary_max,omitempty"`
	RScore           types.Values       `json:"r_score"`
	FScore           types.Values       `json:"f_score"`
	MScore           types.Values       `json:"m_score"`
	RfmSegments      types.Values       `json:"rfm_segments"`
	RfmMode          types.RfmMode      `json:"rfm_mode"`
	Branch           types.Values       `json:"branch"`
	City             types.Values       `json:"city"`
	State            types.Values       `json:"state"`
	BirthdayStart    *types.Date        `json:"birthday_start,omitempty"`
	BirthdayEnd      *types.Date        `json:"birthday_end,omitempty"`
	AnniversaryStart *types.Date        `json:"anniversary_start,omitempty"`
	AnniversaryEnd   *types.Date        `json:"anniversary_end,omitempty"`
	PurchaseType     types.PurchaseType `json:"purchase_type,omitempty"`
	PurchaseBrand    types.Values       `json:"purchase_brand"`
	Section          types.Values       `json:"section"`
	Product          types.Values       `json:"product"`
	Model            types.Values       `json:"model"`
	Item             types.Values       `json:"item"`
	ValueThreshold   *float64           `json:"value_threshold,omitempty"`
}

func datePtr(d types.Date) *types.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Build assembles the payload without validating it.
func Build(src Source) *CampaignCriteria {
	sc := src.Scalars()
	sel := src.Selections()
	c := &CampaignCriteria{
		Name:      sc.Name,
		StartDate: sc.Period.Start,
		EndDate:   sc.Period.End,
		BasedOn:   types.ParseAudienceMode(string(sc.AudienceMode)),
	}
	if !c.BasedOn.Structured() {
		// the backend schema requires the operators even without filters
		c.RecencyOp = types.OpEqual
		c.FrequencyOp = types.OpEqual
		c.MonetaryOp = types.OpEqual
		return c
	}
	rfm := sc.Rfm
	c.RecencyOp = rfm.Recency.Op
	c.FrequencyOp = rfm.Frequency.Op
	c.MonetaryOp = rfm.Monetary.Op
	c.StructuredCriteria = &StructuredCriteria{
		RecencyMin:       copyFloat(rfm.Recency.Min),
		RecencyMax:       copyFloat(rfm.Recency.UpperBound()),
		FrequencyMin:     copyFloat(rfm.Frequency.Min),
		FrequencyMax:     copyFloat(rfm.Frequency.UpperBound()),
		MonetaryMin:      copyFloat(rfm.Monetary.Min),
		MonetaryMax:      copyFloat(rfm.Monetary.UpperBound()),
		RScore:           sc.RScores.Clone(),
		FScore:           sc.FScores.Clone(),
		MScore:           sc.MScores.Clone(),
		RfmSegments:      sc.Segments.Clone(),
		RfmMode:          types.ParseRfmMode(string(sc.RfmMode)),
		Branch:           sel.Get(types.Branch).Clone(),
		City:             sel.Get(types.City).Clone(),
		State:            sel.Get(types.State).Clone(),
		BirthdayStart:    datePtr(sc.Birthday.Start),
		BirthdayEnd:      datePtr(sc.Birthday.End),
		AnniversaryStart: datePtr(sc.Anniversary.Start),
		AnniversaryEnd:   datePtr(sc.Anniversary.End),
		PurchaseType:     sc.PurchaseType,
		PurchaseBrand:    sel.Get(types.Brand).Clone(),
		Section:          sel.Get(types.Section).Clone(),
		Product:          sel.Get(types.Product).Clone(),
		Model:            sel.Get(types.Model).Clone(),
		Item:             sel.Get(types.Item).Clone(),
		ValueThreshold:   copyFloat(sc.ValueThreshold),
	}
	return c
}

// Assemble validates the source and builds the payload.
func Assemble(src Source) (*CampaignCriteria, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}
	return Build(src), nil
}

// RequiresPurchaseType is true once any taxonomy filter or a non-zero value
// threshold is set.
func RequiresPurchaseType(src Source) bool {
	sel := src.Selections()
	if !sel.IsEmpty(types.TaxonomyDimensions...) {
		return true
	}
	v := src.Scalars().ValueThreshold
	return v != nil && *v != 0
}
