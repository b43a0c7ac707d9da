package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
)

// FlexList decodes a list that may arrive as a JSON array, as a JSON encoded
// string of an array, as a single value or wrapped in stray quotes.
// Anything it cannot make sense of becomes an empty list.
type FlexList types.Values

func (l *FlexList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		*l = FlexList{}
		return nil
	}
	*l = FlexList(listFrom(raw, 0))
	return nil
}

func (l FlexList) Values() types.Values {
	return types.Distinct(l)
}

// maxListNesting bounds how many times a string is re-decoded.
const maxListNesting = 3

func listFrom(raw any, depth int) types.Values {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := scalarString(e); ok {
				out = append(out, s)
			}
		}
		return types.Distinct(out)
	case string:
		return listFromString(v, depth)
	case float64:
		s, _ := scalarString(v)
		return types.Values{s}
	}
	return types.Values{}
}

func listFromString(s string, depth int) types.Values {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Values{}
	}
	if depth < maxListNesting {
		var raw any
		if err := jsoncompat.Unmarshal([]byte(s), &raw); err == nil {
			return listFrom(raw, depth+1)
		}
		if stripped := types.StripQuotes(s); stripped != s {
			return listFromString(stripped, depth+1)
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return types.Values{}
	}
	return types.Distinct([]string{types.StripQuotes(s)})
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := types.StripQuotes(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// FlexDate accepts ISO dates and timestamps, with or without stray quotes.
// Unparsable values become the zero date.
type FlexDate struct {
	types.Date
}

func (d *FlexDate) UnmarshalJSON(data []byte) error {
	d.Date = types.Date{}
	var raw any
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if s, ok := raw.(string); ok {
		if parsed, err := types.ParseDate(s); err == nil {
			d.Date = parsed
		}
	}
	return nil
}

// FlexNumber accepts numbers and numeric strings, anything else is unset.
type FlexNumber struct {
	Value *float64
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(*n.Value, 'f', -1, 64)), nil
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	n.Value = nil
	var raw any
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		n.Value = &v
	case string:
		if f, err := strconv.ParseFloat(types.StripQuotes(v), 64); err == nil {
			n.Value = &f
		}
	}
	return nil
}

// FlexString accepts any scalar and strips stray quotes.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		*s = ""
		return nil
	}
	v, _ := scalarString(raw)
	*s = FlexString(v)
	return nil
}

// CampaignRecord is a persisted campaign as returned by the store.
type CampaignRecord struct {
	ID               int64      `json:"id"`
	Name             FlexString `json:"name"`
	StartDate        FlexDate   `json:"start_date"`
	EndDate          FlexDate   `json:"end_date"`
	BasedOn          FlexString `json:"based_on"`
	RecencyOp        FlexString `json:"recency_op"`
	RecencyMin       FlexNumber `json:"recency_min"`
	RecencyMax       FlexNumber `json:"recency_max"`
	FrequencyOp      FlexString `json:"frequency_op"`
	FrequencyMin     FlexNumber `json:"frequency_min"`
	FrequencyMax     FlexNumber `json:"frequency_max"`
	MonetaryOp       FlexString `json:"monetary_op"`
	MonetaryMin      FlexNumber `json:"monetary_min"`
	MonetaryMax      FlexNumber `json:"monetary_max"`
	RScore           FlexList   `json:"r_score"`
	FScore           FlexList   `json:"f_score"`
	MScore           FlexList   `json:"m_score"`
	RfmSegments      FlexList   `json:"rfm_segments"`
	RfmMode          FlexString `json:"rfm_mode"`
	Branch           FlexList   `json:"branch"`
	City             FlexList   `json:"city"`
	State            FlexList   `json:"state"`
	BirthdayStart    FlexDate   `json:"birthday_start"`
	BirthdayEnd      FlexDate   `json:"birthday_end"`
	AnniversaryStart FlexDate   `json:"anniversary_start"`
	AnniversaryEnd   FlexDate   `json:"anniversary_end"`
	PurchaseType     FlexString `json:"purchase_type"`
	PurchaseBrand    FlexList   `json:"purchase_brand"`
	Section          FlexList   `json:"section"`
	Product          FlexList   `json:"product"`
	Model            FlexList   `json:"model"`
	Item             FlexList   `json:"item"`
	ValueThreshold   FlexNumber `json:"value_threshold"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DecodeRecord decodes a persisted campaign. Only a payload that is not a
// JSON object at all is an error; bad fields degrade to empty values.
func DecodeRecord(data []byte) (*CampaignRecord, error) {
	r := &CampaignRecord{}
	if err := jsoncompat.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CampaignRecord) Selections() types.Selections {
	sel := types.Selections{}
	sel.Set(types.Branch, r.Branch.Values())
	sel.Set(types.City, r.City.Values())
	sel.Set(types.State, r.State.Values())
	sel.Set(types.Brand, r.PurchaseBrand.Values())
	sel.Set(types.Section, r.Section.Values())
	sel.Set(types.Product, r.Product.Values())
	sel.Set(types.Model, r.Model.Values())
	sel.Set(types.Item, r.Item.Values())
	return sel
}

func (r *CampaignRecord) Scalars() selection.Scalars {
	return selection.Scalars{
		Name:         string(r.Name),
		Period:       types.DateRange{Start: r.StartDate.Date, End: r.EndDate.Date},
		AudienceMode: types.ParseAudienceMode(string(r.BasedOn)),
		Rfm: types.Rfm{
			Recency:   types.RfmCriterion{Op: types.ParseRfmOperator(string(r.RecencyOp)), Min: r.RecencyMin.Value, Max: r.RecencyMax.Value},
			Frequency: types.RfmCriterion{Op: types.ParseRfmOperator(string(r.FrequencyOp)), Min: r.FrequencyMin.Value, Max: r.FrequencyMax.Value},
			Monetary:  types.RfmCriterion{Op: types.ParseRfmOperator(string(r.MonetaryOp)), Min: r.MonetaryMin.Value, Max: r.MonetaryMax.Value},
		},
		RScores:        r.RScore.Values(),
		FScores:        r.FScore.Values(),
		MScores:        r.MScore.Values(),
		Segments:       r.RfmSegments.Values(),
		RfmMode:        types.ParseRfmMode(string(r.RfmMode)),
		PurchaseType:   types.ParsePurchaseType(string(r.PurchaseType)),
		ValueThreshold: r.ValueThreshold.Value,
		Birthday:       types.DateRange{Start: r.BirthdayStart.Date, End: r.BirthdayEnd.Date},
		Anniversary:    types.DateRange{Start: r.AnniversaryStart.Date, End: r.AnniversaryEnd.Date},
	}
}

// ToStore hydrates a fresh selection store from the record.
func (r *CampaignRecord) ToStore() *selection.Store {
	s := selection.NewStore()
	s.Load(r.Selections(), r.Scalars())
	return s
}
