package criteria

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func validStore() *selection.Store {
	s := selection.NewStore()
	name := "Diwali"
	period := types.DateRange{Start: types.MustDate(2025, 10, 1), End: types.MustDate(2025, 10, 31)}
	s.SetScalars(selection.ScalarPatch{Name: &name, Period: &period})
	return s
}

func TestUploadModeOmitsStructuredFields(t *testing.T) {
	s := validStore()
	s.Set(types.Branch, []string{"A"})
	s.Set(types.City, []string{"X"})
	s.SetAudienceMode(types.AudienceUpload)

	c, err := Assemble(s)
	require.NoError(t, err)
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]any{
		"name":         "Diwali",
		"start_date":   "2025-10-01",
		"end_date":     "2025-10-31",
		"based_on":     "upload",
		"recency_op":   "=",
		"frequency_op": "=",
		"monetary_op":  "=",
	}, got)
	// filters survive in the store for switching back
	assert.Equal(t, types.Values{"A"}, s.Get(types.Branch))
}

func TestStructuredModeEmitsEverything(t *testing.T) {
	s := validStore()
	s.Set(types.Branch, []string{"A"})
	s.Set(types.Brand, []string{"BrandX"})
	s.SetScalars(selection.ScalarPatch{
		Recency:   &types.RfmCriterion{Op: types.OpGte, Min: f(3), Max: f(9)},
		Frequency: &types.RfmCriterion{Op: types.OpBetween, Min: f(1), Max: f(4)},
		RScores:   []string{"5"},
		Birthday:  &types.DateRange{Start: types.MustDate(2025, 1, 1), End: types.MustDate(2025, 1, 31)},
	})
	s.SetPurchaseType(types.PurchaseRecent)

	c, err := Assemble(s)
	require.NoError(t, err)
	require.NotNil(t, c.StructuredCriteria)
	assert.Equal(t, types.OpGte, c.RecencyOp)
	assert.Equal(t, 3.0, *c.RecencyMax, "non between collapses max to min")
	assert.Equal(t, 4.0, *c.FrequencyMax)
	assert.Nil(t, c.MonetaryMin)
	assert.Equal(t, types.RfmCustomized, c.RfmMode)
	assert.Equal(t, types.PurchaseRecent, c.PurchaseType)
	assert.Equal(t, types.Values{"BrandX"}, c.PurchaseBrand)

	data, _ := json.Marshal(c)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2025-01-01", got["birthday_start"])
	assert.Equal(t, "recent", got["purchase_type"])
	assert.Equal(t, []any{"A"}, got["branch"])
	assert.Equal(t, []any{}, got["city"])
	assert.NotContains(t, got, "anniversary_start")
	assert.NotContains(t, got, "value_threshold")
	assert.Equal(t, "Customer Base", got["based_on"])
}

func TestValueThresholdRequiresPurchaseType(t *testing.T) {
	s := validStore()
	s.SetPurchaseType(types.PurchaseNone)
	assert.False(t, RequiresPurchaseType(s))
	assert.NoError(t, Validate(s))

	s.SetScalars(selection.ScalarPatch{ValueThreshold: f(50000)})
	assert.True(t, RequiresPurchaseType(s))
	err := Validate(s)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("purchase_type"))

	s.SetScalars(selection.ScalarPatch{ValueThreshold: f(0)})
	assert.False(t, RequiresPurchaseType(s), "zero threshold does not count")

	s.SetScalars(selection.ScalarPatch{ClearValue: true})
	s.Set(types.Model, []string{"M1"})
	assert.True(t, RequiresPurchaseType(s))
}

func TestValidateRequiredFields(t *testing.T) {
	s := selection.NewStore()
	blank := "   "
	s.SetScalars(selection.ScalarPatch{Name: &blank})
	s.SetRfmMode(types.RfmSegmented)

	err := Validate(s)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("name"))
	assert.True(t, verr.Has("period"))
	assert.True(t, verr.Has("rfm_segments"))
	assert.Len(t, verr.Fields, 3)
	assert.Contains(t, err.Error(), "name: Please enter campaign name")

	_, err = Assemble(s)
	assert.Error(t, err)
}

func TestSegmentedModeNeedsSegment(t *testing.T) {
	s := validStore()
	s.SetRfmMode(types.RfmSegmented)
	assert.Error(t, Validate(s))
	s.SetScalars(selection.ScalarPatch{Segments: []string{"Champions"}})
	assert.NoError(t, Validate(s))
}

func TestUploadSkipsConditionalRules(t *testing.T) {
	s := validStore()
	s.Set(types.Brand, []string{"BrandX"})
	s.SetPurchaseType(types.PurchaseNone)
	s.SetRfmMode(types.RfmSegmented)
	s.SetAudienceMode(types.AudienceUpload)
	assert.NoError(t, Validate(s))
}

func TestPeriodOrder(t *testing.T) {
	s := validStore()
	bad := types.DateRange{Start: types.MustDate(2025, 10, 31), End: types.MustDate(2025, 10, 1)}
	s.SetScalars(selection.ScalarPatch{Period: &bad})
	var verr *ValidationError
	require.True(t, errors.As(Validate(s), &verr))
	assert.True(t, verr.Has("period"))
}

func TestBuildSkipsValidation(t *testing.T) {
	c := Build(selection.NewStore())
	assert.Equal(t, "", c.Name)
	assert.NotNil(t, c.StructuredCriteria)
	assert.Equal(t, types.PurchaseAny, c.PurchaseType)
}
