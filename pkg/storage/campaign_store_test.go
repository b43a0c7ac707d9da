package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *CampaignStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func f(v float64) *float64 { return &v }

func sampleCriteria(t *testing.T) *criteria.CampaignCriteria {
	t.Helper()
	s := selection.NewStore()
	name := "Diwali"
	period := types.DateRange{Start: types.MustDate(2025, 10, 1), End: types.MustDate(2025, 10, 31)}
	s.SetScalars(selection.ScalarPatch{
		Name:      &name,
		Period:    &period,
		Recency:   &types.RfmCriterion{Op: types.OpBetween, Min: f(1), Max: f(5)},
		Segments:  []string{"Champions"},
		RScores:   []string{"4", "5"},
		Birthday:  &types.DateRange{Start: types.MustDate(2025, 1, 1), End: types.MustDate(2025, 1, 31)},
		ValueThreshold: f(1500),
	})
	s.SetPurchaseType(types.PurchaseRecent)
	s.Set(types.Branch, []string{"A", "B"})
	s.Set(types.Brand, []string{"BrandX"})
	c, err := criteria.Assemble(s)
	require.NoError(t, err)
	return c
}

func TestCampaignStoreRoundTrip(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, sampleCriteria(t))
	require.NoError(t, err)
	assert.Positive(t, id)

	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	store := r.ToStore()
	assert.Equal(t, types.Values{"A", "B"}, store.Get(types.Branch))
	assert.Equal(t, types.Values{"BrandX"}, store.Get(types.Brand))
	assert.Empty(t, store.Get(types.City))

	sc := store.Scalars()
	assert.Equal(t, "Diwali", sc.Name)
	assert.Equal(t, types.MustDate(2025, 10, 31), sc.Period.End)
	assert.Equal(t, types.OpBetween, sc.Rfm.Recency.Op)
	require.NotNil(t, sc.Rfm.Recency.Max)
	assert.Equal(t, 5.0, *sc.Rfm.Recency.Max)
	assert.Equal(t, types.Values{"4", "5"}, sc.RScores)
	assert.Equal(t, types.PurchaseRecent, sc.PurchaseType)
	require.NotNil(t, sc.ValueThreshold)
	assert.Equal(t, 1500.0, *sc.ValueThreshold)
	assert.Equal(t, types.MustDate(2025, 1, 1), sc.Birthday.Start)
}

func TestCampaignStoreUpdateClearsMissingFields(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, sampleCriteria(t))
	require.NoError(t, err)

	upload := selection.NewStore()
	name := "Uploaded"
	period := types.DateRange{Start: types.MustDate(2025, 11, 1), End: types.MustDate(2025, 11, 2)}
	upload.SetScalars(selection.ScalarPatch{Name: &name, Period: &period})
	upload.SetAudienceMode(types.AudienceUpload)
	c, err := criteria.Assemble(upload)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, id, c))

	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	sc := r.Scalars()
	assert.Equal(t, "Uploaded", sc.Name)
	assert.Equal(t, types.AudienceUpload, sc.AudienceMode)
	assert.Equal(t, types.OpEqual, sc.Rfm.Recency.Op)
	assert.Nil(t, sc.ValueThreshold)
	assert.Empty(t, r.Selections().Get(types.Branch))
}

func TestCampaignStoreNotFound(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, 99), ErrNotFound))
	assert.True(t, errors.Is(s.Update(ctx, 99, sampleCriteria(t)), ErrNotFound))
}

func TestCampaignStoreListAndDelete(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, sampleCriteria(t))
	require.NoError(t, err)
	second, err := s.Create(ctx, sampleCriteria(t))
	require.NoError(t, err)

	list, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, "Diwali", list[0].Name)
	assert.Equal(t, types.MustDate(2025, 10, 1), list[0].StartDate)
	assert.Equal(t, types.AudienceCustomerBase, list[0].BasedOn)

	require.NoError(t, s.Delete(ctx, first))
	list, err = s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCampaignStoreRequiresName(t *testing.T) {
	s := openTempStore(t)
	_, err := s.Create(context.Background(), &criteria.CampaignCriteria{})
	assert.Error(t, err)
}

func TestCampaignStoreCancelledContext(t *testing.T) {
	s := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.List(ctx, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiskStorageSnapshot(t *testing.T) {
	ds := NewDiskStorage(t.TempDir())
	in := &types.CampaignOptions{Branches: []string{"A"}}
	require.NoError(t, ds.SaveGzippedJson(in, "nested/options.json.gz"))

	out := &types.CampaignOptions{}
	require.NoError(t, ds.LoadGzippedJson(out, "nested/options.json.gz"))
	assert.Equal(t, in.Branches, out.Branches)

	matches, err := filepath.Glob(filepath.Join(ds.RootFolder, "nested", "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
