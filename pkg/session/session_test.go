package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/reconcile"
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/storage"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() *types.CampaignOptions {
	return &types.CampaignOptions{
		Branches:       []string{"A", "B"},
		BranchCityMap:  map[string][]string{"A": {"X", "Y"}, "B": {"Y", "Z"}},
		BranchStateMap: map[string][]string{"A": {"S1"}, "B": {"S2"}},
		BrandHierarchy: []types.HierarchyEntry{
			{Brand: "BrandX", Section: "Sec1", Product: "P1", Model: "M1", Item: "I1"},
			{Brand: "BrandY", Section: "Sec2", Product: "P3", Model: "M2", Item: "I3"},
		},
	}
}

func newTestManager(t *testing.T, loaded bool) (*Manager, *facet.Indexes) {
	t.Helper()
	idx := facet.NewIndexes()
	if loaded {
		idx.Replace(testOptions())
	}
	m := NewManager(reconcile.NewReconciler(idx, 0), time.Minute)
	m.WatchIndexes(idx)
	t.Cleanup(m.CloseAll)
	return m, idx
}

func TestHandlePrunesDependentSelections(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	_, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "state", Values: []string{"S1"}})
	require.NoError(t, err)
	res, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "city", Values: []string{"Y", "Z"}})
	require.NoError(t, err)

	require.NotNil(t, res.Reconcile)
	assert.Equal(t, types.Values{"Z"}, res.Reconcile.Pruned[types.City])
	assert.Equal(t, types.Values{"Y"}, res.State.Selections.Get(types.City))
	assert.Equal(t, types.Values{"A"}, res.State.Allowed.Get(types.Branch))
	assert.Empty(t, res.State.Deferred)
}

func TestSelectAllUsesCurrentAllowed(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	_, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "state", Values: []string{"S1"}})
	require.NoError(t, err)
	res, err := s.Handle(context.Background(), Event{Kind: EventSelectAll, Dimension: "branch"})
	require.NoError(t, err)
	assert.Equal(t, types.Values{"A"}, res.State.Selections.Get(types.Branch))
}

func TestDeferredUntilIndexLoads(t *testing.T) {
	m, idx := newTestManager(t, false)
	s := m.Create(context.Background())

	res, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "branch", Values: []string{"A", "Q"}})
	require.NoError(t, err)
	assert.Equal(t, types.Values{"A", "Q"}, res.State.Selections.Get(types.Branch))
	assert.Equal(t, []types.Domain{types.GeoDomain, types.TaxonomyDomain}, res.State.Deferred)

	idx.Replace(testOptions())

	st, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, types.Values{"A"}, st.Selections.Get(types.Branch))
	assert.Empty(t, st.Deferred)
}

func TestSelectAllRejectedUntilIndexLoads(t *testing.T) {
	m, idx := newTestManager(t, false)
	s := m.Create(context.Background())

	_, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "branch", Values: []string{"A"}})
	require.NoError(t, err)
	_, err = s.Handle(context.Background(), Event{Kind: EventSelectAll, Dimension: "branch"})
	var invalid *InvalidEventError
	require.True(t, errors.As(err, &invalid), "got %v", err)

	st, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, types.Values{"A"}, st.Selections.Get(types.Branch))

	idx.Replace(testOptions())

	st, err = s.State()
	require.NoError(t, err)
	assert.Equal(t, types.Values{"A"}, st.Selections.Get(types.Branch))

	res, err := s.Handle(context.Background(), Event{Kind: EventSelectAll, Dimension: "city"})
	require.NoError(t, err)
	assert.Equal(t, types.Values{"X", "Y"}, res.State.Selections.Get(types.City))
}

func TestSelectAllSnapshotDoesNotGrow(t *testing.T) {
	idx := facet.NewIndexes()
	idx.Replace(&types.CampaignOptions{
		BrandHierarchy: []types.HierarchyEntry{
			{Brand: "BrandX", Section: "Sec1", Product: "P1", Model: "M1", Item: "I1"},
			{Brand: "BrandY", Section: "Sec2", Product: "P1", Model: "M2", Item: "I2"},
			{Brand: "BrandY", Section: "Sec2", Product: "P3", Model: "M3", Item: "I3"},
		},
	})
	m := NewManager(reconcile.NewReconciler(idx, 0), time.Minute)
	t.Cleanup(m.CloseAll)
	s := m.Create(context.Background())

	_, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "brand", Values: []string{"BrandX"}})
	require.NoError(t, err)
	res, err := s.Handle(context.Background(), Event{Kind: EventSelectAll, Dimension: "product"})
	require.NoError(t, err)
	snapshot := res.State.Selections.Get(types.Product)
	assert.Equal(t, types.Values{"P1"}, snapshot)
	assert.Equal(t, types.Values{"Sec1"}, res.State.Allowed.Get(types.Section))

	res, err = s.Handle(context.Background(), Event{Kind: EventClear, Dimension: "brand"})
	require.NoError(t, err)
	assert.Equal(t, snapshot, res.State.Selections.Get(types.Product))
	assert.Equal(t, types.Values{"Sec1", "Sec2"}, res.State.Allowed.Get(types.Section))
	assert.Equal(t, types.Values{"BrandX", "BrandY"}, res.State.Allowed.Get(types.Brand))
}

func TestScalarEventsSkipReconcile(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	res, err := s.Handle(context.Background(), Event{Kind: EventAudienceMode, AudienceMode: "upload"})
	require.NoError(t, err)
	assert.Nil(t, res.Reconcile)
	assert.Equal(t, types.AudienceUpload, res.State.Scalars.AudienceMode)

	res, err = s.Handle(context.Background(), Event{Kind: EventPurchaseType, PurchaseType: "recent"})
	require.NoError(t, err)
	assert.Equal(t, types.PurchaseRecent, res.State.Scalars.PurchaseType)

	_, err = s.Handle(context.Background(), Event{Kind: EventScalars})
	var invalid *InvalidEventError
	assert.True(t, errors.As(err, &invalid))
}

func TestHandleRejectsBadEvents(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	for _, e := range []Event{
		{Kind: EventSet, Dimension: "planet", Values: []string{"x"}},
		{Kind: "explode"},
	} {
		_, err := s.Handle(context.Background(), e)
		var invalid *InvalidEventError
		assert.True(t, errors.As(err, &invalid), "event %+v", e)
	}
}

func TestRequiresPurchaseTypeInState(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	st, err := s.State()
	require.NoError(t, err)
	assert.False(t, st.RequiresPurchaseType)

	res, err := s.Handle(context.Background(), Event{Kind: EventAdd, Dimension: "purchase_brand", Values: []string{"BrandX"}})
	require.NoError(t, err)
	assert.True(t, res.State.RequiresPurchaseType)
}

func TestHydrateReconcilesSavedCampaign(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())

	record, err := storage.DecodeRecord([]byte(`{"id":7,"name":"Saved","branch":"[\"A\",\"Q\"]","purchase_brand":["BrandY"]}`))
	require.NoError(t, err)
	res, err := s.Hydrate(context.Background(), record)
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.State.CampaignID)
	assert.Equal(t, "Saved", res.State.Scalars.Name)
	assert.Equal(t, types.Values{"A"}, res.State.Selections.Get(types.Branch))
	assert.Equal(t, types.Values{"BrandY"}, res.State.Selections.Get(types.Brand))
	assert.Equal(t, types.Values{"Q"}, res.Reconcile.Pruned[types.Branch])
}

func TestSavedResetsAfterCreate(t *testing.T) {
	m, _ := newTestManager(t, true)
	s := m.Create(context.Background())
	name := "Diwali"
	period := types.DateRange{Start: types.MustDate(2025, 10, 1), End: types.MustDate(2025, 10, 31)}
	_, err := s.Handle(context.Background(), Event{Kind: EventScalars, Scalars: &selection.ScalarPatch{Name: &name, Period: &period}})
	require.NoError(t, err)
	_, err = s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "branch", Values: []string{"B"}})
	require.NoError(t, err)

	c, err := s.Criteria()
	require.NoError(t, err)
	assert.Equal(t, "Diwali", c.Name)
	assert.Equal(t, types.Values{"B"}, c.Branch)

	st, err := s.Saved(context.Background(), 3, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.CampaignID)
	assert.Equal(t, types.Values{"B"}, st.Selections.Get(types.Branch))

	st, err = s.Saved(context.Background(), 4, true)
	require.NoError(t, err)
	assert.Zero(t, st.CampaignID)
	assert.Empty(t, st.Selections.Get(types.Branch))
	assert.Empty(t, st.Scalars.Name)
}

func TestClosedSessionRejectsEvents(t *testing.T) {
	m, idx := newTestManager(t, false)
	s := m.Create(context.Background())
	_, err := s.Handle(context.Background(), Event{Kind: EventSet, Dimension: "branch", Values: []string{"Q"}})
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID))
	assert.True(t, s.Closed())
	_, err = s.Handle(context.Background(), Event{Kind: EventClear, Dimension: "branch"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Close(s.ID), ErrNotFound)

	// a load after close must not touch the session
	idx.Replace(testOptions())
	_, err = s.EnsureReconciled(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestEvictIdle(t *testing.T) {
	m, _ := newTestManager(t, true)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	idle := m.Create(context.Background())
	busy := m.Create(context.Background())
	now = now.Add(45 * time.Second)
	_, err := m.Get(busy.ID)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, m.EvictIdle())
	assert.True(t, idle.Closed())
	assert.False(t, busy.Closed())
	assert.Equal(t, 1, m.Len())
}
