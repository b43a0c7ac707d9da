package facet

import (
	"context"
	"errors"
	"testing"

	"github.com/matst80/slask-audience/pkg/types"
)

type staticSource struct {
	opts *types.CampaignOptions
	err  error
	hook func()
}

func (s staticSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	if s.hook != nil {
		s.hook()
	}
	return s.opts, s.err
}

func testOptions() *types.CampaignOptions {
	return &types.CampaignOptions{
		Branches:       []string{"A", "B"},
		BranchCityMap:  map[string][]string{"A": {"X", "Y"}, "B": {"Y", "Z"}},
		BranchStateMap: map[string][]string{"A": {"S1"}, "B": {"S2"}},
		BrandHierarchy: testCatalog(),
	}
}

func TestIndexesEmptyBeforeLoad(t *testing.T) {
	h := NewIndexes()
	if h.Loaded() || h.Ready(types.GeoDomain) {
		t.Fatal("should not be loaded")
	}
	a := h.Allowed(types.GeoDomain, types.Selections{})
	for _, d := range types.GeoDimensions {
		if len(a.Get(d)) != 0 {
			t.Errorf("expected empty %s before load, got %v", d, a.Get(d))
		}
	}
}

func TestIndexesLoad(t *testing.T) {
	h := NewIndexes()
	calls := 0
	h.OnLoad(func() { calls++ })
	if err := h.Load(context.Background(), staticSource{opts: testOptions()}); err != nil {
		t.Fatal(err)
	}
	if !h.Loaded() || !h.Ready(types.TaxonomyDomain) {
		t.Fatal("expected loaded")
	}
	if calls != 1 {
		t.Errorf("on load called %d times", calls)
	}
	if got := h.Allowed(types.TaxonomyDomain, types.Selections{}).Get(types.Brand); len(got) != 2 {
		t.Errorf("got %v", got)
	}
	if h.Options() == nil || len(h.Options().Branches) != 2 {
		t.Error("options not kept")
	}
}

func TestIndexesLoadCancelled(t *testing.T) {
	h := NewIndexes()
	ctx, cancel := context.WithCancel(context.Background())
	err := h.Load(ctx, staticSource{opts: testOptions(), hook: cancel})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancel, got %v", err)
	}
	if h.Loaded() {
		t.Error("cancelled load must not be applied")
	}
}

func TestIndexesLoadError(t *testing.T) {
	h := NewIndexes()
	if err := h.Load(context.Background(), staticSource{err: errors.New("down")}); err == nil {
		t.Fatal("expected error")
	}
	if err := h.Load(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestReadyNeedsCatalog(t *testing.T) {
	h := NewIndexes()
	h.Replace(&types.CampaignOptions{Branches: []string{"A"}})
	if !h.Ready(types.GeoDomain) {
		t.Error("geo should be ready")
	}
	if h.Ready(types.TaxonomyDomain) {
		t.Error("taxonomy without catalog should not be ready")
	}
}
