package facet

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/matst80/slask-audience/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var noIndexLoads = promauto.NewCounter(prometheus.CounterOpts{
	Name: "slaskaudience_index_loads_total",
	Help: "The total number of facet index loads",
})

// OptionsSource yields the raw relations the indexes are built from.
type OptionsSource interface {
	Fetch(ctx context.Context) (*types.CampaignOptions, error)
}

// Indexes is the shared, read-only pair of facet indexes. Until the first
// load completes every query answers with empty sets.
type Indexes struct {
	mu       sync.RWMutex
	loaded   bool
	options  *types.CampaignOptions
	geo      *GeoIndex
	taxonomy *TaxonomyIndex
	onLoad   []func()
}

func NewIndexes() *Indexes {
	return &Indexes{}
}

// OnLoad registers fn to run after every successful load or replace.
func (h *Indexes) OnLoad(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLoad = append(h.onLoad, fn)
}

// Load fetches options from src and swaps in new indexes. Nothing is
// applied if ctx is done by the time the fetch returns.
func (h *Indexes) Load(ctx context.Context, src OptionsSource) error {
	if src == nil {
		return errors.New("no options source")
	}
	opts, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		log.Printf("discarding options load: %v", err)
		return err
	}
	h.Replace(opts)
	return nil
}

func (h *Indexes) Replace(opts *types.CampaignOptions) {
	if opts == nil {
		opts = &types.CampaignOptions{}
	}
	opts = opts.Clone()
	opts.Normalize()
	geo := NewGeoIndexFromOptions(opts)
	taxonomy := NewTaxonomyIndex(opts.BrandHierarchy)

	h.mu.Lock()
	h.options = opts
	h.geo = geo
	h.taxonomy = taxonomy
	h.loaded = true
	hooks := append([]func(){}, h.onLoad...)
	h.mu.Unlock()

	noIndexLoads.Inc()
	log.Printf("facet indexes loaded: %d branches, %d hierarchy rows", geo.Len(), taxonomy.Len())
	for _, fn := range hooks {
		fn()
	}
}

func (h *Indexes) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}

// Ready reports whether selections in domain may be pruned. The taxonomy
// domain also needs a non-empty catalog.
func (h *Indexes) Ready(domain types.Domain) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.loaded {
		return false
	}
	if domain == types.TaxonomyDomain {
		return h.taxonomy.Len() > 0
	}
	return true
}

func (h *Indexes) Options() *types.CampaignOptions {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.options
}

func (h *Indexes) Allowed(domain types.Domain, sel types.Selections) AllowedSets {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.loaded {
		return EmptyAllowed(domain)
	}
	switch domain {
	case types.GeoDomain:
		return h.geo.Allowed(sel)
	case types.TaxonomyDomain:
		return h.taxonomy.Allowed(sel)
	}
	return AllowedSets{}
}
