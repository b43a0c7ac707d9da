package reconcile

import (
	"context"
	"log"

	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultMaxPasses = 8

var (
	noReconciles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskaudience_reconcile_total",
		Help: "The total number of reconciliation runs",
	})
	noPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskaudience_reconcile_prune_total",
		Help: "The total number of selected values removed by reconciliation",
	})
	noCeilingHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskaudience_reconcile_ceiling_total",
		Help: "Reconciliations stopped by the pass ceiling",
	})
)

var (
	name   = "slask-audience-reconcile"
	tracer = otel.Tracer(name)
)

// Querier answers allowed-set queries for a domain.
type Querier interface {
	Ready(domain types.Domain) bool
	Allowed(domain types.Domain, sel types.Selections) facet.AllowedSets
}

// Target is the selection state being kept consistent.
type Target interface {
	Selections() types.Selections
	Apply(update types.Selections) []types.Dimension
}

// Listener is told about the final allowed sets of every reconciled domain.
type Listener interface {
	OptionsChanged(domain types.Domain, allowed facet.AllowedSets)
}

type ListenerFunc func(domain types.Domain, allowed facet.AllowedSets)

func (f ListenerFunc) OptionsChanged(domain types.Domain, allowed facet.AllowedSets) {
	f(domain, allowed)
}

// Recompute derives the allowed sets of domain from the current selections.
func Recompute(idx Querier, domain types.Domain, sel types.Selections) facet.AllowedSets {
	if idx == nil {
		return facet.EmptyAllowed(domain)
	}
	allowed := idx.Allowed(domain, sel.Domain(domain))
	ret := facet.EmptyAllowed(domain)
	ret.Merge(allowed)
	return ret
}

// Prune intersects every selection of domain with its allowed set. It
// returns only the dimensions that changed, with their next value and the
// values that were dropped.
func Prune(sel types.Selections, allowed facet.AllowedSets, domain types.Domain) (types.Selections, map[types.Dimension]types.Values) {
	next := types.Selections{}
	removed := map[types.Dimension]types.Values{}
	for _, d := range domain.Dimensions() {
		current := sel.Get(d)
		kept := current.Filter(allowed.Get(d))
		if len(kept) == len(current) {
			continue
		}
		next[d] = kept
		removed[d] = current.Without(kept)
	}
	return next, removed
}

type Result struct {
	Allowed   facet.AllowedSets                `json:"allowed"`
	Pruned    map[types.Dimension]types.Values `json:"pruned,omitempty"`
	Passes    int                              `json:"passes"`
	Changed   bool                             `json:"changed"`
	Converged bool                             `json:"converged"`
	Deferred  []types.Domain                   `json:"deferred,omitempty"`
}

func newResult() Result {
	return Result{
		Allowed:   facet.AllowedSets{},
		Pruned:    map[types.Dimension]types.Values{},
		Converged: true,
	}
}

func (r *Result) merge(o Result) {
	r.Allowed.Merge(o.Allowed)
	for d, v := range o.Pruned {
		r.Pruned[d] = append(r.Pruned[d], v...)
	}
	r.Passes += o.Passes
	r.Changed = r.Changed || o.Changed
	r.Converged = r.Converged && o.Converged
	r.Deferred = append(r.Deferred, o.Deferred...)
}

type Reconciler struct {
	Index     Querier
	MaxPasses int
	Listener  Listener
}

func NewReconciler(idx Querier, maxPasses int) *Reconciler {
	return &Reconciler{Index: idx, MaxPasses: maxPasses}
}

func (r *Reconciler) maxPasses() int {
	if r.MaxPasses <= 0 {
		return DefaultMaxPasses
	}
	return r.MaxPasses
}

// Reconcile restores "selection is a subset of allowed" for the given
// domains, both when none are given. Each domain is recomputed and pruned
// until nothing changes or the pass ceiling is reached; every prune is one
// write to the target. Domains whose index is not ready are deferred and
// left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, target Target, domains ...types.Domain) Result {
	if len(domains) == 0 {
		domains = types.Domains
	}
	noReconciles.Inc()
	ret := newResult()
	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			log.Printf("reconcile aborted: %v", err)
			ret.Converged = false
			break
		}
		res := r.reconcileDomain(ctx, target, domain)
		ret.merge(res)
		if r.Listener != nil {
			r.Listener.OptionsChanged(domain, res.Allowed)
		}
	}
	if len(ret.Pruned) == 0 {
		ret.Pruned = nil
	}
	return ret
}

func (r *Reconciler) reconcileDomain(ctx context.Context, target Target, domain types.Domain) Result {
	_, span := tracer.Start(ctx, "reconcile")
	defer span.End()

	ret := newResult()
	if r.Index == nil || !r.Index.Ready(domain) {
		ret.Allowed = Recompute(r.Index, domain, target.Selections())
		ret.Deferred = []types.Domain{domain}
		span.SetAttributes(attribute.String("domain", string(domain)), attribute.Bool("deferred", true))
		return ret
	}

	maxPasses := r.maxPasses()
	converged := false
	var allowed facet.AllowedSets
	for ret.Passes < maxPasses {
		if ctx.Err() != nil {
			break
		}
		sel := target.Selections()
		allowed = Recompute(r.Index, domain, sel)
		ret.Passes++
		next, removed := Prune(sel, allowed, domain)
		if len(removed) == 0 {
			converged = true
			break
		}
		target.Apply(next)
		ret.Changed = true
		for d, v := range removed {
			ret.Pruned[d] = append(ret.Pruned[d], v...)
			noPruned.Add(float64(len(v)))
		}
	}
	if !converged {
		sel := target.Selections()
		allowed = Recompute(r.Index, domain, sel)
		if _, removed := Prune(sel, allowed, domain); len(removed) == 0 {
			converged = true
		} else {
			noCeilingHits.Inc()
			log.Printf("reconcile %s stopped after %d passes with dangling selections: %v", domain, ret.Passes, removed)
		}
	}
	ret.Allowed = allowed
	ret.Converged = converged
	if ret.Changed {
		log.Printf("reconcile %s pruned %v in %d passes", domain, ret.Pruned, ret.Passes)
	}
	span.SetAttributes(
		attribute.String("domain", string(domain)),
		attribute.Int("passes", ret.Passes),
		attribute.Bool("changed", ret.Changed),
	)
	return ret
}
