// Package session keeps the per-user authoring state: a selection store plus
// the allowed sets from the last reconciliation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/reconcile"
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/storage"
	"github.com/matst80/slask-audience/pkg/types"
)

var ErrSessionClosed = errors.New("session is closed")

type Session struct {
	ID string

	mu         sync.Mutex
	store      *selection.Store
	reconciler *reconcile.Reconciler
	allowed    facet.AllowedSets
	deferred   map[types.Domain]bool
	campaignID int64
	closed     bool
}

// State is what a client needs to render the form.
type State struct {
	ID                   string            `json:"id"`
	CampaignID           int64             `json:"campaign_id,omitempty"`
	Selections           types.Selections  `json:"selections"`
	Scalars              selection.Scalars `json:"scalars"`
	Version              uint64            `json:"version"`
	Allowed              facet.AllowedSets `json:"allowed"`
	Deferred             []types.Domain    `json:"deferred,omitempty"`
	RequiresPurchaseType bool              `json:"requires_purchase_type"`
}

type Result struct {
	Reconcile *reconcile.Result `json:"reconcile,omitempty"`
	State     State             `json:"state"`
}

func newSession(ctx context.Context, id string, r *reconcile.Reconciler) *Session {
	s := &Session{
		ID:         id,
		store:      selection.NewStore(),
		reconciler: r,
		allowed:    facet.AllowedSets{},
		deferred:   map[types.Domain]bool{},
	}
	s.reconcileLocked(ctx)
	return s
}

func (s *Session) reconcileLocked(ctx context.Context, domains ...types.Domain) reconcile.Result {
	res := s.reconciler.Reconcile(ctx, s.store, domains...)
	if len(domains) == 0 {
		domains = types.Domains
	}
	for _, d := range domains {
		delete(s.deferred, d)
	}
	for _, d := range res.Deferred {
		s.deferred[d] = true
	}
	s.allowed.Merge(res.Allowed)
	return res
}

func (s *Session) stateLocked() State {
	snap := s.store.Snapshot()
	allowed := make(facet.AllowedSets, len(s.allowed))
	for d, v := range s.allowed {
		allowed[d] = v.Clone()
	}
	st := State{
		ID:                   s.ID,
		CampaignID:           s.campaignID,
		Selections:           snap.Selections,
		Scalars:              snap.Scalars,
		Version:              snap.Version,
		Allowed:              allowed,
		RequiresPurchaseType: criteria.RequiresPurchaseType(s.store),
	}
	for _, d := range types.Domains {
		if s.deferred[d] {
			st.Deferred = append(st.Deferred, d)
		}
	}
	return st
}

func (s *Session) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, ErrSessionClosed
	}
	return s.stateLocked(), nil
}

// Handle applies one event and reconciles the domain it touched.
func (s *Session) Handle(ctx context.Context, e Event) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	var d types.Dimension
	if e.targetsDimension() {
		var err error
		if d, err = e.dimension(); err != nil {
			return nil, err
		}
	}

	var domains []types.Domain
	switch e.Kind {
	case EventSet:
		s.store.Set(d, e.Values)
		domains = []types.Domain{d.Domain()}
	case EventAdd:
		s.store.Add(d, e.Values...)
		domains = []types.Domain{d.Domain()}
	case EventRemove:
		s.store.Remove(d, e.Values...)
		domains = []types.Domain{d.Domain()}
	case EventClear:
		s.store.Clear(d)
		domains = []types.Domain{d.Domain()}
	case EventSelectAll:
		domain := d.Domain()
		if s.deferred[domain] {
			s.reconcileLocked(ctx, domain)
		}
		if s.deferred[domain] {
			return nil, &InvalidEventError{Kind: e.Kind, Reason: fmt.Sprintf("%s options are not loaded yet", domain)}
		}
		s.store.SelectAll(d, s.allowed.Get(d))
		domains = []types.Domain{domain}
	case EventReset:
		s.store.Reset()
		domains = types.Domains
	case EventAudienceMode:
		s.store.SetAudienceMode(types.ParseAudienceMode(e.AudienceMode))
	case EventPurchaseType:
		s.store.SetPurchaseType(types.ParsePurchaseType(e.PurchaseType))
	case EventRfmMode:
		s.store.SetRfmMode(types.ParseRfmMode(e.RfmMode))
	case EventScalars:
		if e.Scalars == nil {
			return nil, &InvalidEventError{Kind: e.Kind, Reason: "missing scalars"}
		}
		s.store.SetScalars(*e.Scalars)
	default:
		return nil, &InvalidEventError{Kind: e.Kind, Reason: "unknown kind"}
	}

	ret := &Result{}
	if len(domains) > 0 {
		res := s.reconcileLocked(ctx, domains...)
		ret.Reconcile = &res
	}
	ret.State = s.stateLocked()
	return ret, nil
}

// Hydrate replaces the state with a saved campaign and reconciles it
// against the current indexes.
func (s *Session) Hydrate(ctx context.Context, record *storage.CampaignRecord) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.store = record.ToStore()
	s.campaignID = record.ID
	s.allowed = facet.AllowedSets{}
	res := s.reconcileLocked(ctx)
	return &Result{Reconcile: &res, State: s.stateLocked()}, nil
}

// EnsureReconciled reconciles every domain against the current indexes.
// Called after an index load, it runs the passes that were deferred before
// the options arrived. Closed sessions are left untouched.
func (s *Session) EnsureReconciled(ctx context.Context) (*reconcile.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	res := s.reconcileLocked(ctx)
	return &res, nil
}

// Criteria validates the state and assembles the campaign payload.
func (s *Session) Criteria() (*criteria.CampaignCriteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return criteria.Assemble(s.store)
}

// Preview assembles the payload without validating it, for the audience
// count.
func (s *Session) Preview() (*criteria.CampaignCriteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return criteria.Build(s.store), nil
}

func (s *Session) CampaignID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaignID
}

// Saved records a successful save. A newly created campaign resets the form
// for the next one, an update keeps editing the same campaign.
func (s *Session) Saved(ctx context.Context, id int64, created bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, ErrSessionClosed
	}
	if created {
		s.store.Reset()
		s.campaignID = 0
		s.reconcileLocked(ctx)
	} else {
		s.campaignID = id
	}
	return s.stateLocked(), nil
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		log.Printf("session %s closed", s.ID)
	}
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
