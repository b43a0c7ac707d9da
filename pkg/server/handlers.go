package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/matst80/slask-audience/pkg/common"
	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/messaging"
	"github.com/matst80/slask-audience/pkg/session"
	"github.com/matst80/slask-audience/pkg/types"
)

func (ws *WebServer) GetOptions(w http.ResponseWriter, r *http.Request) {
	if !ws.Indexes.Loaded() {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("options are not loaded yet"))
		return
	}
	common.PublicHeaders(w, r, "60")
	common.WriteJson(w, http.StatusOK, ws.Indexes.Options())
}

func (ws *WebServer) CreateSession(w http.ResponseWriter, r *http.Request) {
	var campaignId int64
	if raw := r.URL.Query().Get("campaignId"); raw != "" {
		id, err := parseId(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		campaignId = id
	}

	s := ws.Sessions.Create(r.Context())
	if campaignId == 0 {
		st, err := s.State()
		if err != nil {
			respondError(w, r, err)
			return
		}
		common.PrivateHeaders(w, r)
		common.WriteJson(w, http.StatusCreated, session.Result{State: st})
		return
	}

	record, err := ws.Campaigns.Get(r.Context(), campaignId)
	if err != nil {
		_ = ws.Sessions.Close(s.ID)
		downstreamError(w, r, err)
		return
	}
	res, err := s.Hydrate(r.Context(), record)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusCreated, res)
}

func (ws *WebServer) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	st, err := s.State()
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, st)
}

func (ws *WebServer) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := ws.Sessions.Close(r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *WebServer) HandleEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	e := session.Event{}
	if err := jsoncompat.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode event: %w", err))
		return
	}
	res, err := s.Handle(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, res)
}

// GetAllowed returns the allowed sets from the last reconciliation, narrowed
// to a domain or a single dimension.
func (ws *WebServer) GetAllowed(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	ar, err := types.GetAllowedRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	dims, err := ar.Dimensions()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	st, err := s.State()
	if err != nil {
		respondError(w, r, err)
		return
	}
	ret := make(facet.AllowedSets, len(dims))
	for _, d := range dims {
		ret[d] = st.Allowed.Get(d)
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, ret)
}

func (ws *WebServer) GetCriteria(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	c, err := s.Criteria()
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, c)
}

func (ws *WebServer) CountAudience(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	if ws.Counter == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("audience count is not configured"))
		return
	}
	c, err := s.Preview()
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := ws.Counter.Count(r.Context(), c)
	if err != nil {
		downstreamError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, res)
}

type SaveResponse struct {
	ID      int64         `json:"id"`
	Created bool          `json:"created"`
	State   session.State `json:"state"`
}

// SaveCampaign creates the campaign on first save and updates it after
// that. A create resets the session for the next campaign.
func (ws *WebServer) SaveCampaign(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.getSession(w, r)
	if !ok {
		return
	}
	c, err := s.Criteria()
	if err != nil {
		respondError(w, r, err)
		return
	}

	id := s.CampaignID()
	created := id == 0
	if created {
		id, err = ws.Campaigns.Create(r.Context(), c)
	} else {
		err = ws.Campaigns.Update(r.Context(), id, c)
	}
	if err != nil {
		downstreamError(w, r, err)
		return
	}
	noCampaignsSaved.Inc()

	if ws.Publisher != nil {
		msg := messaging.CampaignSavedMessage{ID: id, Created: created, Criteria: c}
		if err := ws.Publisher.PublishCampaignSaved(r.Context(), msg); err != nil {
			log.Printf("failed to publish campaign %d: %v", id, err)
		}
	}

	st, err := s.Saved(r.Context(), id, created)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, status, SaveResponse{ID: id, Created: created, State: st})
}

func (ws *WebServer) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	lr, err := types.GetListRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	list, err := ws.Campaigns.List(r.Context(), lr.Limit, lr.Offset)
	if err != nil {
		downstreamError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, list)
}

func (ws *WebServer) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := parseId(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	record, err := ws.Campaigns.Get(r.Context(), id)
	if err != nil {
		downstreamError(w, r, err)
		return
	}
	common.PrivateHeaders(w, r)
	common.WriteJson(w, http.StatusOK, record)
}

func (ws *WebServer) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := parseId(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := ws.Campaigns.Delete(r.Context(), id); err != nil {
		downstreamError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
