package server

import (
	"context"
	"net/http"
	"net/http/pprof"

	"github.com/matst80/slask-audience/pkg/audience"
	"github.com/matst80/slask-audience/pkg/common"
	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/messaging"
	"github.com/matst80/slask-audience/pkg/session"
	"github.com/matst80/slask-audience/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	noCampaignsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskaudience_campaigns_saved_total",
		Help: "The total number of saved campaigns",
	})
)

// CampaignStore is the campaign persistence the handlers need.
type CampaignStore interface {
	Create(ctx context.Context, c *criteria.CampaignCriteria) (int64, error)
	Update(ctx context.Context, id int64, c *criteria.CampaignCriteria) error
	Get(ctx context.Context, id int64) (*storage.CampaignRecord, error)
	List(ctx context.Context, limit, offset int) ([]storage.CampaignSummary, error)
	Delete(ctx context.Context, id int64) error
}

type WebServer struct {
	Indexes   *facet.Indexes
	Sessions  *session.Manager
	Campaigns CampaignStore
	Counter   audience.Counter
	Publisher messaging.Publisher
}

func (ws *WebServer) Handle() http.Handler {
	srv := http.NewServeMux()
	srv.HandleFunc("GET /options", ws.GetOptions)

	srv.HandleFunc("POST /sessions", ws.CreateSession)
	srv.HandleFunc("GET /sessions/{id}", ws.GetSession)
	srv.HandleFunc("DELETE /sessions/{id}", ws.CloseSession)
	srv.HandleFunc("POST /sessions/{id}/events", ws.HandleEvent)
	srv.HandleFunc("GET /sessions/{id}/allowed", ws.GetAllowed)
	srv.HandleFunc("GET /sessions/{id}/criteria", ws.GetCriteria)
	srv.HandleFunc("POST /sessions/{id}/count", ws.CountAudience)
	srv.HandleFunc("POST /sessions/{id}/save", ws.SaveCampaign)

	srv.HandleFunc("GET /campaigns", ws.ListCampaigns)
	srv.HandleFunc("GET /campaigns/{id}", ws.GetCampaign)
	srv.HandleFunc("DELETE /campaigns/{id}", ws.DeleteCampaign)
	return common.WithCors(srv)
}

// DebugHandler serves health, metrics and optionally pprof.
func (ws *WebServer) DebugHandler(profiling bool) http.Handler {
	srv := http.NewServeMux()
	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ws.Indexes == nil || !ws.Indexes.Loaded() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("loading"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv.Handle("/metrics", promhttp.Handler())
	if profiling {
		srv.HandleFunc("/debug/pprof/", pprof.Index)
		srv.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		srv.HandleFunc("/debug/pprof/profile", pprof.Profile)
		srv.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		srv.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return srv
}
