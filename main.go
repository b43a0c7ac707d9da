package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/matst80/slask-audience/pkg/audience"
	"github.com/matst80/slask-audience/pkg/common"
	"github.com/matst80/slask-audience/pkg/config"
	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/messaging"
	"github.com/matst80/slask-audience/pkg/options"
	"github.com/matst80/slask-audience/pkg/reconcile"
	"github.com/matst80/slask-audience/pkg/server"
	"github.com/matst80/slask-audience/pkg/session"
	"github.com/matst80/slask-audience/pkg/storage"
	"github.com/matst80/slask-audience/pkg/types"
)

const loadRetryInterval = 30 * time.Second

func buildOptionsSource(cfg config.Config) (options.Source, *options.CachedSource, *options.RedisCache) {
	var primary options.Source = options.NewFileSource(cfg.OptionsFile)
	if cfg.OptionsURL != "" {
		primary = options.NewHTTPSource(cfg.OptionsURL)
	}
	var cached *options.CachedSource
	var redisCache *options.RedisCache
	if cfg.RedisURL != "" {
		redisCache = options.NewRedisCache(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		cached = options.NewCachedSource(primary, redisCache, cfg.OptionsCacheTTL)
		primary = cached
		log.Printf("options cache enabled, url: %s", cfg.RedisURL)
	}
	return options.FallbackSource{
		options.NewSnapshotWriter(primary, cfg.OptionsSnapshot),
		options.NewFileSource(cfg.OptionsSnapshot),
	}, cached, redisCache
}

// loadIndexes retries until the first load succeeds. Sessions opened before
// then are reconciled by the load hook.
func loadIndexes(ctx context.Context, idx *facet.Indexes, src options.Source) {
	for {
		log.Println("loading campaign options")
		err := idx.Load(ctx, src)
		if err == nil {
			return
		}
		log.Printf("failed to load campaign options: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(loadRetryInterval):
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	timeouts := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      90 * time.Second,
		Idle:       60 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := facet.NewIndexes()
	manager := session.NewManager(reconcile.NewReconciler(idx, cfg.MaxPasses), cfg.SessionTTL)
	manager.WatchIndexes(idx)
	go manager.Run(ctx)

	campaigns, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("campaign store: %v", err)
	}

	src, cached, redisCache := buildOptionsSource(cfg)
	go loadIndexes(ctx, idx, src)

	srv := &server.WebServer{
		Indexes:   idx,
		Sessions:  manager,
		Campaigns: campaigns,
	}
	if cfg.AudienceURL != "" {
		srv.Counter = audience.NewClient(cfg.AudienceURL)
	} else {
		log.Println("no audience url, counting disabled")
	}

	var transport *messaging.RabbitTransport
	var publisher *messaging.AsyncPublisher
	if cfg.RabbitURL != "" {
		transport = messaging.NewRabbitTransport(messaging.RabbitConfig{Url: cfg.RabbitURL, Prefix: cfg.RabbitPrefix})
		if err := transport.Connect(); err != nil {
			log.Printf("messaging disabled: %v", err)
			transport = nil
		} else {
			publisher = messaging.NewAsyncPublisher(transport)
			srv.Publisher = publisher
			err := transport.OnOptionsChanged(func(opts *types.CampaignOptions) error {
				if cached != nil {
					if err := cached.Invalidate(ctx); err != nil {
						log.Printf("failed to invalidate options cache: %v", err)
					}
				}
				idx.Replace(opts)
				return nil
			})
			if err != nil {
				log.Printf("failed to listen for option changes: %v", err)
			}
		}
	}

	api := common.NewServerWithTimeouts(cfg.ListenAddress, srv.Handle(), timeouts)
	debug := common.NewServerWithTimeouts(cfg.DebugAddress, srv.DebugHandler(cfg.Profiling), timeouts)
	if cfg.Profiling {
		log.Println("profiling enabled")
	}

	common.RunServerWithShutdown("slask-audience", timeouts, []*http.Server{api, debug},
		func(ctx context.Context) error {
			cancel()
			manager.CloseAll()
			return nil
		},
		func(ctx context.Context) error {
			if publisher == nil {
				return nil
			}
			return publisher.Close(ctx)
		},
		func(ctx context.Context) error {
			if transport == nil {
				return nil
			}
			return transport.Close()
		},
		func(ctx context.Context) error {
			if redisCache == nil {
				return nil
			}
			return redisCache.Close()
		},
		func(ctx context.Context) error {
			return campaigns.Close()
		},
	)
}
