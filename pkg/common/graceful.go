package common

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
)

// ShutdownHook runs after the servers stop accepting requests. Errors are
// logged and shutdown continues.
type ShutdownHook func(ctx context.Context) error

// RunServerWithShutdown serves until SIGINT or SIGTERM, then shuts the
// servers down and runs the hooks.
func RunServerWithShutdown(name string, cfg TimeoutConfig, servers []*http.Server, hooks ...ShutdownHook) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := Serve(ctx, name, cfg, servers, hooks...); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

// Serve starts every server and blocks until ctx is done or one of them
// fails to listen. The servers get cfg.Shutdown to finish in-flight
// requests, each hook gets cfg.Hook.
func Serve(ctx context.Context, name string, cfg TimeoutConfig, servers []*http.Server, hooks ...ShutdownHook) error {
	failed := make(chan error, len(servers))
	for _, server := range servers {
		go func(server *http.Server) {
			log.Printf("starting %s on %s", name, server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failed <- err
			}
		}(server)
	}

	var listenErr error
	select {
	case <-ctx.Done():
		log.Printf("shutdown signal received for %s", name)
	case listenErr = <-failed:
		log.Printf("%s listen error: %v", name, listenErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()

	var wg sync.WaitGroup
	for _, server := range servers {
		wg.Add(1)
		go func(server *http.Server) {
			defer wg.Done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("graceful shutdown of %s failed: %v", server.Addr, err)
			}
		}(server)
	}
	wg.Wait()

	hookTimeout := cfg.Hook
	if hookTimeout <= 0 {
		hookTimeout = 5 * time.Second
	}
	for i, h := range hooks {
		if h == nil {
			continue
		}
		hCtx, hCancel := context.WithTimeout(shutdownCtx, hookTimeout)
		if err := h(hCtx); err != nil {
			log.Printf("shutdown hook %d failed: %v", i, err)
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			log.Printf("shutdown hook %d timed out", i)
		}
		hCancel()
	}
	log.Printf("%s shutdown complete", name)
	return listenErr
}

// TimeoutConfig holds server and shutdown timeouts.
type TimeoutConfig struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
	Hook       time.Duration
}

type timeoutSeconds struct {
	ReadHeader int `env:"READ_HEADER_TIMEOUT"`
	Read       int `env:"READ_TIMEOUT"`
	Write      int `env:"WRITE_TIMEOUT"`
	Idle       int `env:"IDLE_TIMEOUT"`
	Shutdown   int `env:"SHUTDOWN_TIMEOUT"`
	Hook       int `env:"HOOK_TIMEOUT"`
}

// LoadTimeoutConfig overrides defaults with positive whole seconds from
// READ_HEADER_TIMEOUT, READ_TIMEOUT, WRITE_TIMEOUT, IDLE_TIMEOUT,
// SHUTDOWN_TIMEOUT and HOOK_TIMEOUT. Unparsable values keep the defaults.
func LoadTimeoutConfig(defaults TimeoutConfig) TimeoutConfig {
	var secs timeoutSeconds
	if err := env.Parse(&secs); err != nil {
		log.Printf("ignoring timeout overrides: %v", err)
		return defaults
	}
	apply := func(curr *time.Duration, n int) {
		if n > 0 {
			*curr = time.Duration(n) * time.Second
		}
	}
	apply(&defaults.ReadHeader, secs.ReadHeader)
	apply(&defaults.Read, secs.Read)
	apply(&defaults.Write, secs.Write)
	apply(&defaults.Idle, secs.Idle)
	apply(&defaults.Shutdown, secs.Shutdown)
	apply(&defaults.Hook, secs.Hook)
	return defaults
}

// NewServerWithTimeouts creates a server for addr and handler with cfg
// applied.
func NewServerWithTimeouts(addr string, handler http.Handler, cfg TimeoutConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeader,
		ReadTimeout:       cfg.Read,
		WriteTimeout:      cfg.Write,
		IdleTimeout:       cfg.Idle,
	}
}
