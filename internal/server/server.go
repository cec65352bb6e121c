// Package server provides HTTP server initialization and lifecycle
// management for the collider status surface.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/scrypster/collider/internal/config"
	"github.com/scrypster/collider/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server. It returns the actual
// address being listened on (useful for testing with port 0) and the
// WebSocketHub for wiring cycle-report broadcasts. The server shuts down
// when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, orch handlers.Orchestrator) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	mux.Handle("/api/status", handlers.StatusHandler(orch))
	mux.Handle("/api/collide", handlers.TriggerHandler(orch))
	mux.Handle("/api/emerged", handlers.EmergedHandler(orch))
	mux.Handle("/ws", wsHub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	handler := securityHeadersMiddleware(rateLimiter.Middleware(handlers.RequireAuth(mux, cfg)))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("ERROR: HTTP server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARNING: HTTP server shutdown failed: %v", err)
		}
		wsHub.Stop()
	}()

	actualAddr := listener.Addr().String()
	log.Printf("HTTP server listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}
