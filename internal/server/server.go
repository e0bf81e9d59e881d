// Package server exposes a small ops endpoint next to the bot: health
// and a counts snapshot of the in-memory tables. It is not part of the
// access-control surface.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"crunchbot/internal/config"
	"crunchbot/internal/middleware"
)

// Stats is filled from the live stores on every /stats request.
type Stats struct {
	Grants    int `json:"grants"`
	Guilds    int `json:"guilds"`
	Pending   int `json:"pendingApprovals"`
	Sessions  int `json:"activeSessions"`
	Cookies   int `json:"cookieUsers"`
	UptimeSec int `json:"uptimeSec"`
}

func New(collect func() Stats) *http.Server {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(middleware.LoadCORS())

	limiter := middleware.NewLimiter(config.RateLimitMax, config.RateLimitWindow)
	limiter.Sweep(time.Minute)
	r.Use(limiter.Middleware)

	started := time.Now()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": config.Version,
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := collect()
		stats.UptimeSec = int(time.Since(started).Seconds())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	return &http.Server{
		Addr:              ":" + config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func PrintBanner() {
	fmt.Printf(`
  ┌──────────────────────────────────┐
  │        crunchbot %s         │
  │     media download chat bot      │
  └──────────────────────────────────┘
`, padVersion(config.Version))
}

func padVersion(v string) string {
	for len(v) < 10 {
		v += " "
	}
	return v
}
