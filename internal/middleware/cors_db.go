package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CORSReloader applies rs/cors with an origin allowlist read from the
// database, rebuilt on an interval so origin changes take effect
// without a restart. The frontend URL serves as a fallback when no
// config row exists.
type CORSReloader struct {
	next     http.Handler
	repo     *database.CorsConfigRepository
	fallback string
	log      *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	current http.Handler
}

// NewCORSReloader builds the reloader.
func NewCORSReloader(repo *database.CorsConfigRepository, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next with the reloading CORS handler.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after
// Middleware() has been applied.
func (r *CORSReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.load(ctx)
		}
	}
}

func (r *CORSReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}

	origins := database.AllowedOriginsSlice(r.fallback)
	allowCreds := true
	maxAge := 86400

	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_from_db_using_fallback", zap.Error(err))
	} else if cfg != nil {
		origins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		allowCreds = cfg.AllowCredentials
		maxAge = cfg.MaxAge
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	}).Handler(r.next)

	r.mu.Lock()
	r.current = handler
	r.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (r *CORSReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	h := r.current
	r.mu.RUnlock()

	if h != nil {
		h.ServeHTTP(w, req)
		return
	}
	if r.next != nil {
		r.next.ServeHTTP(w, req)
	}
}
