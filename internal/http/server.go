// Package http serves the FishBox JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fishbox/internal/middleware/ratelimit"
	"fishbox/internal/middleware/security"
	"fishbox/internal/middleware/trace"
	"fishbox/internal/services"
	"fishbox/internal/stats"
)

const readyTimeout = 2 * time.Second

// Deps are the collaborators the handlers use.
type Deps struct {
	Sessions *services.Sessions
	Social   *services.SocialService
	// Ping reports backend readiness. Nil means always ready.
	Ping func(ctx context.Context) error
	// SpotPrecision is the default for /api/spots.
	SpotPrecision int
	// RequestsPerMinute limits mutating requests per client IP.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	sessions      *services.Sessions
	social        *services.SocialService
	ping          func(ctx context.Context) error
	spotPrecision int
	limiter       *ratelimit.Limiter
	now           func() time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		sessions:      deps.Sessions,
		social:        deps.Social,
		ping:          deps.Ping,
		spotPrecision: deps.SpotPrecision,
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		now:           time.Now,
	}
	if s.spotPrecision <= 0 {
		s.spotPrecision = stats.DefaultSpotPrecision
	}

	mux := http.NewServeMux()
	s.routes(mux)

	clientIP := security.NewClientIPResolver().ClientIP
	var handler http.Handler = mux
	handler = s.limiter.Middleware(clientIP, ratelimit.Mutating, writeRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(clientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)

	mux.HandleFunc("GET /api/catches", s.handleListCatches)
	mux.HandleFunc("POST /api/catches", s.handleCreateCatch)
	mux.HandleFunc("GET /api/catches/export", s.handleExportCatches)
	mux.HandleFunc("GET /api/catches/{id}", s.handleGetCatch)
	mux.HandleFunc("PATCH /api/catches/{id}", s.handleUpdateCatch)
	mux.HandleFunc("DELETE /api/catches/{id}", s.handleDeleteCatch)

	mux.HandleFunc("GET /api/stats/summary", s.handleSummary)
	mux.HandleFunc("GET /api/stats/species", s.handleSpecies)
	mux.HandleFunc("GET /api/stats/species-length", s.handleSpeciesLength)
	mux.HandleFunc("GET /api/stats/months", s.handleMonths)
	mux.HandleFunc("GET /api/stats/hours", s.handleHours)
	mux.HandleFunc("GET /api/spots", s.handleSpots)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("POST /api/catches/{id}/like", s.handleToggleLike)
	mux.HandleFunc("GET /api/catches/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /api/catches/{id}/comments", s.handleAddComment)
	mux.HandleFunc("DELETE /api/comments/{id}", s.handleDeleteComment)

	mux.HandleFunc("GET /api/friends", s.handleFriends)
	mux.HandleFunc("POST /api/friends", s.handleRequestFriend)
	mux.HandleFunc("POST /api/friends/{id}/respond", s.handleRespondFriend)
	mux.HandleFunc("DELETE /api/friends/{id}", s.handleRemoveFriend)
}

// Shutdown stops the listener and the rate limiter, then waits for pending
// notifications and photo deletes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			if s.sessions != nil {
				s.sessions.Wait()
			}
			if s.social != nil {
				s.social.Wait()
			}
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Error("Zu viele Anfragen, bitte später erneut versuchen").
		Write(w)
}
