// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/domain/types"
)

// ReservationDependencies are the coordinator operations behind the
// /reservation routes.
type ReservationDependencies interface {
	Reserve(ctx context.Context, cohort int, requester string) (types.Slot, error)
	Release(ctx context.Context, cohort int, slotID, requester string) (types.Slot, error)
	ConfirmSubmission(ctx context.Context, cohort int, slotID, requester, skillsetID string) (types.Slot, error)
	Query(ctx context.Context, cohort int, requester string) (types.ReservationState, error)
}

// CohortDependencies manage cohort lifecycle.
type CohortDependencies interface {
	CreateCohort(ctx context.Context, cohort, total int) (types.ReservationState, error)
	Cohorts(ctx context.Context) ([]types.CohortSummary, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReservationDependencies
	CohortDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth    auth.Authenticator
	limiter *Limiter

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	reservationHandler *ReservationHandler
	cohortsHandler     *CohortsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAuthenticator sets how requesters are identified. Defaults to the
// X-Requester-ID header.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithLimiter rate limits mutating routes per requester.
func WithLimiter(l *Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		auth:               auth.NewHeaderAuthenticator(auth.DefaultHeader),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		reservationHandler: NewReservationHandler(deps),
		cohortsHandler:     NewCohortsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mutating := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(Authenticate(s.auth, RateLimit(s.limiter, h)), endpoint)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /reservation/{cohort}",
		MetricsMiddleware(OptionalAuthenticate(s.auth, s.reservationHandler.HandleQuery), "reservation"))
	mux.HandleFunc("POST /reservation/{cohort}/reserve", mutating(s.reservationHandler.HandleReserve, "reserve"))
	mux.HandleFunc("POST /reservation/{cohort}/release", mutating(s.reservationHandler.HandleRelease, "release"))
	mux.HandleFunc("POST /reservation/{cohort}/submit", mutating(s.reservationHandler.HandleSubmit, "submit"))

	mux.HandleFunc("GET /cohorts", MetricsMiddleware(s.cohortsHandler.HandleList, "cohorts"))
	mux.HandleFunc("POST /cohorts", mutating(s.cohortsHandler.HandleCreate, "create_cohort"))
}

// Handler returns mux wrapped in the middleware every route shares.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return Recovery(RequestID(mux))
}
