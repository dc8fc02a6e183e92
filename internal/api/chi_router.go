// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/middleware"
)

// Router wires handlers, authentication and middleware into a chi mux.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	chiMW   *ChiMiddleware
	ws      http.Handler
}

// NewRouter creates a router. ws may be nil, in which case /ws is not
// mounted.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware, ws http.Handler) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, authMW: authMW, chiMW: chiMW, ws: ws}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	// Game servers call this with the key in the path.
	r.With(router.chiMW.RateLimitCustom(RateLimitPresence)).
		Get("/anticheat/{username}/{apikey}", h.PresenceCheck)

	if router.ws != nil {
		r.Handle("/ws", router.ws)
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Refresh is authenticated by the refresh token itself.
	r.With(router.chiMW.RateLimitCustom(RateLimitSessions), APISecurityHeaders()).
		Post("/api/v1/sessions/refresh", h.RefreshSession)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMW.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.authMW.Authenticate)

		authorize := router.authMW.Authorize

		r.Route("/telemetry", func(r chi.Router) {
			r.Use(authorize(auth.ObjectTelemetry, auth.ActionWrite))
			r.Post("/movement", h.IngestMovement)
			r.Post("/kill", h.IngestKill)
			r.Post("/violation", h.IngestViolation)
			r.Post("/session-end", h.IngestSessionEnd)
		})

		r.With(authorize(auth.ObjectMatchmaking, auth.ActionRead), h.CheckMatchmakingBan, h.CheckCompetitiveBan).
			Get("/matchmaking/ticket/{accountID}", h.MatchmakingTicket)

		r.Route("/anticheat", func(r chi.Router) {
			r.With(authorize(auth.ObjectViolations, auth.ActionRead)).Get("/violations/{accountID}", h.ViolationHistory)
			r.With(authorize(auth.ObjectBans, auth.ActionRead)).Get("/bans/{accountID}", h.BanStatus)
			r.With(authorize(auth.ObjectBans, auth.ActionWrite)).Post("/bans", h.CreateBan)
			r.With(authorize(auth.ObjectKick, auth.ActionWrite)).Post("/kick/{accountID}", h.Kick)
			r.With(authorize(auth.ObjectSweep, auth.ActionWrite)).Post("/sweep", h.Sweep)
			r.With(authorize(auth.ObjectTracking, auth.ActionDelete)).Delete("/tracking/{accountID}", h.ClearTracking)
		})

		r.With(authorize(auth.ObjectSessions, auth.ActionWrite), router.chiMW.RateLimitCustom(RateLimitSessions)).
			Post("/sessions/{accountID}", h.IssueSession)
		r.With(authorize(auth.ObjectUsers, auth.ActionWrite)).Put("/users/{accountID}", h.UpsertUser)
	})

	return r
}
