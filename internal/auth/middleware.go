// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"errors"
	"net/http"

	"github.com/tomtom215/sentinel/internal/logging"
)

// Middleware wires authentication and authorization into chi routes.
type Middleware struct {
	authn    Authenticator
	enforcer *Enforcer
	realm    string
}

// NewMiddleware returns middleware over authn and enforcer. When basic is
// non-nil its realm is advertised on 401 responses.
func NewMiddleware(authn Authenticator, enforcer *Enforcer, basic *BasicAuthenticator) *Middleware {
	m := &Middleware{authn: authn, enforcer: enforcer}
	if basic != nil && basic.Len() > 0 {
		m.realm = basic.WWWAuthenticate()
	}
	return m
}

// Authenticate rejects requests without valid credentials and stores the
// subject on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authn.Authenticate(r)
		if err != nil {
			m.unauthorized(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

func (m *Middleware) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	if m.realm != "" {
		w.Header().Set("WWW-Authenticate", m.realm)
	}
	switch {
	case errors.Is(err, ErrNoCredentials):
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
	default:
		logging.Ctx(r.Context()).Warn().
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("Rejected invalid credentials")
		http.Error(w, "Unauthorized: invalid credentials", http.StatusUnauthorized)
	}
}

// Authorize allows the request only when the authenticated subject may
// perform action on object.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil {
				http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
				return
			}

			allowed, err := m.enforcer.EnforceSubject(subject, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
