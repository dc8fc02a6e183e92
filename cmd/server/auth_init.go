// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"fmt"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
)

// authComponents is the moderation API's authentication stack.
type authComponents struct {
	middleware *auth.Middleware
	apiKey     *auth.APIKeyAuthenticator
	operators  int
}

// initAuth builds the game-server API key, the operator accounts and the
// casbin enforcer. Operators with an empty username are skipped.
func initAuth(sec *config.SecurityConfig, presence *config.PresenceConfig) (*authComponents, error) {
	apiKey := auth.NewAPIKeyAuthenticator(presence.APIKey)
	if apiKey == nil {
		return nil, fmt.Errorf("presence API key is required")
	}

	basic := auth.NewBasicAuthenticator()
	operators := []struct {
		username, password, role string
	}{
		{sec.AdminUsername, sec.AdminPassword, auth.RoleAdmin},
		{sec.ModeratorUsername, sec.ModeratorPassword, auth.RoleModerator},
	}
	for _, op := range operators {
		if op.username == "" {
			continue
		}
		if err := basic.AddOperator(op.username, op.password, op.role); err != nil {
			return nil, fmt.Errorf("add %s operator: %w", op.role, err)
		}
	}
	if basic.Len() == 0 {
		logging.Warn().Msg("No operator accounts configured; moderation endpoints are unreachable")
	}

	enforcer, err := auth.NewEnforcer(sec.AuthzPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("create authorization enforcer: %w", err)
	}
	if sec.AuthzPolicyPath != "" {
		logging.Info().Str("path", sec.AuthzPolicyPath).Msg("Loaded authorization policy file")
	}

	return &authComponents{
		middleware: auth.NewMiddleware(auth.NewChain(apiKey, basic), enforcer, basic),
		apiKey:     apiKey,
		operators:  basic.Len(),
	}, nil
}
