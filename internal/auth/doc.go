// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package auth authenticates and authorizes callers of the HTTP API.

Two kinds of caller exist:

  - Game servers send the shared presence API key in the X-API-Key header and
    are mapped to the gameserver role.
  - Operators use HTTP Basic credentials checked against bcrypt hashes and are
    mapped to the moderator or admin role.

Authorization is RBAC through casbin. The model and the default policy are
embedded; SECURITY_AUTHZ_POLICY_PATH replaces the policy with a CSV file.

	authn := auth.NewChain(apiKeyAuth, basicAuth)
	mw := auth.NewMiddleware(authn, enforcer)

	r.With(mw.Authenticate, mw.Authorize(auth.ObjectBans, auth.ActionWrite)).
	    Post("/api/v1/anticheat/bans", h.CreateBan)
*/
package auth
