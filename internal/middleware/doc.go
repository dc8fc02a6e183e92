// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package middleware provides HTTP instrumentation shared by the API routes.

PrometheusMetrics records api_requests_total, api_request_duration_seconds
and api_active_requests for every request. The endpoint label is the chi
route pattern (for example /api/v1/anticheat/bans/{accountID}) so account
ids and usernames never become label values.

	r.Use(middleware.PrometheusMetrics)

Unmatched requests are labelled "unmatched".
*/
package middleware
