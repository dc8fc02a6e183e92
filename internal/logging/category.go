// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// CategoryAnticheat tags enforcement and detection events.
const CategoryAnticheat = "anticheat"

// Anticheat returns the global logger bound to the anticheat category.
func Anticheat() *zerolog.Logger {
	l := With().Str("category", CategoryAnticheat).Logger()
	return &l
}

// AnticheatCtx is Anticheat with the request and correlation ids from ctx.
func AnticheatCtx(ctx context.Context) *zerolog.Logger {
	l := Ctx(ctx).With().Str("category", CategoryAnticheat).Logger()
	return &l
}
