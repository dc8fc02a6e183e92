// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package services adapts Sentinel's long-running components to suture.Service.

Each wrapper translates one lifecycle pattern into suture's context-aware
Serve(ctx) error and names itself through fmt.Stringer so supervisor events
identify it.

# Available Services

HTTPServerService wraps *http.Server. ListenAndServe runs in a goroutine and
context cancellation triggers Shutdown with a bounded timeout.

RunnerService wraps anything with a blocking RunWithContext(ctx) error, such
as the websocket hub and the expired-ban sweeper. RunnerFunc adapts plain
functions, which is how the telemetry router's Run is supervised.

PeriodicService calls a task on a fixed interval until the context ends.
Task errors are logged and do not stop the service, so a failing credential
GC pass does not cause restart storms.

# Example

	tree.AddDataService(services.NewRunnerService("ban-sweeper", sweeper))
	tree.AddDataService(services.NewPeriodicService("credential-gc", 10*time.Minute, gc))
	tree.AddMessagingService(services.NewRunnerService("telemetry-router", services.RunnerFunc(router.Run)))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services
