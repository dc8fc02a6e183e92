// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package supervisor runs Sentinel's long-lived services under suture v4.

The tree isolates failures by layer:

	RootSupervisor ("sentinel")
	├── DataSupervisor ("data-layer")
	│   ├── ban-sweeper
	│   ├── credential-gc
	│   └── limiter-prune
	├── MessagingSupervisor ("messaging-layer")
	│   ├── telemetry-router
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Crashed services restart with suture's backoff. Supervisor events go to slog
through sutureslog; main bridges slog to the zerolog output.

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewRunnerService("ban-sweeper", sweeper))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Wrappers for the individual components live in the services subpackage.
*/
package supervisor
