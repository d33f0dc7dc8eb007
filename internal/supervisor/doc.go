// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

/*
Package supervisor runs the long-lived Shopfeed services under suture v4.

The tree isolates failures per layer:

	RootSupervisor ("shopfeed")
	├── ModelSupervisor ("model-layer")
	│   └── RebuildService (cron-scheduled snapshot rebuilds)
	├── IngestSupervisor ("ingest-layer")
	│   └── eventbus.Consumer (live events into the event store)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing NATS connection restarts the consumer with backoff while the API
keeps accepting events through the direct-write fallback. A failing rebuild
never takes the API down: the engine keeps serving its last snapshot.

Supervisor events (restarts, backoff, timeouts) are logged through
sutureslog, which writes into the zerolog pipeline via logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddModelService(rebuildSvc)
	tree.AddIngestService(consumer)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh
*/
package supervisor
