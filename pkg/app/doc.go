// Package app wires configuration, storage, Redis, the task queue and the
// HTTP handlers into the docsapi processes.
//
// The API server:
//
//	a, err := app.New(ctx, cfg, logger)
//	defer a.Close()
//	err = a.Run(ctx)
//
// A standalone worker uses NewBroker, NewWorker and NewScheduler directly.
package app
