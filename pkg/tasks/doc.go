// Package tasks is the background task system: a Task model, queues
// (in-memory and Redis), a handler Registry and a Worker that drains a queue.
//
// The API process only enqueues:
//
//	err := queue.Enqueue(ctx, tasks.NewUpdateDocs(project.ID, version.ID))
//
// The worker process registers handlers and runs:
//
//	registry := tasks.NewRegistry()
//	registry.Register(tasks.UpdateDocsTask, tasks.UpdateDocsHandler(store))
//	tasks.NewWorker(queue, registry, tasks.WorkerConfig{Concurrency: 4}, logger, metrics).Run(ctx)
//
// Delivery is at-least-once. Handlers must tolerate running twice.
package tasks
