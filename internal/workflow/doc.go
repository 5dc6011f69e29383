// Package workflow runs the job queue.
//
// The Manager owns the ordered job collection and a single worker goroutine.
// The worker checkpoints the collection, picks the first ready job by
// position, runs its lifecycle (prepare, pre actions, write, post actions)
// and publishes working, failed, cancelled and completed events on the hub.
// A failed job does not stop the worker; a cancelled one does. While the
// worker runs it holds a sleep inhibitor.
//
// Collection mutations (Insert, Remove, Move, Swap, Retry) are safe to call
// from any goroutine. The job that is currently working cannot be removed or
// reordered.
//
// The Scheduler starts the queue on a cron expression.
package workflow
