// Package store persists ResolveTasks in Postgres, giving the resolver
// the Task State Store contract: load all non-terminal work at startup,
// insert new tasks, and record every state/retry-counter transition.
package store

import (
	"context"

	"github.com/eureka-network/eureka-sink/offchain/queue"
	"github.com/eureka-network/eureka-sink/offchain/task"
)

// TaskStore is the persistence contract the resolver's worker loop
// drives every task through.
type TaskStore interface {
	// LoadTasks returns a DelayQueue seeded with every persisted task
	// whose state is Queued, each due immediately.
	LoadTasks(ctx context.Context) (*queue.DelayQueue, error)

	// AddTask inserts a new row for t at state Queued, num_retries 0.
	// A duplicate identity upserts the upstream-owned columns in place.
	AddTask(ctx context.Context, t task.ResolveTask) error

	// UpdateTaskState persists state for t. Idempotent.
	UpdateTaskState(ctx context.Context, t task.ResolveTask, state task.TaskState) error

	// UpdateRetryCounter persists t.NumRetries, which the caller has
	// already incremented in memory. Idempotent.
	UpdateRetryCounter(ctx context.Context, t task.ResolveTask) error

	// HealthCheck reports whether the underlying connection is reachable.
	HealthCheck(ctx context.Context) error
}
