// Package task holds the off-chain resolver's core data model:
// OffchainData, ResolveTask, and TaskState. It is a leaf package with no
// dependencies on the resolver, queue, or store so each of those can
// depend on it without an import cycle.
package task

// OffchainData is the upstream-produced pointer to a piece of off-chain
// content. Metadata carries any additional upstream-defined identifying
// fields, opaque to the resolver.
type OffchainData struct {
	URI             string
	MaxRetries      int32
	WaitBeforeRetry int32 // seconds
	Metadata        map[string]interface{}
}

// TaskState is a ResolveTask's position in the state machine. The
// numeric values are part of the storage contract: they are persisted
// as-is in the resolve_tasks table and must never be renumbered.
type TaskState int32

const (
	TaskStateQueued         TaskState = 0
	TaskStateUnknownURI     TaskState = 1
	TaskStateUnknownParser  TaskState = 2
	TaskStateDownloadFailed TaskState = 3
	TaskStateParsingFailed  TaskState = 4
	TaskStateFinished       TaskState = 5
)

func (s TaskState) String() string {
	switch s {
	case TaskStateQueued:
		return "queued"
	case TaskStateUnknownURI:
		return "unknown_uri"
	case TaskStateUnknownParser:
		return "unknown_parser"
	case TaskStateDownloadFailed:
		return "download_failed"
	case TaskStateParsingFailed:
		return "parsing_failed"
	case TaskStateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions occur from this state.
func (s TaskState) Terminal() bool {
	return s != TaskStateQueued
}

// ResolveTask is the unit of work the scheduler manipulates. Identity is
// (Manifest, Request.URI); the state store round-trips a task by that pair.
type ResolveTask struct {
	Manifest   string
	Request    OffchainData
	NumRetries int32
}

// IncrementTryCounter increments NumRetries in place if the task has
// retry budget remaining, and reports whether it did.
func (t *ResolveTask) IncrementTryCounter() bool {
	if t.NumRetries < t.Request.MaxRetries {
		t.NumRetries++
		return true
	}
	return false
}
