package offchain

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/eureka-network/eureka-sink/internal/validate"
	"github.com/eureka-network/eureka-sink/offchain/dedupe"
	"github.com/eureka-network/eureka-sink/offchain/queue"
	"github.com/eureka-network/eureka-sink/offchain/store"
	"github.com/eureka-network/eureka-sink/offchain/task"
	"github.com/eureka-network/eureka-sink/pkg/metrics"
	"github.com/eureka-network/eureka-sink/pkg/shared/logging"
)

// LinkResolver downloads the raw bytes behind a URI. Implementations are
// registered by URI scheme (https, ipfs, ...).
type LinkResolver interface {
	Download(ctx context.Context, uri string) ([]byte, error)
}

// ContentParser interprets downloaded bytes for one task. Implementations
// are registered by manifest name.
type ContentParser interface {
	Parse(t task.ResolveTask, content []byte) error
}

// Resolver is the orchestrator binding the downloader registry, the
// parser registry, the delay queue, and the task state store. Registries
// are written only during the builder phase (With*), before Run begins;
// they are read-only while Run is in flight.
type Resolver struct {
	state       store.TaskStore
	queue       *queue.DelayQueue
	downloaders map[string]LinkResolver
	parsers     map[string]ContentParser
	dedupe      *dedupe.Guard

	log *zap.Logger
}

// NewResolver connects to the state store, loads all non-terminal tasks
// into a fresh delay queue, and returns an empty registry of downloaders
// and parsers.
func NewResolver(ctx context.Context, state store.TaskStore, logger *zap.Logger) (*Resolver, error) {
	dq, err := state.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		state:       state,
		queue:       dq,
		downloaders: make(map[string]LinkResolver),
		parsers:     make(map[string]ContentParser),
		log:         logger,
	}, nil
}

// WithLinkResolver registers downloader for the given URI scheme.
func (r *Resolver) WithLinkResolver(scheme string, downloader LinkResolver) *Resolver {
	r.downloaders[scheme] = downloader
	return r
}

// WithParser registers parser for the given manifest name.
func (r *Resolver) WithParser(manifest string, parser ContentParser) *Resolver {
	r.parsers[manifest] = parser
	return r
}

// WithDedupeGuard installs an optional in-flight guard consulted by
// AddTask. A nil guard (the default) disables deduplication entirely.
func (r *Resolver) WithDedupeGuard(guard *dedupe.Guard) *Resolver {
	r.dedupe = guard
	return r
}

// AddTask validates the request, persists a new task at state Queued,
// and enqueues it for immediate processing. A validation failure is
// returned before any store or queue interaction. A store failure is
// returned without enqueueing. If a dedupe guard is installed and the
// identity is already in flight, AddTask is a silent no-op.
func (r *Resolver) AddTask(ctx context.Context, manifest string, request task.OffchainData) error {
	if err := validate.ValidateAddTaskRequest(validate.AddTaskRequest{
		Manifest:        manifest,
		URI:             request.URI,
		MaxRetries:      request.MaxRetries,
		WaitBeforeRetry: request.WaitBeforeRetry,
		Metadata:        request.Metadata,
	}); err != nil {
		return err
	}

	acquired, err := r.dedupe.TryAcquire(ctx, manifest, request.URI)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}

	t := task.ResolveTask{Manifest: manifest, Request: request, NumRetries: 0}

	if err := r.state.AddTask(ctx, t); err != nil {
		return err
	}

	r.queue.Insert(t, 0)
	metrics.RecordTaskEnqueued()
	metrics.SetQueueDepth(r.queue.Len())
	return nil
}

// Run drains the delay queue until ctx is cancelled, or, when
// exitOnCompletion is true, until the queue goes empty. Each dequeued
// task is routed to its downloader by URI scheme, then its parser by
// manifest name, with retry-on-download-failure up to the task's
// MaxRetries budget.
func (r *Resolver) Run(ctx context.Context, exitOnCompletion bool) error {
	for {
		if exitOnCompletion && r.queue.IsEmpty() {
			return nil
		}

		t, ok := r.queue.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		metrics.SetQueueDepth(r.queue.Len())

		if err := r.process(ctx, t); err != nil {
			return err
		}
	}
}

func (r *Resolver) process(ctx context.Context, t task.ResolveTask) error {
	fields := logging.NewFields().Component("resolver").Operation("process").
		Custom("manifest", t.Manifest).Custom("uri", t.Request.URI)
	r.log.Debug("processing task", fields.ToZap()...)

	scheme := schemeOf(t.Request.URI)

	downloader, ok := r.downloaders[scheme]
	if !ok {
		r.log.Debug("no downloader registered", fields.Custom("scheme", scheme).ToZap()...)
		return r.state.UpdateTaskState(ctx, t, task.TaskStateUnknownURI)
	}

	parser, ok := r.parsers[t.Manifest]
	if !ok {
		r.log.Debug("no parser registered", fields.ToZap()...)
		return r.state.UpdateTaskState(ctx, t, task.TaskStateUnknownParser)
	}

	timer := metrics.NewTimer()
	content, err := downloader.Download(ctx, t.Request.URI)
	timer.RecordDownload(scheme)

	var newState task.TaskState
	if err != nil {
		r.log.Debug("download failed", fields.Error(err).ToZap()...)

		if t.IncrementTryCounter() {
			metrics.RecordRetry(scheme)
			if err := r.state.UpdateRetryCounter(ctx, t); err != nil {
				return err
			}
			r.queue.Insert(t, time.Duration(t.Request.WaitBeforeRetry)*time.Second)
			newState = task.TaskStateQueued
		} else {
			newState = task.TaskStateDownloadFailed
		}
	} else {
		parseTimer := metrics.NewTimer()
		parseErr := parser.Parse(t, content)
		parseTimer.RecordParse(t.Manifest)

		if parseErr != nil {
			r.log.Debug("parse failed", fields.Error(parseErr).ToZap()...)
			newState = task.TaskStateParsingFailed
		} else {
			newState = task.TaskStateFinished
		}
	}

	if newState.Terminal() {
		metrics.RecordTaskFinished(newState.String())
		if err := r.dedupe.Release(ctx, t.Manifest, t.Request.URI); err != nil {
			r.log.Warn("dedupe release failed", fields.Error(err).ToZap()...)
		}
	}
	return r.state.UpdateTaskState(ctx, t, newState)
}

// schemeOf returns the URI scheme of uri, or "" if uri does not parse or
// carries no scheme. An unparseable or schemeless URI simply misses
// every downloader registration, surfacing as UnknownURI.
func schemeOf(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return parsed.Scheme
}
