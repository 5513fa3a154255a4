package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	apperrors "github.com/eureka-network/eureka-sink/internal/errors"
	"github.com/eureka-network/eureka-sink/offchain/queue"
	"github.com/eureka-network/eureka-sink/offchain/task"
	"github.com/eureka-network/eureka-sink/pkg/shared/logging"
)

// taskRow mirrors the resolve_tasks table for sqlx struct scans.
type taskRow struct {
	Manifest        string `db:"manifest"`
	URI             string `db:"uri"`
	MaxRetries      int32  `db:"max_retries"`
	WaitBeforeRetry int32  `db:"wait_before_retry"`
	Metadata        []byte `db:"metadata"`
	NumRetries      int32  `db:"num_retries"`
	State           int32  `db:"state"`
}

func (r taskRow) toTask() (task.ResolveTask, error) {
	metadata := map[string]interface{}{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return task.ResolveTask{}, err
		}
	}
	return task.ResolveTask{
		Manifest: r.Manifest,
		Request: task.OffchainData{
			URI:             r.URI,
			MaxRetries:      r.MaxRetries,
			WaitBeforeRetry: r.WaitBeforeRetry,
			Metadata:        metadata,
		},
		NumRetries: r.NumRetries,
	}, nil
}

// PostgresTaskStore implements TaskStore against the resolve_tasks table.
type PostgresTaskStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewPostgresTaskStore(db *sql.DB, logger *zap.Logger) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:  sqlx.NewDb(db, "pgx"),
		log: logger,
	}
}

func (s *PostgresTaskStore) LoadTasks(ctx context.Context) (*queue.DelayQueue, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT manifest, uri, max_retries, wait_before_retry, metadata, num_retries, state
		 FROM resolve_tasks WHERE state = $1`, int32(task.TaskStateQueued))
	if err != nil {
		return nil, apperrors.NewDatabaseError("load_tasks", err)
	}

	dq := queue.New()
	for _, row := range rows {
		t, err := row.toTask()
		if err != nil {
			return nil, apperrors.NewDatabaseError("load_tasks: decode metadata", err)
		}
		dq.Insert(t, 0)
	}

	s.log.Info("loaded non-terminal tasks", logging.NewFields().Component("store").Operation("load_tasks").Count(len(rows)).ToZap()...)
	return dq, nil
}

func (s *PostgresTaskStore) AddTask(ctx context.Context, t task.ResolveTask) error {
	metadata, err := json.Marshal(t.Request.Metadata)
	if err != nil {
		return apperrors.NewDatabaseError("add_task: encode metadata", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolve_tasks (manifest, uri, max_retries, wait_before_retry, metadata, num_retries, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, now(), now())
		ON CONFLICT (manifest, uri) DO UPDATE SET
			max_retries = EXCLUDED.max_retries,
			wait_before_retry = EXCLUDED.wait_before_retry,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, t.Manifest, t.Request.URI, t.Request.MaxRetries, t.Request.WaitBeforeRetry,
		metadata, int32(task.TaskStateQueued))
	if err != nil {
		return apperrors.NewDatabaseError("add_task", err)
	}
	return nil
}

func (s *PostgresTaskStore) UpdateTaskState(ctx context.Context, t task.ResolveTask, state task.TaskState) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE resolve_tasks SET state = $1, updated_at = now()
		WHERE manifest = $2 AND uri = $3
	`, int32(state), t.Manifest, t.Request.URI)
	if err != nil {
		return apperrors.NewDatabaseError("update_task_state", err)
	}
	return nil
}

func (s *PostgresTaskStore) UpdateRetryCounter(ctx context.Context, t task.ResolveTask) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE resolve_tasks SET num_retries = $1, updated_at = now()
		WHERE manifest = $2 AND uri = $3
	`, t.NumRetries, t.Manifest, t.Request.URI)
	if err != nil {
		return apperrors.NewDatabaseError("update_retry_counter", err)
	}
	return nil
}

func (s *PostgresTaskStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewDatabaseError("health check failed", err)
	}
	return nil
}

// GetTask looks up one task by identity for the read-only status API. The
// bool return is false (with a nil error) when no such row exists.
func (s *PostgresTaskStore) GetTask(ctx context.Context, manifest, uri string) (task.ResolveTask, task.TaskState, bool, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row,
		`SELECT manifest, uri, max_retries, wait_before_retry, metadata, num_retries, state
		 FROM resolve_tasks WHERE manifest = $1 AND uri = $2`, manifest, uri)
	if err == sql.ErrNoRows {
		return task.ResolveTask{}, 0, false, nil
	}
	if err != nil {
		return task.ResolveTask{}, 0, false, apperrors.NewDatabaseError("get_task", err)
	}

	t, err := row.toTask()
	if err != nil {
		return task.ResolveTask{}, 0, false, apperrors.NewDatabaseError("get_task: decode metadata", err)
	}
	return t, task.TaskState(row.State), true, nil
}

// ListTasks returns every task matching the optional state and manifest
// filters, for operational inspection via the status API.
func (s *PostgresTaskStore) ListTasks(ctx context.Context, state *task.TaskState, manifest string) ([]TaskListEntry, error) {
	query := `SELECT manifest, uri, max_retries, wait_before_retry, metadata, num_retries, state
	          FROM resolve_tasks WHERE ($1::smallint IS NULL OR state = $1) AND ($2 = '' OR manifest = $2)
	          ORDER BY manifest, uri`

	var stateArg interface{}
	if state != nil {
		stateArg = int32(*state)
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, stateArg, manifest); err != nil {
		return nil, apperrors.NewDatabaseError("list_tasks", err)
	}

	entries := make([]TaskListEntry, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTask()
		if err != nil {
			return nil, apperrors.NewDatabaseError("list_tasks: decode metadata", err)
		}
		entries = append(entries, TaskListEntry{
			Manifest:   t.Manifest,
			URI:        t.Request.URI,
			State:      task.TaskState(row.State),
			NumRetries: t.NumRetries,
		})
	}
	return entries, nil
}

// TaskListEntry is one row returned by ListTasks, independent of the
// api package's JSON view shape.
type TaskListEntry struct {
	Manifest   string
	URI        string
	State      task.TaskState
	NumRetries int32
}
