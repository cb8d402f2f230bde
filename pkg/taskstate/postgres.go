package taskstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// PostgresStore is a local drop-in for the task-state service, implementing
// the same Store interface as RPCClient against a Postgres schema mirroring
// the original SQLite tables, grounded on ent0n29's store_postgres.go.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("taskstate: connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			priority TEXT NOT NULL DEFAULT 'medium',
			assignee TEXT NOT NULL DEFAULT '',
			parent_task_id BIGINT REFERENCES tasks(id) ON DELETE CASCADE,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id)`,
		`CREATE TABLE IF NOT EXISTS instance_states (
			instance_id TEXT PRIMARY KEY,
			current_task_id BIGINT REFERENCES tasks(id) ON DELETE SET NULL,
			status TEXT NOT NULL DEFAULT 'active',
			working_directory TEXT NOT NULL DEFAULT '',
			last_heartbeat TIMESTAMPTZ NOT NULL DEFAULT now(),
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instance_status ON instance_states(status)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("taskstate: init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func pgIDArg(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not numeric", ErrInvalidField, id)
	}
	return n, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, params CreateTaskParams) (model.Task, error) {
	status := params.Status
	if status == "" {
		status = model.TaskPending
	}
	priority := params.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !validTaskStatus(status) {
		return model.Task{}, fmt.Errorf("%w: status %q", ErrInvalidField, status)
	}
	if !validPriority(priority) {
		return model.Task{}, fmt.Errorf("%w: priority %q", ErrInvalidField, priority)
	}

	var parentID *int64
	if params.ParentTaskID != "" {
		n, err := pgIDArg(params.ParentTaskID)
		if err != nil {
			return model.Task{}, err
		}
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)`, n).Scan(&exists); err != nil {
			return model.Task{}, fmt.Errorf("taskstate: check parent task: %w", err)
		}
		if !exists {
			return model.Task{}, fmt.Errorf("%w: parent task %d does not exist", ErrInvalidField, n)
		}
		parentID = &n
	}

	var metaJSON *string
	if len(params.Metadata) > 0 {
		m := string(params.Metadata)
		metaJSON = &m
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, assignee, parent_task_id, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		params.Title, params.Description, string(status), string(priority), params.Assignee, parentID, metaJSON,
	).Scan(&id)
	if err != nil {
		return model.Task{}, fmt.Errorf("taskstate: insert task: %w", err)
	}

	task, _, err := s.GetTask(ctx, strconv.FormatInt(id, 10))
	return task, err
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, updates map[string]any) (model.Task, error) {
	n, err := pgIDArg(id)
	if err != nil {
		return model.Task{}, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)`, n).Scan(&exists); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: check task exists: %w", err)
	}
	if !exists {
		return model.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, n)
	}

	setClauses := []string{}
	args := []any{}
	argN := 1
	for field, value := range updates {
		if !allowedTaskFields[field] {
			return model.Task{}, fmt.Errorf("%w: field %q", ErrInvalidField, field)
		}
		argN++
		switch field {
		case "status":
			status := model.TaskStatus(fmt.Sprint(value))
			if !validTaskStatus(status) {
				return model.Task{}, fmt.Errorf("%w: status %q", ErrInvalidField, status)
			}
			value = string(status)
		case "priority":
			priority := model.TaskPriority(fmt.Sprint(value))
			if !validPriority(priority) {
				return model.Task{}, fmt.Errorf("%w: priority %q", ErrInvalidField, priority)
			}
			value = string(priority)
		case "metadata":
			if m, ok := value.(map[string]any); ok {
				b, err := json.Marshal(m)
				if err != nil {
					return model.Task{}, fmt.Errorf("taskstate: marshal metadata: %w", err)
				}
				value = string(b)
			}
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argN))
		args = append(args, value)
	}
	if len(setClauses) == 0 {
		return model.Task{}, fmt.Errorf("%w: no valid fields to update", ErrInvalidField)
	}

	setClauses = append(setClauses, "updated_at = now()")
	if status, ok := updates["status"]; ok && fmt.Sprint(status) == string(model.TaskCompleted) {
		setClauses = append(setClauses, "completed_at = now()")
	}

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $1", strings.Join(setClauses, ", "))
	args = append([]any{n}, args...)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: update task: %w", err)
	}

	task, _, err := s.GetTask(ctx, id)
	return task, err
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) (model.Task, error) {
	task, _, err := s.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	n, err := pgIDArg(id)
	if err != nil {
		return model.Task{}, err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, n); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: delete task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (model.Task, []string, error) {
	n, err := pgIDArg(id)
	if err != nil {
		return model.Task{}, nil, err
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, title, description, status, priority, assignee, parent_task_id, metadata,
		       created_at, updated_at, completed_at
		FROM tasks WHERE id = $1`, n)

	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Task{}, nil, fmt.Errorf("%w: task %d", ErrNotFound, n)
		}
		return model.Task{}, nil, fmt.Errorf("taskstate: get task: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT id FROM tasks WHERE parent_task_id = $1`, n)
	if err != nil {
		return model.Task{}, nil, fmt.Errorf("taskstate: list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []string
	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			return model.Task{}, nil, fmt.Errorf("taskstate: scan subtask id: %w", err)
		}
		subtasks = append(subtasks, strconv.FormatInt(sid, 10))
	}
	return task, subtasks, nil
}

func (s *PostgresStore) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, title, description, status, priority, assignee, parent_task_id, metadata,
	                 created_at, updated_at, completed_at FROM tasks`
	var where []string
	var args []any
	argN := 0

	add := func(clause string, value any) {
		argN++
		where = append(where, fmt.Sprintf(clause, argN))
		args = append(args, value)
	}

	if filter.ID != "" {
		n, err := pgIDArg(filter.ID)
		if err != nil {
			return nil, err
		}
		add("id = $%d", n)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Priority != "" {
		add("priority = $%d", string(filter.Priority))
	}
	if filter.Assignee != "" {
		add("assignee = $%d", filter.Assignee)
	}
	if filter.ParentTaskID != "" {
		n, err := pgIDArg(filter.ParentTaskID)
		if err != nil {
			return nil, err
		}
		add("parent_task_id = $%d", n)
	}
	if filter.TitleContains != "" {
		add("title ILIKE $%d", "%"+filter.TitleContains+"%")
	}
	if filter.DescriptionContains != "" {
		add("description ILIKE $%d", "%"+filter.DescriptionContains+"%")
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskstate: query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskstate: scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		id          int64
		title       string
		description string
		status      string
		priority    string
		assignee    string
		parentID    *int64
		metadata    *string
		createdAt   time.Time
		updatedAt   time.Time
		completedAt *time.Time
	)
	if err := row.Scan(&id, &title, &description, &status, &priority, &assignee,
		&parentID, &metadata, &createdAt, &updatedAt, &completedAt); err != nil {
		return model.Task{}, err
	}

	t := model.Task{
		ID:          strconv.FormatInt(id, 10),
		Title:       title,
		Description: description,
		Status:      model.TaskStatus(status),
		Priority:    model.TaskPriority(priority),
		Assignee:    assignee,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		CompletedAt: completedAt,
	}
	if parentID != nil {
		t.ParentTaskID = strconv.FormatInt(*parentID, 10)
	}
	if metadata != nil {
		t.Metadata = []byte(*metadata)
	}
	return t, nil
}

func scanInstance(row rowScanner) (model.InstanceState, error) {
	var (
		instanceID string
		taskID     *int64
		status     string
		workdir    string
		heartbeat  time.Time
		metadata   *string
	)
	if err := row.Scan(&instanceID, &taskID, &status, &workdir, &heartbeat, &metadata); err != nil {
		return model.InstanceState{}, err
	}
	s := model.InstanceState{
		InstanceID:       instanceID,
		Status:           model.InstanceStatus(status),
		WorkingDirectory: workdir,
		LastHeartbeat:    heartbeat,
	}
	if taskID != nil {
		s.CurrentTaskID = strconv.FormatInt(*taskID, 10)
	}
	if metadata != nil {
		s.Metadata = []byte(*metadata)
	}
	return s, nil
}

const instanceSelectCols = `instance_id, current_task_id, status, working_directory, last_heartbeat, metadata`

func (s *PostgresStore) GetInstanceState(ctx context.Context, instanceID string) (model.InstanceState, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+instanceSelectCols+` FROM instance_states WHERE instance_id = $1`, instanceID)
	state, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.InstanceState{}, fmt.Errorf("%w: instance %s", ErrNotFound, instanceID)
		}
		return model.InstanceState{}, fmt.Errorf("taskstate: get instance state: %w", err)
	}
	return state, nil
}

func (s *PostgresStore) SetInstanceState(ctx context.Context, instanceID string, updates map[string]any) (model.InstanceState, error) {
	if status, ok := updates["status"]; ok {
		st := model.InstanceStatus(fmt.Sprint(status))
		if !validInstanceStatus(st) {
			return model.InstanceState{}, fmt.Errorf("%w: status %q", ErrInvalidField, st)
		}
	}
	if taskID, ok := updates["current_task_id"]; ok && taskID != nil {
		n, err := pgIDArg(fmt.Sprint(taskID))
		if err != nil {
			return model.InstanceState{}, err
		}
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)`, n).Scan(&exists); err != nil {
			return model.InstanceState{}, fmt.Errorf("taskstate: check task exists: %w", err)
		}
		if !exists {
			return model.InstanceState{}, fmt.Errorf("%w: task %d does not exist", ErrInvalidField, n)
		}
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM instance_states WHERE instance_id=$1)`, instanceID).Scan(&exists); err != nil {
		return model.InstanceState{}, fmt.Errorf("taskstate: check instance exists: %w", err)
	}

	if !exists {
		status := "active"
		if v, ok := updates["status"]; ok {
			status = fmt.Sprint(v)
		}
		var workdir string
		if v, ok := updates["working_directory"]; ok {
			workdir = fmt.Sprint(v)
		}
		var taskID *int64
		if v, ok := updates["current_task_id"]; ok && v != nil {
			n, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)
			taskID = &n
		}
		var metaJSON *string
		if v, ok := updates["metadata"]; ok {
			if m, ok := v.(map[string]any); ok {
				b, _ := json.Marshal(m)
				s := string(b)
				metaJSON = &s
			}
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO instance_states (instance_id, current_task_id, status, working_directory, metadata)
			VALUES ($1,$2,$3,$4,$5)`, instanceID, taskID, status, workdir, metaJSON); err != nil {
			return model.InstanceState{}, fmt.Errorf("taskstate: insert instance state: %w", err)
		}
		return s.GetInstanceState(ctx, instanceID)
	}

	setClauses := []string{}
	args := []any{}
	argN := 1
	for field, value := range updates {
		if !allowedInstanceFields[field] {
			return model.InstanceState{}, fmt.Errorf("%w: field %q", ErrInvalidField, field)
		}
		argN++
		if field == "metadata" {
			if m, ok := value.(map[string]any); ok {
				b, err := json.Marshal(m)
				if err != nil {
					return model.InstanceState{}, fmt.Errorf("taskstate: marshal metadata: %w", err)
				}
				value = string(b)
			}
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argN))
		args = append(args, value)
	}
	if len(setClauses) > 0 {
		setClauses = append(setClauses, "last_heartbeat = now()")
		query := fmt.Sprintf("UPDATE instance_states SET %s WHERE instance_id = $1", strings.Join(setClauses, ", "))
		args = append([]any{instanceID}, args...)
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return model.InstanceState{}, fmt.Errorf("taskstate: update instance state: %w", err)
		}
	}
	return s.GetInstanceState(ctx, instanceID)
}

func (s *PostgresStore) ListActiveInstances(ctx context.Context) ([]model.InstanceState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+instanceSelectCols+` FROM instance_states
		WHERE last_heartbeat > now() - interval '5 minutes'
		ORDER BY last_heartbeat DESC`)
	if err != nil {
		return nil, fmt.Errorf("taskstate: list active instances: %w", err)
	}
	defer rows.Close()

	var instances []model.InstanceState
	for rows.Next() {
		state, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("taskstate: scan instance row: %w", err)
		}
		instances = append(instances, state)
	}
	return instances, rows.Err()
}

func (s *PostgresStore) Heartbeat(ctx context.Context, instanceID string) (model.InstanceState, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM instance_states WHERE instance_id=$1)`, instanceID).Scan(&exists); err != nil {
		return model.InstanceState{}, fmt.Errorf("taskstate: check instance exists: %w", err)
	}
	if exists {
		if _, err := s.pool.Exec(ctx, `UPDATE instance_states SET last_heartbeat = now() WHERE instance_id = $1`, instanceID); err != nil {
			return model.InstanceState{}, fmt.Errorf("taskstate: heartbeat: %w", err)
		}
	} else {
		if _, err := s.pool.Exec(ctx, `INSERT INTO instance_states (instance_id, status) VALUES ($1, 'active')`, instanceID); err != nil {
			return model.InstanceState{}, fmt.Errorf("taskstate: auto-create instance: %w", err)
		}
	}
	return s.GetInstanceState(ctx, instanceID)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
