package taskstate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// sqliteTimeLayout matches the original server's CURRENT_TIMESTAMP column
// format ("2024-01-02 15:04:05").
const sqliteTimeLayout = "2006-01-02 15:04:05"

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// RPCClient talks to the task-state service over a line-delimited JSON-RPC
// 2.0 stdio connection, matching mcp-servers/task-state/server.py's
// read_message/send_message wire protocol (one JSON object per line, no
// framing headers).
type RPCClient struct {
	stdin     io.WriteCloser
	closeProc func() error
	log       logging.Logger

	nextID int64

	mu        sync.Mutex
	pending   map[int64]chan rpcResponse
	closed    chan struct{}
	closeOnce sync.Once
}

// NewRPCClient launches the task-state server subprocess and performs the
// MCP initialize handshake.
func NewRPCClient(ctx context.Context, execPath string, args []string, logger logging.Logger) (*RPCClient, error) {
	cmd := exec.Command(execPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("taskstate: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("taskstate: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("taskstate: start %s: %w", execPath, err)
	}

	closeProc := func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return cmd.Wait()
	}
	return newRPCClient(ctx, stdin, stdout, closeProc, logger)
}

// newRPCClient wires an RPCClient over any pair of pipes, decoupled from
// exec.Cmd so tests can substitute an in-process fake server.
func newRPCClient(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, closeProc func() error, logger logging.Logger) (*RPCClient, error) {
	c := &RPCClient{
		stdin:     stdin,
		closeProc: closeProc,
		log:       logging.OrNoOp(logger),
		pending:   make(map[int64]chan rpcResponse),
		closed:    make(chan struct{}),
	}
	go c.readLoop(bufio.NewScanner(stdout))

	if _, err := c.call(ctx, "initialize", map[string]any{}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("taskstate: initialize: %w", err)
	}
	return c, nil
}

func (c *RPCClient) readLoop(scanner *bufio.Scanner) {
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			c.log.Warn("taskstate: malformed rpc line", "err", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	close(c.closed)
}

func (c *RPCClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan rpcResponse, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("taskstate: marshal request: %w", err)
	}
	line = append(line, '\n')

	if _, err := c.stdin.Write(line); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("taskstate: write request: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("taskstate: rpc error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, fmt.Errorf("taskstate: rpc connection closed")
	}
}

// callTool invokes tools/call and unwraps the text content envelope the
// server uses for every tool result.
func (c *RPCClient) callTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	raw, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("taskstate: decode tool envelope: %w", err)
	}
	if len(envelope.Content) == 0 {
		return nil, fmt.Errorf("taskstate: empty tool response for %s", name)
	}

	text := envelope.Content[0].Text
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err == nil && probe.Error != "" {
		return nil, toolError(probe.Error)
	}
	return json.RawMessage(text), nil
}

// toolError maps the server's plain-string error messages onto sentinels
// where the shape is recognizable, falling back to a generic wrapped error.
func toolError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "does not exist"):
		return fmt.Errorf("%w: %s", ErrInvalidField, msg)
	default:
		return fmt.Errorf("taskstate: %s", msg)
	}
}

type wireTask struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  *string        `json:"description"`
	Status       string         `json:"status"`
	Priority     string         `json:"priority"`
	Assignee     *string        `json:"assignee"`
	ParentTaskID *int64         `json:"parent_task_id"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	CompletedAt  *string        `json:"completed_at"`
	SubtaskIDs   []int64        `json:"subtask_ids"`
}

func parseSQLiteTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (w wireTask) toModel() model.Task {
	t := model.Task{
		ID:        strconv.FormatInt(w.ID, 10),
		Title:     w.Title,
		Status:    model.TaskStatus(w.Status),
		Priority:  model.TaskPriority(w.Priority),
		CreatedAt: parseSQLiteTime(w.CreatedAt),
		UpdatedAt: parseSQLiteTime(w.UpdatedAt),
	}
	if w.Description != nil {
		t.Description = *w.Description
	}
	if w.Assignee != nil {
		t.Assignee = *w.Assignee
	}
	if w.ParentTaskID != nil {
		t.ParentTaskID = strconv.FormatInt(*w.ParentTaskID, 10)
	}
	if w.Metadata != nil {
		t.Metadata, _ = json.Marshal(w.Metadata)
	}
	if w.CompletedAt != nil {
		ts := parseSQLiteTime(*w.CompletedAt)
		t.CompletedAt = &ts
	}
	return t
}

type wireInstance struct {
	InstanceID       string         `json:"instance_id"`
	CurrentTaskID    *int64         `json:"current_task_id"`
	Status           string         `json:"status"`
	WorkingDirectory *string        `json:"working_directory"`
	LastHeartbeat    string         `json:"last_heartbeat"`
	Metadata         map[string]any `json:"metadata"`
}

func (w wireInstance) toModel() model.InstanceState {
	s := model.InstanceState{
		InstanceID:    w.InstanceID,
		Status:        model.InstanceStatus(w.Status),
		LastHeartbeat: parseSQLiteTime(w.LastHeartbeat),
	}
	if w.CurrentTaskID != nil {
		s.CurrentTaskID = strconv.FormatInt(*w.CurrentTaskID, 10)
	}
	if w.WorkingDirectory != nil {
		s.WorkingDirectory = *w.WorkingDirectory
	}
	if w.Metadata != nil {
		s.Metadata, _ = json.Marshal(w.Metadata)
	}
	return s
}

func parentIDArg(id string) (any, error) {
	if id == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parent_task_id %q is not numeric", ErrInvalidField, id)
	}
	return n, nil
}

func idArg(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not numeric", ErrInvalidField, id)
	}
	return n, nil
}

func (c *RPCClient) CreateTask(ctx context.Context, params CreateTaskParams) (model.Task, error) {
	args := map[string]any{"title": params.Title}
	if params.Description != "" {
		args["description"] = params.Description
	}
	if params.Status != "" {
		args["status"] = string(params.Status)
	}
	if params.Priority != "" {
		args["priority"] = string(params.Priority)
	}
	if params.Assignee != "" {
		args["assignee"] = params.Assignee
	}
	if params.ParentTaskID != "" {
		pid, err := parentIDArg(params.ParentTaskID)
		if err != nil {
			return model.Task{}, err
		}
		args["parent_task_id"] = pid
	}
	if len(params.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(params.Metadata, &meta); err != nil {
			return model.Task{}, fmt.Errorf("taskstate: metadata not valid json: %w", err)
		}
		args["metadata"] = meta
	}

	raw, err := c.callTool(ctx, "create_task", args)
	if err != nil {
		return model.Task{}, err
	}
	var w wireTask
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: decode created task: %w", err)
	}
	return w.toModel(), nil
}

func (c *RPCClient) UpdateTask(ctx context.Context, id string, updates map[string]any) (model.Task, error) {
	n, err := idArg(id)
	if err != nil {
		return model.Task{}, err
	}
	raw, err := c.callTool(ctx, "update_task", map[string]any{"id": n, "updates": updates})
	if err != nil {
		return model.Task{}, err
	}
	var w wireTask
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: decode updated task: %w", err)
	}
	return w.toModel(), nil
}

func (c *RPCClient) DeleteTask(ctx context.Context, id string) (model.Task, error) {
	n, err := idArg(id)
	if err != nil {
		return model.Task{}, err
	}
	raw, err := c.callTool(ctx, "delete_task", map[string]any{"id": n})
	if err != nil {
		return model.Task{}, err
	}
	var result struct {
		Success     bool     `json:"success"`
		DeletedTask wireTask `json:"deleted_task"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.Task{}, fmt.Errorf("taskstate: decode delete result: %w", err)
	}
	return result.DeletedTask.toModel(), nil
}

func (c *RPCClient) GetTask(ctx context.Context, id string) (model.Task, []string, error) {
	n, err := idArg(id)
	if err != nil {
		return model.Task{}, nil, err
	}
	raw, err := c.callTool(ctx, "get_task", map[string]any{"id": n})
	if err != nil {
		return model.Task{}, nil, err
	}
	var w wireTask
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Task{}, nil, fmt.Errorf("taskstate: decode task: %w", err)
	}
	subtasks := make([]string, 0, len(w.SubtaskIDs))
	for _, id := range w.SubtaskIDs {
		subtasks = append(subtasks, strconv.FormatInt(id, 10))
	}
	return w.toModel(), subtasks, nil
}

func (c *RPCClient) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	filters := map[string]any{}
	if filter.ID != "" {
		n, err := idArg(filter.ID)
		if err != nil {
			return nil, err
		}
		filters["id"] = n
	}
	if filter.Status != "" {
		filters["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		filters["priority"] = string(filter.Priority)
	}
	if filter.Assignee != "" {
		filters["assignee"] = filter.Assignee
	}
	if filter.ParentTaskID != "" {
		pid, err := parentIDArg(filter.ParentTaskID)
		if err != nil {
			return nil, err
		}
		filters["parent_task_id"] = pid
	}
	if filter.TitleContains != "" {
		filters["title_contains"] = filter.TitleContains
	}
	if filter.DescriptionContains != "" {
		filters["description_contains"] = filter.DescriptionContains
	}

	args := map[string]any{}
	if len(filters) > 0 {
		args["filters"] = filters
	}

	raw, err := c.callTool(ctx, "query_tasks", args)
	if err != nil {
		return nil, err
	}
	var wires []wireTask
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, fmt.Errorf("taskstate: decode query results: %w", err)
	}
	tasks := make([]model.Task, 0, len(wires))
	for _, w := range wires {
		tasks = append(tasks, w.toModel())
	}
	return tasks, nil
}

func (c *RPCClient) GetInstanceState(ctx context.Context, instanceID string) (model.InstanceState, error) {
	raw, err := c.callTool(ctx, "get_instance_state", map[string]any{"instance_id": instanceID})
	if err != nil {
		return model.InstanceState{}, err
	}
	var w wireInstance
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.InstanceState{}, fmt.Errorf("taskstate: decode instance state: %w", err)
	}
	return w.toModel(), nil
}

func (c *RPCClient) SetInstanceState(ctx context.Context, instanceID string, updates map[string]any) (model.InstanceState, error) {
	raw, err := c.callTool(ctx, "set_instance_state", map[string]any{
		"instance_id": instanceID,
		"state":       updates,
	})
	if err != nil {
		return model.InstanceState{}, err
	}
	var w wireInstance
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.InstanceState{}, fmt.Errorf("taskstate: decode instance state: %w", err)
	}
	return w.toModel(), nil
}

func (c *RPCClient) ListActiveInstances(ctx context.Context) ([]model.InstanceState, error) {
	raw, err := c.callTool(ctx, "list_active_instances", map[string]any{})
	if err != nil {
		return nil, err
	}
	var wires []wireInstance
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, fmt.Errorf("taskstate: decode active instances: %w", err)
	}
	instances := make([]model.InstanceState, 0, len(wires))
	for _, w := range wires {
		instances = append(instances, w.toModel())
	}
	return instances, nil
}

func (c *RPCClient) Heartbeat(ctx context.Context, instanceID string) (model.InstanceState, error) {
	raw, err := c.callTool(ctx, "heartbeat", map[string]any{"instance_id": instanceID})
	if err != nil {
		return model.InstanceState{}, err
	}
	var w wireInstance
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.InstanceState{}, fmt.Errorf("taskstate: decode instance state: %w", err)
	}
	return w.toModel(), nil
}

func (c *RPCClient) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.stdin.Close()
		if c.closeProc != nil {
			_ = c.closeProc()
		}
	})
	return closeErr
}
