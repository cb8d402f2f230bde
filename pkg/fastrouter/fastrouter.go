// Package fastrouter is a deterministic, regex-based command dispatcher for
// the handful of utterances that should never round-trip through an LLM
// (SS4.8). Patterns are centralized in one ordered table, not scattered
// if/elif chains, per the redesign note in SS9.
package fastrouter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lokutor-ai/jarvisd/pkg/panemonitor"
	"github.com/lokutor-ai/jarvisd/pkg/taskrouter"
)

// Result is what a matched pattern produces: an action tag for logging/
// metrics, and the reply to speak.
type Result struct {
	ActionTag string
	Reply     string
}

// Router dispatches lower-cased utterances against an ordered pattern table.
type Router struct {
	tasks *taskrouter.Router
	mux   panemonitor.Multiplexer
	table []entry
}

type entry struct {
	actionTag string
	re        *regexp.Regexp
	handle    func(ctx context.Context, r *Router, m []string) (Result, error)
}

func New(tasks *taskrouter.Router, mux panemonitor.Multiplexer) *Router {
	r := &Router{tasks: tasks, mux: mux}
	r.table = []entry{
		{
			actionTag: "assign_by_number",
			re:        regexp.MustCompile(`^(?:tell|send|ask|have|get) (?:window )?(\d+) (?:to )?(.+)$`),
			handle:    handleAssignByNumber,
		},
		{
			actionTag: "assign_by_name",
			re:        regexp.MustCompile(`^(?:tell|send|ask|have|get) (claude|gemini|codex|opencode) (?:to )?(.+)$`),
			handle:    handleAssignByName,
		},
		{
			actionTag: "check_status",
			re:        regexp.MustCompile(`^(?:check|status) (?:on |of )?(?:window )?(\d+)$`),
			handle:    handleCheckStatus,
		},
		{
			actionTag: "switch_window",
			re:        regexp.MustCompile(`^(?:switch|go) (?:to )?(?:window )?(\d+)$`),
			handle:    handleSwitch,
		},
		{
			actionTag: "cancel_window",
			re:        regexp.MustCompile(`^(?:cancel|stop|kill) (?:window )?(\d+)$`),
			handle:    handleCancel,
		},
		{
			actionTag: "list_windows",
			re:        regexp.MustCompile(`^(?:list|show) (?:all )?windows$`),
			handle:    handleList,
		},
	}
	return r
}

// Route tries each pattern in order and returns the first match's result.
// ErrNoMatch signals the caller should escalate.
func (r *Router) Route(ctx context.Context, text string) (Result, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, e := range r.table {
		m := e.re.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		return e.handle(ctx, r, m)
	}
	return Result{}, ErrNoMatch
}

func handleAssignByNumber(ctx context.Context, r *Router, m []string) (Result, error) {
	window, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, ErrNoMatch
	}
	if err := r.tasks.Assign(ctx, window, m[2]); err != nil {
		return Result{}, err
	}
	return Result{ActionTag: "assign_by_number", Reply: fmt.Sprintf("Sent to window %d.", window)}, nil
}

func handleAssignByName(ctx context.Context, r *Router, m []string) (Result, error) {
	w, ok, err := r.tasks.FindByName(ctx, m[1])
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{ActionTag: "assign_by_name", Reply: fmt.Sprintf("I couldn't find a window named %s.", m[1])}, nil
	}
	if err := r.tasks.Assign(ctx, w.Window, m[2]); err != nil {
		return Result{}, err
	}
	return Result{ActionTag: "assign_by_name", Reply: fmt.Sprintf("Sent to window %d.", w.Window)}, nil
}

func handleCheckStatus(ctx context.Context, r *Router, m []string) (Result, error) {
	window, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, ErrNoMatch
	}
	snapshot, err := r.mux.CapturePane(ctx, window, 30)
	if err != nil {
		return Result{}, err
	}
	tail := lastLinesTrimmed(snapshot, 3, 200)
	return Result{ActionTag: "check_status", Reply: tail}, nil
}

func handleSwitch(ctx context.Context, r *Router, m []string) (Result, error) {
	window, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, ErrNoMatch
	}
	if err := r.tasks.Switch(ctx, window); err != nil {
		return Result{}, err
	}
	return Result{ActionTag: "switch_window", Reply: fmt.Sprintf("Switched to window %d.", window)}, nil
}

func handleCancel(ctx context.Context, r *Router, m []string) (Result, error) {
	window, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, ErrNoMatch
	}
	if err := r.tasks.Cancel(ctx, window); err != nil {
		return Result{}, err
	}
	return Result{ActionTag: "cancel_window", Reply: fmt.Sprintf("Cancelled window %d.", window)}, nil
}

func handleList(ctx context.Context, r *Router, m []string) (Result, error) {
	windows, err := r.tasks.List(ctx)
	if err != nil {
		return Result{}, err
	}
	names := make([]string, 0, len(windows))
	for _, w := range windows {
		names = append(names, w.Name)
	}
	reply := fmt.Sprintf("%d windows: %s.", len(windows), strings.Join(names, ", "))
	return Result{ActionTag: "list_windows", Reply: reply}, nil
}

func lastLinesTrimmed(snapshot string, n, maxChars int) string {
	var lines []string
	for _, line := range strings.Split(snapshot, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	joined := strings.Join(lines, " ")
	if len(joined) > maxChars {
		joined = joined[:maxChars]
	}
	return joined
}
