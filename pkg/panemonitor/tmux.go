package panemonitor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// Multiplexer is the subset of tmux operations the monitor and task router
// need, grounded on SS6's "Multiplexer (tmux) commands used" list.
type Multiplexer interface {
	ListWindows(ctx context.Context) ([]model.WindowInfo, error)
	CapturePane(ctx context.Context, window int, lines int) (string, error)
	SelectWindow(ctx context.Context, window int) error
	SetBuffer(ctx context.Context, text string) error
	PasteBuffer(ctx context.Context, window int) error
	SendEnter(ctx context.Context, window int) error
	SendInterrupt(ctx context.Context, window int) error
	SetStatusRight(ctx context.Context, text string) error
}

// Tmux shells out to the tmux binary for each operation.
type Tmux struct {
	Bin     string
	Session string
}

func NewTmux(session string) *Tmux {
	return &Tmux{Bin: "tmux", Session: session}
}

func (t *Tmux) target(window int) string {
	if t.Session == "" {
		return strconv.Itoa(window)
	}
	return fmt.Sprintf("%s:%d", t.Session, window)
}

func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.Bin, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("panemonitor: tmux %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func (t *Tmux) ListWindows(ctx context.Context) ([]model.WindowInfo, error) {
	out, err := t.run(ctx, "list-windows", "-F", "#{window_index} #{window_active} #{window_name}")
	if err != nil {
		return nil, err
	}
	var windows []model.WindowInfo
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			continue
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		windows = append(windows, model.WindowInfo{
			Window: idx,
			Active: fields[1] == "1",
			Name:   fields[2],
		})
	}
	return windows, nil
}

func (t *Tmux) CapturePane(ctx context.Context, window int, lines int) (string, error) {
	return t.run(ctx, "capture-pane", "-t", t.target(window), "-p", "-S", fmt.Sprintf("-%d", lines))
}

func (t *Tmux) SelectWindow(ctx context.Context, window int) error {
	_, err := t.run(ctx, "select-window", "-t", t.target(window))
	return err
}

func (t *Tmux) SetBuffer(ctx context.Context, text string) error {
	_, err := t.run(ctx, "set-buffer", text)
	return err
}

func (t *Tmux) PasteBuffer(ctx context.Context, window int) error {
	_, err := t.run(ctx, "paste-buffer", "-t", t.target(window))
	return err
}

func (t *Tmux) SendEnter(ctx context.Context, window int) error {
	_, err := t.run(ctx, "send-keys", "-t", t.target(window), "Enter")
	return err
}

func (t *Tmux) SendInterrupt(ctx context.Context, window int) error {
	_, err := t.run(ctx, "send-keys", "-t", t.target(window), "C-c")
	return err
}

func (t *Tmux) SetStatusRight(ctx context.Context, text string) error {
	_, err := t.run(ctx, "set-option", "-g", "status-right", text)
	return err
}
