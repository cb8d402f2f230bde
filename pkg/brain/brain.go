// Package brain is the heavyweight reasoning path (SS4.10): it shells out to
// an external reasoning-agent executable, assembling a prompt from screen
// context, RAG snippets, and conversation history. Conversation history is
// owned and mutated only here (SS9); other packages never see it.
package brain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

const (
	quickTimeout = 15 * time.Second
	fullTimeout  = 60 * time.Second
	maxHistory   = 10
	actionWords  = 12

	// stopGrace mirrors ent0n29's stopProcessBestEffort: a deadline-exceeded
	// reasoning agent gets SIGTERM and a brief grace period to flush its
	// output file before SIGKILL, instead of the hard kill
	// exec.CommandContext would otherwise deliver immediately.
	stopGrace = 700 * time.Millisecond
)

// Config points at the reasoning-agent executable and its scratch directory.
type Config struct {
	ExecPath   string
	Args       []string
	ScratchDir string
}

// Client is the Brain Client.
type Client struct {
	cfg Config
	log logging.Logger

	mu      sync.Mutex
	history []model.ConversationTurn
}

func New(cfg Config, logger logging.Logger) *Client {
	return &Client{cfg: cfg, log: logging.OrNoOp(logger)}
}

// DecideMode applies SS4.10's quick-vs-full heuristic.
func DecideMode(utterance string) model.BrainMode {
	if hasActionKeyword(utterance) {
		return model.BrainModeFull
	}
	if len(strings.Fields(utterance)) <= actionWords {
		return model.BrainModeQuick
	}
	return model.BrainModeFull
}

// NeedsVision reports whether full mode should additionally run the
// vision-model path, per the screen keyword superset (SS6).
func NeedsVision(utterance string) bool {
	return hasScreenKeyword(utterance)
}

// ClearHistory drops all recorded turns, called by the orchestrator on
// return to IDLE.
func (c *Client) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// Invoke runs the reasoning agent and records the turn in history. screen
// and ragHits may be nil/empty; quick mode omits screen context by
// convention of the caller (screen should be nil in quick mode).
func (c *Client) Invoke(ctx context.Context, utterance string, mode model.BrainMode, screen *model.ScreenSnapshot, ragHits []model.RAGHit) (string, error) {
	c.mu.Lock()
	history := append([]model.ConversationTurn(nil), c.history...)
	c.mu.Unlock()

	prompt := buildPrompt(utterance, screen, ragHits, history)

	timeout := quickTimeout
	if mode == model.BrainModeFull {
		timeout = fullTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.run(runCtx, prompt)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}

	reply := postprocess(raw)

	c.mu.Lock()
	c.history = append(c.history, model.ConversationTurn{UserText: utterance, AssistantText: reply, TS: time.Now()})
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
	c.mu.Unlock()

	return reply, nil
}

func (c *Client) run(ctx context.Context, prompt string) (string, error) {
	outputFile, err := os.CreateTemp(c.cfg.ScratchDir, "brain-reply-*.txt")
	if err != nil {
		return "", fmt.Errorf("brain: create output file: %w", err)
	}
	outputPath := outputFile.Name()
	outputFile.Close()
	defer os.Remove(outputPath)

	args := append(append([]string{}, c.cfg.Args...), "--message", prompt, "--output-file", outputPath)
	cmd := exec.Command(c.cfg.ExecPath, args...)
	var stdout strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("brain: start reasoning agent: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case runErr := <-waitErr:
		if runErr != nil {
			return "", fmt.Errorf("brain: reasoning agent failed: %w: %s", runErr, strings.TrimSpace(stdout.String()))
		}
	case <-ctx.Done():
		c.log.Warn("brain: reasoning agent exceeded deadline, stopping", "grace", stopGrace)
		if err := stopProcessBestEffort(cmd, waitErr, stopGrace); err != nil {
			c.log.Warn("brain: failed to stop reasoning agent", "err", err)
		}
		return "", ctx.Err()
	}

	if contents, readErr := os.ReadFile(outputPath); readErr == nil {
		if text := strings.TrimSpace(string(contents)); text != "" {
			return text, nil
		}
	}

	return scanTrailingReply(stdout.String()), nil
}

// stopProcessBestEffort signals SIGTERM and waits up to grace for the
// process to exit before escalating to SIGKILL, the same shape as
// pkg/tts's player-stop logic.
func stopProcessBestEffort(cmd *exec.Cmd, waitErr <-chan error, grace time.Duration) error {
	if cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case err := <-waitErr:
		return ignoreProcessDone(err)
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		return ignoreProcessDone(<-waitErr)
	}
}

func ignoreProcessDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// scanTrailingReply falls back to stdout when the output file is empty,
// taking the trailing lines that don't look like command echoes (lines
// starting with $ or >, or consisting of a bare integer).
func scanTrailingReply(raw string) string {
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || looksLikeCommandEcho(trimmed) {
			break
		}
		start = i
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func looksLikeCommandEcho(line string) bool {
	if strings.HasPrefix(line, "$") || strings.HasPrefix(line, ">") {
		return true
	}
	if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
		return true
	}
	return false
}
