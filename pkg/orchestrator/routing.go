package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/lokutor-ai/jarvisd/pkg/brain"
	"github.com/lokutor-ai/jarvisd/pkg/model"
	"github.com/lokutor-ai/jarvisd/pkg/rag"
	"github.com/lokutor-ai/jarvisd/pkg/taskstate"
)

// sentToWindowRE picks the window number out of fastrouter's exact
// assignment reply so a successful assignment can be tracked in TaskStore.
var sentToWindowRE = regexp.MustCompile(`^Sent to window (\d+)\.$`)

// route is the THINKING-state decision tree (SS4.12): Local LLM (if
// available), else Fast Router, else Brain Client.
func (o *Orchestrator) route(ctx context.Context, utterance string) string {
	if o.deps.LocalLLM != nil && o.deps.LocalLLM.Available(ctx) {
		if reply, ok := o.routeLocalLLM(ctx, utterance); ok {
			o.metr.RouteTier("local_llm")
			return reply
		}
	}

	if result, err := o.deps.FastRouter.Route(ctx, utterance); err == nil {
		o.metr.RouteTier("fast_router")
		o.trackWindowAssignment(ctx, result.Reply, utterance)
		return result.Reply
	}

	o.metr.RouteTier("brain")
	return o.routeBrain(ctx, utterance)
}

// routeLocalLLM implements the intent-classify tier: simple utterances get
// a quick answer, knowledge questions get RAG-augmented context, and
// anything else falls through to the next tier.
func (o *Orchestrator) routeLocalLLM(ctx context.Context, utterance string) (string, bool) {
	intent := o.deps.LocalLLM.ClassifyIntent(ctx, utterance)

	switch intent {
	case model.IntentSimple:
		if answer, ok := o.deps.LocalLLM.QuickAnswer(ctx, utterance); ok {
			return answer, true
		}
		return "", false

	case model.IntentKnowledge:
		if o.deps.RAG == nil {
			return "", false
		}
		hits, err := o.deps.RAG.Search(ctx, utterance, 3, nil)
		if err != nil {
			return "", false
		}
		best, ok := rag.BestHit(hits)
		if !ok || best.Distance >= model.RAGRelevanceThreshold {
			return "", false
		}
		return o.routeBrain(ctx, utterance), true

	default:
		return "", false
	}
}

// routeBrain invokes the Brain Client. In full mode it attaches a screen
// snapshot (active window, mouse, window list), with a vision description
// added when the utterance names something on-screen (SS6); quick mode
// sends no screen context.
func (o *Orchestrator) routeBrain(ctx context.Context, utterance string) string {
	mode := brain.DecideMode(utterance)

	var screen *model.ScreenSnapshot
	if o.deps.Brain != nil && mode == model.BrainModeFull {
		var snap model.ScreenSnapshot
		if brain.NeedsVision(utterance) {
			snap = o.deps.Screen.CaptureWithVision(ctx, utterance)
		} else {
			snap = o.deps.Screen.Capture(ctx)
		}
		screen = &snap
	}

	var ragHits []model.RAGHit
	if o.deps.RAG != nil {
		if hits, err := o.deps.RAG.Search(ctx, utterance, 3, nil); err == nil {
			ragHits = hits
		}
	}

	reply, err := o.deps.Brain.Invoke(ctx, utterance, mode, screen, ragHits)
	if err != nil {
		if errors.Is(err, brain.ErrTimeout) {
			return timeoutReply
		}
		o.log.Warn("orchestrator: brain invoke failed", "err", err)
		return brainIssueReply
	}
	if reply == "" {
		return brainIssueReply
	}
	return reply
}

// trackWindowAssignment records a TaskStore task for a successful Fast
// Router window assignment, so a later pane WORKING->IDLE/ERRORED
// transition can mark it completed or blocked. A no-op when TaskStore
// isn't configured.
func (o *Orchestrator) trackWindowAssignment(ctx context.Context, reply, prompt string) {
	if o.deps.TaskStore == nil {
		return
	}
	m := sentToWindowRE.FindStringSubmatch(reply)
	if m == nil {
		return
	}
	window, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}

	task, err := o.deps.TaskStore.CreateTask(ctx, taskstate.CreateTaskParams{
		Title:       fmt.Sprintf("voice assignment: %.60s", prompt),
		Description: prompt,
		Status:      model.TaskInProgress,
	})
	if err != nil {
		o.log.Warn("orchestrator: failed to create task for window assignment", "window", window, "err", err)
		return
	}

	o.mu.Lock()
	o.windowTasks[window] = task.ID
	o.mu.Unlock()
}
