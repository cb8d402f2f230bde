// Package screencontext wraps OS desktop-automation utilities into a single
// snapshot of what's on screen (SS4.11), with mouse position and screen
// geometry as first-class fields on every call per this spec's richer
// variant.
package screencontext

import (
	"context"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// DesktopTools is the subset of Tools the Provider depends on, pulled out
// as an interface so tests can substitute a fake.
type DesktopTools interface {
	ActiveWindowTitle(ctx context.Context) (string, error)
	MousePosition(ctx context.Context) (int, int, error)
	ScreenGeometry(ctx context.Context) (int, int, error)
	WindowList(ctx context.Context) ([]string, error)
	Screenshot(ctx context.Context) (string, error)
	OCR(ctx context.Context, imagePath string) (string, error)
}

// Provider assembles a ScreenSnapshot from DesktopTools, optionally layering
// a vision description on top.
type Provider struct {
	tools  DesktopTools
	vision VisionClient
	log    logging.Logger
}

func New(tools DesktopTools, vision VisionClient, logger logging.Logger) *Provider {
	return &Provider{tools: tools, vision: vision, log: logging.OrNoOp(logger)}
}

// Capture gathers active window, mouse position, screen geometry, and
// window list unconditionally. Subprocess failures degrade individual
// fields to zero values rather than failing the whole snapshot (SS5).
func (p *Provider) Capture(ctx context.Context) model.ScreenSnapshot {
	snap := model.ScreenSnapshot{CapturedAt: time.Now()}

	if title, err := p.tools.ActiveWindowTitle(ctx); err == nil {
		snap.ActiveWindowTitle = title
	} else {
		p.log.Warn("screencontext: active window title failed", "err", err)
	}

	if x, y, err := p.tools.MousePosition(ctx); err == nil {
		snap.MouseX, snap.MouseY = x, y
	} else {
		p.log.Warn("screencontext: mouse position failed", "err", err)
	}

	if w, h, err := p.tools.ScreenGeometry(ctx); err == nil {
		snap.ScreenWidth, snap.ScreenHeight = w, h
	} else {
		p.log.Warn("screencontext: screen geometry failed", "err", err)
	}

	if windows, err := p.tools.WindowList(ctx); err == nil {
		snap.Windows = windows
	} else {
		p.log.Warn("screencontext: window list failed", "err", err)
	}

	return snap
}

// Describe runs the vision path over a fresh screenshot and falls back to
// OCR if vision is unavailable or returns nothing useful. The screenshot is
// always deleted before returning.
func (p *Provider) Describe(ctx context.Context, question string) (string, error) {
	path, err := p.tools.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	defer RemoveScreenshot(path)

	if p.vision != nil {
		if desc, err := p.vision.Describe(ctx, path, question); err == nil {
			return desc, nil
		}
	}
	return p.tools.OCR(ctx, path)
}

// CaptureWithVision is Capture plus Describe, for Brain Client full mode
// when the utterance contains a screen keyword (SS4.10).
func (p *Provider) CaptureWithVision(ctx context.Context, question string) model.ScreenSnapshot {
	snap := p.Capture(ctx)
	if desc, err := p.Describe(ctx, question); err == nil {
		snap.VisionDescription = desc
	}
	return snap
}
