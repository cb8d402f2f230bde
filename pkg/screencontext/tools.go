package screencontext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// subprocessTimeout bounds every OS-utility call (SS5: "3-15s timeouts; on
// timeout the feature degrades rather than failing the turn").
const subprocessTimeout = 5 * time.Second

// Tools wraps the OS utilities Screen Context is built from: wmctrl for
// window listing, xdotool for the active-window title, pointer and display
// geometry, scrot for screenshots, and tesseract as the OCR fallback.
type Tools struct {
	ScratchDir string

	geometryOnce sync.Once
	geomW        int
	geomH        int
	geomErr      error
}

func NewTools(scratchDir string) *Tools {
	return &Tools{ScratchDir: scratchDir}
}

func (t *Tools) run(ctx context.Context, bin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("screencontext: %s: %w", bin, err)
	}
	return string(out), nil
}

// ActiveWindowTitle returns the title of the currently focused window.
func (t *Tools) ActiveWindowTitle(ctx context.Context) (string, error) {
	out, err := t.run(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// MousePosition returns the pointer's (x, y) in screen coordinates.
func (t *Tools) MousePosition(ctx context.Context) (int, int, error) {
	out, err := t.run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, err
	}
	var x, y int
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "X":
			x, _ = strconv.Atoi(parts[1])
		case "Y":
			y, _ = strconv.Atoi(parts[1])
		}
	}
	return x, y, nil
}

// ScreenGeometry returns the display resolution, cached after the first
// successful probe (SS4.11: "cached screen resolution").
func (t *Tools) ScreenGeometry(ctx context.Context) (int, int, error) {
	t.geometryOnce.Do(func() {
		out, err := t.run(ctx, "xdotool", "getdisplaygeometry")
		if err != nil {
			t.geomErr = err
			return
		}
		fields := strings.Fields(strings.TrimSpace(out))
		if len(fields) != 2 {
			t.geomErr = fmt.Errorf("screencontext: unexpected getdisplaygeometry output %q", out)
			return
		}
		t.geomW, _ = strconv.Atoi(fields[0])
		t.geomH, _ = strconv.Atoi(fields[1])
	})
	return t.geomW, t.geomH, t.geomErr
}

// WindowList returns every top-level window's title.
func (t *Tools) WindowList(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "wmctrl", "-l")
	if err != nil {
		return nil, err
	}
	var windows []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 4)
		if len(fields) < 4 {
			continue
		}
		windows = append(windows, strings.TrimSpace(fields[3]))
	}
	return windows, nil
}

// Screenshot writes a PNG to the scratch directory and returns its path.
// Callers must delete the file after use (SS4.11).
func (t *Tools) Screenshot(ctx context.Context) (string, error) {
	path := filepath.Join(t.ScratchDir, fmt.Sprintf("screen-%d.png", time.Now().UnixNano()))
	if _, err := t.run(ctx, "scrot", path); err != nil {
		return "", err
	}
	return path, nil
}

// OCR runs tesseract over a screenshot as the vision-path fallback.
func (t *Tools) OCR(ctx context.Context, imagePath string) (string, error) {
	out, err := t.run(ctx, "tesseract", imagePath, "stdout")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RemoveScreenshot best-effort deletes a screenshot written by Screenshot.
func RemoveScreenshot(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
