package tts

import (
	"context"
	"testing"
	"time"
)

type fakeSynth struct {
	calls int
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.calls++
	return []byte("RIFF....WAVEfmt "), nil
}

func newTestEngine(t *testing.T, playerBin string, args ...string) (*Engine, *fakeSynth) {
	t.Helper()
	synth := &fakeSynth{}
	cfg := DefaultConfig(t.TempDir())
	cfg.PlayerBin = playerBin
	cfg.PlayerArgs = args
	e, err := New(synth, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e, synth
}

func TestStopWithNoActivePlaybackIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t, "true")
	if err := e.Stop(); err != nil {
		t.Fatalf("stop() with nothing playing should be a no-op, got %v", err)
	}
}

func TestSpeakPlaysThroughConfiguredPlayer(t *testing.T) {
	e, synth := newTestEngine(t, "true")
	if err := e.Speak(context.Background(), "hello there"); err != nil {
		t.Fatal(err)
	}
	if synth.calls != 1 {
		t.Fatalf("expected 1 synthesize call, got %d", synth.calls)
	}
}

func TestSpeakEmptyTextIsNoOp(t *testing.T) {
	e, synth := newTestEngine(t, "true")
	if err := e.Speak(context.Background(), "   "); err != nil {
		t.Fatal(err)
	}
	if synth.calls != 0 {
		t.Fatalf("expected synthesize not to be called for empty text, got %d calls", synth.calls)
	}
}

func TestStopInterruptsInFlightPlayback(t *testing.T) {
	e, _ := newTestEngine(t, "sleep", "5")

	done := make(chan error, 1)
	go func() { done <- e.Speak(context.Background(), "a long utterance") }()

	time.Sleep(100 * time.Millisecond)
	if err := e.Stop(); err != nil {
		t.Fatalf("stop() returned error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("speak() should return cleanly after stop(), got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("speak() did not return within 2s of stop()")
	}
}

func TestPlayCachedReturnsErrNotCachedForUnknownPhrase(t *testing.T) {
	e, _ := newTestEngine(t, "true")
	if err := e.PlayCached(context.Background(), "never precached"); err != ErrNotCached {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}
}

func TestPrecacheThenPlayCached(t *testing.T) {
	e, synth := newTestEngine(t, "true")
	if err := e.Precache(context.Background(), []string{"one moment", "listening"}); err != nil {
		t.Fatal(err)
	}
	if synth.calls != 2 {
		t.Fatalf("expected 2 synthesize calls during precache, got %d", synth.calls)
	}
	if err := e.PlayCached(context.Background(), "one moment"); err != nil {
		t.Fatal(err)
	}
	if synth.calls != 2 {
		t.Fatalf("play_cached should not call synthesize, got %d total calls", synth.calls)
	}
}

func TestCacheKeySlugifiesShortPhrases(t *testing.T) {
	if got := cacheKey("One Moment!"); got != "one-moment" {
		t.Fatalf("expected slug 'one-moment', got %q", got)
	}
}
