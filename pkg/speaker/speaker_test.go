package speaker

import (
	"path/filepath"
	"testing"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// fakeEmbedder maps a clip to a vector keyed by the first sample, so tests
// can construct distinguishable "speakers" without a real embedding model.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(clip model.Clip) ([]float64, error) {
	if len(clip.Samples) == 0 {
		return []float64{0, 0, 0}, nil
	}
	v := float64(clip.Samples[0])
	return []float64{v, v / 2, 1}, nil
}

func clipOf(firstSample int16, seconds float64) model.Clip {
	n := int(seconds * model.SampleRate)
	if n < 1 {
		n = 1
	}
	samples := make([]int16, n)
	samples[0] = firstSample
	return model.Clip{Samples: samples, SampleRate: model.SampleRate}
}

func TestVerifyWithNoProfileAcceptsEveryone(t *testing.T) {
	v, err := New(fakeEmbedder{}, 0.65, "")
	if err != nil {
		t.Fatal(err)
	}
	accept, sim, err := v.Verify(clipOf(100, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !accept || sim != 1.0 {
		t.Fatalf("verify with no profile should accept with similarity 1.0, got accept=%v sim=%v", accept, sim)
	}
}

func TestEnrollThenVerifySameClipAccepts(t *testing.T) {
	v, err := New(fakeEmbedder{}, 0.65, "")
	if err != nil {
		t.Fatal(err)
	}
	clip := clipOf(500, 1)
	if err := v.Enroll([]model.Clip{clip}); err != nil {
		t.Fatal(err)
	}
	accept, sim, err := v.Verify(clip)
	if err != nil {
		t.Fatal(err)
	}
	if !accept || sim < 0.65 {
		t.Fatalf("verify(enrolled clip) should accept with similarity >= threshold, got accept=%v sim=%v", accept, sim)
	}
}

func TestEnrollRejectsTooShortClips(t *testing.T) {
	v, _ := New(fakeEmbedder{}, 0.65, "")
	if err := v.Enroll([]model.Clip{clipOf(1, 0.01)}); err != ErrNoEnrollmentClips {
		t.Fatalf("expected ErrNoEnrollmentClips, got %v", err)
	}
}

func TestVerifyRejectsDifferentSpeaker(t *testing.T) {
	v, _ := New(fakeEmbedder{}, 0.99, "")
	if err := v.Enroll([]model.Clip{clipOf(30000, 1)}); err != nil {
		t.Fatal(err)
	}
	accept, _, err := v.Verify(clipOf(-30000, 1))
	if err != nil {
		t.Fatal(err)
	}
	if accept {
		t.Fatal("verify should reject a dissimilar embedding at a near-1.0 threshold")
	}
}

func TestProfilePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speaker_profile.json")

	v1, _ := New(fakeEmbedder{}, 0.65, path)
	clip := clipOf(777, 1)
	if err := v1.Enroll([]model.Clip{clip}); err != nil {
		t.Fatal(err)
	}

	v2, err := New(fakeEmbedder{}, 0.65, path)
	if err != nil {
		t.Fatal(err)
	}
	if !v2.Enrolled() {
		t.Fatal("expected profile to be loaded from disk")
	}
	accept, _, err := v2.Verify(clip)
	if err != nil {
		t.Fatal(err)
	}
	if !accept {
		t.Fatal("reloaded profile should still accept the enrolled speaker")
	}
}
