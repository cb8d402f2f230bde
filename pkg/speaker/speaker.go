// Package speaker implements the Speaker Verifier (SS4.3): a cosine-
// similarity gate around an externally-supplied embedding function. The
// embedding model itself is out of scope per the spec (pure function
// embed(pcm_clip) -> vector); Embedder is that seam.
package speaker

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// DefaultThreshold is the cosine-similarity accept threshold.
const DefaultThreshold = 0.65

// Embedder is the external pure function embed(pcm_clip) -> vector.
type Embedder interface {
	Embed(clip model.Clip) ([]float64, error)
}

// Verifier holds zero or one enrolled profile. With no profile, verify is
// opt-in and accepts everything (SS4.3).
type Verifier struct {
	embedder  Embedder
	threshold float64
	profile   []float64
	path      string
}

// New constructs a Verifier. profilePath, if non-empty and present on disk,
// is loaded immediately (SS6: "<user-cache>/voice-orchestrator/speaker_profile.<ext>").
func New(embedder Embedder, threshold float64, profilePath string) (*Verifier, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	v := &Verifier{embedder: embedder, threshold: threshold, path: profilePath}
	if profilePath == "" {
		return v, nil
	}
	if _, err := os.Stat(profilePath); err == nil {
		if err := v.load(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Enrolled reports whether a profile is present; verification is opt-in.
func (v *Verifier) Enrolled() bool { return len(v.profile) > 0 }

// Enroll embeds each clip, averages the vectors, and persists the result.
func (v *Verifier) Enroll(clips []model.Clip) error {
	if len(clips) == 0 {
		return ErrNoEnrollmentClips
	}
	var sum []float64
	for _, clip := range clips {
		if clip.Duration().Seconds() < 0.1 {
			continue
		}
		vec, err := v.embedder.Embed(clip)
		if err != nil {
			return err
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		for i, f := range vec {
			sum[i] += f
		}
	}
	if sum == nil {
		return ErrNoEnrollmentClips
	}
	for i := range sum {
		sum[i] /= float64(len(clips))
	}
	v.profile = sum
	if v.path != "" {
		return v.save()
	}
	return nil
}

// Verify embeds clip and compares it to the enrolled profile. With no
// profile enrolled, verification is disabled and everyone is accepted.
func (v *Verifier) Verify(clip model.Clip) (accept bool, similarity float64, err error) {
	if !v.Enrolled() {
		return true, 1.0, nil
	}
	vec, err := v.embedder.Embed(clip)
	if err != nil {
		return false, 0, err
	}
	similarity = cosineSimilarity(v.profile, vec)
	return similarity >= v.threshold, similarity, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (v *Verifier) save() error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v.profile)
	if err != nil {
		return err
	}
	return os.WriteFile(v.path, data, 0o644)
}

func (v *Verifier) load() error {
	data, err := os.ReadFile(v.path)
	if err != nil {
		return err
	}
	var profile []float64
	if err := json.Unmarshal(data, &profile); err != nil {
		return err
	}
	v.profile = profile
	return nil
}
