// Package config loads every tunable knob named across SS4-SS11 from a
// .env file plus process environment, the same two-source precedence the
// teacher's cmd/agent/main.go used for provider API keys.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is every environment-sourced setting jarvisd needs to start.
type Config struct {
	WakeName      string
	WakeThreshold float64
	WakeCooldown  time.Duration

	SpeakerThreshold float64
	SpeakerProfile   string

	ListenFirstUtteranceTimeout time.Duration
	ListenPhraseTimeLimit       time.Duration
	ListenSilenceTail           time.Duration

	TmuxSession     string
	TmuxWindows     []int
	PanePollInterval time.Duration

	PaneCompletionDedupWindow time.Duration
	PaneErrorDedupWindow      time.Duration

	OllamaHost  string
	OllamaModel string

	BrainExecPath string
	BrainArgs     []string

	RAGBaseURL string

	TaskStateMode    string // "rpc" or "postgres"
	TaskStateExec    string
	TaskStatePostgresURL string

	LokutorAPIKey string
	TTSVoice      string
	TTSPlayerBin  string

	VisionHost  string
	VisionModel string

	ScratchDir string
	CacheDir   string

	HTTPAddr string

	WakeEncoder      string
	WakeDecoder      string
	WakeJoiner       string
	WakeTokens       string
	WakeKeywordsFile string

	ASREncoder string
	ASRDecoder string
	ASRJoiner  string
	ASRTokens  string

	SpeakerModel string

	STTFallbackAPIKey string
	STTFallbackModel  string
}

// Load reads .env (if present) then the process environment, filling in
// SS4/SS5's stated defaults for anything unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		// Matches the teacher: a missing .env is not fatal, just unusual.
		fmt.Fprintln(os.Stderr, "config: no .env file found, using process environment")
	}

	cfg := Config{
		WakeName:      getString("WAKE_NAME", "jarvis"),
		WakeThreshold: getFloat("WAKE_THRESHOLD", 0.35),
		WakeCooldown:  getDuration("WAKE_COOLDOWN", 2*time.Second),

		SpeakerThreshold: getFloat("SPEAKER_THRESHOLD", 0.65),
		SpeakerProfile:   getString("SPEAKER_PROFILE_PATH", defaultCachePath("speaker_profile.json")),

		ListenFirstUtteranceTimeout: getDuration("LISTEN_FIRST_UTTERANCE_TIMEOUT", 5*time.Second),
		ListenPhraseTimeLimit:       getDuration("LISTEN_PHRASE_TIME_LIMIT", 15*time.Second),
		ListenSilenceTail:           getDuration("LISTEN_SILENCE_TAIL", time.Second),

		TmuxSession:      getString("TMUX_SESSION", "agents"),
		TmuxWindows:      getIntList("TMUX_WINDOWS", nil),
		PanePollInterval: getDuration("PANE_POLL_INTERVAL", 2500*time.Millisecond),

		PaneCompletionDedupWindow: getDuration("PANE_COMPLETION_DEDUP_WINDOW", 30*time.Second),
		PaneErrorDedupWindow:      getDuration("PANE_ERROR_DEDUP_WINDOW", 60*time.Second),

		OllamaHost:  getString("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getString("OLLAMA_MODEL", "llama3.2"),

		BrainExecPath: os.Getenv("BRAIN_EXEC_PATH"),
		BrainArgs:     getStringList("BRAIN_ARGS", nil),

		RAGBaseURL: os.Getenv("RAG_BASE_URL"),

		TaskStateMode:        getString("TASK_STATE_MODE", "rpc"),
		TaskStateExec:        os.Getenv("TASK_STATE_EXEC_PATH"),
		TaskStatePostgresURL: os.Getenv("TASK_STATE_DATABASE_URL"),

		LokutorAPIKey: os.Getenv("LOKUTOR_API_KEY"),
		TTSVoice:      getString("TTS_VOICE", "default"),
		TTSPlayerBin:  getString("TTS_PLAYER_BIN", "ffplay"),

		VisionHost:  getString("VISION_HOST", "http://localhost:11434"),
		VisionModel: os.Getenv("VISION_MODEL"),

		ScratchDir: getString("SCRATCH_DIR", os.TempDir()),
		CacheDir:   defaultCacheDir(),

		HTTPAddr: getString("HTTP_ADDR", ":8900"),

		WakeEncoder:      os.Getenv("WAKE_ENCODER"),
		WakeDecoder:      os.Getenv("WAKE_DECODER"),
		WakeJoiner:       os.Getenv("WAKE_JOINER"),
		WakeTokens:       os.Getenv("WAKE_TOKENS"),
		WakeKeywordsFile: os.Getenv("WAKE_KEYWORDS_FILE"),

		ASREncoder: os.Getenv("ASR_ENCODER"),
		ASRDecoder: os.Getenv("ASR_DECODER"),
		ASRJoiner:  os.Getenv("ASR_JOINER"),
		ASRTokens:  os.Getenv("ASR_TOKENS"),

		SpeakerModel: os.Getenv("SPEAKER_MODEL"),

		STTFallbackAPIKey: os.Getenv("STT_FALLBACK_API_KEY"),
		STTFallbackModel:  os.Getenv("STT_FALLBACK_MODEL"),
	}

	if cfg.LokutorAPIKey == "" {
		return cfg, fmt.Errorf("config: LOKUTOR_API_KEY must be set")
	}
	if cfg.BrainExecPath == "" {
		return cfg, fmt.Errorf("config: BRAIN_EXEC_PATH must be set")
	}
	return cfg, nil
}

func defaultCacheDir() string {
	home, err := os.UserCacheDir()
	if err != nil {
		return ".cache/voice-orchestrator"
	}
	return home + "/voice-orchestrator"
}

func defaultCachePath(name string) string {
	return defaultCacheDir() + "/" + name
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getStringList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getIntList(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
