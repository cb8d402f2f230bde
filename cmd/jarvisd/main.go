// Command jarvisd is the hands-free voice orchestrator: it wires every
// component package (audio capture, wake detection, speaker verification,
// transcription, routing, speech synthesis, pane monitoring) into one
// Orchestrator Core and runs it until interrupted.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lokutor-ai/jarvisd/internal/config"
	"github.com/lokutor-ai/jarvisd/internal/httpapi"
	"github.com/lokutor-ai/jarvisd/internal/metrics"
	"github.com/lokutor-ai/jarvisd/pkg/audiosource"
	"github.com/lokutor-ai/jarvisd/pkg/brain"
	"github.com/lokutor-ai/jarvisd/pkg/fastrouter"
	"github.com/lokutor-ai/jarvisd/pkg/hotkey"
	"github.com/lokutor-ai/jarvisd/pkg/localllm"
	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/orchestrator"
	"github.com/lokutor-ai/jarvisd/pkg/panemonitor"
	"github.com/lokutor-ai/jarvisd/pkg/rag"
	"github.com/lokutor-ai/jarvisd/pkg/screencontext"
	"github.com/lokutor-ai/jarvisd/pkg/speaker"
	"github.com/lokutor-ai/jarvisd/pkg/taskrouter"
	"github.com/lokutor-ai/jarvisd/pkg/taskstate"
	"github.com/lokutor-ai/jarvisd/pkg/transcribe"
	"github.com/lokutor-ai/jarvisd/pkg/tts"
	"github.com/lokutor-ai/jarvisd/pkg/wake"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("jarvisd: %v", err)
	}

	logger := logging.NoOp{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	audio, err := audiosource.New(audiosource.DefaultConfig(), logger)
	if err != nil {
		log.Fatalf("jarvisd: audio source: %v", err)
	}
	defer audio.Close()

	wakeScorer, err := wake.NewSherpaScorer(wake.SherpaConfig{
		Encoder:      cfg.WakeEncoder,
		Decoder:      cfg.WakeDecoder,
		Joiner:       cfg.WakeJoiner,
		Tokens:       cfg.WakeTokens,
		KeywordsFile: cfg.WakeKeywordsFile,
	})
	if err != nil {
		log.Fatalf("jarvisd: wake scorer: %v", err)
	}
	wakeDetector := wake.New(wakeScorer, wake.Config{Threshold: cfg.WakeThreshold, Cooldown: cfg.WakeCooldown}, logger)

	speakerEmbedder, err := speaker.NewSherpaEmbedder(speaker.SherpaConfig{Model: cfg.SpeakerModel})
	if err != nil {
		log.Fatalf("jarvisd: speaker embedder: %v", err)
	}
	speakerVerifier, err := speaker.New(speakerEmbedder, cfg.SpeakerThreshold, cfg.SpeakerProfile)
	if err != nil {
		log.Fatalf("jarvisd: speaker verifier: %v", err)
	}

	previewModel, err := transcribe.NewSherpaModel(transcribe.SherpaConfig{
		Encoder: cfg.ASREncoder, Decoder: cfg.ASRDecoder, Joiner: cfg.ASRJoiner, Tokens: cfg.ASRTokens,
	})
	if err != nil {
		log.Fatalf("jarvisd: transcriber: %v", err)
	}
	var fallbackModel transcribe.Model
	if cfg.STTFallbackAPIKey != "" {
		fallbackModel = transcribe.NewCloudModel(cfg.STTFallbackAPIKey, cfg.STTFallbackModel)
	}
	transcriber := transcribe.New(previewModel, fallbackModel)

	synth := tts.NewLokutorSynthesizer(cfg.LokutorAPIKey, logger)
	ttsCfg := tts.DefaultConfig(cfg.CacheDir)
	ttsCfg.Voice = cfg.TTSVoice
	if cfg.TTSPlayerBin != "" {
		ttsCfg.PlayerBin = cfg.TTSPlayerBin
	}
	engine, err := tts.New(synth, ttsCfg, logger)
	if err != nil {
		log.Fatalf("jarvisd: tts engine: %v", err)
	}

	mux := panemonitor.NewTmux(cfg.TmuxSession)
	panesCfg := panemonitor.DefaultConfig(cfg.TmuxWindows)
	panesCfg.Interval = cfg.PanePollInterval

	m := metrics.New("jarvisd")
	panesCfg.OnPoll = m.PanePoll
	panes := panemonitor.New(mux, panesCfg, logger)

	tasks := taskrouter.New(mux)
	router := fastrouter.New(tasks, mux)

	var localLLM *localllm.Client
	if cfg.OllamaHost != "" {
		localLLM, err = localllm.New(localllm.Config{Host: cfg.OllamaHost, Model: cfg.OllamaModel})
		if err != nil {
			log.Printf("jarvisd: local llm disabled: %v", err)
			localLLM = nil
		}
	}

	brainClient := brain.New(brain.Config{ExecPath: cfg.BrainExecPath, Args: cfg.BrainArgs, ScratchDir: cfg.ScratchDir}, logger)

	tools := screencontext.NewTools(cfg.ScratchDir)
	var vision screencontext.VisionClient
	if cfg.VisionModel != "" {
		if v, err := screencontext.NewOllamaVisionClient(cfg.VisionHost, cfg.VisionModel); err == nil {
			vision = v
		} else {
			log.Printf("jarvisd: vision client disabled: %v", err)
		}
	}
	screen := screencontext.New(tools, vision, logger)

	var ragClient *rag.Client
	if cfg.RAGBaseURL != "" {
		ragClient = rag.New(rag.DefaultConfig(cfg.RAGBaseURL))
	}

	var taskStore taskstate.Store
	switch cfg.TaskStateMode {
	case "postgres":
		if cfg.TaskStatePostgresURL != "" {
			store, err := taskstate.NewPostgresStore(ctx, cfg.TaskStatePostgresURL)
			if err != nil {
				log.Printf("jarvisd: task-state postgres disabled: %v", err)
			} else {
				taskStore = store
				defer store.Close()
			}
		}
	default:
		if cfg.TaskStateExec != "" {
			client, err := taskstate.NewRPCClient(ctx, cfg.TaskStateExec, nil, logger)
			if err != nil {
				log.Printf("jarvisd: task-state rpc disabled: %v", err)
			} else {
				taskStore = client
				defer client.Close()
			}
		}
	}

	hotkeyWatcher := hotkey.New(hotkey.DefaultConfig(cfg.ScratchDir), logger)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.WakeName = cfg.WakeName
	orchCfg.ListenFirstUtteranceTimeout = cfg.ListenFirstUtteranceTimeout
	orchCfg.ListenPhraseTimeLimit = cfg.ListenPhraseTimeLimit
	orchCfg.ListenSilenceTail = cfg.ListenSilenceTail
	orchCfg.PaneCompletionDedupWindow = cfg.PaneCompletionDedupWindow
	orchCfg.PaneErrorDedupWindow = cfg.PaneErrorDedupWindow
	orchCfg.ScratchDir = cfg.ScratchDir
	orchCfg.CacheDir = cfg.CacheDir

	orch, err := orchestrator.New(orchCfg, orchestrator.Dependencies{
		Audio:       audio,
		Wake:        wakeDetector,
		SpeakerV:    speakerVerifier,
		Transcriber: transcriber,
		TTS:         engine,
		Panes:       panes,
		Tasks:       tasks,
		FastRouter:  router,
		LocalLLM:    localLLM,
		Brain:       brainClient,
		Screen:      screen,
		RAG:         ragClient,
		TaskStore:   taskStore,
		Hotkey:      hotkeyWatcher,
	}, logger, m)
	if err != nil {
		log.Fatalf("jarvisd: orchestrator: %v", err)
	}
	defer orch.Close()

	api := httpapi.New(orch, logger, metrics.Handler())
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("jarvisd: http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		log.Println("jarvisd: shutting down...")
		_ = httpServer.Close()
		cancel()
	}()

	log.Printf("jarvisd: listening for wake word %q, http on %s", cfg.WakeName, cfg.HTTPAddr)
	orch.Run(ctx)
}
