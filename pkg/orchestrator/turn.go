package orchestrator

import (
	"context"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/transcribe"
)

// runTurn drives one full LISTENING -> THINKING -> SPEAKING cycle for a
// single wake/hotkey event, strictly sequential (SS5: verify, transcribe,
// route, speak never overlap). It always returns to IDLE, resumes the wake
// detector, and clears turnActive before returning.
func (o *Orchestrator) runTurn() {
	ctx := context.Background()

	defer func() {
		o.deps.Brain.ClearHistory()
		o.deps.Wake.Resume()
		o.setState(StateIdle)
		o.mu.Lock()
		o.turnActive = false
		o.mu.Unlock()
		o.emit(EventTurnEnded, "")
	}()

	empties := 0
	for {
		o.setState(StateListening)
		start := time.Now()
		clip, err := o.deps.Audio.ReadClip(ctx, o.cfg.ListenPhraseTimeLimit, o.cfg.ListenSilenceTail, o.cfg.ListenFirstUtteranceTimeout)
		o.metr.TurnStage("listen", time.Since(start))
		if err != nil {
			empties++
			if empties >= 2 {
				return
			}
			continue
		}

		accept, _, err := o.deps.SpeakerV.Verify(clip)
		if err != nil || !accept {
			// Speaker rejection ends the turn immediately: no transcription,
			// no TTS, straight back to IDLE.
			return
		}

		text, err := o.deps.Transcriber.Transcribe(clip)
		if err != nil || transcribe.IsNoise(text) {
			empties++
			if empties >= 2 {
				return
			}
			continue
		}
		empties = 0
		o.emit(EventTranscript, text)

		if isEndPhrase(text, o.cfg.WakeName) {
			return
		}

		o.setState(StateThinking)
		start = time.Now()
		reply := o.route(ctx, text)
		o.metr.TurnStage("think", time.Since(start))
		o.emit(EventReply, reply)

		o.setState(StateSpeaking)
		start = time.Now()
		if err := o.deps.TTS.Speak(ctx, reply); err != nil {
			o.log.Warn("orchestrator: speak failed", "err", err)
		}
		o.metr.TurnStage("speak", time.Since(start))

		// SPEAKING -> LISTENING: playback finished, loop for the next
		// utterance in the same conversation (multi-turn, SS4.12).
	}
}
