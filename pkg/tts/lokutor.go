package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
)

// LokutorSynthesizer streams synthesis requests over a persistent websocket,
// adapted from the teacher's pkg/providers/tts/lokutor.go. Unlike the
// teacher's version, a dropped connection is retried once per call instead
// of surfacing as a hard failure straight to the Orchestrator Core's
// SPEAKING state, and every reconnect is logged through the same
// logging.Logger the rest of this package uses (tts.go's Engine) rather
// than going silent.
type LokutorSynthesizer struct {
	apiKey string
	host   string
	log    logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewLokutorSynthesizer(apiKey string, logger logging.Logger) *LokutorSynthesizer {
	return &LokutorSynthesizer{apiKey: apiKey, host: "api.lokutor.com", log: logging.OrNoOp(logger)}
}

func (s *LokutorSynthesizer) getConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}
	u := url.URL{Scheme: "wss", Host: s.host, Path: "/ws", RawQuery: "api_key=" + s.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lokutor: %w", err)
	}
	s.log.Debug("tts: connected to lokutor", "host", s.host)
	s.conn = conn
	return conn, nil
}

func (s *LokutorSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	var audio []byte
	err := s.StreamSynthesize(ctx, text, voice, func(chunk []byte) error {
		audio = append(audio, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// StreamSynthesize sends one synthesis request and streams the reply. A
// connection that has gone stale since the last call (idle timeout, server
// restart) is retried exactly once with a fresh dial before giving up, so a
// cold reconnect doesn't surface as a spoken TTS failure on the next turn.
func (s *LokutorSynthesizer) StreamSynthesize(ctx context.Context, text, voice string, onChunk func([]byte) error) error {
	err := s.streamOnce(ctx, text, voice, onChunk)
	if err == nil {
		return nil
	}
	s.mu.Lock()
	dropped := s.conn == nil
	s.mu.Unlock()
	if !dropped {
		return err
	}
	s.log.Warn("tts: lokutor stream failed, reconnecting", "err", err)
	return s.streamOnce(ctx, text, voice, onChunk)
}

func (s *LokutorSynthesizer) streamOnce(ctx context.Context, text, voice string, onChunk func([]byte) error) error {
	conn, err := s.getConn(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req := map[string]interface{}{
		"text":    text,
		"voice":   voice,
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		s.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			s.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return fmt.Errorf("failed to read from lokutor: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("lokutor error: %s", msg)
			}
		}
	}
}

func (s *LokutorSynthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close(websocket.StatusNormalClosure, "")
		s.conn = nil
		return err
	}
	return nil
}
