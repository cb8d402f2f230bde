package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// CloudModel is an optional fallback Transcriber backend for hosts without
// a usable local sherpa-onnx model, adapted from the teacher's groq STT
// provider multipart-upload shape (pkg/providers/stt/groq.go), but encoding
// the clip with github.com/go-audio/wav rather than a hand-rolled WAV writer.
type CloudModel struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

func NewCloudModel(apiKey, model string) *CloudModel {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &CloudModel{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  model,
		client: http.DefaultClient,
	}
}

func (c *CloudModel) Transcribe(clip model.Clip) (string, error) {
	wavBytes, err := encodeWav(clip)
	if err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", c.model); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "clip.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavBytes)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("cloud transcribe error (status %d): %v", resp.StatusCode, errBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Text, nil
}

func encodeWav(clip model.Clip) ([]byte, error) {
	buf := newMemWriteSeeker()
	enc := wav.NewEncoder(buf, clip.SampleRate, 16, 1, 1)

	ints := make([]int, len(clip.Samples))
	for i, v := range clip.Samples {
		ints[i] = int(v)
	}
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// memWriteSeeker is a minimal in-memory io.WriteSeeker: wav.Encoder needs
// Seek to back-patch the RIFF/data chunk sizes once the full length is
// known, which a plain bytes.Buffer can't do.
type memWriteSeeker struct {
	data []byte
	pos  int64
}

func newMemWriteSeeker() *memWriteSeeker { return &memWriteSeeker{} }

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}
