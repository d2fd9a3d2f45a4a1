// Package tts is the text-to-speech collaborator: it turns a character's
// dialogue into an audio artifact on disk.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Synthesizer produces an audio file for spoken dialogue.
type Synthesizer interface {
	// Synthesize returns the filesystem path of the synthesized audio.
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// HTTPSynthesizer posts to a Coqui-compatible TTS server and stores the
// returned WAV under the work directory.
type HTTPSynthesizer struct {
	baseURL string
	workDir string
	client  *http.Client
}

// NewHTTPSynthesizer returns an HTTPSynthesizer writing into workDir.
func NewHTTPSynthesizer(baseURL, workDir string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL: baseURL,
		workDir: workDir,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voice string) (string, error) {
	body, err := json.Marshal(synthesisRequest{Text: text, Voice: voice})
	if err != nil {
		return "", fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tts server returned status %d", resp.StatusCode)
	}

	path := filepath.Join(s.workDir, fmt.Sprintf("speech_%s.wav", uuid.NewString()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return path, nil
}

// Disabled is a synthesizer that produces no audio. Used when no TTS
// endpoint is configured.
type Disabled struct{}

func (Disabled) Synthesize(ctx context.Context, text, voice string) (string, error) {
	return "", nil
}
