package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatvoice/internal/domain"
)

const (
	ElevenLabsID = "elevenlabs"

	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM" // Rachel
	elevenLabsModel        = "eleven_flash_v2_5"
)

// ElevenLabsProvider calls the paid ElevenLabs REST API. The key stays
// in here; the pipeline never sees it.
type ElevenLabsProvider struct {
	apiKey  string
	httpCli *http.Client
}

func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey: apiKey,
		httpCli: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *ElevenLabsProvider) ID() string {
	return ElevenLabsID
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, params domain.VoiceParams) ([]byte, error) {
	voice := strings.TrimSpace(params.VoiceID)
	if voice == "" {
		voice = elevenLabsDefaultVoice
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": elevenLabsModel,
		"voice_settings": map[string]any{
			"speed": params.Speed,
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=mp3_44100_128", voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: elevenlabs status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
