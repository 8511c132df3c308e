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
	CartesiaID = "cartesia"

	cartesiaVersion      = "2024-06-10"
	cartesiaModel        = "sonic-english"
	cartesiaDefaultVoice = "f786b574-daa5-4673-aa0c-cbe3e8534c02" // Katie
)

// CartesiaProvider calls the Cartesia bytes endpoint and asks for MP3
// so the clip goes through the same sink as every other provider.
type CartesiaProvider struct {
	apiKey  string
	httpCli *http.Client
}

func NewCartesiaProvider(apiKey string) *CartesiaProvider {
	return &CartesiaProvider{
		apiKey: apiKey,
		httpCli: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *CartesiaProvider) ID() string {
	return CartesiaID
}

func (p *CartesiaProvider) Synthesize(ctx context.Context, text string, params domain.VoiceParams) ([]byte, error) {
	voice := strings.TrimSpace(params.VoiceID)
	if voice == "" {
		voice = cartesiaDefaultVoice
	}

	payload, err := json.Marshal(map[string]any{
		"model_id":   cartesiaModel,
		"transcript": text,
		"voice": map[string]string{
			"mode": "id",
			"id":   voice,
		},
		"output_format": map[string]any{
			"container":   "mp3",
			"bit_rate":    128000,
			"sample_rate": 44100,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.cartesia.ai/tts/bytes", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := p.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: cartesia status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
