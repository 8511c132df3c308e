package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatvoice/internal/domain"
)

const StreamElementsID = "streamelements"

// StreamElementsProvider uses the public kappa speech endpoint. No
// credentials, fixed voice set.
type StreamElementsProvider struct {
	httpCli      *http.Client
	defaultVoice string
}

func NewStreamElementsProvider() *StreamElementsProvider {
	return &StreamElementsProvider{
		httpCli: &http.Client{
			Timeout: 15 * time.Second,
		},
		defaultVoice: "Brian",
	}
}

func (p *StreamElementsProvider) ID() string {
	return StreamElementsID
}

func (p *StreamElementsProvider) Voices() []string {
	return []string{
		"Brian", "Amy", "Emma", "Geraint",
		"Russell", "Nicole", "Joey", "Justin",
		"Matthew", "Ivy", "Joanna", "Kendra",
		"Kimberly", "Salli", "Conchita", "Enrique",
	}
}

func (p *StreamElementsProvider) Synthesize(ctx context.Context, text string, params domain.VoiceParams) ([]byte, error) {
	voice := strings.TrimSpace(params.VoiceID)
	if voice == "" {
		voice = p.defaultVoice
	}

	q := url.Values{}
	q.Set("voice", voice)
	q.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.streamelements.com/kappa/v2/speech?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: streamelements status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
