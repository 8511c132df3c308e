package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hegedustibor/htgo-tts/voices"

	"chatvoice/internal/domain"
)

const (
	GoogleID = "google"

	googleChunkSize = 200
)

// GoogleProvider speaks through the public translate endpoint. It
// needs no credentials, which is what makes it the baseline fallback.
type GoogleProvider struct {
	httpCli      *http.Client
	defaultVoice string
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		httpCli: &http.Client{
			Timeout: 15 * time.Second,
		},
		defaultVoice: voices.English,
	}
}

func (p *GoogleProvider) ID() string {
	return GoogleID
}

// Voices lists the language codes worth offering in chat.
func (p *GoogleProvider) Voices() []string {
	return []string{
		voices.English,
		voices.EnglishUK,
		voices.Spanish,
		"es-es",
		voices.Portuguese,
		voices.French,
		voices.German,
		voices.Italian,
		voices.Japanese,
	}
}

// Synthesize fetches MP3 audio chunk by chunk; the endpoint caps the
// text length per request.
func (p *GoogleProvider) Synthesize(ctx context.Context, text string, params domain.VoiceParams) ([]byte, error) {
	voice := strings.TrimSpace(params.VoiceID)
	if voice == "" {
		voice = p.defaultVoice
	}

	runes := []rune(text)
	buf := bytes.NewBuffer(nil)

	for start := 0; start < len(runes); start += googleChunkSize {
		end := start + googleChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		audio, err := p.fetchChunk(ctx, string(runes[start:end]), voice)
		if err != nil {
			return nil, err
		}
		buf.Write(audio)
	}

	return buf.Bytes(), nil
}

func (p *GoogleProvider) fetchChunk(ctx context.Context, text, voice string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", voice)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", fmt.Sprintf("%d", len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://translate.google.com/translate_tts?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: google status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
