// Package audio plays MP3 utterances on the local output device.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"
)

// Player implements domain.AudioSink. Play blocks until the clip ends,
// which is exactly what the single-flight dispatcher wants.
type Player struct {
	mu sync.Mutex
}

func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("audio: empty clip")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return fmt.Errorf("mp3 decoder: %w", err)
	}

	otoCtx, readyChan, err := oto.NewContext(decoder.SampleRate(), 2, 2)
	if err != nil {
		return fmt.Errorf("oto context: %w", err)
	}
	<-readyChan

	player := otoCtx.NewPlayer(decoder)
	player.Play()
	defer player.Close()

	ticker := time.NewTicker(15 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}
