// Package runner drains the speech queue with a single worker so no
// two utterances ever overlap. Items move Pending -> Synthesizing ->
// Playing -> Done, or fail into one baseline retry and then Abandoned.
package runner

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatvoice/internal/app/events"
	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

// ErrClosed is returned by Enqueue after shutdown.
var ErrClosed = errors.New("runner: closed")

const defaultSynthTimeout = 15 * time.Second

// Item is one utterance waiting its turn.
type Item struct {
	ID          string
	UserID      string
	DisplayName string
	Text        string
	Voice       domain.VoiceParams
	Platform    domain.Platform
	ChannelID   string
	EnqueuedAt  time.Time
}

// Providers resolves synthesizers by id and names the always-available
// baseline.
type Providers interface {
	Get(id string) (domain.Synthesizer, bool)
	Baseline() domain.Synthesizer
}

type Config struct {
	Providers    Providers
	Sink         domain.AudioSink
	Bus          *events.Bus
	Rules        *rules.Holder
	Viewers      *viewers.Store
	SynthTimeout time.Duration
}

// Runner is the queue plus its single consumer. Enqueue never blocks:
// when the ceiling is hit the oldest pending item is dropped to admit
// the new one.
type Runner struct {
	cfg  Config
	mu   sync.Mutex
	cond *sync.Cond
	wg   sync.WaitGroup

	queue  []*Item
	closed bool

	status events.SpeechStatusDTO
}

func New(cfg Config) *Runner {
	if cfg.SynthTimeout <= 0 {
		cfg.SynthTimeout = defaultSynthTimeout
	}
	r := &Runner{cfg: cfg}
	r.cond = sync.NewCond(&r.mu)
	r.status = events.NewSpeechStatusDTO("idle", 0, "", "")
	return r
}

func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.cond.Broadcast()
	}()
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	r.publish(events.TopicSpeechStatus, r.Status())
}

// Enqueue appends an item and returns its id. The caller is the chat
// ingestion path, so this must stay cheap and non-blocking.
func (r *Runner) Enqueue(item Item) (string, error) {
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	ceiling := 50
	if r.cfg.Rules != nil {
		ceiling = r.cfg.Rules.Snapshot().Ceiling()
	}

	var dropped *Item

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	if len(r.queue) >= ceiling {
		dropped = r.queue[0]
		r.queue = r.queue[1:]
	}
	r.queue = append(r.queue, &item)
	queueLen := len(r.queue)
	r.setStatusLocked(r.status.State, queueLen, r.status.CurrentID, r.status.LastError)
	r.mu.Unlock()

	r.cond.Signal()

	if dropped != nil {
		log.Printf("speech runner: queue full, dropped oldest item %s", dropped.ID)
		r.publish(events.TopicSpeechDropped, events.SpeechDroppedDTO{
			ID:          dropped.ID,
			Text:        dropped.Text,
			RequestedBy: dropped.DisplayName,
			QueueLength: queueLen,
			DroppedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	return item.ID, nil
}

func (r *Runner) run(ctx context.Context) {
	for {
		item, ok := r.next(ctx)
		if !ok {
			return
		}
		r.handleItem(ctx, item)
	}
}

func (r *Runner) next(ctx context.Context) (*Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.closed {
			return nil, false
		}
		if len(r.queue) > 0 {
			item := r.queue[0]
			r.queue = r.queue[1:]
			r.setStatusLocked("synthesizing", len(r.queue), item.ID, "")
			return item, true
		}

		r.setStatusLocked("idle", 0, "", "")
		r.cond.Wait()
		if ctx.Err() != nil {
			return nil, false
		}
	}
}

// handleItem walks one item through its whole state machine. The next
// item is not touched until this returns.
func (r *Runner) handleItem(ctx context.Context, item *Item) {
	audio, provider, err := r.synthesize(ctx, item)
	if err != nil {
		r.abandon(item, err)
		return
	}

	// Playback starts now; cooldowns measure audible cadence, so the
	// stamp happens here and not at synthesis time.
	startedAt := time.Now()
	if r.cfg.Viewers != nil && item.UserID != "" {
		r.cfg.Viewers.MarkSpoken(item.UserID, startedAt)
	}

	r.updateStatus("playing", r.queueLength(), item.ID, "")
	r.emitSpoken(item, provider, audio, nil)

	if r.localMuted() {
		// Overlay listeners still got the audio above; only the local
		// speakers stay quiet.
		r.updateStatus("idle", r.queueLength(), "", "")
		return
	}

	if r.cfg.Sink != nil {
		if err := r.cfg.Sink.Play(ctx, audio); err != nil && ctx.Err() == nil {
			log.Printf("speech runner: playback: %v", err)
			r.publish(events.TopicAppError, map[string]any{
				"source": "speech",
				"error":  err.Error(),
			})
		}
	}

	r.updateStatus("idle", r.queueLength(), "", "")
}

// synthesize tries the resolved provider, then falls back exactly once
// to the baseline with neutral parameters.
func (r *Runner) synthesize(ctx context.Context, item *Item) ([]byte, string, error) {
	if r.cfg.Providers == nil {
		return nil, "", fmt.Errorf("speech runner: no providers configured")
	}

	baseline := r.cfg.Providers.Baseline()

	provider, ok := r.cfg.Providers.Get(item.Voice.ProviderID)
	if !ok {
		provider = baseline
	}
	if provider == nil {
		return nil, "", fmt.Errorf("speech runner: provider %q not available", item.Voice.ProviderID)
	}

	audio, err := r.callProvider(ctx, provider, item.Text, item.Voice)
	if err == nil {
		return audio, provider.ID(), nil
	}

	if baseline == nil || provider.ID() == baseline.ID() {
		return nil, "", err
	}

	log.Printf("speech runner: provider %s failed, retrying baseline: %v", provider.ID(), err)
	audio, retryErr := r.callProvider(ctx, baseline, item.Text, domain.NeutralParams(baseline.ID(), ""))
	if retryErr != nil {
		return nil, "", fmt.Errorf("baseline retry after %v: %w", err, retryErr)
	}
	return audio, baseline.ID(), nil
}

func (r *Runner) callProvider(ctx context.Context, provider domain.Synthesizer, text string, params domain.VoiceParams) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.SynthTimeout)
	defer cancel()
	return provider.Synthesize(callCtx, text, params)
}

func (r *Runner) abandon(item *Item, err error) {
	log.Printf("speech runner: abandoned %s: %v", item.ID, err)
	r.updateStatus("idle", r.queueLength(), "", err.Error())
	r.emitSpoken(item, "", nil, err)
}

func (r *Runner) emitSpoken(item *Item, provider string, audio []byte, err error) {
	payload := events.SpeechSpokenDTO{
		ID:          item.ID,
		OK:          err == nil,
		Text:        item.Text,
		Provider:    provider,
		Voice:       item.Voice.VoiceID,
		RequestedBy: item.DisplayName,
		FinishedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if len(audio) > 0 {
		payload.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	}
	r.publish(events.TopicSpeechSpoken, payload)
}

func (r *Runner) localMuted() bool {
	if r.cfg.Rules == nil {
		return false
	}
	return r.cfg.Rules.Snapshot().LocalMute
}

func (r *Runner) queueLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// StopAll clears pending items without shutting the runner down.
func (r *Runner) StopAll() {
	r.mu.Lock()
	r.queue = nil
	r.setStatusLocked("stopped", 0, "", "")
	r.mu.Unlock()
	r.cond.Broadcast()
}

func (r *Runner) Status() events.SpeechStatusDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.queue = nil
	r.mu.Unlock()
	r.cond.Broadcast()

	r.wg.Wait()
	return nil
}

func (r *Runner) updateStatus(state string, queueLength int, currentID, lastError string) {
	r.mu.Lock()
	r.setStatusLocked(state, queueLength, currentID, lastError)
	r.mu.Unlock()
}

func (r *Runner) setStatusLocked(state string, queueLength int, currentID, lastError string) {
	if strings.TrimSpace(state) == "" {
		state = "idle"
	}
	r.status = events.NewSpeechStatusDTO(state, queueLength, currentID, lastError)
	r.publish(events.TopicSpeechStatus, r.status)
}

func (r *Runner) publish(topic string, payload any) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, payload)
	}
}
