package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatvoice/internal/app/events"
	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

type fakeSynth struct {
	id    string
	fail  bool
	mu    sync.Mutex
	calls []domain.VoiceParams
}

func (f *fakeSynth) ID() string { return f.id }

func (f *fakeSynth) Synthesize(_ context.Context, text string, params domain.VoiceParams) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("synth down")
	}
	return []byte("mp3:" + text), nil
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProviders struct {
	byID     map[string]*fakeSynth
	baseline *fakeSynth
}

func (p *fakeProviders) Get(id string) (domain.Synthesizer, bool) {
	s, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (p *fakeProviders) Baseline() domain.Synthesizer {
	if p.baseline == nil {
		return nil
	}
	return p.baseline
}

type fakeSink struct {
	mu      sync.Mutex
	played  []string
	active  int32
	overlap bool
}

func (s *fakeSink) Play(_ context.Context, audio []byte) error {
	if atomic.AddInt32(&s.active, 1) > 1 {
		s.overlap = true
	}
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	s.played = append(s.played, string(audio))
	s.mu.Unlock()
	atomic.AddInt32(&s.active, -1)
	return nil
}

func (s *fakeSink) playedItems() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.played))
	copy(out, s.played)
	return out
}

func newTestHolder(fn func(*rules.Config)) *rules.Holder {
	cfg := rules.Default()
	if fn != nil {
		fn(cfg)
	}
	return rules.NewHolder(cfg)
}

func waitSpoken(t *testing.T, ch <-chan any) events.SpeechSpokenDTO {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if dto, ok := msg.(events.SpeechSpokenDTO); ok {
				return dto
			}
		case <-deadline:
			t.Fatal("timed out waiting for spoken event")
		}
	}
}

func TestEnqueueDropsOldestAtCeiling(t *testing.T) {
	bus := events.NewBus()
	dropped, unsub := bus.Subscribe(events.TopicSpeechDropped)
	defer unsub()

	r := New(Config{
		Bus:   bus,
		Rules: newTestHolder(func(c *rules.Config) { c.QueueCeiling = 3 }),
	})
	// Not started on purpose: nothing drains, so the fourth enqueue
	// must evict the first.

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := r.Enqueue(Item{Text: fmt.Sprintf("message %d", i)})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	select {
	case msg := <-dropped:
		dto, ok := msg.(events.SpeechDroppedDTO)
		if !ok {
			t.Fatalf("unexpected payload %T", msg)
		}
		if dto.ID != ids[0] {
			t.Fatalf("dropped %s, want oldest %s", dto.ID, ids[0])
		}
	case <-time.After(time.Second):
		t.Fatal("no dropped event published")
	}

	if got := r.Status().QueueLength; got != 3 {
		t.Fatalf("queue length = %d, want 3", got)
	}
}

func TestRunnerDrainsInOrderWithoutOverlap(t *testing.T) {
	bus := events.NewBus()
	spoken, unsub := bus.Subscribe(events.TopicSpeechSpoken)
	defer unsub()

	synth := &fakeSynth{id: "google"}
	sink := &fakeSink{}
	r := New(Config{
		Providers: &fakeProviders{byID: map[string]*fakeSynth{"google": synth}, baseline: synth},
		Sink:      sink,
		Bus:       bus,
		Rules:     newTestHolder(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	for i := 0; i < 5; i++ {
		if _, err := r.Enqueue(Item{
			Text:  fmt.Sprintf("line %d", i),
			Voice: domain.NeutralParams("google", "en"),
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		dto := waitSpoken(t, spoken)
		if !dto.OK {
			t.Fatalf("item %d failed: %s", i, dto.Error)
		}
		if want := fmt.Sprintf("line %d", i); dto.Text != want {
			t.Fatalf("spoke %q out of order, want %q", dto.Text, want)
		}
	}

	if sink.overlap {
		t.Fatal("two utterances played at once")
	}

	played := sink.playedItems()
	if len(played) != 5 {
		t.Fatalf("played %d items, want 5", len(played))
	}
	for i, audio := range played {
		if want := fmt.Sprintf("mp3:line %d", i); audio != want {
			t.Fatalf("playback %d = %q, want %q", i, audio, want)
		}
	}
}

func TestRunnerFallsBackToBaselineOnce(t *testing.T) {
	bus := events.NewBus()
	spoken, unsub := bus.Subscribe(events.TopicSpeechSpoken)
	defer unsub()

	broken := &fakeSynth{id: "elevenlabs", fail: true}
	baseline := &fakeSynth{id: "google"}
	r := New(Config{
		Providers: &fakeProviders{
			byID:     map[string]*fakeSynth{"elevenlabs": broken, "google": baseline},
			baseline: baseline,
		},
		Sink:  &fakeSink{},
		Bus:   bus,
		Rules: newTestHolder(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	if _, err := r.Enqueue(Item{
		Text:  "hello",
		Voice: domain.VoiceParams{ProviderID: "elevenlabs", VoiceID: "rachel", Speed: 1, Volume: 1},
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dto := waitSpoken(t, spoken)
	if !dto.OK {
		t.Fatalf("expected baseline success, got error %s", dto.Error)
	}
	if dto.Provider != "google" {
		t.Fatalf("provider = %q, want baseline google", dto.Provider)
	}
	if broken.callCount() != 1 {
		t.Fatalf("failing provider called %d times, want 1", broken.callCount())
	}
	if baseline.callCount() != 1 {
		t.Fatalf("baseline called %d times, want 1", baseline.callCount())
	}

	baseline.mu.Lock()
	retry := baseline.calls[0]
	baseline.mu.Unlock()
	if retry.VoiceID != "" || retry.Pitch != 0 || retry.Speed != 1 {
		t.Fatalf("baseline retry used non-neutral params: %+v", retry)
	}
}

func TestRunnerAbandonsWhenBaselineFails(t *testing.T) {
	bus := events.NewBus()
	spoken, unsub := bus.Subscribe(events.TopicSpeechSpoken)
	defer unsub()

	baseline := &fakeSynth{id: "google", fail: true}
	sink := &fakeSink{}
	r := New(Config{
		Providers: &fakeProviders{byID: map[string]*fakeSynth{"google": baseline}, baseline: baseline},
		Sink:      sink,
		Bus:       bus,
		Rules:     newTestHolder(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	if _, err := r.Enqueue(Item{Text: "hello", Voice: domain.NeutralParams("google", "en")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dto := waitSpoken(t, spoken)
	if dto.OK {
		t.Fatal("expected abandoned item")
	}
	if dto.Error == "" {
		t.Fatal("abandoned item carries no error")
	}
	if baseline.callCount() != 1 {
		t.Fatalf("baseline called %d times, want exactly 1", baseline.callCount())
	}
	if len(sink.playedItems()) != 0 {
		t.Fatal("abandoned item reached the sink")
	}
}

func TestRunnerLocalMuteSkipsSink(t *testing.T) {
	bus := events.NewBus()
	spoken, unsub := bus.Subscribe(events.TopicSpeechSpoken)
	defer unsub()

	synth := &fakeSynth{id: "google"}
	sink := &fakeSink{}
	r := New(Config{
		Providers: &fakeProviders{byID: map[string]*fakeSynth{"google": synth}, baseline: synth},
		Sink:      sink,
		Bus:       bus,
		Rules:     newTestHolder(func(c *rules.Config) { c.LocalMute = true }),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	if _, err := r.Enqueue(Item{Text: "hello", Voice: domain.NeutralParams("google", "en")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dto := waitSpoken(t, spoken)
	if !dto.OK {
		t.Fatalf("muted item failed: %s", dto.Error)
	}
	if dto.AudioBase64 == "" {
		t.Fatal("overlay audio missing while locally muted")
	}
	if len(sink.playedItems()) != 0 {
		t.Fatal("local mute must not reach the speakers")
	}
}

func TestRunnerStampsLastSpokenAtPlaybackStart(t *testing.T) {
	bus := events.NewBus()
	spoken, unsub := bus.Subscribe(events.TopicSpeechSpoken)
	defer unsub()

	synth := &fakeSynth{id: "google"}
	store := viewers.NewStore(nil)
	r := New(Config{
		Providers: &fakeProviders{byID: map[string]*fakeSynth{"google": synth}, baseline: synth},
		Sink:      &fakeSink{},
		Bus:       bus,
		Rules:     newTestHolder(nil),
		Viewers:   store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	before := time.Now()
	if _, err := r.Enqueue(Item{UserID: "100", Text: "hello", Voice: domain.NeutralParams("google", "en")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitSpoken(t, spoken)

	restriction := store.Restriction("100", time.Now())
	if restriction.LastSpokenAt == nil {
		t.Fatal("lastSpokenAt not stamped")
	}
	if restriction.LastSpokenAt.Before(before) {
		t.Fatalf("lastSpokenAt %v precedes enqueue at %v", restriction.LastSpokenAt, before)
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	r := New(Config{Rules: newTestHolder(nil)})
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := r.Enqueue(Item{Text: "hello"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue after close = %v, want ErrClosed", err)
	}
}
