package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

type recordingOut struct {
	mu      sync.Mutex
	replies []string
}

func (o *recordingOut) SendMessage(_ context.Context, _ domain.Platform, _ string, text string) error {
	o.mu.Lock()
	o.replies = append(o.replies, text)
	o.mu.Unlock()
	return nil
}

func modMessage(text string) domain.Message {
	return domain.Message{
		Platform:    domain.PlatformTwitch,
		ChannelID:   "chan",
		UserID:      "1",
		Username:    "streamer",
		DisplayName: "Streamer",
		Text:        text,
		IsModerator: true,
	}
}

func plainMessage(text string) domain.Message {
	m := modMessage(text)
	m.IsModerator = false
	return m
}

func TestRouterIgnoresUnprefixedText(t *testing.T) {
	r := NewRouter("~")
	handled, err := r.Handle(context.Background(), modMessage("hello world"), nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if handled {
		t.Fatal("plain chat treated as command")
	}
}

func TestRouterSwallowsUnknownCommand(t *testing.T) {
	r := NewRouter("~")
	handled, err := r.Handle(context.Background(), modMessage("~nosuchthing"), nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !handled {
		t.Fatal("unknown prefixed command leaked to speech")
	}
}

func TestMuteCommandGoesThroughAlias(t *testing.T) {
	store := viewers.NewStore(nil)
	store.Observe("100", "SomeViewer")

	r := NewRouter("~")
	r.Register(NewMuteCommand(store))
	out := &recordingOut{}

	handled, err := r.Handle(context.Background(), modMessage("~mute someviewer"), out)
	if err != nil || !handled {
		t.Fatalf("mute: handled=%v err=%v", handled, err)
	}
	now := time.Now()
	if !store.Restriction("100", now).MuteActive(now) {
		t.Fatal("viewer not muted")
	}

	handled, err = r.Handle(context.Background(), modMessage("~unmute @someviewer"), out)
	if err != nil || !handled {
		t.Fatalf("unmute: handled=%v err=%v", handled, err)
	}
	if store.Restriction("100", now).MuteActive(now) {
		t.Fatal("viewer still muted after unmute")
	}

	if len(out.replies) != 2 {
		t.Fatalf("got %d replies, want 2", len(out.replies))
	}
}

func TestMuteCommandRequiresPrivilege(t *testing.T) {
	store := viewers.NewStore(nil)
	r := NewRouter("~")
	r.Register(NewMuteCommand(store))

	handled, err := r.Handle(context.Background(), plainMessage("~mute someviewer"), nil)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	now := time.Now()
	if store.Restriction("someviewer", now).MuteActive(now) {
		t.Fatal("unprivileged sender muted a viewer")
	}
}

func TestTTSCommandTogglesGlobalMute(t *testing.T) {
	holder := rules.NewHolder(rules.Default())
	var saved *rules.Config
	r := NewRouter("~")
	r.Register(NewTTSCommand(holder, func(cfg *rules.Config) { saved = cfg }))
	out := &recordingOut{}

	if _, err := r.Handle(context.Background(), modMessage("~tts off"), out); err != nil {
		t.Fatalf("tts off: %v", err)
	}
	if !holder.Snapshot().GlobalMute {
		t.Fatal("global mute not set")
	}
	if saved == nil || !saved.GlobalMute {
		t.Fatal("snapshot not handed to save callback")
	}

	if _, err := r.Handle(context.Background(), modMessage("~tts on"), out); err != nil {
		t.Fatalf("tts on: %v", err)
	}
	if holder.Snapshot().GlobalMute {
		t.Fatal("global mute not cleared")
	}
}

func TestTTSCommandLocalAndLimit(t *testing.T) {
	holder := rules.NewHolder(rules.Default())
	r := NewRouter("~")
	r.Register(NewTTSCommand(holder, nil))
	out := &recordingOut{}

	if _, err := r.Handle(context.Background(), modMessage("~tts local off"), out); err != nil {
		t.Fatalf("tts local off: %v", err)
	}
	if !holder.Snapshot().LocalMute {
		t.Fatal("local mute not set")
	}

	if _, err := r.Handle(context.Background(), modMessage("~tts limit on"), out); err != nil {
		t.Fatalf("tts limit on: %v", err)
	}
	if !holder.Snapshot().LimitAccess {
		t.Fatal("access limiting not enabled")
	}
}

func TestCooldownCommandSetsAndClearsGap(t *testing.T) {
	store := viewers.NewStore(nil)
	store.Observe("100", "chatty")

	r := NewRouter("~")
	r.Register(NewCooldownCommand(store))
	out := &recordingOut{}

	if _, err := r.Handle(context.Background(), modMessage("~cooldown chatty 30"), out); err != nil {
		t.Fatalf("cooldown: %v", err)
	}
	now := time.Now()
	if got := store.Restriction("100", now).CooldownGap; got != 30*time.Second {
		t.Fatalf("gap = %v, want 30s", got)
	}

	if _, err := r.Handle(context.Background(), modMessage("~cd chatty 0"), out); err != nil {
		t.Fatalf("cooldown clear: %v", err)
	}
	if got := store.Restriction("100", now).CooldownGap; got != 0 {
		t.Fatalf("gap = %v after clear, want 0", got)
	}
}
