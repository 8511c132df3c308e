package rules

import (
	"strings"
	"testing"
	"time"

	"chatvoice/internal/domain"
)

func testConfig() *Config {
	cfg := Default()
	cfg.Announcement = AnnounceNone
	return cfg
}

func testMessage(text string) domain.Message {
	return domain.Message{
		Platform:    domain.PlatformTwitch,
		ChannelID:   "somechannel",
		UserID:      "100",
		Username:    "viewer",
		DisplayName: "Viewer",
		Text:        text,
	}
}

func TestEvaluateRejections(t *testing.T) {
	cfg := testConfig()
	cfg.BlockedWords = []string{"forbidden"}
	cfg.MaxLength = 20

	cases := []struct {
		name   string
		msg    domain.Message
		reason string
	}{
		{"command prefix tilde", testMessage("~tts off"), ReasonCommand},
		{"command prefix bang", testMessage("!so somebody"), ReasonCommand},
		{"url", testMessage("go watch https://example.com now"), ReasonURL},
		{"bare domain", testMessage("check example.com please"), ReasonURL},
		{"empty", testMessage("   "), ReasonTooShort},
		{"too long", testMessage(strings.Repeat("a", 21)), ReasonTooLong},
		{"blocked word", testMessage("this is FORBIDDEN text"), ReasonBlockedWord},
		{"blocked word inside", testMessage("xxforbiddenxx"), ReasonBlockedWord},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(NewTracker(0))
			verdict := engine.Evaluate(tc.msg, cfg, time.Now())
			if verdict.Admit {
				t.Fatalf("expected rejection, got admit with text %q", verdict.Text)
			}
			if verdict.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, verdict.Reason)
			}
		})
	}
}

func TestEvaluateBotSender(t *testing.T) {
	cfg := testConfig()
	cfg.BotNames = []string{"MyCustomBot"}

	engine := NewEngine(NewTracker(0))

	for _, name := range []string{"nightbot", "mycustombot"} {
		msg := testMessage("hello there")
		msg.Username = name
		verdict := engine.Evaluate(msg, cfg, time.Now())
		if verdict.Admit || verdict.Reason != ReasonBot {
			t.Fatalf("sender %s: expected bot rejection, got %+v", name, verdict)
		}
	}

	msg := testMessage("hello there")
	if verdict := engine.Evaluate(msg, cfg, time.Now()); !verdict.Admit {
		t.Fatalf("regular sender rejected: %+v", verdict)
	}
}

func TestEvaluateCollapsesRepeats(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRepeatedChars = 2

	engine := NewEngine(NewTracker(0))
	verdict := engine.Evaluate(testMessage("heeeeello"), cfg, time.Now())
	if !verdict.Admit {
		t.Fatalf("expected admit, got %+v", verdict)
	}
	if verdict.Text != "heello" {
		t.Fatalf("expected collapsed text %q, got %q", "heello", verdict.Text)
	}
}

func TestEvaluateBlockedWordSeesRawText(t *testing.T) {
	// The repetition collapse must not hide a blocked word from the
	// filter: "baaad" with max 1 collapses to "bad", but the filter
	// runs on the raw text and should still pass it.
	cfg := testConfig()
	cfg.MaxRepeatedChars = 1
	cfg.BlockedWords = []string{"bad"}

	engine := NewEngine(NewTracker(0))
	verdict := engine.Evaluate(testMessage("baaad"), cfg, time.Now())
	if !verdict.Admit {
		t.Fatalf("expected admit, got %+v", verdict)
	}
	if verdict.Text != "bad" {
		t.Fatalf("expected %q, got %q", "bad", verdict.Text)
	}
}

func TestEvaluateEmoteAndEmojiLimits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEmotes = 2
	cfg.MaxEmojis = 2

	engine := NewEngine(NewTracker(0))

	msg := testMessage("nice play")
	msg.EmoteCount = 3
	if verdict := engine.Evaluate(msg, cfg, time.Now()); verdict.Reason != ReasonEmoteLimit {
		t.Fatalf("expected emote limit, got %+v", verdict)
	}

	msg = testMessage("gg \U0001F600\U0001F600\U0001F600")
	if verdict := engine.Evaluate(msg, cfg, time.Now()); verdict.Reason != ReasonEmojiLimit {
		t.Fatalf("expected emoji limit, got %+v", verdict)
	}

	msg = testMessage("gg \U0001F600")
	if verdict := engine.Evaluate(msg, cfg, time.Now()); !verdict.Admit {
		t.Fatalf("single emoji rejected: %+v", verdict)
	}
}

func TestEvaluateDuplicateSuppression(t *testing.T) {
	cfg := testConfig()
	engine := NewEngine(NewTracker(0))
	now := time.Now()

	first := engine.Evaluate(testMessage("hello chat"), cfg, now)
	if !first.Admit {
		t.Fatalf("first message rejected: %+v", first)
	}

	// Same text from another viewer inside the window.
	msg := testMessage("Hello Chat")
	msg.Username = "someoneelse"
	second := engine.Evaluate(msg, cfg, now.Add(10*time.Second))
	if second.Admit || second.Reason != ReasonDuplicate {
		t.Fatalf("expected duplicate rejection, got %+v", second)
	}

	third := engine.Evaluate(testMessage("hello chat"), cfg, now.Add(cfg.DedupWindow()+time.Minute))
	if !third.Admit {
		t.Fatalf("message after window rejected: %+v", third)
	}
}

func TestEvaluatePerSenderDedup(t *testing.T) {
	cfg := testConfig()
	cfg.DedupPerSender = true

	engine := NewEngine(NewTracker(0))
	now := time.Now()

	if v := engine.Evaluate(testMessage("same text"), cfg, now); !v.Admit {
		t.Fatalf("first rejected: %+v", v)
	}

	other := testMessage("same text")
	other.Username = "otherviewer"
	if v := engine.Evaluate(other, cfg, now.Add(time.Second)); !v.Admit {
		t.Fatalf("other sender rejected with per-sender dedup: %+v", v)
	}

	if v := engine.Evaluate(testMessage("same text"), cfg, now.Add(2*time.Second)); v.Reason != ReasonDuplicate {
		t.Fatalf("same sender repeat admitted: %+v", v)
	}
}

func TestAnnouncementStyles(t *testing.T) {
	cases := []struct {
		style AnnouncementStyle
		want  string
	}{
		{AnnounceSays, "Viewer says: hello"},
		{AnnounceFrom, "From Viewer: hello"},
		{AnnounceColon, "Viewer: hello"},
		{AnnounceNone, "hello"},
	}

	for _, tc := range cases {
		cfg := testConfig()
		cfg.Announcement = tc.style
		engine := NewEngine(NewTracker(0))
		verdict := engine.Evaluate(testMessage("hello"), cfg, time.Now())
		if !verdict.Admit {
			t.Fatalf("style %s: rejected: %+v", tc.style, verdict)
		}
		if verdict.Text != tc.want {
			t.Fatalf("style %s: expected %q, got %q", tc.style, tc.want, verdict.Text)
		}
	}
}

func TestFiltersCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.FilterCommands = false
	cfg.FilterURLs = false
	cfg.FilterBots = false

	engine := NewEngine(NewTracker(0))

	msg := testMessage("!hello https://example.com")
	msg.Username = "nightbot"
	if verdict := engine.Evaluate(msg, cfg, time.Now()); !verdict.Admit {
		t.Fatalf("disabled filters still rejected: %+v", verdict)
	}
}
