package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"chatvoice/internal/domain"
)

// Reject reasons, one per check so filtered counts stay meaningful.
const (
	ReasonCommand     = "command-prefix"
	ReasonBot         = "bot-sender"
	ReasonURL         = "url"
	ReasonTooShort    = "too-short"
	ReasonTooLong     = "too-long"
	ReasonBlockedWord = "blocked-word"
	ReasonEmoteLimit  = "emote-limit"
	ReasonEmojiLimit  = "emoji-limit"
	ReasonDuplicate   = "duplicate"
)

// Verdict is the engine's answer for one message. Text carries the
// normalized utterance and is only set when Admit is true.
type Verdict struct {
	Admit  bool
	Reason string
	Text   string
}

func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

var urlPattern = regexp.MustCompile(`(?i)(https?://\S+|\bwww\.\S+|\b[a-z0-9-]+\.(com|net|org|io|tv|gg|dev|app)(/\S*)?\b)`)

// Engine applies the speak/skip rules to inbound messages. All checks
// run against the raw text; only the surviving utterance is rewritten.
type Engine struct {
	dedup *Tracker
}

func NewEngine(dedup *Tracker) *Engine {
	if dedup == nil {
		dedup = NewTracker(0)
	}
	return &Engine{dedup: dedup}
}

// Evaluate runs the checks in their fixed order and short-circuits on
// the first rejection.
func (e *Engine) Evaluate(msg domain.Message, cfg *Config, now time.Time) Verdict {
	raw := strings.TrimSpace(msg.Text)

	if cfg.FilterCommands {
		if strings.HasPrefix(raw, "!") {
			return reject(ReasonCommand)
		}
		if prefix := cfg.CommandPrefix; prefix != "" && strings.HasPrefix(raw, prefix) {
			return reject(ReasonCommand)
		}
	}

	if cfg.FilterBots && isBotSender(msg.Username, cfg.BotNames) {
		return reject(ReasonBot)
	}

	if cfg.FilterURLs && urlPattern.MatchString(raw) {
		return reject(ReasonURL)
	}

	if length := len([]rune(raw)); length < cfg.MinLength {
		return reject(ReasonTooShort)
	} else if cfg.MaxLength > 0 && length > cfg.MaxLength {
		return reject(ReasonTooLong)
	}

	if _, ok := matchBlockedWord(raw, cfg.BlockedWords); ok {
		return reject(ReasonBlockedWord)
	}

	// Filters above saw the raw text; from here on we shape what will
	// actually be spoken.
	spoken := collapseRepeats(raw, cfg.MaxRepeatedChars)

	if cfg.MaxEmotes > 0 && msg.EmoteCount > cfg.MaxEmotes {
		return reject(ReasonEmoteLimit)
	}
	if cfg.MaxEmojis > 0 && countEmojis(spoken) > cfg.MaxEmojis {
		return reject(ReasonEmojiLimit)
	}

	scope := ""
	if cfg.DedupPerSender {
		scope = msg.Username
	}
	if e.dedup.Suppress(scope, spoken, cfg.DedupWindow(), now) {
		return reject(ReasonDuplicate)
	}

	return Verdict{Admit: true, Text: announce(cfg.Announcement, msg.Display(), spoken)}
}

func isBotSender(canonical string, custom []string) bool {
	for _, name := range DefaultBotNames {
		if canonical == name {
			return true
		}
	}
	for _, name := range custom {
		if canonical == domain.CanonicalName(name) {
			return true
		}
	}
	return false
}

func matchBlockedWord(raw string, blocked []string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, word := range blocked {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if strings.Contains(lower, word) {
			return word, true
		}
	}
	return "", false
}

// collapseRepeats limits runs of one character: "heeeeello" with max 2
// becomes "heello". max <= 0 disables the collapse.
func collapseRepeats(text string, max int) string {
	if max <= 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	var last rune
	run := 0
	for i, r := range text {
		if i > 0 && r == last {
			run++
		} else {
			run = 1
		}
		if run <= max {
			b.WriteRune(r)
		}
		last = r
	}
	return b.String()
}

func countEmojis(text string) int {
	count := 0
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
			count++
		case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
			count++
		case r == 0xFE0F: // variation selector riding an emoji
			count++
		}
	}
	return count
}

func announce(style AnnouncementStyle, display, text string) string {
	switch style {
	case AnnounceFrom:
		return fmt.Sprintf("From %s: %s", display, text)
	case AnnounceColon:
		return fmt.Sprintf("%s: %s", display, text)
	case AnnounceNone:
		return text
	default:
		return fmt.Sprintf("%s says: %s", display, text)
	}
}
