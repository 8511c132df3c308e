package rules

import (
	"sync/atomic"
	"time"

	"chatvoice/internal/domain"
)

type AnnouncementStyle string

const (
	AnnounceSays  AnnouncementStyle = "says"  // "{display} says: {text}"
	AnnounceFrom  AnnouncementStyle = "from"  // "From {display}: {text}"
	AnnounceColon AnnouncementStyle = "colon" // "{display}: {text}"
	AnnounceNone  AnnouncementStyle = "none"  // text only
)

// DefaultBotNames are senders ignored out of the box. Custom entries
// from settings are merged on top.
var DefaultBotNames = []string{
	"nightbot",
	"streamelements",
	"streamlabs",
	"moobot",
	"fossabot",
	"wizebot",
	"botrix",
}

// Config is one immutable snapshot of every knob the pipeline reads.
// It is never mutated in place; settings changes build a new value and
// swap it through a Holder.
type Config struct {
	CommandPrefix  string `json:"command_prefix"`
	FilterCommands bool   `json:"filter_commands"`

	FilterBots bool     `json:"filter_bots"`
	BotNames   []string `json:"bot_names"`

	FilterURLs bool `json:"filter_urls"`

	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`

	BlockedWords []string `json:"blocked_words"`

	MaxRepeatedChars int `json:"max_repeated_chars"`
	MaxEmotes        int `json:"max_emotes"`
	MaxEmojis        int `json:"max_emojis"`

	DedupWindowSeconds int  `json:"dedup_window_seconds"`
	DedupPerSender     bool `json:"dedup_per_sender"`

	Announcement AnnouncementStyle `json:"announcement"`

	GlobalMute  bool                        `json:"global_mute"`
	LimitAccess bool                        `json:"limit_access"`
	Groups      map[domain.GrantSource]bool `json:"groups"`

	DefaultProviderID string          `json:"default_provider"`
	DefaultVoiceID    string          `json:"default_voice"`
	Providers         map[string]bool `json:"providers"`

	QueueCeiling int  `json:"queue_ceiling"`
	LocalMute    bool `json:"local_mute"` // keep overlay export, skip the speakers
}

// Default returns the out-of-the-box configuration.
func Default() *Config {
	return &Config{
		CommandPrefix:      "~",
		FilterCommands:     true,
		FilterBots:         true,
		FilterURLs:         true,
		MinLength:          1,
		MaxLength:          300,
		MaxRepeatedChars:   3,
		MaxEmotes:          5,
		MaxEmojis:          5,
		DedupWindowSeconds: 120,
		Announcement:       AnnounceSays,
		Groups: map[domain.GrantSource]bool{
			domain.GrantSubscriber: true,
			domain.GrantVip:        true,
			domain.GrantModerator:  true,
			domain.GrantRedeem:     true,
		},
		DefaultProviderID: "google",
		DefaultVoiceID:    "en",
		QueueCeiling:      50,
	}
}

// DedupWindow clamps the configured window into the supported range.
func (c *Config) DedupWindow() time.Duration {
	seconds := c.DedupWindowSeconds
	if seconds < 60 {
		seconds = 60
	}
	if seconds > 600 {
		seconds = 600
	}
	return time.Duration(seconds) * time.Second
}

// ProviderEnabled reports whether a provider may be used. A nil map
// means every registered provider is allowed.
func (c *Config) ProviderEnabled(id string) bool {
	if c.Providers == nil {
		return true
	}
	return c.Providers[id]
}

// GroupEnabled reports whether a grant source passes the access limit.
func (c *Config) GroupEnabled(source domain.GrantSource) bool {
	if c.Groups == nil {
		return false
	}
	return c.Groups[source]
}

// Ceiling returns the queue bound, falling back to the default.
func (c *Config) Ceiling() int {
	if c.QueueCeiling <= 0 {
		return 50
	}
	return c.QueueCeiling
}

// Holder shares one Config snapshot between the ingestion path and the
// dispatcher. Swap is atomic; readers never see a half-written config.
type Holder struct {
	ptr atomic.Pointer[Config]
}

func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	if cfg == nil {
		cfg = Default()
	}
	h.ptr.Store(cfg)
	return h
}

func (h *Holder) Snapshot() *Config {
	return h.ptr.Load()
}

func (h *Holder) Swap(cfg *Config) {
	if cfg == nil {
		return
	}
	h.ptr.Store(cfg)
}

// Update copies the current snapshot, applies fn and swaps the result
// in. fn must not retain the copy.
func (h *Holder) Update(fn func(*Config)) *Config {
	next := *h.Snapshot()
	fn(&next)
	h.ptr.Store(&next)
	return &next
}
