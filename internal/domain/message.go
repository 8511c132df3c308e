package domain

import (
	"strings"
	"time"
)

type Platform string

const (
	PlatformTwitch Platform = "twitch"
	PlatformKick   Platform = "kick"
)

// Message is one inbound chat event. Adapters build it once; the
// pipeline never mutates it.
type Message struct {
	Platform    Platform
	ChannelID   string
	UserID      string
	Username    string // canonical lowercase login
	DisplayName string // casing as the platform shows it
	Text        string
	ReceivedAt  time.Time

	EmoteCount int
	Badges     []string

	IsBroadcaster bool
	IsModerator   bool
	IsVip         bool
	IsSubscriber  bool
}

// CanonicalName lowercases a login for comparisons. Display casing is
// kept on the Message itself.
func CanonicalName(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// Display returns the name to announce: display form when present,
// otherwise the canonical login.
func (m Message) Display() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.Username
}
