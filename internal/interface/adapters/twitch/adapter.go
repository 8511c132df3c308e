// Package twitchadapter connects to twitch chat and turns IRC messages
// into domain messages for the pipeline.
package twitchadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/adeithe/go-twitch/irc"

	"chatvoice/internal/domain"
)

type Config struct {
	Username   string
	OAuthToken string
	Channels   []string
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type Adapter struct {
	cfg     Config
	handler MessageHandler

	mu   sync.RWMutex
	conn *irc.Conn
}

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) SetHandler(h MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// Start connects, joins the configured channels and blocks until the
// context is cancelled. Reconnect policy is the caller's problem.
func (a *Adapter) Start(ctx context.Context) error {
	if len(a.cfg.Channels) == 0 {
		return errors.New("twitch: no channels configured")
	}
	if a.cfg.Username == "" || a.cfg.OAuthToken == "" {
		return errors.New("twitch: username or oauth token missing")
	}

	conn := &irc.Conn{}

	if err := conn.SetLogin(a.cfg.Username, a.cfg.OAuthToken); err != nil {
		return fmt.Errorf("twitch: SetLogin: %w", err)
	}

	conn.OnMessage(func(cm irc.ChatMessage) {
		a.mu.RLock()
		handler := a.handler
		a.mu.RUnlock()
		if handler == nil {
			return
		}

		msg := mapChatMessage(cm)
		if err := handler(ctx, msg); err != nil {
			log.Printf("twitch: handler: %v", err)
		}
	})

	if err := conn.Connect(); err != nil {
		return fmt.Errorf("twitch: Connect: %w", err)
	}

	if err := conn.Join(a.cfg.Channels...); err != nil {
		return fmt.Errorf("twitch: Join: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	log.Printf("twitch: connected as %s to %v", a.cfg.Username, a.cfg.Channels)

	<-ctx.Done()

	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
	}
	a.mu.Unlock()

	return ctx.Err()
}

func (a *Adapter) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformTwitch {
		return fmt.Errorf("twitch adapter does not handle platform %s", platform)
	}

	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.New("twitch: connection not ready")
	}

	return conn.Say(channelID, text)
}

func mapChatMessage(cm irc.ChatMessage) domain.Message {
	sender := cm.Sender

	msg := domain.Message{
		Platform:    domain.PlatformTwitch,
		ChannelID:   cm.Channel,
		UserID:      strconv.FormatInt(sender.ID, 10),
		Username:    domain.CanonicalName(sender.Username),
		DisplayName: sender.DisplayName,
		Text:        cm.Text,
		ReceivedAt:  time.Now(),

		IsBroadcaster: sender.IsBroadcaster,
		IsModerator:   sender.IsModerator,
		IsVip:         sender.IsVIP,
		IsSubscriber:  sender.IsSubscriber,
	}

	if sender.IsBroadcaster {
		msg.Badges = append(msg.Badges, "broadcaster")
	}
	if sender.IsModerator {
		msg.Badges = append(msg.Badges, "moderator")
	}
	if sender.IsVIP {
		msg.Badges = append(msg.Badges, "vip")
	}
	if sender.IsSubscriber {
		msg.Badges = append(msg.Badges, "subscriber")
	}

	return msg
}
