// Package kickadapter connects to kick chat: the websocket wrapper for
// inbound messages, the official SDK for replies.
package kickadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	kicksdk "github.com/glichtv/kick-sdk"
	kickchatwrapper "github.com/johanvandegriff/kick-chat-wrapper"

	"chatvoice/internal/domain"
)

type Config struct {
	AccessToken       string
	BroadcasterUserID int
	ChatroomID        int
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type Adapter struct {
	cfg     Config
	handler MessageHandler

	mu  sync.RWMutex
	sdk *kicksdk.Client
	ws  *kickchatwrapper.Client
}

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) SetHandler(h MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

func (a *Adapter) Start(ctx context.Context) error {
	if a.cfg.AccessToken == "" {
		return errors.New("kick: empty access token")
	}
	if a.cfg.ChatroomID == 0 {
		return errors.New("kick: chatroom id not configured")
	}
	if a.cfg.BroadcasterUserID == 0 {
		return errors.New("kick: broadcaster user id not configured")
	}

	sdkClient := kicksdk.NewClient(
		kicksdk.WithAccessTokens(kicksdk.AccessTokens{
			UserAccessToken: a.cfg.AccessToken,
		}),
	)

	wsClient, err := kickchatwrapper.NewClient()
	if err != nil {
		return fmt.Errorf("kick: creating ws client: %w", err)
	}

	if err := wsClient.JoinChannelByID(a.cfg.ChatroomID); err != nil {
		return fmt.Errorf("kick: JoinChannelByID: %w", err)
	}

	msgChan := wsClient.ListenForMessages()

	a.mu.Lock()
	a.sdk = sdkClient
	a.ws = wsClient
	a.mu.Unlock()

	log.Printf("kick: listening on chatroom %d", a.cfg.ChatroomID)

	go func() {
		for {
			select {
			case m, ok := <-msgChan:
				if !ok {
					log.Println("kick: message channel closed")
					return
				}

				a.mu.RLock()
				handler := a.handler
				a.mu.RUnlock()
				if handler == nil {
					continue
				}

				if err := handler(ctx, mapChatMessage(m, a.cfg.BroadcasterUserID)); err != nil {
					log.Printf("kick: handler: %v", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()

	a.mu.Lock()
	if a.ws != nil {
		a.ws.Close()
	}
	a.mu.Unlock()

	return ctx.Err()
}

func (a *Adapter) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformKick {
		return fmt.Errorf("kick adapter does not handle platform %s", platform)
	}
	if text == "" {
		return nil
	}

	a.mu.RLock()
	client := a.sdk
	a.mu.RUnlock()

	if client == nil {
		return errors.New("kick: sdk client not initialized")
	}

	resp, err := client.Chat().PostMessage(ctx, kicksdk.PostChatMessageInput{
		BroadcasterUserID: a.cfg.BroadcasterUserID,
		Content:           text,
		PosterType:        kicksdk.MessagePosterUser,
	})
	if err != nil {
		return fmt.Errorf("kick: sending chat message: %w", err)
	}

	if !resp.Payload.IsSent {
		return fmt.Errorf("kick: message rejected by the API (status %d)", resp.ResponseMetadata.StatusCode)
	}

	return nil
}

func mapChatMessage(m kickchatwrapper.ChatMessage, broadcasterUserID int) domain.Message {
	sender := m.Sender

	isOwner := sender.ID == broadcasterUserID

	var isMod, isVip, isSub bool
	for _, b := range sender.Identity.Badges {
		switch strings.ToLower(b.Type) {
		case "moderator", "broadcaster":
			isMod = true
		case "vip":
			isVip = true
		case "subscriber", "founder":
			isSub = true
		}
	}

	return domain.Message{
		Platform:    domain.PlatformKick,
		ChannelID:   strconv.Itoa(m.ChatroomID),
		UserID:      strconv.Itoa(sender.ID),
		Username:    domain.CanonicalName(sender.Username),
		DisplayName: sender.Username,
		Text:        m.Content,
		ReceivedAt:  time.Now(),

		IsBroadcaster: isOwner,
		IsModerator:   isMod,
		IsVip:         isVip,
		IsSubscriber:  isSub,
	}
}
