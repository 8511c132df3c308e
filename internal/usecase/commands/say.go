package commands

import (
	"context"
	"strings"
	"time"

	"chatvoice/internal/app/speech/runner"
	"chatvoice/internal/domain"
)

// SayCommand lets a moderator push text straight onto the queue,
// past the filters: "~say welcome everyone".
type SayCommand struct {
	queue interface {
		Enqueue(item runner.Item) (string, error)
	}
	voice func() domain.VoiceParams
}

func NewSayCommand(queue interface {
	Enqueue(item runner.Item) (string, error)
}, voice func() domain.VoiceParams) *SayCommand {
	return &SayCommand{queue: queue, voice: voice}
}

func (c *SayCommand) Name() string {
	return "say"
}

func (c *SayCommand) Aliases() []string {
	return []string{}
}

func (c *SayCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *SayCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsPrivileged() {
		return nil
	}

	text := strings.TrimSpace(strings.Join(cmdCtx.Args, " "))
	if text == "" {
		return cmdCtx.Reply(ctx, "Usage: ~say <text>")
	}

	_, err := c.queue.Enqueue(runner.Item{
		UserID:      cmdCtx.Message.UserID,
		DisplayName: cmdCtx.Message.Display(),
		Text:        text,
		Voice:       c.voice(),
		Platform:    cmdCtx.Message.Platform,
		ChannelID:   cmdCtx.Message.ChannelID,
		EnqueuedAt:  time.Now(),
	})
	return err
}
