package commands

import (
	"context"

	"chatvoice/internal/domain"
)

type Command interface {
	Name() string
	Aliases() []string
	SupportsPlatform(p domain.Platform) bool
	Handle(ctx context.Context, c *Context) error
}

type Context struct {
	Message domain.Message
	Out     domain.OutgoingMessagePort

	Raw  string
	Args []string
}

// Reply sends a line back to the channel the command came from.
func (c *Context) Reply(ctx context.Context, text string) error {
	if c.Out == nil {
		return nil
	}
	return c.Out.SendMessage(ctx, c.Message.Platform, c.Message.ChannelID, text)
}

// IsPrivileged reports whether the sender may run moderation commands.
func (c *Context) IsPrivileged() bool {
	return c.Message.IsBroadcaster || c.Message.IsModerator
}
