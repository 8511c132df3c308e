package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
)

// MuteCommand silences one viewer: "~mute user" forever, or
// "~mute user 10" for ten minutes. "~unmute user" lifts it.
type MuteCommand struct {
	viewers *viewers.Store
}

func NewMuteCommand(store *viewers.Store) *MuteCommand {
	return &MuteCommand{viewers: store}
}

func (c *MuteCommand) Name() string {
	return "mute"
}

func (c *MuteCommand) Aliases() []string {
	return []string{"unmute"}
}

func (c *MuteCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *MuteCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsPrivileged() {
		return nil
	}
	if len(cmdCtx.Args) == 0 {
		return cmdCtx.Reply(ctx, "Usage: ~mute <user> [minutes] | ~unmute <user>")
	}

	target := strings.TrimPrefix(cmdCtx.Args[0], "@")
	userID := c.viewers.ResolveName(target)

	invoked := strings.ToLower(strings.Fields(cmdCtx.Raw)[0])
	if invoked == "unmute" {
		c.viewers.Unmute(userID)
		return cmdCtx.Reply(ctx, fmt.Sprintf("%s can speak again", target))
	}

	var until *time.Time
	if len(cmdCtx.Args) > 1 {
		minutes, err := strconv.Atoi(cmdCtx.Args[1])
		if err != nil || minutes <= 0 {
			return cmdCtx.Reply(ctx, "Usage: ~mute <user> [minutes]")
		}
		t := time.Now().Add(time.Duration(minutes) * time.Minute)
		until = &t
	}

	c.viewers.Mute(userID, until)
	if until != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("%s muted until %s", target, until.Format("15:04")))
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("%s muted", target))
}
