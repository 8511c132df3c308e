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

// CooldownCommand forces a gap between one viewer's utterances:
// "~cooldown user 30" means at most one message every 30 seconds,
// "~cooldown user 0" clears it.
type CooldownCommand struct {
	viewers *viewers.Store
}

func NewCooldownCommand(store *viewers.Store) *CooldownCommand {
	return &CooldownCommand{viewers: store}
}

func (c *CooldownCommand) Name() string {
	return "cooldown"
}

func (c *CooldownCommand) Aliases() []string {
	return []string{"cd"}
}

func (c *CooldownCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *CooldownCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsPrivileged() {
		return nil
	}
	if len(cmdCtx.Args) < 2 {
		return cmdCtx.Reply(ctx, "Usage: ~cooldown <user> <seconds>")
	}

	target := strings.TrimPrefix(cmdCtx.Args[0], "@")
	seconds, err := strconv.Atoi(cmdCtx.Args[1])
	if err != nil || seconds < 0 {
		return cmdCtx.Reply(ctx, "Usage: ~cooldown <user> <seconds>")
	}

	userID := c.viewers.ResolveName(target)

	if seconds == 0 {
		c.viewers.SetCooldown(userID, 0, nil)
		return cmdCtx.Reply(ctx, fmt.Sprintf("cooldown cleared for %s", target))
	}

	c.viewers.SetCooldown(userID, time.Duration(seconds)*time.Second, nil)
	return cmdCtx.Reply(ctx, fmt.Sprintf("%s limited to one message every %ds", target, seconds))
}
