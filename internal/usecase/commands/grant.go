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

// GrantCommand hands out redeem-style access: "~grant user" forever,
// "~grant user 60" for an hour. "~revoke user" removes every grant.
type GrantCommand struct {
	viewers *viewers.Store
}

func NewGrantCommand(store *viewers.Store) *GrantCommand {
	return &GrantCommand{viewers: store}
}

func (c *GrantCommand) Name() string {
	return "grant"
}

func (c *GrantCommand) Aliases() []string {
	return []string{"revoke"}
}

func (c *GrantCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *GrantCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsPrivileged() {
		return nil
	}
	if len(cmdCtx.Args) == 0 {
		return cmdCtx.Reply(ctx, "Usage: ~grant <user> [minutes] | ~revoke <user>")
	}

	target := strings.TrimPrefix(cmdCtx.Args[0], "@")
	userID := c.viewers.ResolveName(target)

	invoked := strings.ToLower(strings.Fields(cmdCtx.Raw)[0])
	if invoked == "revoke" {
		c.viewers.Revoke(userID)
		return cmdCtx.Reply(ctx, fmt.Sprintf("access revoked for %s", target))
	}

	grant := domain.AccessGrant{UserID: userID, Source: domain.GrantRedeem}
	if len(cmdCtx.Args) > 1 {
		minutes, err := strconv.Atoi(cmdCtx.Args[1])
		if err != nil || minutes <= 0 {
			return cmdCtx.Reply(ctx, "Usage: ~grant <user> [minutes]")
		}
		t := time.Now().Add(time.Duration(minutes) * time.Minute)
		grant.ExpiresAt = &t
	}

	c.viewers.Grant(grant)
	if grant.ExpiresAt != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("%s can use TTS for %s more minutes", target, cmdCtx.Args[1]))
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("%s can use TTS", target))
}
