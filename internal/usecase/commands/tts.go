package commands

import (
	"context"
	"strings"

	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

// TTSCommand flips the pipeline-wide switches: "~tts off" mutes
// everything, "~tts local off" keeps the overlay feed but silences the
// speakers, "~tts limit on" turns on access limiting.
type TTSCommand struct {
	holder *rules.Holder
	save   func(*rules.Config) // persists the snapshot, may be nil
}

func NewTTSCommand(holder *rules.Holder, save func(*rules.Config)) *TTSCommand {
	return &TTSCommand{holder: holder, save: save}
}

func (c *TTSCommand) Name() string {
	return "tts"
}

func (c *TTSCommand) Aliases() []string {
	return []string{}
}

func (c *TTSCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *TTSCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsPrivileged() {
		return nil
	}
	if len(cmdCtx.Args) == 0 {
		return c.usage(ctx, cmdCtx)
	}

	args := make([]string, len(cmdCtx.Args))
	for i, a := range cmdCtx.Args {
		args[i] = strings.ToLower(a)
	}

	switch args[0] {
	case "on", "off":
		next := c.holder.Update(func(cfg *rules.Config) {
			cfg.GlobalMute = args[0] == "off"
		})
		c.persist(next)
		if next.GlobalMute {
			return cmdCtx.Reply(ctx, "TTS is off")
		}
		return cmdCtx.Reply(ctx, "TTS is on")

	case "local":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			return c.usage(ctx, cmdCtx)
		}
		next := c.holder.Update(func(cfg *rules.Config) {
			cfg.LocalMute = args[1] == "off"
		})
		c.persist(next)
		if next.LocalMute {
			return cmdCtx.Reply(ctx, "local playback muted, overlay keeps running")
		}
		return cmdCtx.Reply(ctx, "local playback on")

	case "limit":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			return c.usage(ctx, cmdCtx)
		}
		next := c.holder.Update(func(cfg *rules.Config) {
			cfg.LimitAccess = args[1] == "on"
		})
		c.persist(next)
		if next.LimitAccess {
			return cmdCtx.Reply(ctx, "TTS limited to allowed groups")
		}
		return cmdCtx.Reply(ctx, "TTS open to everyone")

	default:
		return c.usage(ctx, cmdCtx)
	}
}

func (c *TTSCommand) persist(cfg *rules.Config) {
	if c.save != nil {
		c.save(cfg)
	}
}

func (c *TTSCommand) usage(ctx context.Context, cmdCtx *Context) error {
	return cmdCtx.Reply(ctx, "Usage: ~tts on|off | ~tts local on|off | ~tts limit on|off")
}
