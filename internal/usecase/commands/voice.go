package commands

import (
	"context"
	"fmt"
	"strings"

	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
)

// VoiceDirectory is the subset of the provider registry the voice
// command needs for validation and listing.
type VoiceDirectory interface {
	HasProvider(id string) bool
	HasVoice(providerID, voiceID string) bool
	ProviderIDs() []string
	Voices(providerID string) []string
}

// VoiceCommand lets a viewer pick their own voice:
// "~voice google:es", "~voice list", "~voice list google".
type VoiceCommand struct {
	viewers *viewers.Store
	dir     VoiceDirectory
}

func NewVoiceCommand(store *viewers.Store, dir VoiceDirectory) *VoiceCommand {
	return &VoiceCommand{viewers: store, dir: dir}
}

func (c *VoiceCommand) Name() string {
	return "voice"
}

func (c *VoiceCommand) Aliases() []string {
	return []string{}
}

func (c *VoiceCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *VoiceCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if len(cmdCtx.Args) == 0 {
		return c.usage(ctx, cmdCtx)
	}

	first := strings.ToLower(strings.TrimSpace(cmdCtx.Args[0]))

	if first == "list" {
		if len(cmdCtx.Args) > 1 {
			return c.listVoices(ctx, cmdCtx, strings.ToLower(cmdCtx.Args[1]))
		}
		return cmdCtx.Reply(ctx, "Providers: "+strings.Join(c.dir.ProviderIDs(), ", "))
	}

	providerID, voiceID, ok := strings.Cut(first, ":")
	if !ok {
		return c.usage(ctx, cmdCtx)
	}

	if !c.dir.HasProvider(providerID) || !c.dir.HasVoice(providerID, voiceID) {
		return cmdCtx.Reply(ctx, fmt.Sprintf("unknown voice %s:%s, try ~voice list", providerID, voiceID))
	}

	c.viewers.SetPreference(domain.VoicePreference{
		UserID:     cmdCtx.Message.UserID,
		ProviderID: providerID,
		VoiceID:    voiceID,
	})
	return cmdCtx.Reply(ctx, fmt.Sprintf("@%s your voice is now %s:%s", cmdCtx.Message.Display(), providerID, voiceID))
}

func (c *VoiceCommand) listVoices(ctx context.Context, cmdCtx *Context, providerID string) error {
	if !c.dir.HasProvider(providerID) {
		return cmdCtx.Reply(ctx, "unknown provider "+providerID)
	}
	voices := c.dir.Voices(providerID)
	if len(voices) > 20 {
		voices = voices[:20]
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("%s voices: %s", providerID, strings.Join(voices, ", ")))
}

func (c *VoiceCommand) usage(ctx context.Context, cmdCtx *Context) error {
	return cmdCtx.Reply(ctx, "Usage: ~voice <provider>:<voice> | ~voice list [provider]")
}
