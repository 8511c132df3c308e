package commands

import (
	"context"
	"strings"

	"chatvoice/internal/domain"
)

type Router struct {
	prefix   string
	cmdIndex map[string]Command
}

func NewRouter(prefix string) *Router {
	return &Router{
		prefix:   prefix,
		cmdIndex: make(map[string]Command),
	}
}

func (r *Router) Register(cmd Command) {
	r.cmdIndex[strings.ToLower(cmd.Name())] = cmd
	for _, alias := range cmd.Aliases() {
		r.cmdIndex[strings.ToLower(alias)] = cmd
	}
}

// Handle dispatches a prefixed message to its command. The first
// return value reports whether the message was a command at all, so
// the caller can stop treating it as speakable text.
func (r *Router) Handle(ctx context.Context, msg domain.Message, out domain.OutgoingMessagePort) (bool, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || !strings.HasPrefix(text, r.prefix) {
		return false, nil
	}

	withoutPrefix := strings.TrimPrefix(text, r.prefix)
	parts := strings.Fields(withoutPrefix)
	if len(parts) == 0 {
		return false, nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.cmdIndex[cmdName]
	if !ok {
		// Unknown command: swallow it silently, the prefix filter
		// keeps it out of the speech queue anyway.
		return true, nil
	}

	if !cmd.SupportsPlatform(msg.Platform) {
		return true, nil
	}

	ctxCmd := &Context{
		Message: msg,
		Out:     out,
		Raw:     withoutPrefix,
		Args:    args,
	}

	return true, cmd.Handle(ctx, ctxCmd)
}
