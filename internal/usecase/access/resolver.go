// Package access decides whether an already-admitted message may be
// spoken for its sender: global mute, per-viewer mute, cooldown and
// the access-limit toggle, in that order. Mute beats cooldown.
package access

import (
	"time"

	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

const (
	ReasonGlobalMute = "global-muted"
	ReasonMuted      = "muted"
	ReasonCooldown   = "cooldown"
	ReasonNoAccess   = "no-access"
)

type Verdict struct {
	Allowed bool
	Reason  string
}

func denied(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Resolve gates a message on the sender's current restrictions and
// grants. It never mutates anything; expired records count as absent.
func Resolve(msg domain.Message, cfg *rules.Config, restriction domain.ViewerRestriction, grants []domain.AccessGrant, now time.Time) Verdict {
	if cfg.GlobalMute {
		return denied(ReasonGlobalMute)
	}

	if restriction.MuteActive(now) {
		return denied(ReasonMuted)
	}

	if restriction.CooldownActive(now) {
		return denied(ReasonCooldown)
	}

	if cfg.LimitAccess && !eligible(msg, cfg, grants, now) {
		return denied(ReasonNoAccess)
	}

	return Verdict{Allowed: true}
}

// eligible checks role flags from the platform first, then stored
// grants. Any single match is enough.
func eligible(msg domain.Message, cfg *rules.Config, grants []domain.AccessGrant, now time.Time) bool {
	if cfg.GroupEnabled(domain.GrantModerator) && (msg.IsModerator || msg.IsBroadcaster) {
		return true
	}
	if cfg.GroupEnabled(domain.GrantVip) && msg.IsVip {
		return true
	}
	if cfg.GroupEnabled(domain.GrantSubscriber) && msg.IsSubscriber {
		return true
	}

	for _, grant := range grants {
		if grant.Valid(now) && cfg.GroupEnabled(grant.Source) {
			return true
		}
	}
	return false
}
