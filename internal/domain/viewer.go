package domain

import "time"

// ViewerRestriction holds the mute/cooldown state of one viewer. A nil
// expiry means the restriction is permanent; an expiry in the past
// means it is inactive even if nobody deleted the record (lazy expiry).
type ViewerRestriction struct {
	UserID            string
	Muted             bool
	MuteExpiresAt     *time.Time
	CooldownGap       time.Duration
	CooldownExpiresAt *time.Time
	LastSpokenAt      *time.Time
}

// MuteActive reports whether the mute applies at now.
func (r ViewerRestriction) MuteActive(now time.Time) bool {
	if !r.Muted {
		return false
	}
	return r.MuteExpiresAt == nil || r.MuteExpiresAt.After(now)
}

// CooldownActive reports whether the viewer is still inside the
// cooldown gap after their last spoken message.
func (r ViewerRestriction) CooldownActive(now time.Time) bool {
	if r.CooldownGap <= 0 {
		return false
	}
	if r.CooldownExpiresAt != nil && !r.CooldownExpiresAt.After(now) {
		return false
	}
	if r.LastSpokenAt == nil {
		return false
	}
	return now.Sub(*r.LastSpokenAt) < r.CooldownGap
}

type GrantSource string

const (
	GrantSubscriber GrantSource = "subscriber"
	GrantVip        GrantSource = "vip"
	GrantModerator  GrantSource = "moderator"
	GrantRedeem     GrantSource = "redeem"
)

// AccessGrant is a time-bounded eligibility record. Several grants may
// coexist for one viewer; any valid one is enough.
type AccessGrant struct {
	UserID    string
	Source    GrantSource
	ExpiresAt *time.Time
}

func (g AccessGrant) Valid(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
