package access

import (
	"testing"
	"time"

	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

func testMessage() domain.Message {
	return domain.Message{
		Platform: domain.PlatformTwitch,
		UserID:   "100",
		Username: "viewer",
	}
}

func TestResolveGlobalMute(t *testing.T) {
	cfg := rules.Default()
	cfg.GlobalMute = true

	v := Resolve(testMessage(), cfg, domain.ViewerRestriction{}, nil, time.Now())
	if v.Allowed || v.Reason != ReasonGlobalMute {
		t.Fatalf("expected global mute rejection, got %+v", v)
	}
}

func TestResolveMute(t *testing.T) {
	cfg := rules.Default()
	now := time.Now()

	t.Run("permanent", func(t *testing.T) {
		r := domain.ViewerRestriction{UserID: "100", Muted: true}
		if v := Resolve(testMessage(), cfg, r, nil, now); v.Allowed || v.Reason != ReasonMuted {
			t.Fatalf("expected mute rejection, got %+v", v)
		}
	})

	t.Run("active timed", func(t *testing.T) {
		expires := now.Add(time.Minute)
		r := domain.ViewerRestriction{UserID: "100", Muted: true, MuteExpiresAt: &expires}
		if v := Resolve(testMessage(), cfg, r, nil, now); v.Allowed {
			t.Fatalf("expected mute rejection, got %+v", v)
		}
	})

	t.Run("lazy expired", func(t *testing.T) {
		expires := now.Add(-time.Second)
		r := domain.ViewerRestriction{UserID: "100", Muted: true, MuteExpiresAt: &expires}
		if v := Resolve(testMessage(), cfg, r, nil, now); !v.Allowed {
			t.Fatalf("expired mute still rejecting: %+v", v)
		}
	})
}

func TestResolveCooldown(t *testing.T) {
	cfg := rules.Default()
	base := time.Now()
	spoken := base

	r := domain.ViewerRestriction{
		UserID:       "100",
		CooldownGap:  10 * time.Second,
		LastSpokenAt: &spoken,
	}

	if v := Resolve(testMessage(), cfg, r, nil, base.Add(5*time.Second)); v.Allowed || v.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown rejection at +5s, got %+v", v)
	}

	if v := Resolve(testMessage(), cfg, r, nil, base.Add(11*time.Second)); !v.Allowed {
		t.Fatalf("expected admit at +11s, got %+v", v)
	}
}

func TestResolveCooldownExpiry(t *testing.T) {
	cfg := rules.Default()
	base := time.Now()
	spoken := base
	expired := base.Add(-time.Minute)

	r := domain.ViewerRestriction{
		UserID:            "100",
		CooldownGap:       10 * time.Second,
		CooldownExpiresAt: &expired,
		LastSpokenAt:      &spoken,
	}

	if v := Resolve(testMessage(), cfg, r, nil, base.Add(time.Second)); !v.Allowed {
		t.Fatalf("expired cooldown still rejecting: %+v", v)
	}
}

func TestResolveMuteBeatsCooldown(t *testing.T) {
	cfg := rules.Default()
	base := time.Now()
	spoken := base

	r := domain.ViewerRestriction{
		UserID:       "100",
		Muted:        true,
		CooldownGap:  10 * time.Second,
		LastSpokenAt: &spoken,
	}

	if v := Resolve(testMessage(), cfg, r, nil, base.Add(time.Second)); v.Reason != ReasonMuted {
		t.Fatalf("expected mute to win over cooldown, got %+v", v)
	}
}

func TestResolveAccessLimit(t *testing.T) {
	now := time.Now()

	cfg := rules.Default()
	cfg.LimitAccess = true
	cfg.Groups = map[domain.GrantSource]bool{domain.GrantSubscriber: true}

	plain := testMessage()
	if v := Resolve(plain, cfg, domain.ViewerRestriction{}, nil, now); v.Allowed || v.Reason != ReasonNoAccess {
		t.Fatalf("expected no-access rejection, got %+v", v)
	}

	sub := testMessage()
	sub.IsSubscriber = true
	if v := Resolve(sub, cfg, domain.ViewerRestriction{}, nil, now); !v.Allowed {
		t.Fatalf("subscriber rejected: %+v", v)
	}

	// Moderator flag does not help while only subscribers are enabled.
	mod := testMessage()
	mod.IsModerator = true
	if v := Resolve(mod, cfg, domain.ViewerRestriction{}, nil, now); v.Allowed {
		t.Fatalf("moderator admitted with only subscribers enabled: %+v", v)
	}

	cfg.LimitAccess = false
	if v := Resolve(plain, cfg, domain.ViewerRestriction{}, nil, now); !v.Allowed {
		t.Fatalf("toggle off still rejecting: %+v", v)
	}
}

func TestResolveGrants(t *testing.T) {
	now := time.Now()

	cfg := rules.Default()
	cfg.LimitAccess = true
	cfg.Groups = map[domain.GrantSource]bool{domain.GrantRedeem: true}

	expired := now.Add(-time.Minute)
	valid := now.Add(time.Minute)

	cases := []struct {
		name    string
		grants  []domain.AccessGrant
		allowed bool
	}{
		{"no grants", nil, false},
		{"expired redeem", []domain.AccessGrant{{UserID: "100", Source: domain.GrantRedeem, ExpiresAt: &expired}}, false},
		{"valid redeem", []domain.AccessGrant{{UserID: "100", Source: domain.GrantRedeem, ExpiresAt: &valid}}, true},
		{"permanent redeem", []domain.AccessGrant{{UserID: "100", Source: domain.GrantRedeem}}, true},
		{"wrong source", []domain.AccessGrant{{UserID: "100", Source: domain.GrantVip}}, false},
		{"any valid among several", []domain.AccessGrant{
			{UserID: "100", Source: domain.GrantVip},
			{UserID: "100", Source: domain.GrantRedeem, ExpiresAt: &valid},
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Resolve(testMessage(), cfg, domain.ViewerRestriction{}, tc.grants, now)
			if v.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tc.allowed, v)
			}
		})
	}
}
