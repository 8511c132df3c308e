package domain

import (
	"context"
	"time"
)

// OutgoingMessagePort sends replies back to a chat platform.
type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, platform Platform, channelID, text string) error
}

// Synthesizer turns text into audio bytes. Every vendor adapter hides
// its own auth and wire format behind this; any error counts as a
// provider failure to the dispatcher.
type Synthesizer interface {
	ID() string
	Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error)
}

// AudioSink plays one utterance and returns when playback finished.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

// ViewerRepository persists per-viewer state. Writes are fire-and-
// forget for the pipeline: callers log failures and move on.
type ViewerRepository interface {
	SaveRestriction(ctx context.Context, r ViewerRestriction) error
	DeleteRestriction(ctx context.Context, userID string) error
	SaveGrant(ctx context.Context, g AccessGrant) error
	DeleteGrants(ctx context.Context, userID string) error
	SavePreference(ctx context.Context, p VoicePreference) error
	Restrictions(ctx context.Context) ([]ViewerRestriction, error)
	Grants(ctx context.Context) ([]AccessGrant, error)
	Preferences(ctx context.Context) ([]VoicePreference, error)
}

// SettingsRepository stores the serialized rule settings snapshot.
type SettingsRepository interface {
	SaveSetting(ctx context.Context, key, value string) error
	LoadSetting(ctx context.Context, key string) (string, error)
}

// Credential is an OAuth token pair for one platform role.
type Credential struct {
	Platform     Platform
	Role         string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// CredentialRepository stores platform credentials for the bootstrap
// tooling.
type CredentialRepository interface {
	SaveCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, platform Platform, role string) (*Credential, error)
}
