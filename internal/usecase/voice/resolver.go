// Package voice picks the effective synthesis parameters for a viewer:
// stored override when its provider is still usable, otherwise the
// global default, otherwise an error the dispatcher treats as fatal
// for the item.
package voice

import (
	"errors"

	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/rules"
)

// ErrNoProvider means no enabled provider could serve the item.
var ErrNoProvider = errors.New("voice: no enabled provider")

// Directory exposes what the provider registry actually has loaded.
type Directory interface {
	HasProvider(id string) bool
	HasVoice(providerID, voiceID string) bool
	BaselineID() string
}

// Resolve walks the fallback chain and returns the params to speak
// with.
func Resolve(cfg *rules.Config, pref *domain.VoicePreference, dir Directory) (domain.VoiceParams, error) {
	usable := func(providerID string) bool {
		return providerID != "" && dir.HasProvider(providerID) && cfg.ProviderEnabled(providerID)
	}

	if pref != nil && usable(pref.ProviderID) && dir.HasVoice(pref.ProviderID, pref.VoiceID) {
		return pref.Params(), nil
	}

	if usable(cfg.DefaultProviderID) {
		return domain.NeutralParams(cfg.DefaultProviderID, cfg.DefaultVoiceID), nil
	}

	// Last resort before giving up: the baseline provider with its own
	// default voice.
	if baseline := dir.BaselineID(); usable(baseline) {
		return domain.NeutralParams(baseline, ""), nil
	}

	return domain.VoiceParams{}, ErrNoProvider
}
