// Package tts holds the speech-synthesis vendor adapters. Each one
// hides its auth and wire format behind domain.Synthesizer; the
// pipeline only ever sees provider ids and voice ids.
package tts

import (
	"sort"

	"chatvoice/internal/domain"
)

// VoiceLister is implemented by providers that can enumerate their
// voices. Providers without it accept any voice id.
type VoiceLister interface {
	Voices() []string
}

// Registry indexes the configured providers and names the baseline
// fallback.
type Registry struct {
	providers map[string]domain.Synthesizer
	baseline  string
}

func NewRegistry(baseline string, providers ...domain.Synthesizer) *Registry {
	r := &Registry{
		providers: make(map[string]domain.Synthesizer),
		baseline:  baseline,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.ID()] = p
		}
	}
	return r
}

func (r *Registry) Get(id string) (domain.Synthesizer, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Baseline returns the always-available fallback provider.
func (r *Registry) Baseline() domain.Synthesizer {
	return r.providers[r.baseline]
}

func (r *Registry) BaselineID() string {
	return r.baseline
}

func (r *Registry) HasProvider(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// HasVoice reports whether the provider knows the voice. An empty
// voice id means "provider default" and is always fine.
func (r *Registry) HasVoice(providerID, voiceID string) bool {
	p, ok := r.providers[providerID]
	if !ok {
		return false
	}
	if voiceID == "" {
		return true
	}
	lister, ok := p.(VoiceLister)
	if !ok {
		return true
	}
	for _, v := range lister.Voices() {
		if v == voiceID {
			return true
		}
	}
	return false
}

func (r *Registry) ProviderIDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Voices(providerID string) []string {
	p, ok := r.providers[providerID]
	if !ok {
		return nil
	}
	if lister, ok := p.(VoiceLister); ok {
		return lister.Voices()
	}
	return nil
}
