package domain

// VoiceParams is the resolved tuple handed to a synthesizer. Pitch 0,
// speed 1 and volume 1 are the neutral values.
type VoiceParams struct {
	ProviderID string
	VoiceID    string
	Pitch      float64
	Speed      float64
	Volume     float64
}

// NeutralParams builds params with neutral pitch/speed/volume.
func NeutralParams(providerID, voiceID string) VoiceParams {
	return VoiceParams{
		ProviderID: providerID,
		VoiceID:    voiceID,
		Pitch:      0,
		Speed:      1.0,
		Volume:     1.0,
	}
}

// VoicePreference is a viewer's stored voice override. At most one per
// viewer; the latest write wins.
type VoicePreference struct {
	UserID     string
	ProviderID string
	VoiceID    string
	Pitch      float64
	Speed      float64
	Volume     float64
}

// Params converts the stored preference into synthesizer params,
// filling unset speed/volume with neutral values.
func (p VoicePreference) Params() VoiceParams {
	params := VoiceParams{
		ProviderID: p.ProviderID,
		VoiceID:    p.VoiceID,
		Pitch:      p.Pitch,
		Speed:      p.Speed,
		Volume:     p.Volume,
	}
	if params.Speed == 0 {
		params.Speed = 1.0
	}
	if params.Volume == 0 {
		params.Volume = 1.0
	}
	return params
}
