package events

import "time"

// SpeechStatusDTO mirrors the dispatcher state for UIs and overlays.
type SpeechStatusDTO struct {
	State       string `json:"state"` // idle | synthesizing | playing | stopped
	QueueLength int    `json:"queue_length"`
	CurrentID   string `json:"current_id,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

func NewSpeechStatusDTO(state string, queueLength int, currentID, lastError string) SpeechStatusDTO {
	return SpeechStatusDTO{
		State:       state,
		QueueLength: queueLength,
		CurrentID:   currentID,
		LastError:   lastError,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// SpeechSpokenDTO reports one finished item, successful or abandoned.
type SpeechSpokenDTO struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Text        string `json:"text,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Voice       string `json:"voice,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	FinishedAt  string `json:"finished_at"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// SpeechDroppedDTO reports a capacity drop. It is an observable event,
// not an error: the dropped item's sender did nothing wrong.
type SpeechDroppedDTO struct {
	ID          string `json:"id"`
	Text        string `json:"text,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	QueueLength int    `json:"queue_length"`
	DroppedAt   string `json:"dropped_at"`
}

// SpeechFilteredDTO reports a rule or access rejection.
type SpeechFilteredDTO struct {
	Reason     string `json:"reason"`
	Stage      string `json:"stage"` // rules | access | voice
	UserID     string `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Platform   string `json:"platform,omitempty"`
	FilteredAt string `json:"filtered_at"`
}
