// Package pipeline is the ingestion path: every inbound chat message
// runs through the rule engine, the access resolver and the voice
// resolver, and only then becomes a queue item. All checks are
// in-memory; this path never waits on synthesis, playback or storage.
package pipeline

import (
	"context"
	"time"

	"chatvoice/internal/app/events"
	"chatvoice/internal/app/speech/runner"
	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
	"chatvoice/internal/usecase/access"
	"chatvoice/internal/usecase/rules"
	"chatvoice/internal/usecase/voice"
)

// Queue is the enqueue side of the dispatcher.
type Queue interface {
	Enqueue(item runner.Item) (string, error)
}

// CommandRouter gets first look at every message; handled commands are
// also rejected by the prefix filter, so routing order does not leak
// command text into speech.
type CommandRouter interface {
	Handle(ctx context.Context, msg domain.Message, out domain.OutgoingMessagePort) (bool, error)
}

type Interactor struct {
	engine  *rules.Engine
	holder  *rules.Holder
	viewers *viewers.Store
	voices  voice.Directory
	queue   Queue
	bus     *events.Bus

	// router and out are optional; without them the pipeline only
	// speaks and never replies.
	router CommandRouter
	out    domain.OutgoingMessagePort

	now func() time.Time
}

type Config struct {
	Engine  *rules.Engine
	Holder  *rules.Holder
	Viewers *viewers.Store
	Voices  voice.Directory
	Queue   Queue
	Bus     *events.Bus
	Router  CommandRouter
	Out     domain.OutgoingMessagePort
}

func NewInteractor(cfg Config) *Interactor {
	return &Interactor{
		engine:  cfg.Engine,
		holder:  cfg.Holder,
		viewers: cfg.Viewers,
		voices:  cfg.Voices,
		queue:   cfg.Queue,
		bus:     cfg.Bus,
		router:  cfg.Router,
		out:     cfg.Out,
		now:     time.Now,
	}
}

// Handle processes one chat message end to end. A rejection at any
// stage is silent toward chat; it only surfaces on the event bus.
func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	uc.publish(events.TopicChatMessage, msg)
	uc.viewers.Observe(msg.UserID, msg.Username)

	if uc.router != nil {
		if handled, err := uc.router.Handle(ctx, msg, uc.out); handled {
			return err
		}
	}

	cfg := uc.holder.Snapshot()
	now := uc.now()

	verdict := uc.engine.Evaluate(msg, cfg, now)
	if !verdict.Admit {
		uc.filtered("rules", verdict.Reason, msg)
		return nil
	}

	restriction := uc.viewers.Restriction(msg.UserID, now)
	grants := uc.viewers.Grants(msg.UserID, now)
	if av := access.Resolve(msg, cfg, restriction, grants, now); !av.Allowed {
		uc.filtered("access", av.Reason, msg)
		return nil
	}

	params, err := voice.Resolve(cfg, uc.viewers.Preference(msg.UserID), uc.voices)
	if err != nil {
		// No enabled provider: the item cannot be spoken at all, but
		// the pipeline itself stays healthy.
		uc.filtered("voice", err.Error(), msg)
		return nil
	}

	_, err = uc.queue.Enqueue(runner.Item{
		UserID:      msg.UserID,
		DisplayName: msg.Display(),
		Text:        verdict.Text,
		Voice:       params,
		Platform:    msg.Platform,
		ChannelID:   msg.ChannelID,
		EnqueuedAt:  now,
	})
	return err
}

func (uc *Interactor) filtered(stage, reason string, msg domain.Message) {
	uc.publish(events.TopicSpeechFiltered, events.SpeechFilteredDTO{
		Reason:     reason,
		Stage:      stage,
		UserID:     msg.UserID,
		Username:   msg.Username,
		Platform:   string(msg.Platform),
		FilteredAt: uc.now().UTC().Format(time.RFC3339Nano),
	})
}

func (uc *Interactor) publish(topic string, payload any) {
	if uc.bus != nil {
		uc.bus.Publish(topic, payload)
	}
}
