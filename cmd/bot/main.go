package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatvoice/internal/app/events"
	"chatvoice/internal/app/speech/runner"
	"chatvoice/internal/app/viewers"
	"chatvoice/internal/domain"
	"chatvoice/internal/infrastructure/audio"
	"chatvoice/internal/infrastructure/config"
	sqlitestorage "chatvoice/internal/infrastructure/persistence/sqlite"
	"chatvoice/internal/infrastructure/tts"
	kickadapter "chatvoice/internal/interface/adapters/kick"
	twitchadapter "chatvoice/internal/interface/adapters/twitch"
	"chatvoice/internal/interface/api/ws"
	"chatvoice/internal/interface/outs"
	"chatvoice/internal/usecase/commands"
	"chatvoice/internal/usecase/pipeline"
	"chatvoice/internal/usecase/rules"
)

const ruleSettingsKey = "rules:config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := sqlitestorage.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("sqlite: %v", err)
	}
	defer store.Close()

	holder := rules.NewHolder(loadRuleConfig(ctx, store))

	viewerStore := viewers.NewStore(store)
	if err := viewerStore.Load(ctx); err != nil {
		log.Printf("warning: loading viewer state: %v", err)
	}

	providers := []domain.Synthesizer{
		tts.NewGoogleProvider(),
		tts.NewStreamElementsProvider(),
	}
	if cfg.ElevenLabsAPIKey != "" {
		providers = append(providers, tts.NewElevenLabsProvider(cfg.ElevenLabsAPIKey))
	}
	if cfg.CartesiaAPIKey != "" {
		providers = append(providers, tts.NewCartesiaProvider(cfg.CartesiaAPIKey))
	}
	registry := tts.NewRegistry(tts.GoogleID, providers...)

	bus := events.NewBus()

	speechRunner := runner.New(runner.Config{
		Providers: registry,
		Sink:      audio.NewPlayer(),
		Bus:       bus,
		Rules:     holder,
		Viewers:   viewerStore,
	})
	speechRunner.Start(ctx)
	defer speechRunner.Close()

	saveRules := func(next *rules.Config) {
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			raw, err := json.Marshal(next)
			if err != nil {
				log.Printf("warning: encoding rule settings: %v", err)
				return
			}
			if err := store.SaveSetting(saveCtx, ruleSettingsKey, string(raw)); err != nil {
				log.Printf("warning: saving rule settings: %v", err)
			}
		}()
	}

	multiOut := outs.NewMultiSender()

	router := commands.NewRouter(holder.Snapshot().CommandPrefix)
	router.Register(commands.NewPingCommand())
	router.Register(commands.NewMuteCommand(viewerStore))
	router.Register(commands.NewCooldownCommand(viewerStore))
	router.Register(commands.NewGrantCommand(viewerStore))
	router.Register(commands.NewVoiceCommand(viewerStore, registry))
	router.Register(commands.NewTTSCommand(holder, saveRules))
	router.Register(commands.NewSayCommand(speechRunner, func() domain.VoiceParams {
		snapshot := holder.Snapshot()
		return domain.NeutralParams(snapshot.DefaultProviderID, snapshot.DefaultVoiceID)
	}))

	ingest := pipeline.NewInteractor(pipeline.Config{
		Engine:  rules.NewEngine(rules.NewTracker(0)),
		Holder:  holder,
		Viewers: viewerStore,
		Voices:  registry,
		Queue:   speechRunner,
		Bus:     bus,
		Router:  router,
		Out:     multiOut,
	})

	twitchAd := twitchadapter.NewAdapter(twitchadapter.Config{
		Username:   cfg.TwitchUsername,
		OAuthToken: cfg.TwitchToken,
		Channels:   cfg.TwitchChannels,
	})
	twitchAd.SetHandler(ingest.Handle)
	multiOut.Register(domain.PlatformTwitch, twitchAd)

	go func() {
		if err := twitchAd.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("twitch adapter: %v", err)
		}
	}()

	if cfg.KickToken != "" && cfg.KickChatroomID != 0 {
		kickAd := kickadapter.NewAdapter(kickadapter.Config{
			AccessToken:       cfg.KickToken,
			BroadcasterUserID: cfg.KickBroadcasterUserID,
			ChatroomID:        cfg.KickChatroomID,
		})
		kickAd.SetHandler(ingest.Handle)
		multiOut.Register(domain.PlatformKick, kickAd)

		go func() {
			if err := kickAd.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("kick adapter: %v", err)
			}
		}()
	}

	overlay := ws.NewServer(ws.Config{Addr: cfg.OverlayAddr, Bus: bus})
	go func() {
		if err := overlay.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("overlay server: %v", err)
		}
	}()

	log.Println("chatvoice running")

	<-ctx.Done()

	log.Println("chatvoice stopped")
}

// loadRuleConfig restores the persisted settings snapshot, falling
// back to defaults on first run or decode trouble.
func loadRuleConfig(ctx context.Context, store *sqlitestorage.Store) *rules.Config {
	raw, err := store.LoadSetting(ctx, ruleSettingsKey)
	if err != nil {
		log.Printf("warning: loading rule settings: %v", err)
		return rules.Default()
	}
	if raw == "" {
		return rules.Default()
	}

	cfg := rules.Default()
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		log.Printf("warning: decoding rule settings: %v", err)
		return rules.Default()
	}
	return cfg
}
