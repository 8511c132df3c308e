package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TwitchUsername     string
	TwitchToken        string
	TwitchChannels     []string
	TwitchClientId     string
	TwitchClientSecret string
	TwitchRedirectURI  string

	KickToken             string
	KickBroadcasterUserID int
	KickChatroomID        int

	ElevenLabsAPIKey string
	CartesiaAPIKey   string

	DatabasePath string
	OverlayAddr  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TwitchUsername:     os.Getenv("TWITCH_BOT_USERNAME"),
		TwitchToken:        os.Getenv("TWITCH_BOT_ACCESS_TOKEN"),
		TwitchChannels:     splitList(os.Getenv("TWITCH_BOT_CHANNELS")),
		TwitchClientId:     os.Getenv("TWITCH_CLIENT_ID"),
		TwitchClientSecret: os.Getenv("TWITCH_CLIENT_SECRET"),
		TwitchRedirectURI:  os.Getenv("TWITCH_REDIRECT_URI"),

		KickToken:             os.Getenv("KICK_BOT_TOKEN"),
		KickBroadcasterUserID: envInt("KICK_BROADCASTER_USER_ID"),
		KickChatroomID:        envInt("KICK_CHATROOM_ID"),

		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		CartesiaAPIKey:   os.Getenv("CARTESIA_API_KEY"),

		DatabasePath: os.Getenv("DATABASE_PATH"),
		OverlayAddr:  os.Getenv("OVERLAY_ADDR"),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/chatvoice.db"
	}
	if cfg.OverlayAddr == "" {
		cfg.OverlayAddr = ":8791"
	}

	if cfg.TwitchUsername == "" || cfg.TwitchToken == "" {
		log.Println("warning: twitch bot credentials are not configured")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("warning: %s is not a number: %q", key, raw)
		return 0
	}
	return n
}
