// Development helper: runs the twitch authorization-code flow for the
// bot account and stores the resulting tokens in the local database.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nicklaw5/helix/v2"

	"chatvoice/internal/domain"
	sqlitestorage "chatvoice/internal/infrastructure/persistence/sqlite"
)

func main() {
	_ = godotenv.Load()

	clientID := os.Getenv("TWITCH_CLIENT_ID")
	clientSecret := os.Getenv("TWITCH_CLIENT_SECRET")
	redirectURI := os.Getenv("TWITCH_REDIRECT_URI")
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		log.Fatal("TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET and TWITCH_REDIRECT_URI are required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/chatvoice.db"
	}

	store, err := sqlitestorage.NewStore(dbPath)
	if err != nil {
		log.Fatalf("sqlite: %v", err)
	}
	defer store.Close()

	client, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	})
	if err != nil {
		log.Fatalf("helix client: %v", err)
	}

	authURL := client.GetAuthorizationURL(&helix.AuthorizationURLParams{
		ResponseType: "code",
		Scopes:       []string{"chat:read", "chat:edit"},
		State:        "bot",
	})

	http.HandleFunc("/api/oauth/twitch/bot", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, authURL, http.StatusFound)
	})

	http.HandleFunc("/api/oauth/twitch/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		resp, err := client.RequestUserAccessToken(code)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if resp.StatusCode != http.StatusOK {
			http.Error(w, resp.ErrorMessage, resp.StatusCode)
			return
		}

		cred := &domain.Credential{
			Platform:     domain.PlatformTwitch,
			Role:         "bot",
			AccessToken:  resp.Data.AccessToken,
			RefreshToken: resp.Data.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(resp.Data.ExpiresIn) * time.Second),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := store.SaveCredential(ctx, cred); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		fmt.Fprintln(w, "tokens stored, you can close this tab")
		log.Println("bot tokens stored")
	})

	log.Println("twitch oauth helper ready")
	log.Println("open: http://localhost:3000/api/oauth/twitch/bot")

	if err := http.ListenAndServe(":3000", nil); err != nil {
		log.Fatalf("server: %v", err)
	}
}
