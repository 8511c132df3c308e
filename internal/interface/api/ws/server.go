// Package ws serves the OBS overlay feed: every speech event published
// on the bus is re-broadcast as JSON to the connected websocket
// clients. The overlay renders captions and, when local playback is
// muted, plays the base64 audio itself.
package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatvoice/internal/app/events"
)

type Config struct {
	Addr string
	Bus  *events.Bus
}

type Server struct {
	addr     string
	bus      *events.Bus
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	httpSrv *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type envelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

func NewServer(cfg Config) *Server {
	return &Server{
		addr: cfg.Addr,
		bus:  cfg.Bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Start serves the overlay endpoint and blocks until the context is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/overlay", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})

	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	for _, topic := range []string{
		events.TopicSpeechSpoken,
		events.TopicSpeechStatus,
		events.TopicSpeechDropped,
	} {
		go s.forward(ctx, topic)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	log.Printf("ws: overlay listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// forward pumps one bus topic to every connected client.
func (s *Server) forward(ctx context.Context, topic string) {
	ch, unsubscribe := s.bus.Subscribe(topic)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(envelope{Topic: topic, Payload: payload})
		}
	}
}

func (s *Server) broadcast(msg envelope) {
	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			s.drop(c)
		}
	}
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	// Drain reads so pings are answered; the overlay never sends
	// anything we care about.
	go func() {
		defer s.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

func (s *Server) drop(c *wsClient) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.conn.Close()
	}
	s.mu.Unlock()
}
