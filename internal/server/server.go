// Package server publishes game events to WebSocket observers and loads
// the fairpoker configuration file.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/fairpoker/internal/game"
)

// Server is the event feed. It subscribes to engine event buses and fans
// each event out to connected clients.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	logger     *log.Logger
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server
}

// NewServer creates a feed and starts its client registry.
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Observers are read-only, any origin may watch.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.WithPrefix("server"),
		ctx:        ctx,
		cancel:     cancel,
	}
	go s.run()
	return s
}

// Handler serves /events and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens on the configured address until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting event feed", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every client and the listener.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Clients returns how many observers are connected.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) run() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.clients[c] = true
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Info("Observer connected", "game", c.game, "total", total)

		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				c.close()
			}
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Info("Observer disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// OnEvent implements game.EventSubscriber.
func (s *Server) OnEvent(ev game.GameEvent) {
	env, err := NewEnvelope(ev)
	if err != nil {
		s.logger.Error("Dropping event", "type", ev.EventType(), "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("Dropping event", "type", ev.EventType(), "error", err)
		return
	}

	var slow []*client
	s.mu.RLock()
	for c := range s.clients {
		if c.game != 0 && c.game != env.GameID {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		s.logger.Warn("Disconnecting slow observer", "game", c.game)
		s.drop(c)
	}
}

func (s *Server) drop(c *client) {
	go func() {
		select {
		case s.unregister <- c:
		case <-s.ctx.Done():
		}
	}()
}

// handleEvents upgrades an observer. ?game=N limits the stream to one game.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var gameID uint64
	if q := r.URL.Query().Get("game"); q != "" {
		id, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid game %q", q), http.StatusBadRequest)
			return
		}
		gameID = id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn, gameID, s.logger)
	select {
	case s.register <- c:
	case <-s.ctx.Done():
		_ = conn.Close()
		return
	}
	go c.writePump()
	go func() {
		c.readPump()
		s.drop(c)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}
