package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shaunagostinho/busdash/internal/config"
	"github.com/shaunagostinho/busdash/internal/render"
	"github.com/shaunagostinho/busdash/internal/routes"
)

// Server serves the browser view and broadcasts every rendered frame to
// WebSocket clients.
type Server struct {
	addr    string
	cfg     *config.Config
	filter  *routes.Filter
	webFS   fs.FS
	metrics http.Handler

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	lastMu sync.Mutex
	last   []byte // most recent frame, sent to new clients
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	View  render.View `json:"view"`
	Stamp int64       `json:"stamp"` // Unix ms
}

// Options configures a Server. Metrics may be nil.
type Options struct {
	Addr    string
	Config  *config.Config
	Filter  *routes.Filter
	WebFS   fs.FS
	Metrics http.Handler
}

// New creates a new Server.
func New(opts Options) *Server {
	return &Server{
		addr:    opts.Addr,
		cfg:     opts.Config,
		filter:  opts.Filter,
		webFS:   opts.WebFS,
		metrics: opts.Metrics,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/routes", s.handleRoutes)
	mux.HandleFunc("/api/config", s.handleConfig)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		s.closeClients()
	}()

	log.Printf("[server] listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("[server] stopped")
	return nil
}

// Publish broadcasts a rendered view.
func (s *Server) Publish(v render.View) {
	data, err := json.Marshal(Frame{View: v, Stamp: time.Now().UnixMilli()})
	if err != nil {
		log.Printf("[server] marshal frame: %v", err)
		return
	}

	s.lastMu.Lock()
	s.last = data
	s.lastMu.Unlock()

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}

	// Queue the latest frame before registering so it arrives first.
	s.lastMu.Lock()
	if s.last != nil {
		client.send <- s.last
	}
	s.lastMu.Unlock()

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[ws] client connected (%d total)", n)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (handle incoming messages / keep-alive)
	go func() {
		defer s.removeClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[ws] client disconnected (%d total)", n)
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

type routesBody struct {
	Routes  []string `json:"routes"`
	Version uint64   `json:"version"`
}

// handleRoutes reports the active routes on GET and replaces them on POST.
// A POST body is parsed exactly like a line typed at the prompt. With
// ?save=1 the new routes are also written to the config file.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sel := s.filter.Snapshot()
		writeJSON(w, http.StatusOK, routesBody{Routes: sel.Routes, Version: sel.Version})

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		text := strings.TrimSpace(string(body))
		if routes.IsExit(text) {
			http.Error(w, "exit is only accepted at the terminal", http.StatusBadRequest)
			return
		}
		parsed, err := routes.Parse(text)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.filter.Replace(parsed)
		log.Printf("[server] routes set to %v", parsed)
		if s.cfg != nil && config.ParseBool(r.URL.Query().Get("save")) {
			s.cfg.SetRoutes(parsed)
			if err := s.cfg.Save(); err != nil {
				http.Error(w, "routes applied but not saved: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}
		sel := s.filter.Snapshot()
		writeJSON(w, http.StatusOK, routesBody{Routes: sel.Routes, Version: sel.Version})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg == nil {
		http.Error(w, "no config", http.StatusNotFound)
		return
	}
	data, err := s.cfg.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}
