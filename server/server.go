// Package server is the operator surface of the colorizer daemon: a small
// REST API for queue, gallery, journal and settings operations, plus a
// WebSocket feed broadcasting queue snapshots. It is transport only; all
// domain behavior lives in the packages it fronts.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/katje/colorizer/gallery"
	"github.com/katje/colorizer/gemini"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/queue"
	"github.com/katje/colorizer/sym"
)

// MaxClients bounds concurrent WebSocket connections.
const MaxClients = 32

// Options wires the server to the daemon's components.
type Options struct {
	Queue   *queue.Queue
	Gallery *gallery.Gallery
	Journal *journal.Journal

	// Settings snapshots the current generation settings; SaveSettings
	// persists a replacement record. Both are required.
	Settings     func() gemini.Settings
	SaveSettings func(gemini.Settings) error

	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// Server hosts the HTTP/WebSocket operator surface.
type Server struct {
	queue    *queue.Queue
	gallery  *gallery.Gallery
	journal  *journal.Journal
	settings func() gemini.Settings
	save     func(gemini.Settings) error

	allowedOrigins []string

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	mux        *http.ServeMux
	httpServer *http.Server

	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a server. Call Start to begin broadcasting and ListenAndServe
// to serve traffic.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		queue:          opts.Queue,
		gallery:        opts.Gallery,
		journal:        opts.Journal,
		settings:       opts.Settings,
		save:           opts.SaveSettings,
		allowedOrigins: opts.AllowedOrigins,
		clients:        make(map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		mux:            http.NewServeMux(),
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
	}
	s.setupRoutes()
	return s
}

// Start launches the client-management loop and the queue broadcast feed.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.run()

	s.logger.Infow(sym.Open + " Operator surface starting")
}

// run owns the client set. All register/unregister traffic and queue
// updates funnel through here.
func (s *Server) run() {
	defer s.wg.Done()

	updates := s.queue.Subscribe()
	defer func() {
		s.queue.Unsubscribe(updates)
		close(updates)
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.closeAllClients()
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case <-updates:
			s.broadcastQueueUpdate()
		}
	}
}

func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			logger.FieldClientID, client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		logger.FieldClientID, client.id,
		"total_clients", total,
	)

	// A fresh client gets the current state immediately.
	client.trySend(s.queueUpdateMessage())
	client.trySend(RecentErrorsMessage{Type: "recent_errors", Errors: s.journal.RecentErrors()})
}

func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
	}
	total := len(s.clients)
	s.mu.Unlock()

	client.close()

	s.logger.Infow("Client disconnected",
		logger.FieldClientID, client.id,
		"total_clients", total,
	)
}

func (s *Server) closeAllClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]bool)
}

// ListenAndServe blocks serving HTTP on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Infow("Listening",
		logger.FieldAddress, addr,
	)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler exposes the route table (tests use this with httptest).
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Shutdown stops broadcasting, disconnects clients, and drains the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.wg.Wait()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.logger.Infow(sym.Close + " Operator surface stopped")
	return err
}
