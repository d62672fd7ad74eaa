package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/version"
)

// HandleWebSocket upgrades the connection and registers a broadcast
// subscriber. The feed is push-only; the first frame is the server version.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed",
			logger.FieldError, err,
		)
		return
	}

	client := &Client{
		id:     fmt.Sprintf("%s_%d", r.RemoteAddr, time.Now().UnixNano()),
		conn:   conn,
		send:   make(chan []byte, 64),
		server: s,
	}

	go client.writePump()
	go client.readPump()

	info := version.Get()
	client.trySend(VersionMessage{
		Type:      "version",
		Version:   info.Version,
		Commit:    info.CommitHash,
		BuildTime: info.BuildTime,
	})

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		client.close()
	}
}
