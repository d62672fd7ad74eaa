package server

import (
	"encoding/json"
	"time"

	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/queue"
)

// queueUpdateMessage snapshots the queue for broadcast and fresh clients.
func (s *Server) queueUpdateMessage() QueueUpdateMessage {
	jobs := s.queue.Jobs()
	views := make([]JobView, 0, len(jobs))

	var pending, processing, errored int
	for _, job := range jobs {
		switch job.Status {
		case queue.StatusPending:
			pending++
		case queue.StatusProcessing:
			processing++
		case queue.StatusError:
			errored++
		}
		views = append(views, jobView(job))
	}

	return QueueUpdateMessage{
		Type:       "queue_update",
		Jobs:       views,
		Paused:     s.queue.IsPaused(),
		Pending:    pending,
		Processing: processing,
		Errored:    errored,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// broadcastQueueUpdate pushes the current snapshot to every connected
// client. Recent errors ride along since they change with queue events.
func (s *Server) broadcastQueueUpdate() {
	s.broadcastMessage(s.queueUpdateMessage())
	s.broadcastMessage(RecentErrorsMessage{
		Type:   "recent_errors",
		Errors: s.journal.RecentErrors(),
	})
}

// broadcastMessage fans a message out to all clients. Sends never block;
// a client whose buffer is full misses the message and catches up on the
// next snapshot.
func (s *Server) broadcastMessage(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Errorw("Failed to marshal broadcast message",
			logger.FieldError, err,
		)
		return
	}

	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			s.logger.Warnw("Client send buffer full, dropping broadcast",
				logger.FieldClientID, client.id,
			)
		}
	}
}
