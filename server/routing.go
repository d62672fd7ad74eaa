package server

import "net/http"

// setupRoutes registers every handler behind the CORS middleware.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.HandleFunc("/api/version", s.corsMiddleware(s.HandleVersion))

	s.mux.HandleFunc("/api/upload", s.corsMiddleware(s.HandleUpload))                // Submit images (POST multipart)
	s.mux.HandleFunc("/api/jobs", s.corsMiddleware(s.HandleJobs))                    // List (GET) / clear pending+errored (DELETE)
	s.mux.HandleFunc("/api/jobs/retry-all", s.corsMiddleware(s.HandleRetryAll))      // Requeue all errored jobs (POST)
	s.mux.HandleFunc("/api/jobs/", s.corsMiddleware(s.HandleJob))                    // Delete job (DELETE) / retry job (POST .../retry)
	s.mux.HandleFunc("/api/queue/pause", s.corsMiddleware(s.HandlePause))            // Stop dispatching (POST)
	s.mux.HandleFunc("/api/queue/resume", s.corsMiddleware(s.HandleResume))          // Resume dispatching (POST)
	s.mux.HandleFunc("/api/gallery", s.corsMiddleware(s.HandleGallery))              // List results (GET) / clear (DELETE)
	s.mux.HandleFunc("/api/gallery/", s.corsMiddleware(s.HandleGalleryItem))         // Result metadata, image bytes, delete
	s.mux.HandleFunc("/api/journal", s.corsMiddleware(s.HandleJournal))              // Session log (GET) / clear (DELETE)
	s.mux.HandleFunc("/api/journal/errors", s.corsMiddleware(s.HandleRecentErrors))  // Error banners (GET) / dismiss (DELETE)
	s.mux.HandleFunc("/api/settings", s.corsMiddleware(s.HandleSettings))            // Generation settings (GET/PUT)
	s.mux.HandleFunc("/api/settings/options", s.corsMiddleware(s.HandlePromptOptions)) // Prompt option tables (GET)
}

// corsMiddleware adds CORS headers using the configured allowed origins.
// Origin validation matches the WebSocket upgrader.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// originAllowed reports whether origin is in the configured allow list. An
// empty list allows everything, which only makes sense for tests.
func (s *Server) originAllowed(origin string) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
