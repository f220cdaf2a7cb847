package analysis

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scanalyze/scanalyze/internal/auth"
)

// Server handles HTTP requests for scans, history and sessions
type Server struct {
	pipeline *Pipeline
	history  *Store
	storage  Storage
	auth     *auth.Service
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(pipeline *Pipeline, history *Store, storage Storage, authService *auth.Service) *Server {
	return NewServerWithMux(pipeline, history, storage, authService, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(pipeline *Pipeline, history *Store, storage Storage, authService *auth.Service, mux *http.ServeMux) *Server {
	s := &Server{
		pipeline: pipeline,
		history:  history,
		storage:  storage,
		auth:     authService,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireSession middleware gates the pipeline and history behind a signed-in
// user. When auth is not configured the API runs open.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.unauthorized(w)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if _, err := s.auth.Verify(token); err != nil {
			s.unauthorized(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	// Ensure CORS headers are set before error response
	setCORSHeaders(w)
	w.Header().Set("WWW-Authenticate", `Bearer realm="Scanalyze"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Auth endpoints are open by definition
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.requireSession(s.handleLogout))
	s.mux.HandleFunc("GET /api/session", s.handleSession)

	// Scan pipeline
	s.mux.HandleFunc("GET /api/scans/status", s.requireSession(s.handleScanStatus))
	s.mux.HandleFunc("POST /api/scans/reset", s.requireSession(s.handleResetScan))
	s.mux.HandleFunc("POST /api/scans", s.requireSession(s.handleSubmitScan))

	// History
	s.mux.HandleFunc("GET /api/history/{id}/image", s.requireSession(s.handleGetAnalysisImage))
	s.mux.HandleFunc("GET /api/history/{id}", s.requireSession(s.handleGetAnalysis))
	s.mux.HandleFunc("GET /api/history", s.requireSession(s.handleListHistory))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
