package workbench

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server exposes the workbench session over HTTP for the operator surface.
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Toll PDF Manager"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Documents and browsing
	s.mux.HandleFunc("POST /api/documents/browse", s.requireAuth(s.handleBrowse))
	s.mux.HandleFunc("POST /api/documents/open", s.requireAuth(s.handleOpenDocument))
	s.mux.HandleFunc("GET /api/documents", s.requireAuth(s.handleListDocuments))

	// Page context
	s.mux.HandleFunc("GET /api/page/image", s.requireAuth(s.handlePageImage))
	s.mux.HandleFunc("POST /api/page/next", s.requireAuth(s.handleNextPage))
	s.mux.HandleFunc("POST /api/page/prev", s.requireAuth(s.handlePrevPage))
	s.mux.HandleFunc("POST /api/page/zoom", s.requireAuth(s.handleZoom))
	s.mux.HandleFunc("GET /api/page", s.requireAuth(s.handleCurrentPage))

	// Extraction and the line-item table
	s.mux.HandleFunc("POST /api/extract", s.requireAuth(s.handleExtract))
	s.mux.HandleFunc("POST /api/items/clear", s.requireAuth(s.handleClearItems))
	s.mux.HandleFunc("POST /api/items/{id}/edit", s.requireAuth(s.handleBeginEdit))
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items", s.requireAuth(s.handleAddItem))
	s.mux.HandleFunc("POST /api/edit/confirm", s.requireAuth(s.handleConfirmEdit))
	s.mux.HandleFunc("POST /api/edit/cancel", s.requireAuth(s.handleCancelEdit))

	// Reconciliation and commit
	s.mux.HandleFunc("POST /api/verified", s.requireAuth(s.handleSetVerified))
	s.mux.HandleFunc("GET /api/comparison", s.requireAuth(s.handleComparison))
	s.mux.HandleFunc("POST /api/commit", s.requireAuth(s.handleCommit))

	// Listing state
	s.mux.HandleFunc("POST /api/flags/toggle", s.requireAuth(s.handleToggleFlag))
	s.mux.HandleFunc("POST /api/highlights/toggle", s.requireAuth(s.handleToggleHighlight))

	// Export target
	s.mux.HandleFunc("GET /api/export-folder", s.requireAuth(s.handleExportStatus))
	s.mux.HandleFunc("POST /api/export-folder", s.requireAuth(s.handleSetExportFolder))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
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
