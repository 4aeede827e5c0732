package inventory

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server handles HTTP requests for the inventory
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

		// Handle preflight OPTIONS requests
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
			// Ensure CORS headers are set before error response
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="ItemMaster"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Items (most specific paths first)
	s.mux.HandleFunc("GET /api/items/{id}/image", s.requireAuth(s.handleGetItemImage))
	s.mux.HandleFunc("PUT /api/items/{id}/image", s.requireAuth(s.handleUploadItemImage))
	s.mux.HandleFunc("GET /api/items/{id}", s.requireAuth(s.handleGetItem))
	s.mux.HandleFunc("PUT /api/items/{id}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items", s.requireAuth(s.handleCreateItem))

	// Categories and their subcategories
	s.mux.HandleFunc("POST /api/categories/{id}/subcategories/order", s.requireAuth(s.handleReorderSubcategories))
	s.mux.HandleFunc("PUT /api/categories/{id}/subcategories/{subID}", s.requireAuth(s.handleRenameSubcategory))
	s.mux.HandleFunc("DELETE /api/categories/{id}/subcategories/{subID}", s.requireAuth(s.handleDeleteSubcategory))
	s.mux.HandleFunc("POST /api/categories/{id}/subcategories", s.requireAuth(s.handleCreateSubcategory))
	s.mux.HandleFunc("GET /api/categories/{id}/stats", s.requireAuth(s.handleSubcategoryStats))
	s.mux.HandleFunc("POST /api/categories/order", s.requireAuth(s.handleReorderCategories))
	s.mux.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleRenameCategory))
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))
	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))

	// Locations and their sublocations
	s.mux.HandleFunc("POST /api/locations/{id}/sublocations/order", s.requireAuth(s.handleReorderSublocations))
	s.mux.HandleFunc("PUT /api/locations/{id}/sublocations/{subID}", s.requireAuth(s.handleRenameSublocation))
	s.mux.HandleFunc("DELETE /api/locations/{id}/sublocations/{subID}", s.requireAuth(s.handleDeleteSublocation))
	s.mux.HandleFunc("POST /api/locations/{id}/sublocations", s.requireAuth(s.handleCreateSublocation))
	s.mux.HandleFunc("POST /api/locations/order", s.requireAuth(s.handleReorderLocations))
	s.mux.HandleFunc("PUT /api/locations/{id}", s.requireAuth(s.handleRenameLocation))
	s.mux.HandleFunc("DELETE /api/locations/{id}", s.requireAuth(s.handleDeleteLocation))
	s.mux.HandleFunc("GET /api/locations", s.requireAuth(s.handleListLocations))
	s.mux.HandleFunc("POST /api/locations", s.requireAuth(s.handleCreateLocation))

	// Tags
	s.mux.HandleFunc("GET /api/tags", s.requireAuth(s.handleListTags))
	s.mux.HandleFunc("POST /api/tags", s.requireAuth(s.handleResolveTag))

	// Dashboard statistics
	s.mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleCategoryStats))

	// Settings
	s.mux.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", s.requireAuth(s.handleUpdateSettings))

	// Receipt scanning and bulk import
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.handleScanReceipt))
	s.mux.HandleFunc("POST /api/import", s.requireAuth(s.handleImportDrafts))
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
