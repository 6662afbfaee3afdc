// Package httpserver exposes the notes service over a JSON HTTP API routed with chi.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/noteshub/internal/metrics"
	"github.com/and161185/noteshub/internal/service"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Auth    *service.AuthService
	Authn   *service.Authenticator
	Notes   *service.NoteService
	Users   *service.UserService
	Admin   *service.AdminService
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Server holds handler dependencies.
type Server struct {
	auth    *service.AuthService
	authn   *service.Authenticator
	notes   *service.NoteService
	users   *service.UserService
	admin   *service.AdminService
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New constructs a Server. A nil logger discards; nil metrics get a private registry.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	return &Server{
		auth:    d.Auth,
		authn:   d.Authn,
		notes:   d.Notes,
		users:   d.Users,
		admin:   d.Admin,
		metrics: d.Metrics,
		log:     d.Log,
	}
}

// Routes builds the router.
//
// Authentication runs once per request on every /api route except the public
// share lookup and the credential exchange endpoints, which never read the header.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.instrument)
	r.Use(s.recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/google", s.handleGoogleLogin)

		r.Get("/notes/share/{token}", s.handleGetShared)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Use(s.requirePrincipal)

			r.Get("/user/profile", s.handleGetProfile)
			r.Put("/user/profile", s.handleUpdateProfile)

			r.Post("/notes", s.handleCreateNote)
			r.Get("/notes/user", s.handleListNotes)
			r.Get("/notes/{id}", s.handleGetNote)
			r.Put("/notes/{id}", s.handleUpdateNote)
			r.Delete("/notes/{id}", s.handleDeleteNote)
			r.Post("/notes/{id}/share", s.handleShareNote)
			r.Delete("/notes/{id}/share", s.handleUnshareNote)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/users", s.handleListUsers)
				r.Get("/stats", s.handleStats)
				r.Post("/restrict/{userId}", s.handleRestrict)
				r.Put("/users/{id}/role", s.handleChangeRole)
				r.Delete("/users/{id}", s.handleDeleteUser)
			})
		})
	})
	return r
}
