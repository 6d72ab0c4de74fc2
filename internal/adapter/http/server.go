package adapthttp

import (
	"net/http"

	"chatgate/internal/app"
	"chatgate/internal/logging"

	"github.com/google/uuid"
)

const sessionCookie = "session"

// Server is the driving HTTP adapter that routes requests to the access
// manager.
type Server struct {
	mgr    *app.AccessManager
	tokens *TokenIssuer
	log    logging.Logger
	newID  func() string
}

// New creates a Server wired to the access manager.
func New(mgr *app.AccessManager, tokens *TokenIssuer, log logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{mgr: mgr, tokens: tokens, log: log, newID: uuid.NewString}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/login", s.handleLogin)
	api.HandleFunc("/logout", s.handleLogout)
	api.HandleFunc("/register", s.handleRegister)
	api.HandleFunc("/me", s.handleMe)

	api.HandleFunc("/cookie", s.handleCookie)
	api.HandleFunc("/history", s.handleHistory)
	api.HandleFunc("/ratelimit", s.handleRateLimit)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", s.sessionMiddleware(api)))

	return s.loggingMiddleware(withNoCache(root))
}
