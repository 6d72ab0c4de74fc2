// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"

	"chatgate/internal/app"
)

type meResponse struct {
	Username     string `json:"username"`
	Level        int    `json:"level"`
	Label        string `json:"label"`
	IsSSO        bool   `json:"is_sso"`
	HasOwnAPIKey bool   `json:"has_own_api_key"`
	Profile      any    `json:"profile"`
}

func (s *Server) me(r *http.Request, username string) (meResponse, error) {
	ctx := r.Context()
	level := s.mgr.PermissionLevel(ctx, username)
	label, err := level.Label()
	if err != nil {
		return meResponse{}, err
	}
	return meResponse{
		Username:     username,
		Level:        int(level),
		Label:        label,
		IsSSO:        s.mgr.IsSSOUser(ctx, username),
		HasOwnAPIKey: s.mgr.HasOwnAPIKey(ctx, username),
		Profile:      s.mgr.DisplayProfile(ctx, username),
	}, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		UseSSO   *bool  `json:"use_sso"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Username == "" || req.Username == app.PublicUser {
		writeMessage(w, http.StatusBadRequest, "username is required")
		return
	}

	useSSO := s.mgr.SSOEnabled()
	if req.UseSSO != nil {
		useSSO = *req.UseSSO
	}

	ok, msg, err := s.mgr.VerifyCredentials(r.Context(), req.Username, req.Password, useSSO)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msg)
		return
	}

	if err := s.setSession(w, r, req.Username); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp, err := s.me(r, req.Username)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) setSession(w http.ResponseWriter, r *http.Request, username string) error {
	token, err := s.tokens.Issue(username, s.mgr.SessionGeneration(r.Context(), username))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.tokens.TTL().Seconds()),
	})
	return nil
}

// handleLogout clears the cookie and, for a signed-in caller, revokes every
// token issued to them so far.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if username := currentUser(r); username != app.PublicUser {
		if err := s.mgr.RevokeSessions(r.Context(), username); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Username string  `json:"username"`
		Password string  `json:"password"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Username == app.PublicUser {
		writeMessage(w, http.StatusConflict, "username is reserved")
		return
	}
	if req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}

	extra := map[string]any{}
	if req.Email != nil {
		extra["email"] = *req.Email
	}
	if req.Phone != nil {
		extra["phone"] = *req.Phone
	}
	if err := s.mgr.CreateUser(r.Context(), req.Username, req.Password, extra); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.setSession(w, r, req.Username); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp, err := s.me(r, req.Username)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	resp, err := s.me(r, currentUser(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
