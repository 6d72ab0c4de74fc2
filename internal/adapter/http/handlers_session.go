package adapthttp

import (
	"net/http"

	"chatgate/internal/app"
	"chatgate/internal/domain"
)

func (s *Server) handleCookie(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	username := currentUser(r)
	if username == app.PublicUser {
		writeMessage(w, http.StatusUnauthorized, "login required")
		return
	}

	if r.Method == http.MethodPost {
		fields, err := parseObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if _, ok := fields[app.SessionGenerationKey]; ok {
			writeMessage(w, http.StatusBadRequest, app.SessionGenerationKey+" is reserved")
			return
		}
		if err := s.mgr.WriteCookie(r.Context(), username, fields); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	sess, ok := s.mgr.Session(r.Context(), username)
	resp := map[string]any{"has_own_api_key": false, "fields": map[string]any{}}
	if ok {
		resp["has_own_api_key"] = sess.HasAPIKey()
		if sess.Fields != nil {
			resp["fields"] = sess.Fields
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyRequest struct {
	ConversationID string         `json:"conversation_id"`
	Data           map[string]any `json:"data"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listHistory(w, r)
	case http.MethodPost:
		s.appendHistory(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	convos := map[string][]domain.HistoryEntry{}
	if sess, ok := s.mgr.Session(r.Context(), currentUser(r)); ok && sess.HistoryConvos != nil {
		convos = sess.HistoryConvos
	}

	if id := r.URL.Query().Get("conversation_id"); id != "" {
		entries := convos[id]
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "entries": entries})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convos})
}

func (s *Server) appendHistory(w http.ResponseWriter, r *http.Request) {
	username := currentUser(r)

	var req historyRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = s.newID()
	}

	entry, err := s.mgr.RecordHistoryEntry(r.Context(), username, req.ConversationID, req.Data)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"conversation_id": req.ConversationID,
		"entry":           entry,
	})
}

// handleRateLimit reports whether the caller may issue a chatbot query.
// Limited callers get 429 with the policy message.
func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if limited, msg := s.mgr.RateLimitCheck(r.Context(), currentUser(r)); limited {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"limited": true, "error": msg})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"limited": false})
}
