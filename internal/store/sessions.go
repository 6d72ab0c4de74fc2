package store

import (
	"context"
	"fmt"

	"chatgate/internal/domain"

	"github.com/thejerf/abtime"
)

// Sessions is the session store: username to SessionRecord.
type Sessions struct {
	t     *table[domain.SessionRecord]
	clock abtime.AbstractTime
}

var _ domain.SessionRepository = (*Sessions)(nil)

// OpenSessions loads the session document, creating an empty one if needed.
// History entries are stamped with clock; nil means the wall clock.
func OpenSessions(ctx context.Context, doc domain.DocumentStore, clock abtime.AbstractTime) (*Sessions, error) {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	t, err := loadTable[domain.SessionRecord](ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Sessions{t: t, clock: clock}, nil
}

// Get returns a copy of the user's session without creating one.
func (s *Sessions) Get(ctx context.Context, username string) (*domain.SessionRecord, bool) {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()

	rec, ok := s.t.rows[username]
	if !ok {
		return nil, false
	}
	cp := rec.Clone()
	return &cp, true
}

// MergeFields creates the session if needed and shallow-merges fields into
// it, last write wins per key. history_convos cannot be set this way.
func (s *Sessions) MergeFields(ctx context.Context, username string, fields map[string]any) error {
	if _, ok := fields[domain.SessionHistoryConvos]; ok {
		return fmt.Errorf("%s: %w", domain.SessionHistoryConvos, domain.ErrReservedField)
	}
	norm, err := domain.NormalizeFields(fields)
	if err != nil {
		return fmt.Errorf("session %q: %w", username, err)
	}

	var apiKey *string
	if v, ok := norm[domain.SessionAPIKey]; ok {
		switch key := v.(type) {
		case string:
			apiKey = &key
		case nil:
			empty := ""
			apiKey = &empty
		default:
			return fmt.Errorf("%s must be a string: %w", domain.SessionAPIKey, domain.ErrInvalidField)
		}
		delete(norm, domain.SessionAPIKey)
	}

	s.t.mu.Lock()
	defer s.t.mu.Unlock()

	next := s.t.rows[username].Clone()
	if apiKey != nil {
		next.APIKey = *apiKey
		delete(next.Fields, domain.SessionAPIKey)
	}
	if len(norm) > 0 && next.Fields == nil {
		next.Fields = make(map[string]any, len(norm))
	}
	for k, v := range norm {
		next.Fields[k] = v
	}
	return s.t.set(ctx, username, next)
}

// AppendHistory stamps data with the current local time and appends it to
// the conversation, creating the session and conversation as needed.
// Earlier entries are never reordered.
func (s *Sessions) AppendHistory(ctx context.Context, username, conversationID string, data map[string]any) (domain.HistoryEntry, error) {
	norm, err := domain.NormalizeFields(data)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("history entry: %w", err)
	}
	delete(norm, domain.HistoryTimeKey)
	if len(norm) == 0 {
		norm = nil
	}

	s.t.mu.Lock()
	defer s.t.mu.Unlock()

	entry := domain.HistoryEntry{
		Time: s.clock.Now().Local().Format(domain.TimeLayout),
		Data: norm,
	}

	next := s.t.rows[username].Clone()
	if next.HistoryConvos == nil {
		next.HistoryConvos = make(map[string][]domain.HistoryEntry)
	}
	next.HistoryConvos[conversationID] = append(next.HistoryConvos[conversationID], entry)

	if err := s.t.set(ctx, username, next); err != nil {
		return domain.HistoryEntry{}, err
	}
	return entry.Clone(), nil
}
