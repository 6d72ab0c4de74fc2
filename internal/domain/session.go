package domain

import "encoding/json"

// TimeLayout is the local-time stamp format of history entries.
const TimeLayout = "2006-01-02 15:04:05"

const (
	SessionAPIKey        = "api_key"
	SessionHistoryConvos = "history_convos"
	HistoryTimeKey       = "time"
)

// HistoryEntry is one caller-supplied conversation entry plus the time the
// store accepted it.
type HistoryEntry struct {
	Time string
	Data map[string]any
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		out[k] = v
	}
	out[HistoryTimeKey] = e.Time
	return json.Marshal(out)
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	all, err := decodeObject(data)
	if err != nil {
		return err
	}
	t, _ := all[HistoryTimeKey].(string)
	*e = HistoryEntry{Time: t, Data: withoutKeys(all, HistoryTimeKey)}
	return nil
}

// Clone returns a deep copy of e.
func (e HistoryEntry) Clone() HistoryEntry {
	return HistoryEntry{Time: e.Time, Data: copyFields(e.Data)}
}

// SessionRecord is the durable per-user session state: the user's own API key,
// conversation history and any other cookie fields written by the web layer.
type SessionRecord struct {
	APIKey        string
	HistoryConvos map[string][]HistoryEntry
	Fields        map[string]any
}

// HasAPIKey reports whether the user supplied their own API key.
func (r SessionRecord) HasAPIKey() bool {
	return r.APIKey != ""
}

func (r SessionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.APIKey != "" {
		out[SessionAPIKey] = r.APIKey
	}
	if len(r.HistoryConvos) > 0 {
		out[SessionHistoryConvos] = r.HistoryConvos
	}
	return json.Marshal(out)
}

func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	var known struct {
		HistoryConvos map[string][]HistoryEntry `json:"history_convos"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	all, err := decodeObject(data)
	if err != nil {
		return err
	}
	var rec SessionRecord
	// A non-string api_key is kept verbatim as a plain field.
	if key, ok := all[SessionAPIKey].(string); ok {
		rec.APIKey = key
		delete(all, SessionAPIKey)
	}
	if len(known.HistoryConvos) > 0 {
		rec.HistoryConvos = known.HistoryConvos
	}
	rec.Fields = withoutKeys(all, SessionHistoryConvos)
	*r = rec
	return nil
}

// Clone returns a deep copy of r.
func (r SessionRecord) Clone() SessionRecord {
	c := SessionRecord{APIKey: r.APIKey, Fields: copyFields(r.Fields)}
	if r.HistoryConvos != nil {
		c.HistoryConvos = make(map[string][]HistoryEntry, len(r.HistoryConvos))
		for id, entries := range r.HistoryConvos {
			cp := make([]HistoryEntry, len(entries))
			for i := range entries {
				cp[i] = entries[i].Clone()
			}
			c.HistoryConvos[id] = cp
		}
	}
	return c
}
