package formatting

import (
	"encoding/json"
	"time"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// FormatSessions writes sessions as a JSON array.
func (f *JSONFormatter) FormatSessions(sessions []session.Session, ttl time.Duration, now time.Time) error {
	return f.FormatData(SessionViews(sessions, ttl, now))
}

// FormatOrgCache writes the org cache as a JSON array of hosts.
func (f *JSONFormatter) FormatOrgCache(entries map[string][]org.Element, now time.Time) error {
	views := HostViews(entries, now)
	if views == nil {
		views = []HostView{}
	}
	return f.FormatData(views)
}

// FormatData writes data as indented JSON.
func (f *JSONFormatter) FormatData(data interface{}) error {
	enc := json.NewEncoder(f.options.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
