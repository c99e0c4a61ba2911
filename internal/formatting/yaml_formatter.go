package formatting

import (
	"time"

	"gopkg.in/yaml.v3"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// FormatSessions writes sessions as a YAML sequence.
func (f *YAMLFormatter) FormatSessions(sessions []session.Session, ttl time.Duration, now time.Time) error {
	return f.FormatData(SessionViews(sessions, ttl, now))
}

// FormatOrgCache writes the org cache as a YAML sequence of hosts.
func (f *YAMLFormatter) FormatOrgCache(entries map[string][]org.Element, now time.Time) error {
	views := HostViews(entries, now)
	if views == nil {
		views = []HostView{}
	}
	return f.FormatData(views)
}

// FormatData writes data as YAML.
func (f *YAMLFormatter) FormatData(data interface{}) error {
	enc := yaml.NewEncoder(f.options.writer())
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
