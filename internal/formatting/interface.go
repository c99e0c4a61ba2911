// Package formatting renders sessions and the org cache for the CLI in
// table, console, JSON or YAML form.
package formatting

import (
	"io"
	"os"
	"time"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Output io.Writer // Defaults to os.Stdout
	Quiet  bool      // Suppress decorative elements
}

func (o Options) writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// Formatter renders scriptsync state.
type Formatter interface {
	// FormatSessions renders sessions with their remaining lifetime under ttl.
	FormatSessions(sessions []session.Session, ttl time.Duration, now time.Time) error

	// FormatOrgCache renders U → hosts with the age of each host.
	FormatOrgCache(entries map[string][]org.Element, now time.Time) error

	// FormatData renders an arbitrary value.
	FormatData(data interface{}) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{options: options}
	case FormatYAML:
		return &YAMLFormatter{options: options}
	case FormatTable:
		return &TableFormatter{options: options}
	default:
		return &ConsoleFormatter{options: options}
	}
}

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, bool) {
	switch f := OutputFormat(s); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, true
	}
	return "", false
}
