package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a configuration file or variable that could not
// be loaded or failed validation.
type ConfigurationError struct {
	FilePath    string   // File or $VARIABLE the error came from; empty for validation
	ErrorType   string   // parse, io or validation
	Message     string   // Human-readable error message
	Suggestions []string // Actionable suggestions to fix the error
	Err         error
}

func (ce *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if ce.FilePath != "" {
		fmt.Fprintf(&b, " in %s", ce.FilePath)
	}
	fmt.Fprintf(&b, ": %s", ce.Message)
	if ce.Err != nil {
		fmt.Fprintf(&b, ": %v", ce.Err)
	}
	return b.String()
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a multi-line message including suggestions.
func (ce *ConfigurationError) DetailedError() string {
	parts := []string{ce.Error()}
	if ce.ErrorType != "" {
		parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	}
	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}
	return strings.Join(parts, "\n")
}
