package formatting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// FormatSessions prints one line per session.
func (f *ConsoleFormatter) FormatSessions(sessions []session.Session, ttl time.Duration, now time.Time) error {
	views := SessionViews(sessions, ttl, now)
	if len(views) == 0 {
		return f.println("No sessions.")
	}

	var output []string
	if !f.options.Quiet {
		output = append(output, fmt.Sprintf("Sessions (%d):", len(views)))
	}
	for _, v := range views {
		status := "expires in " + v.ExpiresIn
		if !v.Valid {
			status = "expired"
		}
		output = append(output, fmt.Sprintf("  %-40s %s", v.Origin, status))
	}
	return f.println(strings.Join(output, "\n"))
}

// FormatOrgCache prints each U followed by its hosts.
func (f *ConsoleFormatter) FormatOrgCache(entries map[string][]org.Element, now time.Time) error {
	views := HostViews(entries, now)
	if len(views) == 0 {
		return f.println("Org cache is empty.")
	}

	var output []string
	current := ""
	for _, v := range views {
		if v.U != current {
			output = append(output, v.U+":")
			current = v.U
		}
		output = append(output, fmt.Sprintf("  %-40s last access %s ago", v.Host, v.Age))
	}
	return f.println(strings.Join(output, "\n"))
}

// FormatData prints maps as key: value lines and anything else with %v.
func (f *ConsoleFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		var output []string
		for _, key := range sortedKeys(d) {
			output = append(output, fmt.Sprintf("%s: %v", key, d[key]))
		}
		return f.println(strings.Join(output, "\n"))
	case []string:
		return f.println(strings.Join(d, "\n"))
	default:
		return f.println(fmt.Sprintf("%v", d))
	}
}

func (f *ConsoleFormatter) println(s string) error {
	_, err := fmt.Fprintln(f.options.writer(), s)
	return err
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
