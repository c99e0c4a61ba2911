package formatting

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
	textutil "scriptsync/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatSessions renders sessions as a table.
func (f *TableFormatter) FormatSessions(sessions []session.Session, ttl time.Duration, now time.Time) error {
	views := SessionViews(sessions, ttl, now)
	if len(views) == 0 {
		f.printEmpty("No sessions")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(header("ORIGIN", "SESSION", "INGRESS", "CSRF TOKEN", "EXPIRES"))
	for _, v := range views {
		expires := v.ExpiresIn
		if v.Valid {
			expires = "in " + expires
		} else {
			expires = text.FgYellow.Sprint(expires)
		}
		t.AppendRow(table.Row{v.Origin, v.SessionID, yesNo(v.Ingress), v.CSRFToken, expires})
	}
	t.Render()

	f.printTotal(len(views), "sessions")
	return nil
}

// FormatOrgCache renders the org cache as a table, one row per host.
func (f *TableFormatter) FormatOrgCache(entries map[string][]org.Element, now time.Time) error {
	views := HostViews(entries, now)
	if len(views) == 0 {
		f.printEmpty("Org cache is empty")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(header("U", "HOST", "LAST ACCESS"))
	for _, v := range views {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(v.U), v.Host, v.Age + " ago"})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	t.Render()

	f.printTotal(len(views), "hosts")
	return nil
}

// FormatData formats generic data as key-value pairs or a list.
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		t := f.createTable()
		t.AppendHeader(header("KEY", "VALUE"))
		for _, key := range sortedKeys(d) {
			valueStr := textutil.SingleLine(fmt.Sprintf("%v", d[key]), textutil.DefaultCellMaxLen)
			t.AppendRow(table.Row{text.FgHiCyan.Sprint(key), valueStr})
		}
		t.Render()
	case []string:
		if len(d) == 0 {
			f.printEmpty("No items found")
			return nil
		}
		for i, item := range d {
			fmt.Fprintf(f.options.writer(), "  %d. %s\n", i+1, item)
		}
		f.printTotal(len(d), "items")
	default:
		fmt.Fprintf(f.options.writer(), "%v\n", d)
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) printEmpty(message string) {
	fmt.Fprintf(f.options.writer(), "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint(message))
}

func (f *TableFormatter) printTotal(n int, noun string) {
	if f.options.Quiet {
		return
	}
	fmt.Fprintf(f.options.writer(), "\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(n),
		text.FgHiBlue.Sprint(noun))
}

func header(names ...string) table.Row {
	row := make(table.Row, 0, len(names))
	for _, n := range names {
		row = append(row, text.FgHiCyan.Sprint(n))
	}
	return row
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
