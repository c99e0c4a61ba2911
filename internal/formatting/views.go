package formatting

import (
	"sort"
	"time"

	"scriptsync/internal/org"
	"scriptsync/internal/session"
	"scriptsync/pkg/logging"
)

// SessionView is the display form of a session. Secrets are truncated.
type SessionView struct {
	Origin      string    `json:"origin" yaml:"origin"`
	SessionID   string    `json:"sessionId" yaml:"sessionId"`
	Ingress     bool      `json:"ingressCookie" yaml:"ingressCookie"`
	CSRFToken   string    `json:"csrfToken" yaml:"csrfToken"`
	LastTouched time.Time `json:"lastTouched" yaml:"lastTouched"`
	ExpiresIn   string    `json:"expiresIn" yaml:"expiresIn"`
	Valid       bool      `json:"valid" yaml:"valid"`
}

// HostView is the display form of one cached host.
type HostView struct {
	U          string    `json:"u" yaml:"u"`
	Host       string    `json:"host" yaml:"host"`
	LastAccess time.Time `json:"lastAccess" yaml:"lastAccess"`
	Age        string    `json:"age" yaml:"age"`
}

// SessionViews converts sessions for display, sorted by origin.
func SessionViews(sessions []session.Session, ttl time.Duration, now time.Time) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		valid := s.Valid(now, ttl)
		expiresIn := "expired"
		if valid {
			expiresIn = FormatDuration(s.LastTouched.Add(ttl).Sub(now))
		}
		views = append(views, SessionView{
			Origin:      s.Origin,
			SessionID:   logging.TruncateSecret(s.JSessionID),
			Ingress:     s.IngressCookie != "",
			CSRFToken:   logging.TruncateSecret(s.LastCSRFToken),
			LastTouched: s.LastTouched,
			ExpiresIn:   expiresIn,
			Valid:       valid,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Origin < views[j].Origin })
	return views
}

// HostViews flattens the org cache for display, sorted by U then host.
func HostViews(entries map[string][]org.Element, now time.Time) []HostView {
	var views []HostView
	for u, els := range entries {
		for _, el := range els {
			views = append(views, HostView{
				U:          u,
				Host:       el.Host,
				LastAccess: el.LastAccess,
				Age:        FormatDuration(now.Sub(el.LastAccess)),
			})
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].U != views[j].U {
			return views[i].U < views[j].U
		}
		return views[i].Host < views[j].Host
	})
	return views
}
