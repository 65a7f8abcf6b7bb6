package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// NotificationType selects the style of a toast raised by show-notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// notification is the payload of the show-notification event.
type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// HTMXResponse is an HTML fragment plus the HX-Trigger events the dashboard
// reacts to.
type HTMXResponse struct {
	status   int
	triggers map[string]any
	body     string
}

// NewHTMXResponse starts a 200 response with no events.
func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{status: http.StatusOK, triggers: map[string]any{}}
}

// ErrorFragment is a response carrying message, escaped, in an error div.
func ErrorFragment(status int, message string) *HTMXResponse {
	resp := NewHTMXResponse()
	resp.status = status
	resp.body = `<div class="error">` + template.HTMLEscapeString(message) + `</div>`
	return resp
}

// CurrenciesChanged tells the page to reload partials that depend on the
// application currency set.
func (b *HTMXResponse) CurrenciesChanged(codes []string) *HTMXResponse {
	b.triggers["currencies:changed"] = map[string][]string{"codes": codes}
	return b
}

// ResetForms clears the inline forms of the page.
func (b *HTMXResponse) ResetForms() *HTMXResponse {
	b.triggers["form:reset"] = struct{}{}
	return b
}

// Notify raises a toast. Errors stay up longer.
func (b *HTMXResponse) Notify(kind NotificationType, message string) *HTMXResponse {
	duration := 3000
	if kind == NotificationError {
		duration = 5000
	}
	b.triggers["show-notification"] = notification{Type: kind, Message: message, Duration: duration}
	return b
}

// HTML sets the fragment returned to HTMX.
func (b *HTMXResponse) HTML(body string) *HTMXResponse {
	b.body = body
	return b
}

// Write sends headers, status and body.
func (b *HTMXResponse) Write(w http.ResponseWriter) {
	if b.body != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if b.body != "" {
		_, _ = w.Write([]byte(b.body))
	}
}
