package httpapi

import (
	"net/http"
	"time"

	"careerscan-engine/internal/events"
)

type HealthHandler struct {
	Runs *RunManager
	Hub  *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	active := 0
	if h.Runs != nil {
		active = h.Runs.Active()
	}
	subscribers := 0
	if h.Hub != nil {
		subscribers = h.Hub.Subscribers()
	}
	writeJSON(w, map[string]any{
		"ok":                true,
		"time":              time.Now().UTC().Format(time.RFC3339),
		"active_runs":       active,
		"event_subscribers": subscribers,
	})
}
