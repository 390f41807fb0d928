package events

import (
	"encoding/json"
	"time"
)

// Event types published on the hub.
const (
	TypePing        = "ping"
	TypeRunStarted  = "run_started"
	TypeLog         = "log"
	TypeRunFinished = "run_finished"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	RunID     string          `json:"run_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type RunStarted struct {
	Source string `json:"source"`
	Total  int    `json:"total"`
}

type LogData struct {
	Index   int    `json:"index"`
	Company string `json:"company"`
	Domain  string `json:"domain"`
	Line    string `json:"line"`
}

type RunFinished struct {
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Found     int    `json:"found"`
	Completed int    `json:"completed"`
	Error     string `json:"error,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	return MakeRunEvent(reqID, "", typ, v, data)
}

// MakeRunEvent is MakeEvent for events scoped to one batch run.
func MakeRunEvent(reqID, runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		RunID:     runID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
