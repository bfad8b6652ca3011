// Package notify fans out real-time events to connected actors over
// websocket connections. Delivery is best effort: actors without an open
// connection miss the event, and one broken connection never blocks the
// others.
package notify

import (
	"context"
	"encoding/json"
)

// Event types pushed to connected actors.
const (
	EventNewLead         = "new_lead"
	EventLeadResponse    = "lead_response"
	EventPmDecision      = "pm_decision"
	EventWorkspaceAccess = "workspace_access"
)

// Event is one notification addressed to a single actor.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Dispatcher delivers events to connected actors.
type Dispatcher interface {
	// Notify pushes the event to every open connection actorID holds.
	// Actors without connections are skipped silently.
	Notify(ctx context.Context, actorID string, event Event)
}
