package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// writeTimeout bounds one frame write so a stalled connection cannot hold
// up delivery indefinitely.
const writeTimeout = 5 * time.Second

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
	conn    deadlineWriter
}

func newPeer(encoder *json.Encoder, conn deadlineWriter) *peer {
	return &peer{encoder: encoder, conn: conn}
}

func (p *peer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	return p.encoder.Encode(frame)
}

// Registry tracks which actors hold open connections. It implements
// Dispatcher by writing an event frame to every connection the actor holds.
type Registry struct {
	mu    sync.Mutex
	peers map[string]map[*peer]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]map[*peer]struct{})}
}

func (r *Registry) register(actorID string, p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.peers[actorID]
	if !ok {
		set = make(map[*peer]struct{})
		r.peers[actorID] = set
	}
	set[p] = struct{}{}
}

func (r *Registry) unregister(actorID string, p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.peers[actorID]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(r.peers, actorID)
	}
}

// Connections reports how many open connections actorID holds.
func (r *Registry) Connections(actorID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers[actorID])
}

// Notify pushes the event to every open connection actorID holds. A write
// failure on one connection is logged and does not stop delivery to the
// rest.
func (r *Registry) Notify(ctx context.Context, actorID string, event Event) {
	if ctx != nil && ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	targets := make([]*peer, 0, len(r.peers[actorID]))
	for p := range r.peers[actorID] {
		targets = append(targets, p)
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	frame := wsFrame{
		Type: frameTypeEvent,
		Payload: mustJSON(eventEnvelope{
			Event: event,
		}),
	}
	for _, target := range targets {
		if err := target.writeFrame(frame); err != nil {
			log.Printf("notify: event delivery failed actor=%q type=%q err=%v", actorID, event.Type, err)
		}
	}
}
