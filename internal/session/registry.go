package session

import (
	"sync"

	"github.com/Sanjarbek17/MedAI/internal/observability"
)

// ActorKind distinguishes the two sides of a dispatch session.
type ActorKind string

const (
	KindPatient ActorKind = "patient"
	KindDriver  ActorKind = "driver"
)

// Sender is the opaque handle to one live bidirectional connection. Send
// must not block dispatch; implementations queue and drop under pressure.
type Sender interface {
	Send(event string, data any) error
}

type binding struct {
	kind   ActorKind
	sender Sender
}

// Registry maps actor ids to their live connections for targeted
// broadcasts. It is a derived index over Store membership; the dispatcher
// keeps both in sync within one critical section.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]binding)}
}

// Bind replaces any prior binding for the actor.
func (r *Registry) Bind(actorID string, kind ActorKind, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[actorID] = binding{kind: kind, sender: s}
}

// UnbindBySender removes the single actor (at most one) bound to the given
// connection and reports who it was. Used only by disconnect handling.
func (r *Registry) UnbindBySender(s Sender) (actorID string, kind ActorKind, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.bindings {
		if b.sender == s {
			delete(r.bindings, id)
			return id, b.kind, true
		}
	}
	return "", "", false
}

// Send delivers an event to the actor's bound connection. Delivery is
// best-effort: an unbound actor or a refusing sink drops the event and
// bumps the drop counter.
func (r *Registry) Send(actorID, event string, data any) {
	r.mu.RLock()
	b, ok := r.bindings[actorID]
	r.mu.RUnlock()
	if !ok {
		observability.DroppedSendsTotal.Inc()
		return
	}
	if err := b.sender.Send(event, data); err != nil {
		observability.DroppedSendsTotal.Inc()
	}
}
