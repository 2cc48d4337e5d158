// Package notify publishes registry change and synchronization failure
// events to subscribed observers.
package notify

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/registry"
)

// Subscription identifies a registered handler
type Subscription struct {
	id uuid.UUID
}

// String returns the subscription identifier
func (s Subscription) String() string {
	return s.id.String()
}

// ChangeHandler receives the associations added by a synchronization cycle
type ChangeHandler func(delta registry.Delta)

// FailureHandler receives errors raised by scheduled synchronization cycles
type FailureHandler func(err error)

type subscriber[H any] struct {
	id      uuid.UUID
	handler H
}

// Notifier is a publish/subscribe point with a change channel and a failure
// channel. Handlers run synchronously, in subscription order, on the
// goroutine that publishes. It is safe for concurrent use.
type Notifier struct {
	mu       sync.RWMutex
	changes  []subscriber[ChangeHandler]
	failures []subscriber[FailureHandler]
}

// New creates a notifier without subscribers
func New() *Notifier {
	return &Notifier{}
}

// OnChange subscribes handler to change notifications
func (n *Notifier) OnChange(handler ChangeHandler) Subscription {
	id := uuid.New()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, subscriber[ChangeHandler]{id: id, handler: handler})
	return Subscription{id: id}
}

// OnFailure subscribes handler to failure notifications
func (n *Notifier) OnFailure(handler FailureHandler) Subscription {
	id := uuid.New()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, subscriber[FailureHandler]{id: id, handler: handler})
	return Subscription{id: id}
}

// Unsubscribe removes a handler from either channel.
// It reports whether the subscription was found.
func (n *Notifier) Unsubscribe(sub Subscription) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	var removed bool
	n.changes, removed = remove(n.changes, sub.id)
	if removed {
		return true
	}
	n.failures, removed = remove(n.failures, sub.id)
	return removed
}

// NotifyChange publishes delta to change subscribers. An empty delta is not published.
func (n *Notifier) NotifyChange(delta registry.Delta) {
	if n == nil || delta.IsEmpty() {
		return
	}

	n.mu.RLock()
	handlers := slices.Clone(n.changes)
	n.mu.RUnlock()

	for _, s := range handlers {
		safeCall("change", s.id, func() { s.handler(delta) })
	}
}

// NotifyFailure publishes err to failure subscribers. A nil error is not published.
func (n *Notifier) NotifyFailure(err error) {
	if n == nil || err == nil {
		return
	}

	n.mu.RLock()
	handlers := slices.Clone(n.failures)
	n.mu.RUnlock()

	if len(handlers) == 0 {
		zap.S().Warnw("Synchronization failed with no failure subscribers", "error", err)
		return
	}
	for _, s := range handlers {
		safeCall("failure", s.id, func() { s.handler(err) })
	}
}

func remove[H any](subs []subscriber[H], id uuid.UUID) ([]subscriber[H], bool) {
	idx := slices.IndexFunc(subs, func(s subscriber[H]) bool { return s.id == id })
	if idx < 0 {
		return subs, false
	}
	return slices.Delete(slices.Clone(subs), idx, idx+1), true
}

// safeCall runs fn, logging instead of propagating a panic
func safeCall(channel string, id uuid.UUID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("Notification handler panicked",
				"channel", channel,
				"subscription", id.String(),
				"panic", r)
		}
	}()
	fn()
}
