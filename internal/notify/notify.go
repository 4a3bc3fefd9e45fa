// Package notify fans out change notifications to in-process subscribers.
//
// Notifications carry no data. A subscriber that hears "candidates" should
// re-query the candidates it cares about.
package notify

import (
	"fmt"
	"sync"

	"github.com/abrezinsky/avavote/internal/logger"
)

// Category names a class of data that may have changed
type Category string

const (
	Candidates     Category = "candidates"
	Votes          Category = "votes"
	Voters         Category = "voters"
	ElectionStatus Category = "electionStatus"
)

// All lists every category in a stable order
var All = []Category{Candidates, Votes, Voters, ElectionStatus}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case Candidates, Votes, Voters, ElectionStatus:
		return true
	}
	return false
}

// Handle identifies a subscription. The zero Handle is never issued.
type Handle uint64

// Publisher is the write side of the notifier, used by stores after commit
type Publisher interface {
	Publish(categories ...Category)
}

// Subscriber is the read side, used by observers such as the websocket hub
type Subscriber interface {
	Subscribe(category Category, fn func()) Handle
	Unsubscribe(category Category, h Handle)
}

// Notifier is a category -> callback registry
type Notifier struct {
	log  logger.Logger
	mu   sync.RWMutex
	next Handle
	subs map[Category]map[Handle]func()
}

var (
	_ Publisher  = (*Notifier)(nil)
	_ Subscriber = (*Notifier)(nil)
)

// New creates an empty Notifier
func New(log logger.Logger) *Notifier {
	return &Notifier{
		log:  log,
		subs: make(map[Category]map[Handle]func()),
	}
}

// Subscribe registers fn for category and returns its handle
func (n *Notifier) Subscribe(category Category, fn func()) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	h := n.next
	set, ok := n.subs[category]
	if !ok {
		set = make(map[Handle]func())
		n.subs[category] = set
	}
	set[h] = fn
	return h
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (n *Notifier) Unsubscribe(category Category, h Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if set, ok := n.subs[category]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(n.subs, category)
		}
	}
}

// Publish synchronously invokes every callback registered for each category.
// Callbacks run without the registry lock held, so they may subscribe or
// unsubscribe. A panicking callback is logged and does not stop the others.
func (n *Notifier) Publish(categories ...Category) {
	for _, category := range categories {
		for _, fn := range n.snapshot(category) {
			n.invoke(category, fn)
		}
	}
}

// Count returns the number of subscribers for a category
func (n *Notifier) Count(category Category) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[category])
}

func (n *Notifier) snapshot(category Category) []func() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	set := n.subs[category]
	fns := make([]func(), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	return fns
}

func (n *Notifier) invoke(category Category, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("Subscriber panicked", "category", category, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
