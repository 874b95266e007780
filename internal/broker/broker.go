package broker

// Broker maintains room membership keyed by conversation id and fans
// events out to every connection currently joined to the conversation.
// Membership is ephemeral: nothing is persisted, and a connection that
// was not joined at publish time never receives the event (at-most-once;
// late joiners re-fetch history through the API).
//
// Events for one connection are delivered through a single buffered FIFO
// channel, so the order publish was called is preserved per connection.
// A full buffer drops the event rather than blocking the publisher.

import "sync"

// Broker owns the conversation -> connection mapping. All access goes
// through Join/Leave/Disconnect/Publish; no other component sees the map.
type Broker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*subscriber
	conns map[string]*subscriber
}

type subscriber struct {
	id    string
	ch    chan Event
	rooms map[string]struct{}
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		rooms: make(map[string]map[string]*subscriber),
		conns: make(map[string]*subscriber),
	}
}

// Register adds a connection and returns its event channel. bufSize
// controls how many undelivered events may queue before drops start.
// Registering an existing id replaces the previous registration.
func (b *Broker) Register(connID string, bufSize int) <-chan Event {
	sub := &subscriber{
		id:    connID,
		ch:    make(chan Event, bufSize),
		rooms: make(map[string]struct{}),
	}
	b.mu.Lock()
	if old, ok := b.conns[connID]; ok {
		b.removeLocked(old)
	}
	b.conns[connID] = sub
	b.mu.Unlock()
	return sub.ch
}

// Join subscribes a connection to a conversation. Unknown connections
// are ignored. Joining twice is a no-op.
func (b *Broker) Join(connID, conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.conns[connID]
	if !ok {
		return
	}
	room, ok := b.rooms[conversationID]
	if !ok {
		room = make(map[string]*subscriber)
		b.rooms[conversationID] = room
	}
	room[connID] = sub
	sub.rooms[conversationID] = struct{}{}
}

// Leave unsubscribes a connection from a conversation.
func (b *Broker) Leave(connID, conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.conns[connID]
	if !ok {
		return
	}
	b.leaveLocked(sub, conversationID)
}

// Disconnect removes a connection from every conversation it joined and
// forgets it. Called implicitly when the underlying connection closes.
func (b *Broker) Disconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.conns[connID]
	if !ok {
		return
	}
	b.removeLocked(sub)
}

// Publish delivers the event to every connection currently joined to the
// event's conversation, and only those. The subscriber set is snapshotted
// atomically at publish time. Returns the number of connections the
// event was queued for.
func (b *Broker) Publish(evt Event) int {
	b.mu.RLock()
	room := b.rooms[evt.ConversationID]
	snapshot := make([]*subscriber, 0, len(room))
	for _, sub := range room {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		select {
		case sub.ch <- evt:
			delivered++
		default:
			// Drop event if subscriber is full (non-blocking).
		}
	}
	return delivered
}

// Subscribers returns how many connections are joined to a conversation.
func (b *Broker) Subscribers(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[conversationID])
}

func (b *Broker) leaveLocked(sub *subscriber, conversationID string) {
	if room, ok := b.rooms[conversationID]; ok {
		delete(room, sub.id)
		if len(room) == 0 {
			delete(b.rooms, conversationID)
		}
	}
	delete(sub.rooms, conversationID)
}

func (b *Broker) removeLocked(sub *subscriber) {
	for conversationID := range sub.rooms {
		b.leaveLocked(sub, conversationID)
	}
	delete(b.conns, sub.id)
}
