package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks which connections listen on which room and user channels.
// Subscriptions are transient: a closed connection drops all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	users   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		users:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister removes the client from every channel and closes its send queue once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for roomID := range c.rooms {
		removeSubscriber(h.rooms, roomID, c)
	}
	if c.registeredAs != "" {
		removeSubscriber(h.users, c.registeredAs, c)
	}
	close(c.send)
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	addSubscriber(h.rooms, roomID, c)
	c.rooms[roomID] = struct{}{}
}

func (h *Hub) registerUser(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.registeredAs != "" {
		removeSubscriber(h.users, c.registeredAs, c)
	}
	addSubscriber(h.users, userID, c)
	c.registeredAs = userID
}

// PublishToRoom sends an event to every connection that joined the room.
func (h *Hub) PublishToRoom(roomID, event string, payload any) {
	h.publish(h.rooms, roomID, event, payload)
}

// PublishToUser sends an event to every connection registered for the user.
func (h *Hub) PublishToUser(userID, event string, payload any) {
	h.publish(h.users, userID, event, payload)
}

// RoomSubscribers reports how many connections joined the room.
func (h *Hub) RoomSubscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// UserSubscribers reports how many connections are registered for the user.
func (h *Hub) UserSubscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) publish(channels map[string]map[*Client]struct{}, key, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("[Realtime] failed to encode %s: %v", event, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range channels[key] {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("[Realtime] dropping slow connection of user %s", c.userID)
		h.unregister(c)
	}
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(outboundEvent{Event: event, Data: payload})
}

func addSubscriber(channels map[string]map[*Client]struct{}, key string, c *Client) {
	subs, ok := channels[key]
	if !ok {
		subs = make(map[*Client]struct{})
		channels[key] = subs
	}
	subs[c] = struct{}{}
}

func removeSubscriber(channels map[string]map[*Client]struct{}, key string, c *Client) {
	subs := channels[key]
	delete(subs, c)
	if len(subs) == 0 {
		delete(channels, key)
	}
}
