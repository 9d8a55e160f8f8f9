// Package hub provides topic-based fan-out of lead lifecycle events to
// live subscribers over Server-Sent Events.
package hub

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"directory_backend/internal/identity"
	"directory_backend/platform/httpkit"
	"directory_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Kind identifies the type of a pushed event.
type Kind string

const (
	KindLeadCreated     Kind = "lead.created"
	KindLeadUpdated     Kind = "lead.updated"
	KindLeadAssigned    Kind = "lead.assigned"
	KindBusinessUpdated Kind = "business.updated"
)

// BusinessTopic is the feed carrying every event for one business.
func BusinessTopic(businessID uuid.UUID) string {
	return "business:" + businessID.String()
}

// UserTopic is the feed carrying events addressed to one handler.
func UserTopic(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Event is a single pushed notification.
type Event struct {
	Kind    Kind        `json:"kind"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload,omitempty"`
}

// Subscriber is one connected consumer. Its channel is buffered; a
// subscriber that cannot keep up has events dropped rather than stalling
// the publisher.
type Subscriber struct {
	events chan Event
}

// Events exposes the receive side of the subscriber's feed.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Hub fans published events out to every subscriber of a topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
	subs   map[*Subscriber]map[string]struct{}
	closed bool
	log    *logger.Logger
}

func New(log *logger.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscriber]struct{}),
		subs:   make(map[*Subscriber]map[string]struct{}),
		log:    log,
	}
}

// NewSubscriber registers a new consumer with no topics yet.
func (h *Hub) NewSubscriber() *Subscriber {
	sub := &Subscriber{events: make(chan Event, 32)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
		return sub
	}
	h.subs[sub] = make(map[string]struct{})
	return sub
}

// Subscribe attaches the subscriber to a topic. Subscribing twice to the
// same topic is a no-op; the subscriber still receives each event once.
func (h *Hub) Subscribe(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics, ok := h.subs[sub]
	if !ok {
		return
	}
	if _, already := topics[topic]; already {
		return
	}
	topics[topic] = struct{}{}

	members, ok := h.topics[topic]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.topics[topic] = members
	}
	members[sub] = struct{}{}
}

// Unsubscribe detaches the subscriber from a single topic.
func (h *Hub) Unsubscribe(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(sub, topic)
}

// UnsubscribeAll detaches the subscriber from every topic and closes its
// feed. Safe to call more than once.
func (h *Hub) UnsubscribeAll(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics, ok := h.subs[sub]
	if !ok {
		return
	}
	for topic := range topics {
		h.detach(sub, topic)
	}
	delete(h.subs, sub)
	close(sub.events)
}

// detach removes a single membership. Caller holds the lock.
func (h *Hub) detach(sub *Subscriber, topic string) {
	if topics, ok := h.subs[sub]; ok {
		delete(topics, topic)
	}
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

// Publish delivers an event to every current subscriber of the topic.
// Delivery is at most once and never blocks; a full subscriber buffer
// means that subscriber misses the event.
func (h *Hub) Publish(topic string, kind Kind, payload interface{}) {
	event := Event{Kind: kind, Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for sub := range h.topics[topic] {
		select {
		case sub.events <- event:
		default:
			h.log.Warn("notification buffer full, dropping event", "topic", topic, "kind", kind)
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close shuts down the hub and every subscriber feed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		close(sub.events)
	}
	h.topics = make(map[string]map[*Subscriber]struct{})
	h.subs = make(map[*Subscriber]map[string]struct{})
}

// Handler returns the SSE endpoint. Topics come from the repeated "topic"
// query parameter. A caller may watch any business feed it is authenticated
// for, but a user feed only for itself unless it holds the admin role.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := httpkit.GetIdentity(c)
		if !id.IsAuthenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		requested := c.QueryArray("topic")
		if len(requested) == 0 {
			requested = []string{UserTopic(id.UserID())}
		}

		topics := make([]string, 0, len(requested))
		for _, topic := range requested {
			if !allowedTopic(topic, id) {
				c.JSON(http.StatusForbidden, gin.H{"error": "topic not permitted: " + topic})
				return
			}
			topics = append(topics, topic)
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		sub := h.NewSubscriber()
		for _, topic := range topics {
			h.Subscribe(sub, topic)
		}
		defer h.UnsubscribeAll(sub)

		c.SSEvent("connected", gin.H{"topics": topics})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-sub.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					h.log.Error("notification event not serializable", "kind", event.Kind, "topic", event.Topic, "error", err)
					continue
				}
				c.SSEvent(string(event.Kind), string(data))
				c.Writer.Flush()
			}
		}
	}
}

func allowedTopic(topic string, id httpkit.Identity) bool {
	switch {
	case strings.HasPrefix(topic, "business:"):
		return true
	case strings.HasPrefix(topic, "user:"):
		if id.HasRole(identity.RoleAdmin) {
			return true
		}
		return topic == UserTopic(id.UserID())
	default:
		return false
	}
}
