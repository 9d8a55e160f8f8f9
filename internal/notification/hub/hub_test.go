package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"directory_backend/platform/httpkit"
	"directory_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestHub() *Hub {
	return New(logger.New("test"))
}

func TestPublishReachesTopicSubscribers(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	businessID := uuid.New()
	topic := BusinessTopic(businessID)

	sub := h.NewSubscriber()
	h.Subscribe(sub, topic)

	h.Publish(topic, KindLeadCreated, map[string]string{"leadId": "abc"})

	select {
	case event := <-sub.Events():
		if event.Kind != KindLeadCreated {
			t.Errorf("kind = %s, want lead.created", event.Kind)
		}
		if event.Topic != topic {
			t.Errorf("topic = %s, want %s", event.Topic, topic)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	sub := h.NewSubscriber()
	h.Subscribe(sub, BusinessTopic(uuid.New()))

	h.Publish(BusinessTopic(uuid.New()), KindLeadUpdated, nil)

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event %+v for foreign topic", event)
	default:
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	topic := UserTopic(uuid.New())
	sub := h.NewSubscriber()
	h.Subscribe(sub, topic)
	h.Subscribe(sub, topic)

	h.Publish(topic, KindLeadAssigned, nil)

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != 1 {
		t.Errorf("received %d events, want exactly 1 after double subscribe", received)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	topic := BusinessTopic(uuid.New())
	slow := h.NewSubscriber()
	h.Subscribe(slow, topic)

	// Saturate the buffer and then some; Publish must never block.
	for i := 0; i < 100; i++ {
		h.Publish(topic, KindLeadUpdated, i)
	}

	drained := 0
	for {
		select {
		case <-slow.Events():
			drained++
			continue
		default:
		}
		break
	}
	if drained != cap(slow.events) {
		t.Errorf("drained %d events, want buffer capacity %d", drained, cap(slow.events))
	}
}

func TestUnsubscribeAllClosesFeed(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	topic := BusinessTopic(uuid.New())
	sub := h.NewSubscriber()
	h.Subscribe(sub, topic)

	h.UnsubscribeAll(sub)
	h.UnsubscribeAll(sub) // second call must be safe

	if _, open := <-sub.Events(); open {
		t.Fatal("feed still open after UnsubscribeAll")
	}
	if got := h.SubscriberCount(topic); got != 0 {
		t.Errorf("SubscriberCount = %d, want 0", got)
	}

	// Publishing to the departed topic must not panic.
	h.Publish(topic, KindLeadUpdated, nil)
}

func TestCloseShutsDownAllSubscribers(t *testing.T) {
	h := newTestHub()

	a := h.NewSubscriber()
	b := h.NewSubscriber()
	h.Subscribe(a, BusinessTopic(uuid.New()))
	h.Subscribe(b, UserTopic(uuid.New()))

	h.Close()
	h.Close() // idempotent

	if _, open := <-a.Events(); open {
		t.Error("subscriber a still open after Close")
	}
	if _, open := <-b.Events(); open {
		t.Error("subscriber b still open after Close")
	}
}

func TestHandlerSkipsUnserializableEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHub()

	topic := BusinessTopic(uuid.New())

	router := gin.New()
	router.GET("/notifications/stream", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
	}, h.Handler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream?topic="+topic, nil)

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed to the requested topic")
		}
		time.Sleep(time.Millisecond)
	}

	// A payload json cannot encode must not produce an empty frame.
	h.Publish(topic, KindLeadUpdated, map[string]interface{}{"oops": make(chan int)})
	h.Publish(topic, KindLeadCreated, map[string]string{"leadId": "abc"})

	// Closing the hub closes the feed; the stream drains what is buffered
	// and returns.
	h.Close()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, string(KindLeadCreated)) {
		t.Errorf("stream missing the serializable event, body = %q", body)
	}
	if strings.Contains(body, string(KindLeadUpdated)) {
		t.Errorf("stream carries a frame for the unserializable event, body = %q", body)
	}
}
