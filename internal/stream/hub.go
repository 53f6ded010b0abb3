package stream

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TopicHazards carries the full active-hazard snapshot on every ledger change.
const TopicHazards = "hazards"

// TripTopic is the per-trip alert/telemetry channel.
func TripTopic(sessionID string) string {
	return "trip:" + sessionID
}

// Hub fans payloads out to websocket clients subscribed by topic. With a
// redis client attached, broadcasts also cross instance boundaries via
// pub/sub.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Topic string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
	}
	close(client.Send)
}

// Broadcast publishes through redis when attached so every instance's
// subscriber loop delivers exactly once; standalone hubs deliver directly.
func (h *Hub) Broadcast(topic string, payload []byte) {
	if h.redis == nil {
		h.deliver(topic, payload)
		return
	}

	err := h.redis.Publish(context.Background(), redisChannel(topic), payload).Err()
	if err != nil {
		log.Printf("redis publish error: %v", err)
		h.deliver(topic, payload)
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	// Hold the read lock across the sends so Unregister cannot close a
	// channel mid-delivery. Sends never block: slow clients drop messages.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "events:*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(topicFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(topic string) string {
	return "events:" + topic
}

func topicFromChannel(ch string) string {
	// events:{topic}
	const prefix = "events:"
	if !strings.HasPrefix(ch, prefix) || len(ch) == len(prefix) {
		return ""
	}
	return ch[len(prefix):]
}
