package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelUserEvents = "user_events"
)

// 事件类型
const (
	EventSubscriptionActivated = "subscription_activated"
	EventWalletCredited        = "wallet_credited"
	EventWithdrawalRequested   = "withdrawal_requested"
	EventPointsAwarded         = "points_awarded"
)

// Event 推送给用户的事件
type Event struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewEvent 构造事件，data 为空时不携带
func NewEvent(eventType, userID, message string, data interface{}) (*Event, error) {
	evt := &Event{Type: eventType, UserID: userID, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event data: %w", err)
		}
		evt.Data = raw
	}
	return evt, nil
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布用户事件
func (p *Publisher) Publish(ctx context.Context, evt *Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelUserEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅用户事件，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	pubsub := s.client.Subscribe(ctx, ChannelUserEvents)
	defer pubsub.Close()

	// 等待订阅确认，保证返回前不会丢失随后发布的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue // 忽略解析错误
			}

			handler(&evt)
		}
	}
}
