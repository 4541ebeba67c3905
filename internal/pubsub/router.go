package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatline/internal/observability"
)

const channel = "chatline:relay"

// Router fans relay deliveries out to sibling instances over a shared redis
// channel. Every instance subscribes to the same channel and filters by the
// envelope's origin field.
type Router struct {
	client     *redis.Client
	instanceID string
}

func New(client *redis.Client, instanceID string) *Router {
	return &Router{client: client, instanceID: instanceID}
}

func (r *Router) Publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *Router) Subscribe(ctx context.Context, handler func([]byte)) {
	pubsub := r.client.Subscribe(ctx, channel)

	go func() {
		log := observability.GetLogger(ctx)
		log.Info("router: subscribed to channel", zap.String("channel", channel))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("router: subscription loop stopping: context canceled")
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("router: pubsub channel closed")
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
}
