package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

const FanoutChannel = "gateway:fanout"

type redisRelay struct {
	cli     *redis.Client
	channel string
	l       logger.Logger
}

func NewRedisRelay(cli *redis.Client, l logger.Logger) Relay {
	return &redisRelay{
		cli:     cli,
		channel: FanoutChannel,
		l:       l,
	}
}

func (r *redisRelay) Publish(ctx context.Context, msg RelayMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.cli.Publish(ctx, r.channel, data).Err()
}

func (r *redisRelay) Subscribe(ctx context.Context, handle func(RelayMessage)) error {
	sub := r.cli.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var msg RelayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.l.Warnf(ctx, "gateway.redisRelay.Subscribe: %v", err)
				continue
			}
			handle(msg)
		}
	}
}
