package queue

import (
	"context"
	"errors"
	"time"

	"school-admin-core/internal/config"
	"school-admin-core/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type Consumer struct {
	client      *redis.Client
	queue       string
	dlq         string
	pollTimeout time.Duration
	log         zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client:      redisClient.Client(),
		queue:       cfg.Redis.BatchQueue,
		dlq:         cfg.Redis.BatchQueue + cfg.Redis.DLQSuffix,
		pollTimeout: 5 * time.Second,
		log:         logger.Component("queue_consumer"),
	}
}

// ConsumeBatchQueue blocks until ctx ends. Messages the handler rejects are
// pushed to the dead-letter queue, unless ctx has ended, in which case they
// are requeued.
func (c *Consumer) ConsumeBatchQueue(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, c.pollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Timeout, continue polling
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to consume message")
			time.Sleep(c.pollTimeout / 5)
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := result[1]
		if err := handler(ctx, []byte(message)); err != nil {
			if ctx.Err() != nil {
				// Shutting down: put the message back at the head for the next consumer.
				if rqErr := c.client.RPush(context.WithoutCancel(ctx), c.queue, message).Err(); rqErr != nil {
					c.log.Error().Err(rqErr).Str("queue", c.queue).Msg("Failed to requeue message")
				}
				return ctx.Err()
			}
			c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to process message")
			if dlqErr := c.client.LPush(context.WithoutCancel(ctx), c.dlq, message).Err(); dlqErr != nil {
				c.log.Error().Err(dlqErr).Str("dlq", c.dlq).Msg("Failed to move message to DLQ")
			}
		}
	}
}
