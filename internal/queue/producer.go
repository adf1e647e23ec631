package queue

import (
	"context"
	"encoding/json"

	"school-admin-core/internal/config"
	"school-admin-core/internal/model"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	queue  string
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		queue:  cfg.Redis.BatchQueue,
	}
}

func (p *Producer) EnqueueSheetJob(ctx context.Context, job model.SheetJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}

// Pending reports how many sheet jobs are waiting to be picked up.
func (p *Producer) Pending(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queue).Result()
}
