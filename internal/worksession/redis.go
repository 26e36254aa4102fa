package worksession

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore keeps the active-proposal pointer in redis so it survives
// process restarts and is shared across replicas.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func redisKey(staffID snowflake.ID) string {
	return fmt.Sprintf("worksession:active:%s", staffID.String())
}

func (s *redisStore) Set(ctx context.Context, staffID, proposalID snowflake.ID) error {
	return s.client.Set(ctx, redisKey(staffID), proposalID.String(), DefaultTTL).Err()
}

func (s *redisStore) Get(ctx context.Context, staffID snowflake.ID) (snowflake.ID, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(staffID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return snowflake.ID(id), true, nil
}

func (s *redisStore) Clear(ctx context.Context, staffID snowflake.ID) error {
	return s.client.Del(ctx, redisKey(staffID)).Err()
}
