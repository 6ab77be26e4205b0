package presence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// onlineSetKey is the redis set holding online user ids.
const onlineSetKey = "presence:online"

// RedisStatus keeps online flags in a redis set, so that other services can
// read presence without touching the chat server's database.
type RedisStatus struct {
	rdb *redis.Client
}

// NewRedisStatus connects to redis at addr and verifies the connection.
func NewRedisStatus(ctx context.Context, addr string) (*RedisStatus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStatus{rdb: rdb}, nil
}

// SetOnline adds or removes the user from the online set.
func (s *RedisStatus) SetOnline(ctx context.Context, userID int64, online bool) error {
	member := strconv.FormatInt(userID, 10)
	if online {
		if err := s.rdb.SAdd(ctx, onlineSetKey, member).Err(); err != nil {
			return fmt.Errorf("sadd online: %w", err)
		}
		return nil
	}
	if err := s.rdb.SRem(ctx, onlineSetKey, member).Err(); err != nil {
		return fmt.Errorf("srem online: %w", err)
	}
	return nil
}

// OnlineUserIDs returns the members of the online set.
func (s *RedisStatus) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	members, err := s.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers online: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases the redis connection.
func (s *RedisStatus) Close() error {
	return s.rdb.Close()
}
