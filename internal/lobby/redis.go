package lobby

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel projections are published to.
const DefaultChannel = "lobby:room_status"

// RedisDirectory publishes projections over Redis pub/sub for the lobby
// directory process to consume.
type RedisDirectory struct {
	client  *redis.Client
	channel string
}

// NewRedisDirectory connects to Redis at addr and publishes to channel.
func NewRedisDirectory(addr, channel string) (*RedisDirectory, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisDirectory{client: client, channel: channel}, nil
}

// UpdateRoomStatus publishes the update as JSON.
func (d *RedisDirectory) UpdateRoomStatus(ctx context.Context, update *RoomStatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode room status: %w", err)
	}
	if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish room status: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
