package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	redisRepo "github.com/map-location-service/internal/repository/redis"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStreamRepository_PublishToStream(t *testing.T) {
	client, _ := newTestClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	ctx := context.Background()

	event := domain.LocationSelectedEvent{
		EventID:   uuid.New(),
		SessionID: uuid.New(),
		Location: domain.ResolvedLocation{
			Point:      domain.GeoPoint{Lat: 41.6, Lng: 41.65},
			Address:    "Port, Batumi",
			Source:     "osm-static",
			ResolvedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		OccurredAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.PublishToStream(ctx, domain.StreamLocationSelected, event))

	messages, err := client.XRange(ctx, domain.StreamLocationSelected, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	data, ok := messages[0].Values["data"].(string)
	require.True(t, ok, "message must contain 'data' field")

	var decoded domain.LocationSelectedEvent
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.SessionID, decoded.SessionID)
	assert.Equal(t, event.Location.Point, decoded.Location.Point)
	assert.Equal(t, "Port, Batumi", decoded.Location.Address)
}

func TestStreamRepository_PublishToStream_MaxLen(t *testing.T) {
	client, _ := newTestClient(t)
	repo := redisRepo.NewStreamRepository(client, 5, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, repo.PublishToStream(ctx, "test:stream", map[string]int{"n": i}))
	}

	length, err := client.XLen(ctx, "test:stream").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(20))
	assert.Greater(t, length, int64(0))
}

func TestStreamRepository_PublishToStream_MarshalError(t *testing.T) {
	client, _ := newTestClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())

	err := repo.PublishToStream(context.Background(), "test:stream", map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestStreamRepository_PublishToStream_ServerDown(t *testing.T) {
	client, mr := newTestClient(t)
	repo := redisRepo.NewStreamRepository(client, 0, zap.NewNop())
	mr.Close()

	err := repo.PublishToStream(context.Background(), "test:stream", map[string]int{"n": 1})
	assert.Error(t, err)
}
