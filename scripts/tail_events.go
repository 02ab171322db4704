//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/map-location-service/internal/domain"
)

// Печатает события выбора локации из стрима по мере поступления.
// Запуск: go run scripts/tail_events.go -redis localhost:6379
func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	stream := flag.String("stream", domain.StreamLocationSelected, "Stream name")
	fromStart := flag.Bool("from-start", false, "Read the stream from the beginning")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	lastID := "$"
	if *fromStart {
		lastID = "0"
	}

	fmt.Printf("Listening on %s (Ctrl+C to stop)\n\n", *stream)

	for {
		results, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{*stream, lastID},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.Printf("XREAD failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range results {
			for _, msg := range s.Messages {
				lastID = msg.ID

				data, ok := msg.Values["data"].(string)
				if !ok {
					fmt.Printf("%s: message without data field\n", msg.ID)
					continue
				}

				var event domain.LocationSelectedEvent
				if err := json.Unmarshal([]byte(data), &event); err != nil {
					fmt.Printf("%s: malformed event: %v\n", msg.ID, err)
					continue
				}

				fmt.Printf("%s  session=%s  source=%s\n", msg.ID, event.SessionID, event.Location.Source)
				fmt.Printf("   %s\n", event.Location.Address)
				fmt.Printf("   %s at %s\n\n", event.Location.Point, event.OccurredAt.Format(time.RFC3339))
			}
		}
	}
}
