package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/wisteria-social/federation/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event domain.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime streams accepted entities to output until ctx is done. The input
// channel updates the set of entity type names the caller wants; an empty
// set means everything.
func (s *SignalService) Realtime(ctx context.Context, input chan []string, output chan domain.Event) {

	pubsub := s.rdb.Subscribe(ctx, domain.ChannelEntities)
	defer pubsub.Close()

	filter := map[string]bool{}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case types, ok := <-input:
			if !ok {
				return
			}
			filter = map[string]bool{}
			for _, t := range types {
				filter[t] = true
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.Event
			err := json.Unmarshal([]byte(msg.Payload), &event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Failed to unmarshal event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			if len(filter) > 0 && !filter[event.EntityType] {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
