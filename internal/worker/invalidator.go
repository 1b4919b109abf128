package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elitestore/go-storefront/internal/events"
	kafkax "github.com/elitestore/go-storefront/internal/kafka"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Invalidator drops Redis cache entries in response to mutation events.
// Every API mutation publishes an explicit event; nothing invalidates
// caches as a hidden side effect.
type Invalidator struct {
	Redis *redis.Client
	Name  string // consumer name for dedup keys
}

// Handle is wired as the consumer handler for both the catalog and the
// order topics.
func (s *Invalidator) Handle(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// malformed message; log and commit rather than wedge the partition
		logrus.WithError(err).Warn("skipping undecodable event")
		return nil
	}

	// dedup on event id so redeliveries are no-ops
	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	var err error
	switch env.EventType {
	case events.EventCategoryChanged:
		err = s.invalidateCatalog(ctx, true)
	case events.EventProductChanged:
		err = s.invalidateCatalog(ctx, false)
	case events.EventOrderPaid:
		err = s.invalidateOrder(ctx, env.Payload)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	logrus.WithFields(logrus.Fields{
		"event_type": env.EventType,
		"event_id":   env.EventID,
	}).Debug("cache invalidated")
	return nil
}

func (s *Invalidator) invalidateCatalog(ctx context.Context, category bool) error {
	if category {
		if err := s.Redis.Del(ctx, redisx.KeyCacheCategories).Err(); err != nil {
			return err
		}
	}
	// product pages and featured listings embed product and category
	// fields, so both entity kinds wipe them
	return redisx.DeleteByPattern(ctx, s.Redis, redisx.PatternCacheProducts)
}

func (s *Invalidator) invalidateOrder(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[events.OrderPaidPayload](payload)
	if err != nil {
		return err
	}
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)).Err()
}
