package consumers

import (
	"context"
	"fmt"

	"parking/internal/cache"
	"parking/internal/config"
	"parking/internal/database"
	"parking/internal/jobs"
	"parking/internal/logger"
	"parking/internal/messaging"
	"parking/internal/models"
	"parking/internal/repository"
	"parking/internal/search"
	"parking/internal/service"

	"github.com/nats-io/stan.go"
)

const queueGroup = "parking-consumers"

// subjects the projections listen to
var subjects = []string{
	models.EventHoldCreated,
	models.EventHoldConfirmed,
	models.EventHoldCancelled,
	models.EventHoldExpired,
	models.EventHoldRescheduled,
	models.EventCheckIn,
	models.EventCheckOut,
	models.EventZoneUpdated,
}

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	handlers *Handlers
	sweeper  *jobs.HoldExpirationJob
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	cs := &ConsumerService{db: db, nats: natsClient}
	store := repository.NewPostgresStore(db)

	var zoneCache ZoneCache
	if cfg.Valkey.Enabled {
		cs.valkey, err = cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			cs.close()
			return nil, err
		}
		zoneCache = cs.valkey
	}

	var index ZoneIndex
	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			cs.close()
			return nil, err
		}
		index = es
	}

	cs.handlers = NewHandlers(store, zoneCache, index)

	// Сборщик просроченных удержаний может работать здесь вместо API
	if cfg.SweeperEnabled {
		services := service.NewServices(service.Deps{
			Store:     store,
			Publisher: newStanPublisher(natsClient),
		}, cfg.Hold)
		cs.sweeper = jobs.NewHoldExpirationJob(services.Holds, services.Availability, nil, cfg.Hold.SweepInterval)
	}

	return cs, nil
}

func (cs *ConsumerService) Start(ctx context.Context) error {
	logger.Get().Info("Starting NATS consumers...")

	for _, eventType := range subjects {
		sub, err := cs.nats.SubscribeQueue(models.SubjectPrefix+eventType, queueGroup, cs.handlers.OnMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	if cs.sweeper != nil {
		cs.sweeper.Start(ctx)
	}

	logger.Get().Info("All consumers started successfully", "subjects", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	logger.Get().Info("Shutting down consumer service...")

	if cs.sweeper != nil {
		cs.sweeper.Stop()
	}
	// Durable подписки не отписываем, только закрываем соединение
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			logger.Get().Warn("Error closing subscription", "error", err)
		}
	}
	return cs.close()
}

func (cs *ConsumerService) close() error {
	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}
	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}
	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}
	return nil
}

// stanPublisher publishes sweep events straight to NATS. The consumers
// binary has no in-process subscribers.
type stanPublisher struct {
	nats *messaging.NATSClient
}

func newStanPublisher(nc *messaging.NATSClient) *stanPublisher {
	return &stanPublisher{nats: nc}
}

func (p *stanPublisher) Publish(events ...models.Event) {
	for _, e := range events {
		if err := p.nats.PublishEvent(context.Background(), e); err != nil {
			logger.Get().Error("Failed to publish event", "type", e.Type, "error", err)
		}
	}
}
