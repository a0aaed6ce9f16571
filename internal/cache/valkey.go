package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parking/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	availabilityKeyPrefix  = "zone:availability:"
	defaultAvailabilityTTL = 30 * time.Second
)

type Config struct {
	Enabled         bool
	Addr            string
	Password        string
	DB              int
	AvailabilityTTL time.Duration
}

// ValkeyClient caches rendered zone availability and mirrors notifier
// events onto pub/sub channels.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return newValkeyClient(rdb, cfg.AvailabilityTTL), nil
}

func newValkeyClient(rdb *redis.Client, ttl time.Duration) *ValkeyClient {
	if ttl <= 0 {
		ttl = defaultAvailabilityTTL
	}
	return &ValkeyClient{client: rdb, ttl: ttl}
}

func availabilityKey(zoneID int64) string {
	return availabilityKeyPrefix + strconv.FormatInt(zoneID, 10)
}

// GetZoneAvailability returns nil, nil on a miss.
func (v *ValkeyClient) GetZoneAvailability(ctx context.Context, zoneID int64) (*models.ZoneAvailabilityResponse, error) {
	data, err := v.client.Get(ctx, availabilityKey(zoneID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}

	var resp models.ZoneAvailabilityResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid availability in cache: %w", err)
	}
	return &resp, nil
}

func (v *ValkeyClient) SetZoneAvailability(ctx context.Context, a *models.ZoneAvailabilityResponse) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	if err := v.client.Set(ctx, availabilityKey(a.ZoneID), data, v.ttl).Err(); err != nil {
		return fmt.Errorf("cache write error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) InvalidateZone(ctx context.Context, zoneID int64) error {
	if err := v.client.Del(ctx, availabilityKey(zoneID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate error: %w", err)
	}
	return nil
}

// PublishEvent publishes the event on its subject channel. Zone events are
// also published on a per-zone channel for dashboards that watch one zone.
func (v *ValkeyClient) PublishEvent(ctx context.Context, e models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := v.client.Pipeline()
	pipe.Publish(ctx, e.Subject(), data)
	pipe.Publish(ctx, ZoneChannel(e.ZoneID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// ZoneChannel is the pub/sub channel carrying every event of one zone.
func ZoneChannel(zoneID int64) string {
	return models.SubjectPrefix + "zone." + strconv.FormatInt(zoneID, 10)
}

func (v *ValkeyClient) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
