package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patchmon/patchmon/internal/store/models"
)

// RedisStore implements the Store interface using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore initializes a new RedisStore instance.
func NewRedisStore(cfg *Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisStore{client: rdb}, nil
}

// Initialize sets up necessary Redis structures if needed.
func (r *RedisStore) Initialize(ctx context.Context) error {
	// Redis is schema-less; nothing to create up front.
	return nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close(ctx context.Context) error {
	return r.client.Close()
}

func alertKey(id string) string {
	return fmt.Sprintf("alert:%s", id)
}

// UpsertDetection inserts or refreshes an alert. The detection batch is the
// only writer of detection fields, so a read-modify-write per key is
// sufficient; operator mutations touch disjoint fields through SetStatus.
func (r *RedisStore) UpsertDetection(ctx context.Context, alert models.UpdateAlert) (bool, error) {
	alert.ID = alert.Key()
	if alert.Status == "" {
		alert.Status = models.StatusNew
	}

	key := alertKey(alert.ID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}

	created := err == redis.Nil
	if !created {
		var stored models.UpdateAlert
		if err := json.Unmarshal([]byte(val), &stored); err != nil {
			return false, fmt.Errorf("failed to unmarshal stored UpdateAlert: %w", err)
		}
		applyDetection(&stored, &alert)
		alert = stored
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return false, fmt.Errorf("failed to marshal UpdateAlert: %w", err)
	}
	return created, r.client.Set(ctx, key, data, 0).Err()
}

// GetAlert retrieves a specific alert record.
func (r *RedisStore) GetAlert(ctx context.Context, id string) (models.UpdateAlert, error) {
	var alert models.UpdateAlert

	val, err := r.client.Get(ctx, alertKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return alert, ErrAlertNotFound
		}
		return alert, err
	}

	if err := json.Unmarshal([]byte(val), &alert); err != nil {
		return alert, err
	}
	return alert, nil
}

// loadAlerts retrieves all alert records matching the filter.
func (r *RedisStore) loadAlerts(ctx context.Context, filter models.AlertFilter) ([]models.UpdateAlert, error) {
	var alerts []models.UpdateAlert

	iter := r.client.Scan(ctx, 0, "alert:*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var alert models.UpdateAlert
		if err := json.Unmarshal([]byte(val), &alert); err != nil {
			continue
		}
		if filter.Matches(&alert) {
			alerts = append(alerts, alert)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

// ListAlerts retrieves a specific page of alerts and the total count.
func (r *RedisStore) ListAlerts(ctx context.Context, filter models.AlertFilter, page, perPage int) ([]models.UpdateAlert, int, error) {
	alerts, err := r.loadAlerts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return paginate(alerts, page, perPage), len(alerts), nil
}

// SetStatus updates the operator-owned fields of one alert.
func (r *RedisStore) SetStatus(ctx context.Context, id string, status models.Status, notes, resolvedBy string) (models.UpdateAlert, error) {
	alert, err := r.GetAlert(ctx, id)
	if err != nil {
		return alert, err
	}

	stampResolution(&alert, status, notes, resolvedBy, time.Now())

	data, err := json.Marshal(alert)
	if err != nil {
		return alert, fmt.Errorf("failed to marshal UpdateAlert: %w", err)
	}
	return alert, r.client.Set(ctx, alertKey(id), data, 0).Err()
}

// DeleteAlert removes an alert record.
func (r *RedisStore) DeleteAlert(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, alertKey(id)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Stats returns aggregate alert counts.
func (r *RedisStore) Stats(ctx context.Context) (models.StatsResponse, error) {
	alerts, err := r.loadAlerts(ctx, models.AlertFilter{})
	if err != nil {
		return models.StatsResponse{}, err
	}
	return computeStats(alerts, time.Now()), nil
}
