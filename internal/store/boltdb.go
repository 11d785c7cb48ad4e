package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/patchmon/patchmon/internal/store/models"
	"go.etcd.io/bbolt"
)

var alertsBucket = []byte("UpdateAlerts")

// BoltStore implements the Store interface using bbolt.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore initializes a new BoltStore instance.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	bs := &BoltStore{
		db:   db,
		path: path,
	}

	if err := bs.Initialize(context.TODO()); err != nil {
		return nil, err
	}

	return bs, nil
}

// Initialize sets up the necessary buckets.
func (b *BoltStore) Initialize(ctx context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(alertsBucket)
		if err != nil {
			return fmt.Errorf("create UpdateAlerts bucket: %w", err)
		}
		return nil
	})
}

func (b *BoltStore) Close(ctx context.Context) error {
	return b.db.Close()
}

// UpsertDetection inserts or refreshes an alert inside a single write
// transaction, so concurrent runs against the same file cannot duplicate a
// key pair.
func (b *BoltStore) UpsertDetection(ctx context.Context, alert models.UpdateAlert) (bool, error) {
	alert.ID = alert.Key()
	if alert.Status == "" {
		alert.Status = models.StatusNew
	}

	created := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(alertsBucket)

		existing := bucket.Get([]byte(alert.ID))
		if existing == nil {
			created = true
			data, err := json.Marshal(alert)
			if err != nil {
				return fmt.Errorf("failed to marshal UpdateAlert: %w", err)
			}
			return bucket.Put([]byte(alert.ID), data)
		}

		var stored models.UpdateAlert
		if err := json.Unmarshal(existing, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal stored UpdateAlert: %w", err)
		}

		applyDetection(&stored, &alert)

		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal UpdateAlert: %w", err)
		}
		return bucket.Put([]byte(alert.ID), data)
	})

	return created, err
}

// GetAlert retrieves a specific alert record.
func (b *BoltStore) GetAlert(ctx context.Context, id string) (models.UpdateAlert, error) {
	var alert models.UpdateAlert

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(alertsBucket).Get([]byte(id))
		if data == nil {
			return ErrAlertNotFound
		}
		return json.Unmarshal(data, &alert)
	})

	return alert, err
}

// loadAlerts returns every alert matching the filter, sorted by key for a
// stable listing order.
func (b *BoltStore) loadAlerts(filter models.AlertFilter) ([]models.UpdateAlert, error) {
	var alerts []models.UpdateAlert

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(alertsBucket).ForEach(func(k, v []byte) error {
			var alert models.UpdateAlert
			if err := json.Unmarshal(v, &alert); err != nil {
				return fmt.Errorf("failed to unmarshal UpdateAlert %s: %w", k, err)
			}
			if filter.Matches(&alert) {
				alerts = append(alerts, alert)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

// ListAlerts retrieves a specific page of alerts and the total count.
func (b *BoltStore) ListAlerts(ctx context.Context, filter models.AlertFilter, page, perPage int) ([]models.UpdateAlert, int, error) {
	alerts, err := b.loadAlerts(filter)
	if err != nil {
		return nil, 0, err
	}
	return paginate(alerts, page, perPage), len(alerts), nil
}

// SetStatus updates the operator-owned fields of one alert.
func (b *BoltStore) SetStatus(ctx context.Context, id string, status models.Status, notes, resolvedBy string) (models.UpdateAlert, error) {
	var alert models.UpdateAlert

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(alertsBucket)

		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrAlertNotFound
		}
		if err := json.Unmarshal(data, &alert); err != nil {
			return fmt.Errorf("failed to unmarshal UpdateAlert: %w", err)
		}

		stampResolution(&alert, status, notes, resolvedBy, time.Now())

		updated, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to marshal UpdateAlert: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})

	return alert, err
}

// DeleteAlert removes an alert record.
func (b *BoltStore) DeleteAlert(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(alertsBucket)
		if bucket.Get([]byte(id)) == nil {
			return ErrAlertNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

// Stats returns aggregate alert counts.
func (b *BoltStore) Stats(ctx context.Context) (models.StatsResponse, error) {
	alerts, err := b.loadAlerts(models.AlertFilter{})
	if err != nil {
		return models.StatsResponse{}, err
	}
	return computeStats(alerts, time.Now()), nil
}

// paginate slices out one page; page starts at 1.
func paginate(alerts []models.UpdateAlert, page, perPage int) []models.UpdateAlert {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	start := (page - 1) * perPage
	if start >= len(alerts) {
		return []models.UpdateAlert{}
	}
	end := start + perPage
	if end > len(alerts) {
		end = len(alerts)
	}
	return alerts[start:end]
}

// computeStats aggregates counts over a full alert set.
func computeStats(alerts []models.UpdateAlert, now time.Time) models.StatsResponse {
	stats := models.StatsResponse{
		TotalAlerts: len(alerts),
		ByStatus:    make(map[models.Status]int),
		ByPriority:  make(map[models.Priority]int),
	}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for i := range alerts {
		stats.ByStatus[alerts[i].Status]++
		stats.ByPriority[alerts[i].Priority]++
		if alerts[i].CheckDate.After(weekAgo) {
			stats.AlertsLast7Days++
		}
	}
	return stats
}
