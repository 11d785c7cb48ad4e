package patchmon

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/patchmon/patchmon/internal/store"
	"github.com/patchmon/patchmon/internal/store/models"
)

// Persister saves detection results through the store's upsert, one record
// at a time so a single bad save cannot abort the rest of the batch.
type Persister struct {
	store store.Store
}

func NewPersister(s store.Store) *Persister {
	return &Persister{store: s}
}

// Save upserts every result and returns how many were written. An error is
// returned only when there were results and not one of them could be saved,
// which indicates the store itself is down.
func (p *Persister) Save(ctx context.Context, alerts []models.UpdateAlert) (int, error) {
	saved := 0
	var firstErr error

	for i := range alerts {
		created, err := p.store.UpsertDetection(ctx, alerts[i])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.WithError(err).WithField("alert", alerts[i].Key()).Error("Failed to save alert")
			continue
		}
		saved++
		if created {
			logrus.WithFields(logrus.Fields{
				"alert":    alerts[i].Key(),
				"priority": alerts[i].Priority,
			}).Debug("Alert created")
		}
	}

	if saved == 0 && len(alerts) > 0 && firstErr != nil {
		return 0, fmt.Errorf("failed to save any of %d alerts: %w", len(alerts), firstErr)
	}
	return saved, nil
}
