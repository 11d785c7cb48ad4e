package patchmon

import (
	"context"
	"fmt"

	"github.com/patchmon/patchmon/internal/store/models"
)

// The webserver talks to the Monitor, not to the store directly; these
// pass-throughs keep that boundary in one place.

// ListAlertsPaginated retrieves a page of alerts and the total match count.
func (m *Monitor) ListAlertsPaginated(ctx context.Context, filter models.AlertFilter, page, perPage int) ([]models.UpdateAlert, int, error) {
	alerts, total, err := m.Config.Store.ListAlerts(ctx, filter, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load paginated alerts: %w", err)
	}
	return alerts, total, nil
}

// GetAlert retrieves one alert by its composite key.
func (m *Monitor) GetAlert(ctx context.Context, id string) (models.UpdateAlert, error) {
	return m.Config.Store.GetAlert(ctx, id)
}

// SetAlertStatus applies an operator status/notes mutation.
func (m *Monitor) SetAlertStatus(ctx context.Context, id string, status models.Status, notes, resolvedBy string) (models.UpdateAlert, error) {
	if !models.ValidStatus(status) {
		return models.UpdateAlert{}, fmt.Errorf("invalid status: %q", status)
	}
	return m.Config.Store.SetStatus(ctx, id, status, notes, resolvedBy)
}

// DeleteAlert removes one alert.
func (m *Monitor) DeleteAlert(ctx context.Context, id string) error {
	return m.Config.Store.DeleteAlert(ctx, id)
}

// GetStats retrieves the current statistics from the store.
func (m *Monitor) GetStats(ctx context.Context) (models.StatsResponse, error) {
	stats, err := m.Config.Store.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get alert stats: %w", err)
	}
	return stats, nil
}
