package backend

import (
	"context"

	"github.com/waabox/autofixdeck/internal/domain"
)

// PollingConfig fetches the backend polling intervals.
func (a *Adapter) PollingConfig(ctx context.Context) (domain.PollingConfig, error) {
	var cfg domain.PollingConfig
	if err := a.client.Get(ctx, "/config/polling", &cfg); err != nil {
		return domain.PollingConfig{}, err
	}
	return cfg, nil
}

// UpdatePollingConfig sends the non-zero intervals of update to the backend.
func (a *Adapter) UpdatePollingConfig(ctx context.Context, update domain.PollingConfig) error {
	return a.client.Put(ctx, "/config/polling", update, nil)
}

// AppConfig fetches the sanitized application configuration.
func (a *Adapter) AppConfig(ctx context.Context) (domain.AppConfig, error) {
	var cfg domain.AppConfig
	if err := a.client.Get(ctx, "/config/app", &cfg); err != nil {
		return domain.AppConfig{}, err
	}
	return cfg, nil
}
