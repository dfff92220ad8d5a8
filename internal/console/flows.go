package console

import (
	"context"
	"errors"
	"fmt"

	"ssomgr/internal/domain"
	"ssomgr/internal/observability"
	"ssomgr/internal/validation"
)

// ErrNotConfirmed indicates a destructive operation was not confirmed.
var ErrNotConfirmed = errors.New("operation not confirmed")

// ProviderFlows implements the provider management flows over a Backend.
type ProviderFlows struct {
	backend  Backend
	notifier *Notifier
	logger   observability.Logger
}

// NewProviderFlows creates the provider management flows.
func NewProviderFlows(backend Backend, notifier *Notifier, logger observability.Logger) *ProviderFlows {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &ProviderFlows{
		backend:  backend,
		notifier: notifier,
		logger:   logger.WithComponent("flows"),
	}
}

// List returns the provider collection.
func (f *ProviderFlows) List(ctx context.Context) []domain.ProviderConfig {
	return f.backend.ListProviders(ctx)
}

// Get returns a single provider, or nil when absent.
func (f *ProviderFlows) Get(ctx context.Context, id string) *domain.ProviderConfig {
	return f.backend.GetProvider(ctx, id)
}

// Create validates and submits a new provider record.
func (f *ProviderFlows) Create(ctx context.Context, in domain.CreateProvider) (*domain.ProviderConfig, error) {
	if errs := validation.ValidateCreate(in); len(errs) > 0 {
		err := validation.Join(errs)
		f.notifier.Error("cannot create provider: %v", err)
		return nil, err
	}

	created, err := f.backend.CreateProvider(ctx, in)
	if err != nil {
		f.notifier.Error("create failed: %v", err)
		return nil, err
	}
	f.notifier.Success("created provider %s (%s)", created.Name, created.ID)
	return created, nil
}

// Edit loads a provider, applies the update and saves it back. Unset update
// fields leave the stored values untouched.
func (f *ProviderFlows) Edit(ctx context.Context, id string, in domain.UpdateProvider) (*domain.ProviderConfig, error) {
	existing := f.backend.GetProvider(ctx, id)
	if existing == nil {
		err := fmt.Errorf("provider %s not found", id)
		f.notifier.Error("%v", err)
		return nil, err
	}

	updated := existing.Clone()
	if in.Name != nil {
		updated.Name = *in.Name
	}
	if in.Type != nil {
		updated.Type = *in.Type
	}
	if in.Logo != nil {
		updated.Logo = *in.Logo
	}
	if in.IsEnabled != nil {
		updated.IsEnabled = *in.IsEnabled
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Config != nil {
		cfg := make(map[string]string, len(*in.Config))
		for k, v := range *in.Config {
			cfg[k] = v
		}
		updated.Config = cfg
	}

	if errs := validation.ValidateProvider(updated); len(errs) > 0 {
		err := validation.Join(errs)
		f.notifier.Error("cannot save provider: %v", err)
		return nil, err
	}

	if err := f.backend.SaveProvider(ctx, updated); err != nil {
		f.notifier.Error("save failed: %v", err)
		return nil, err
	}
	f.notifier.Success("updated provider %s", updated.Name)
	return &updated, nil
}

// Delete removes a provider after confirmation. The returned list reflects
// the outcome: it is updated optimistically and rolled back to the prior
// collection if the backend delete fails.
func (f *ProviderFlows) Delete(ctx context.Context, list []domain.ProviderConfig, id string, confirmed bool) ([]domain.ProviderConfig, error) {
	if !confirmed {
		f.notifier.Info("delete aborted")
		return list, ErrNotConfirmed
	}

	var target *domain.ProviderConfig
	updated := make([]domain.ProviderConfig, 0, len(list))
	for _, p := range list {
		if p.ID == id {
			cpy := p.Clone()
			target = &cpy
			continue
		}
		updated = append(updated, p)
	}
	if target == nil {
		err := fmt.Errorf("provider %s not found", id)
		f.notifier.Error("%v", err)
		return list, err
	}

	if err := f.backend.DeleteProvider(ctx, id); err != nil {
		f.logger.Warn("delete rolled back", "provider", id, "error", err)
		f.notifier.Error("delete failed, restoring %s: %v", target.Name, err)
		return list, err
	}

	f.notifier.Success("deleted provider %s", target.Name)
	return updated, nil
}

// Stats returns the dashboard counters.
func (f *ProviderFlows) Stats(ctx context.Context) domain.DashboardStats {
	return f.backend.Stats(ctx)
}
