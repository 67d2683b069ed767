package instance

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/pkg/logging"
)

// resolverRepo is the lookup surface the resolver needs from the repository.
type resolverRepo interface {
	ByProviderName(ctx context.Context, name string) (*Instance, error)
	ByCustomName(ctx context.Context, name string) (*Instance, error)
	ByInstanceID(ctx context.Context, id string) (*Instance, error)
	ByInstanceIDPattern(ctx context.Context, name string) (*Instance, error)
	BackfillProviderName(ctx context.Context, id uuid.UUID, name string) error
}

// Resolver maps a gateway-supplied instance name to an internal record by
// trying successive lookup strategies. The first hit wins; hits found via a
// non-canonical path backfill the canonical name so the next webhook
// resolves on the first attempt.
type Resolver struct {
	repo   resolverRepo
	logger *logging.Logger
}

type strategy struct {
	name   string
	lookup func(ctx context.Context, name string) (*Instance, error)
}

func NewResolver(repo resolverRepo, logger *logging.Logger) *Resolver {
	if repo == nil {
		panic("instance: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve runs the strategy chain for the given gateway name.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Instance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	strategies := []strategy{
		{"provider_name", r.repo.ByProviderName},
		{"custom_name", r.repo.ByCustomName},
		{"instance_id", r.repo.ByInstanceID},
		{"instance_id_pattern", r.repo.ByInstanceIDPattern},
	}

	for i, s := range strategies {
		inst, err := s.lookup(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if i > 0 && inst.ProviderName != name {
			// Self-healing cache: future webhooks hit strategy one.
			if err := r.repo.BackfillProviderName(ctx, inst.ID, name); err != nil {
				r.logger.Warn("failed to backfill provider name",
					"error", err, "instance_id", inst.InstanceID, "strategy", s.name)
			} else {
				inst.ProviderName = name
			}
		}

		r.logger.Debug("instance resolved", "strategy", s.name, "instance_id", inst.InstanceID)
		return inst, nil
	}

	return nil, ErrNotFound
}
