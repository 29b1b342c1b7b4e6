package memory

import (
	"context"
	"strings"

	"github.com/opsforge/opsagent/pkg/logger"
	"github.com/opsforge/opsagent/pkg/memstore"
	"github.com/opsforge/opsagent/pkg/paramstore"
)

const resolverComponent = "memory.resolver"

// ResolverConfig describes the memory resource the resolver manages.
type ResolverConfig struct {
	ResourceName    string
	Description     string
	ParameterPath   string
	EventExpiryDays int
	Strategies      []memstore.Strategy
}

// DefaultStrategies returns the extraction strategies configured on newly
// created memory resources.
func DefaultStrategies() []memstore.Strategy {
	return []memstore.Strategy{
		{
			Type:        memstore.StrategyUserPreference,
			Name:        "DevOpsPreferences",
			Description: "Captures DevOps preferences and behavior",
			Namespaces:  []string{"agent/devops/{actorId}/preferences"},
		},
		{
			Type:        memstore.StrategySemantic,
			Name:        "DevOpsAgentSemantic",
			Description: "Stores facts from conversations",
			Namespaces:  []string{"agent/devops/{actorId}/semantic"},
		},
	}
}

// Resolver locates or provisions the agent's memory resource. It tries the
// parameter store cache, then discovery by name, then creation. All three
// tiers are best-effort: the agent runs without memory when they fail.
type Resolver struct {
	params paramstore.Client
	store  memstore.Store
	cfg    ResolverConfig
}

func NewResolver(params paramstore.Client, store memstore.Store, cfg ResolverConfig) *Resolver {
	return &Resolver{params: params, store: store, cfg: cfg}
}

// Resolve returns the memory resource id and true, or ("", false) when no
// resource could be found or created. It never returns an error: memory is
// an optional capability.
func (r *Resolver) Resolve(ctx context.Context) (string, bool) {
	logger.InfoCF(resolverComponent, "resolving memory resource", map[string]any{
		"name": r.cfg.ResourceName,
	})

	if id := r.fromParameterStore(ctx); id != "" {
		return id, true
	}
	if id := r.discover(ctx); id != "" {
		return id, true
	}
	if id := r.create(ctx); id != "" {
		return id, true
	}

	logger.ErrorCF(resolverComponent, "memory resource unavailable, continuing without memory", map[string]any{
		"name": r.cfg.ResourceName,
	})
	return "", false
}

// fromParameterStore reads the cached id and verifies it still resolves.
func (r *Resolver) fromParameterStore(ctx context.Context) string {
	id, err := r.params.Get(ctx, r.cfg.ParameterPath)
	if err != nil {
		if err != paramstore.ErrNotFound {
			logger.WarnCF(resolverComponent, "could not read cached memory id", map[string]any{
				"path": r.cfg.ParameterPath, "error": err.Error(),
			})
		}
		return ""
	}
	if id == "" {
		return ""
	}

	if _, err := r.store.GetResource(ctx, id); err != nil {
		logger.WarnCF(resolverComponent, "cached memory id is invalid", map[string]any{
			"memory_id": id, "error": err.Error(),
		})
		return ""
	}
	logger.InfoCF(resolverComponent, "verified cached memory id", map[string]any{
		"memory_id": id,
	})
	return id
}

// discover scans existing resources for one matching the configured name.
// Listings may omit names, so ids containing the name are accepted when the
// resource is ACTIVE.
func (r *Resolver) discover(ctx context.Context) string {
	resources, err := r.store.ListResources(ctx)
	if err != nil {
		logger.ErrorCF(resolverComponent, "could not list memory resources", map[string]any{
			"error": err.Error(),
		})
		return ""
	}
	logger.InfoCF(resolverComponent, "searching existing memory resources", map[string]any{
		"count": len(resources),
	})

	for _, res := range resources {
		if res.Status == memstore.StatusDeleting {
			continue
		}
		byName := res.Name == r.cfg.ResourceName
		byID := res.Name == "" && strings.Contains(res.ID, r.cfg.ResourceName) &&
			res.Status == memstore.StatusActive
		if byName || byID {
			logger.InfoCF(resolverComponent, "found existing memory resource", map[string]any{
				"memory_id": res.ID,
			})
			r.persist(ctx, res.ID)
			return res.ID
		}
	}
	return ""
}

// create provisions a new resource and blocks until it is usable.
func (r *Resolver) create(ctx context.Context) string {
	logger.InfoCF(resolverComponent, "creating memory resource, this can take a couple of minutes", map[string]any{
		"name": r.cfg.ResourceName,
	})

	res, err := r.store.CreateResourceAndWait(ctx, memstore.CreateInput{
		Name:            r.cfg.ResourceName,
		Description:     r.cfg.Description,
		Strategies:      r.cfg.Strategies,
		EventExpiryDays: r.cfg.EventExpiryDays,
	})
	if err != nil {
		logger.ErrorCF(resolverComponent, "could not create memory resource", map[string]any{
			"name": r.cfg.ResourceName, "error": err.Error(),
		})
		return ""
	}

	logger.InfoCF(resolverComponent, "created memory resource", map[string]any{
		"memory_id": res.ID,
	})
	r.persist(ctx, res.ID)
	return res.ID
}

// persist caches the resolved id for future runs. Failures are logged but do
// not affect resolution.
func (r *Resolver) persist(ctx context.Context, id string) {
	if err := r.params.Put(ctx, r.cfg.ParameterPath, id); err != nil {
		logger.WarnCF(resolverComponent, "could not cache memory id", map[string]any{
			"path": r.cfg.ParameterPath, "error": err.Error(),
		})
		return
	}
	logger.InfoCF(resolverComponent, "cached memory id", map[string]any{
		"path": r.cfg.ParameterPath,
	})
}
