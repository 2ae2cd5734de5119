package generation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/coursegen/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Factory builds one provider. It returns an error wrapping ErrInvalidConfig
// when the provider is not configured.
type Factory func(ctx context.Context) (Provider, error)

// ProviderStatus describes one registered provider.
type ProviderStatus struct {
	Name          domain.ProviderName `json:"name"`
	Available     bool                `json:"available"`
	Healthy       *bool               `json:"healthy,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	RateLimitInfo *RateLimitInfo      `json:"rate_limit,omitempty"`
	Stats         *UsageStats         `json:"stats,omitempty"`
}

// Registry constructs every configured provider once and serves the same
// instance to all callers. Providers whose construction failed stay
// unavailable for the registry's lifetime.
type Registry struct {
	mu        sync.RWMutex
	order     []domain.ProviderName
	providers map[domain.ProviderName]Provider
	failures  map[domain.ProviderName]error
}

// NewRegistry runs each factory once. Construction failures are logged and
// recorded, never returned: a missing credential disables one provider only.
func NewRegistry(ctx context.Context, logger *slog.Logger, factories map[domain.ProviderName]Factory) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		providers: make(map[domain.ProviderName]Provider, len(factories)),
		failures:  make(map[domain.ProviderName]error),
	}

	for name := range factories {
		r.order = append(r.order, name)
	}
	slices.SortFunc(r.order, func(a, b domain.ProviderName) int {
		if c := cmp.Compare(providerRank(a), providerRank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	for _, name := range r.order {
		p, err := factories[name](ctx)
		if err == nil && p == nil {
			err = fmt.Errorf("%w: factory returned no provider", ErrInvalidConfig)
		}
		if err != nil {
			r.failures[name] = err
			logger.WarnContext(ctx, "provider unavailable", "provider", string(name), "error", err)
			continue
		}
		r.providers[name] = p
		logger.InfoContext(ctx, "provider registered", "provider", string(name))
	}

	return r
}

// providerRank orders known providers first, in display order.
func providerRank(name domain.ProviderName) int {
	if i := slices.Index(domain.KnownProviders(), name); i >= 0 {
		return i
	}
	return len(domain.KnownProviders())
}

// Register adds or replaces a provider after construction.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, known := r.providers[name]; !known {
		if _, failed := r.failures[name]; !failed {
			r.order = append(r.order, name)
		}
	}
	r.providers[name] = p
	delete(r.failures, name)
}

// Get returns the shared provider instance for name.
func (r *Registry) Get(name domain.ProviderName) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if err, ok := r.failures[name]; ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, name, err)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// IsAvailable reports whether name was constructed successfully.
func (r *Registry) IsAvailable(name domain.ProviderName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Available lists usable providers in display order.
func (r *Registry) Available() []domain.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderName, 0, len(r.providers))
	for _, name := range r.order {
		if _, ok := r.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Statuses reports every known provider. With probe set, available providers
// are health-checked concurrently.
func (r *Registry) Statuses(ctx context.Context, probe bool) []ProviderStatus {
	r.mu.RLock()
	order := slices.Clone(r.order)
	providers := make(map[domain.ProviderName]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	failures := make(map[domain.ProviderName]error, len(r.failures))
	for k, v := range r.failures {
		failures[k] = v
	}
	r.mu.RUnlock()

	statuses := make([]ProviderStatus, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range order {
		p, ok := providers[name]
		if !ok {
			statuses[i] = ProviderStatus{Name: name, Reason: failures[name].Error()}
			continue
		}

		stats := p.Stats()
		statuses[i] = ProviderStatus{
			Name:          name,
			Available:     true,
			RateLimitInfo: p.RateLimitInfo(),
			Stats:         &stats,
		}
		if probe {
			g.Go(func() error {
				healthy := p.HealthCheck(gctx)
				statuses[i].Healthy = &healthy
				return nil
			})
		}
	}
	_ = g.Wait()

	return statuses
}

// HealthCheck probes every available provider and reports the results.
func (r *Registry) HealthCheck(ctx context.Context) map[domain.ProviderName]bool {
	out := make(map[domain.ProviderName]bool)
	for _, s := range r.Statuses(ctx, true) {
		out[s.Name] = s.Healthy != nil && *s.Healthy
	}
	return out
}
