package generation

import (
	"context"
	"fmt"
	"testing"

	"github.com/phrazzld/coursegen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	builds := 0
	factories := map[domain.ProviderName]Factory{
		domain.ProviderClaude: func(context.Context) (Provider, error) {
			return nil, fmt.Errorf("%w: claude API key is not set", ErrInvalidConfig)
		},
		domain.ProviderGemini: func(context.Context) (Provider, error) {
			builds++
			return newTestAdapter(newFakeBackend(ok("OK", 1, 1))), nil
		},
	}

	reg := NewRegistry(context.Background(), nil, factories)
	assert.Equal(t, 1, builds)

	t.Run("same instance for every caller", func(t *testing.T) {
		first, err := reg.Get(domain.ProviderGemini)
		require.NoError(t, err)
		second, err := reg.Get(domain.ProviderGemini)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, builds)
	})

	t.Run("construction failure makes the provider unavailable", func(t *testing.T) {
		_, err := reg.Get(domain.ProviderClaude)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Contains(t, err.Error(), "API key")
		assert.False(t, reg.IsAvailable(domain.ProviderClaude))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := reg.Get("mistral")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("available lists only constructed providers", func(t *testing.T) {
		assert.Equal(t, []domain.ProviderName{domain.ProviderGemini}, reg.Available())
	})

	t.Run("statuses keep display order", func(t *testing.T) {
		statuses := reg.Statuses(context.Background(), true)
		require.Len(t, statuses, 2)

		assert.Equal(t, domain.ProviderGemini, statuses[0].Name)
		assert.True(t, statuses[0].Available)
		require.NotNil(t, statuses[0].Healthy)
		assert.True(t, *statuses[0].Healthy)

		assert.Equal(t, domain.ProviderClaude, statuses[1].Name)
		assert.False(t, statuses[1].Available)
		assert.Nil(t, statuses[1].Healthy)
		assert.NotEmpty(t, statuses[1].Reason)
	})

	t.Run("health check map", func(t *testing.T) {
		health := reg.HealthCheck(context.Background())
		assert.Equal(t, map[domain.ProviderName]bool{
			domain.ProviderGemini: true,
			domain.ProviderClaude: false,
		}, health)
	})
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(context.Background(), nil, map[domain.ProviderName]Factory{
		domain.ProviderClaude: func(context.Context) (Provider, error) { return nil, nil },
	})
	require.False(t, reg.IsAvailable(domain.ProviderClaude))

	backend := newFakeBackend(ok("x", 1, 1))
	backend.name = domain.ProviderClaude
	reg.Register(newTestAdapter(backend))

	assert.True(t, reg.IsAvailable(domain.ProviderClaude))
	assert.Equal(t, []domain.ProviderName{domain.ProviderClaude}, reg.Available())
	assert.Len(t, reg.Statuses(context.Background(), false), 1)
}
