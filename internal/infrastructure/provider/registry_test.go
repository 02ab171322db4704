package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	apperrors "github.com/map-location-service/internal/pkg/errors"
)

type stubRenderer struct{ id string }

func (s stubRenderer) RenderURL(center domain.GeoPoint, zoom int) string {
	return "https://" + s.id + ".test/map"
}

func stub(id string, priority int, requiresKey bool, key string) Descriptor {
	return Descriptor{
		ID:          domain.ProviderID(id),
		Priority:    priority,
		RequiresKey: requiresKey,
		APIKey:      key,
		Renderer:    stubRenderer{id: id},
	}
}

func ids(r *Registry) []domain.ProviderID {
	out := make([]domain.ProviderID, 0, r.Len())
	for _, p := range r.Providers() {
		out = append(out, p.ID)
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	logger := zap.NewNop()

	t.Run("keyed provider without key is excluded", func(t *testing.T) {
		reg, err := NewRegistry(logger,
			stub("A", 1, true, ""),
			stub("B", 2, true, "key-b"),
			stub("C", 3, false, ""),
		)
		require.NoError(t, err)
		assert.Equal(t, []domain.ProviderID{"B", "C"}, ids(reg))
	})

	t.Run("sorted by priority, ties keep registration order", func(t *testing.T) {
		reg, err := NewRegistry(logger,
			stub("late", 30, false, ""),
			stub("first-tie", 10, false, ""),
			stub("second-tie", 10, false, ""),
			stub("middle", 20, false, ""),
		)
		require.NoError(t, err)
		assert.Equal(t, []domain.ProviderID{"first-tie", "second-tie", "middle", "late"}, ids(reg))
	})

	t.Run("no usable providers is a configuration error", func(t *testing.T) {
		reg, err := NewRegistry(logger, stub("A", 1, true, ""), stub("B", 2, true, ""))
		assert.Nil(t, reg)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("providers returns a copy", func(t *testing.T) {
		reg, err := NewRegistry(logger, stub("A", 1, false, ""))
		require.NoError(t, err)

		list := reg.Providers()
		list[0].ID = "mutated"
		assert.Equal(t, domain.ProviderID("A"), reg.At(0).ID)
	})
}

func TestNewDefaultRegistry(t *testing.T) {
	mapCfg := &config.MapConfig{Language: "ru", ImageWidth: 600, ImageHeight: 400}

	t.Run("without keys only keyless providers remain", func(t *testing.T) {
		reg, err := NewDefaultRegistry(mapCfg, &config.ProvidersConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []domain.ProviderID{ProviderOSMStatic, ProviderOSMTile}, ids(reg))
	})

	t.Run("with keys all providers in priority order", func(t *testing.T) {
		reg, err := NewDefaultRegistry(mapCfg, &config.ProvidersConfig{
			YandexAPIKey: "y",
			GoogleAPIKey: "g",
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []domain.ProviderID{ProviderYandex, ProviderGoogle, ProviderOSMStatic, ProviderOSMTile}, ids(reg))
	})
}

func TestRegistry_SearchProvider(t *testing.T) {
	reg, err := NewRegistry(zap.NewNop(),
		NewOSMTile(Options{}),
		NewOSMStatic(Options{}),
	)
	require.NoError(t, err)

	t.Run("active provider with search", func(t *testing.T) {
		d, ok := reg.SearchProvider(ProviderOSMStatic)
		require.True(t, ok)
		assert.Equal(t, ProviderOSMStatic, d.ID)
	})

	t.Run("active provider without search falls back to first searchable", func(t *testing.T) {
		d, ok := reg.SearchProvider(ProviderOSMTile)
		require.True(t, ok)
		assert.Equal(t, ProviderOSMStatic, d.ID)
	})

	t.Run("unknown active provider", func(t *testing.T) {
		d, ok := reg.SearchProvider("unknown")
		require.True(t, ok)
		assert.Equal(t, ProviderOSMStatic, d.ID)
	})

	t.Run("no searchable providers", func(t *testing.T) {
		tileOnly, err := NewRegistry(zap.NewNop(), NewOSMTile(Options{}))
		require.NoError(t, err)

		_, ok := tileOnly.SearchProvider(ProviderOSMTile)
		assert.False(t, ok)
	})
}

func TestDescriptor_BuildSearchRequestWithoutSearcher(t *testing.T) {
	req, err := NewOSMTile(Options{}).BuildSearchRequest(context.Background(), "Batumi")
	assert.NoError(t, err)
	assert.Nil(t, req)
}
