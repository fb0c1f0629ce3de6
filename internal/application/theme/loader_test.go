package theme

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/theme"
)

func serverTheme() *theme.ThemeConfig {
	return &theme.ThemeConfig{
		ID:      "aurora",
		Name:    "Aurora",
		Version: "1.0.0",
		Settings: theme.Settings{
			Colors: theme.ColorScheme{
				Primary: "#1a73e8", Secondary: "#5f6368", Accent: "#d81b60",
				Background: "#ffffff", Surface: "#f8f9fa", Text: "#202124",
				TextMuted: "#5f6368", Border: "#dadce0",
			},
			Typography: theme.Typography{
				HeadingFont: "Inter", BodyFont: "Inter",
				FontSizes: map[string]string{"base": "16px"},
			},
		},
	}
}

// themeServer serves a theme catalog plus per-store customizations and
// counts theme fetches.
func themeServer(t *testing.T, themes map[string]*theme.ThemeConfig, customs map[string]*theme.Customization) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/stores/") {
			parts := strings.Split(r.URL.Path, "/")
			storeID := parts[len(parts)-2]
			custom, ok := customs[storeID]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(custom)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/")
		cfg, ok := themes[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(cfg)
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func newLoader(t *testing.T, srvURL string) *Loader {
	t.Helper()
	return NewLoader(NewHTTPFetcher(srvURL, nil), NewCache(time.Minute, 8), zap.NewNop())
}

func TestGetThemeFetchesAndCaches(t *testing.T) {
	srv, fetches := themeServer(t, map[string]*theme.ThemeConfig{"aurora": serverTheme()}, nil)
	l := newLoader(t, srv.URL)

	ctx := context.Background()
	first, err := l.GetTheme(ctx, "aurora")
	require.NoError(t, err)
	assert.Equal(t, "Aurora", first.Name)

	_, err = l.GetTheme(ctx, "aurora")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load(), "second load must come from cache")

	l.Invalidate("aurora")
	_, err = l.GetTheme(ctx, "aurora")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestGetThemeUnknownID(t *testing.T) {
	srv, _ := themeServer(t, nil, nil)
	l := newLoader(t, srv.URL)

	_, err := l.GetTheme(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetThemeRejectsInvalidTheme(t *testing.T) {
	broken := serverTheme()
	broken.Version = "not-semver"
	broken.Settings.Colors.Primary = ""

	srv, fetches := themeServer(t, map[string]*theme.ThemeConfig{"aurora": broken}, nil)
	l := newLoader(t, srv.URL)

	_, err := l.GetTheme(context.Background(), "aurora")
	require.ErrorIs(t, err, shared.ErrValidationFailed)
	assert.Contains(t, err.Error(), "version")
	assert.Contains(t, err.Error(), "settings.colors.primary")

	// an invalid theme must never be cached
	_, err = l.GetTheme(context.Background(), "aurora")
	require.Error(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestGetStoreThemeAppliesCustomization(t *testing.T) {
	custom := &theme.Customization{
		Settings:  &theme.SettingsOverlay{Colors: map[string]string{"primary": "#ff0000"}},
		CustomCSS: ".promo { display: block; }",
	}
	srv, _ := themeServer(t,
		map[string]*theme.ThemeConfig{"aurora": serverTheme()},
		map[string]*theme.Customization{"store-1": custom})
	l := newLoader(t, srv.URL)

	got, err := l.GetStoreTheme(context.Background(), "aurora", "store-1")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", got.Settings.Colors.Primary)
	assert.Equal(t, "#5f6368", got.Settings.Colors.Secondary)
	assert.Equal(t, ".promo { display: block; }", got.CustomCSS)

	// the cached base must remain pristine
	base, err := l.GetTheme(context.Background(), "aurora")
	require.NoError(t, err)
	assert.Equal(t, "#1a73e8", base.Settings.Colors.Primary)
	assert.Empty(t, base.CustomCSS)
}

func TestGetStoreThemeWithoutCustomization(t *testing.T) {
	srv, _ := themeServer(t, map[string]*theme.ThemeConfig{"aurora": serverTheme()}, nil)
	l := newLoader(t, srv.URL)

	got, err := l.GetStoreTheme(context.Background(), "aurora", "store-9")
	require.NoError(t, err)
	assert.Equal(t, "#1a73e8", got.Settings.Colors.Primary)
}

func TestGetStoreThemeRejectsInvalidOverlay(t *testing.T) {
	custom := &theme.Customization{
		Settings: &theme.SettingsOverlay{Colors: map[string]string{"primary": "blurple"}},
	}
	srv, _ := themeServer(t,
		map[string]*theme.ThemeConfig{"aurora": serverTheme()},
		map[string]*theme.Customization{"store-1": custom})
	l := newLoader(t, srv.URL)

	_, err := l.GetStoreTheme(context.Background(), "aurora", "store-1")
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestCompileCSS(t *testing.T) {
	srv, _ := themeServer(t, map[string]*theme.ThemeConfig{"aurora": serverTheme()}, nil)
	l := newLoader(t, srv.URL)

	css, err := l.CompileCSS(context.Background(), "aurora", "store-9", false)
	require.NoError(t, err)
	assert.Contains(t, css, "--color-primary: #1a73e8;")

	minified, err := l.CompileCSS(context.Background(), "aurora", "store-9", true)
	require.NoError(t, err)
	assert.NotContains(t, minified, "\n")
	assert.Contains(t, minified, "--color-primary:#1a73e8")
}
