package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/theme"
)

// Fetcher retrieves theme material from the persistence service
type Fetcher interface {
	FetchTheme(ctx context.Context, themeID string) (*theme.ThemeConfig, error)
	FetchCustomization(ctx context.Context, storeID string) (*theme.Customization, error)
}

// HTTPFetcher fetches themes over the persistence service's REST API
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher against the given base URL
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// FetchTheme retrieves one theme config by id
func (f *HTTPFetcher) FetchTheme(ctx context.Context, themeID string) (*theme.ThemeConfig, error) {
	var cfg theme.ThemeConfig
	if err := f.getJSON(ctx, f.baseURL+"/"+themeID, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FetchCustomization retrieves a store's customization overlay
func (f *HTTPFetcher) FetchCustomization(ctx context.Context, storeID string) (*theme.Customization, error) {
	var custom theme.Customization
	if err := f.getJSON(ctx, f.baseURL+"/stores/"+storeID+"/customization", &custom); err != nil {
		return nil, err
	}
	return &custom, nil
}

func (f *HTTPFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("theme fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("theme fetch failed: %s returned %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("theme response is not valid JSON: %w", err)
	}
	return nil
}

// Loader loads, validates and composes themes. Base configs are cached;
// store-level composition happens per call because customizations change
// independently of the base theme.
type Loader struct {
	fetcher Fetcher
	cache   *Cache
	logger  *zap.Logger
}

// NewLoader creates a theme loader
func NewLoader(fetcher Fetcher, cache *Cache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, cache: cache, logger: logger}
}

// GetTheme returns a validated base theme, from cache when fresh.
// An invalid theme is never cached and never returned.
func (l *Loader) GetTheme(ctx context.Context, themeID string) (*theme.ThemeConfig, error) {
	if l.cache != nil {
		if cfg, ok := l.cache.Get(themeID); ok {
			return cfg, nil
		}
	}

	cfg, err := l.fetcher.FetchTheme(ctx, themeID)
	if err != nil {
		return nil, err
	}
	if errs := theme.ValidateTheme(cfg); len(errs) > 0 {
		return nil, validationError(themeID, errs)
	}

	if l.cache != nil {
		l.cache.Put(themeID, cfg)
	}
	l.logger.Debug("theme loaded", zap.String("theme_id", themeID))
	return cfg, nil
}

// GetStoreTheme returns the base theme with the store's customization
// overlaid, re-validated after composition.
func (l *Loader) GetStoreTheme(ctx context.Context, themeID, storeID string) (*theme.ThemeConfig, error) {
	base, err := l.GetTheme(ctx, themeID)
	if err != nil {
		return nil, err
	}

	custom, err := l.fetcher.FetchCustomization(ctx, storeID)
	if err != nil {
		if shared.IsNotFound(err) {
			// store has no customization yet, serve the base as-is
			return theme.ApplyCustomizations(base, nil), nil
		}
		return nil, err
	}

	merged := theme.ApplyCustomizations(base, custom)
	if errs := theme.ValidateTheme(merged); len(errs) > 0 {
		return nil, validationError(themeID, errs)
	}
	return merged, nil
}

// CompileCSS loads the theme, scoped to a store when one is given, and
// renders it to CSS
func (l *Loader) CompileCSS(ctx context.Context, themeID, storeID string, minify bool) (string, error) {
	var cfg *theme.ThemeConfig
	var err error
	if storeID == "" {
		cfg, err = l.GetTheme(ctx, themeID)
	} else {
		cfg, err = l.GetStoreTheme(ctx, themeID, storeID)
	}
	if err != nil {
		return "", err
	}
	css := theme.CompileThemeCSS(cfg)
	if minify {
		css = theme.MinifyCSS(css)
	}
	return css, nil
}

// Invalidate drops a theme from the cache, forcing a refetch
func (l *Loader) Invalidate(themeID string) {
	if l.cache != nil {
		l.cache.Invalidate(themeID)
	}
}

func validationError(themeID string, errs []theme.ValidationError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: theme %s: %s", shared.ErrValidationFailed, themeID, strings.Join(msgs, "; "))
}
