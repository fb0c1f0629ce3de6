package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileToVariables(t *testing.T) {
	cfg := validTheme()

	t.Run("stable category order", func(t *testing.T) {
		vars := CompileToVariables(cfg.Settings)
		require.NotEmpty(t, vars)

		assert.Equal(t, "--color-primary", vars[0].Name)
		assert.Equal(t, "#1a73e8", vars[0].Value)

		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		assert.Less(t, indexOf(names, "--color-border"), indexOf(names, "--font-heading"))
		assert.Less(t, indexOf(names, "--font-heading"), indexOf(names, "--spacing-md"))
		assert.Less(t, indexOf(names, "--spacing-md"), indexOf(names, "--radius-sm"))
	})

	t.Run("deterministic output", func(t *testing.T) {
		first := CompileToVariables(cfg.Settings)
		second := CompileToVariables(cfg.Settings)
		assert.Equal(t, first, second)
	})

	t.Run("scale keys sorted", func(t *testing.T) {
		vars := CompileToVariables(cfg.Settings)
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		assert.Less(t, indexOf(names, "--font-size-base"), indexOf(names, "--font-size-lg"))
	})
}

func TestApplyCustomizations(t *testing.T) {
	t.Run("partial color override keeps siblings", func(t *testing.T) {
		base := validTheme()
		result := ApplyCustomizations(base, &Customization{
			Settings: &SettingsOverlay{Colors: map[string]string{"primary": "#fff"}},
		})

		assert.Equal(t, "#fff", result.Settings.Colors.Primary)
		assert.Equal(t, base.Settings.Colors.Secondary, result.Settings.Colors.Secondary)
		assert.Equal(t, base.Settings.Colors.Border, result.Settings.Colors.Border)
		assert.Equal(t, base.Settings.Typography, result.Settings.Typography)
		assert.Equal(t, base.Settings.Spacing, result.Settings.Spacing)
		assert.Equal(t, base.Settings.Radius, result.Settings.Radius)
	})

	t.Run("base is never mutated", func(t *testing.T) {
		base := validTheme()
		ApplyCustomizations(base, &Customization{
			Settings: &SettingsOverlay{
				Colors:    map[string]string{"primary": "#fff"},
				FontSizes: map[string]string{"base": "20px"},
			},
			SectionSettings: map[string]map[string]any{"hero": {"title": "Changed"}},
			CustomCSS:       ".x{}",
		})

		assert.Equal(t, "#1a73e8", base.Settings.Colors.Primary)
		assert.Equal(t, "16px", base.Settings.Typography.FontSizes["base"])
		assert.Empty(t, base.CustomCSS)
		assert.Nil(t, base.Sections["hero"].DefaultSettings)
	})

	t.Run("typography merges per sub-category", func(t *testing.T) {
		base := validTheme()
		result := ApplyCustomizations(base, &Customization{
			Settings: &SettingsOverlay{
				HeadingFont: "Playfair Display",
				FontSizes:   map[string]string{"xl": "24px"},
			},
		})

		assert.Equal(t, "Playfair Display", result.Settings.Typography.HeadingFont)
		assert.Equal(t, "Inter", result.Settings.Typography.BodyFont)
		assert.Equal(t, "16px", result.Settings.Typography.FontSizes["base"])
		assert.Equal(t, "24px", result.Settings.Typography.FontSizes["xl"])
	})

	t.Run("section settings merge into defaults", func(t *testing.T) {
		base := validTheme()
		result := ApplyCustomizations(base, &Customization{
			SectionSettings: map[string]map[string]any{
				"hero":    {"title": "Sale"},
				"unknown": {"ignored": true},
			},
		})

		assert.Equal(t, "Sale", result.Sections["hero"].DefaultSettings["title"])
		_, exists := result.Sections["unknown"]
		assert.False(t, exists)
	})

	t.Run("custom css accumulates in application order", func(t *testing.T) {
		base := validTheme()
		step1 := ApplyCustomizations(base, &Customization{CustomCSS: ".a { color: red; }"})
		step2 := ApplyCustomizations(step1, &Customization{CustomCSS: ".b { color: blue; }"})

		assert.Equal(t, ".a { color: red; }\n.b { color: blue; }", step2.CustomCSS)
	})

	t.Run("overlay is associative for settings", func(t *testing.T) {
		base := validTheme()
		a := &Customization{Settings: &SettingsOverlay{Colors: map[string]string{"primary": "#111"}}}
		b := &Customization{Settings: &SettingsOverlay{Colors: map[string]string{"accent": "#222"}}}
		merged := &Customization{Settings: &SettingsOverlay{Colors: map[string]string{"primary": "#111", "accent": "#222"}}}

		chained := ApplyCustomizations(ApplyCustomizations(base, a), b)
		single := ApplyCustomizations(base, merged)
		assert.Equal(t, single.Settings, chained.Settings)
	})

	t.Run("nil customization clones the base", func(t *testing.T) {
		base := validTheme()
		result := ApplyCustomizations(base, nil)
		assert.Equal(t, base.Settings, result.Settings)
		result.Settings.Colors.Primary = "#000"
		assert.Equal(t, "#1a73e8", base.Settings.Colors.Primary)
	})
}

func TestCompileThemeCSS(t *testing.T) {
	cfg := validTheme()
	cfg.CustomCSS = ".hero { padding: 0; }"

	css := CompileThemeCSS(cfg)
	assert.True(t, strings.HasPrefix(css, ":root {\n"))
	assert.Contains(t, css, "  --color-primary: #1a73e8;\n")
	assert.Contains(t, css, "  --font-heading: Inter;\n")
	assert.True(t, strings.HasSuffix(css, ".hero { padding: 0; }\n"))
}

func TestMinifyCSS(t *testing.T) {
	t.Run("strips comments and whitespace", func(t *testing.T) {
		css := `
/* header styles */
.hero {
	color: red ;
	margin : 0   auto;
}
`
		assert.Equal(t, ".hero{color:red;margin:0 auto}", MinifyCSS(css))
	})

	t.Run("multiline comments", func(t *testing.T) {
		css := "/* a\nb\nc */.x { top: 0; }"
		assert.Equal(t, ".x{top:0}", MinifyCSS(css))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", MinifyCSS(""))
	})
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
