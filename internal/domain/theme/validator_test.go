package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTheme() *ThemeConfig {
	return &ThemeConfig{
		ID:      "aurora",
		Name:    "Aurora",
		Version: "1.2.0",
		Settings: Settings{
			Colors: ColorScheme{
				Primary:    "#1a73e8",
				Secondary:  "#5f6368",
				Accent:     "hsl(340, 82%, 52%)",
				Background: "#ffffff",
				Surface:    "#f8f9fa",
				Text:       "rgb(32, 33, 36)",
				TextMuted:  "gray",
				Border:     "#dadce0",
			},
			Typography: Typography{
				HeadingFont: "Inter",
				BodyFont:    "Inter",
				FontSizes:   map[string]string{"base": "16px", "lg": "18px"},
				FontWeights: map[string]int{"normal": 400, "bold": 700},
				LineHeights: map[string]float64{"base": 1.5},
			},
			Spacing: SpacingScale{"sm": "8px", "md": "16px"},
			Radius:  RadiusScale{"sm": "4px"},
			Layout:  Layout{ContainerWidth: "1200px"},
		},
		Sections: map[string]SectionSchema{
			"hero": {
				ID:   "hero",
				Name: "Hero banner",
				Schema: SectionSchemaBody{
					Settings: []SettingField{
						{ID: "title", Label: "Title", Type: SettingText, Default: "Welcome"},
						{ID: "alignment", Label: "Alignment", Type: SettingSelect, Options: []SettingOption{
							{Value: "left", Label: "Left"},
							{Value: "center", Label: "Center"},
						}},
						{ID: "opacity", Label: "Opacity", Type: SettingRange, Min: floatPtr(0), Max: floatPtr(100)},
					},
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestValidateThemeValid(t *testing.T) {
	assert.Empty(t, ValidateTheme(validTheme()))
}

func TestValidateThemeIdentity(t *testing.T) {
	cfg := validTheme()
	cfg.ID = ""
	cfg.Name = ""
	cfg.Version = "not-semver"

	errs := ValidateTheme(cfg)
	assert.Contains(t, fields(errs), "id")
	assert.Contains(t, fields(errs), "name")
	assert.Contains(t, fields(errs), "version")
}

func TestValidateThemeVersion(t *testing.T) {
	valid := []string{"0.0.1", "1.2.3", "2.0.0-beta.1", "1.0.0+build.5"}
	invalid := []string{"1.2", "v1.2.3", "1.2.3.4", "latest", ""}

	for _, v := range valid {
		cfg := validTheme()
		cfg.Version = v
		assert.Empty(t, ValidateTheme(cfg), "version %q should be valid", v)
	}
	for _, v := range invalid {
		cfg := validTheme()
		cfg.Version = v
		assert.Contains(t, fields(ValidateTheme(cfg)), "version", "version %q should be invalid", v)
	}
}

// A config missing two color slots plus a select without options must
// produce at least three distinct field-addressed errors in a single call.
func TestValidateThemeCollectsAllErrors(t *testing.T) {
	cfg := validTheme()
	cfg.Settings.Colors.Primary = ""
	cfg.Settings.Colors.Border = ""
	hero := cfg.Sections["hero"]
	hero.Schema.Settings[1].Options = nil
	cfg.Sections["hero"] = hero

	errs := ValidateTheme(cfg)
	require.GreaterOrEqual(t, len(errs), 3)
	assert.Contains(t, fields(errs), "settings.colors.primary")
	assert.Contains(t, fields(errs), "settings.colors.border")
	assert.Contains(t, fields(errs), "sections.hero.schema.settings[1].options")
}

func TestValidateThemeColorGrammar(t *testing.T) {
	valid := []string{"#fff", "#ffffff", "#ffffff80", "rgb(1, 2, 3)", "rgba(1,2,3,0.5)", "hsl(120, 50%, 50%)", "hsla(120, 50%, 50%, 0.1)", "crimson", "Transparent"}
	invalid := []string{"", "fff", "#ggg", "rgb(1,2)", "blurple", "1px solid red"}

	for _, c := range valid {
		assert.True(t, IsValidColor(c), "color %q should be valid", c)
	}
	for _, c := range invalid {
		assert.False(t, IsValidColor(c), "color %q should be invalid", c)
	}
}

func TestValidateSection(t *testing.T) {
	t.Run("missing identity", func(t *testing.T) {
		errs := ValidateSection(&SectionSchema{})
		assert.Contains(t, fields(errs), "id")
		assert.Contains(t, fields(errs), "name")
	})

	t.Run("unrecognized setting type", func(t *testing.T) {
		section := &SectionSchema{
			ID:   "s",
			Name: "S",
			Schema: SectionSchemaBody{Settings: []SettingField{
				{ID: "x", Type: SettingType("video")},
			}},
		}
		errs := ValidateSection(section)
		require.Len(t, errs, 1)
		assert.Equal(t, "schema.settings[0].type", errs[0].Field)
	})

	t.Run("range needs min and max", func(t *testing.T) {
		section := &SectionSchema{
			ID:   "s",
			Name: "S",
			Schema: SectionSchemaBody{Settings: []SettingField{
				{ID: "x", Type: SettingRange},
			}},
		}
		errs := ValidateSection(section)
		assert.Contains(t, fields(errs), "schema.settings[0].min")
		assert.Contains(t, fields(errs), "schema.settings[0].max")
	})

	t.Run("radio needs options", func(t *testing.T) {
		section := &SectionSchema{
			ID:   "s",
			Name: "S",
			Schema: SectionSchemaBody{Settings: []SettingField{
				{ID: "x", Type: SettingRadio},
			}},
		}
		errs := ValidateSection(section)
		require.Len(t, errs, 1)
		assert.Equal(t, "schema.settings[0].options", errs[0].Field)
	})

	t.Run("block settings are validated recursively", func(t *testing.T) {
		section := &SectionSchema{
			ID:   "s",
			Name: "S",
			Schema: SectionSchemaBody{Blocks: []BlockSchema{
				{Type: "slide", Name: "Slide", Settings: []SettingField{
					{ID: "level", Type: SettingRange},
				}},
			}},
		}
		errs := ValidateSection(section)
		assert.Contains(t, fields(errs), "schema.blocks[0].settings[0].min")
	})
}

func TestValidateSectionSettings(t *testing.T) {
	section := &SectionSchema{
		ID:   "hero",
		Name: "Hero",
		Schema: SectionSchemaBody{Settings: []SettingField{
			{ID: "title", Type: SettingText},
			{ID: "show_border", Type: SettingCheckbox},
			{ID: "color", Type: SettingColor, Default: "#000"},
			{ID: "link", Type: SettingURL, Default: "/"},
			{ID: "opacity", Type: SettingRange, Min: floatPtr(0), Max: floatPtr(1)},
			{ID: "align", Type: SettingSelect, Options: []SettingOption{{Value: "left"}, {Value: "right"}}, Default: "left"},
		}},
	}

	t.Run("valid values", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{
			"title":       "Hi",
			"show_border": true,
			"color":       "rgb(0, 0, 0)",
			"link":        "https://example.com/x",
			"opacity":     0.5,
			"align":       "right",
		})
		assert.Empty(t, errs)
	})

	t.Run("required without default", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"opacity": 0.1})
		assert.Contains(t, fields(errs), "settings.title")
		// checkbox implicitly defaults to false, defaults cover the rest
		assert.NotContains(t, fields(errs), "settings.show_border")
		assert.NotContains(t, fields(errs), "settings.color")
	})

	t.Run("range out of bounds", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"title": "x", "opacity": 1.5})
		assert.Contains(t, fields(errs), "settings.opacity")
	})

	t.Run("range not numeric", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"title": "x", "opacity": "half"})
		assert.Contains(t, fields(errs), "settings.opacity")
	})

	t.Run("select value must match an option", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"title": "x", "opacity": 0.5, "align": "middle"})
		assert.Contains(t, fields(errs), "settings.align")
	})

	t.Run("relative url is rejected", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"title": "x", "opacity": 0.5, "link": "about/us"})
		assert.Contains(t, fields(errs), "settings.link")
	})

	t.Run("undeclared setting is rejected", func(t *testing.T) {
		errs := ValidateSectionSettings(section, map[string]any{"title": "x", "opacity": 0.5, "bogus": 1})
		assert.Contains(t, fields(errs), "settings.bogus")
	})
}

func fields(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Field
	}
	return out
}
