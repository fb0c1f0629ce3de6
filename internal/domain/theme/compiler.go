package theme

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Variable is one compiled style variable
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompileToVariables maps every color, typography, spacing and radius field
// to a namespaced variable. The output order is fixed (colors, typography,
// spacing, radius) and map-backed scales are emitted in sorted key order,
// so identical settings always compile to byte-identical output.
func CompileToVariables(s Settings) []Variable {
	vars := make([]Variable, 0, 32)

	for _, slot := range s.Colors.slots() {
		vars = append(vars, Variable{
			Name:  "--color-" + strings.ReplaceAll(slot.name, "_", "-"),
			Value: slot.value,
		})
	}

	if s.Typography.HeadingFont != "" {
		vars = append(vars, Variable{Name: "--font-heading", Value: s.Typography.HeadingFont})
	}
	if s.Typography.BodyFont != "" {
		vars = append(vars, Variable{Name: "--font-body", Value: s.Typography.BodyFont})
	}
	for _, key := range sortedKeys(s.Typography.FontSizes) {
		vars = append(vars, Variable{Name: "--font-size-" + key, Value: s.Typography.FontSizes[key]})
	}
	for _, key := range sortedKeys(s.Typography.FontWeights) {
		vars = append(vars, Variable{Name: "--font-weight-" + key, Value: fmt.Sprintf("%d", s.Typography.FontWeights[key])})
	}
	for _, key := range sortedKeys(s.Typography.LineHeights) {
		vars = append(vars, Variable{Name: "--line-height-" + key, Value: fmt.Sprintf("%g", s.Typography.LineHeights[key])})
	}

	for _, key := range sortedKeys(s.Spacing) {
		vars = append(vars, Variable{Name: "--spacing-" + key, Value: s.Spacing[key]})
	}
	for _, key := range sortedKeys(s.Radius) {
		vars = append(vars, Variable{Name: "--radius-" + key, Value: s.Radius[key]})
	}

	return vars
}

// ApplyCustomizations produces a new theme config with the customization
// overlaid onto the base. The base is never mutated. Partial overrides
// merge field by field per category, so unspecified sibling fields keep
// their base values. CustomCSS and CustomJS are appended, never replaced,
// so repeated application is cumulative.
func ApplyCustomizations(base *ThemeConfig, custom *Customization) *ThemeConfig {
	result := cloneConfig(base)
	if custom == nil {
		return result
	}

	if o := custom.Settings; o != nil {
		for _, name := range sortedKeys(o.Colors) {
			result.Settings.Colors.set(name, o.Colors[name])
		}
		if o.HeadingFont != "" {
			result.Settings.Typography.HeadingFont = o.HeadingFont
		}
		if o.BodyFont != "" {
			result.Settings.Typography.BodyFont = o.BodyFont
		}
		result.Settings.Typography.FontSizes = mergeMap(result.Settings.Typography.FontSizes, o.FontSizes)
		result.Settings.Typography.FontWeights = mergeMap(result.Settings.Typography.FontWeights, o.FontWeights)
		result.Settings.Typography.LineHeights = mergeMap(result.Settings.Typography.LineHeights, o.LineHeights)
		result.Settings.Spacing = mergeMap(result.Settings.Spacing, o.Spacing)
		result.Settings.Radius = mergeMap(result.Settings.Radius, o.Radius)
		applyLayout(&result.Settings.Layout, o.Layout)
	}

	for sectionID, overrides := range custom.SectionSettings {
		section, ok := result.Sections[sectionID]
		if !ok {
			continue
		}
		if section.DefaultSettings == nil {
			section.DefaultSettings = make(map[string]any, len(overrides))
		}
		for key, value := range overrides {
			section.DefaultSettings[key] = value
		}
		result.Sections[sectionID] = section
	}

	result.CustomCSS = appendText(result.CustomCSS, custom.CustomCSS)
	result.CustomJS = appendText(result.CustomJS, custom.CustomJS)

	return result
}

// CompileThemeCSS renders the compiled variables as a :root block followed
// by the theme's raw custom CSS.
func CompileThemeCSS(cfg *ThemeConfig) string {
	var b strings.Builder

	b.WriteString(":root {\n")
	for _, v := range CompileToVariables(cfg.Settings) {
		b.WriteString("  ")
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Value)
		b.WriteString(";\n")
	}
	b.WriteString("}\n")

	if cfg.CustomCSS != "" {
		b.WriteString(cfg.CustomCSS)
		if !strings.HasSuffix(cfg.CustomCSS, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}

var (
	cssCommentRe     = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssWhitespaceRe  = regexp.MustCompile(`\s+`)
	cssPunctuationRe = regexp.MustCompile(`\s*([{}:;,>])\s*`)
)

// MinifyCSS strips comments, collapses whitespace and removes whitespace
// around structural punctuation. It is regex based, not a CSS tokenizer:
// string literals containing braces or semicolons (content: ";") will be
// mangled. Callers needing full correctness must use a real parser.
func MinifyCSS(css string) string {
	out := cssCommentRe.ReplaceAllString(css, "")
	out = cssWhitespaceRe.ReplaceAllString(out, " ")
	out = cssPunctuationRe.ReplaceAllString(out, "$1")
	out = strings.ReplaceAll(out, ";}", "}")
	return strings.TrimSpace(out)
}

func cloneConfig(base *ThemeConfig) *ThemeConfig {
	clone := *base
	clone.Settings.Typography.FontSizes = copyMap(base.Settings.Typography.FontSizes)
	clone.Settings.Typography.FontWeights = copyMap(base.Settings.Typography.FontWeights)
	clone.Settings.Typography.LineHeights = copyMap(base.Settings.Typography.LineHeights)
	clone.Settings.Spacing = copyMap(base.Settings.Spacing)
	clone.Settings.Radius = copyMap(base.Settings.Radius)

	if base.Sections != nil {
		clone.Sections = make(map[string]SectionSchema, len(base.Sections))
		for id, section := range base.Sections {
			s := section
			s.Schema.Settings = append([]SettingField(nil), section.Schema.Settings...)
			s.Schema.Blocks = append([]BlockSchema(nil), section.Schema.Blocks...)
			s.DefaultSettings = copyMap(section.DefaultSettings)
			clone.Sections[id] = s
		}
	}

	return &clone
}

func applyLayout(layout *Layout, overrides map[string]string) {
	for _, key := range sortedKeys(overrides) {
		switch key {
		case "container_width":
			layout.ContainerWidth = overrides[key]
		case "header_style":
			layout.HeaderStyle = overrides[key]
		case "footer_style":
			layout.FooterStyle = overrides[key]
		}
	}
}

func appendText(base, extra string) string {
	if extra == "" {
		return base
	}
	if base == "" {
		return extra
	}
	return base + "\n" + extra
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMap[K comparable, V any](base, overlay map[K]V) map[K]V {
	if len(overlay) == 0 {
		return base
	}
	out := copyMap(base)
	if out == nil {
		out = make(map[K]V, len(overlay))
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
