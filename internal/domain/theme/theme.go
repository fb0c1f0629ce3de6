package theme

// SettingType enumerates the recognized kinds of section setting fields
type SettingType string

const (
	SettingText     SettingType = "text"
	SettingTextarea SettingType = "textarea"
	SettingSelect   SettingType = "select"
	SettingRadio    SettingType = "radio"
	SettingCheckbox SettingType = "checkbox"
	SettingColor    SettingType = "color"
	SettingImage    SettingType = "image"
	SettingURL      SettingType = "url"
	SettingRange    SettingType = "range"
	SettingRichtext SettingType = "richtext"
)

// KnownSettingTypes lists every recognized setting type
var KnownSettingTypes = []SettingType{
	SettingText, SettingTextarea, SettingSelect, SettingRadio,
	SettingCheckbox, SettingColor, SettingImage, SettingURL,
	SettingRange, SettingRichtext,
}

// IsKnown reports whether the setting type is one of the recognized kinds
func (t SettingType) IsKnown() bool {
	for _, k := range KnownSettingTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ColorScheme holds the named color slots of a theme. Every slot is
// required and must be a syntactically valid color.
type ColorScheme struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	TextMuted  string `json:"text_muted"`
	Border     string `json:"border"`
}

// colorSlot pairs a slot name with its value for iteration in stable order
type colorSlot struct {
	name  string
	value string
}

// slots returns the color slots in their canonical order
func (c ColorScheme) slots() []colorSlot {
	return []colorSlot{
		{"primary", c.Primary},
		{"secondary", c.Secondary},
		{"accent", c.Accent},
		{"background", c.Background},
		{"surface", c.Surface},
		{"text", c.Text},
		{"text_muted", c.TextMuted},
		{"border", c.Border},
	}
}

// set assigns a slot by name, returning false for an unknown slot.
// The switch is exhaustive over the scheme's fields so an overlay cannot
// silently invent new slots.
func (c *ColorScheme) set(name, value string) bool {
	switch name {
	case "primary":
		c.Primary = value
	case "secondary":
		c.Secondary = value
	case "accent":
		c.Accent = value
	case "background":
		c.Background = value
	case "surface":
		c.Surface = value
	case "text":
		c.Text = value
	case "text_muted":
		c.TextMuted = value
	case "border":
		c.Border = value
	default:
		return false
	}
	return true
}

// Typography holds font families per role plus size, weight and
// line-height scales keyed by step name (e.g. "sm", "base", "xl").
type Typography struct {
	HeadingFont string             `json:"heading_font"`
	BodyFont    string             `json:"body_font"`
	FontSizes   map[string]string  `json:"font_sizes"`
	FontWeights map[string]int     `json:"font_weights"`
	LineHeights map[string]float64 `json:"line_heights"`
}

// isZero reports whether no typography has been configured at all
func (t Typography) isZero() bool {
	return t.HeadingFont == "" && t.BodyFont == "" &&
		len(t.FontSizes) == 0 && len(t.FontWeights) == 0 && len(t.LineHeights) == 0
}

// SpacingScale maps step names to spacing values
type SpacingScale map[string]string

// RadiusScale maps step names to border radius values
type RadiusScale map[string]string

// Layout holds the theme's page layout block
type Layout struct {
	ContainerWidth string `json:"container_width"`
	HeaderStyle    string `json:"header_style"`
	FooterStyle    string `json:"footer_style"`
}

// Settings is the styling portion of a theme configuration
type Settings struct {
	Colors     ColorScheme  `json:"colors"`
	Typography Typography   `json:"typography"`
	Spacing    SpacingScale `json:"spacing"`
	Radius     RadiusScale  `json:"radius"`
	Layout     Layout       `json:"layout"`
}

// SettingOption is one selectable choice of a select or radio setting
type SettingOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SettingField declares one configurable field of a section schema
type SettingField struct {
	ID      string          `json:"id"`
	Label   string          `json:"label"`
	Type    SettingType     `json:"type"`
	Default any             `json:"default,omitempty"`
	Options []SettingOption `json:"options,omitempty"`
	Min     *float64        `json:"min,omitempty"`
	Max     *float64        `json:"max,omitempty"`
	Step    *float64        `json:"step,omitempty"`
}

// BlockSchema declares a repeatable block inside a section
type BlockSchema struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Settings []SettingField `json:"settings,omitempty"`
}

// SectionSchemaBody is the declarative schema of a section's fields
type SectionSchemaBody struct {
	Settings []SettingField `json:"settings"`
	Blocks   []BlockSchema  `json:"blocks,omitempty"`
}

// SectionSchema describes one configurable storefront section
type SectionSchema struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Schema          SectionSchemaBody `json:"schema"`
	DefaultSettings map[string]any    `json:"default_settings,omitempty"`
}

// ThemeConfig is a complete theme configuration tree. It is never mutated
// in place; customizations produce a new derived config.
type ThemeConfig struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Version   string                   `json:"version"`
	Settings  Settings                 `json:"settings"`
	Sections  map[string]SectionSchema `json:"sections,omitempty"`
	CustomCSS string                   `json:"custom_css,omitempty"`
	CustomJS  string                   `json:"custom_js,omitempty"`
}

// SettingsOverlay is a partial settings override. Nil or empty fields
// leave the corresponding base fields untouched.
type SettingsOverlay struct {
	Colors      map[string]string  `json:"colors,omitempty"`
	HeadingFont string             `json:"heading_font,omitempty"`
	BodyFont    string             `json:"body_font,omitempty"`
	FontSizes   map[string]string  `json:"font_sizes,omitempty"`
	FontWeights map[string]int     `json:"font_weights,omitempty"`
	LineHeights map[string]float64 `json:"line_heights,omitempty"`
	Spacing     map[string]string  `json:"spacing,omitempty"`
	Radius      map[string]string  `json:"radius,omitempty"`
	Layout      map[string]string  `json:"layout,omitempty"`
}

// Customization is a customer overlay applied on top of a base theme
type Customization struct {
	Settings        *SettingsOverlay          `json:"settings,omitempty"`
	SectionSettings map[string]map[string]any `json:"section_settings,omitempty"`
	CustomCSS       string                    `json:"custom_css,omitempty"`
	CustomJS        string                    `json:"custom_js,omitempty"`
}
