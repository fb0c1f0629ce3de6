package theme

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ValidationError addresses one invalid field by its dotted path, e.g.
// "sections.hero.schema.settings[2].min". Validators collect every error
// they find instead of stopping at the first one.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func newError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

var (
	semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)
	hexRe    = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	rgbRe    = regexp.MustCompile(`^rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(?:,\s*(?:0|1|0?\.\d+|1\.0)\s*)?\)$`)
	hslRe    = regexp.MustCompile(`^hsla?\(\s*\d{1,3}\s*,\s*\d{1,3}%\s*,\s*\d{1,3}%\s*(?:,\s*(?:0|1|0?\.\d+|1\.0)\s*)?\)$`)
)

// namedColors covers the CSS keyword colors the theme editor offers plus
// the universal keywords.
var namedColors = map[string]struct{}{
	"transparent": {}, "currentcolor": {}, "inherit": {},
	"black": {}, "white": {}, "red": {}, "green": {}, "blue": {},
	"yellow": {}, "orange": {}, "purple": {}, "pink": {}, "gray": {},
	"grey": {}, "brown": {}, "cyan": {}, "magenta": {}, "lime": {},
	"navy": {}, "teal": {}, "olive": {}, "maroon": {}, "silver": {},
	"gold": {}, "beige": {}, "coral": {}, "crimson": {}, "indigo": {},
	"ivory": {}, "khaki": {}, "lavender": {}, "salmon": {}, "tan": {},
	"turquoise": {}, "violet": {}, "aqua": {}, "fuchsia": {},
}

// IsValidColor reports whether the value matches the supported color
// grammar: hex, rgb()/rgba(), hsl()/hsla() or a named keyword.
func IsValidColor(value string) bool {
	if value == "" {
		return false
	}
	if hexRe.MatchString(value) || rgbRe.MatchString(value) || hslRe.MatchString(value) {
		return true
	}
	_, ok := namedColors[strings.ToLower(value)]
	return ok
}

// IsValidURLValue reports whether the value is an absolute URL or a
// root-relative path.
func IsValidURLValue(value string) bool {
	if value == "" {
		return false
	}
	if value[0] == '/' {
		return true
	}
	u, err := url.Parse(value)
	return err == nil && u.IsAbs()
}

// ValidateTheme statically verifies a theme configuration tree. It returns
// every problem it finds; an empty list signals full validity. The function
// performs no mutation and no I/O.
func ValidateTheme(cfg *ThemeConfig) []ValidationError {
	var errs []ValidationError

	if cfg.ID == "" {
		errs = append(errs, newError("id", "theme id is required"))
	}
	if cfg.Name == "" {
		errs = append(errs, newError("name", "theme name is required"))
	}
	if cfg.Version == "" {
		errs = append(errs, newError("version", "theme version is required"))
	} else if !semverRe.MatchString(cfg.Version) {
		errs = append(errs, newError("version", fmt.Sprintf("%q is not a valid semver version", cfg.Version)))
	}

	for _, slot := range cfg.Settings.Colors.slots() {
		field := "settings.colors." + slot.name
		if slot.value == "" {
			errs = append(errs, newError(field, "required color slot is missing"))
		} else if !IsValidColor(slot.value) {
			errs = append(errs, newError(field, fmt.Sprintf("%q is not a valid color", slot.value)))
		}
	}

	if cfg.Settings.Typography.isZero() {
		errs = append(errs, newError("settings.typography", "typography block is required"))
	}

	// Deterministic error order regardless of map iteration
	ids := make([]string, 0, len(cfg.Sections))
	for id := range cfg.Sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		section := cfg.Sections[id]
		for _, err := range ValidateSection(&section) {
			errs = append(errs, newError("sections."+id+"."+err.Field, err.Message))
		}
	}

	return errs
}

// ValidateSection verifies one section schema: identity fields, recognized
// setting types, and the per-type structural constraints.
func ValidateSection(section *SectionSchema) []ValidationError {
	var errs []ValidationError

	if section.ID == "" {
		errs = append(errs, newError("id", "section id is required"))
	}
	if section.Name == "" {
		errs = append(errs, newError("name", "section name is required"))
	}

	errs = append(errs, validateFields("schema.settings", section.Schema.Settings)...)

	for bi, block := range section.Schema.Blocks {
		prefix := fmt.Sprintf("schema.blocks[%d]", bi)
		if block.Type == "" {
			errs = append(errs, newError(prefix+".type", "block type is required"))
		}
		if block.Name == "" {
			errs = append(errs, newError(prefix+".name", "block name is required"))
		}
		errs = append(errs, validateFields(prefix+".settings", block.Settings)...)
	}

	return errs
}

func validateFields(prefix string, fields []SettingField) []ValidationError {
	var errs []ValidationError

	for i, field := range fields {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if field.ID == "" {
			errs = append(errs, newError(path+".id", "setting id is required"))
		}
		if !field.Type.IsKnown() {
			errs = append(errs, newError(path+".type", fmt.Sprintf("%q is not a recognized setting type", field.Type)))
			continue
		}

		switch field.Type {
		case SettingSelect, SettingRadio:
			if len(field.Options) == 0 {
				errs = append(errs, newError(path+".options", string(field.Type)+" setting requires a non-empty options list"))
			}
			for oi, opt := range field.Options {
				if opt.Value == "" {
					errs = append(errs, newError(fmt.Sprintf("%s.options[%d].value", path, oi), "option value is required"))
				}
			}
		case SettingRange:
			if field.Min == nil {
				errs = append(errs, newError(path+".min", "range setting requires min"))
			}
			if field.Max == nil {
				errs = append(errs, newError(path+".max", "range setting requires max"))
			}
			if field.Min != nil && field.Max != nil && *field.Min >= *field.Max {
				errs = append(errs, newError(path+".min", "range min must be below max"))
			}
		}
	}

	return errs
}

// ValidateSectionSettings validates a concrete settings value map against a
// section's schema. A setting is required unless it declares a default or
// is a checkbox (checkboxes implicitly default to false).
func ValidateSectionSettings(section *SectionSchema, values map[string]any) []ValidationError {
	var errs []ValidationError

	known := make(map[string]SettingField, len(section.Schema.Settings))
	for _, field := range section.Schema.Settings {
		known[field.ID] = field
	}

	for _, field := range section.Schema.Settings {
		value, present := values[field.ID]
		if !present {
			if field.Default == nil && field.Type != SettingCheckbox {
				errs = append(errs, newError("settings."+field.ID, "required setting is missing"))
			}
			continue
		}
		errs = append(errs, validateValue(field, value)...)
	}

	// Unknown keys are rejected rather than silently passed through
	extra := make([]string, 0)
	for key := range values {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		errs = append(errs, newError("settings."+key, "setting is not declared in the section schema"))
	}

	return errs
}

func validateValue(field SettingField, value any) []ValidationError {
	path := "settings." + field.ID

	switch field.Type {
	case SettingColor:
		s, ok := value.(string)
		if !ok || !IsValidColor(s) {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not a valid color", value))}
		}
	case SettingURL, SettingImage:
		s, ok := value.(string)
		if !ok || !IsValidURLValue(s) {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not an absolute or root-relative URL", value))}
		}
	case SettingRange:
		n, ok := toFloat(value)
		if !ok {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not numeric", value))}
		}
		if field.Min != nil && n < *field.Min {
			return []ValidationError{newError(path, fmt.Sprintf("%v is below min %v", n, *field.Min))}
		}
		if field.Max != nil && n > *field.Max {
			return []ValidationError{newError(path, fmt.Sprintf("%v is above max %v", n, *field.Max))}
		}
	case SettingSelect, SettingRadio:
		s, ok := value.(string)
		if !ok {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not a string option value", value))}
		}
		for _, opt := range field.Options {
			if opt.Value == s {
				return nil
			}
		}
		return []ValidationError{newError(path, fmt.Sprintf("%q does not match any declared option", s))}
	case SettingCheckbox:
		if _, ok := value.(bool); !ok {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not a boolean", value))}
		}
	case SettingText, SettingTextarea, SettingRichtext:
		if _, ok := value.(string); !ok {
			return []ValidationError{newError(path, fmt.Sprintf("%v is not a string", value))}
		}
	}

	return nil
}

// toFloat accepts the numeric representations a JSON decode can produce
func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
