package providers

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType enumerates the value types a schema field can take.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldInt    FieldType = "integer"
)

// Field describes one configuration key of a provider.
type Field struct {
	Name        string
	Description string
	Type        FieldType
	Required    bool
	Default     string
	Enum        []string
	Min         float64
	Max         float64
	Bounded     bool
}

// Schema describes the configuration surface of a provider.
type Schema struct {
	Fields []Field
}

// Validate checks settings against the schema: required keys present,
// numeric values parseable and within bounds, enum values in range.
func (s Schema) Validate(settings Settings) error {
	for _, field := range s.Fields {
		raw, ok := settings[field.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			if field.Required {
				return fmt.Errorf("missing required setting %q", field.Name)
			}
			continue
		}
		if len(field.Enum) > 0 {
			found := false
			for _, allowed := range field.Enum {
				if raw == allowed {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("setting %q: value %q not in %v", field.Name, raw, field.Enum)
			}
		}
		switch field.Type {
		case FieldNumber, FieldInt:
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("setting %q: %q is not numeric", field.Name, raw)
			}
			if field.Bounded && (value < field.Min || value > field.Max) {
				return fmt.Errorf("setting %q: %v outside [%v, %v]", field.Name, value, field.Min, field.Max)
			}
		}
	}
	return nil
}

// String reads a string setting with a fallback default.
func (s Settings) String(key, fallback string) string {
	if value, ok := s[key]; ok {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return fallback
}

// Float reads a numeric setting with a fallback default.
func (s Settings) Float(key string, fallback float64) float64 {
	if value, ok := s[key]; ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// Int reads an integer setting with a fallback default.
func (s Settings) Int(key string, fallback int) int {
	if value, ok := s[key]; ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
