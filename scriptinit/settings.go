// Package scriptinit initializes a database from SQL scripts and versioned
// migrations. Both initializers are dbinit.DatabaseInitializer beans, so the
// built-in detectors order them before the beans that use the database.
package scriptinit

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Mode controls when scripts are applied.
type Mode string

const (
	// ModeAlways applies scripts to any database.
	ModeAlways Mode = "always"
	// ModeEmbedded applies scripts only to embedded (SQLite) databases.
	ModeEmbedded Mode = "embedded"
	// ModeNever disables script initialization.
	ModeNever Mode = "never"
)

// DefaultSeparator separates statements within a script.
const DefaultSeparator = ";"

// OptionalPrefix marks a script location that may match nothing.
const OptionalPrefix = "optional:"

// ParseMode maps a mode name (case-insensitive) to a Mode. Empty means ModeEmbedded.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeEmbedded, nil
	case ModeAlways, ModeEmbedded, ModeNever:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Settings configure a ScriptDatabaseInitializer.
type Settings struct {
	// SchemaLocations are glob patterns of the DDL scripts, applied first.
	SchemaLocations []string `mapstructure:"schema_locations"`
	// DataLocations are glob patterns of the DML scripts, applied after the schema.
	DataLocations []string `mapstructure:"data_locations"`
	// ContinueOnError logs failing statements and carries on instead of aborting.
	ContinueOnError bool `mapstructure:"continue_on_error"`
	// Separator splits a script into statements.
	Separator string `mapstructure:"separator"`
	Mode      Mode   `mapstructure:"mode"`
}

func DefaultSettings() Settings {
	return Settings{
		Separator: DefaultSeparator,
		Mode:      ModeEmbedded,
	}
}

// LoadSettings reads the settings stored under key in v, starting from
// DefaultSettings. Locations may be given as lists or comma-separated strings.
func LoadSettings(v *viper.Viper, key string) (Settings, error) {
	s := DefaultSettings()
	if v == nil || !v.IsSet(key) {
		return s, nil
	}
	if err := v.UnmarshalKey(key, &s); err != nil {
		return Settings{}, fmt.Errorf("load %s: %w", key, err)
	}
	mode, err := ParseMode(string(s.Mode))
	if err != nil {
		return Settings{}, err
	}
	s.Mode = mode
	if s.Separator == "" {
		s.Separator = DefaultSeparator
	}
	return s, nil
}
