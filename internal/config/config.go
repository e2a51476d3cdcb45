package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag when reading overrides from the
// environment.
const EnvPrefix = "STREAMNODE_"

// binding ties one options-struct field to its configuration sources.
type binding struct {
	value    reflect.Value
	flagName string
	tomlPath string
	envKey   string
}

// LoadConfig fills the options struct with precedence CLI args > env vars >
// config file. Fields already set through CLI flags are left untouched; the
// flag name is derived from the field name (LoggingLevel -> logging-level).
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	bindings := collectBindings(v)

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	if err := applyFile(configFilePath(v), bindings, changed); err != nil {
		return err
	}
	applyEnv(bindings, changed)
	return nil
}

// configFilePath returns the value of the struct's Config field, which names
// the TOML file to load.
func configFilePath(v reflect.Value) string {
	field := v.FieldByName("Config")
	if field.IsValid() && field.Kind() == reflect.String {
		return field.String()
	}
	return ""
}

func collectBindings(v reflect.Value) []binding {
	t := v.Type()
	bindings := make([]binding, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		f := t.Field(i)
		bindings = append(bindings, binding{
			value:    v.Field(i),
			flagName: fieldNameToFlag(f.Name),
			tomlPath: f.Tag.Get("toml"),
			envKey:   f.Tag.Get("env"),
		})
	}
	return bindings
}

// applyFile loads the TOML file at path, if any, and copies its values into
// bindings not already set via CLI. A missing file is not an error.
func applyFile(path string, bindings []binding, changed map[string]bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for _, b := range bindings {
		if b.tomlPath == "" || changed[b.flagName] {
			continue
		}
		if value := lookupTOML(doc, b.tomlPath); value != nil {
			setFromTOML(b.value, value)
		}
	}
	return nil
}

func applyEnv(bindings []binding, changed map[string]bool) {
	for _, b := range bindings {
		if b.envKey == "" || changed[b.flagName] {
			continue
		}
		if value := os.Getenv(EnvPrefix + b.envKey); value != "" {
			setFromString(b.value, value)
		}
	}
}

// fieldNameToFlag converts a struct field name to its CLI flag name.
// "LoggingLevel" becomes "logging-level".
func fieldNameToFlag(name string) string {
	var out []rune
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// lookupTOML walks a dotted path like "logging.level" through nested tables.
func lookupTOML(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func setFromTOML(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			return
		}
		out := make([]string, len(arr))
		for i, item := range arr {
			if s, ok := item.(string); ok {
				out[i] = s
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

func setFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		// Env vars carry string slices as comma-separated values.
		parts := strings.Split(value, ",")
		out := make([]string, len(parts))
		for i, part := range parts {
			out[i] = strings.TrimSpace(part)
		}
		field.Set(reflect.ValueOf(out))
	}
}

// LoadLoggingConfig reads the [logging] table from a TOML config file.
// The "level" and "format" keys set the defaults; every other key names a
// module with its own level. Missing or unparsable files yield defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var doc struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return cfg
	}

	for key, value := range doc.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
