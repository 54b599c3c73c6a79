package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dw-importer/core/catalog"
	"dw-importer/core/database"
	"dw-importer/core/importer"
	"dw-importer/core/logger"
	"dw-importer/core/retry"
	"dw-importer/core/server"
	"dw-importer/core/storage"
	"dw-importer/core/validate"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP report server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the warehouse connection.
	Database database.Config `mapstructure:"database"`
	// Import holds report publishing settings.
	Import importer.Config `mapstructure:"import"`
	// Retry holds the transient-failure policy.
	Retry retry.Config `mapstructure:"retry"`
	// Validate holds post-merge check sampling sizes.
	Validate validate.Config `mapstructure:"validate"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadSources reads the source catalog: every system, its tables, and
// their schemas. The catalog is validated before it is returned, so a
// broken definition fails here instead of mid-run.
func LoadSources(path string) ([]catalog.System, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read source catalog %s: %w", path, err)
	}

	var catalogFile struct {
		Systems []catalog.System `mapstructure:"systems"`
	}
	if err := v.Unmarshal(&catalogFile); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog %s: %w", path, err)
	}
	if len(catalogFile.Systems) == 0 {
		return nil, fmt.Errorf("source catalog %s defines no systems", path)
	}

	for i := range catalogFile.Systems {
		if err := catalogFile.Systems[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid source catalog %s: %w", path, err)
		}
	}
	return catalogFile.Systems, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
