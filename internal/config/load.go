package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// envFiles are loaded from the config directory in priority order. Variables
// already present in the process environment are never overridden.
var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads the .env files found in dir and returns the ones loaded.
func LoadEnvFiles(dir string) ([]string, error) {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// Load reads, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	if _, err := LoadEnvFiles(dir); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load environment files").Build()
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- user-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, foundationerrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to resolve config directory").Build()
	}
	cfg.baseDir = abs
	return cfg, nil
}

// Parse decodes a configuration document, applies defaults and validates it.
// Relative paths resolve against the current directory until a base
// directory is known.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to unmarshal config").Build()
	}

	if cfg.Version != "" && !strings.HasPrefix(cfg.Version, "1.") {
		return nil, foundationerrors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected 1.x)", cfg.Version)).Build()
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to apply defaults").Build()
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes the default configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to marshal config").Build()
	}

	header := "# assetbuilder configuration\n# Paths are relative to root; ${arch}, ${tools_platform}, ${configuration},\n# ${platform} and ${project} are expanded per run, then environment variables.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
