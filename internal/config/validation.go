package config

import (
	"fmt"
	"path"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateLogging(); err != nil {
		return err
	}
	if err := cv.validateCompilers(); err != nil {
		return err
	}
	if err := cv.validateGroups(); err != nil {
		return err
	}
	if err := cv.validateProject(); err != nil {
		return err
	}
	if err := cv.validateToolchain(); err != nil {
		return err
	}
	if err := cv.validateWatch(); err != nil {
		return err
	}
	return cv.validateNotify()
}

func invalid(format string, args ...any) error {
	return foundationerrors.ValidationError(fmt.Sprintf(format, args...)).Build()
}

func (cv *configurationValidator) validateLogging() error {
	switch strings.ToLower(cv.config.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return invalid("invalid logging level: %s", cv.config.Logging.Level)
	}
}

func (cv *configurationValidator) validateCompilers() error {
	seen := make(map[string]struct{}, len(cv.config.Compilers))
	for i, c := range cv.config.Compilers {
		if c.Name == "" {
			return invalid("compiler %d: name is required", i)
		}
		if _, dup := seen[c.Name]; dup {
			return invalid("duplicate compiler name: %s", c.Name)
		}
		seen[c.Name] = struct{}{}

		switch c.Kind {
		case "model", "texture", "other":
		default:
			return invalid("compiler %s: unsupported kind %q (model|texture|other)", c.Name, c.Kind)
		}
		if c.Executable == "" {
			return invalid("compiler %s: executable is required", c.Name)
		}
		if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
			return invalid("compiler %s: extension must start with '.', got %q", c.Name, c.Extension)
		}
		if err := validateRules("compiler "+c.Name, c.Rules); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateGroups() error {
	seen := make(map[string]struct{}, len(cv.config.Data.Groups))
	for i, g := range cv.config.Data.Groups {
		if g.Name == "" {
			return invalid("data group %d: name is required", i)
		}
		if _, dup := seen[g.Name]; dup {
			return invalid("duplicate data group name: %s", g.Name)
		}
		seen[g.Name] = struct{}{}

		for j, s := range g.Sets {
			where := fmt.Sprintf("group %s set %d", g.Name, j)
			if _, ok := cv.config.Compiler(s.Compiler); !ok {
				return invalid("%s: unknown compiler %q", where, s.Compiler)
			}
			if s.Source == "" || s.Output == "" {
				return invalid("%s: source and output are required", where)
			}
			if err := validateRules(where, s.Rules); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRules(where string, rules []RuleConfig) error {
	for i, r := range rules {
		set := 0
		for _, v := range []string{r.Exact, r.Contains, r.Glob} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return invalid("%s rule %d: exactly one of exact, contains or glob must be set", where, i)
		}
		if r.Glob != "" {
			if _, err := path.Match(r.Glob, ""); err != nil {
				return invalid("%s rule %d: bad glob %q: %v", where, i, r.Glob, err)
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateProject() error {
	p := cv.config.Project
	if len(p.Solutions) > 0 && p.Name == "" {
		return invalid("project: name is required when solutions are configured")
	}
	for _, pattern := range p.Artifacts {
		if _, err := path.Match(pattern, ""); err != nil {
			return invalid("project: bad artifact pattern %q: %v", pattern, err)
		}
	}
	return nil
}

// preDevCmdToolchains predate VsDevCmd.bat and set up through vsvars32.bat.
var preDevCmdToolchains = []string{"VS100COMNTOOLS", "VS90COMNTOOLS", "VS80COMNTOOLS"}

func (cv *configurationValidator) validateToolchain() error {
	t := cv.config.Toolchain
	if !strings.EqualFold(t.SetupScript, "VsDevCmd.bat") {
		return nil
	}
	for _, name := range t.EnvVars {
		for _, legacy := range preDevCmdToolchains {
			if strings.EqualFold(name, legacy) {
				return invalid("toolchain: %s has no VsDevCmd.bat; set setup_script: vsvars32.bat", name)
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateWatch() error {
	w := cv.config.Watch
	if _, err := time.ParseDuration(w.Debounce); err != nil {
		return invalid("watch: invalid debounce %q: %v", w.Debounce, err)
	}
	if w.Every != "" {
		d, err := time.ParseDuration(w.Every)
		if err != nil {
			return invalid("watch: invalid interval %q: %v", w.Every, err)
		}
		if d < time.Minute {
			return invalid("watch: interval must be at least 1m, got %s", d)
		}
	}
	return nil
}

func (cv *configurationValidator) validateNotify() error {
	n := cv.config.Notify
	switch n.Backoff {
	case "", "fixed", "linear", "exponential":
	default:
		return invalid("notify: unsupported backoff %q (fixed|linear|exponential)", n.Backoff)
	}
	if n.Retries < 0 {
		return invalid("notify: retries cannot be negative")
	}
	if n.RetryDelay != "" {
		if _, err := time.ParseDuration(n.RetryDelay); err != nil {
			return invalid("notify: invalid retry_delay %q: %v", n.RetryDelay, err)
		}
	}
	return nil
}
