package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding a config file path.
const EnvVar = "GRADIENT_CONFIG"

// FileName is the config file looked for in the working directory and in
// ~/.config/gradient.
const FileName = "gradient.yaml"

// errNoConfig means no config file was found in the default locations.
var errNoConfig = errors.New("no config file found")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when none exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path. The path is empty when the defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if errors.Is(err, errNoConfig) {
		return Defaults(), "", nil
	}
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.BaseDir = baseDir

	if cfg.Data.BaseDir != "" && !filepath.IsAbs(cfg.Data.BaseDir) {
		cfg.Data.BaseDir = filepath.Join(baseDir, cfg.Data.BaseDir)
	}
	if cfg.RunLog.Path != "" && !filepath.IsAbs(cfg.RunLog.Path) {
		cfg.RunLog.Path = filepath.Join(baseDir, cfg.RunLog.Path)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cfg, absPath, nil
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > GRADIENT_CONFIG env > ./gradient.yaml > ~/.config/gradient/gradient.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv(EnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s file not found: %s", EnvVar, envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "gradient", FileName)
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", errNoConfig
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	km := cfg.Engines.KMeans
	if km.MaxIterations < 1 {
		errs = append(errs, fmt.Sprintf("engines.kmeans.max_iterations: %d (must be at least 1)", km.MaxIterations))
	}
	if km.Tolerance < 0 {
		errs = append(errs, fmt.Sprintf("engines.kmeans.tolerance: %g (must not be negative)", km.Tolerance))
	}

	training := []struct {
		name string
		cfg  TrainingConfig
	}{
		{"autoencoder", cfg.Engines.Autoencoder},
		{"linear_regression", cfg.Engines.LinearRegression},
		{"mlp_classifier", cfg.Engines.MLPClassifier},
		{"neural_network", cfg.Engines.NeuralNetwork},
	}
	for _, e := range training {
		if e.cfg.LearningRate <= 0 {
			errs = append(errs, fmt.Sprintf("engines.%s.learning_rate: %g (must be positive)", e.name, e.cfg.LearningRate))
		}
		if e.cfg.MaxEpochs < 1 {
			errs = append(errs, fmt.Sprintf("engines.%s.max_epochs: %d (must be at least 1)", e.name, e.cfg.MaxEpochs))
		}
		if e.cfg.Tolerance < 0 {
			errs = append(errs, fmt.Sprintf("engines.%s.tolerance: %g (must not be negative)", e.name, e.cfg.Tolerance))
		}
	}

	if cfg.Limits.MaxCallDepth < 1 {
		errs = append(errs, fmt.Sprintf("limits.max_call_depth: %d (must be at least 1)", cfg.Limits.MaxCallDepth))
	}

	if cfg.Plot.Width < 2 || cfg.Plot.Height < 2 {
		errs = append(errs, fmt.Sprintf("plot: %dx%d chart (width and height must be at least 2)", cfg.Plot.Width, cfg.Plot.Height))
	}
	if cfg.Plot.Bins < 1 {
		errs = append(errs, fmt.Sprintf("plot.bins: %d (must be at least 1)", cfg.Plot.Bins))
	}
	if _, err := language.Parse(cfg.Plot.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("plot.locale: %q is not a language tag", cfg.Plot.Locale))
	}

	if cfg.RunLog.MaxRows < 1 {
		errs = append(errs, fmt.Sprintf("run_log.max_rows: %d (must be at least 1)", cfg.RunLog.MaxRows))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns non-fatal configuration issues that should be reported
// to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Limits.MaxCallDepth > 100000 {
		warnings = append(warnings, fmt.Sprintf("limits.max_call_depth %d is very deep - runaway recursion may exhaust memory before it is stopped", cfg.Limits.MaxCallDepth))
	}

	for name, e := range map[string]TrainingConfig{
		"autoencoder":       cfg.Engines.Autoencoder,
		"linear_regression": cfg.Engines.LinearRegression,
		"mlp_classifier":    cfg.Engines.MLPClassifier,
		"neural_network":    cfg.Engines.NeuralNetwork,
	} {
		if e.LearningRate > 1 {
			warnings = append(warnings, fmt.Sprintf("engines.%s.learning_rate %g is above 1 - training will likely diverge", name, e.LearningRate))
		}
	}

	if cfg.Plot.Width > 200 {
		warnings = append(warnings, fmt.Sprintf("plot.width %d is wider than most terminals", cfg.Plot.Width))
	}

	if cfg.Data.BaseDir != "" {
		if info, err := os.Stat(cfg.Data.BaseDir); err != nil || !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("data.base_dir %s is not a directory - read_file will fail", cfg.Data.BaseDir))
		}
	}

	// map iteration order
	sort.Strings(warnings)
	return warnings
}
