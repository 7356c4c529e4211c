package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noenv(string) string { return "" }

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Limits.MaxCallDepth != 512 {
		t.Errorf("expected default max_call_depth 512, got %d", cfg.Limits.MaxCallDepth)
	}
	if cfg.Engines.KMeans.MaxIterations != 100 {
		t.Errorf("expected default kmeans max_iterations 100, got %d", cfg.Engines.KMeans.MaxIterations)
	}
	if cfg.Engines.MLPClassifier.LearningRate != 0.1 {
		t.Errorf("expected default mlp learning_rate 0.1, got %g", cfg.Engines.MLPClassifier.LearningRate)
	}
	if cfg.Plot.Locale != "en" {
		t.Errorf("expected default locale 'en', got %q", cfg.Plot.Locale)
	}
	if cfg.RunLog.Path != "" {
		t.Errorf("expected run log disabled by default, got %q", cfg.RunLog.Path)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "GRAD_RATE":
			return "0.05"
		case "GRAD_DIR":
			return "/data"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "learning_rate: ${GRAD_RATE}",
			expected: "learning_rate: 0.05",
		},
		{
			name:     "with default (env set)",
			input:    "base_dir: ${GRAD_DIR:-.}",
			expected: "base_dir: /data",
		},
		{
			name:     "with default (env not set)",
			input:    "locale: ${GRAD_LOCALE:-fr}",
			expected: "locale: fr",
		},
		{
			name:     "multiple substitutions",
			input:    "${GRAD_DIR}/${GRAD_RATE}",
			expected: "/data/0.05",
		},
		{
			name:     "unset without default",
			input:    "path: ${NOPE}",
			expected: "path: ",
		},
		{
			name:     "no substitution",
			input:    "width: 80",
			expected: "width: 80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "gradient.yaml")

	configContent := `
engines:
  kmeans:
    max_iterations: 20
  mlp_classifier:
    learning_rate: 0.2

limits:
  max_call_depth: 64

plot:
  width: 40
  locale: de

data:
  base_dir: ./data

run_log:
  path: logs/runs.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, path, err := LoadWithPath(configPath, noenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != configPath {
		t.Errorf("expected resolved path %q, got %q", configPath, path)
	}

	if cfg.Engines.KMeans.MaxIterations != 20 {
		t.Errorf("expected kmeans max_iterations 20, got %d", cfg.Engines.KMeans.MaxIterations)
	}
	// unset keys keep their defaults
	if cfg.Engines.KMeans.Seed != 42 {
		t.Errorf("expected kmeans seed 42, got %d", cfg.Engines.KMeans.Seed)
	}
	if cfg.Engines.MLPClassifier.LearningRate != 0.2 {
		t.Errorf("expected mlp learning_rate 0.2, got %g", cfg.Engines.MLPClassifier.LearningRate)
	}
	if cfg.Engines.MLPClassifier.MaxEpochs != 500 {
		t.Errorf("expected mlp max_epochs 500, got %d", cfg.Engines.MLPClassifier.MaxEpochs)
	}
	if cfg.Limits.MaxCallDepth != 64 {
		t.Errorf("expected max_call_depth 64, got %d", cfg.Limits.MaxCallDepth)
	}
	if cfg.Plot.Width != 40 || cfg.Plot.Height != 15 {
		t.Errorf("expected 40x15 chart, got %dx%d", cfg.Plot.Width, cfg.Plot.Height)
	}

	// Relative paths resolve against the config directory
	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if want := filepath.Join(dir, "data"); cfg.Data.BaseDir != want {
		t.Errorf("expected data base_dir %q, got %q", want, cfg.Data.BaseDir)
	}
	if want := filepath.Join(dir, "logs", "runs.db"); cfg.RunLog.Path != want {
		t.Errorf("expected run_log path %q, got %q", want, cfg.RunLog.Path)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "gradient.yaml")

	configContent := `
data:
  base_dir: ${GRAD_DATA}
plot:
  locale: ${GRAD_LOCALE:-fr}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "GRAD_DATA" {
			return "/srv/data"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.BaseDir != "/srv/data" {
		t.Errorf("expected base_dir '/srv/data', got %q", cfg.Data.BaseDir)
	}
	if cfg.Plot.Locale != "fr" {
		t.Errorf("expected locale 'fr', got %q", cfg.Plot.Locale)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("plot: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(bad, noenv); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("limits:\n  max_call_depth: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	_, err := Load(invalid, noenv)
	if err == nil || !strings.Contains(err.Error(), "max_call_depth") {
		t.Errorf("expected max_call_depth validation error, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml"), noenv); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := LoadWithPath("", noenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.Limits.MaxCallDepth != 512 {
		t.Errorf("expected defaults, got max_call_depth %d", cfg.Limits.MaxCallDepth)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []string
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name: "non-positive learning rate",
			modify: func(c *Config) {
				c.Engines.NeuralNetwork.LearningRate = 0
			},
			wantErr: []string{"engines.neural_network.learning_rate"},
		},
		{
			name: "zero epochs and negative tolerance",
			modify: func(c *Config) {
				c.Engines.Autoencoder.MaxEpochs = 0
				c.Engines.KMeans.Tolerance = -1
			},
			wantErr: []string{"engines.autoencoder.max_epochs", "engines.kmeans.tolerance"},
		},
		{
			name: "tiny chart",
			modify: func(c *Config) {
				c.Plot.Height = 1
				c.Plot.Bins = 0
			},
			wantErr: []string{"plot: 60x1", "plot.bins"},
		},
		{
			name: "bad locale",
			modify: func(c *Config) {
				c.Plot.Locale = "not a locale!"
			},
			wantErr: []string{"plot.locale"},
		},
		{
			name: "run log rows",
			modify: func(c *Config) {
				c.RunLog.MaxRows = 0
			},
			wantErr: []string{"run_log.max_rows"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %v, got none", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error containing %q, got %v", want, err)
				}
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	// Test explicit path not found
	if _, err := resolveConfigPath("/nonexistent/path/gradient.yaml", noenv); err == nil {
		t.Error("expected error for nonexistent path")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	resolved, err := resolveConfigPath(configPath, noenv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != configPath {
		t.Errorf("expected %q, got %q", configPath, resolved)
	}

	// Environment variable
	getenv := func(key string) string {
		if key == EnvVar {
			return configPath
		}
		return ""
	}
	resolved, err = resolveConfigPath("", getenv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != configPath {
		t.Errorf("expected %q from %s, got %q", configPath, EnvVar, resolved)
	}

	// Working directory file beats the home directory
	work := t.TempDir()
	t.Chdir(work)
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(FileName, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	resolved, err = resolveConfigPath("", noenv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != FileName {
		t.Errorf("expected %q, got %q", FileName, resolved)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		wantWarn string
	}{
		{
			name:     "defaults",
			modify:   func(*Config) {},
			wantWarn: "",
		},
		{
			name: "large learning rate",
			modify: func(c *Config) {
				c.Engines.LinearRegression.LearningRate = 2
			},
			wantWarn: "engines.linear_regression.learning_rate",
		},
		{
			name: "deep recursion",
			modify: func(c *Config) {
				c.Limits.MaxCallDepth = 1000000
			},
			wantWarn: "max_call_depth",
		},
		{
			name: "missing data directory",
			modify: func(c *Config) {
				c.Data.BaseDir = "/nonexistent/gradient/data"
			},
			wantWarn: "data.base_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			warnings := Warnings(cfg)
			if tt.wantWarn == "" {
				if len(warnings) > 0 {
					t.Errorf("expected no warnings, got %v", warnings)
				}
				return
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantWarn) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected warning containing %q, got %v", tt.wantWarn, warnings)
			}
		})
	}
}
