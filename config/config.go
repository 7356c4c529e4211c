package config

import (
	"github.com/sambeau/gradient/pkg/gradient/ml"
	"github.com/sambeau/gradient/pkg/gradient/plot"
)

// Config represents the complete Gradient configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Engines EnginesConfig `yaml:"engines"`
	Limits  LimitsConfig  `yaml:"limits"`
	Plot    PlotConfig    `yaml:"plot"`
	Data    DataConfig    `yaml:"data"`
	RunLog  RunLogConfig  `yaml:"run_log"`
}

// EnginesConfig holds the hyperparameters of each model engine
type EnginesConfig struct {
	KMeans           KMeansConfig   `yaml:"kmeans"`
	Autoencoder      TrainingConfig `yaml:"autoencoder"`
	LinearRegression TrainingConfig `yaml:"linear_regression"`
	MLPClassifier    TrainingConfig `yaml:"mlp_classifier"`
	NeuralNetwork    TrainingConfig `yaml:"neural_network"`
}

// KMeansConfig holds k-means settings
type KMeansConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"` // stop when no centroid moves further
	Seed          int64   `yaml:"seed"`
}

// TrainingConfig holds gradient-descent settings
type TrainingConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	MaxEpochs    int     `yaml:"max_epochs"`
	Tolerance    float64 `yaml:"tolerance"` // stop when the loss changes less than this
	Seed         int64   `yaml:"seed"`
}

// LimitsConfig bounds program execution
type LimitsConfig struct {
	MaxCallDepth int `yaml:"max_call_depth"`
}

// PlotConfig sizes the text charts
type PlotConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Bins   int    `yaml:"bins"`
	Locale string `yaml:"locale"` // number formatting of axis labels
}

// DataConfig holds read_file/write_file settings
type DataConfig struct {
	BaseDir string `yaml:"base_dir"` // relative file names resolve against this
}

// RunLogConfig holds run log settings
type RunLogConfig struct {
	Path    string `yaml:"path"` // empty disables the run log
	MaxRows int    `yaml:"max_rows"`
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Engines: EnginesConfig{
			KMeans:           KMeansConfig{MaxIterations: 100, Tolerance: 1e-6, Seed: 42},
			Autoencoder:      TrainingConfig{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-6, Seed: 42},
			LinearRegression: TrainingConfig{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-9, Seed: 42},
			MLPClassifier:    TrainingConfig{LearningRate: 0.1, MaxEpochs: 500, Tolerance: 1e-6, Seed: 42},
			NeuralNetwork:    TrainingConfig{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-7, Seed: 42},
		},
		Limits: LimitsConfig{MaxCallDepth: 512},
		Plot: PlotConfig{
			Width:  60,
			Height: 15,
			Bins:   10,
			Locale: "en",
		},
		Data:   DataConfig{BaseDir: "."},
		RunLog: RunLogConfig{MaxRows: 10000},
	}
}

func (t TrainingConfig) settings() ml.TrainingSettings {
	return ml.TrainingSettings{
		LearningRate: t.LearningRate,
		MaxEpochs:    t.MaxEpochs,
		Tolerance:    t.Tolerance,
		Seed:         t.Seed,
	}
}

// ToSettings converts the engine section for the ml package.
func (c *Config) ToSettings() ml.Settings {
	e := c.Engines
	return ml.Settings{
		KMeans: ml.KMeansSettings{
			MaxIterations: e.KMeans.MaxIterations,
			Tolerance:     e.KMeans.Tolerance,
			Seed:          e.KMeans.Seed,
		},
		Autoencoder:      e.Autoencoder.settings(),
		LinearRegression: e.LinearRegression.settings(),
		MLPClassifier:    e.MLPClassifier.settings(),
		NeuralNetwork:    e.NeuralNetwork.settings(),
	}
}

// PlotOptions converts the plot section for the plot package.
func (c *Config) PlotOptions() plot.Options {
	return plot.Options{
		Width:  c.Plot.Width,
		Height: c.Plot.Height,
		Bins:   c.Plot.Bins,
		Locale: c.Plot.Locale,
	}
}
