package experiment

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages experiment configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Simulation parameters
	v.SetDefault("simulation.t_max", 50)
	v.SetDefault("simulation.probability", 0.5)

	// Seeding parameters
	v.SetDefault("seeding.infected", 5)
	v.SetDefault("seeding.vaccinated", 5)

	// Experiment parameters
	v.SetDefault("experiment.trials", 20)
	v.SetDefault("experiment.random_seed", time.Now().UnixNano())
	v.SetDefault("experiment.strategies", []string{"random", "degree", "betweenness"})

	// Graph parameters
	v.SetDefault("graph.nodes", 1000)
	v.SetDefault("graph.er_mean_degree", 1.5)
	v.SetDefault("graph.gamma", 2.5)
	v.SetDefault("graph.edge_list", "")

	// Performance parameters
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	// Output parameters
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.snapshot_times", []int{0, 25, 49})

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for simulation parameters
func (c *Config) TMax() int            { return c.v.GetInt("simulation.t_max") }
func (c *Config) Probability() float64 { return c.v.GetFloat64("simulation.probability") }

func (c *Config) Infected() int   { return c.v.GetInt("seeding.infected") }
func (c *Config) Vaccinated() int { return c.v.GetInt("seeding.vaccinated") }

func (c *Config) Trials() int           { return c.v.GetInt("experiment.trials") }
func (c *Config) RandomSeed() int64     { return c.v.GetInt64("experiment.random_seed") }
func (c *Config) Strategies() []string  { return c.v.GetStringSlice("experiment.strategies") }
func (c *Config) NumNodes() int         { return c.v.GetInt("graph.nodes") }
func (c *Config) ERMeanDegree() float64 { return c.v.GetFloat64("graph.er_mean_degree") }
func (c *Config) Gamma() float64        { return c.v.GetFloat64("graph.gamma") }
func (c *Config) EdgeList() string      { return c.v.GetString("graph.edge_list") }

func (c *Config) NumWorkers() int { return c.v.GetInt("performance.num_workers") }

func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

func (c *Config) OutputDir() string    { return c.v.GetString("output.dir") }
func (c *Config) OutputFormat() string { return c.v.GetString("output.format") }
func (c *Config) SnapshotTimes() []int { return c.v.GetIntSlice("output.snapshot_times") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// RepeatConfig derives the repetition settings from the configuration
func (c *Config) RepeatConfig() RepeatConfig {
	return RepeatConfig{
		TMax:    c.TMax(),
		P:       c.Probability(),
		Trials:  c.Trials(),
		Workers: c.NumWorkers(),
		Seed:    uint64(c.RandomSeed()),
	}
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "diffusion").Logger()
}
