package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Jobs     JobConfig
	Storage  StorageConfig
	Defaults DefaultsConfig
}

type ServerConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string // space separated in SERVER_ALLOWED_ORIGINS
}

type JobConfig struct {
	MaxWorkers      int
	TrialWorkers    int
	JobTimeout      time.Duration
	CleanupInterval time.Duration
	ResultTTL       time.Duration
	MaxNodes        int
	MaxTrials       int
}

type StorageConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
	Prefix   string
}

// DefaultsConfig fills the parameters a job request leaves out
type DefaultsConfig struct {
	TMax       int
	P          float64
	Infected   int
	Vaccinated int
	Trials     int
}

// Load reads the service configuration from the environment
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("JOB_MAX_WORKERS", 4)
	v.SetDefault("JOB_TRIAL_WORKERS", 2)
	v.SetDefault("JOB_TIMEOUT", 10*time.Minute)
	v.SetDefault("JOB_CLEANUP_INTERVAL", 5*time.Minute)
	v.SetDefault("JOB_RESULT_TTL", time.Hour)
	v.SetDefault("JOB_MAX_NODES", 100000)
	v.SetDefault("JOB_MAX_TRIALS", 1000)

	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_PREFIX", "diffusion")

	v.SetDefault("DEFAULT_T_MAX", 50)
	v.SetDefault("DEFAULT_PROBABILITY", 0.5)
	v.SetDefault("DEFAULT_INFECTED", 5)
	v.SetDefault("DEFAULT_VACCINATED", 5)
	v.SetDefault("DEFAULT_TRIALS", 20)

	cfg := &Config{
		Server: ServerConfig{
			Address:        v.GetString("SERVER_ADDRESS"),
			ReadTimeout:    v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Jobs: JobConfig{
			MaxWorkers:      v.GetInt("JOB_MAX_WORKERS"),
			TrialWorkers:    v.GetInt("JOB_TRIAL_WORKERS"),
			JobTimeout:      v.GetDuration("JOB_TIMEOUT"),
			CleanupInterval: v.GetDuration("JOB_CLEANUP_INTERVAL"),
			ResultTTL:       v.GetDuration("JOB_RESULT_TTL"),
			MaxNodes:        v.GetInt("JOB_MAX_NODES"),
			MaxTrials:       v.GetInt("JOB_MAX_TRIALS"),
		},
		Storage: StorageConfig{
			Backend:  v.GetString("STORE_BACKEND"),
			RedisURL: v.GetString("REDIS_URL"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		Defaults: DefaultsConfig{
			TMax:       v.GetInt("DEFAULT_T_MAX"),
			P:          v.GetFloat64("DEFAULT_PROBABILITY"),
			Infected:   v.GetInt("DEFAULT_INFECTED"),
			Vaccinated: v.GetInt("DEFAULT_VACCINATED"),
			Trials:     v.GetInt("DEFAULT_TRIALS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would leave the service unable to run jobs
func (c *Config) Validate() error {
	if c.Jobs.MaxWorkers < 1 {
		return fmt.Errorf("JOB_MAX_WORKERS must be at least 1, got %d", c.Jobs.MaxWorkers)
	}
	if c.Jobs.JobTimeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive, got %s", c.Jobs.JobTimeout)
	}
	if c.Jobs.CleanupInterval <= 0 {
		return fmt.Errorf("JOB_CLEANUP_INTERVAL must be positive, got %s", c.Jobs.CleanupInterval)
	}
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}
