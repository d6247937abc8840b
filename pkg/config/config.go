package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
		Output string `yaml:"output"` // stdout, stderr, or file path
	} `yaml:"logging"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cache struct {
		Backend string `yaml:"backend"` // redis or memory
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Forecast struct {
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		BatchSize       int           `yaml:"batch_size"`
		MaxHorizonHours int           `yaml:"max_horizon_hours"`
	} `yaml:"forecast"`
	Features struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"features"`
	Validation struct {
		Interval          time.Duration `yaml:"interval"`
		BatchLimit        int           `yaml:"batch_limit"`
		MatchTolerance    time.Duration `yaml:"match_tolerance"`
		SpikeThreshold    float64       `yaml:"spike_threshold"`
		ElevatedThreshold float64       `yaml:"elevated_threshold"`
	} `yaml:"validation"`
	Retraining struct {
		CheckInterval    time.Duration `yaml:"check_interval"`
		SMAPEThreshold   float64       `yaml:"smape_threshold"`
		QualityThreshold float64       `yaml:"quality_threshold"`
		MaxModelAge      time.Duration `yaml:"max_model_age"`
		MinTrainingRows  int           `yaml:"min_training_rows"`
		AccuracyWindow   time.Duration `yaml:"accuracy_window"`
	} `yaml:"retraining"`
	Fuel struct {
		APIURL   string        `yaml:"api_url"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"fuel"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("FUEL_API_KEY"); v != "" {
		c.Fuel.APIKey = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Forecast.CacheTTL <= 0 {
		c.Forecast.CacheTTL = 15 * time.Minute
	}
	if c.Forecast.BatchSize <= 0 {
		c.Forecast.BatchSize = 24
	}
	if c.Forecast.MaxHorizonHours <= 0 {
		c.Forecast.MaxHorizonHours = 168
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Features.PageSize <= 0 {
		c.Features.PageSize = 1000
	}
	if c.Validation.Interval <= 0 {
		c.Validation.Interval = 5 * time.Minute
	}
	if c.Retraining.CheckInterval <= 0 {
		c.Retraining.CheckInterval = 24 * time.Hour
	}
	if c.Validation.BatchLimit <= 0 {
		c.Validation.BatchLimit = 200
	}
	if c.Validation.MatchTolerance <= 0 {
		c.Validation.MatchTolerance = 30 * time.Minute
	}
	if c.Validation.SpikeThreshold <= 0 {
		c.Validation.SpikeThreshold = 200
	}
	if c.Validation.ElevatedThreshold <= 0 {
		c.Validation.ElevatedThreshold = 100
	}
	if c.Retraining.SMAPEThreshold <= 0 {
		c.Retraining.SMAPEThreshold = 25
	}
	if c.Retraining.QualityThreshold <= 0 {
		c.Retraining.QualityThreshold = 70
	}
	if c.Retraining.MaxModelAge <= 0 {
		c.Retraining.MaxModelAge = 7 * 24 * time.Hour
	}
	if c.Retraining.MinTrainingRows <= 0 {
		c.Retraining.MinTrainingRows = 168
	}
	if c.Retraining.AccuracyWindow <= 0 {
		c.Retraining.AccuracyWindow = 7 * 24 * time.Hour
	}
	if c.Fuel.Timeout <= 0 {
		c.Fuel.Timeout = 15 * time.Second
	}
	if c.Fuel.TokenTTL <= 0 {
		c.Fuel.TokenTTL = time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Backend != "" && c.Cache.Backend != "redis" && c.Cache.Backend != "memory" {
		return fmt.Errorf("cache.backend must be 'redis' or 'memory', got '%s'", c.Cache.Backend)
	}
	return nil
}
