package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"MicroTrade/pkg/util"
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
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Trading struct {
		Symbols             []string      `yaml:"symbols"`
		CycleInterval       time.Duration `yaml:"cycle_interval"`
		Workers             int           `yaml:"workers"`
		ConfidenceThreshold float64       `yaml:"confidence_threshold"`
		MaxAccountFraction  float64       `yaml:"max_account_fraction"`
		MaxTradeFraction    float64       `yaml:"max_trade_fraction"`
		TakerFee            float64       `yaml:"taker_fee"`
		MakerFee            float64       `yaml:"maker_fee"`
		LotStep             float64       `yaml:"lot_step"`
		MinQuantity         float64       `yaml:"min_quantity"`
		StopLossFraction    float64       `yaml:"stop_loss_fraction"`
		MaxHold             time.Duration `yaml:"max_hold"`
		MaxVenueRetries     int           `yaml:"max_venue_retries"`
		RetryBackoff        time.Duration `yaml:"retry_backoff"`
		HistoryWindow       int           `yaml:"history_window"`
		BalanceCacheTTL     time.Duration `yaml:"balance_cache_ttl"`
	} `yaml:"trading"`
	ML struct {
		Enabled           bool `yaml:"enabled"`
		MinTrainingTrades int  `yaml:"min_training_trades"`
		RetrainIncrement  int  `yaml:"retrain_increment"`
		Epochs            int  `yaml:"epochs"`
	} `yaml:"ml"`
	Venue struct {
		Mode            string        `yaml:"mode"` // "paper"
		StartingBalance float64       `yaml:"starting_balance"`
		WebSocketURL    string        `yaml:"websocket_url"`
		APIKey          string        `yaml:"api_key"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		SnapshotMaxAge  time.Duration `yaml:"snapshot_max_age"`
	} `yaml:"venue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("VENUE_API_KEY"); v != "" {
		c.Venue.APIKey = v
	}
	if v := os.Getenv("VENUE_WS_URL"); v != "" {
		c.Venue.WebSocketURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		c.Trading.Workers = util.ParseIntDefault(v, c.Trading.Workers)
	}
	if v := os.Getenv("ML_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ML.Enabled = b
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	t := &c.Trading
	if t.CycleInterval <= 0 {
		t.CycleInterval = 60 * time.Second
	}
	if t.Workers <= 0 {
		t.Workers = 4
	}
	if t.ConfidenceThreshold <= 0 {
		t.ConfidenceThreshold = 0.60
	}
	if t.MaxAccountFraction <= 0 {
		t.MaxAccountFraction = 0.10
	}
	if t.MaxTradeFraction <= 0 {
		t.MaxTradeFraction = 0.03
	}
	if t.TakerFee <= 0 {
		t.TakerFee = 0.0026
	}
	if t.MakerFee <= 0 {
		t.MakerFee = 0.0016
	}
	if t.MaxVenueRetries <= 0 {
		t.MaxVenueRetries = 2
	}
	if t.RetryBackoff <= 0 {
		t.RetryBackoff = 250 * time.Millisecond
	}
	if t.HistoryWindow <= 0 {
		t.HistoryWindow = 50
	}
	if t.BalanceCacheTTL <= 0 {
		t.BalanceCacheTTL = time.Minute
	}

	if c.ML.MinTrainingTrades <= 0 {
		c.ML.MinTrainingTrades = 20
	}
	if c.ML.RetrainIncrement <= 0 {
		c.ML.RetrainIncrement = 20
	}
	if c.ML.Epochs <= 0 {
		c.ML.Epochs = 200
	}

	if c.Venue.Mode == "" {
		c.Venue.Mode = "paper"
	}
	if c.Venue.StartingBalance <= 0 {
		c.Venue.StartingBalance = 10_000
	}
	if c.Venue.ReconnectDelay <= 0 {
		c.Venue.ReconnectDelay = 5 * time.Second
	}
	if c.Venue.PingInterval <= 0 {
		c.Venue.PingInterval = 20 * time.Second
	}
	if c.Venue.SnapshotMaxAge <= 0 {
		c.Venue.SnapshotMaxAge = 2 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols cannot be empty")
	}
	if c.Trading.ConfidenceThreshold < 0 || c.Trading.ConfidenceThreshold > 1 {
		return fmt.Errorf("trading.confidence_threshold must be in [0,1], got %v", c.Trading.ConfidenceThreshold)
	}
	if c.Trading.MaxTradeFraction > c.Trading.MaxAccountFraction {
		return fmt.Errorf("trading.max_trade_fraction %v exceeds max_account_fraction %v",
			c.Trading.MaxTradeFraction, c.Trading.MaxAccountFraction)
	}
	if c.Venue.Mode != "paper" {
		return fmt.Errorf("venue.mode must be 'paper', got '%s'", c.Venue.Mode)
	}
	if c.Venue.Mode == "paper" && c.Venue.WebSocketURL == "" {
		// paper mode without a feed URL trades on nothing
		return fmt.Errorf("venue.websocket_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
