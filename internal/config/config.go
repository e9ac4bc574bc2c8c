package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/yourorg/index-compare/internal/model"
)

// Config holds all configuration for the service
type Config struct {
	Server      ServerConfig
	Tushare     TushareConfig
	Compare     CompareConfig
	Instruments []InstrumentConfig `validate:"min=1,unique=Key,dive"`
	ETF         ETFConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Sync        SyncConfig
	Storage     StorageConfig
	Logging     LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string `validate:"required"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// TushareConfig holds the upstream market data API settings
type TushareConfig struct {
	BaseURL    string `validate:"required,url"`
	Token      string `validate:"required"`
	Timeout    time.Duration
	MaxRetries int `validate:"gte=0"`
}

// CompareConfig controls request defaults of a comparison
type CompareConfig struct {
	DefaultStartDate     string `validate:"omitempty,tradedate"`
	Timezone             string
	MaxConcurrentFetches int `validate:"gte=1"`
}

// InstrumentConfig describes one comparable index or fund
type InstrumentConfig struct {
	Key        string `validate:"required"`
	Name       string `validate:"required"`
	TSCode     string `validate:"required"`
	Kind       string `validate:"omitempty,oneof=index fund"`
	LaunchDate string `validate:"omitempty,tradedate"`
}

// InstrumentList converts the configured instruments into domain descriptors
func (c *Config) InstrumentList() []model.Instrument {
	instruments := make([]model.Instrument, len(c.Instruments))
	for i, ic := range c.Instruments {
		instruments[i] = model.Instrument{
			Key:        ic.Key,
			Name:       ic.Name,
			SourceID:   ic.TSCode,
			Kind:       model.InstrumentKind(ic.Kind),
			LaunchDate: ic.LaunchDate,
		}
	}
	return instruments
}

// ETFConfig holds defaults of the fund NAV endpoint
type ETFConfig struct {
	TSCode           string `validate:"required"`
	DefaultStartDate string `validate:"omitempty,tradedate"`
}

// DatabaseConfig holds database specific configuration.
// An empty Host and Path disable persistence.
type DatabaseConfig struct {
	Driver       string `validate:"omitempty,oneof=pgx sqlite3"`
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// Enabled reports whether an observation store is configured
func (c DatabaseConfig) Enabled() bool {
	if c.Driver == "sqlite3" {
		return c.Path != ""
	}
	return c.Host != ""
}

// RedisConfig holds the response cache settings; an empty Addr disables caching
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// KafkaConfig holds Kafka specific configuration
type KafkaConfig struct {
	Brokers  string
	ClientID string
	Topics   map[string]string
}

// BrokerList splits the comma separated broker list
func (c KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// AuthConfig holds JWT settings; an empty JWTSecret disables authentication
type AuthConfig struct {
	JWTSecret string
}

// RateLimitConfig holds per client rate limit settings
type RateLimitConfig struct {
	RequestsPerMinute int `validate:"gte=0"`
	Burst             int `validate:"gte=0"`
}

// SyncConfig controls background ingestion; an empty Cron disables it
type SyncConfig struct {
	Cron         string
	LookbackDays int `validate:"gte=1"`
}

// StorageConfig holds chart snapshot storage configuration
type StorageConfig struct {
	Type  string `validate:"omitempty,oneof=local s3"`
	Local LocalStorageConfig
	S3    S3StorageConfig
}

// LocalStorageConfig holds local storage configuration
type LocalStorageConfig struct {
	BasePath string
	BaseURL  string
}

// S3StorageConfig holds AWS S3 configuration
type S3StorageConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	BaseURL   string
	Prefix    string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string `validate:"omitempty,oneof=debug info warn error"`
	Format string `validate:"omitempty,oneof=json console"`
}

// LoadConfig loads the configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("tushare.token", "TUSHARE_TOKEN")
	_ = v.BindEnv("tushare.baseURL", "TUSHARE_API")
	_ = v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range cfg.Instruments {
		if cfg.Instruments[i].Kind == "" {
			cfg.Instruments[i].Kind = "index"
		}
	}

	return &cfg, nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := RegisterValidations(validate); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RegisterValidations adds the custom tags used by configuration and request structs
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("tradedate", func(fl validator.FieldLevel) bool {
		return model.IsTradeDate(fl.Field().String())
	})
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.idleTimeout", "120s")

	// Tushare defaults
	v.SetDefault("tushare.baseURL", "http://api.tushare.pro")
	v.SetDefault("tushare.timeout", "30s")
	v.SetDefault("tushare.maxRetries", 3)

	// Comparison defaults
	v.SetDefault("compare.timezone", "Asia/Shanghai")
	v.SetDefault("compare.maxConcurrentFetches", 5)
	v.SetDefault("instruments", DefaultInstruments())

	// Fund NAV defaults
	v.SetDefault("etf.tsCode", "563300.SH")
	v.SetDefault("etf.defaultStartDate", "20230601")

	// Database defaults
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)

	// Redis defaults
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("redis.prefix", "index-compare:")

	// Kafka defaults
	v.SetDefault("kafka.clientID", "index-compare")
	v.SetDefault("kafka.topics.comparisons", "index-comparisons")

	// Rate limit defaults
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.burst", 20)

	// Sync defaults
	v.SetDefault("sync.lookbackDays", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.basePath", "./data/charts")
	v.SetDefault("storage.local.baseURL", "/api/index-compare/chart/snapshots")
	v.SetDefault("storage.s3.prefix", "charts")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// DefaultInstruments returns the CSI index set compared when no list is configured
func DefaultInstruments() []map[string]interface{} {
	return []map[string]interface{}{
		{"key": "csi500", "name": "中证500", "tsCode": "000905.SH", "kind": "index", "launchDate": "20070115"},
		{"key": "csi800", "name": "中证800", "tsCode": "000906.SH", "kind": "index", "launchDate": "20070115"},
		{"key": "csi1000", "name": "中证1000", "tsCode": "000852.SH", "kind": "index", "launchDate": "20141017"},
		{"key": "csi2000", "name": "中证2000", "tsCode": "932000.CSI", "kind": "index", "launchDate": "20220722"},
		{"key": "dividend_lowvol", "name": "中证红利低波", "tsCode": "H30269.CSI", "kind": "index", "launchDate": "20141231"},
	}
}
