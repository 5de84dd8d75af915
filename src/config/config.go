package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service         ServiceConfig        `mapstructure:"service"`
	Databases       DatabasesConfig      `mapstructure:"databases"`
	ExternalClients ExternalClientConfig `mapstructure:"externalClients"`
	Sync            SyncConfig           `mapstructure:"sync"`
	Logging         LoggingConfig        `mapstructure:"logging"`
	AWS             AWSConfig            `mapstructure:"aws"`
}

type ServiceType string

const (
	API    ServiceType = "API"
	WORKER ServiceType = "WORKER"
)

type ServiceConfig struct {
	Type ServiceType `mapstructure:"type"`
	Port string      `mapstructure:"port"`
	// Seed inserts the sample assets, portfolios and transactions into empty tables on boot.
	Seed bool `mapstructure:"seed"`
}

type DatabasesConfig struct {
	SQL   SQLConfig   `mapstructure:"sql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type SQLConfig struct {
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Driver           string `mapstructure:"driver"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
	// AWSSecretName, when set, names a Secrets Manager secret holding the password.
	AWSSecretName string `mapstructure:"awsSecretName"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	TLS      bool   `mapstructure:"tls"`
}

type ExternalClientConfig struct {
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
}

type CoinGeckoConfig struct {
	BaseURL          string        `mapstructure:"baseUrl"`
	APIKey           string        `mapstructure:"apiKey"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseBytes int64         `mapstructure:"maxResponseBytes"`
	VsCurrency       string        `mapstructure:"vsCurrency"`
	TrackedCoins     []string      `mapstructure:"trackedCoins"`
	TrackedCoinsFile string        `mapstructure:"trackedCoinsFile"`
}

type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	HealthTTL   time.Duration `mapstructure:"healthTTL"`
	SnapshotTTL time.Duration `mapstructure:"snapshotTTL"`
	AutoStart   bool          `mapstructure:"autoStart"`
	// RevaluationInterval schedules the worker's portfolio revaluation job. Zero disables it.
	RevaluationInterval time.Duration `mapstructure:"revaluationInterval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. a LocalStack URL.
	Endpoint string `mapstructure:"endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.type", string(API))
	v.SetDefault("service.port", "8000")
	v.SetDefault("databases.sql.driver", "postgres")
	v.SetDefault("databases.sql.port", "5432")
	v.SetDefault("databases.redis.port", "6379")
	v.SetDefault("externalClients.coingecko.baseUrl", "https://api.coingecko.com/api/v3")
	v.SetDefault("externalClients.coingecko.timeout", 10*time.Second)
	v.SetDefault("externalClients.coingecko.maxResponseBytes", 1<<20)
	v.SetDefault("externalClients.coingecko.vsCurrency", "usd")
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.healthTTL", 60*time.Second)
	v.SetDefault("sync.snapshotTTL", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("aws.region", "us-east-1")
}

// LoadConfig reads appsettings.yaml from path and, when env is not empty,
// merges appsettings.<env>.yaml on top of it. A .env file in the working
// directory is loaded first so that its variables can override both files.
func LoadConfig(path string, env string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("appsettings")
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if env != "" {
		v.SetConfigName("appsettings." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge %s settings: %w", env, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Service.Type = ServiceType(strings.ToUpper(string(cfg.Service.Type)))
	return &cfg, nil
}
