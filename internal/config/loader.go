package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Installer InstallerConfig `mapstructure:"installer"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type InstallerConfig struct {
	MongoVersion      string        `mapstructure:"mongo_version"`
	CredentialTimeout time.Duration `mapstructure:"credential_timeout"`
	DownloadRetries   int           `mapstructure:"download_retries"`
	DownloadBackoff   time.Duration `mapstructure:"download_backoff"`
	DownloadBackoffMax time.Duration `mapstructure:"download_backoff_max"`
}

type AuthConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("MONGODESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.output_paths", []string{"stdout"})
	viper.SetDefault("logger.error_output_paths", []string{"stderr"})
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "app_database")
	viper.SetDefault("installer.mongo_version", "8.0.6")
	viper.SetDefault("installer.credential_timeout", 120*time.Second)
	viper.SetDefault("installer.download_retries", 5)
	viper.SetDefault("installer.download_backoff", 2*time.Second)
	viper.SetDefault("installer.download_backoff_max", 30*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
