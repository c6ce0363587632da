package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server  `mapstructure:"server"`
	DocAPI   DocAPI  `mapstructure:"doc_api"`
	Raster   Raster  `mapstructure:"raster"`
	Staging  Staging `mapstructure:"staging"`
	MaxBytes int64   `mapstructure:"max_upload_bytes"` // multipart parse limit
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// DocAPI holds the remote document-processing service endpoint and
// credentials. Both keys must be present or remote tools fail fast.
type DocAPI struct {
	BaseURL   string        `mapstructure:"base_url"`
	PublicKey string        `mapstructure:"public_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Raster holds settings for the in-process image pipeline.
type Raster struct {
	FontPath string `mapstructure:"font_path"` // TTF for watermark text, optional
}

// Staging holds settings for transient on-disk file staging.
type Staging struct {
	Dir string `mapstructure:"dir"` // empty means the platform temp dir
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"doc_api.public_key": "ILOVEPDF_PUBLIC_KEY",
		"doc_api.secret_key": "ILOVEPDF_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", ":8080")
	viper.SetDefault("doc_api.timeout", time.Minute)
	viper.SetDefault("max_upload_bytes", 32<<20)

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
