package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/riakgo/riakgo/pkg/riak"
)

// ClientConfig contains all configuration for a Riak client.
type ClientConfig struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Auth       AuthConfig       `mapstructure:"auth"`
	TLS        TLSConfig        `mapstructure:"tls"`
	Quorum     QuorumConfig     `mapstructure:"quorum"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ConnectionConfig contains node address and REST path configuration.
type ConnectionConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Scheme         string        `mapstructure:"scheme"`
	Prefix         string        `mapstructure:"prefix"`
	MapredPrefix   string        `mapstructure:"mapred_prefix"`
	ClientID       string        `mapstructure:"client_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig contains HTTP basic auth credentials.
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TLSConfig contains certificate paths for HTTPS connections.
type TLSConfig struct {
	Certificate    string `mapstructure:"certificate"`
	CertificateKey string `mapstructure:"certificate_key"`
	CACertificate  string `mapstructure:"ca_certificate"`
	SkipVerify     bool   `mapstructure:"skip_verify"`
}

// QuorumConfig contains the default R/W/DW quorum values.
type QuorumConfig struct {
	R  int `mapstructure:"r"`
	W  int `mapstructure:"w"`
	DW int `mapstructure:"dw"`
}

// LoadClient loads the client configuration from the given path.
// If configPath is empty, it looks for riak.yaml in the config/ directory.
// Environment variables with RIAK_ prefix override config file values.
func LoadClient(configPath string) (*ClientConfig, error) {
	v := viper.New()

	v.SetDefault("connection.host", riak.DefaultHost)
	v.SetDefault("connection.port", riak.DefaultPort)
	v.SetDefault("connection.scheme", riak.DefaultScheme)
	v.SetDefault("connection.prefix", riak.DefaultPrefix)
	v.SetDefault("connection.mapred_prefix", riak.DefaultMapredPrefix)
	v.SetDefault("connection.request_timeout", riak.DefaultRequestTimeout)
	v.SetDefault("quorum.r", riak.DefaultQuorum)
	v.SetDefault("quorum.w", riak.DefaultQuorum)
	v.SetDefault("quorum.dw", riak.DefaultQuorum)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("riak")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RIAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// ToRiak converts the loaded configuration into a riak.Config.
func (c *ClientConfig) ToRiak() riak.Config {
	cfg := riak.Config{
		Host:           c.Connection.Host,
		Port:           c.Connection.Port,
		Scheme:         c.Connection.Scheme,
		Prefix:         c.Connection.Prefix,
		MapredPrefix:   c.Connection.MapredPrefix,
		ClientID:       c.Connection.ClientID,
		RequestTimeout: c.Connection.RequestTimeout,
		R:              c.Quorum.R,
		W:              c.Quorum.W,
		DW:             c.Quorum.DW,
		Username:       c.Auth.Username,
		Password:       c.Auth.Password,
	}

	if c.TLS.Certificate != "" || c.TLS.CACertificate != "" || c.TLS.SkipVerify {
		cfg.TLS = &riak.TLSConfig{
			CertificatePath:    c.TLS.Certificate,
			CertificateKeyPath: c.TLS.CertificateKey,
			CACertPath:         c.TLS.CACertificate,
			SkipVerify:         c.TLS.SkipVerify,
		}
	}

	return cfg
}
