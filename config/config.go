// Package config loads the configuration of the console from a YAML file and
// environment variables (prefix KEAP_, e.g. KEAP_PROXY_LISTEN).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdzio/go-logging"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding the
// configuration file.
const EnvPrefix = "KEAP"

// Transports for the contact operations
const (
	TransportXMLRPC = "xmlrpc"
	TransportREST   = "rest"
)

// Config is the configuration of the console.
type Config struct {
	// base URL of the proxy or the mock server
	Address string `yaml:"address" mapstructure:"address"`
	// xmlrpc or rest
	Transport string `yaml:"transport" mapstructure:"transport"`
	// off, error, warning, info, debug or trace
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	Token TokenConfig `yaml:"token" mapstructure:"token"`
	OAuth OAuthConfig `yaml:"oauth" mapstructure:"oauth"`
	Proxy ProxyConfig `yaml:"proxy" mapstructure:"proxy"`
	Mock  MockConfig  `yaml:"mock" mapstructure:"mock"`
}

// TokenConfig locates the access token.
type TokenConfig struct {
	// fixed access token, the token file is not used if set
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	// YAML file with access and refresh token
	File string `yaml:"file" mapstructure:"file"`
}

// OAuthConfig configures the refresh of access tokens.
type OAuthConfig struct {
	TokenURL     string `yaml:"token_url" mapstructure:"token_url"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
}

// Enabled returns true, if tokens can be refreshed.
func (o OAuthConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != ""
}

// ProxyConfig configures the proxy server.
type ProxyConfig struct {
	Listen    string `yaml:"listen" mapstructure:"listen"`
	XMLRPCURL string `yaml:"xmlrpc_url" mapstructure:"xmlrpc_url"`
	RESTURL   string `yaml:"rest_url" mapstructure:"rest_url"`
	// refresh the access token this long before it expires
	RefreshMargin time.Duration `yaml:"refresh_margin" mapstructure:"refresh_margin"`
}

// MockConfig configures the mock data service.
type MockConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	// expected key and bearer token, any key is accepted if empty
	Key string `yaml:"key" mapstructure:"key"`
}

// Dir returns the directory of the default configuration and token files.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keap"
	}
	return filepath.Join(home, ".keap")
}

// DefaultPath returns the path of the default configuration file.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", "http://localhost:8080")
	v.SetDefault("transport", TransportXMLRPC)
	v.SetDefault("log_level", "info")
	v.SetDefault("token.access_token", "")
	v.SetDefault("token.file", filepath.Join(Dir(), "token.yaml"))
	v.SetDefault("oauth.token_url", "https://api.infusionsoft.com/token")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("proxy.listen", ":8080")
	v.SetDefault("proxy.xmlrpc_url", "https://api.infusionsoft.com/crm/xmlrpc/v1")
	v.SetDefault("proxy.rest_url", "https://api.infusionsoft.com/crm/rest")
	v.SetDefault("proxy.refresh_margin", "5m")
	v.SetDefault("mock.listen", ":8081")
	v.SetDefault("mock.key", "")
}

// Load reads the configuration. If path is empty, the default configuration
// file is read, if it exists. Environment variables take precedence over the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Reading of configuration file %s failed: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("Invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportXMLRPC, TransportREST:
	default:
		return fmt.Errorf("Invalid transport (expected %s or %s): %s", TransportXMLRPC, TransportREST, c.Transport)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Address == "" {
		return errors.New("Address missing")
	}
	if c.Proxy.RefreshMargin < 0 {
		return fmt.Errorf("Invalid refresh margin: %s", c.Proxy.RefreshMargin)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (logging.LogLevel, error) {
	var l logging.LogLevel
	if err := l.Set(c.LogLevel); err != nil {
		return l, fmt.Errorf("Invalid log level: %s", c.LogLevel)
	}
	return l, nil
}

const masked = "********"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// Masked returns a copy with secrets replaced.
func (c *Config) Masked() *Config {
	m := *c
	m.Token.AccessToken = mask(c.Token.AccessToken)
	m.OAuth.ClientSecret = mask(c.OAuth.ClientSecret)
	m.Mock.Key = mask(c.Mock.Key)
	return &m
}

// YAML returns the configuration with masked secrets as YAML document.
func (c *Config) YAML() (string, error) {
	buf, err := yaml.Marshal(c.Masked())
	if err != nil {
		return "", fmt.Errorf("Encoding of configuration failed: %w", err)
	}
	return string(buf), nil
}
