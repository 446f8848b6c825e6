package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Email         EmailConfig         `mapstructure:"email"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig holds the public half of the identity provider's signing
// key. This service never issues tokens, it only verifies them.
type SecurityConfig struct {
	JWTPublicKey string `mapstructure:"jwt_public_key"`
}

// EmailConfig configures the invitation email delivery client.
type EmailConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	APIToken     string        `mapstructure:"api_token"`
	SenderEmail  string        `mapstructure:"sender_email"`
	SenderName   string        `mapstructure:"sender_name"`
	InviteURL    string        `mapstructure:"invite_url"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	MaxWorkers   int           `mapstructure:"max_workers"`
	JobQueueSize int           `mapstructure:"job_queue_size"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}
	if err := c.Email.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("email config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		for _, origin := range strings.Split(c.AllowedOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if _, err := c.GetPublicKey(); err != nil {
		return fmt.Errorf("invalid JWT public key: %w", err)
	}
	return nil
}

// GetPublicKey decodes the base64-wrapped PEM public key of the identity
// provider.
func (c *SecurityConfig) GetPublicKey() (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

func (c *EmailConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.SenderEmail == "" {
		return errors.New("sender_email is required")
	}
	return nil
}
