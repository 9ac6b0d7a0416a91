package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
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

// GatewayConfig carries both named credential sets; a single mode flag
// selects which one is active for the whole process lifetime.
type GatewayConfig struct {
	Mode       string            `mapstructure:"mode"`
	Test       CredentialsConfig `mapstructure:"test"`
	Production CredentialsConfig `mapstructure:"production"`
	Return     ReturnURLConfig   `mapstructure:"return"`
	Timeout    time.Duration     `mapstructure:"timeout"`
}

type CredentialsConfig struct {
	ClientCode     string `mapstructure:"client_code"`
	ClientUsername string `mapstructure:"client_username"`
	ClientPassword string `mapstructure:"client_password"`
	TerminalID     string `mapstructure:"terminal_id"`
	SecretGUID     string `mapstructure:"secret_guid"`
	EndpointURL    string `mapstructure:"endpoint_url"`
}

type ReturnURLConfig struct {
	SuccessURL string `mapstructure:"success_url"`
	FailureURL string `mapstructure:"failure_url"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	GatewayModeTest       = "test"
	GatewayModeProduction = "production"
)

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
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
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

// Validate fails at startup when the active mode's credential set is
// incomplete. A missing credential must never surface as a call-time error.
func (c *GatewayConfig) Validate() error {
	var active CredentialsConfig
	switch c.Mode {
	case GatewayModeTest:
		active = c.Test
	case GatewayModeProduction:
		active = c.Production
	default:
		return NewConfigurationError(
			fmt.Sprintf("gateway mode must be %q or %q, got %q", GatewayModeTest, GatewayModeProduction, c.Mode),
			ErrCodeInvalidMode,
		)
	}

	missing := active.missingFields()
	if len(missing) > 0 {
		return NewConfigurationError(
			fmt.Sprintf("gateway credentials for mode %q missing: %s", c.Mode, strings.Join(missing, ", ")),
			ErrCodeMissingCredential,
		)
	}

	if _, err := url.ParseRequestURI(active.EndpointURL); err != nil {
		return NewConfigurationError(
			fmt.Sprintf("gateway endpoint_url for mode %q is not a valid URL", c.Mode),
			ErrCodeMissingCredential,
		).WithCause(err)
	}

	return nil
}

func (c CredentialsConfig) missingFields() []string {
	var missing []string
	checks := []struct {
		name  string
		value string
	}{
		{"client_code", c.ClientCode},
		{"client_username", c.ClientUsername},
		{"client_password", c.ClientPassword},
		{"terminal_id", c.TerminalID},
		{"secret_guid", c.SecretGUID},
		{"endpoint_url", c.EndpointURL},
	}
	for _, check := range checks {
		if check.value == "" {
			missing = append(missing, check.name)
		}
	}
	return missing
}

// Active returns the credential set selected by the mode flag. Callers
// must have validated the config first.
func (c *GatewayConfig) Active() CredentialsConfig {
	if c.Mode == GatewayModeProduction {
		return c.Production
	}
	return c.Test
}

func (c *GatewayConfig) CallTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
