// Package config loads and validates the hub's YAML configuration file:
// the listen address and optional TLS material, the optional
// token-auth signing configuration, the message rate-limit and length
// policy, and the moderation store path. Required configuration that is
// missing or malformed fails fast with every problem reported at once,
// the way internal/config did for its env-var-sourced settings upstream.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError represents a single configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors holds every validation error found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(msgs, "\n  - "))
}

const DefaultWSPath = "/ws"

// Defaults for the IP-level upgrade-flood guard (internal/wsconn), chosen
// generously enough to never bother a well-behaved game client.
const (
	DefaultConnRatePerSecond = 5.0
	DefaultConnBurst         = 10
)

// NetConfig describes the listener. When CertFile and KeyFile are set, the
// process serves TLS itself with that certificate pair; otherwise it serves
// plain HTTP.
type NetConfig struct {
	Address  string `yaml:"address"`
	Path     string `yaml:"path,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`

	ConnRatePerSecond float64 `yaml:"conn_rate_per_second,omitempty"`
	ConnBurst         int     `yaml:"conn_burst,omitempty"`
}

// AuthConfig configures the locally-signed token service. Its absence
// means LoginJWT/RequestJWT reply NotSupported.
type AuthConfig struct {
	KeyFile   string   `yaml:"key_file"`
	Algorithm string   `yaml:"algorithm"`
	ValidTime Duration `yaml:"valid_time"`
}

// MessageConfig configures the per-user rate limiter and content policy.
type MessageConfig struct {
	Capacity  int      `yaml:"capacity"`
	RegenTime Duration `yaml:"regen_time"`
	MaxLength int      `yaml:"max_length"`
}

// ModerationConfig points at the on-disk ban/moderator store.
// Backend selects the storage implementation; "file" (default) keeps the
// store local, "s3" shares it across instances via internal/moderation's
// S3Store.
type ModerationConfig struct {
	File    string `yaml:"file"`
	Backend string `yaml:"backend,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Key     string `yaml:"key,omitempty"`

	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// AuditConfig configures the optional SQLite-backed moderation audit trail
// (internal/modlog), layered on top of the core moderation store.
type AuditConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type Config struct {
	Net        NetConfig        `yaml:"net"`
	Auth       *AuthConfig      `yaml:"auth,omitempty"`
	Message    MessageConfig    `yaml:"message"`
	Moderation ModerationConfig `yaml:"moderation"`
	Audit      AuditConfig      `yaml:"audit,omitempty"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if cfg.Net.Path == "" {
		cfg.Net.Path = DefaultWSPath
	}
	if cfg.Net.ConnRatePerSecond == 0 {
		cfg.Net.ConnRatePerSecond = DefaultConnRatePerSecond
	}
	if cfg.Net.ConnBurst == 0 {
		cfg.Net.ConnBurst = DefaultConnBurst
	}
	if cfg.Moderation.Backend == "" {
		cfg.Moderation.Backend = "file"
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

// Validate checks every field and accumulates every problem it finds,
// rather than stopping at the first one.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Net.Address == "" {
		errs = append(errs, ValidationError{"net.address", "must not be empty"})
	}
	if (c.Net.CertFile == "") != (c.Net.KeyFile == "") {
		errs = append(errs, ValidationError{"net", "cert_file and key_file must both be set or both be empty"})
	}
	if c.Net.ConnRatePerSecond < 0 {
		errs = append(errs, ValidationError{"net.conn_rate_per_second", "must not be negative"})
	}
	if c.Net.ConnBurst < 0 {
		errs = append(errs, ValidationError{"net.conn_burst", "must not be negative"})
	}

	if c.Message.Capacity <= 0 {
		errs = append(errs, ValidationError{"message.capacity", "must be positive"})
	}
	if c.Message.RegenTime.Duration() <= 0 {
		errs = append(errs, ValidationError{"message.regen_time", "must be positive"})
	}
	if c.Message.MaxLength <= 0 {
		errs = append(errs, ValidationError{"message.max_length", "must be positive"})
	}

	switch c.Moderation.Backend {
	case "file":
		if c.Moderation.File == "" {
			errs = append(errs, ValidationError{"moderation.file", "must not be empty"})
		}
	case "s3":
		if c.Moderation.Bucket == "" || c.Moderation.Key == "" {
			errs = append(errs, ValidationError{"moderation", "bucket and key are required for the s3 backend"})
		}
	default:
		errs = append(errs, ValidationError{"moderation.backend", fmt.Sprintf("unsupported backend %q", c.Moderation.Backend)})
	}

	if c.Auth != nil {
		if c.Auth.KeyFile == "" {
			errs = append(errs, ValidationError{"auth.key_file", "must not be empty"})
		}
		if !validAlgorithm(c.Auth.Algorithm) {
			errs = append(errs, ValidationError{"auth.algorithm", fmt.Sprintf("unsupported algorithm %q (want HS256, HS384, or HS512)", c.Auth.Algorithm)})
		}
		if c.Auth.ValidTime.Duration() <= 0 {
			errs = append(errs, ValidationError{"auth.valid_time", "must be positive"})
		}
	}

	return errs
}

func validAlgorithm(alg string) bool {
	switch alg {
	case "HS256", "HS384", "HS512":
		return true
	default:
		return false
	}
}
