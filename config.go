package authcore

import (
	"errors"
	"fmt"
	"time"
)

// Config defines the full configuration surface of the engine. It is
// constructed once at process start (directly or via [Load]) and passed into
// [Builder.WithConfig]; components receive only the sections they need.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the two independent token classes. Each class has its own
// secret and lifetime; an access token can never verify against the refresh
// secret or vice versa.
type TokenConfig struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store. Lifetime defaults to the
// refresh-token TTL; the store always persists an absolute expiry, never a
// raw config value.
type SessionConfig struct {
	RedisPrefix string
	Lifetime    time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the access_token/refresh_token cookie attributes.
// Cookies are always httpOnly with SameSite=Strict; Secure is tied to
// ProductionMode.
type CookieConfig struct {
	Path           string
	Domain         string
	ProductionMode bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id parameters used for both password hashes
// and persisted refresh-token hashes.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters and latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Secrets are empty and
// must be filled in before [Config.Validate] will pass.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "claimpoint",
		},
		Session: SessionConfig{
			RedisPrefix: "cs",
			Lifetime:    0, // falls back to Token.RefreshTTL
		},
		Cookie: CookieConfig{
			Path:           "/",
			ProductionMode: false,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// SessionLifetime returns the effective refresh-session lifetime: the session
// override when set, otherwise the refresh-token TTL.
func (c *Config) SessionLifetime() time.Duration {
	if c.Session.Lifetime > 0 {
		return c.Session.Lifetime
	}
	return c.Token.RefreshTTL
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration at startup. A missing signing secret is a
// fatal [ErrConfigMissing]; it must abort the process rather than surface as
// a per-request authentication failure.
func (c *Config) Validate() error {
	if len(c.Token.AccessSecret) == 0 {
		return fmt.Errorf("%w: access signing secret", ErrConfigMissing)
	}
	if len(c.Token.RefreshSecret) == 0 {
		return fmt.Errorf("%w: refresh signing secret", ErrConfigMissing)
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.Session.Lifetime < 0 {
		return errors.New("Session Lifetime must be >= 0")
	}

	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must be set")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Cookie.ProductionMode {
		if c.Token.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires Token AccessTTL <= 15m")
		}
		if c.Token.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires Token RefreshTTL <= 30d")
		}
		if len(c.Token.AccessSecret) < 32 || len(c.Token.RefreshSecret) < 32 {
			return errors.New("ProductionMode requires signing secrets >= 256 bits")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
	}

	return nil
}
