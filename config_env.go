package authcore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envConfig is the flat environment shape Load reads before folding it into
// [Config]. Lifetimes arrive as strings because deployments express them
// either as durations ("15m", "7d") or as raw second counts ("900").
type envConfig struct {
	AccessSecret     string `mapstructure:"AUTH_ACCESS_SECRET"`
	AccessExpiresIn  string `mapstructure:"AUTH_ACCESS_EXPIRES_IN"`
	RefreshSecret    string `mapstructure:"AUTH_REFRESH_SECRET"`
	RefreshExpiresIn string `mapstructure:"AUTH_REFRESH_EXPIRES_IN"`
	Issuer           string `mapstructure:"AUTH_ISSUER"`
	RedisPrefix      string `mapstructure:"AUTH_REDIS_PREFIX"`
	CookieDomain     string `mapstructure:"AUTH_COOKIE_DOMAIN"`
	Env              string `mapstructure:"APP_ENV"`
}

// Load reads an optional .env file and the environment via Viper and returns
// a validated [Config]. A missing .env is ignored (e.g. in CI); env vars
// override file values. Secrets are required: Load fails with
// [ErrConfigMissing] rather than deferring the failure to request time.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Unmarshal only resolves keys viper already knows about; bind every
	// mapped key so env-only values (no .env file) are picked up too.
	for _, key := range []string{
		"AUTH_ACCESS_SECRET",
		"AUTH_ACCESS_EXPIRES_IN",
		"AUTH_REFRESH_SECRET",
		"AUTH_REFRESH_EXPIRES_IN",
		"AUTH_ISSUER",
		"AUTH_REDIS_PREFIX",
		"AUTH_COOKIE_DOMAIN",
		"APP_ENV",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	v.SetDefault("AUTH_ACCESS_EXPIRES_IN", "15m")
	v.SetDefault("AUTH_REFRESH_EXPIRES_IN", "7d")
	v.SetDefault("AUTH_ISSUER", "claimpoint")
	v.SetDefault("AUTH_REDIS_PREFIX", "cs")

	var env envConfig
	if err := v.Unmarshal(&env); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte(env.AccessSecret)
	cfg.Token.RefreshSecret = []byte(env.RefreshSecret)
	cfg.Token.Issuer = env.Issuer
	cfg.Session.RedisPrefix = env.RedisPrefix
	cfg.Cookie.Domain = env.CookieDomain
	cfg.Cookie.ProductionMode = env.Env == "production"

	accessTTL, err := ParseExpiresIn(env.AccessExpiresIn)
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_ACCESS_EXPIRES_IN: %w", err)
	}
	cfg.Token.AccessTTL = accessTTL

	refreshTTL, err := ParseExpiresIn(env.RefreshExpiresIn)
	if err != nil {
		return Config{}, fmt.Errorf("AUTH_REFRESH_EXPIRES_IN: %w", err)
	}
	cfg.Token.RefreshTTL = refreshTTL

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseExpiresIn normalizes a configured lifetime into a duration. Accepted
// forms: a bare integer (seconds), a day suffix ("7d"), or any Go duration
// string ("15m", "1h30m"). The result is always positive; persisting a raw
// config value is never valid.
func ParseExpiresIn(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty lifetime")
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("lifetime must be positive, got %q", value)
		}
		return time.Duration(secs) * time.Second, nil
	}

	if strings.HasSuffix(value, "d") {
		days, err := strconv.ParseInt(strings.TrimSuffix(value, "d"), 10, 64)
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day lifetime %q", value)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("lifetime must be positive, got %q", value)
	}
	return d, nil
}
