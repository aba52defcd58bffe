package authcore

import (
	"errors"

	"github.com/claimpoint/authcore/internal/audit"
	"github.com/claimpoint/authcore/password"
	"github.com/claimpoint/authcore/permission"
	"github.com/claimpoint/authcore/revocation"
	"github.com/claimpoint/authcore/session"
	"github.com/claimpoint/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it fluently, then call
// [Builder.Build] exactly once; every wiring problem (missing secret,
// unknown capability in the route table, absent user provider) fails there,
// at startup, never at request time.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	capabilities []string
	routes       map[string][]string

	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned; later
// mutation of cfg by the caller does not reach the engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client shared by the session store and the
// revocation registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCapabilities declares the closed set of capability names.
func (b *Builder) WithCapabilities(caps []string) *Builder {
	b.capabilities = caps
	return b
}

// WithRoutes declares the static route table: route id to required
// capabilities. Routes not listed require authentication only.
func (b *Builder) WithRoutes(routes map[string][]string) *Builder {
	b.routes = routes
	return b
}

// WithUserProvider sets the collaborator that owns user rows.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit sink and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder is
// single-use; a second Build returns an error.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- CAPABILITY REGISTRY + ROUTE TABLE --------
	registry := permission.NewRegistry()
	for _, c := range b.capabilities {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	table, err := permission.NewTable(registry, b.routes)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cloneBytes(cfg.Token.AccessSecret),
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshSecret: cloneBytes(cfg.Token.RefreshSecret),
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		codec:       codec,
		hasher:      hasher,
		sessions:    session.NewStore(b.redis, cfg.Session.RedisPrefix),
		revocations: revocation.NewRegistry(b.redis, cfg.Session.RedisPrefix, cfg.Token.RefreshTTL),
		registry:    registry,
		routes:      table,
		users:       b.userProvider,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
