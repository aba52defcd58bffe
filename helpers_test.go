package authcore

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/claimpoint/authcore/session"
)

// memProvider is an in-memory UserProvider for tests.
type memProvider struct {
	mu     sync.RWMutex
	byID   map[string]UserRecord
	byName map[string]string
	fail   error
}

func newMemProvider() *memProvider {
	return &memProvider{
		byID:   make(map[string]UserRecord),
		byName: make(map[string]string),
	}
}

func (p *memProvider) put(u UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[u.ID] = u
	p.byName[u.Username] = u.ID
}

func (p *memProvider) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[id]
	if ok {
		delete(p.byName, u.Username)
		delete(p.byID, id)
	}
}

func (p *memProvider) FindUserWithPermissions(id string) (*UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fail != nil {
		return nil, p.fail
	}
	u, ok := p.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (p *memProvider) FindUserByUsername(username string) (*UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fail != nil {
		return nil, p.fail
	}
	id, ok := p.byName[username]
	if !ok {
		return nil, nil
	}
	u := p.byID[id]
	return &u, nil
}

func fastTestConfig() Config {
	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.Token.RefreshSecret = []byte("refresh-secret-for-tests-012345678")
	// Minimum argon2 costs keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type engineFixture struct {
	engine   *Engine
	provider *memProvider
	redis    *miniredis.Miniredis
}

func newEngineTest(t *testing.T, mutate func(*Config)) *engineFixture {
	t.Helper()
	return buildEngineTest(t, mutate, nil)
}

func newEngineTestWithSink(t *testing.T, sink AuditSink) *engineFixture {
	t.Helper()
	return buildEngineTest(t, nil, sink)
}

func buildEngineTest(t *testing.T, mutate func(*Config), sink AuditSink) *engineFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := fastTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	provider := newMemProvider()
	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCapabilities([]string{"items.read", "items.write", "items.manage"}).
		WithRoutes(map[string][]string{
			"items.list":   {"items.read"},
			"admin.manage": {"items.read", "items.manage"},
		}).
		WithUserProvider(provider).
		WithMetricsEnabled(true)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("engine build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, provider: provider, redis: mr}
}

// seedUser hashes the password with the engine's hasher and registers the
// user with the provider.
func (f *engineFixture) seedUser(t *testing.T, id, username, plaintext string, perms ...string) {
	t.Helper()
	hash, err := f.engine.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	f.provider.put(UserRecord{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		RoleName:     "member",
		Permissions:  perms,
	})
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func cookieRequest(name, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: name, Value: value})
	return r
}

// plantSession overwrites the stored session row for jti, bypassing the
// store so tests can construct states the public API forbids.
func plantSession(t *testing.T, f *engineFixture, jti, userID, refreshHash string, expiresIn time.Duration) *session.Session {
	t.Helper()

	sess := &session.Session{
		UserID:      userID,
		JTI:         jti,
		RefreshHash: refreshHash,
		CreatedAt:   time.Now().Add(-time.Minute).Unix(),
		ExpiresAt:   time.Now().Add(expiresIn).Unix(),
	}
	data, err := session.Encode(sess)
	if err != nil {
		t.Fatalf("encode planted session: %v", err)
	}
	if err := f.redis.Set("cs:jti:"+jti, string(data)); err != nil {
		t.Fatalf("plant session: %v", err)
	}
	return sess
}
