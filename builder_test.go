package authcore

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBuildFailsFast(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	provider := newMemProvider()

	tests := []struct {
		name  string
		build func() (*Engine, error)
	}{
		{"missing redis", func() (*Engine, error) {
			return New().WithConfig(fastTestConfig()).WithUserProvider(provider).Build()
		}},
		{"missing provider", func() (*Engine, error) {
			return New().WithConfig(fastTestConfig()).WithRedis(rdb).Build()
		}},
		{"missing secrets", func() (*Engine, error) {
			return New().WithRedis(rdb).WithUserProvider(provider).Build()
		}},
		{"unknown capability in routes", func() (*Engine, error) {
			return New().
				WithConfig(fastTestConfig()).
				WithRedis(rdb).
				WithUserProvider(provider).
				WithCapabilities([]string{"items.read"}).
				WithRoutes(map[string][]string{"items.list": {"items.write"}}).
				Build()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(); err == nil {
				t.Fatal("expected build error")
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	b := New().
		WithConfig(fastTestConfig()).
		WithRedis(rdb).
		WithUserProvider(newMemProvider())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("second build accepted")
	}
}
