package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisBypassWhenUnreachable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	// Port 1 is never served in the test environment.
	r := NewRedis(context.Background(), Options{Addr: "127.0.0.1:1"}, zap.New(core))

	if r.Available() {
		t.Fatal("expected cache to be unavailable")
	}
	if logs.FilterMessage("redis unavailable, bypassing cache").Len() != 1 {
		t.Fatal("expected bypass warning")
	}

	var out map[string]int
	found, err := r.GetJSON(context.Background(), "k", &out)
	if err != nil || found {
		t.Fatalf("expected silent miss, got found=%v err=%v", found, err)
	}

	if err := r.SetJSON(context.Background(), "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("expected dropped write, got %v", err)
	}

	if err := r.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestNilRedisIsUnavailable(t *testing.T) {
	var r *Redis
	if r.Available() {
		t.Fatal("nil cache must be unavailable")
	}
}
