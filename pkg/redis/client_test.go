package redis

import (
	"testing"

	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
)

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if got := c.IdempotencyKey("paystack", "evt_123"); got != "bh:idempotency:paystack:evt_123" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.CartKey("user-1"); got != "bh:cart:user-1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.buildKey("", "x"); got != "bh:x" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address set")
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	t.Parallel()

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 5 {
		t.Fatalf("unexpected options %+v", opts)
	}
}
