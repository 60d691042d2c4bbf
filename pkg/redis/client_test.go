package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "admin_login:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, allowed, "hit %d", i+1)
		assert.EqualValues(t, i+1, count)
	}
	assert.Equal(t, time.Minute, fake.ttl["haulbook:rate_limit:admin_login:ip:10.0.0.1"])
	assert.Equal(t, 1, fake.expireSet, "window must not be extended by later hits")
}

func TestIdempotencyRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	key := client.IdempotencyKey("stripe_webhook", "evt_1")

	won, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, client.Set(ctx, key, "2", time.Hour))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestTTLClampsMissingKeys(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	fake.ttl[client.RateLimitKey("login")] = 42 * time.Second

	ttl, err := client.TTL(ctx, client.RateLimitKey("login"))
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, ttl)

	ttl, err = client.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestUninitializedClient(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, nilClient.Close())

	_, _, err := (&Client{}).FixedWindowAllow(context.Background(), "x", 1, time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestKeys(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "haulbook:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "haulbook:rate_limit:scope", client.RateLimitKey(" scope "))
	assert.Equal(t, "haulbook:idempotency:scope", client.IdempotencyKey("scope", ""))

	staging := &Client{prefix: "haulbook-staging"}
	assert.Equal(t, "haulbook-staging:rate_limit:login", staging.RateLimitKey("login"))
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	require.Error(t, err)

	opts, err := options(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
}

type fakeCommands struct {
	data      map[string]string
	counters  map[string]int64
	ttl       map[string]time.Duration
	expireSet int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttl:      map[string]time.Duration{},
	}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) TTL(_ context.Context, key string) *redis.DurationCmd {
	ttl, ok := f.ttl[key]
	if !ok {
		return redis.NewDurationResult(-2*time.Nanosecond, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.ttl[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttl[key] = ttl
	f.expireSet++
	return redis.NewBoolResult(true, nil)
}
