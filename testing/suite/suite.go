package suite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	containerLifetime = 10 * time.Minute
	startTimeout      = 2 * time.Minute
	testTimeout       = 30 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "7-alpine"
)

// container is the Redis instance shared by every test of one test binary.
type container struct {
	once sync.Once
	err  error

	pool     *dockertest.Pool
	resource *dockertest.Resource
	addr     string
}

var shared container

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
}

// Main - runs the package tests and removes the shared Redis container afterwards.
// Use it from TestMain.
func Main(m *testing.M) {
	code := m.Run()

	if shared.resource != nil {
		if err := shared.pool.Purge(shared.resource); err != nil {
			fmt.Fprintf(os.Stderr, "could not purge redis container: %v\n", err)
		}
	}

	os.Exit(code)
}

// New - returns a client on an empty database of the shared Redis container,
// starting the container on first use. Skipped with -short.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("redis tests need docker")
	}

	shared.once.Do(shared.start)
	if shared.err != nil {
		t.Fatalf("could not start redis: %v", shared.err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	client := redis.NewClient(&redis.Options{Addr: shared.addr})
	t.Cleanup(func() {
		_ = client.Close()
	})

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	return ctx, &Suite{
		T:       t,
		Logger:  slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Storage: client,
	}
}

// ExpiresIn - returns the remaining lifetime of key, failing the test when the
// key is missing or never expires.
func (that *Suite) ExpiresIn(ctx context.Context, key string) time.Duration {
	that.Helper()

	ttl, err := that.Storage.TTL(ctx, key).Result()
	if err != nil {
		that.Fatalf("could not read ttl of %s: %v", key, err)
	}

	// go-redis reports -1 and -2 as nanoseconds
	if ttl < 0 {
		that.Fatalf("key %s has no expiry (ttl %d)", key, ttl)
	}

	return ttl
}

func (that *container) start() {
	pool, err := dockertest.NewPool("")
	if err != nil {
		that.err = fmt.Errorf("could not connect to docker: %w", err)
		return
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		that.err = fmt.Errorf("could not start container: %w", err)
		return
	}

	// the container is killed even if Main never runs
	_ = resource.Expire(uint(containerLifetime.Seconds()))

	that.pool = pool
	that.resource = resource
	that.addr = resource.GetHostPort(redisPort)

	pool.MaxWait = startTimeout

	if err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: that.addr})
		defer client.Close()

		return client.Ping(context.Background()).Err()
	}); err != nil {
		that.err = fmt.Errorf("could not connect to redis: %w", err)
	}
}
