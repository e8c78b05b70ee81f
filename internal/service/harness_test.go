package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingoquest/internal/cache"
	"lingoquest/internal/database"
	"lingoquest/internal/events"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
	"lingoquest/internal/security"
	"lingoquest/internal/testutil"
)

type harness struct {
	db       *database.DB
	content  *repository.ContentRepository
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	progress *repository.ProgressRepository
	bus      *events.Bus
	rewards  *RewardService
	logs     *ProgressService
	reader   *ContentService
	auth     *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Nop()
	db := testutil.NewDB(t)

	h := &harness{
		db:       db,
		content:  repository.NewContentRepository(db),
		users:    repository.NewUserRepository(db),
		profiles: repository.NewProfileRepository(db),
		progress: repository.NewProgressRepository(db),
		bus:      events.NewBus(log),
	}
	h.rewards = NewRewardService(h.profiles, log)
	require.NoError(t, h.rewards.Register(h.bus))
	h.logs = NewProgressService(db, h.content, h.progress, h.profiles, h.bus, log)
	h.reader = NewContentService(h.content, nil, time.Minute, log)
	h.auth = NewAuthService(db, h.users, h.profiles, security.NewTokenIssuer("test-secret", time.Hour), nil, log)
	return h
}

func ptr[T any](v T) *T { return &v }

// memCache keeps JSON-encoded values in a map
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memCache) Close() error { return nil }

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
