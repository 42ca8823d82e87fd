package edit

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

// ---------------- Redis-backed cache ----------------

// redisCache stores one hash per session so a whole session's editing
// vocabulary can be dropped with a single DEL when the session ends.
type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisCache(log *logger.Logger, rdb *goredis.Client) ResolutionCache {
	return &redisCache{log: log.With("component", "RedisResolutionCache"), rdb: rdb}
}

func redisCacheKey(sessionID uuid.UUID) string {
	return "edit:res:" + sessionID.String()
}

func (c *redisCache) Get(ctx context.Context, sessionID uuid.UUID, key domain.ResolutionKey) (*domain.Resolution, bool) {
	raw, err := c.rdb.HGet(ctx, redisCacheKey(sessionID), key.Hash()).Result()
	if err == goredis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache read failed; treating as miss", "error", err)
		return nil, false
	}
	var res domain.Resolution
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		c.log.Warn("cache entry corrupt; treating as miss", "error", err)
		return nil, false
	}
	return &res, true
}

func (c *redisCache) Put(ctx context.Context, sessionID uuid.UUID, key domain.ResolutionKey, res domain.Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	// HSETNX keeps entries immutable once written.
	if err := c.rdb.HSetNX(ctx, redisCacheKey(sessionID), key.Hash(), raw).Err(); err != nil {
		c.log.Warn("cache write failed", "error", err)
	}
}

func (c *redisCache) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	return c.rdb.Del(ctx, redisCacheKey(sessionID)).Err()
}

// ---------------- In-memory cache ----------------

type memoryEntry struct {
	field string
	res   domain.Resolution
}

// memoryCache is a session-keyed map with an LRU cap per session. The cap
// is a safety valve, not a correctness requirement: a session's editing
// vocabulary is small.
type memoryCache struct {
	mu         sync.Mutex
	maxEntries int
	sessions   map[uuid.UUID]*sessionCache
}

type sessionCache struct {
	order   *list.List
	entries map[string]*list.Element
}

func NewMemoryCache(maxEntries int) ResolutionCache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &memoryCache{
		maxEntries: maxEntries,
		sessions:   make(map[uuid.UUID]*sessionCache),
	}
}

func (c *memoryCache) Get(_ context.Context, sessionID uuid.UUID, key domain.ResolutionKey) (*domain.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.sessions[sessionID]
	if !ok {
		return nil, false
	}
	el, ok := sc.entries[key.Hash()]
	if !ok {
		return nil, false
	}
	sc.order.MoveToFront(el)
	res := el.Value.(*memoryEntry).res
	return &res, true
}

func (c *memoryCache) Put(_ context.Context, sessionID uuid.UUID, key domain.ResolutionKey, res domain.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.sessions[sessionID]
	if !ok {
		sc = &sessionCache{order: list.New(), entries: make(map[string]*list.Element)}
		c.sessions[sessionID] = sc
	}
	field := key.Hash()
	if _, exists := sc.entries[field]; exists {
		// Entries are immutable once written.
		return
	}
	sc.entries[field] = sc.order.PushFront(&memoryEntry{field: field, res: res})
	for sc.order.Len() > c.maxEntries {
		oldest := sc.order.Back()
		if oldest == nil {
			break
		}
		sc.order.Remove(oldest)
		delete(sc.entries, oldest.Value.(*memoryEntry).field)
	}
}

func (c *memoryCache) ClearSession(_ context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}
