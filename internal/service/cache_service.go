package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 256

// CacheService in-memory кэш с общим TTL и вытеснением по LRU.
type CacheService struct {
	lru *expirable.LRU[string, interface{}]
}

// NewCacheService создаёт кэш на size записей, каждая живёт ttl.
func NewCacheService(size int, ttl time.Duration) *CacheService {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &CacheService{lru: expirable.NewLRU[string, interface{}](size, nil, ttl)}
}

// Get retrieves a value from cache.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.lru.Get(key)
}

// Set stores a value in cache.
func (cs *CacheService) Set(key string, value interface{}) {
	cs.lru.Add(key, value)
}

// InvalidateByPrefix removes all keys with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	for _, key := range cs.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			cs.lru.Remove(key)
		}
	}
}

// GetOrSet retrieves a value from cache or computes it if not found.
func (cs *CacheService) GetOrSet(key string, fn func() (interface{}, error)) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.Set(key, value)
	return value, nil
}

// Cache key generators
const leaderboardPrefix = "leaderboard:"

func LeaderboardCacheKey(kind string, limit int) string {
	return leaderboardPrefix + kind + ":" + strconv.Itoa(limit)
}
