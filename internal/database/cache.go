package database

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyTrackList = "beatcrate:tracks:list:"
	CacheKeyGenres    = "beatcrate:genres"
	CacheKeyPlaylists = "beatcrate:playlists:list"
	CacheKeyStats     = "beatcrate:dashboard:stats"

	// Cache TTLs. Listing caches are deliberately short-lived: they are a
	// read-through optimization, never a source of truth.
	CacheTTLTrackList = 30 * time.Second
	CacheTTLGenres    = 5 * time.Minute
	CacheTTLPlaylists = 30 * time.Second
	CacheTTLStats     = 1 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// CacheDeletePattern deletes all keys matching a pattern (use with caution)
func CacheDeletePattern(pattern string) error {
	ctx := context.Background()
	iter := Redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return Redis.Del(ctx, keys...).Err()
	}
	return nil
}

// InvalidateTrackCache clears all track listing caches
func InvalidateTrackCache() {
	CacheDeletePattern(CacheKeyTrackList + "*")
	CacheDelete(CacheKeyGenres)
}

// InvalidatePlaylistCache clears the playlist listing cache
func InvalidatePlaylistCache() {
	CacheDelete(CacheKeyPlaylists)
}

// InvalidateStatsCache clears dashboard stats cache
func InvalidateStatsCache() {
	CacheDelete(CacheKeyStats)
}
