package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const blacklistPrefix = "beatcrate:blacklist:"

// tokenKey hashes the raw JWT so Redis never stores a usable token
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

// BlacklistToken marks a token as revoked until it would have expired anyway
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil || ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Set(ctx, tokenKey(token), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a token was revoked via logout
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	n, err := Redis.Exists(ctx, tokenKey(token)).Result()
	return err == nil && n > 0
}
