package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a claim only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClaimStore keeps exclusive claims as Redis keys set with NX and a TTL, so every replica
// sees the same in-flight rapid fire runs.
type ClaimStore struct {
	client *redis.Client
	prefix string
}

func NewClaimStore(client *redis.Client) *ClaimStore {
	return &ClaimStore{client: client, prefix: "quiz:claim:"}
}

func (s *ClaimStore) Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, token, ttl).Result()
}

func (s *ClaimStore) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key}, token).Err()
}
