package redis

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"leveled-quiz-service/internal/domain"
)

const (
	rankKey     = "users:ranked"
	profilesKey = "users:ranked:profiles"
	versionsKey = "users:ranked:versions"
)

// updateScript writes a member's score and profile unless a newer version is stored.
var updateScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[3], ARGV[1])
if current and tonumber(current) > tonumber(ARGV[4]) then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
redis.call("HSET", KEYS[2], ARGV[1], ARGV[3])
redis.call("HSET", KEYS[3], ARGV[1], ARGV[4])
return 1
`)

// Ranker keeps the public ranking in a sorted set scored by domain.RankScore, with the
// displayed profile of each member in a hash.
type Ranker struct {
	client *redis.Client
}

func NewRanker(client *redis.Client) *Ranker {
	return &Ranker{client: client}
}

// Update scores u. A write carrying an older version than the stored one is ignored, so
// replicas racing on one user cannot leave a stale score behind.
func (r *Ranker) Update(ctx context.Context, u domain.User) error {
	entry := u.Ranked()
	profile, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return updateScript.Run(ctx, r.client,
		[]string{rankKey, profilesKey, versionsKey},
		u.ID,
		strconv.FormatFloat(entry.Score, 'f', -1, 64),
		string(profile),
		strconv.FormatInt(u.Version, 10),
	).Err()
}

// Count reports how many users are ranked.
func (r *Ranker) Count(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, rankKey).Result()
}

// Top returns the highest scored users. Ties are ordered by Redis, i.e. by member id.
func (r *Ranker) Top(ctx context.Context, limit int) ([]domain.RankedUser, error) {
	if limit <= 0 {
		return []domain.RankedUser{}, nil
	}
	results, err := r.client.ZRevRangeWithScores(ctx, rankKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []domain.RankedUser{}, nil
	}

	ids := make([]string, len(results))
	for i, z := range results {
		ids[i] = z.Member.(string)
	}
	profiles, err := r.client.HMGet(ctx, profilesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	board := make([]domain.RankedUser, 0, len(results))
	for i, z := range results {
		entry := domain.RankedUser{UserID: ids[i]}
		if raw, ok := profiles[i].(string); ok {
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, err
			}
		}
		entry.Score = z.Score
		board = append(board, entry)
	}
	return board, nil
}
