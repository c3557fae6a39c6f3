package app

import (
	"context"
	"errors"
	"fmt"

	"leveled-quiz-service/internal/domain"
)

// CatalogIndex is a read-only view over topics and their per-level pools.
type CatalogIndex struct {
	catalog CatalogStore
	levels  LevelPoolSource
}

// NewCatalogIndex reads topic pools from catalog. Global level pools go through levels when it
// is set, otherwise straight to the catalog.
func NewCatalogIndex(catalog CatalogStore, levels LevelPoolSource) *CatalogIndex {
	return &CatalogIndex{catalog: catalog, levels: levels}
}

// Pool returns the ordered question ids filed under topicID at level.
func (c *CatalogIndex) Pool(ctx context.Context, topicID string, level int) ([]string, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	topic, err := c.catalog.FindTopic(ctx, topicID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown topic %q", domain.ErrInvalidArgument, topicID)
	}
	if err != nil {
		return nil, err
	}
	return append([]string(nil), topic.Pool(level)...), nil
}

// Pools returns one pool per topic id, in the order the ids were given.
func (c *CatalogIndex) Pools(ctx context.Context, topicIDs []string, level int) ([][]string, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if len(topicIDs) == 0 {
		return nil, nil
	}
	topics, err := c.catalog.FindTopics(ctx, topicIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	pools := make([][]string, 0, len(topicIDs))
	for _, id := range topicIDs {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown topic %q", domain.ErrInvalidArgument, id)
		}
		pools = append(pools, append([]string(nil), t.Pool(level)...))
	}
	return pools, nil
}

// Concat joins the pools of topicIDs at level, topic order first and pool order second.
func (c *CatalogIndex) Concat(ctx context.Context, topicIDs []string, level int) ([]string, error) {
	pools, err := c.Pools(ctx, topicIDs, level)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range pools {
		out = append(out, p...)
	}
	return out, nil
}

// LevelPool returns every question id stored at level across the whole catalog.
func (c *CatalogIndex) LevelPool(ctx context.Context, level int) ([]string, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if c.levels != nil {
		return c.levels.LevelPool(ctx, level)
	}
	return c.catalog.QuestionIDsByLevel(ctx, level)
}

// Invalidate drops any cached global pool for level.
func (c *CatalogIndex) Invalidate(ctx context.Context, level int) error {
	if c.levels == nil {
		return nil
	}
	return c.levels.Invalidate(ctx, level)
}

func checkLevel(level int) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("%w: level must be between 0 and %d, got %d", domain.ErrInvalidArgument, domain.LevelCount-1, level)
	}
	return nil
}
