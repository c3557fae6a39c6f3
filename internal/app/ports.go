package app

import (
	"context"
	"time"

	"leveled-quiz-service/internal/domain"
)

// CatalogStore is the document store holding questions, topics and categories.
// Lookups of a single missing entity return domain.ErrNotFound; batch lookups omit missing ids.
type CatalogStore interface {
	FindTopic(ctx context.Context, id string) (domain.Topic, error)
	FindTopics(ctx context.Context, ids []string) ([]domain.Topic, error)
	FindQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	FindQuestionByPrompt(ctx context.Context, prompt string) (domain.Question, error)
	FindCategory(ctx context.Context, id string) (domain.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (domain.Category, error)
	FindCategoryByNumber(ctx context.Context, number int) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	QuestionIDsByLevel(ctx context.Context, level int) ([]string, error)

	CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	// SaveTopic inserts the topic when its id is empty or unknown, otherwise replaces it.
	SaveTopic(ctx context.Context, t domain.Topic) (domain.Topic, error)
	// CreateCategory fails with domain.ErrConflict when the slug is already taken.
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	// AppendToPool adds questionID at the end of the topic's pool for level.
	AppendToPool(ctx context.Context, topicID string, level int, questionID string) error
}

// UserStore holds user statistics and offers a versioned conditional update.
type UserStore interface {
	FindUser(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// CompareAndSwapStats writes stats only if the stored version still equals expected.
	// It reports false, with no error, when the version moved.
	CompareAndSwapStats(ctx context.Context, id string, expected int64, stats domain.UserStats) (bool, error)
}

// LevelPoolSource yields every question id stored at a level, usually through a cache.
type LevelPoolSource interface {
	LevelPool(ctx context.Context, level int) ([]string, error)
	Invalidate(ctx context.Context, level int) error
}

// Claimer records short-lived, exclusive claims such as an in-flight rapid fire issue. A claim
// is held under a token and only a release carrying the same token removes it.
type Claimer interface {
	Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// Ranker maintains the public ranking of users.
type Ranker interface {
	Update(ctx context.Context, u domain.User) error
	Top(ctx context.Context, limit int) ([]domain.RankedUser, error)
	Count(ctx context.Context) (int64, error)
}

// EventPublisher broadcasts domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// NopPublisher drops every event; used when no broker is configured.
var NopPublisher EventPublisher = nopPublisher{}
