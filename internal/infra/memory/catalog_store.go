package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"leveled-quiz-service/internal/domain"
)

// CatalogStore is an in-memory implementation of app.CatalogStore.
type CatalogStore struct {
	mu         sync.RWMutex
	questions  map[string]domain.Question
	order      []string
	topics     map[string]domain.Topic
	categories map[string]domain.Category
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		questions:  make(map[string]domain.Question),
		topics:     make(map[string]domain.Topic),
		categories: make(map[string]domain.Category),
	}
}

func (s *CatalogStore) FindTopic(_ context.Context, id string) (domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("topic %s: %w", id, domain.ErrNotFound)
	}
	return cloneTopic(t), nil
}

func (s *CatalogStore) FindTopics(_ context.Context, ids []string) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Topic, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.topics[id]; ok {
			out = append(out, cloneTopic(t))
		}
	}
	return out, nil
}

func (s *CatalogStore) FindQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (s *CatalogStore) FindQuestionByPrompt(_ context.Context, prompt string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if q := s.questions[id]; q.Prompt == prompt {
			return cloneQuestion(q), nil
		}
	}
	return domain.Question{}, fmt.Errorf("question with prompt %q: %w", prompt, domain.ErrNotFound)
}

func (s *CatalogStore) FindCategory(_ context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	return cloneCategory(c), nil
}

func (s *CatalogStore) FindCategoryBySlug(_ context.Context, slug string) (domain.Category, error) {
	return s.findCategory(func(c domain.Category) bool { return c.Slug == slug }, "slug "+slug)
}

func (s *CatalogStore) FindCategoryByNumber(_ context.Context, number int) (domain.Category, error) {
	return s.findCategory(func(c domain.Category) bool { return c.Number == number }, fmt.Sprintf("number %d", number))
}

func (s *CatalogStore) findCategory(match func(domain.Category) bool, what string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if match(c) {
			return cloneCategory(c), nil
		}
	}
	return domain.Category{}, fmt.Errorf("category with %s: %w", what, domain.ErrNotFound)
}

func (s *CatalogStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, cloneCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// QuestionIDsByLevel returns ids in insertion order.
func (s *CatalogStore) QuestionIDsByLevel(_ context.Context, level int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.order {
		if s.questions[id].Level == level {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *CatalogStore) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return domain.Question{}, fmt.Errorf("question %s: %w", q.ID, domain.ErrConflict)
	}
	q = cloneQuestion(q)
	s.questions[q.ID] = q
	s.order = append(s.order, q.ID)
	return cloneQuestion(q), nil
}

func (s *CatalogStore) SaveTopic(_ context.Context, t domain.Topic) (domain.Topic, error) {
	t = cloneTopic(t)
	t.Normalize()
	s.mu.Lock()
	s.topics[t.ID] = t
	s.mu.Unlock()
	return cloneTopic(t), nil
}

func (s *CatalogStore) CreateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Slug == c.Slug {
			return domain.Category{}, fmt.Errorf("category %s: %w", c.Slug, domain.ErrConflict)
		}
	}
	c = cloneCategory(c)
	s.categories[c.ID] = c
	return cloneCategory(c), nil
}

func (s *CatalogStore) AppendToPool(_ context.Context, topicID string, level int, questionID string) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("%w: level %d", domain.ErrInvalidArgument, level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topicID]
	if !ok {
		return fmt.Errorf("topic %s: %w", topicID, domain.ErrNotFound)
	}
	t.Levels[level] = append(append([]string{}, t.Levels[level]...), questionID)
	s.topics[topicID] = t
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func cloneTopic(t domain.Topic) domain.Topic {
	for i := range t.Levels {
		if t.Levels[i] != nil {
			t.Levels[i] = append([]string{}, t.Levels[i]...)
		}
	}
	return t
}

func cloneCategory(c domain.Category) domain.Category {
	c.TopicIDs = append([]string{}, c.TopicIDs...)
	return c
}
