package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"leveled-quiz-service/internal/domain"
)

// CatalogStore keeps questions, topics and categories as JSONB documents.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) FindTopic(ctx context.Context, id string) (domain.Topic, error) {
	var topic domain.Topic
	err := s.loadOne(ctx, &topic, `SELECT data FROM topics WHERE id=$1`, id)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("load topic %s: %w", id, err)
	}
	topic.Normalize()
	return topic, nil
}

func (s *CatalogStore) FindTopics(ctx context.Context, ids []string) ([]domain.Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM topics WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	topics, err := scanAll[domain.Topic](rows)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	for i := range topics {
		topics[i].Normalize()
	}
	return topics, nil
}

func (s *CatalogStore) FindQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questions, err := scanAll[domain.Question](rows)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

func (s *CatalogStore) FindQuestionByPrompt(ctx context.Context, prompt string) (domain.Question, error) {
	var q domain.Question
	if err := s.loadOne(ctx, &q, `SELECT data FROM questions WHERE prompt=$1`, prompt); err != nil {
		return domain.Question{}, fmt.Errorf("load question by prompt: %w", err)
	}
	return q, nil
}

func (s *CatalogStore) FindCategory(ctx context.Context, id string) (domain.Category, error) {
	return s.findCategory(ctx, `SELECT data FROM categories WHERE id=$1`, id)
}

func (s *CatalogStore) FindCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return s.findCategory(ctx, `SELECT data FROM categories WHERE slug=$1`, slug)
}

func (s *CatalogStore) FindCategoryByNumber(ctx context.Context, number int) (domain.Category, error) {
	return s.findCategory(ctx, `SELECT data FROM categories WHERE number=$1`, number)
}

func (s *CatalogStore) findCategory(ctx context.Context, query string, arg any) (domain.Category, error) {
	var c domain.Category
	if err := s.loadOne(ctx, &c, query, arg); err != nil {
		return domain.Category{}, fmt.Errorf("load category %v: %w", arg, err)
	}
	return c, nil
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM categories ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return scanAll[domain.Category](rows)
}

func (s *CatalogStore) QuestionIDsByLevel(ctx context.Context, level int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM questions WHERE level=$1 ORDER BY seq`, level)
	if err != nil {
		return nil, fmt.Errorf("list question ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *CatalogStore) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return domain.Question{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, level, prompt, data) VALUES ($1, $2, $3, $4)`,
		q.ID, q.Level, q.Prompt, raw)
	if err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", mapWriteErr(err))
	}
	return q, nil
}

func (s *CatalogStore) SaveTopic(ctx context.Context, t domain.Topic) (domain.Topic, error) {
	t.Normalize()
	raw, err := json.Marshal(t)
	if err != nil {
		return domain.Topic{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO topics (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		t.ID, raw)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	return t, nil
}

func (s *CatalogStore) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return domain.Category{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO categories (id, slug, number, data) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Slug, c.Number, raw)
	if err != nil {
		return domain.Category{}, fmt.Errorf("insert category %s: %w", c.Slug, mapWriteErr(err))
	}
	return c, nil
}

// AppendToPool appends in place with jsonb_set so concurrent appends to one topic do not
// overwrite each other.
func (s *CatalogStore) AppendToPool(ctx context.Context, topicID string, level int, questionID string) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("%w: level %d", domain.ErrInvalidArgument, level)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE topics
		SET data = jsonb_set(data, ARRAY['levels', $2::text],
			COALESCE(data->'levels'->$3::int, '[]'::jsonb) || to_jsonb($4::text))
		WHERE id = $1`,
		topicID, strconv.Itoa(level), level, questionID)
	if err != nil {
		return fmt.Errorf("append to topic %s: %w", topicID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic %s: %w", topicID, domain.ErrNotFound)
	}
	return nil
}

func (s *CatalogStore) loadOne(ctx context.Context, dst any, query string, args ...any) error {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func scanAll[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// mapWriteErr turns unique violations into domain.ErrConflict.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
