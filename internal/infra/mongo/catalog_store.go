package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leveled-quiz-service/internal/domain"
)

// CatalogStore keeps questions, topics and categories in three collections.
type CatalogStore struct {
	questions  *mongo.Collection
	topics     *mongo.Collection
	categories *mongo.Collection
	now        func() time.Time
}

func NewCatalogStore(db *mongo.Database) *CatalogStore {
	return &CatalogStore{
		questions:  db.Collection("questions"),
		topics:     db.Collection("topics"),
		categories: db.Collection("categories"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *CatalogStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.questions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "prompt", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "level", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("question indexes: %w", err)
	}
	if _, err := s.categories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "categoryId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("category indexes: %w", err)
	}
	return nil
}

func (s *CatalogStore) FindTopic(ctx context.Context, id string) (domain.Topic, error) {
	var doc topicDoc
	if err := findOne(ctx, s.topics, bson.M{"_id": id}, &doc); err != nil {
		return domain.Topic{}, fmt.Errorf("topic %s: %w", id, err)
	}
	return doc.domain(), nil
}

func (s *CatalogStore) FindTopics(ctx context.Context, ids []string) ([]domain.Topic, error) {
	var docs []topicDoc
	if err := findAll(ctx, s.topics, bson.M{"_id": bson.M{"$in": ids}}, &docs); err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	out := make([]domain.Topic, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (s *CatalogStore) FindQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	var docs []questionDoc
	if err := findAll(ctx, s.questions, bson.M{"_id": bson.M{"$in": ids}}, &docs); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	out := make([]domain.Question, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (s *CatalogStore) FindQuestionByPrompt(ctx context.Context, prompt string) (domain.Question, error) {
	var doc questionDoc
	if err := findOne(ctx, s.questions, bson.M{"prompt": prompt}, &doc); err != nil {
		return domain.Question{}, fmt.Errorf("question with prompt %q: %w", prompt, err)
	}
	return doc.domain(), nil
}

func (s *CatalogStore) FindCategory(ctx context.Context, id string) (domain.Category, error) {
	return s.findCategory(ctx, bson.M{"_id": id})
}

func (s *CatalogStore) FindCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return s.findCategory(ctx, bson.M{"slug": slug})
}

func (s *CatalogStore) FindCategoryByNumber(ctx context.Context, number int) (domain.Category, error) {
	return s.findCategory(ctx, bson.M{"categoryId": number})
}

func (s *CatalogStore) findCategory(ctx context.Context, filter bson.M) (domain.Category, error) {
	var doc categoryDoc
	if err := findOne(ctx, s.categories, filter, &doc); err != nil {
		return domain.Category{}, fmt.Errorf("category %v: %w", filter, err)
	}
	return doc.domain(), nil
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var docs []categoryDoc
	opts := options.Find().SetSort(bson.D{{Key: "categoryId", Value: 1}})
	if err := findAll(ctx, s.categories, bson.M{}, &docs, opts); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (s *CatalogStore) QuestionIDsByLevel(ctx context.Context, level int) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := findAll(ctx, s.questions, bson.M{"level": level}, &docs, opts); err != nil {
		return nil, fmt.Errorf("list question ids: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *CatalogStore) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	doc := questionDoc{
		ID:            q.ID,
		Prompt:        q.Prompt,
		Options:       q.Options,
		Level:         q.Level,
		CorrectAnswer: q.CorrectAnswer,
		TopicID:       q.TopicID,
		CreatedAt:     s.now().UTC(),
	}
	if _, err := s.questions.InsertOne(ctx, doc); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", mapWriteErr(err))
	}
	return q, nil
}

func (s *CatalogStore) SaveTopic(ctx context.Context, t domain.Topic) (domain.Topic, error) {
	doc := newTopicDoc(t)
	_, err := s.topics.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.Topic{}, fmt.Errorf("save topic: %w", err)
	}
	return doc.domain(), nil
}

func (s *CatalogStore) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	doc := categoryDoc{ID: c.ID, Name: c.Name, Slug: c.Slug, Number: c.Number, Topics: c.TopicIDs}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		return domain.Category{}, fmt.Errorf("insert category %s: %w", c.Slug, mapWriteErr(err))
	}
	return doc.domain(), nil
}

func (s *CatalogStore) AppendToPool(ctx context.Context, topicID string, level int, questionID string) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("%w: level %d", domain.ErrInvalidArgument, level)
	}
	field := fmt.Sprintf("level%d", level)
	res, err := s.topics.UpdateOne(ctx, bson.M{"_id": topicID}, bson.M{"$push": bson.M{field: questionID}})
	if err != nil {
		return fmt.Errorf("append to topic %s: %w", topicID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("topic %s: %w", topicID, domain.ErrNotFound)
	}
	return nil
}

func findOne(ctx context.Context, coll *mongo.Collection, filter any, dst any) error {
	err := coll.FindOne(ctx, filter).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, dst any, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, dst)
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
