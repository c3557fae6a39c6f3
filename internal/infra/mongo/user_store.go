package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leveled-quiz-service/internal/domain"
)

// UserStore keeps user statistics with a version field for conditional updates.
type UserStore struct {
	users *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{users: db.Collection("users")}
}

func (s *UserStore) FindUser(ctx context.Context, id string) (domain.User, error) {
	var doc userDoc
	if err := findOne(ctx, s.users, bson.M{"_id": id}, &doc); err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return doc.domain(), nil
}

func (s *UserStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	doc := userDoc{
		ID:                  u.ID,
		Username:            u.Username,
		QuizzesPlayed:       u.Stats.QuizzesPlayed,
		SuccessRate:         u.Stats.SuccessRate,
		Stars:               u.Stats.Stars,
		RapidFireCheckpoint: u.Stats.RapidFireCheckpoint,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	return doc.domain(), nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var docs []userDoc
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := findAll(ctx, s.users, bson.M{}, &docs, opts); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}

func (s *UserStore) CompareAndSwapStats(ctx context.Context, id string, expected int64, stats domain.UserStats) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "version": expected},
		bson.M{
			"$set": bson.M{
				"quizzesPlayed":       stats.QuizzesPlayed,
				"successRate":         stats.SuccessRate,
				"stars":               stats.Stars,
				"rapidFireCheckpoint": stats.RapidFireCheckpoint,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return false, fmt.Errorf("update stats of %s: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return false, nil
}
