// Package seed loads a catalog described in YAML through the validated create operations.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"leveled-quiz-service/internal/app"
	"leveled-quiz-service/internal/domain"
)

// File is the layout of a seed document.
type File struct {
	Users      []User     `yaml:"users"`
	Topics     []Topic    `yaml:"topics"`
	Categories []Category `yaml:"categories"`
}

type User struct {
	Username string `yaml:"username"`
}

// Topic is referenced from categories by Key.
type Topic struct {
	Key       string              `yaml:"key"`
	Title     string              `yaml:"title"`
	Questions []app.QuestionInput `yaml:"questions"`
}

type Category struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

// Service is the subset of app.QuizService a seed needs.
type Service interface {
	CreateTopic(ctx context.Context, in app.TopicInput) (domain.Topic, error)
	CreateQuestions(ctx context.Context, topicID string, inputs []app.QuestionInput) (app.CreateQuestionsResult, error)
	CreateCategory(ctx context.Context, name string, topicIDs []string) (domain.Category, error)
	RegisterUser(ctx context.Context, username string) (domain.User, error)
}

// Report summarizes what a seed run created.
type Report struct {
	Users      int
	Topics     int
	Questions  int
	Skipped    int
	Categories int
}

// Load parses the seed file at path.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return f, nil
}

// Apply creates users, topics with their questions, then categories. Categories whose slug
// already exists are skipped so a catalog can be re-seeded with new topics.
func Apply(ctx context.Context, svc Service, f File) (Report, error) {
	var report Report
	for _, u := range f.Users {
		user, err := svc.RegisterUser(ctx, u.Username)
		if err != nil {
			return report, fmt.Errorf("user %s: %w", u.Username, err)
		}
		log.Printf("seed: user %s has id %s", user.Username, user.ID)
		report.Users++
	}

	topicIDs := make(map[string]string, len(f.Topics))
	for _, t := range f.Topics {
		if t.Key == "" {
			return report, fmt.Errorf("%w: topic %q has no key", domain.ErrInvalidArgument, t.Title)
		}
		if _, dup := topicIDs[t.Key]; dup {
			return report, fmt.Errorf("%w: topic key %q used twice", domain.ErrInvalidArgument, t.Key)
		}
		topic, err := svc.CreateTopic(ctx, app.TopicInput{Title: t.Title})
		if err != nil {
			return report, fmt.Errorf("topic %s: %w", t.Key, err)
		}
		topicIDs[t.Key] = topic.ID
		report.Topics++

		if len(t.Questions) == 0 {
			continue
		}
		res, err := svc.CreateQuestions(ctx, topic.ID, t.Questions)
		if err != nil {
			return report, fmt.Errorf("questions of %s: %w", t.Key, err)
		}
		report.Questions += len(res.Created)
		report.Skipped += len(res.Skipped)
	}

	for _, c := range f.Categories {
		ids := make([]string, 0, len(c.Topics))
		for _, key := range c.Topics {
			id, ok := topicIDs[key]
			if !ok {
				return report, fmt.Errorf("%w: category %s references unknown topic key %q", domain.ErrInvalidArgument, c.Name, key)
			}
			ids = append(ids, id)
		}
		_, err := svc.CreateCategory(ctx, c.Name, ids)
		if errors.Is(err, domain.ErrConflict) {
			log.Printf("seed: category %s already exists, skipping", c.Name)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("category %s: %w", c.Name, err)
		}
		report.Categories++
	}
	return report, nil
}
