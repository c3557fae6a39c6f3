package mongo

import (
	"time"

	"leveled-quiz-service/internal/domain"
)

type questionDoc struct {
	ID            string    `bson:"_id"`
	Prompt        string    `bson:"prompt"`
	Options       []string  `bson:"options"`
	Level         int       `bson:"level"`
	CorrectAnswer int       `bson:"correctAnswer"`
	TopicID       string    `bson:"topic,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func (d questionDoc) domain() domain.Question {
	return domain.Question{
		ID:            d.ID,
		Prompt:        d.Prompt,
		Options:       d.Options,
		Level:         d.Level,
		CorrectAnswer: d.CorrectAnswer,
		TopicID:       d.TopicID,
	}
}

// topicDoc keeps one array field per level, matching how topics are stored by the
// existing clients of this collection.
type topicDoc struct {
	ID         string    `bson:"_id"`
	Title      string    `bson:"title"`
	CategoryID string    `bson:"category,omitempty"`
	Level0     []string  `bson:"level0"`
	Level1     []string  `bson:"level1"`
	Level2     []string  `bson:"level2"`
	Level3     []string  `bson:"level3"`
	Level4     []string  `bson:"level4"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func newTopicDoc(t domain.Topic) topicDoc {
	t.Normalize()
	return topicDoc{
		ID:         t.ID,
		Title:      t.Title,
		CategoryID: t.CategoryID,
		Level0:     t.Levels[0],
		Level1:     t.Levels[1],
		Level2:     t.Levels[2],
		Level3:     t.Levels[3],
		Level4:     t.Levels[4],
		CreatedAt:  t.CreatedAt,
	}
}

func (d topicDoc) domain() domain.Topic {
	t := domain.Topic{
		ID:         d.ID,
		Title:      d.Title,
		CategoryID: d.CategoryID,
		Levels:     [domain.LevelCount][]string{d.Level0, d.Level1, d.Level2, d.Level3, d.Level4},
		CreatedAt:  d.CreatedAt,
	}
	t.Normalize()
	return t
}

type categoryDoc struct {
	ID     string   `bson:"_id"`
	Name   string   `bson:"name"`
	Slug   string   `bson:"slug"`
	Number int      `bson:"categoryId"`
	Topics []string `bson:"topics"`
}

func (d categoryDoc) domain() domain.Category {
	topics := d.Topics
	if topics == nil {
		topics = []string{}
	}
	return domain.Category{ID: d.ID, Name: d.Name, Slug: d.Slug, Number: d.Number, TopicIDs: topics}
}

type userDoc struct {
	ID                  string     `bson:"_id"`
	Username            string     `bson:"username"`
	QuizzesPlayed       int        `bson:"quizzesPlayed"`
	SuccessRate         float64    `bson:"successRate"`
	Stars               int        `bson:"stars"`
	RapidFireCheckpoint *time.Time `bson:"rapidFireCheckpoint"`
	Version             int64      `bson:"version"`
}

func (d userDoc) domain() domain.User {
	return domain.User{
		ID:       d.ID,
		Username: d.Username,
		Stats: domain.UserStats{
			QuizzesPlayed:       d.QuizzesPlayed,
			SuccessRate:         d.SuccessRate,
			Stars:               d.Stars,
			RapidFireCheckpoint: d.RapidFireCheckpoint,
		},
		Version: d.Version,
	}
}
