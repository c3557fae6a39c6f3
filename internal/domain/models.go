package domain

import (
	"strings"
	"time"
	"unicode"
)

const (
	// LevelCount is the number of difficulty tiers; valid levels are 0..LevelCount-1.
	LevelCount = 5
	// OptionCount is the exact number of options every question carries.
	OptionCount = 4
	// NoSlot marks a violation that is not tied to a level slot.
	NoSlot = -1
)

// ValidLevel reports whether level is one of the five difficulty tiers.
func ValidLevel(level int) bool {
	return level >= 0 && level < LevelCount
}

// Question models an MCQ question with exactly four options.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	Level         int      `json:"level"`
	CorrectAnswer int      `json:"correctAnswer"`
	TopicID       string   `json:"topicId,omitempty"`
}

// Topic files question ids into one ordered pool per level.
type Topic struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	CategoryID string               `json:"categoryId,omitempty"`
	Levels     [LevelCount][]string `json:"levels"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// Pool returns the ids filed at level, or nil when level is out of range.
func (t Topic) Pool(level int) []string {
	if !ValidLevel(level) {
		return nil
	}
	return t.Levels[level]
}

// Normalize replaces nil pools with empty ones so stored documents always hold arrays.
func (t *Topic) Normalize() {
	for i := range t.Levels {
		if t.Levels[i] == nil {
			t.Levels[i] = []string{}
		}
	}
}

// Category groups topics under one of the fixed category names.
type Category struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Number   int      `json:"categoryId"`
	TopicIDs []string `json:"topics"`
}

// CategoryNames is the closed set of allowed category names. A category's Number is its
// 1-based position in this list, so the order must never change.
var CategoryNames = []string{
	"General Knowledge",
	"Science",
	"History",
	"Geography",
	"Sports",
	"Entertainment",
}

// CategoryNumber returns the stable number for name, or 0 when name is not allowed.
func CategoryNumber(name string) int {
	for i, n := range CategoryNames {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// UserStats are the running aggregates owned by a user.
type UserStats struct {
	QuizzesPlayed       int        `json:"quizzesPlayed"`
	SuccessRate         float64    `json:"successRate"`
	Stars               int        `json:"stars"`
	RapidFireCheckpoint *time.Time `json:"rapidFireCheckpoint"`
}

// User is the subset of an account the quiz engine reads and writes.
// Version increases on every stats write and guards compare-and-swap updates.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Stats    UserStats `json:"stats"`
	Version  int64     `json:"-"`
}

// Completion is the ephemeral event produced when a user finishes a quiz.
type Completion struct {
	QuizResult  int  `json:"quizResult"`
	StarsEarned int  `json:"starsEarned"`
	RapidFire   bool `json:"rapidFire"`
	// RunID names the rapid fire run being completed, as handed out with its questions.
	RunID string `json:"runId,omitempty"`
}

// RankedUser is the public view of a user on the ranking board.
type RankedUser struct {
	UserID        string  `json:"userId"`
	Username      string  `json:"username"`
	QuizzesPlayed int     `json:"quizzesPlayed"`
	Stars         int     `json:"stars"`
	SuccessRate   float64 `json:"successRate"`
	Score         float64 `json:"score"`
}

// RankScore weights play count and stars the way the public ranking orders users.
func RankScore(stats UserStats) float64 {
	return float64(stats.QuizzesPlayed)*0.4 + float64(stats.Stars)*0.6
}

// Ranked builds the public ranking entry for u.
func (u User) Ranked() RankedUser {
	return RankedUser{
		UserID:        u.ID,
		Username:      u.Username,
		QuizzesPlayed: u.Stats.QuizzesPlayed,
		Stars:         u.Stats.Stars,
		SuccessRate:   u.Stats.SuccessRate,
		Score:         RankScore(u.Stats),
	}
}
