package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leveled-quiz-service/internal/domain"
)

// QuestionInput is the payload for one new question.
type QuestionInput struct {
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	Level         int      `json:"level" yaml:"level"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
}

// TopicInput is the payload for creating or replacing a topic.
type TopicInput struct {
	Title      string   `json:"title" yaml:"title"`
	CategoryID string   `json:"category,omitempty" yaml:"category,omitempty"`
	Level0     []string `json:"level0" yaml:"level0"`
	Level1     []string `json:"level1" yaml:"level1"`
	Level2     []string `json:"level2" yaml:"level2"`
	Level3     []string `json:"level3" yaml:"level3"`
	Level4     []string `json:"level4" yaml:"level4"`
}

// Levels returns the five slots indexed by level.
func (in TopicInput) Levels() [domain.LevelCount][]string {
	return [domain.LevelCount][]string{in.Level0, in.Level1, in.Level2, in.Level3, in.Level4}
}

// ValidateQuestion lists everything wrong with in. The index is used to name the entry
// inside a batch.
func ValidateQuestion(index int, in QuestionInput) []domain.Violation {
	var out []domain.Violation
	add := func(format string, args ...any) {
		out = append(out, domain.Violation{
			Slot:        domain.NoSlot,
			StoredLevel: domain.NoSlot,
			Reason:      fmt.Sprintf("question %d: ", index) + fmt.Sprintf(format, args...),
		})
	}
	if strings.TrimSpace(in.Prompt) == "" {
		add("prompt is required")
	}
	if len(in.Options) != domain.OptionCount {
		add("exactly %d options are required, got %d", domain.OptionCount, len(in.Options))
	}
	for i, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			add("option %d is empty", i)
		}
	}
	if !domain.ValidLevel(in.Level) {
		add("level must be between 0 and %d, got %d", domain.LevelCount-1, in.Level)
	}
	if in.CorrectAnswer < 0 || in.CorrectAnswer >= domain.OptionCount {
		add("correct answer must be between 0 and %d, got %d", domain.OptionCount-1, in.CorrectAnswer)
	}
	return out
}

// Validator cross-checks catalog writes against what is already stored.
type Validator struct {
	catalog CatalogStore
}

func NewValidator(catalog CatalogStore) *Validator {
	return &Validator{catalog: catalog}
}

// ValidateTopic checks that the title is set, the category exists, and every pooled id
// resolves to a question whose stored level matches its slot. All problems are reported at once.
func (v *Validator) ValidateTopic(ctx context.Context, in TopicInput) error {
	var violations []domain.Violation
	if strings.TrimSpace(in.Title) == "" {
		violations = append(violations, domain.Violation{Slot: domain.NoSlot, StoredLevel: domain.NoSlot, Reason: "title is required"})
	}
	if in.CategoryID != "" {
		_, err := v.catalog.FindCategory(ctx, in.CategoryID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			violations = append(violations, domain.Violation{
				ID:          in.CategoryID,
				Slot:        domain.NoSlot,
				StoredLevel: domain.NoSlot,
				Reason:      fmt.Sprintf("category %s does not exist", in.CategoryID),
			})
		case err != nil:
			return err
		}
	}

	slots := in.Levels()
	var ids []string
	for _, pool := range slots {
		ids = append(ids, pool...)
	}
	stored := map[string]domain.Question{}
	if len(ids) > 0 {
		questions, err := v.catalog.FindQuestions(ctx, ids)
		if err != nil {
			return err
		}
		for _, q := range questions {
			stored[q.ID] = q
		}
	}
	for slot, pool := range slots {
		for _, id := range pool {
			q, ok := stored[id]
			if !ok {
				violations = append(violations, domain.Violation{
					ID:          id,
					Slot:        slot,
					StoredLevel: domain.NoSlot,
					Reason:      fmt.Sprintf("question %s in level%d does not exist", id, slot),
				})
				continue
			}
			if q.Level != slot {
				violations = append(violations, domain.Violation{
					ID:          id,
					Slot:        slot,
					StoredLevel: q.Level,
					Reason:      fmt.Sprintf("question %s has level %d but is filed under level%d", id, q.Level, slot),
				})
			}
		}
	}
	if len(violations) > 0 {
		return &domain.ValidationError{Violations: violations}
	}
	return nil
}

// ValidateCategory checks name against the closed set of categories, rejects a slug that is
// already taken and reports every missing topic. It returns the category to store.
func (v *Validator) ValidateCategory(ctx context.Context, name string, topicIDs []string) (domain.Category, error) {
	number := domain.CategoryNumber(name)
	if number == 0 {
		return domain.Category{}, fmt.Errorf("%w: category name %q must be one of %s",
			domain.ErrInvalidArgument, name, strings.Join(domain.CategoryNames, ", "))
	}
	slug := domain.Slugify(name)
	_, err := v.catalog.FindCategoryBySlug(ctx, slug)
	switch {
	case err == nil:
		return domain.Category{}, fmt.Errorf("%w: category %q already exists", domain.ErrConflict, slug)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Category{}, err
	}

	if len(topicIDs) > 0 {
		topics, err := v.catalog.FindTopics(ctx, topicIDs)
		if err != nil {
			return domain.Category{}, err
		}
		found := make(map[string]bool, len(topics))
		for _, t := range topics {
			found[t.ID] = true
		}
		var violations []domain.Violation
		for _, id := range topicIDs {
			if !found[id] {
				violations = append(violations, domain.Violation{
					ID:          id,
					Slot:        domain.NoSlot,
					StoredLevel: domain.NoSlot,
					Reason:      fmt.Sprintf("topic %s does not exist", id),
				})
			}
		}
		if len(violations) > 0 {
			return domain.Category{}, &domain.ValidationError{Violations: violations}
		}
	}

	return domain.Category{
		Name:     name,
		Slug:     slug,
		Number:   number,
		TopicIDs: append([]string{}, topicIDs...),
	}, nil
}
