package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"leveled-quiz-service/internal/domain"
	"leveled-quiz-service/internal/metrics"
	"leveled-quiz-service/internal/sampler"
)

const (
	DefaultQuizSize    = 20
	DefaultRandomCount = 20
	DefaultMaxRandom   = 100
	DefaultRankLimit   = 45

	// EventQuizCompleted is published after a completion has been applied.
	EventQuizCompleted = "quiz.completed"
)

// Settings tunes the service. Zero values fall back to the defaults above.
type Settings struct {
	QuizSize      int
	PerTopicQuota int
	MaxPasses     int
	MaxRandom     int
	RankLimit     int
	StatsRetries  int
	ClaimTTL      time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.QuizSize <= 0 {
		s.QuizSize = DefaultQuizSize
	}
	if s.MaxRandom <= 0 {
		s.MaxRandom = DefaultMaxRandom
	}
	if s.RankLimit <= 0 {
		s.RankLimit = DefaultRankLimit
	}
	return s
}

// Deps are the collaborators of QuizService. Catalog and Users are required; everything else
// is optional.
type Deps struct {
	Catalog  CatalogStore
	Users    UserStore
	Levels   LevelPoolSource
	Claims   Claimer
	Ranker   Ranker
	Events   EventPublisher
	Feed     *RankFeed
	Calendar Calendar
	Rand     sampler.Rand
}

// QuizService contains the quiz use cases exposed to transports.
type QuizService struct {
	catalog   CatalogStore
	users     UserStore
	index     *CatalogIndex
	gate      *SessionGate
	stats     *StatsAggregator
	validator *Validator
	ranker    Ranker
	events    EventPublisher
	feed      *RankFeed
	calendar  Calendar
	rnd       sampler.Rand
	settings  Settings
}

func NewQuizService(deps Deps, settings Settings) *QuizService {
	settings = settings.withDefaults()
	if deps.Calendar.now == nil {
		deps.Calendar = NewCalendar(nil, nil)
	}
	if deps.Rand == nil {
		deps.Rand = sampler.Global
	}
	if deps.Events == nil {
		deps.Events = NopPublisher
	}
	if deps.Feed == nil {
		deps.Feed = NewRankFeed()
	}
	index := NewCatalogIndex(deps.Catalog, deps.Levels)
	s := &QuizService{
		catalog:   deps.Catalog,
		users:     deps.Users,
		index:     index,
		gate:      NewSessionGate(deps.Users, index, deps.Claims, deps.Calendar, deps.Rand, settings.ClaimTTL),
		stats:     NewStatsAggregator(deps.Users, deps.Calendar.Now, settings.StatsRetries),
		validator: NewValidator(deps.Catalog),
		ranker:    deps.Ranker,
		events:    deps.Events,
		feed:      deps.Feed,
		calendar:  deps.Calendar,
		rnd:       deps.Rand,
		settings:  settings,
	}
	s.stats.OnApplied(s.updateRanker)
	return s
}

// Index exposes the catalog index backing the service.
func (s *QuizService) Index() *CatalogIndex {
	return s.index
}

// Quiz is a composed leveled quiz for one category.
type Quiz struct {
	Category       string            `json:"category"`
	CategoryNumber int               `json:"categoryId"`
	Level          int               `json:"level"`
	Questions      []domain.Question `json:"questions"`
	Exhausted      bool              `json:"exhausted"`
}

// QuestionSet is a flat list of questions. Exhausted is set when fewer than requested exist.
// RunID is set on rapid fire sets and is echoed back on completion.
type QuestionSet struct {
	RunID     string            `json:"runId,omitempty"`
	Questions []domain.Question `json:"questions"`
	Exhausted bool              `json:"exhausted"`
}

// CreateQuestionsResult lists created questions and the prompts skipped as duplicates.
type CreateQuestionsResult struct {
	Created []domain.Question `json:"created"`
	Skipped []string          `json:"skipped"`
}

// CompletionEvent is the payload published after a completion.
type CompletionEvent struct {
	UserID     string            `json:"userId"`
	Completion domain.Completion `json:"completion"`
	Stats      domain.UserStats  `json:"stats"`
	At         time.Time         `json:"at"`
}

// GetQuiz composes a quiz at level from every topic of the category numbered categoryNumber.
func (s *QuizService) GetQuiz(ctx context.Context, categoryNumber, level int) (Quiz, error) {
	if categoryNumber < 1 || categoryNumber > len(domain.CategoryNames) {
		return Quiz{}, fmt.Errorf("%w: categoryId must be between 1 and %d, got %d",
			domain.ErrInvalidArgument, len(domain.CategoryNames), categoryNumber)
	}
	if err := checkLevel(level); err != nil {
		return Quiz{}, err
	}
	category, err := s.catalog.FindCategoryByNumber(ctx, categoryNumber)
	if err != nil {
		return Quiz{}, err
	}
	pools, err := s.index.Pools(ctx, category.TopicIDs, level)
	if err != nil {
		return Quiz{}, err
	}
	ids, err := sampler.ComposeQuiz(s.rnd, pools, s.settings.QuizSize, sampler.ComposeOptions{
		PerTopicQuota: s.settings.PerTopicQuota,
		MaxPasses:     s.settings.MaxPasses,
	})
	if err != nil {
		return Quiz{}, err
	}
	questions, err := s.hydrate(ctx, ids)
	if err != nil {
		return Quiz{}, err
	}
	exhausted := len(questions) < s.settings.QuizSize
	record("category", exhausted)
	return Quiz{
		Category:       category.Name,
		CategoryNumber: category.Number,
		Level:          level,
		Questions:      questions,
		Exhausted:      exhausted,
	}, nil
}

// GetRandomQuestions samples count questions uniformly from every question at level. Counts
// above the configured maximum are capped. An empty level is reported as not found.
func (s *QuizService) GetRandomQuestions(ctx context.Context, level, count int) (QuestionSet, error) {
	if count < 0 {
		return QuestionSet{}, fmt.Errorf("%w: count must not be negative, got %d", domain.ErrInvalidArgument, count)
	}
	if count > s.settings.MaxRandom {
		count = s.settings.MaxRandom
	}
	pool, err := s.index.LevelPool(ctx, level)
	if err != nil {
		return QuestionSet{}, err
	}
	if len(pool) == 0 {
		return QuestionSet{}, fmt.Errorf("%w: no questions at level %d", domain.ErrNotFound, level)
	}
	ids, err := sampler.SelectRandom(s.rnd, pool, count)
	if err != nil {
		return QuestionSet{}, err
	}
	questions, err := s.hydrate(ctx, ids)
	if err != nil {
		return QuestionSet{}, err
	}
	exhausted := len(questions) < count
	record("random", exhausted)
	return QuestionSet{Questions: questions, Exhausted: exhausted}, nil
}

// GetRapidFireSet issues today's rapid fire questions for userID, or an empty set when the
// user already completed a run today or has one in flight.
func (s *QuizService) GetRapidFireSet(ctx context.Context, userID string) (QuestionSet, error) {
	set, err := s.gate.Issue(ctx, userID)
	if err != nil {
		return QuestionSet{}, err
	}
	if !set.Eligible {
		return QuestionSet{Questions: []domain.Question{}}, nil
	}
	questions, err := s.hydrate(ctx, set.QuestionIDs)
	if err != nil {
		return QuestionSet{}, err
	}
	record("rapid_fire", set.Exhausted)
	return QuestionSet{RunID: set.RunID, Questions: questions, Exhausted: set.Exhausted}, nil
}

// CompleteQuiz applies a completion to the user's stats. Ranking, feed and event delivery
// happen afterwards and only log on failure.
func (s *QuizService) CompleteQuiz(ctx context.Context, userID string, c domain.Completion) (domain.User, error) {
	user, err := s.stats.Apply(ctx, userID, c)
	if err != nil {
		return domain.User{}, err
	}
	mode := "leveled"
	if c.RapidFire {
		mode = "rapid_fire"
		if err := s.gate.Finish(ctx, userID, c.RunID, s.calendar.Now()); err != nil {
			log.Printf("release rapid fire claim for %s: %v", userID, err)
		}
	}
	metrics.Completions.WithLabelValues(mode).Inc()

	s.refreshRanking(ctx)
	event := CompletionEvent{UserID: userID, Completion: c, Stats: user.Stats, At: s.calendar.Now()}
	if err := s.events.Publish(ctx, EventQuizCompleted, event); err != nil {
		log.Printf("publish %s for %s: %v", EventQuizCompleted, userID, err)
	}
	return user, nil
}

// CreateQuestions validates every payload, then stores the ones whose prompt is new and files
// them under topicID (when set) at their level.
func (s *QuizService) CreateQuestions(ctx context.Context, topicID string, inputs []QuestionInput) (CreateQuestionsResult, error) {
	if len(inputs) == 0 {
		return CreateQuestionsResult{}, fmt.Errorf("%w: at least one question is required", domain.ErrInvalidArgument)
	}
	var violations []domain.Violation
	for i, in := range inputs {
		violations = append(violations, ValidateQuestion(i, in)...)
	}
	if len(violations) > 0 {
		return CreateQuestionsResult{}, &domain.ValidationError{Violations: violations}
	}
	if topicID != "" {
		if _, err := s.catalog.FindTopic(ctx, topicID); err != nil {
			return CreateQuestionsResult{}, err
		}
	}

	result := CreateQuestionsResult{Created: []domain.Question{}, Skipped: []string{}}
	seen := make(map[string]bool, len(inputs))
	touched := map[int]bool{}
	for _, in := range inputs {
		prompt := strings.TrimSpace(in.Prompt)
		if seen[prompt] {
			result.Skipped = append(result.Skipped, prompt)
			continue
		}
		seen[prompt] = true

		_, err := s.catalog.FindQuestionByPrompt(ctx, prompt)
		if err == nil {
			result.Skipped = append(result.Skipped, prompt)
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return result, err
		}

		q, err := s.catalog.CreateQuestion(ctx, domain.Question{
			ID:            uuid.NewString(),
			Prompt:        prompt,
			Options:       append([]string(nil), in.Options...),
			Level:         in.Level,
			CorrectAnswer: in.CorrectAnswer,
			TopicID:       topicID,
		})
		if err != nil {
			return result, err
		}
		if topicID != "" {
			if err := s.catalog.AppendToPool(ctx, topicID, q.Level, q.ID); err != nil {
				return result, err
			}
		}
		touched[q.Level] = true
		result.Created = append(result.Created, q)
	}
	for level := range touched {
		if err := s.index.Invalidate(ctx, level); err != nil {
			log.Printf("invalidate level pool %d: %v", level, err)
		}
	}
	return result, nil
}

// CreateTopic validates and stores a new topic.
func (s *QuizService) CreateTopic(ctx context.Context, in TopicInput) (domain.Topic, error) {
	if err := s.validator.ValidateTopic(ctx, in); err != nil {
		return domain.Topic{}, err
	}
	topic := domain.Topic{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(in.Title),
		CategoryID: in.CategoryID,
		Levels:     in.Levels(),
		CreatedAt:  s.calendar.Now().UTC(),
	}
	topic.Normalize()
	return s.catalog.SaveTopic(ctx, topic)
}

// UpdateTopic replaces the title, category and pools of an existing topic.
func (s *QuizService) UpdateTopic(ctx context.Context, id string, in TopicInput) (domain.Topic, error) {
	topic, err := s.catalog.FindTopic(ctx, id)
	if err != nil {
		return domain.Topic{}, err
	}
	if err := s.validator.ValidateTopic(ctx, in); err != nil {
		return domain.Topic{}, err
	}
	topic.Title = strings.TrimSpace(in.Title)
	topic.CategoryID = in.CategoryID
	topic.Levels = in.Levels()
	topic.Normalize()
	return s.catalog.SaveTopic(ctx, topic)
}

// CreateCategory stores a category named from the closed set, linked to existing topics.
func (s *QuizService) CreateCategory(ctx context.Context, name string, topicIDs []string) (domain.Category, error) {
	category, err := s.validator.ValidateCategory(ctx, strings.TrimSpace(name), topicIDs)
	if err != nil {
		return domain.Category{}, err
	}
	category.ID = uuid.NewString()
	return s.catalog.CreateCategory(ctx, category)
}

func (s *QuizService) GetTopic(ctx context.Context, id string) (domain.Topic, error) {
	return s.catalog.FindTopic(ctx, id)
}

func (s *QuizService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	return s.catalog.FindCategory(ctx, id)
}

func (s *QuizService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.catalog.ListCategories(ctx)
}

// RegisterUser creates a user with empty statistics.
func (s *QuizService) RegisterUser(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidArgument)
	}
	user, err := s.users.CreateUser(ctx, domain.User{ID: uuid.NewString(), Username: username})
	if err != nil {
		return domain.User{}, err
	}
	if s.ranker != nil {
		if err := s.ranker.Update(ctx, user); err != nil {
			log.Printf("rank new user %s: %v", user.ID, err)
		}
	}
	return user, nil
}

// RankedUsers returns the top users by score. limit <= 0 uses the configured board size.
func (s *QuizService) RankedUsers(ctx context.Context, limit int) ([]domain.RankedUser, error) {
	if limit <= 0 {
		limit = s.settings.RankLimit
	}
	if s.ranker != nil {
		return s.ranker.Top(ctx, limit)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return RankUsers(users, limit), nil
}

// WarmRanking fills an empty ranker with every stored user, so a ranker that starts empty (a
// fresh process, a flushed Redis) does not hide users written earlier. It returns how many users
// were ranked.
func (s *QuizService) WarmRanking(ctx context.Context) (int, error) {
	if s.ranker == nil {
		return 0, nil
	}
	n, err := s.ranker.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if err := s.ranker.Update(ctx, u); err != nil {
			return 0, fmt.Errorf("rank user %s: %w", u.ID, err)
		}
	}
	return len(users), nil
}

// SubscribeRanking streams ranking snapshots, starting with the current board.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) SubscribeRanking(ctx context.Context) (<-chan []domain.RankedUser, func(), error) {
	board, err := s.RankedUsers(ctx, 0)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(board)
	return ch, cancel, nil
}

// updateRanker runs under the stats lock of user, so ranker writes for one user keep the
// order of their stats writes.
func (s *QuizService) updateRanker(ctx context.Context, user domain.User) {
	if s.ranker == nil {
		return
	}
	if err := s.ranker.Update(ctx, user); err != nil {
		log.Printf("update ranking for %s: %v", user.ID, err)
	}
}

// refreshRanking pushes the current board to live subscribers.
func (s *QuizService) refreshRanking(ctx context.Context) {
	if s.feed.Subscribers() == 0 {
		return
	}
	board, err := s.RankedUsers(ctx, 0)
	if err != nil {
		log.Printf("load ranking: %v", err)
		return
	}
	s.feed.Publish(board)
}

// hydrate loads the questions behind ids, keeping the order of ids and dropping unknown ones.
func (s *QuizService) hydrate(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	found, err := s.catalog.FindQuestions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// RankUsers orders users by score, then username, and keeps the first limit entries.
func RankUsers(users []domain.User, limit int) []domain.RankedUser {
	board := make([]domain.RankedUser, 0, len(users))
	for _, u := range users {
		board = append(board, u.Ranked())
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		if board[i].Username != board[j].Username {
			return board[i].Username < board[j].Username
		}
		return board[i].UserID < board[j].UserID
	})
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board
}

func record(kind string, exhausted bool) {
	metrics.QuizzesComposed.WithLabelValues(kind).Inc()
	if exhausted {
		metrics.SampleShortfalls.WithLabelValues(kind).Inc()
	}
}
