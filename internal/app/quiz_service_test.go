package app_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"leveled-quiz-service/internal/app"
	"leveled-quiz-service/internal/domain"
	"leveled-quiz-service/internal/infra/memory"
	"leveled-quiz-service/internal/sampler"
)

func TestGetQuizComposesDistinctQuestionsAtLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.topic(t, "Physics", map[int]int{1: 12})
	b := f.topic(t, "Chemistry", map[int]int{1: 12})
	f.category(t, "Science", a, b)

	quiz, err := f.service.GetQuiz(ctx, 2, 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Category != "Science" || quiz.Level != 1 || quiz.CategoryNumber != 2 {
		t.Fatalf("unexpected quiz header: %+v", quiz)
	}
	if len(quiz.Questions) != app.DefaultQuizSize || quiz.Exhausted {
		t.Fatalf("expected %d questions, got %d (exhausted=%v)", app.DefaultQuizSize, len(quiz.Questions), quiz.Exhausted)
	}
	seen := map[string]bool{}
	for _, q := range quiz.Questions {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
		if q.Level != 1 {
			t.Fatalf("question %s has level %d", q.ID, q.Level)
		}
	}
}

func TestGetQuizShortWhenCatalogIsSmall(t *testing.T) {
	f := newFixture(t)
	a := f.topic(t, "Kings", map[int]int{0: 3})
	f.category(t, "History", a)

	quiz, err := f.service.GetQuiz(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 3 || !quiz.Exhausted {
		t.Fatalf("expected short quiz of 3, got %d (exhausted=%v)", len(quiz.Questions), quiz.Exhausted)
	}
}

func TestGetQuizErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.GetQuiz(ctx, 9, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid category number, got %v", err)
	}
	if _, err := f.service.GetQuiz(ctx, 1, 5); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid level, got %v", err)
	}
	if _, err := f.service.GetQuiz(ctx, 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing category, got %v", err)
	}
}

func TestGetRandomQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.topic(t, "Capitals", map[int]int{4: 30})

	set, err := f.service.GetRandomQuestions(ctx, 4, app.DefaultRandomCount)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(set.Questions) != app.DefaultRandomCount || set.Exhausted {
		t.Fatalf("expected %d questions, got %d", app.DefaultRandomCount, len(set.Questions))
	}

	set, err = f.service.GetRandomQuestions(ctx, 4, 50)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(set.Questions) != 30 || !set.Exhausted {
		t.Fatalf("expected whole pool of 30 flagged short, got %d", len(set.Questions))
	}

	if _, err := f.service.GetRandomQuestions(ctx, 0, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for empty level, got %v", err)
	}
	if _, err := f.service.GetRandomQuestions(ctx, 4, -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid count, got %v", err)
	}
}

func TestCompleteQuizRunningMean(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.user(t, "ada")

	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 3, StarsEarned: 5}); err != nil {
		t.Fatalf("complete 1: %v", err)
	}
	got, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 5, StarsEarned: 2})
	if err != nil {
		t.Fatalf("complete 2: %v", err)
	}
	if got.Stats.QuizzesPlayed != 2 || got.Stats.SuccessRate != 4 || got.Stats.Stars != 7 {
		t.Fatalf("expected played=2 rate=4 stars=7, got %+v", got.Stats)
	}
	if got.Stats.RapidFireCheckpoint != nil {
		t.Fatalf("leveled completion must not stamp the checkpoint")
	}

	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: -1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for negative result, got %v", err)
	}
	if _, err := f.service.CompleteQuiz(ctx, "nobody", domain.Completion{QuizResult: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompleteQuizConcurrentCompletionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.user(t, "grace")

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 1, StarsEarned: 1}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("complete: %v", err)
	}

	stored, err := f.users.FindUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.Stats.QuizzesPlayed != 50 || stored.Stats.Stars != 50 || stored.Stats.SuccessRate != 1 {
		t.Fatalf("expected 50 plays and 50 stars, got %+v", stored.Stats)
	}

	board, err := f.service.RankedUsers(ctx, 0)
	if err != nil {
		t.Fatalf("ranked: %v", err)
	}
	if len(board) != 1 || board[0].QuizzesPlayed != 50 || board[0].Stars != 50 {
		t.Fatalf("expected ranking to hold the final stats, got %+v", board)
	}
}

func TestRapidFireOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.topic(t, "Everything", map[int]int{0: 20, 1: 35, 2: 50, 3: 65, 4: 80})
	user := f.user(t, "linus")
	total := 0
	for _, n := range app.RapidFireTranches {
		total += n
	}
	if total != 225 {
		t.Fatalf("expected tranches to add up to 225, got %d", total)
	}

	set, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil {
		t.Fatalf("rapid fire: %v", err)
	}
	if len(set.Questions) != total || set.Exhausted {
		t.Fatalf("expected %d questions, got %d", total, len(set.Questions))
	}
	perLevel := map[int]int{}
	for _, q := range set.Questions {
		perLevel[q.Level]++
	}
	for level, want := range app.RapidFireTranches {
		if perLevel[level] != want {
			t.Fatalf("expected %d questions at level %d, got %d", want, level, perLevel[level])
		}
	}

	// in flight: issued but not completed yet
	again, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil {
		t.Fatalf("rapid fire again: %v", err)
	}
	if len(again.Questions) != 0 {
		t.Fatalf("expected empty set while a run is in flight, got %d", len(again.Questions))
	}

	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 200, StarsEarned: 3, RapidFire: true}); err != nil {
		t.Fatalf("complete rapid fire: %v", err)
	}
	stored, _ := f.users.FindUser(ctx, user.ID)
	if stored.Stats.RapidFireCheckpoint == nil || !stored.Stats.RapidFireCheckpoint.Equal(f.now) {
		t.Fatalf("expected checkpoint stamped at completion, got %v", stored.Stats.RapidFireCheckpoint)
	}

	done, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil || len(done.Questions) != 0 {
		t.Fatalf("expected empty set after today's run, got %d (%v)", len(done.Questions), err)
	}

	f.now = f.now.Add(24 * time.Hour)
	next, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil {
		t.Fatalf("rapid fire next day: %v", err)
	}
	if len(next.Questions) != total {
		t.Fatalf("expected a fresh set the next day, got %d", len(next.Questions))
	}
}

func TestRapidFireCompletionReleasesOnlyItsOwnRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.topic(t, "Everything", map[int]int{0: 20})
	user := f.user(t, "barbara")
	key := "rapidfire:" + user.ID + ":2024-03-10"

	set, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil {
		t.Fatalf("rapid fire: %v", err)
	}
	if set.RunID == "" || !f.claims.Held(key) {
		t.Fatalf("expected a run id and a held claim, got %q", set.RunID)
	}

	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 1, RapidFire: true, RunID: "some-older-run"}); err != nil {
		t.Fatalf("complete with stale run: %v", err)
	}
	if !f.claims.Held(key) {
		t.Fatalf("expected a completion of another run to leave the claim alone")
	}

	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 1, RapidFire: true, RunID: set.RunID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.claims.Held(key) {
		t.Fatalf("expected the claim released by its own run")
	}
}

func TestRapidFireIneligibleDoesNotSample(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.topic(t, "Everything", map[int]int{0: 20})
	user := f.user(t, "ken")
	if _, err := f.service.CompleteQuiz(ctx, user.ID, domain.Completion{QuizResult: 1, RapidFire: true}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	before := f.pools.count()
	set, err := f.service.GetRapidFireSet(ctx, user.ID)
	if err != nil {
		t.Fatalf("rapid fire: %v", err)
	}
	if len(set.Questions) != 0 {
		t.Fatalf("expected empty set, got %d", len(set.Questions))
	}
	if f.pools.count() != before {
		t.Fatalf("expected no pool reads when ineligible")
	}
}

func TestRapidFireConcurrentRequestsIssueOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.topic(t, "Everything", map[int]int{0: 20, 1: 30})
	user := f.user(t, "barbara")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := f.service.GetRapidFireSet(ctx, user.ID)
			if err != nil {
				t.Errorf("rapid fire: %v", err)
				return
			}
			if len(set.Questions) > 0 {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if issued != 1 {
		t.Fatalf("expected exactly one issued set, got %d", issued)
	}
}

func TestCreateTopicRejectsLevelMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	host := f.topic(t, "Host", map[int]int{2: 1, 3: 1})
	topic, _ := f.service.GetTopic(ctx, host)
	atTwo, atThree := topic.Pool(2)[0], topic.Pool(3)[0]

	_, err := f.service.CreateTopic(ctx, app.TopicInput{Title: "Bad", Level2: []string{atTwo, atThree, "ghost"}})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	violations := domain.Violations(err)
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", violations)
	}
	if v := violations[0]; v.ID != atThree || v.Slot != 2 || v.StoredLevel != 3 {
		t.Fatalf("unexpected mismatch violation: %+v", v)
	}
	if v := violations[1]; v.ID != "ghost" || v.StoredLevel != domain.NoSlot {
		t.Fatalf("unexpected missing violation: %+v", v)
	}

	created, err := f.service.CreateTopic(ctx, app.TopicInput{Title: "Good", Level2: []string{atTwo}, Level3: []string{atThree}})
	if err != nil {
		t.Fatalf("create valid topic: %v", err)
	}
	if len(created.Pool(2)) != 1 || len(created.Pool(3)) != 1 || created.Pool(0) == nil {
		t.Fatalf("unexpected pools: %+v", created.Levels)
	}
}

func TestUpdateTopicValidatesAndReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.topic(t, "Rivers", map[int]int{0: 2})

	if _, err := f.service.UpdateTopic(ctx, "missing", app.TopicInput{Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.service.UpdateTopic(ctx, id, app.TopicInput{}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected missing title to fail validation, got %v", err)
	}
	updated, err := f.service.UpdateTopic(ctx, id, app.TopicInput{Title: "Lakes"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Lakes" || len(updated.Pool(0)) != 0 {
		t.Fatalf("expected replaced topic, got %+v", updated)
	}
}

func TestCreateCategoryRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	topic := f.topic(t, "Football", nil)

	if _, err := f.service.CreateCategory(ctx, "Cooking", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid name, got %v", err)
	}

	created, err := f.service.CreateCategory(ctx, "General Knowledge", []string{topic})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Slug != "general-knowledge" || created.Number != 1 {
		t.Fatalf("unexpected category: %+v", created)
	}
	if _, err := f.service.CreateCategory(ctx, "General Knowledge", nil); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate slug conflict, got %v", err)
	}

	_, err = f.service.CreateCategory(ctx, "Sports", []string{topic, "t-missing"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected missing topic violation, got %v", err)
	}
	if v := domain.Violations(err); len(v) != 1 || v[0].ID != "t-missing" {
		t.Fatalf("unexpected violations: %+v", v)
	}
}

func TestCreateQuestionsSkipsDuplicatesAndFilesByLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	topicID := f.topic(t, "Films", nil)

	res, err := f.service.CreateQuestions(ctx, topicID, []app.QuestionInput{
		question("Who directed Alien?", 2),
		question("Who directed Alien?", 2),
		question("Who scored Jaws?", 0),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Created) != 2 || len(res.Skipped) != 1 {
		t.Fatalf("expected 2 created and 1 skipped, got %+v", res)
	}

	again, err := f.service.CreateQuestions(ctx, topicID, []app.QuestionInput{question("Who scored Jaws?", 0)})
	if err != nil || len(again.Created) != 0 {
		t.Fatalf("expected stored prompt to be skipped, got %+v (%v)", again, err)
	}

	topic, _ := f.service.GetTopic(ctx, topicID)
	if len(topic.Pool(2)) != 1 || len(topic.Pool(0)) != 1 {
		t.Fatalf("expected questions filed by level, got %+v", topic.Levels)
	}
}

func TestCreateQuestionsAggregatesPayloadErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bad := app.QuestionInput{Prompt: "", Options: []string{"a", "b"}, Level: 7, CorrectAnswer: 4}
	_, err := f.service.CreateQuestions(ctx, "", []app.QuestionInput{question("fine", 1), bad})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if v := domain.Violations(err); len(v) != 4 {
		t.Fatalf("expected 4 violations for the bad payload, got %+v", v)
	}

	if _, err := f.service.CreateQuestions(ctx, "nope", []app.QuestionInput{question("fine", 1)}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown topic, got %v", err)
	}
}

func TestRankedUsersAndFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	low := f.user(t, "low")
	high := f.user(t, "high")

	ch, cancel, err := f.service.SubscribeRanking(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch // initial snapshot

	if _, err := f.service.CompleteQuiz(ctx, high.ID, domain.Completion{QuizResult: 1, StarsEarned: 10}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.service.CompleteQuiz(ctx, low.ID, domain.Completion{QuizResult: 1, StarsEarned: 1}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	board, err := f.service.RankedUsers(ctx, 0)
	if err != nil {
		t.Fatalf("ranked: %v", err)
	}
	if len(board) != 2 || board[0].UserID != high.ID {
		t.Fatalf("expected high first, got %+v", board)
	}
	if want := 1*0.4 + 10*0.6; math.Abs(board[0].Score-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, board[0].Score)
	}

	var update []domain.RankedUser
	for len(update) < 2 {
		select {
		case update = <-ch:
		case <-time.After(time.Second):
			t.Fatalf("expected ranking update")
		}
	}
	if update[0].UserID != high.ID {
		t.Fatalf("expected pushed board led by high, got %+v", update)
	}
}

func TestRankedUsersSurviveRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ada := f.user(t, "ada")
	f.user(t, "grace")
	if _, err := f.service.CompleteQuiz(ctx, ada.ID, domain.Completion{QuizResult: 8, StarsEarned: 3}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// same user store, no ranker: the board comes from the stored users
	unranked := app.NewQuizService(app.Deps{Catalog: f.catalog, Users: f.users, Levels: f.pools}, app.Settings{})
	board, err := unranked.RankedUsers(ctx, 0)
	if err != nil {
		t.Fatalf("ranked: %v", err)
	}
	if len(board) != 2 || board[0].UserID != ada.ID {
		t.Fatalf("expected stored users ranked, got %+v", board)
	}

	// same user store, empty ranker: warming fills it once
	restarted := app.NewQuizService(app.Deps{Catalog: f.catalog, Users: f.users, Levels: f.pools, Ranker: memory.NewRanker()}, app.Settings{})
	n, err := restarted.WarmRanking(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 users warmed, got %d %v", n, err)
	}
	board, err = restarted.RankedUsers(ctx, 0)
	if err != nil {
		t.Fatalf("ranked: %v", err)
	}
	if len(board) != 2 || board[0].UserID != ada.ID || board[0].Stars != 3 {
		t.Fatalf("expected warmed board led by ada, got %+v", board)
	}
	if n, err := restarted.WarmRanking(ctx); err != nil || n != 0 {
		t.Fatalf("expected a filled ranker to be left alone, got %d %v", n, err)
	}
}

func TestRankFeedSubscribeStartsWithLatestBoard(t *testing.T) {
	feed := app.NewRankFeed()
	feed.Publish([]domain.RankedUser{{UserID: "u1"}})
	feed.Publish([]domain.RankedUser{{UserID: "u2"}})

	ch, cancel := feed.Subscribe([]domain.RankedUser{{UserID: "stale"}})
	defer cancel()
	first := <-ch
	if len(first) != 1 || first[0].UserID != "u2" {
		t.Fatalf("expected latest board first, got %+v", first)
	}

	// a subscriber racing publishers always sees its initial board before any later one
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			feed.Publish([]domain.RankedUser{{UserID: fmt.Sprintf("p%d", i)}})
		}
	}()
	late, cancelLate := feed.Subscribe(nil)
	defer cancelLate()
	<-done

	var last string
	for {
		select {
		case board := <-late:
			last = board[0].UserID
			continue
		default:
		}
		break
	}
	if last != "p99" {
		t.Fatalf("expected the last board received to be the newest, got %q", last)
	}
}

type fixture struct {
	service *app.QuizService
	catalog *memory.CatalogStore
	users   *memory.UserStore
	claims  *memory.ClaimStore
	pools   *countingPools
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: memory.NewCatalogStore(),
		users:   memory.NewUserStore(),
		claims:  memory.NewClaimStore(),
		now:     time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	f.pools = &countingPools{catalog: f.catalog}
	f.service = app.NewQuizService(app.Deps{
		Catalog:  f.catalog,
		Users:    f.users,
		Levels:   f.pools,
		Claims:   f.claims,
		Ranker:   memory.NewRanker(),
		Calendar: app.NewCalendar(func() time.Time { return f.now }, time.UTC),
		Rand:     sampler.Global,
	}, app.Settings{})
	return f
}

// topic creates a topic with n questions at each level in counts and returns its id.
func (f *fixture) topic(t *testing.T, title string, counts map[int]int) string {
	t.Helper()
	ctx := context.Background()
	topic, err := f.service.CreateTopic(ctx, app.TopicInput{Title: title})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	var inputs []app.QuestionInput
	for level, n := range counts {
		for i := 0; i < n; i++ {
			inputs = append(inputs, question(fmt.Sprintf("%s L%d #%d", title, level, i), level))
		}
	}
	if len(inputs) > 0 {
		if _, err := f.service.CreateQuestions(ctx, topic.ID, inputs); err != nil {
			t.Fatalf("create questions: %v", err)
		}
	}
	return topic.ID
}

func (f *fixture) category(t *testing.T, name string, topicIDs ...string) domain.Category {
	t.Helper()
	c, err := f.service.CreateCategory(context.Background(), name, topicIDs)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func (f *fixture) user(t *testing.T, name string) domain.User {
	t.Helper()
	u, err := f.service.RegisterUser(context.Background(), name)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return u
}

func question(prompt string, level int) app.QuestionInput {
	return app.QuestionInput{
		Prompt:        prompt,
		Options:       []string{"a", "b", "c", "d"},
		Level:         level,
		CorrectAnswer: 1,
	}
}

// countingPools reads level pools straight from the catalog and counts the reads.
type countingPools struct {
	catalog *memory.CatalogStore
	mu      sync.Mutex
	reads   int
}

func (p *countingPools) LevelPool(ctx context.Context, level int) ([]string, error) {
	p.mu.Lock()
	p.reads++
	p.mu.Unlock()
	return p.catalog.QuestionIDsByLevel(ctx, level)
}

func (p *countingPools) Invalidate(context.Context, int) error { return nil }

func (p *countingPools) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}
