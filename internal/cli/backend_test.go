package cli

import (
	"context"
	"testing"

	"leveled-quiz-service/internal/config"
)

func TestLocalRankerOnlyForInMemoryUsers(t *testing.T) {
	if localRanker(true) != nil {
		t.Fatalf("expected no local ranker in front of a database")
	}
	if localRanker(false) == nil {
		t.Fatalf("expected a local ranker for in-memory users")
	}
}

func TestOpenBackendDefaultsToMemory(t *testing.T) {
	ctx := context.Background()
	b, err := openBackend(ctx, config.Config{})
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer b.Close()

	for _, name := range []string{"ada", "grace"} {
		if _, err := b.service.RegisterUser(ctx, name); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	board, err := b.service.RankedUsers(ctx, 0)
	if err != nil {
		t.Fatalf("ranked: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected both users ranked, got %+v", board)
	}
}
