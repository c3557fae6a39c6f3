package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"leveled-quiz-service/internal/domain"
)

func TestClaimStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewClaimStore(newClient(mr))
	ctx := context.Background()

	ok, err := store.Claim(ctx, "rapidfire:u1:2024-05-01", "run-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected claim, got %v %v", ok, err)
	}
	if !mr.Exists("quiz:claim:rapidfire:u1:2024-05-01") {
		t.Fatalf("expected redis key to be set")
	}
	if ok, _ := store.Claim(ctx, "rapidfire:u1:2024-05-01", "run-2", time.Minute); ok {
		t.Fatalf("expected second claim to be refused")
	}

	mr.FastForward(2 * time.Minute)
	if ok, _ := store.Claim(ctx, "rapidfire:u1:2024-05-01", "run-2", time.Minute); !ok {
		t.Fatalf("expected claim after expiry")
	}

	// the expired holder must not drop the new claim
	if err := store.Release(ctx, "rapidfire:u1:2024-05-01", "run-1"); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if got, _ := mr.Get("quiz:claim:rapidfire:u1:2024-05-01"); got != "run-2" {
		t.Fatalf("expected claim of run-2 to survive, got %q", got)
	}

	if err := store.Release(ctx, "rapidfire:u1:2024-05-01", "run-2"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("quiz:claim:rapidfire:u1:2024-05-01") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestRankerOrdersByScore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ranker := NewRanker(newClient(mr))
	ctx := context.Background()
	users := []domain.User{
		{ID: "u1", Username: "ada", Stats: domain.UserStats{QuizzesPlayed: 10, Stars: 1}},
		{ID: "u2", Username: "grace", Stats: domain.UserStats{QuizzesPlayed: 1, Stars: 20}},
		{ID: "u3", Username: "linus", Stats: domain.UserStats{QuizzesPlayed: 2, Stars: 2}},
	}
	for _, u := range users {
		if err := ranker.Update(ctx, u); err != nil {
			t.Fatalf("update %s: %v", u.ID, err)
		}
	}

	board, err := ranker.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "u2" || board[1].UserID != "u1" {
		t.Fatalf("unexpected board: %+v", board)
	}
	if board[0].Username != "grace" || board[0].Stars != 20 {
		t.Fatalf("expected profile fields from hash, got %+v", board[0])
	}

	// a later update replaces the member's score
	users[2].Stats.Stars = 100
	_ = ranker.Update(ctx, users[2])
	board, _ = ranker.Top(ctx, 1)
	if board[0].UserID != "u3" {
		t.Fatalf("expected u3 on top after update, got %+v", board)
	}
}

func TestRankerIgnoresOlderVersions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ranker := NewRanker(newClient(mr))
	ctx := context.Background()
	if n, err := ranker.Count(ctx); err != nil || n != 0 {
		t.Fatalf("expected empty ranking, got %d %v", n, err)
	}

	newer := domain.User{ID: "u1", Username: "ada", Version: 5, Stats: domain.UserStats{QuizzesPlayed: 5, Stars: 10}}
	older := domain.User{ID: "u1", Username: "ada", Version: 4, Stats: domain.UserStats{QuizzesPlayed: 4, Stars: 8}}
	if err := ranker.Update(ctx, newer); err != nil {
		t.Fatalf("update newer: %v", err)
	}
	if err := ranker.Update(ctx, older); err != nil {
		t.Fatalf("update older: %v", err)
	}

	board, err := ranker.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board) != 1 || board[0].QuizzesPlayed != 5 || board[0].Stars != 10 {
		t.Fatalf("expected version 5 to stay ranked, got %+v", board)
	}
	if got := mr.HGet(versionsKey, "u1"); got != "5" {
		t.Fatalf("expected stored version 5, got %q", got)
	}
	if n, _ := ranker.Count(ctx); n != 1 {
		t.Fatalf("expected 1 ranked user, got %d", n)
	}
}
