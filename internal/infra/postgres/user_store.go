package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"leveled-quiz-service/internal/domain"
)

// UserStore keeps users as JSONB next to a version column used for conditional writes.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) FindUser(ctx context.Context, id string) (domain.User, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, `SELECT version, data FROM users WHERE id=$1`, id).Scan(&version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %s: %w", id, err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	u.Version = version
	return u, nil
}

func (s *UserStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.pool.Exec(ctx, `INSERT INTO users (id, version, data) VALUES ($1, 0, $2)`, u.ID, raw); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	u.Version = 0
	return u, nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT version, data FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []domain.User{}
	for rows.Next() {
		var (
			raw     []byte
			version int64
		)
		if err := rows.Scan(&version, &raw); err != nil {
			return nil, err
		}
		var u domain.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		u.Version = version
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *UserStore) CompareAndSwapStats(ctx context.Context, id string, expected int64, stats domain.UserStats) (bool, error) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET data = jsonb_set(data, '{stats}', $3::jsonb), version = version + 1
		WHERE id = $1 AND version = $2`,
		id, expected, raw)
	if err != nil {
		return false, fmt.Errorf("update stats of %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return false, nil
}
