package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leveled-quiz-service/internal/app"
	"leveled-quiz-service/internal/config"
	"leveled-quiz-service/internal/infra/amqp"
	"leveled-quiz-service/internal/infra/memory"
	mongostore "leveled-quiz-service/internal/infra/mongo"
	pgstore "leveled-quiz-service/internal/infra/postgres"
	redisstore "leveled-quiz-service/internal/infra/redis"
)

const defaultMongoDatabase = "quizdb"

// backend owns the connections behind a QuizService.
type backend struct {
	service *app.QuizService
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend picks the document store (Postgres, then Mongo, else memory), the Redis
// adapters when an address is configured, and the RabbitMQ publisher when a URL is set.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	deps := app.Deps{}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		deps.Catalog = pgstore.NewCatalogStore(pool)
		deps.Users = pgstore.NewUserStore(pool)
		log.Printf("using postgres document store")
	case cfg.Mongo.URI != "":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		name := cfg.Mongo.Database
		if name == "" {
			name = defaultMongoDatabase
		}
		catalog := mongostore.NewCatalogStore(client.Database(name))
		if err := catalog.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		deps.Catalog = catalog
		deps.Users = mongostore.NewUserStore(client.Database(name))
		log.Printf("using mongo document store %s", name)
	default:
		deps.Catalog = memory.NewCatalogStore()
		deps.Users = memory.NewUserStore()
		log.Printf("no database configured, using in-memory store")
	}

	persistent := cfg.Postgres.URL != "" || cfg.Mongo.URI != ""
	poolTTL := cfg.PoolTTL()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Levels = redisstore.NewPoolCache(client, deps.Catalog, poolTTL)
		deps.Claims = redisstore.NewClaimStore(client)
		deps.Ranker = redisstore.NewRanker(client)
		log.Printf("using redis at %s", cfg.Redis.Addr)
	} else {
		deps.Levels = memory.NewPoolCache(deps.Catalog, poolTTL)
		deps.Claims = memory.NewClaimStore()
		deps.Ranker = localRanker(persistent)
	}

	if cfg.AMQP.URL != "" {
		publisher, err := amqp.NewEventPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, publisher.Close)
		deps.Events = publisher
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("rapid fire timezone: %w", err)
	}
	deps.Calendar = app.NewCalendar(time.Now, loc)

	b.service = app.NewQuizService(deps, app.Settings{
		QuizSize:      cfg.Quiz.Size,
		PerTopicQuota: cfg.Quiz.PerTopicQuota,
		MaxPasses:     cfg.Quiz.MaxPasses,
		MaxRandom:     cfg.Quiz.MaxRandom,
		RankLimit:     cfg.Quiz.RankLimit,
		StatsRetries:  cfg.Stats.MaxRetries,
		ClaimTTL:      config.TTLDuration(cfg.RapidFire.ClaimTTL, app.DefaultClaimTTL),
	})
	ranked, err := b.service.WarmRanking(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm ranking: %w", err)
	}
	if ranked > 0 {
		log.Printf("ranked %d stored users", ranked)
	}
	ok = true
	return b, nil
}

// localRanker returns the in-process ranker for in-memory users. Users kept in a database are
// ranked straight from the user store instead, since a per-process board would miss users
// written by other processes.
func localRanker(persistent bool) app.Ranker {
	if persistent {
		return nil
	}
	return memory.NewRanker()
}
