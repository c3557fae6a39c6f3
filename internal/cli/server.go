package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leveled-quiz-service/internal/auth"
	"leveled-quiz-service/internal/config"
	"leveled-quiz-service/internal/seed"
	transport "leveled-quiz-service/internal/transport/http"
)

const devSecret = "dev-secret-change-me"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	// databases are seeded once with the seed command
	if cfg.Seed.File != "" && cfg.Postgres.URL == "" && cfg.Mongo.URI == "" {
		f, err := seed.Load(cfg.Seed.File)
		if err != nil {
			return err
		}
		report, err := seed.Apply(ctx, b.service, f)
		if err != nil {
			return err
		}
		log.Printf("seeded %s: %+v", cfg.Seed.File, report)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(b.service, newIssuer(cfg)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newIssuer(cfg config.Config) *auth.Issuer {
	secret := cfg.Auth.Secret
	if secret == "" {
		log.Println("Warning: JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	return auth.NewIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
}
