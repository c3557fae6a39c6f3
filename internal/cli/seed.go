package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"leveled-quiz-service/internal/config"
	"leveled-quiz-service/internal/seed"
)

// NewSeedCmd loads a YAML catalog through the validated create operations.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed users, topics, questions and categories from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file (defaults to seed.file from the config)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Seed.File
	}
	if file == "" {
		return fmt.Errorf("no seed file given")
	}
	if cfg.Postgres.URL == "" && cfg.Mongo.URI == "" {
		log.Println("Warning: no database configured, seeded data lives only for this process")
	}

	f, err := seed.Load(file)
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := seed.Apply(ctx, b.service, f)
	if err != nil {
		return err
	}
	log.Printf("seed applied: %d users, %d topics, %d questions (%d skipped), %d categories",
		report.Users, report.Topics, report.Questions, report.Skipped, report.Categories)
	return nil
}
