package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"atb-backend/internal/repository"
	"atb-backend/internal/usecase"
)

var (
	makeMigrationsMessage string
	makeMigrationsEmpty   bool
)

var makeMigrationsCmd = &cobra.Command{
	Use:   "makemigrations",
	Short: "Create a new migration file",
	Long:  "Create a new migration file from schema changes, or an empty one with --empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		generator := usecase.NewMigrationGenerator(env.registry, env.db, repository.AllModels())
		path, err := generator.Generate(ctx, makeMigrationsMessage, makeMigrationsEmpty)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		if path == "" {
			fmt.Println("No changes detected.")
			return nil
		}

		fmt.Printf("Created %s\n", filepath.Base(path))
		fmt.Println("Run 'manage migrate' to apply it.")
		return nil
	},
}

func init() {
	makeMigrationsCmd.Flags().StringVarP(&makeMigrationsMessage, "message", "m", "", "Migration message")
	makeMigrationsCmd.Flags().BoolVar(&makeMigrationsEmpty, "empty", false, "Create an empty migration")
}
