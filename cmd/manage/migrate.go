package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateDowngrade bool

var migrateCmd = &cobra.Command{
	Use:     "migrate [target]",
	Aliases: []string{"apply"},
	Short:   "Apply pending migrations",
	Long:    "Apply pending migrations in chain order, optionally up to the given target revision",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		if migrateDowngrade {
			reverted, err := env.service.Rollback(ctx, 1)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if len(reverted) == 0 {
				fmt.Println("No applied migrations to roll back.")
				return nil
			}
			fmt.Printf("Rolled back %s %s\n", reverted[0].Revision, reverted[0].Label)
			return nil
		}

		var target string
		if len(args) > 0 {
			target = args[0]
		}

		applied, err := env.service.Apply(ctx, target)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if len(applied) == 0 {
			fmt.Println("No pending migrations.")
			return nil
		}
		for _, unit := range applied {
			fmt.Printf("Applied %s %s\n", unit.Revision, unit.Label)
		}

		// 適用後の状態を再照合する
		report, err := env.service.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		fmt.Printf("Applied %d migration(s) successfully. %d still pending.\n", len(applied), len(report.Pending))
		return nil
	},
}

var rollbackSteps int

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long:  "Roll back the most recently applied migrations in reverse applied order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		reverted, err := env.service.Rollback(ctx, rollbackSteps)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if len(reverted) == 0 {
			fmt.Println("No applied migrations to roll back.")
			return nil
		}
		for _, unit := range reverted {
			fmt.Printf("Rolled back %s %s\n", unit.Revision, unit.Label)
		}
		fmt.Printf("Rolled back %d migration(s) successfully.\n", len(reverted))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDowngrade, "downgrade", false, "Roll back the last applied migration instead of applying")
	rollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
}
