package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"atb-backend/internal/domain"
	"atb-backend/internal/usecase"
)

var showMigrationsCmd = &cobra.Command{
	Use:     "showmigrations",
	Aliases: []string{"status"},
	Short:   "Show migration status",
	Long:    "Show the status of all migrations (applied/pending/orphaned)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		report, err := env.service.Status(ctx)
		ledgerMissing := errors.Is(err, domain.ErrLedgerUninitialized)
		if ledgerMissing {
			// 台帳が無い場合も一覧自体は表示する（全件が未適用扱い）
			units, lerr := env.registry.LoadUnits()
			if lerr != nil {
				return fmt.Errorf("failed to get migration status: %w", lerr)
			}
			report = usecase.Reconcile(units, nil)
		} else if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		// テーブル形式で出力
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REVISION\tLABEL\tSTATUS\tAPPLIED AT")
		fmt.Fprintln(w, "--------\t-----\t------\t----------")

		for _, unit := range report.Applied {
			appliedAt := "-"
			if at, ok := report.AppliedAt[unit.Revision]; ok {
				appliedAt = at.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", unit.Revision, unit.Label, "applied", appliedAt)
		}
		for _, unit := range report.Pending {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", unit.Revision, unit.Label, "pending", "-")
		}

		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush output: %w", err)
		}

		if len(report.Orphaned) > 0 {
			fmt.Println()
			fmt.Println("Orphaned revisions (recorded in the ledger but missing from the registry):")
			for _, rev := range report.Orphaned {
				fmt.Printf("  %s\n", rev)
			}
		}

		fmt.Printf("\n%d applied, %d pending, %d orphaned.\n", len(report.Applied), len(report.Pending), len(report.Orphaned))
		if ledgerMissing {
			fmt.Println("Migration ledger is not initialized. Run 'manage migrate' to bootstrap it.")
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"migrate-check"},
	Short:   "Check for pending migrations",
	Long:    "Exit with code 1 if any migration has not been applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		report, err := env.service.Status(ctx)
		if errors.Is(err, domain.ErrLedgerUninitialized) {
			units, lerr := env.registry.LoadUnits()
			if lerr != nil {
				return fmt.Errorf("failed to get migration status: %w", lerr)
			}
			report = usecase.Reconcile(units, nil)
			fmt.Println("Migration ledger is not initialized.")
		} else if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		if report.HasPending() {
			fmt.Printf("%d migration(s) have not been applied. Run 'manage migrate' to apply them.\n", len(report.Pending))
			os.Exit(1)
		}

		fmt.Println("All migrations are up to date.")
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"migrate-history"},
	Short:   "Show migration history",
	Long:    "Show the most recently applied migrations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		entries, err := env.service.History(ctx, historyLimit)
		if errors.Is(err, domain.ErrLedgerUninitialized) {
			fmt.Println("Migration ledger is not initialized. No migrations applied yet.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get migration history: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No migrations applied yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REVISION\tLABEL\tAPPLIED AT")
		fmt.Fprintln(w, "--------\t-----\t----------")
		for _, entry := range entries {
			label := entry.Label
			if entry.Orphaned {
				label = "(orphaned)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Revision, label, entry.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush output: %w", err)
		}
		return nil
	},
}

var currentCmd = &cobra.Command{
	Use:     "current",
	Aliases: []string{"migrate-current"},
	Short:   "Show the current head revision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		env, err := newMigrationEnv()
		if err != nil {
			return err
		}

		entry, err := env.service.Current(ctx)
		if errors.Is(err, domain.ErrLedgerUninitialized) {
			fmt.Println("Migration ledger is not initialized. No migrations applied yet.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get current revision: %w", err)
		}
		if entry == nil {
			fmt.Println("No migrations applied yet.")
			return nil
		}
		if entry.Orphaned {
			fmt.Printf("Current revision: %s (missing from the registry)\n", entry.Revision)
			return nil
		}
		fmt.Printf("Current revision: %s %s\n", entry.Revision, entry.Label)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of entries to show")
}
