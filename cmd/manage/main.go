// Package main は管理CLIのエントリポイント。
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"atb-backend/config"
	"atb-backend/internal/infra"
	"atb-backend/internal/repository"
	"atb-backend/internal/usecase"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "manage",
		Short: "ATB Backend management CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .envファイルを読み込む（存在しない場合は無視）
			// 既存の環境変数は上書きしない
			_ = godotenv.Load()
		},
	}

	// サブコマンド登録
	rootCmd.AddCommand(showMigrationsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(makeMigrationsCmd)
	rootCmd.AddCommand(runServerCmd)
	rootCmd.AddCommand(dbShellCmd)
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("manage version %s\n", version)
		},
	}
}

// migrationEnv はマイグレーション系コマンドが共有する依存一式。
type migrationEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *usecase.MigrationRegistry
	service  *usecase.MigrationService
}

// newMigrationEnv はDB接続とマイグレーションサービスを初期化する。
func newMigrationEnv() (*migrationEnv, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 絶対パスに変換
	absPath, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migrations directory: %w", err)
	}

	registry := usecase.NewMigrationRegistry(absPath)
	repo := repository.NewMigrationRepository(db)
	return &migrationEnv{
		cfg:      cfg,
		db:       db,
		registry: registry,
		service:  usecase.NewMigrationService(registry, repo, db),
	}, nil
}
