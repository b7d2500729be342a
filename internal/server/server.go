// Package server はAPIサーバーの起動処理を提供する。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atb-backend/config"
	"atb-backend/internal/domain"
	"atb-backend/internal/handler"
	"atb-backend/internal/infra"
	"atb-backend/internal/repository"
	"atb-backend/internal/usecase"
)

// Options はサーバー起動時の上書き設定。空の項目は設定値を使う。
type Options struct {
	Host string
	Port string
}

// Run は設定を読み込み、依存を組み立ててAPIサーバーを起動する。
// SIGTERMまたはSIGINTを受け取ると接続を閉じて正常終了する。
func Run(ctx context.Context, opts Options) error {
	cfg := config.Load()

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		return err
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(cfg)

	if err := cfg.ValidateSecretKey(); err != nil {
		slog.Error("invalid SECRET_KEY", "error", err)
		return err
	}

	// DB初期化
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		return errors.New("DATABASE_URL is not set")
	}
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		return err
	}

	// DI
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewMigrationRepository(db)

	authService := usecase.NewAuthService(userRepo, cfg.SecretKey, cfg.AccessTokenExpire, cfg.RefreshTokenExpire)
	productService := usecase.NewProductService(productRepo)
	registry := usecase.NewMigrationRegistry(cfg.MigrationsDir)
	migrationService := usecase.NewMigrationService(registry, ledgerRepo, db)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
	productHandler := handler.NewProductHandler(productService)
	router := handler.NewRouter(authHandler, userHandler, productHandler, authService, cfg)

	// 未適用マイグレーションの確認（起動は妨げない）
	warnPendingMigrations(ctx, migrationService)

	host := opts.Host
	port := opts.Port
	if port == "" {
		port = cfg.Port
	}

	server := &http.Server{
		Addr:    host + ":" + port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}

// warnPendingMigrations はマイグレーションの適用状況を確認し、
// 未適用があれば警告ログを出力する。確認の失敗でサーバーは停止しない。
func warnPendingMigrations(ctx context.Context, service *usecase.MigrationService) {
	report, err := service.Status(ctx)
	switch {
	case errors.Is(err, domain.ErrLedgerUninitialized):
		slog.WarnContext(ctx, "migration ledger is not initialized: run 'manage migrate' to apply migrations")
	case err != nil:
		slog.WarnContext(ctx, "failed to check migration state", "error", err)
	case report.HasPending():
		revisions := make([]string, len(report.Pending))
		for i, unit := range report.Pending {
			revisions[i] = unit.Revision
		}
		slog.WarnContext(ctx, fmt.Sprintf("%d pending migrations detected: run 'manage migrate' to apply them", len(report.Pending)),
			"revisions", strings.Join(revisions, ", "),
		)
	}
}
