// Package infra は外部サービスとの接続を提供する。
package infra

import (
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"atb-backend/config"
)

// NewDB はgormによるデータベース接続を初期化する。
// DSNからドライバを選択する（sqlite:// プレフィックスまたはファイルパスはSQLite、それ以外はMySQL）。
func NewDB(dsn string, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(openDialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if cfg.OtelEnabled {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 接続プール設定
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func openDialector(dsn string) gorm.Dialector {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return sqlite.Open(path)
	}
	if strings.HasSuffix(dsn, ".db") || strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return sqlite.Open(dsn)
	}
	return mysql.Open(ensureMultiStatements(dsn))
}

// マイグレーションは複数ステートメントのSQLをまとめて実行するため、
// MySQLでは multiStatements が有効である必要がある。
func ensureMultiStatements(dsn string) string {
	if strings.Contains(dsn, "multiStatements=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&multiStatements=true"
	}
	return dsn + "?multiStatements=true"
}
