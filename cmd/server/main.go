// Package main はAPIサーバーのエントリポイント。
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"atb-backend/internal/server"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	if err := server.Run(ctx, server.Options{}); err != nil {
		os.Exit(1)
	}
}
