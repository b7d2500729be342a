package domain

import "errors"

var (
	// ErrRegistryCorrupted はマイグレーションレジストリが破損している場合のエラー。
	// 識別子の重複・未知の親参照・循環・ヘッダ不正が該当する。
	ErrRegistryCorrupted = errors.New("migration registry is corrupted")

	// ErrLedgerUninitialized は台帳テーブルが存在しない場合のエラー。
	// 台帳が空である状態とは区別される。
	ErrLedgerUninitialized = errors.New("migration ledger is not initialized")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrGenerationFailed はマイグレーションファイル生成時のエラー。
	ErrGenerationFailed = errors.New("migration generation failed")

	// ErrUnknownRevision は指定されたリビジョンがレジストリに存在しない場合のエラー。
	ErrUnknownRevision = errors.New("unknown revision")

	// ErrIrreversible は巻き戻しSQLを持たないユニットを巻き戻そうとした場合のエラー。
	ErrIrreversible = errors.New("migration is not reversible")

	// ErrUserNotFound は指定されたユーザーが存在しない場合のエラー。
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken は指定されたメールアドレスが既に登録済みの場合のエラー。
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken は指定されたユーザー名が既に登録済みの場合のエラー。
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials は認証情報が一致しない場合のエラー。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserInactive は無効化されたユーザーで認証しようとした場合のエラー。
	ErrUserInactive = errors.New("user is inactive")

	// ErrInvalidToken はトークンが不正または期限切れの場合のエラー。
	ErrInvalidToken = errors.New("invalid token")

	// ErrForbidden は操作に必要な権限がない場合のエラー。
	ErrForbidden = errors.New("permission denied")

	// ErrProductNotFound は指定された商品が存在しない場合のエラー。
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidInput はリクエストの形式が不正な場合のエラー。
	ErrInvalidInput = errors.New("invalid input")
)
