package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"atb-backend/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
// テーブルは作成しない（台帳の未初期化状態のテストで使うため）。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestMigrationRepository_Uninitialized(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if repo.HasLedger(ctx) {
		t.Error("expected HasLedger=false, got true")
	}

	// 台帳テーブルが無い状態は空の台帳とは区別される
	if _, err := repo.FindAllApplied(ctx); !errors.Is(err, domain.ErrLedgerUninitialized) {
		t.Errorf("expected ErrLedgerUninitialized, got %v", err)
	}
	if _, err := repo.CurrentHead(ctx); !errors.Is(err, domain.ErrLedgerUninitialized) {
		t.Errorf("expected ErrLedgerUninitialized, got %v", err)
	}
}

func TestMigrationRepository_EnsureLedger(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)

	if err := repo.EnsureLedger(ctx); err != nil {
		t.Fatalf("EnsureLedger failed: %v", err)
	}
	if !repo.HasLedger(ctx) {
		t.Error("expected HasLedger=true, got false")
	}

	// 初期化済みの空の台帳はエラーにならない
	applied, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied revisions, got %d", len(applied))
	}

	// 2回目の呼び出しは何もしない
	if err := repo.EnsureLedger(ctx); err != nil {
		t.Fatalf("second EnsureLedger failed: %v", err)
	}
}

func TestMigrationRepository_FindAllApplied_Order(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)
	if err := repo.EnsureLedger(ctx); err != nil {
		t.Fatalf("EnsureLedger failed: %v", err)
	}

	// 識別子の辞書順と挿入順が一致しないデータを入れる
	now := time.Now().UTC()
	for _, revision := range []string{"cccccccccccc", "aaaaaaaaaaaa", "bbbbbbbbbbbb"} {
		if err := db.Exec("INSERT INTO schema_revisions (revision, applied_at) VALUES (?, ?)", revision, now).Error; err != nil {
			t.Fatalf("failed to insert test data: %v", err)
		}
	}

	applied, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(applied) != 3 {
		t.Fatalf("expected 3 applied revisions, got %d", len(applied))
	}

	// 台帳への挿入順で返る
	want := []string{"cccccccccccc", "aaaaaaaaaaaa", "bbbbbbbbbbbb"}
	for i := range want {
		if applied[i].Revision != want[i] {
			t.Errorf("applied[%d]: expected %s, got %s", i, want[i], applied[i].Revision)
		}
	}
	if applied[0].Seq >= applied[1].Seq {
		t.Errorf("expected ascending seq, got %d then %d", applied[0].Seq, applied[1].Seq)
	}
}

func TestMigrationRepository_CurrentHead(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)
	if err := repo.EnsureLedger(ctx); err != nil {
		t.Fatalf("EnsureLedger failed: %v", err)
	}

	// 空の台帳のヘッドはnil
	head, err := repo.CurrentHead(ctx)
	if err != nil {
		t.Fatalf("CurrentHead failed: %v", err)
	}
	if head != nil {
		t.Errorf("expected nil head, got %+v", head)
	}

	now := time.Now().UTC()
	for _, revision := range []string{"aaaaaaaaaaaa", "bbbbbbbbbbbb"} {
		if err := db.Exec("INSERT INTO schema_revisions (revision, applied_at) VALUES (?, ?)", revision, now).Error; err != nil {
			t.Fatalf("failed to insert test data: %v", err)
		}
	}

	head, err = repo.CurrentHead(ctx)
	if err != nil {
		t.Fatalf("CurrentHead failed: %v", err)
	}
	if head == nil || head.Revision != "bbbbbbbbbbbb" {
		t.Fatalf("expected head bbbbbbbbbbbb, got %+v", head)
	}

	// 末尾の行を消すとヘッドが1つ戻る
	if err := db.Exec("DELETE FROM schema_revisions WHERE revision = ?", "bbbbbbbbbbbb").Error; err != nil {
		t.Fatalf("failed to delete test data: %v", err)
	}
	head, err = repo.CurrentHead(ctx)
	if err != nil {
		t.Fatalf("CurrentHead failed: %v", err)
	}
	if head == nil || head.Revision != "aaaaaaaaaaaa" {
		t.Errorf("expected head aaaaaaaaaaaa, got %+v", head)
	}
}
