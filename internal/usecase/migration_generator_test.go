package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"atb-backend/internal/domain"
	"atb-backend/internal/repository"
)

// genAccount はスキーマ差分検出のテスト用モデル。
type genAccount struct {
	ID    string `gorm:"column:id;type:varchar(36);primaryKey"`
	Email string `gorm:"column:email;type:varchar(255);uniqueIndex:uk_gen_accounts_email"`
}

func (genAccount) TableName() string { return "gen_accounts" }

// genAccountWithNickname は同じテーブルにカラムを1つ追加した定義。
type genAccountWithNickname struct {
	ID       string `gorm:"column:id;type:varchar(36);primaryKey"`
	Email    string `gorm:"column:email;type:varchar(255);uniqueIndex:uk_gen_accounts_email"`
	Nickname string `gorm:"column:nickname;type:varchar(64)"`
}

func (genAccountWithNickname) TableName() string { return "gen_accounts" }

func TestSlugify(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Create Users", "create_users"},
		{"add-email_2", "add_email_2"},
		{"  spaced  out  ", "spaced__out"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := slugify(tt.message); got != tt.want {
			t.Errorf("slugify(%q): expected %q, got %q", tt.message, tt.want, got)
		}
	}
}

func TestMigrationGenerator_Generate_Empty(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewMigrationRegistry(setupMigrationsDir(t, nil))
	generator := NewMigrationGenerator(registry, db, repository.AllModels())

	path, err := generator.Generate(ctx, "initial baseline", true)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected a file path, got empty string")
	}

	pattern := regexp.MustCompile(`^\d{8}_\d{4}-[0-9a-f]{12}_initial_baseline\.sql$`)
	if base := filepath.Base(path); !pattern.MatchString(base) {
		t.Errorf("unexpected filename: %s", base)
	}

	// 生成したファイルはレジストリで読み戻せる
	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	unit := units[0]
	if unit.Parent != "" {
		t.Errorf("expected empty parent, got %q", unit.Parent)
	}
	if unit.Label != "initial baseline" {
		t.Errorf("expected label 'initial baseline', got %q", unit.Label)
	}
	if unit.UpSQL != "" || unit.DownSQL != "" {
		t.Errorf("expected empty SQL sections, got up=%q down=%q", unit.UpSQL, unit.DownSQL)
	}
}

func TestMigrationGenerator_Generate_CreateTable(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewMigrationRegistry(setupMigrationsDir(t, nil))
	generator := NewMigrationGenerator(registry, db, []interface{}{genAccount{}})

	path, err := generator.Generate(ctx, "create gen accounts", false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected a file path, got empty string")
	}

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	unit := units[0]

	if !strings.Contains(unit.UpSQL, "CREATE TABLE `gen_accounts`") {
		t.Errorf("expected CREATE TABLE statement, got %q", unit.UpSQL)
	}
	if !strings.Contains(unit.UpSQL, "CREATE UNIQUE INDEX `uk_gen_accounts_email`") {
		t.Errorf("expected unique index statement, got %q", unit.UpSQL)
	}

	// 生成されたSQLが実際に実行できることを確認する
	if err := db.Exec(unit.UpSQL).Error; err != nil {
		t.Fatalf("generated up SQL failed to execute: %v", err)
	}
	if !hasTable(t, db, "gen_accounts") {
		t.Error("table gen_accounts was not created")
	}

	if err := db.Exec(unit.DownSQL).Error; err != nil {
		t.Fatalf("generated down SQL failed to execute: %v", err)
	}
	if hasTable(t, db, "gen_accounts") {
		t.Error("table gen_accounts was not dropped")
	}
}

func TestMigrationGenerator_Generate_NoChanges(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	if err := db.AutoMigrate(&genAccount{}); err != nil {
		t.Fatalf("failed to prepare schema: %v", err)
	}
	registry := NewMigrationRegistry(setupMigrationsDir(t, nil))
	generator := NewMigrationGenerator(registry, db, []interface{}{genAccount{}})

	path, err := generator.Generate(ctx, "noop", false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no file for unchanged schema, got %s", path)
	}

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("expected 0 units, got %d", len(units))
	}
}

func TestMigrationGenerator_Generate_AddColumn(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	if err := db.AutoMigrate(&genAccount{}); err != nil {
		t.Fatalf("failed to prepare schema: %v", err)
	}
	registry := NewMigrationRegistry(setupMigrationsDir(t, nil))
	generator := NewMigrationGenerator(registry, db, []interface{}{genAccountWithNickname{}})

	path, err := generator.Generate(ctx, "add nickname", false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected a file path, got empty string")
	}

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	unit := units[0]

	if !strings.Contains(unit.UpSQL, "ALTER TABLE `gen_accounts` ADD COLUMN `nickname`") {
		t.Errorf("expected ADD COLUMN statement, got %q", unit.UpSQL)
	}
	if !strings.Contains(unit.DownSQL, "ALTER TABLE `gen_accounts` DROP COLUMN `nickname`") {
		t.Errorf("expected DROP COLUMN statement, got %q", unit.DownSQL)
	}

	if err := db.Exec(unit.UpSQL).Error; err != nil {
		t.Fatalf("generated up SQL failed to execute: %v", err)
	}
	if !db.Migrator().HasColumn(&genAccountWithNickname{}, "nickname") {
		t.Error("column nickname was not added")
	}
}

func TestMigrationGenerator_Generate_ParentIsChainHead(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewMigrationRegistry(setupMigrationsDir(t, chainTestFiles()))
	generator := NewMigrationGenerator(registry, db, nil)

	if _, err := generator.Generate(ctx, "next step", true); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 4 {
		t.Fatalf("expected 4 units, got %d", len(units))
	}
	// 新しいユニットはチェーン末端にぶら下がる
	if units[3].Parent != "2a2a2a2a2a2a" {
		t.Errorf("expected parent 2a2a2a2a2a2a, got %q", units[3].Parent)
	}
}

func TestMigrationGenerator_Generate_MultipleHeads(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	files := map[string]string{
		"root.sql":     migrationFile("0a1b2c3d4e5f", "", "root", "SELECT 1;", ""),
		"branch_a.sql": migrationFile("aaaaaaaaaaaa", "0a1b2c3d4e5f", "branch a", "SELECT 1;", ""),
		"branch_b.sql": migrationFile("bbbbbbbbbbbb", "0a1b2c3d4e5f", "branch b", "SELECT 1;", ""),
	}
	registry := NewMigrationRegistry(setupMigrationsDir(t, files))
	generator := NewMigrationGenerator(registry, db, nil)

	_, err := generator.Generate(ctx, "on a branch", true)
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestMigrationGenerator_Generate_DefaultMessage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewMigrationRegistry(setupMigrationsDir(t, nil))
	generator := NewMigrationGenerator(registry, db, nil)

	if _, err := generator.Generate(ctx, "", true); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if !strings.HasPrefix(units[0].Label, "auto_migration_") {
		t.Errorf("expected auto generated label, got %q", units[0].Label)
	}
	if !revisionIDPattern.MatchString(units[0].Revision) {
		t.Errorf("revision %q does not match the identifier format", units[0].Revision)
	}
}
