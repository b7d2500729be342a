package usecase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atb-backend/internal/domain"
)

// migrationFile はテスト用のマイグレーションファイル本文を組み立てる。
func migrationFile(revision, parent, label, upSQL, downSQL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- revision: %s\n", revision)
	if parent != "" {
		fmt.Fprintf(&b, "-- parent: %s\n", parent)
	}
	fmt.Fprintf(&b, "-- label: %s\n", label)
	b.WriteString("\n-- +migrate Up\n")
	if upSQL != "" {
		b.WriteString(upSQL + "\n")
	}
	b.WriteString("\n-- +migrate Down\n")
	if downSQL != "" {
		b.WriteString(downSQL + "\n")
	}
	return b.String()
}

// setupMigrationsDir はテスト用のマイグレーションディレクトリを作成する。
func setupMigrationsDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for filename, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test migration file: %v", err)
		}
	}
	return dir
}

func TestMigrationRegistry_LoadUnits_Chain(t *testing.T) {
	// ファイル名の辞書順とチェーン順が一致しないように配置する
	dir := setupMigrationsDir(t, map[string]string{
		"z_first.sql":  migrationFile("0a1b2c3d4e5f", "", "create users", "CREATE TABLE users (id INT);", "DROP TABLE users;"),
		"a_second.sql": migrationFile("1f2e3d4c5b6a", "0a1b2c3d4e5f", "create posts", "CREATE TABLE posts (id INT);", "DROP TABLE posts;"),
		"m_third.sql":  migrationFile("2a2a2a2a2a2a", "1f2e3d4c5b6a", "create comments", "CREATE TABLE comments (id INT);", ""),
	})

	registry := NewMigrationRegistry(dir)
	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}

	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	wantOrder := []string{"0a1b2c3d4e5f", "1f2e3d4c5b6a", "2a2a2a2a2a2a"}
	for i, want := range wantOrder {
		if units[i].Revision != want {
			t.Errorf("unit %d: expected revision %s, got %s", i, want, units[i].Revision)
		}
	}

	root := units[0]
	if root.Parent != "" {
		t.Errorf("expected root parent to be empty, got %q", root.Parent)
	}
	if root.Label != "create users" {
		t.Errorf("expected label 'create users', got %q", root.Label)
	}
	if root.UpSQL != "CREATE TABLE users (id INT);" {
		t.Errorf("unexpected up SQL: %q", root.UpSQL)
	}
	if root.DownSQL != "DROP TABLE users;" {
		t.Errorf("unexpected down SQL: %q", root.DownSQL)
	}
	if !root.Reversible() {
		t.Error("expected root to be reversible")
	}

	// downセクションが空のユニットは巻き戻せない
	if units[2].Reversible() {
		t.Error("expected unit without down SQL to be irreversible")
	}
}

func TestMigrationRegistry_LoadUnits_BranchOrder(t *testing.T) {
	// ルートから分岐した2本の枝は識別子の昇順で並ぶ
	dir := setupMigrationsDir(t, map[string]string{
		"root.sql":       migrationFile("0a1b2c3d4e5f", "", "root", "SELECT 1;", "SELECT 1;"),
		"branch_b.sql":   migrationFile("bbbbbbbbbbbb", "0a1b2c3d4e5f", "branch b", "SELECT 1;", "SELECT 1;"),
		"branch_a.sql":   migrationFile("aaaaaaaaaaaa", "0a1b2c3d4e5f", "branch a", "SELECT 1;", "SELECT 1;"),
		"a_child.sql":    migrationFile("cccccccccccc", "aaaaaaaaaaaa", "child of a", "SELECT 1;", "SELECT 1;"),
	})

	registry := NewMigrationRegistry(dir)
	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}

	var got []string
	for _, unit := range units {
		got = append(got, unit.Revision)
	}

	want := []string{"0a1b2c3d4e5f", "aaaaaaaaaaaa", "bbbbbbbbbbbb", "cccccccccccc"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestMigrationRegistry_LoadUnits_MissingDir(t *testing.T) {
	registry := NewMigrationRegistry(filepath.Join(t.TempDir(), "does-not-exist"))

	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("expected 0 units for missing dir, got %d", len(units))
	}
}

func TestMigrationRegistry_LoadUnits_IgnoresNonSQL(t *testing.T) {
	dir := setupMigrationsDir(t, map[string]string{
		"root.sql":   migrationFile("0a1b2c3d4e5f", "", "root", "SELECT 1;", "SELECT 1;"),
		"README.md":  "not a migration",
		"notes.txt":  "also not a migration",
	})

	registry := NewMigrationRegistry(dir)
	units, err := registry.LoadUnits()
	if err != nil {
		t.Fatalf("LoadUnits failed: %v", err)
	}
	if len(units) != 1 {
		t.Errorf("expected 1 unit, got %d", len(units))
	}
}

func TestMigrationRegistry_LoadUnits_Corruption(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "duplicate revision",
			files: map[string]string{
				"one.sql": migrationFile("0a1b2c3d4e5f", "", "one", "SELECT 1;", ""),
				"two.sql": migrationFile("0a1b2c3d4e5f", "", "two", "SELECT 1;", ""),
			},
		},
		{
			name: "unknown parent",
			files: map[string]string{
				"one.sql": migrationFile("0a1b2c3d4e5f", "ffffffffffff", "one", "SELECT 1;", ""),
			},
		},
		{
			name: "cycle",
			files: map[string]string{
				"one.sql": migrationFile("aaaaaaaaaaaa", "bbbbbbbbbbbb", "one", "SELECT 1;", ""),
				"two.sql": migrationFile("bbbbbbbbbbbb", "aaaaaaaaaaaa", "two", "SELECT 1;", ""),
			},
		},
		{
			name: "missing revision directive",
			files: map[string]string{
				"one.sql": "-- label: broken\n\n-- +migrate Up\nSELECT 1;\n",
			},
		},
		{
			name: "malformed revision",
			files: map[string]string{
				"one.sql": migrationFile("not-a-rev", "", "one", "SELECT 1;", ""),
			},
		},
		{
			name: "missing up marker",
			files: map[string]string{
				"one.sql": "-- revision: 0a1b2c3d4e5f\n-- label: broken\n\nSELECT 1;\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupMigrationsDir(t, tt.files)
			registry := NewMigrationRegistry(dir)

			_, err := registry.LoadUnits()
			if !errors.Is(err, domain.ErrRegistryCorrupted) {
				t.Errorf("expected ErrRegistryCorrupted, got %v", err)
			}
		})
	}
}
