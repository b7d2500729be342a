package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"atb-backend/internal/domain"
)

// MigrationGenerator はモデル定義と接続中のDBスキーマの差分から
// 新しいマイグレーションファイルを生成する。
type MigrationGenerator struct {
	registry *MigrationRegistry
	db       *gorm.DB
	models   []interface{}
}

// NewMigrationGenerator は新しいMigrationGeneratorを生成する。
func NewMigrationGenerator(registry *MigrationRegistry, db *gorm.DB, models []interface{}) *MigrationGenerator {
	return &MigrationGenerator{
		registry: registry,
		db:       db,
		models:   models,
	}
}

// newRevisionID は新しいリビジョン識別子を生成する。
// 先頭8桁は生成時刻（UNIX秒）の16進表現で、識別子の昇順がほぼ生成順と一致する。
func newRevisionID() string {
	entropy := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%08x%s", time.Now().Unix(), entropy[:4])
}

// slugify はメッセージをファイル名向けのスラッグに変換する。
func slugify(message string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(message) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// Generate は新しいマイグレーションファイルを生成し、そのパスを返す。
// emptyがfalseの場合はスキーマ差分からSQLを生成し、差分が無ければ
// ファイルを作らずに空文字列を返す。新しいユニットの親は現在の
// チェーン末端となる。
func (g *MigrationGenerator) Generate(ctx context.Context, message string, empty bool) (string, error) {
	units, err := g.registry.LoadUnits()
	if err != nil {
		// レジストリが破損していると親リビジョンを決定できない
		return "", err
	}

	parent, err := chainHead(units)
	if err != nil {
		return "", err
	}

	var upSQL, downSQL string
	if !empty {
		upSQL, downSQL, err = g.diffSchema(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
		if upSQL == "" {
			return "", nil
		}
	}

	now := time.Now()
	if message == "" {
		message = "auto_migration_" + now.Format("20060102_150405")
	}
	slug := slugify(message)
	if slug == "" {
		slug = "migration"
	}

	revision := newRevisionID()
	filename := fmt.Sprintf("%s-%s_%s.sql", now.Format("20060102_1504"), revision, slug)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", directiveRevision, revision)
	if parent != "" {
		fmt.Fprintf(&b, "%s %s\n", directiveParent, parent)
	}
	fmt.Fprintf(&b, "%s %s\n", directiveLabel, message)
	b.WriteString("\n" + markerUp + "\n")
	if upSQL != "" {
		b.WriteString(upSQL + "\n")
	}
	b.WriteString("\n" + markerDown + "\n")
	if downSQL != "" {
		b.WriteString(downSQL + "\n")
	}

	if err := os.MkdirAll(g.registry.Dir(), 0755); err != nil {
		return "", fmt.Errorf("%w: creating migrations directory: %v", domain.ErrGenerationFailed, err)
	}
	path := filepath.Join(g.registry.Dir(), filename)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("%w: writing migration file: %v", domain.ErrGenerationFailed, err)
	}

	return path, nil
}

// chainHead はチェーンの末端リビジョンを返す（ユニットが無い場合は空文字列）。
// 末端が複数ある場合は分岐が未マージであり、親を一意に決定できない。
func chainHead(units []*domain.MigrationUnit) (string, error) {
	if len(units) == 0 {
		return "", nil
	}

	hasChild := make(map[string]bool, len(units))
	for _, unit := range units {
		if unit.Parent != "" {
			hasChild[unit.Parent] = true
		}
	}

	var heads []string
	for _, unit := range units {
		if !hasChild[unit.Revision] {
			heads = append(heads, unit.Revision)
		}
	}
	if len(heads) > 1 {
		sort.Strings(heads)
		return "", fmt.Errorf("%w: multiple heads (%s): merge the branches before generating", domain.ErrGenerationFailed, strings.Join(heads, ", "))
	}
	return heads[0], nil
}

// diffSchema は登録済みモデルと現在のDBスキーマを比較してup/down SQLを生成する。
// 検出対象は不足しているテーブルとカラムのみで、型変更や削除は扱わない。
func (g *MigrationGenerator) diffSchema(ctx context.Context) (string, string, error) {
	db := g.db.WithContext(ctx)
	migrator := db.Migrator()

	var upStmts, downStmts []string
	for _, model := range g.models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return "", "", fmt.Errorf("parsing model: %v", err)
		}
		sch := stmt.Schema

		if !migrator.HasTable(model) {
			createSQL, indexSQLs := buildCreateTable(db, sch)
			upStmts = append(upStmts, createSQL)
			upStmts = append(upStmts, indexSQLs...)
			downStmts = append([]string{fmt.Sprintf("DROP TABLE `%s`;", sch.Table)}, downStmts...)
			continue
		}

		for _, field := range sch.Fields {
			if field.DBName == "" {
				continue
			}
			if migrator.HasColumn(model, field.DBName) {
				continue
			}
			expr := migrator.FullDataTypeOf(field)
			upStmts = append(upStmts, fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s;", sch.Table, field.DBName, expr.SQL))
			downStmts = append([]string{fmt.Sprintf("ALTER TABLE `%s` DROP COLUMN `%s`;", sch.Table, field.DBName)}, downStmts...)
		}
	}

	return strings.Join(upStmts, "\n"), strings.Join(downStmts, "\n"), nil
}

// buildCreateTable はモデル定義からCREATE TABLE文とインデックス作成文を組み立てる。
func buildCreateTable(db *gorm.DB, sch *schema.Schema) (string, []string) {
	migrator := db.Migrator()

	var cols []string
	for _, field := range sch.Fields {
		if field.DBName == "" {
			continue
		}
		expr := migrator.FullDataTypeOf(field)
		cols = append(cols, fmt.Sprintf("  `%s` %s", field.DBName, expr.SQL))
	}
	if len(sch.PrimaryFieldDBNames) > 0 {
		quoted := make([]string, len(sch.PrimaryFieldDBNames))
		for i, name := range sch.PrimaryFieldDBNames {
			quoted[i] = "`" + name + "`"
		}
		cols = append(cols, fmt.Sprintf("  PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	createSQL := fmt.Sprintf("CREATE TABLE `%s` (\n%s\n);", sch.Table, strings.Join(cols, ",\n"))

	var indexSQLs []string
	for _, idx := range sch.ParseIndexes() {
		fields := make([]string, len(idx.Fields))
		for i, f := range idx.Fields {
			fields[i] = "`" + f.DBName + "`"
		}
		unique := ""
		if idx.Class == "UNIQUE" {
			unique = "UNIQUE "
		}
		indexSQLs = append(indexSQLs, fmt.Sprintf("CREATE %sINDEX `%s` ON `%s` (%s);", unique, idx.Name, sch.Table, strings.Join(fields, ", ")))
	}

	return createSQL, indexSQLs
}
