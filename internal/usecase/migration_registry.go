package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"atb-backend/internal/domain"
)

// マイグレーションファイルのヘッダディレクティブとセクションマーカー。
const (
	directiveRevision = "-- revision:"
	directiveParent   = "-- parent:"
	directiveLabel    = "-- label:"
	markerUp          = "-- +migrate Up"
	markerDown        = "-- +migrate Down"
)

var revisionIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// MigrationRegistry はマイグレーションファイル群を読み込み、チェーン順に提供する。
// 読み取り専用であり、ファイルの生成はMigrationGeneratorが行う。
type MigrationRegistry struct {
	dir string
}

// NewMigrationRegistry は新しいMigrationRegistryを生成する。
func NewMigrationRegistry(dir string) *MigrationRegistry {
	return &MigrationRegistry{dir: dir}
}

// Dir はマイグレーションディレクトリのパスを返す。
func (r *MigrationRegistry) Dir() string {
	return r.dir
}

// LoadUnits はディレクトリ内の全ユニットをチェーン順で返す。
// ディレクトリが存在しない場合は空のレジストリとして扱う。
// 識別子の重複・未知の親参照・循環・ヘッダ不正はdomain.ErrRegistryCorruptedとして報告する。
func (r *MigrationRegistry) LoadUnits() ([]*domain.MigrationUnit, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading migrations directory: %v", domain.ErrRegistryCorrupted, err)
	}

	var units []*domain.MigrationUnit
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		unit, err := parseUnitFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return chainOrder(units)
}

// parseUnitFile は1つのマイグレーションファイルを解析する。
// ファイルはヘッダのディレクティブ（revision/parent/label）と
// Up/Downセクションから構成される。
func parseUnitFile(path string) (*domain.MigrationUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrRegistryCorrupted, filepath.Base(path), err)
	}

	unit := &domain.MigrationUnit{FilePath: path}
	var upLines, downLines []string
	section := ""
	sawUp := false

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, markerUp) {
			section = "up"
			sawUp = true
			continue
		}
		if strings.EqualFold(trimmed, markerDown) {
			section = "down"
			continue
		}

		switch section {
		case "up":
			upLines = append(upLines, line)
		case "down":
			downLines = append(downLines, line)
		default:
			// ヘッダ部: ディレクティブのみを解釈し、その他のコメントや空行は無視する
			if v, ok := cutDirective(trimmed, directiveRevision); ok {
				unit.Revision = v
			} else if v, ok := cutDirective(trimmed, directiveParent); ok {
				unit.Parent = v
			} else if v, ok := cutDirective(trimmed, directiveLabel); ok {
				unit.Label = v
			}
		}
	}

	base := filepath.Base(path)
	if unit.Revision == "" {
		return nil, fmt.Errorf("%w: %s: missing revision directive", domain.ErrRegistryCorrupted, base)
	}
	if !revisionIDPattern.MatchString(unit.Revision) {
		return nil, fmt.Errorf("%w: %s: malformed revision identifier %q", domain.ErrRegistryCorrupted, base, unit.Revision)
	}
	if unit.Parent != "" && !revisionIDPattern.MatchString(unit.Parent) {
		return nil, fmt.Errorf("%w: %s: malformed parent identifier %q", domain.ErrRegistryCorrupted, base, unit.Parent)
	}
	if !sawUp {
		return nil, fmt.Errorf("%w: %s: missing up section", domain.ErrRegistryCorrupted, base)
	}

	unit.UpSQL = strings.TrimSpace(strings.Join(upLines, "\n"))
	unit.DownSQL = strings.TrimSpace(strings.Join(downLines, "\n"))
	return unit, nil
}

func cutDirective(line, directive string) (string, bool) {
	if !strings.HasPrefix(line, directive) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, directive)), true
}

// chainOrder はユニットを親子関係に従ってチェーン順に並べる。
// 各ユニットは親が必ず1つ以下であるため、親を訪問済みになったユニットから
// 順に選んでいけばよい。同時に訪問可能なユニット（分岐した子同士）は
// 識別子の昇順で選ぶ。入力の順序に関わらず結果は決定的になる。
func chainOrder(units []*domain.MigrationUnit) ([]*domain.MigrationUnit, error) {
	if len(units) == 0 {
		return nil, nil
	}

	byRevision := make(map[string]*domain.MigrationUnit, len(units))
	for _, unit := range units {
		if _, exists := byRevision[unit.Revision]; exists {
			return nil, fmt.Errorf("%w: duplicate revision %s", domain.ErrRegistryCorrupted, unit.Revision)
		}
		byRevision[unit.Revision] = unit
	}

	children := make(map[string][]string)
	var ready []string
	for _, unit := range units {
		if unit.Parent == "" {
			ready = append(ready, unit.Revision)
			continue
		}
		if _, exists := byRevision[unit.Parent]; !exists {
			return nil, fmt.Errorf("%w: revision %s references unknown parent %s", domain.ErrRegistryCorrupted, unit.Revision, unit.Parent)
		}
		children[unit.Parent] = append(children[unit.Parent], unit.Revision)
	}

	ordered := make([]*domain.MigrationUnit, 0, len(units))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byRevision[next])
		ready = append(ready, children[next]...)
	}

	if len(ordered) != len(units) {
		return nil, fmt.Errorf("%w: cycle detected in revision chain", domain.ErrRegistryCorrupted)
	}
	return ordered, nil
}
