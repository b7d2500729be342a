package domain

import "time"

// MigrationStatus はリビジョンの適用状態を表す
type MigrationStatus string

const (
	MigrationStatusPending  MigrationStatus = "pending"
	MigrationStatusApplied  MigrationStatus = "applied"
	MigrationStatusOrphaned MigrationStatus = "orphaned"
)

// MigrationUnit は1つのマイグレーション単位を表すドメインモデル
type MigrationUnit struct {
	Revision string // リビジョン識別子（12桁の16進数）
	Parent   string // 親リビジョンの識別子（ルートの場合は空）
	Label    string // 人間可読なラベル
	FilePath string // マイグレーションファイルのパス
	UpSQL    string // 適用時に実行するSQL
	DownSQL  string // 巻き戻し時に実行するSQL（空の場合は不可逆）
}

// Reversible は巻き戻しSQLを持つかどうかを返す
func (u *MigrationUnit) Reversible() bool {
	return u.DownSQL != ""
}

// AppliedRevision は台帳に記録された適用済みリビジョンを表す
type AppliedRevision struct {
	Seq       uint      // 台帳への挿入順
	Revision  string    // リビジョン識別子
	AppliedAt time.Time // 適用日時
}

// ReconciliationReport はレジストリと台帳の照合結果を表す
type ReconciliationReport struct {
	Applied   []*MigrationUnit     // 適用済みユニット（チェーン順）
	Pending   []*MigrationUnit     // 未適用ユニット（チェーン順）
	Orphaned  []string             // 台帳にのみ存在する識別子（昇順）
	AppliedAt map[string]time.Time // リビジョン識別子から適用日時への対応
}

// HasPending は未適用のユニットが存在するかどうかを返す
func (r *ReconciliationReport) HasPending() bool {
	return len(r.Pending) > 0
}

// HistoryEntry は適用履歴の1件を表す
type HistoryEntry struct {
	Revision  string
	Label     string // レジストリに存在しない場合は空
	AppliedAt time.Time
	Orphaned  bool // 台帳にのみ存在するリビジョン
}
