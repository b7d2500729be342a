package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"atb-backend/internal/domain"

	"gorm.io/gorm"
)

// LedgerRepository はマイグレーション台帳を管理するリポジトリのインターフェース。
type LedgerRepository interface {
	FindAllApplied(ctx context.Context) ([]*domain.AppliedRevision, error)
	CurrentHead(ctx context.Context) (*domain.AppliedRevision, error)
	HasLedger(ctx context.Context) bool
	EnsureLedger(ctx context.Context) error
}

// MigrationService はマイグレーションの照合と実行のビジネスロジックを提供する。
type MigrationService struct {
	registry *MigrationRegistry
	repo     LedgerRepository
	db       *gorm.DB
}

// NewMigrationService は新しいMigrationServiceを生成する。
func NewMigrationService(registry *MigrationRegistry, repo LedgerRepository, db *gorm.DB) *MigrationService {
	return &MigrationService{
		registry: registry,
		repo:     repo,
		db:       db,
	}
}

// Reconcile はレジストリのユニット列と台帳の適用済みリビジョンを突き合わせる。
// レジストリの各ユニットは適用済みか未適用のどちらか一方に必ず分類され、
// 台帳にのみ存在する識別子は孤児として昇順に列挙される。
// unitsはチェーン順であることを前提とし、分類後もその順序を保つ。
func Reconcile(units []*domain.MigrationUnit, applied []*domain.AppliedRevision) *domain.ReconciliationReport {
	appliedAt := make(map[string]time.Time, len(applied))
	for _, rev := range applied {
		appliedAt[rev.Revision] = rev.AppliedAt
	}

	report := &domain.ReconciliationReport{AppliedAt: appliedAt}
	known := make(map[string]struct{}, len(units))
	for _, unit := range units {
		known[unit.Revision] = struct{}{}
		if _, ok := appliedAt[unit.Revision]; ok {
			report.Applied = append(report.Applied, unit)
		} else {
			report.Pending = append(report.Pending, unit)
		}
	}

	for _, rev := range applied {
		if _, ok := known[rev.Revision]; !ok {
			report.Orphaned = append(report.Orphaned, rev.Revision)
		}
	}
	sort.Strings(report.Orphaned)

	return report
}

// Status は現在の照合結果を取得する。状態を変更しない。
func (s *MigrationService) Status(ctx context.Context) (*domain.ReconciliationReport, error) {
	units, err := s.registry.LoadUnits()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load migration units",
			"operation", "status",
			"error", err,
		)
		return nil, err
	}

	applied, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		return nil, err
	}

	return Reconcile(units, applied), nil
}

// Apply は未適用のユニットをチェーン順に適用する。
// targetが指定された場合はそのリビジョンまで（当該リビジョンを含めて）適用する。
// 各ユニットは独立したトランザクションで実行され、失敗したユニットのみが
// ロールバックされる。適用に成功したユニットの一覧を返す。
func (s *MigrationService) Apply(ctx context.Context, target string) ([]*domain.MigrationUnit, error) {
	units, err := s.registry.LoadUnits()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load migration units",
			"operation", "apply",
			"error", err,
		)
		return nil, err
	}

	// 初回適用時に台帳テーブルを作成する
	if err := s.repo.EnsureLedger(ctx); err != nil {
		return nil, fmt.Errorf("%w: initializing ledger: %v", domain.ErrMigrationFailed, err)
	}

	applied, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		return nil, err
	}

	report := Reconcile(units, applied)

	var toApply []*domain.MigrationUnit
	if target == "" {
		toApply = report.Pending
	} else {
		inRegistry := false
		for _, unit := range units {
			if unit.Revision == target {
				inRegistry = true
				break
			}
		}
		if !inRegistry {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRevision, target)
		}
		if _, ok := report.AppliedAt[target]; ok {
			// ターゲットは既に適用済み
			return nil, nil
		}
		for i, unit := range report.Pending {
			if unit.Revision == target {
				toApply = report.Pending[:i+1]
				break
			}
		}
	}

	for i, unit := range toApply {
		if err := s.applyUnit(ctx, unit); err != nil {
			slog.ErrorContext(ctx, "failed to apply migration",
				"operation", "apply",
				"revision", unit.Revision,
				"error", err,
			)
			return toApply[:i], fmt.Errorf("%w: revision %s: %v", domain.ErrMigrationFailed, unit.Revision, err)
		}
		slog.InfoContext(ctx, "applied migration",
			"operation", "apply",
			"revision", unit.Revision,
			"label", unit.Label,
		)
	}

	return toApply, nil
}

// applyUnit は単一のユニットを適用する。
// SQLの実行と台帳への記録は同一トランザクション内で行う。
func (s *MigrationService) applyUnit(ctx context.Context, unit *domain.MigrationUnit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if unit.UpSQL != "" {
			if err := tx.Exec(unit.UpSQL).Error; err != nil {
				return fmt.Errorf("executing up SQL: %w", err)
			}
		}

		model := struct {
			Revision  string    `gorm:"column:revision"`
			AppliedAt time.Time `gorm:"column:applied_at"`
		}{
			Revision:  unit.Revision,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Table("schema_revisions").Create(&model).Error; err != nil {
			return fmt.Errorf("recording revision: %w", err)
		}

		return nil
	})
}

// Rollback は最後に適用されたユニットから順にsteps件を巻き戻す。
// 対象の中に台帳にのみ存在するリビジョンや巻き戻しSQLを持たないユニットが
// ある場合は、何も実行せずにエラーを返す。巻き戻したユニットの一覧を返す。
func (s *MigrationService) Rollback(ctx context.Context, steps int) ([]*domain.MigrationUnit, error) {
	if steps < 1 {
		steps = 1
	}

	units, err := s.registry.LoadUnits()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load migration units",
			"operation", "rollback",
			"error", err,
		)
		return nil, err
	}

	applied, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, nil
	}
	if steps > len(applied) {
		steps = len(applied)
	}

	byRevision := make(map[string]*domain.MigrationUnit, len(units))
	for _, unit := range units {
		byRevision[unit.Revision] = unit
	}

	// 実行前に対象の全件を検証する
	var toRevert []*domain.MigrationUnit
	for i := len(applied) - 1; i >= len(applied)-steps; i-- {
		rev := applied[i].Revision
		unit, ok := byRevision[rev]
		if !ok {
			return nil, fmt.Errorf("%w: revision %s is recorded in the ledger but missing from the registry", domain.ErrMigrationFailed, rev)
		}
		if !unit.Reversible() {
			return nil, fmt.Errorf("%w: revision %s has no down SQL", domain.ErrIrreversible, rev)
		}
		toRevert = append(toRevert, unit)
	}

	for i, unit := range toRevert {
		if err := s.revertUnit(ctx, unit); err != nil {
			slog.ErrorContext(ctx, "failed to revert migration",
				"operation", "rollback",
				"revision", unit.Revision,
				"error", err,
			)
			return toRevert[:i], fmt.Errorf("%w: revision %s: %v", domain.ErrMigrationFailed, unit.Revision, err)
		}
		slog.InfoContext(ctx, "reverted migration",
			"operation", "rollback",
			"revision", unit.Revision,
			"label", unit.Label,
		)
	}

	return toRevert, nil
}

// revertUnit は単一のユニットを巻き戻す。
// SQLの実行と台帳からの削除は同一トランザクション内で行う。
func (s *MigrationService) revertUnit(ctx context.Context, unit *domain.MigrationUnit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(unit.DownSQL).Error; err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		if err := tx.Exec("DELETE FROM schema_revisions WHERE revision = ?", unit.Revision).Error; err != nil {
			return fmt.Errorf("removing revision from ledger: %w", err)
		}
		return nil
	})
}

// History は適用履歴を新しい順にlimit件まで取得する。
// limitが0以下の場合は全件を返す。
func (s *MigrationService) History(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	units, err := s.registry.LoadUnits()
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.FindAllApplied(ctx)
	if err != nil {
		return nil, err
	}

	byRevision := make(map[string]*domain.MigrationUnit, len(units))
	for _, unit := range units {
		byRevision[unit.Revision] = unit
	}

	entries := make([]*domain.HistoryEntry, 0, len(applied))
	for i := len(applied) - 1; i >= 0; i-- {
		rev := applied[i]
		entry := &domain.HistoryEntry{
			Revision:  rev.Revision,
			AppliedAt: rev.AppliedAt,
		}
		if unit, ok := byRevision[rev.Revision]; ok {
			entry.Label = unit.Label
		} else {
			entry.Orphaned = true
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// Current は現在のヘッドリビジョンを取得する（何も適用されていない場合はnil）。
func (s *MigrationService) Current(ctx context.Context) (*domain.HistoryEntry, error) {
	head, err := s.repo.CurrentHead(ctx)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, nil
	}

	units, err := s.registry.LoadUnits()
	if err != nil {
		return nil, err
	}

	entry := &domain.HistoryEntry{
		Revision:  head.Revision,
		AppliedAt: head.AppliedAt,
	}
	for _, unit := range units {
		if unit.Revision == head.Revision {
			entry.Label = unit.Label
			return entry, nil
		}
	}
	entry.Orphaned = true
	return entry, nil
}
