package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"atb-backend/internal/domain"

	"gorm.io/gorm"
)

// SchemaRevisionModel はschema_revisionsテーブル（マイグレーション台帳）のモデル。
// seqは挿入順を保持し、最大のseqを持つ行が現在のヘッドとなる。
type SchemaRevisionModel struct {
	Seq       uint      `gorm:"column:seq;primaryKey;autoIncrement"`
	Revision  string    `gorm:"column:revision;type:varchar(32);not null;uniqueIndex:uk_schema_revisions_revision"`
	AppliedAt time.Time `gorm:"column:applied_at;not null;autoCreateTime"`
}

// TableName はテーブル名を指定。
func (SchemaRevisionModel) TableName() string {
	return "schema_revisions"
}

// MigrationRepository はマイグレーション台帳を管理するリポジトリ。
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository は新しいMigrationRepositoryを生成する。
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// HasLedger は台帳テーブルが存在するか確認する。
func (r *MigrationRepository) HasLedger(ctx context.Context) bool {
	return r.db.WithContext(ctx).Migrator().HasTable(&SchemaRevisionModel{})
}

// EnsureLedger は台帳テーブルが存在しない場合に作成する。
func (r *MigrationRepository) EnsureLedger(ctx context.Context) error {
	if r.HasLedger(ctx) {
		return nil
	}
	if err := r.db.WithContext(ctx).Migrator().CreateTable(&SchemaRevisionModel{}); err != nil {
		slog.ErrorContext(ctx, "failed to create ledger table",
			"operation", "ensure_ledger",
			"error", err,
		)
		return err
	}
	return nil
}

// FindAllApplied は適用済みリビジョン一覧を台帳への挿入順で取得する。
// 台帳テーブルが存在しない場合はdomain.ErrLedgerUninitializedを返す。
// 台帳が空であることとテーブルが無いことは区別される。
func (r *MigrationRepository) FindAllApplied(ctx context.Context) ([]*domain.AppliedRevision, error) {
	if !r.HasLedger(ctx) {
		return nil, domain.ErrLedgerUninitialized
	}

	var models []SchemaRevisionModel
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find applied revisions",
			"operation", "find_all_applied",
			"error", err,
		)
		return nil, err
	}

	revisions := make([]*domain.AppliedRevision, len(models))
	for i, model := range models {
		revisions[i] = &domain.AppliedRevision{
			Seq:       model.Seq,
			Revision:  model.Revision,
			AppliedAt: model.AppliedAt,
		}
	}
	return revisions, nil
}

// CurrentHead は最後に適用されたリビジョンを取得する（台帳が空の場合はnil）。
func (r *MigrationRepository) CurrentHead(ctx context.Context) (*domain.AppliedRevision, error) {
	if !r.HasLedger(ctx) {
		return nil, domain.ErrLedgerUninitialized
	}

	var model SchemaRevisionModel
	err := r.db.WithContext(ctx).Order("seq DESC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find current head",
			"operation", "current_head",
			"error", err,
		)
		return nil, err
	}

	return &domain.AppliedRevision{
		Seq:       model.Seq,
		Revision:  model.Revision,
		AppliedAt: model.AppliedAt,
	}, nil
}
