package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskbook/internal/model"
)

// PostgresGroupRepo はPostgreSQLを使用したグループリポジトリ。
type PostgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo はPostgresGroupRepoを生成する。
func NewPostgresGroupRepo(db *sql.DB) *PostgresGroupRepo {
	return &PostgresGroupRepo{db: db}
}

// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByID(ctx context.Context, id string) (*model.Group, error) {
	group := &model.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_active FROM groups WHERE id = $1`,
		id,
	).Scan(&group.ID, &group.Name, &group.IsActive)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("グループの取得に失敗しました: %w", err)
	}

	return group, nil
}

// CreateWithOwner はグループと所有者メンバーシップを同一トランザクションで作成する。
func (r *PostgresGroupRepo) CreateWithOwner(ctx context.Context, group *model.Group, ownerUserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// グループを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, is_active) VALUES ($1, $2, $3)`,
		group.ID, group.Name, group.IsActive,
	)
	if err != nil {
		return fmt.Errorf("グループの作成に失敗しました: %w", err)
	}

	// 所有者メンバーシップを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_id, relation_type) VALUES ($1, $2, $3)`,
		ownerUserID, group.ID, model.RelationOwner,
	)
	if err != nil {
		return fmt.Errorf("所有者メンバーシップの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update はグループの名前とアクティブフラグを更新する。
// 更新対象が存在しない場合はfalseを返す。
func (r *PostgresGroupRepo) Update(ctx context.Context, id, name string, isActive bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = $2, is_active = $3 WHERE id = $1`,
		id, name, isActive,
	)
	if err != nil {
		return false, fmt.Errorf("グループの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は指定IDのグループを削除する。削除対象が存在しない場合はfalseを返す。
// user_groupsとtasksはストアのCASCADE設定により削除される。
func (r *PostgresGroupRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM groups WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("グループの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ GroupRepository = (*PostgresGroupRepo)(nil)
