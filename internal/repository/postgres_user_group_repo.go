package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskbook/internal/model"
)

// PostgresUserGroupRepo はPostgreSQLを使用したメンバーシップリポジトリ。
// 取得系クエリはgroups・usersを明示的にJOINして関連エンティティをハイドレートする。
type PostgresUserGroupRepo struct {
	db *sql.DB
}

// NewPostgresUserGroupRepo はPostgresUserGroupRepoを生成する。
func NewPostgresUserGroupRepo(db *sql.DB) *PostgresUserGroupRepo {
	return &PostgresUserGroupRepo{db: db}
}

// メンバーシップ + グループのSELECT句。ListOwnedByUser/FindOwnedで使用する。
const userGroupWithGroupColumns = `
	ug.user_id, ug.group_id, ug.relation_type,
	g.id, g.name, g.is_active`

// メンバーシップ + グループ + ユーザーのSELECT句。
const userGroupWithGroupAndUserColumns = userGroupWithGroupColumns + `,
	u.id, u.user_name, u.email, u.first_name, u.last_name`

// scanWithGroup はメンバーシップ行とJOINしたグループ行を読み取る。
func scanWithGroup(row interface{ Scan(...any) error }) (*model.UserGroup, error) {
	ug := &model.UserGroup{Group: &model.Group{}}
	err := row.Scan(
		&ug.UserID, &ug.GroupID, &ug.RelationType,
		&ug.Group.ID, &ug.Group.Name, &ug.Group.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return ug, nil
}

// scanWithGroupAndUser はメンバーシップ行とJOINしたグループ・ユーザー行を読み取る。
func scanWithGroupAndUser(row interface{ Scan(...any) error }) (*model.UserGroup, error) {
	ug := &model.UserGroup{Group: &model.Group{}, User: &model.User{}}
	err := row.Scan(
		&ug.UserID, &ug.GroupID, &ug.RelationType,
		&ug.Group.ID, &ug.Group.Name, &ug.Group.IsActive,
		&ug.User.ID, &ug.User.UserName, &ug.User.Email, &ug.User.FirstName, &ug.User.LastName,
	)
	if err != nil {
		return nil, err
	}
	return ug, nil
}

// ListOwnedByUser はユーザーが所有者であるメンバーシップ一覧を返す。Groupをハイドレートする。
func (r *PostgresUserGroupRepo) ListOwnedByUser(ctx context.Context, userID string) ([]*model.UserGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+userGroupWithGroupColumns+`
		 FROM user_groups ug
		 JOIN groups g ON g.id = ug.group_id
		 WHERE ug.user_id = $1 AND ug.relation_type = $2
		 ORDER BY g.name ASC`,
		userID, model.RelationOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("所有グループ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []*model.UserGroup
	for rows.Next() {
		ug, err := scanWithGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("所有グループ行の読み取りに失敗しました: %w", err)
		}
		results = append(results, ug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("所有グループ一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// FindOwned は所有者メンバーシップを1件取得する。見つからない場合はnilを返す。
func (r *PostgresUserGroupRepo) FindOwned(ctx context.Context, userID, groupID string) (*model.UserGroup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+userGroupWithGroupColumns+`
		 FROM user_groups ug
		 JOIN groups g ON g.id = ug.group_id
		 WHERE ug.user_id = $1 AND ug.group_id = $2 AND ug.relation_type = $3`,
		userID, groupID, model.RelationOwner,
	)

	ug, err := scanWithGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("所有メンバーシップの取得に失敗しました: %w", err)
	}
	return ug, nil
}

// ExistsOwner は所有者メンバーシップの存在を確認する。
func (r *PostgresUserGroupRepo) ExistsOwner(ctx context.Context, userID, groupID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM user_groups
		     WHERE user_id = $1 AND group_id = $2 AND relation_type = $3
		 )`,
		userID, groupID, model.RelationOwner,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("所有者チェックに失敗しました: %w", err)
	}
	return exists, nil
}

// ListMembersByGroup はグループのメンバー種別メンバーシップ一覧を返す。
// GroupとUserをハイドレートする。
func (r *PostgresUserGroupRepo) ListMembersByGroup(ctx context.Context, groupID string) ([]*model.UserGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+userGroupWithGroupAndUserColumns+`
		 FROM user_groups ug
		 JOIN groups g ON g.id = ug.group_id
		 JOIN users u ON u.id = ug.user_id
		 WHERE ug.group_id = $1 AND ug.relation_type = $2
		 ORDER BY u.user_name ASC`,
		groupID, model.RelationMember,
	)
	if err != nil {
		return nil, fmt.Errorf("グループメンバー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []*model.UserGroup
	for rows.Next() {
		ug, err := scanWithGroupAndUser(rows)
		if err != nil {
			return nil, fmt.Errorf("グループメンバー行の読み取りに失敗しました: %w", err)
		}
		results = append(results, ug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("グループメンバー一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// Find は種別を問わずメンバーシップを1件取得する。見つからない場合はnilを返す。
func (r *PostgresUserGroupRepo) Find(ctx context.Context, userID, groupID string) (*model.UserGroup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+userGroupWithGroupAndUserColumns+`
		 FROM user_groups ug
		 JOIN groups g ON g.id = ug.group_id
		 JOIN users u ON u.id = ug.user_id
		 WHERE ug.user_id = $1 AND ug.group_id = $2`,
		userID, groupID,
	)

	ug, err := scanWithGroupAndUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メンバーシップの取得に失敗しました: %w", err)
	}
	return ug, nil
}

// Create はメンバーシップを作成する。
func (r *PostgresUserGroupRepo) Create(ctx context.Context, ug *model.UserGroup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_id, relation_type) VALUES ($1, $2, $3)`,
		ug.UserID, ug.GroupID, ug.RelationType,
	)
	if err != nil {
		return fmt.Errorf("メンバーシップの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はメンバーシップを削除する。対象が存在しない場合は何もしない。
func (r *PostgresUserGroupRepo) Delete(ctx context.Context, userID, groupID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_groups WHERE user_id = $1 AND group_id = $2`,
		userID, groupID,
	)
	if err != nil {
		return fmt.Errorf("メンバーシップの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByUser はユーザーの全メンバーシップ（種別問わず）を返す。
func (r *PostgresUserGroupRepo) ListByUser(ctx context.Context, userID string) ([]*model.UserGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+userGroupWithGroupAndUserColumns+`
		 FROM user_groups ug
		 JOIN groups g ON g.id = ug.group_id
		 JOIN users u ON u.id = ug.user_id
		 WHERE ug.user_id = $1
		 ORDER BY g.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("メンバーシップ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []*model.UserGroup
	for rows.Next() {
		ug, err := scanWithGroupAndUser(rows)
		if err != nil {
			return nil, fmt.Errorf("メンバーシップ行の読み取りに失敗しました: %w", err)
		}
		results = append(results, ug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メンバーシップ一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// ExistsAny は種別を問わずメンバーシップの存在を確認する。
func (r *PostgresUserGroupRepo) ExistsAny(ctx context.Context, userID, groupID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM user_groups WHERE user_id = $1 AND group_id = $2
		 )`,
		userID, groupID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("メンバーシップ存在チェックに失敗しました: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ UserGroupRepository = (*PostgresUserGroupRepo)(nil)
