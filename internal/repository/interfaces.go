// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/taskbook/internal/model"
)

// GroupRepository はグループデータの永続化インターフェース。
type GroupRepository interface {
	// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Group, error)

	// CreateWithOwner はグループと所有者メンバーシップを同一トランザクションで作成する。
	CreateWithOwner(ctx context.Context, group *model.Group, ownerUserID string) error

	// Update はグループの名前とアクティブフラグを更新する。
	// 更新対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, id, name string, isActive bool) (bool, error)

	// Delete は指定IDのグループを削除する。削除対象が存在しない場合はfalseを返す。
	// 関連するuser_groups、tasksはCASCADE削除される。
	Delete(ctx context.Context, id string) (bool, error)
}

// UserGroupRepository はメンバーシップ（ユーザーとグループの関係）の永続化インターフェース。
// 取得系は関連するGroup・UserをJOINでハイドレートして返す。
type UserGroupRepository interface {
	// ListOwnedByUser はユーザーが所有者であるメンバーシップ一覧を返す。Groupをハイドレートする。
	ListOwnedByUser(ctx context.Context, userID string) ([]*model.UserGroup, error)

	// FindOwned は所有者メンバーシップを1件取得する。見つからない場合はnilを返す。
	FindOwned(ctx context.Context, userID, groupID string) (*model.UserGroup, error)

	// ExistsOwner は所有者メンバーシップの存在を確認する。
	ExistsOwner(ctx context.Context, userID, groupID string) (bool, error)

	// ListMembersByGroup はグループのメンバー種別メンバーシップ一覧を返す。
	// GroupとUserをハイドレートする。
	ListMembersByGroup(ctx context.Context, groupID string) ([]*model.UserGroup, error)

	// Find は種別を問わずメンバーシップを1件取得する。見つからない場合はnilを返す。
	// GroupとUserをハイドレートする。
	Find(ctx context.Context, userID, groupID string) (*model.UserGroup, error)

	// Create はメンバーシップを作成する。
	Create(ctx context.Context, ug *model.UserGroup) error

	// Delete はメンバーシップを削除する。対象が存在しない場合は何もしない。
	Delete(ctx context.Context, userID, groupID string) error

	// ListByUser はユーザーの全メンバーシップ（種別問わず）を返す。
	// GroupとUserをハイドレートする。
	ListByUser(ctx context.Context, userID string) ([]*model.UserGroup, error)

	// ExistsAny は種別を問わずメンバーシップの存在を確認する。
	ExistsAny(ctx context.Context, userID, groupID string) (bool, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// 取得系は関連するGroup・作成者・担当者をJOINでハイドレートして返す。
type TaskRepository interface {
	// ListByGroup はグループ内の全タスクを返す。
	ListByGroup(ctx context.Context, groupID string) ([]*model.Task, error)

	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// ExistsCreator は指定ユーザーがタスクの作成者であるかを確認する。
	ExistsCreator(ctx context.Context, userID, taskID string) (bool, error)

	// Update はタイトル・説明・締切を更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, id, title, description string, deadline time.Time) (bool, error)

	// Delete は指定IDのタスクを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// ListByUser はユーザーが関係する全グループのタスクを返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Task, error)

	// FindUserTask はユーザーが関係するグループ内のタスクを1件取得する。
	// 見つからない場合はnilを返す。
	FindUserTask(ctx context.Context, userID, taskID string) (*model.Task, error)

	// ListAssignmentsByUser はユーザーが関係するグループ内の
	// 担当者設定済みかつ未完了のタスクを返す。
	ListAssignmentsByUser(ctx context.Context, userID string) ([]*model.Task, error)

	// FindAssignment はユーザーが関係するグループ内の
	// 担当者設定済みかつ未完了のタスクを1件取得する。見つからない場合はnilを返す。
	FindAssignment(ctx context.Context, userID, taskID string) (*model.Task, error)

	// Assign は担当者と割当日時（ストア側のnow()）を設定する。
	// 対象が存在しない場合はfalseを返す。
	Assign(ctx context.Context, taskID, assigneeUserID string) (bool, error)

	// Unassign は担当者と割当日時を同時に解除する。対象が存在しない場合はfalseを返す。
	Unassign(ctx context.Context, taskID string) (bool, error)

	// Complete は完了日時（ストア側のnow()）を設定する。対象が存在しない場合はfalseを返す。
	Complete(ctx context.Context, taskID string) (bool, error)
}

// Clock はストアの現在時刻を取得するインターフェース。
// ローカルクロックのずれの影響を受けないタイムスタンプが必要な場合に使用する。
type Clock interface {
	// ServerTime はストアの現在時刻を返す。
	ServerTime(ctx context.Context) (time.Time, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
