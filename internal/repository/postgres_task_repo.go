package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/taskbook/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 取得系クエリはグループ・作成者・担当者を明示的にJOINしてハイドレートする。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// タスク + グループ + 作成者 + 担当者のSELECT句。
// 担当者は未設定の場合があるためLEFT JOINで取得する。
const taskColumns = `
	t.id, t.group_id, t.title, t.description, t.deadline,
	t.created_by_user_id, t.assigned_to_user_id, t.date_time_assigned, t.date_time_completed,
	g.id, g.name, g.is_active,
	cu.id, cu.user_name, cu.email, cu.first_name, cu.last_name,
	au.id, au.user_name, au.email, au.first_name, au.last_name`

const taskJoins = `
	 JOIN groups g ON g.id = t.group_id
	 JOIN users cu ON cu.id = t.created_by_user_id
	 LEFT JOIN users au ON au.id = t.assigned_to_user_id`

// scanTask はタスク行とJOINした関連行を読み取る。
// 担当者が未設定の場合、AssignedToUserはnilになる。
func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	task := &model.Task{Group: &model.Group{}, CreatedByUser: &model.User{}}
	var (
		assignedTo     sql.NullString
		assignedAt     sql.NullTime
		completedAt    sql.NullTime
		auID, auName   sql.NullString
		auEmail        sql.NullString
		auFirst, auLast sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.GroupID, &task.Title, &task.Description, &task.Deadline,
		&task.CreatedByUserID, &assignedTo, &assignedAt, &completedAt,
		&task.Group.ID, &task.Group.Name, &task.Group.IsActive,
		&task.CreatedByUser.ID, &task.CreatedByUser.UserName, &task.CreatedByUser.Email,
		&task.CreatedByUser.FirstName, &task.CreatedByUser.LastName,
		&auID, &auName, &auEmail, &auFirst, &auLast,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		task.AssignedToUserID = &assignedTo.String
	}
	if assignedAt.Valid {
		task.DateTimeAssigned = &assignedAt.Time
	}
	if completedAt.Valid {
		task.DateTimeCompleted = &completedAt.Time
	}
	if auID.Valid {
		task.AssignedToUser = &model.User{
			ID:        auID.String,
			UserName:  auName.String,
			Email:     auEmail.String,
			FirstName: auFirst.String,
			LastName:  auLast.String,
		}
	}

	return task, nil
}

// queryTasks はタスク一覧クエリを実行して結果を読み取る。
func (r *PostgresTaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}
	return tasks, nil
}

// ListByGroup はグループ内の全タスクを返す。
func (r *PostgresTaskRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT`+taskColumns+`
		 FROM tasks t`+taskJoins+`
		 WHERE t.group_id = $1
		 ORDER BY t.deadline ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("グループタスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+taskColumns+`
		 FROM tasks t`+taskJoins+`
		 WHERE t.id = $1`,
		id,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	return task, nil
}

// Create はタスクを作成する。担当者・完了日時は未設定で挿入する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, group_id, title, description, deadline, created_by_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, task.GroupID, task.Title, task.Description, task.Deadline, task.CreatedByUserID,
	)
	if err != nil {
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// ExistsCreator は指定ユーザーがタスクの作成者であるかを確認する。
func (r *PostgresTaskRepo) ExistsCreator(ctx context.Context, userID, taskID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM tasks WHERE id = $1 AND created_by_user_id = $2
		 )`,
		taskID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("作成者チェックに失敗しました: %w", err)
	}
	return exists, nil
}

// Update はタイトル・説明・締切を更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresTaskRepo) Update(ctx context.Context, id, title, description string, deadline time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $2, description = $3, deadline = $4 WHERE id = $1`,
		id, title, description, deadline,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は指定IDのタスクを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByUser はユーザーが関係する全グループのタスクを返す。
// メンバーシップの種別（所有者・メンバー）は問わない。
func (r *PostgresTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT DISTINCT`+taskColumns+`
		 FROM user_groups ug
		 JOIN tasks t ON t.group_id = ug.group_id`+taskJoins+`
		 WHERE ug.user_id = $1
		 ORDER BY t.deadline ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザータスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// FindUserTask はユーザーが関係するグループ内のタスクを1件取得する。
// 見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindUserTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT DISTINCT`+taskColumns+`
		 FROM user_groups ug
		 JOIN tasks t ON t.group_id = ug.group_id`+taskJoins+`
		 WHERE ug.user_id = $1 AND t.id = $2`,
		userID, taskID,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザータスクの取得に失敗しました: %w", err)
	}
	return task, nil
}

// ListAssignmentsByUser はユーザーが関係するグループ内の
// 担当者設定済みかつ未完了のタスクを返す。
func (r *PostgresTaskRepo) ListAssignmentsByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT DISTINCT`+taskColumns+`
		 FROM user_groups ug
		 JOIN tasks t ON t.group_id = ug.group_id`+taskJoins+`
		 WHERE ug.user_id = $1
		   AND t.assigned_to_user_id IS NOT NULL
		   AND t.date_time_completed IS NULL
		 ORDER BY t.deadline ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("担当タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// FindAssignment はユーザーが関係するグループ内の
// 担当者設定済みかつ未完了のタスクを1件取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindAssignment(ctx context.Context, userID, taskID string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT DISTINCT`+taskColumns+`
		 FROM user_groups ug
		 JOIN tasks t ON t.group_id = ug.group_id`+taskJoins+`
		 WHERE ug.user_id = $1 AND t.id = $2
		   AND t.assigned_to_user_id IS NOT NULL
		   AND t.date_time_completed IS NULL`,
		userID, taskID,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("担当タスクの取得に失敗しました: %w", err)
	}
	return task, nil
}

// Assign は担当者と割当日時を設定する。対象が存在しない場合はfalseを返す。
// 割当日時はローカルクロックではなくストアのnow()を使用する。
func (r *PostgresTaskRepo) Assign(ctx context.Context, taskID, assigneeUserID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET assigned_to_user_id = $2, date_time_assigned = now() WHERE id = $1`,
		taskID, assigneeUserID,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの割当に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("割当結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Unassign は担当者と割当日時を同時に解除する。対象が存在しない場合はfalseを返す。
func (r *PostgresTaskRepo) Unassign(ctx context.Context, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET assigned_to_user_id = NULL, date_time_assigned = NULL WHERE id = $1`,
		taskID,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの割当解除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("割当解除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Complete は完了日時を設定する。対象が存在しない場合はfalseを返す。
func (r *PostgresTaskRepo) Complete(ctx context.Context, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET date_time_completed = now() WHERE id = $1`,
		taskID,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの完了記録に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("完了記録結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
