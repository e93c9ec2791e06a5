// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskbook/internal/model"
	"github.com/hitoshi/taskbook/internal/repository"
)

// Service はタスク管理のサービス層。
// タスクのCRUD、ユーザースコープの一覧取得、割当ライフサイクルを提供する。
// ステートレスであり、複数ゴルーチンからの同時呼び出しに対して安全。
// 同一タスクへの同時変更は後勝ちとなる（楽観的並行性制御は行わない）。
//
// リポジトリのエラーは操作名を含む形で既にラップされているため、
// この層では再ラップせずそのまま伝播させる。
type Service struct {
	taskRepo repository.TaskRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{taskRepo: taskRepo}
}

// ListGroupTasks はグループ内の全タスクを返す。
func (s *Service) ListGroupTasks(ctx context.Context, groupID string) ([]*model.Task, error) {
	return s.taskRepo.ListByGroup(ctx, groupID)
}

// GetTask は指定IDのタスクを取得する。見つからない場合はエラーではなくnilを返す。
func (s *Service) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, taskID)
}

// CreateTask は新しいタスクを担当者未設定で作成し、リロードして返す。
// タイトル・説明の検証はAPI境界層の責務であり、ここでは再検証しない。
func (s *Service) CreateTask(ctx context.Context, groupID, title, description string, deadline time.Time, creatorUserID string) (*model.Task, error) {
	task := &model.Task{
		ID:              uuid.New().String(),
		GroupID:         groupID,
		Title:           title,
		Description:     description,
		Deadline:        deadline,
		CreatedByUserID: creatorUserID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	slog.Info("タスクを作成しました",
		slog.String("task_id", task.ID),
		slog.String("group_id", groupID),
		slog.String("creator_user_id", creatorUserID),
	)

	return s.GetTask(ctx, task.ID)
}

// IsTaskCreator は指定ユーザーがタスクの作成者であるかを返す。
// タスクの更新・削除の認可ゲートとして使用する。
func (s *Service) IsTaskCreator(ctx context.Context, userID, taskID string) (bool, error) {
	return s.taskRepo.ExistsCreator(ctx, userID, taskID)
}

// UpdateTask はタイトル・説明・締切を更新し、更新後のタスクを返す。
// タスクが存在しない場合はエラーではなくnilを返す。
// 作成者・担当者・完了日時はこの操作では変更されない。
func (s *Service) UpdateTask(ctx context.Context, taskID, title, description string, deadline time.Time) (*model.Task, error) {
	updated, err := s.taskRepo.Update(ctx, taskID, title, description, deadline)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, nil
	}

	return s.GetTask(ctx, taskID)
}

// DeleteTask はタスクを削除する。タスクが存在しない場合はエラーではなくfalseを返す。
func (s *Service) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	return s.taskRepo.Delete(ctx, taskID)
}

// ListUserTasks はユーザーが関係する全グループのタスクを返す。
func (s *Service) ListUserTasks(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.taskRepo.ListByUser(ctx, userID)
}

// GetUserTask はユーザーが関係するグループ内のタスクを1件取得する。
// ユーザーがタスクのグループに関係していない場合もnilを返す。
func (s *Service) GetUserTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.taskRepo.FindUserTask(ctx, userID, taskID)
}

// ListUserAssignments はユーザーが関係するグループ内の
// 担当者設定済みかつ未完了のタスクを返す。完了したタスクは含まれない。
func (s *Service) ListUserAssignments(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.taskRepo.ListAssignmentsByUser(ctx, userID)
}

// GetUserAssignment は担当者設定済みかつ未完了のタスクを1件取得する。
// 見つからない場合はnilを返す。
func (s *Service) GetUserAssignment(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.taskRepo.FindAssignment(ctx, userID, taskID)
}

// AssignTask は担当者と割当日時（ストアの現在時刻）を設定し、
// 割当後のアクティブな担当ビューをリロードして返す。
// タスクが存在しない場合はエラーではなくnilを返す。
// 既存の担当者は無条件に上書きされる（後勝ち）。
func (s *Service) AssignTask(ctx context.Context, assigneeUserID, taskID string) (*model.Task, error) {
	assigned, err := s.taskRepo.Assign(ctx, taskID, assigneeUserID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, nil
	}

	slog.Info("タスクを割り当てました",
		slog.String("task_id", taskID),
		slog.String("assignee_user_id", assigneeUserID),
	)

	return s.GetUserAssignment(ctx, assigneeUserID, taskID)
}

// UnassignTask は担当者と割当日時を同時に解除する。
// タスクが存在しない場合はエラーではなくfalseを返す。
// 担当者が未設定のタスクに対しても冪等に成功する。
func (s *Service) UnassignTask(ctx context.Context, taskID string) (bool, error) {
	return s.taskRepo.Unassign(ctx, taskID)
}

// CompleteTask は完了日時（ストアの現在時刻）を設定する。
// タスクが存在しない場合はエラーではなくfalseを返す。
// 完了したタスクは担当タスク一覧に表示されなくなる。
func (s *Service) CompleteTask(ctx context.Context, taskID string) (bool, error) {
	return s.taskRepo.Complete(ctx, taskID)
}
