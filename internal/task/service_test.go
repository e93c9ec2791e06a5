package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskbook/internal/model"
)

// --- モック定義 ---

// mockTaskRepo はrepository.TaskRepositoryのモック実装。
type mockTaskRepo struct {
	listByGroupFn           func(ctx context.Context, groupID string) ([]*model.Task, error)
	findByIDFn              func(ctx context.Context, id string) (*model.Task, error)
	createFn                func(ctx context.Context, task *model.Task) error
	existsCreatorFn         func(ctx context.Context, userID, taskID string) (bool, error)
	updateFn                func(ctx context.Context, id, title, description string, deadline time.Time) (bool, error)
	deleteFn                func(ctx context.Context, id string) (bool, error)
	listByUserFn            func(ctx context.Context, userID string) ([]*model.Task, error)
	findUserTaskFn          func(ctx context.Context, userID, taskID string) (*model.Task, error)
	listAssignmentsByUserFn func(ctx context.Context, userID string) ([]*model.Task, error)
	findAssignmentFn        func(ctx context.Context, userID, taskID string) (*model.Task, error)
	assignFn                func(ctx context.Context, taskID, assigneeUserID string) (bool, error)
	unassignFn              func(ctx context.Context, taskID string) (bool, error)
	completeFn              func(ctx context.Context, taskID string) (bool, error)
}

func (m *mockTaskRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.Task, error) {
	if m.listByGroupFn != nil {
		return m.listByGroupFn(ctx, groupID)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) ExistsCreator(ctx context.Context, userID, taskID string) (bool, error) {
	if m.existsCreatorFn != nil {
		return m.existsCreatorFn(ctx, userID, taskID)
	}
	return false, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, id, title, description string, deadline time.Time) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, title, description, deadline)
	}
	return true, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindUserTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if m.findUserTaskFn != nil {
		return m.findUserTaskFn(ctx, userID, taskID)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListAssignmentsByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	if m.listAssignmentsByUserFn != nil {
		return m.listAssignmentsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindAssignment(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if m.findAssignmentFn != nil {
		return m.findAssignmentFn(ctx, userID, taskID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Assign(ctx context.Context, taskID, assigneeUserID string) (bool, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, taskID, assigneeUserID)
	}
	return true, nil
}

func (m *mockTaskRepo) Unassign(ctx context.Context, taskID string) (bool, error) {
	if m.unassignFn != nil {
		return m.unassignFn(ctx, taskID)
	}
	return true, nil
}

func (m *mockTaskRepo) Complete(ctx context.Context, taskID string) (bool, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, taskID)
	}
	return true, nil
}

// --- CreateTask テスト ---

func TestService_CreateTask_Success(t *testing.T) {
	deadline := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

	var created *model.Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{
				ID:              id,
				GroupID:         "group-1",
				Title:           "buy groceries",
				Description:     "milk and eggs",
				Deadline:        deadline,
				CreatedByUserID: "user-1",
				Group:           &model.Group{ID: "group-1", Name: "weekend-project", IsActive: true},
				CreatedByUser:   &model.User{ID: "user-1", UserName: "alice"},
			}, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.CreateTask(context.Background(), "group-1", "buy groceries", "milk and eggs", deadline, "user-1")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if created == nil {
		t.Fatal("Create was not called")
	}
	if created.ID == "" {
		t.Error("task ID should be generated")
	}
	// 新規タスクは担当者未設定で作成されること
	if created.AssignedToUserID != nil {
		t.Error("new task should not have an assignee")
	}
	if created.DateTimeAssigned != nil {
		t.Error("new task should not have an assignment timestamp")
	}
	if created.DateTimeCompleted != nil {
		t.Error("new task should not have a completion timestamp")
	}

	// リロードされたタスクが返ること
	if task == nil {
		t.Fatal("CreateTask() returned nil task")
	}
	if task.Group == nil || task.CreatedByUser == nil {
		t.Error("reloaded task should hydrate group and creator")
	}
}

func TestService_CreateTask_RepoError(t *testing.T) {
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			return errors.New("connection refused")
		},
	}

	svc := NewService(repo)

	if _, err := svc.CreateTask(context.Background(), "group-1", "buy groceries", "", time.Now(), "user-1"); err == nil {
		t.Fatal("CreateTask() should return error on repo failure")
	}
}

// リポジトリで付加された操作メッセージがサービス層で二重にラップされないこと。
func TestService_GetTask_RepoErrorPassesThrough(t *testing.T) {
	repoErr := fmt.Errorf("タスクの取得に失敗しました: %w", errors.New("connection refused"))
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Task, error) {
			return nil, repoErr
		},
	}

	svc := NewService(repo)

	_, err := svc.GetTask(context.Background(), "task-1")
	if !errors.Is(err, repoErr) {
		t.Fatalf("GetTask() error = %v, want repo error passed through", err)
	}
	if got := strings.Count(err.Error(), "タスクの取得に失敗しました"); got != 1 {
		t.Errorf("operation message appears %d times in %q, want 1", got, err.Error())
	}
}

// --- UpdateTask テスト ---

func TestService_UpdateTask_Success(t *testing.T) {
	deadline := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	repo := &mockTaskRepo{
		updateFn: func(ctx context.Context, id, title, description string, d time.Time) (bool, error) {
			if id != "task-1" {
				t.Errorf("update id = %q, want %q", id, "task-1")
			}
			if title != "new title" {
				t.Errorf("update title = %q, want %q", title, "new title")
			}
			if !d.Equal(deadline) {
				t.Errorf("update deadline = %v, want %v", d, deadline)
			}
			return true, nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, Title: "new title", Deadline: deadline}, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.UpdateTask(context.Background(), "task-1", "new title", "desc", deadline)
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if task == nil {
		t.Fatal("UpdateTask() returned nil for existing task")
	}
	if task.Title != "new title" {
		t.Errorf("title = %q, want %q", task.Title, "new title")
	}
}

// 存在しないタスクの更新はエラーではなくnilを返すこと。
func TestService_UpdateTask_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		updateFn: func(ctx context.Context, id, title, description string, d time.Time) (bool, error) {
			return false, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.UpdateTask(context.Background(), "missing", "title", "", time.Now())
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if task != nil {
		t.Errorf("UpdateTask() = %v, want nil for missing task", task)
	}
}

// --- DeleteTask テスト ---

func TestService_DeleteTask(t *testing.T) {
	tests := []struct {
		name    string
		deleted bool
	}{
		{name: "存在するタスク", deleted: true},
		{name: "存在しないタスク", deleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTaskRepo{
				deleteFn: func(ctx context.Context, id string) (bool, error) {
					return tt.deleted, nil
				},
			}

			svc := NewService(repo)

			deleted, err := svc.DeleteTask(context.Background(), "task-1")
			if err != nil {
				t.Fatalf("DeleteTask() error = %v", err)
			}
			if deleted != tt.deleted {
				t.Errorf("DeleteTask() = %v, want %v", deleted, tt.deleted)
			}
		})
	}
}

// --- AssignTask テスト ---

func TestService_AssignTask_Success(t *testing.T) {
	assignedAt := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	assignee := "user-2"

	var gotTaskID, gotAssignee string
	repo := &mockTaskRepo{
		assignFn: func(ctx context.Context, taskID, assigneeUserID string) (bool, error) {
			gotTaskID = taskID
			gotAssignee = assigneeUserID
			return true, nil
		},
		findAssignmentFn: func(ctx context.Context, userID, taskID string) (*model.Task, error) {
			return &model.Task{
				ID:               taskID,
				GroupID:          "group-1",
				Title:            "buy groceries",
				AssignedToUserID: &assignee,
				DateTimeAssigned: &assignedAt,
				AssignedToUser:   &model.User{ID: assignee, UserName: "bob"},
			}, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.AssignTask(context.Background(), "user-2", "task-1")
	if err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}

	if gotTaskID != "task-1" || gotAssignee != "user-2" {
		t.Errorf("Assign(%q, %q), want Assign(%q, %q)", gotTaskID, gotAssignee, "task-1", "user-2")
	}

	if task == nil {
		t.Fatal("AssignTask() returned nil for existing task")
	}
	// 担当者と割当日時が同時に設定されること
	if task.AssignedToUserID == nil || *task.AssignedToUserID != "user-2" {
		t.Error("assignee should be set after assignment")
	}
	if task.DateTimeAssigned == nil {
		t.Error("assignment timestamp should be set after assignment")
	}
}

// 存在しないタスクの割当はエラーではなくnilを返すこと。
func TestService_AssignTask_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		assignFn: func(ctx context.Context, taskID, assigneeUserID string) (bool, error) {
			return false, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.AssignTask(context.Background(), "user-2", "missing")
	if err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}
	if task != nil {
		t.Errorf("AssignTask() = %v, want nil for missing task", task)
	}
}

// --- UnassignTask テスト ---

func TestService_UnassignTask(t *testing.T) {
	unassigned := false
	repo := &mockTaskRepo{
		unassignFn: func(ctx context.Context, taskID string) (bool, error) {
			unassigned = true
			return true, nil
		},
	}

	svc := NewService(repo)

	ok, err := svc.UnassignTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("UnassignTask() error = %v", err)
	}
	if !ok {
		t.Error("UnassignTask() = false, want true")
	}
	if !unassigned {
		t.Error("Unassign was not called")
	}
}

// --- CompleteTask テスト ---

func TestService_CompleteTask(t *testing.T) {
	completed := false
	repo := &mockTaskRepo{
		completeFn: func(ctx context.Context, taskID string) (bool, error) {
			completed = true
			return true, nil
		},
	}

	svc := NewService(repo)

	ok, err := svc.CompleteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !ok {
		t.Error("CompleteTask() = false, want true")
	}
	if !completed {
		t.Error("Complete was not called")
	}
}

func TestService_CompleteTask_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		completeFn: func(ctx context.Context, taskID string) (bool, error) {
			return false, nil
		},
	}

	svc := NewService(repo)

	ok, err := svc.CompleteTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if ok {
		t.Error("CompleteTask() = true, want false for missing task")
	}
}

// --- 取得系 テスト ---

func TestService_GetUserTask_NotVisible(t *testing.T) {
	repo := &mockTaskRepo{
		findUserTaskFn: func(ctx context.Context, userID, taskID string) (*model.Task, error) {
			// 関係しないグループのタスクはリポジトリがnilを返す
			return nil, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.GetUserTask(context.Background(), "stranger", "task-1")
	if err != nil {
		t.Fatalf("GetUserTask() error = %v", err)
	}
	if task != nil {
		t.Errorf("GetUserTask() = %v, want nil for unrelated user", task)
	}
}

func TestService_ListUserAssignments(t *testing.T) {
	assignee := "user-2"
	assignedAt := time.Now()

	repo := &mockTaskRepo{
		listAssignmentsByUserFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return []*model.Task{
				{ID: "task-1", AssignedToUserID: &assignee, DateTimeAssigned: &assignedAt},
			}, nil
		},
	}

	svc := NewService(repo)

	tasks, err := svc.ListUserAssignments(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListUserAssignments() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("ListUserAssignments() length = %d, want 1", len(tasks))
	}
	// 一覧には担当者設定済みかつ未完了のタスクのみ含まれること
	if !tasks[0].IsActiveAssignment() {
		t.Error("listed task should be an active assignment")
	}
}

func TestService_GetUserAssignment_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		findAssignmentFn: func(ctx context.Context, userID, taskID string) (*model.Task, error) {
			return nil, nil
		},
	}

	svc := NewService(repo)

	task, err := svc.GetUserAssignment(context.Background(), "user-1", "task-1")
	if err != nil {
		t.Fatalf("GetUserAssignment() error = %v", err)
	}
	if task != nil {
		t.Errorf("GetUserAssignment() = %v, want nil", task)
	}
}

// --- IsTaskCreator テスト ---

func TestService_IsTaskCreator(t *testing.T) {
	repo := &mockTaskRepo{
		existsCreatorFn: func(ctx context.Context, userID, taskID string) (bool, error) {
			return userID == "creator-1", nil
		},
	}

	svc := NewService(repo)

	isCreator, err := svc.IsTaskCreator(context.Background(), "creator-1", "task-1")
	if err != nil {
		t.Fatalf("IsTaskCreator() error = %v", err)
	}
	if !isCreator {
		t.Error("IsTaskCreator() = false, want true for creator")
	}

	isCreator, err = svc.IsTaskCreator(context.Background(), "other", "task-1")
	if err != nil {
		t.Fatalf("IsTaskCreator() error = %v", err)
	}
	if isCreator {
		t.Error("IsTaskCreator() = true, want false for non-creator")
	}
}
