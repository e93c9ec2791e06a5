package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskbook/internal/middleware"
	"github.com/hitoshi/taskbook/internal/model"
)

const taskTitleMaxLength = 200

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	ListGroupTasks(ctx context.Context, groupID string) ([]*model.Task, error)
	CreateTask(ctx context.Context, groupID, title, description string, deadline time.Time, creatorUserID string) (*model.Task, error)
	IsTaskCreator(ctx context.Context, userID, taskID string) (bool, error)
	UpdateTask(ctx context.Context, taskID, title, description string, deadline time.Time) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID string) (bool, error)
	ListUserTasks(ctx context.Context, userID string) ([]*model.Task, error)
	GetUserTask(ctx context.Context, userID, taskID string) (*model.Task, error)
	ListUserAssignments(ctx context.Context, userID string) ([]*model.Task, error)
	GetUserAssignment(ctx context.Context, userID, taskID string) (*model.Task, error)
	AssignTask(ctx context.Context, assigneeUserID, taskID string) (*model.Task, error)
	UnassignTask(ctx context.Context, taskID string) (bool, error)
	CompleteTask(ctx context.Context, taskID string) (bool, error)
}

// GroupRelationChecker はタスク操作の認可に必要なグループ関係の照会インターフェース。
// group.Serviceの部分集合として定義する。
type GroupRelationChecker interface {
	IsRelated(ctx context.Context, userID, groupID string) (bool, error)
}

// TaskMetrics はタスク操作のメトリクス記録インターフェース。
type TaskMetrics interface {
	RecordTaskCreated()
	RecordTaskAssigned()
	RecordTaskCompleted()
}

// TaskHandler はタスクと割当ライフサイクルのHTTPハンドラー。
type TaskHandler struct {
	service   TaskServiceInterface
	groups    GroupRelationChecker
	sanitizer TextSanitizer
	metrics   TaskMetrics
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface, groups GroupRelationChecker, sanitizer TextSanitizer, metrics TaskMetrics) *TaskHandler {
	return &TaskHandler{
		service:   service,
		groups:    groups,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
}

// assignRequest はタスク割当リクエストのボディ。
// UserIDが空の場合はリクエスト元ユーザー自身に割り当てる。
type assignRequest struct {
	UserID string `json:"user_id"`
}

// ListGroupTasks はグループ内のタスク一覧を取得する。
// グループに関係するユーザーのみ取得できる。
// GET /api/groups/{id}/tasks
func (h *TaskHandler) ListGroupTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	related, err := h.groups.IsRelated(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !related {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	tasks, err := h.service.ListGroupTasks(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// CreateTask はグループに新しいタスクを作成する。
// グループに関係するユーザーのみ作成できる。
// POST /api/groups/{id}/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	title := h.sanitizer.Sanitize(req.Title)
	if !isValidTaskTitle(title) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTaskTitleError())
		return
	}
	description := h.sanitizer.Sanitize(req.Description)

	related, err := h.groups.IsRelated(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !related {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	task, err := h.service.CreateTask(r.Context(), groupID, title, description, req.Deadline, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskCreated()
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// GetTask はリクエスト元ユーザーが関係するグループ内のタスクを1件取得する。
// 関係しないグループのタスクは存在しないものとして404を返す。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	task, err := h.service.GetUserTask(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// UpdateTask はタスクのタイトル・説明・締切を更新する。
// タスクの作成者のみ実行できる。
// PUT /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	title := h.sanitizer.Sanitize(req.Title)
	if !isValidTaskTitle(title) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTaskTitleError())
		return
	}
	description := h.sanitizer.Sanitize(req.Description)

	// 認可ゲート: 作成者のみ更新できる
	isCreator, err := h.service.IsTaskCreator(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !isCreator {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	task, err := h.service.UpdateTask(r.Context(), taskID, title, description, req.Deadline)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// DeleteTask はタスクを削除する。タスクの作成者のみ実行できる。
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	// 認可ゲート: 作成者のみ削除できる
	isCreator, err := h.service.IsTaskCreator(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !isCreator {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	deleted, err := h.service.DeleteTask(r.Context(), taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !deleted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignTask はタスクに担当者を設定する。
// ボディのuser_idが空の場合はリクエスト元ユーザー自身に割り当てる。
// リクエスト元と担当者の双方がタスクのグループに関係している必要がある。
// POST /api/tasks/{id}/assign
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	assigneeUserID := req.UserID
	if assigneeUserID == "" {
		assigneeUserID = userID
	}

	// 可視性チェック: リクエスト元がタスクのグループに関係していること
	task, err := h.service.GetUserTask(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	if assigneeUserID != userID {
		related, err := h.groups.IsRelated(r.Context(), assigneeUserID, task.GroupID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if !related {
			writeAPIErrorResponse(w, http.StatusNotFound, model.NewMembershipNotFoundError(assigneeUserID, task.GroupID))
			return
		}
	}

	assigned, err := h.service.AssignTask(r.Context(), assigneeUserID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if assigned == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	h.metrics.RecordTaskAssigned()
	writeJSON(w, http.StatusOK, toTaskResponse(assigned))
}

// UnassignTask はタスクの担当者を解除する。
// リクエスト元がタスクのグループに関係している必要がある。
// POST /api/tasks/{id}/unassign
func (h *TaskHandler) UnassignTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	task, err := h.service.GetUserTask(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	if _, err := h.service.UnassignTask(r.Context(), taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask はタスクに完了日時を記録する。
// リクエスト元がタスクのグループに関係している必要がある。
// POST /api/tasks/{id}/complete
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "id")

	task, err := h.service.GetUserTask(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	completed, err := h.service.CompleteTask(r.Context(), taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !completed {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	h.metrics.RecordTaskCompleted()
	w.WriteHeader(http.StatusNoContent)
}

// ListUserTasks はリクエスト元ユーザーが関係する全グループのタスク一覧を取得する。
// GET /api/users/me/tasks
func (h *TaskHandler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tasks, err := h.service.ListUserTasks(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// ListUserAssignments はリクエスト元ユーザーが関係するグループ内の
// 担当者設定済みかつ未完了のタスク一覧を取得する。
// GET /api/users/me/assignments
func (h *TaskHandler) ListUserAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	tasks, err := h.service.ListUserAssignments(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// GetUserAssignment は担当者設定済みかつ未完了のタスクを1件取得する。
// GET /api/users/me/assignments/{taskID}
func (h *TaskHandler) GetUserAssignment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID := chi.URLParam(r, "taskID")

	task, err := h.service.GetUserAssignment(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// isValidTaskTitle はタスクタイトルの制約（非空・最大長）を検証する。
func isValidTaskTitle(title string) bool {
	length := utf8.RuneCountInString(title)
	return length > 0 && length <= taskTitleMaxLength
}
