// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/taskbook/internal/middleware"
	"github.com/hitoshi/taskbook/internal/model"
)

// groupResponse はグループのAPIレスポンス。
type groupResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// userResponse はユーザーのAPIレスポンス。
type userResponse struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// userGroupResponse はメンバーシップのAPIレスポンス。
// GroupとUserはハイドレートされた場合のみ含まれる。
type userGroupResponse struct {
	UserID       string         `json:"user_id"`
	GroupID      string         `json:"group_id"`
	RelationType string         `json:"relation_type"`
	Group        *groupResponse `json:"group,omitempty"`
	User         *userResponse  `json:"user,omitempty"`
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID                string         `json:"id"`
	GroupID           string         `json:"group_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Deadline          time.Time      `json:"deadline"`
	CreatedByUserID   string         `json:"created_by_user_id"`
	AssignedToUserID  *string        `json:"assigned_to_user_id,omitempty"`
	DateTimeAssigned  *time.Time     `json:"date_time_assigned,omitempty"`
	DateTimeCompleted *time.Time     `json:"date_time_completed,omitempty"`
	Group             *groupResponse `json:"group,omitempty"`
	CreatedByUser     *userResponse  `json:"created_by_user,omitempty"`
	AssignedToUser    *userResponse  `json:"assigned_to_user,omitempty"`
}

func toGroupResponse(g *model.Group) *groupResponse {
	if g == nil {
		return nil
	}
	return &groupResponse{ID: g.ID, Name: g.Name, IsActive: g.IsActive}
}

func toUserResponse(u *model.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toUserGroupResponse(ug *model.UserGroup) userGroupResponse {
	return userGroupResponse{
		UserID:       ug.UserID,
		GroupID:      ug.GroupID,
		RelationType: ug.RelationType.String(),
		Group:        toGroupResponse(ug.Group),
		User:         toUserResponse(ug.User),
	}
}

func toUserGroupResponses(ugs []*model.UserGroup) []userGroupResponse {
	results := make([]userGroupResponse, 0, len(ugs))
	for _, ug := range ugs {
		results = append(results, toUserGroupResponse(ug))
	}
	return results
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:                t.ID,
		GroupID:           t.GroupID,
		Title:             t.Title,
		Description:       t.Description,
		Deadline:          t.Deadline,
		CreatedByUserID:   t.CreatedByUserID,
		AssignedToUserID:  t.AssignedToUserID,
		DateTimeAssigned:  t.DateTimeAssigned,
		DateTimeCompleted: t.DateTimeCompleted,
		Group:             toGroupResponse(t.Group),
		CreatedByUser:     toUserResponse(t.CreatedByUser),
		AssignedToUser:    toUserResponse(t.AssignedToUser),
	}
}

func toTaskResponses(tasks []*model.Task) []taskResponse {
	results := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, toTaskResponse(t))
	}
	return results
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "認証ゲートウェイ経由でアクセスしてください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析失敗の400レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラー（ストア障害を含む）は500として扱い、詳細はログのみに記録する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeGroupNotFound, model.ErrCodeTaskNotFound, model.ErrCodeMembershipNotFound:
		return http.StatusNotFound
	case model.ErrCodeMembershipExists:
		return http.StatusConflict
	case model.ErrCodeInvalidGroupName, model.ErrCodeInvalidTaskTitle:
		return http.StatusBadRequest
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
